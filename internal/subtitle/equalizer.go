package subtitle

import (
	"fmt"
	"math/bits"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Equalizer splits entries so that no displayed line is longer than
// MaxChars runes. Words are never broken: a single word longer than the
// budget is kept whole on its own line.
type Equalizer struct {
	MaxChars int
	logger   *zap.SugaredLogger
}

func NewEqualizer(maxChars int, logger *zap.SugaredLogger) (*Equalizer, error) {
	if maxChars <= 0 {
		return nil, &InvalidConfigError{
			Field:  "max chars",
			Reason: fmt.Sprintf("must be positive, got %d", maxChars),
		}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Equalizer{MaxChars: maxChars, logger: logger}, nil
}

// Equalize returns a new subtitle where every entry that needed packing into
// several lines is replaced by one entry per line. The original interval is
// divided between those entries in proportion to their rune counts, so the
// pieces cover it exactly. The input is not modified.
func (q *Equalizer) Equalize(sub *Subtitle) (*Subtitle, error) {
	if q.MaxChars <= 0 {
		return nil, &InvalidConfigError{
			Field:  "max chars",
			Reason: fmt.Sprintf("must be positive, got %d", q.MaxChars),
		}
	}

	out := &Subtitle{
		Entries:  make([]Entry, 0, len(sub.Entries)),
		Language: sub.Language,
		Format:   sub.Format,
	}

	for _, entry := range sub.Entries {
		if entry.EndTime <= entry.StartTime {
			return nil, &InvalidRecordError{
				Index:  entry.Index,
				Reason: "start is not before end",
			}
		}

		if len(entry.Lines) == 1 &&
			strings.TrimSpace(entry.Lines[0]) != "" &&
			utf8.RuneCountInString(entry.Lines[0]) <= q.MaxChars {
			out.Entries = append(out.Entries, entry.copyLines())
			continue
		}

		lines := PackLines(strings.Fields(strings.Join(entry.Lines, " ")), q.MaxChars)
		if len(lines) == 0 {
			q.logger.Warnw("Dropping subtitle entry without text",
				"index", entry.Index,
				"start", formatSRTTime(entry.StartTime),
				"end", formatSRTTime(entry.EndTime),
			)
			continue
		}

		out.Entries = append(out.Entries, splitEntry(entry, lines)...)
	}

	out.Renumber()
	return out, nil
}

// PackLines greedily fills lines with whole tokens, joined by single
// spaces, while the line stays within maxChars runes.
func PackLines(tokens []string, maxChars int) []string {
	var (
		lines   []string
		current strings.Builder
		width   int
	)

	for _, tok := range tokens {
		n := utf8.RuneCountInString(tok)
		if width > 0 && width+1+n <= maxChars {
			current.WriteByte(' ')
			current.WriteString(tok)
			width += 1 + n
			continue
		}
		if width > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		current.WriteString(tok)
		width = n
	}
	if width > 0 {
		lines = append(lines, current.String())
	}

	return lines
}

func splitEntry(entry Entry, lines []string) []Entry {
	if len(lines) == 1 {
		return []Entry{{
			Index:     entry.Index,
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
			Lines:     lines,
		}}
	}

	total := 0
	weights := make([]int, len(lines))
	for i, line := range lines {
		weights[i] = utf8.RuneCountInString(line)
		total += weights[i]
	}

	bounds := proportionalBounds(entry.StartTime, entry.EndTime, weights, total)
	if bounds == nil {
		// too short to give every line its own millisecond
		return []Entry{{
			Index:     entry.Index,
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
			Lines:     lines,
		}}
	}

	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = Entry{
			Index:     entry.Index,
			StartTime: bounds[i],
			EndTime:   bounds[i+1],
			Lines:     []string{line},
		}
	}
	return entries
}

// scaleDuration returns d*num/den for 0 <= num <= den without overflowing
// the intermediate product.
func scaleDuration(d time.Duration, num, den int) time.Duration {
	hi, lo := bits.Mul64(uint64(d), uint64(num))
	q, _ := bits.Div64(hi, lo, uint64(den))
	return time.Duration(q)
}

// proportionalBounds returns len(weights)+1 strictly increasing boundaries
// from start to end. Inner boundaries sit at the cumulative weight share of
// the interval, rounded to the millisecond and kept at least 1ms apart. It
// returns nil when the interval cannot fit one millisecond per piece.
func proportionalBounds(
	start, end time.Duration,
	weights []int,
	total int,
) []time.Duration {
	n := len(weights)
	span := end - start
	if span < time.Duration(n)*time.Millisecond {
		return nil
	}

	bounds := make([]time.Duration, n+1)
	bounds[0] = start
	bounds[n] = end

	cum := 0
	for i := 1; i < n; i++ {
		cum += weights[i-1]

		var offset time.Duration
		if total > 0 {
			offset = scaleDuration(span, cum, total)
		} else {
			offset = scaleDuration(span, i, n)
		}
		b := (start + offset).Round(time.Millisecond)

		if lo := bounds[i-1] + time.Millisecond; b < lo {
			b = lo
		}
		if hi := end - time.Duration(n-i)*time.Millisecond; b > hi {
			b = hi
		}
		bounds[i] = b
	}

	return bounds
}

func (e Entry) copyLines() Entry {
	e.Lines = append([]string(nil), e.Lines...)
	return e
}

// EqualizeFile reads the SRT file at in, equalizes it and writes the result
// to out. in and out may be the same path.
func EqualizeFile(
	in, out string,
	maxChars int,
	logger *zap.SugaredLogger,
) (*Subtitle, error) {
	q, err := NewEqualizer(maxChars, logger)
	if err != nil {
		return nil, err
	}

	sub, err := ReadSRTFile(in)
	if err != nil {
		return nil, err
	}

	equalized, err := q.Equalize(sub)
	if err != nil {
		return nil, err
	}

	if err := (&SRTWriter{}).Write(equalized, out); err != nil {
		return nil, fmt.Errorf("failed to write equalized subtitles: %w", err)
	}

	return equalized, nil
}
