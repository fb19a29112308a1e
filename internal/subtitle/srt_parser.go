package subtitle

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxSRTHours keeps every HH:59:59,999 timestamp inside time.Duration.
const maxSRTHours = int(math.MaxInt64/int64(time.Hour)) - 1

var srtTimingRegex = regexp.MustCompile(
	`^\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})\s*-->\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})(?:\s.*)?$`,
)

type srtBlock struct {
	position int
	lines    []string
}

// ReadSRTFile parses the SRT file at path.
func ReadSRTFile(path string) (*Subtitle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SRT file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	return ParseSRT(file)
}

func ParseSRTString(raw string) (*Subtitle, error) {
	return ParseSRT(strings.NewReader(raw))
}

// ParseSRT reads SubRip blocks separated by blank lines. Every block needs an
// index line, a timing line and at least one text line. Indices of the
// result are renumbered 1..N.
func ParseSRT(r io.Reader) (*Subtitle, error) {
	blocks, err := splitSRTBlocks(r)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(blocks))
	for _, blk := range blocks {
		var prev *Entry
		if len(entries) > 0 {
			prev = &entries[len(entries)-1]
		}
		entry, err := parseSRTBlock(blk, prev)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	sub := &Subtitle{
		Entries: entries,
		Format:  string(FormatSRT),
	}
	sub.Renumber()
	return sub, nil
}

func splitSRTBlocks(r io.Reader) ([]srtBlock, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		blocks  []srtBlock
		current []string
		lineNum int
	)

	flush := func() {
		if len(current) == 0 {
			return
		}
		blocks = append(blocks, srtBlock{
			position: len(blocks) + 1,
			lines:    current,
		})
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		lineNum++

		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading SRT input: %w", err)
	}
	flush()

	return blocks, nil
}

func parseSRTBlock(blk srtBlock, prev *Entry) (Entry, error) {
	lines := blk.lines
	block := blk.position

	index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		if strings.Contains(lines[0], "-->") {
			return Entry{}, &MalformedSubtitleError{
				Block:  block,
				Reason: "missing index line",
			}
		}
		return Entry{}, &MalformedSubtitleError{
			Block:  block,
			Reason: fmt.Sprintf("invalid index line %q", lines[0]),
		}
	}
	block = index

	if len(lines) < 2 || !strings.Contains(lines[1], "-->") {
		return Entry{}, &MalformedSubtitleError{
			Block:  block,
			Reason: "missing timing line",
		}
	}

	start, end, err := parseSRTTimingLine(lines[1])
	if err != nil {
		return Entry{}, &MalformedSubtitleError{
			Block:  block,
			Reason: fmt.Sprintf("invalid timing line %q: %v", lines[1], err),
		}
	}

	if len(lines) < 3 {
		return Entry{}, &MalformedSubtitleError{
			Block:  block,
			Reason: "missing text",
		}
	}

	// an index line followed by a timing line inside the text means the
	// blank line separating two blocks was dropped
	for i := 3; i < len(lines); i++ {
		if !srtTimingRegex.MatchString(lines[i]) {
			continue
		}
		if next, err := strconv.Atoi(strings.TrimSpace(lines[i-1])); err == nil {
			return Entry{}, &MalformedSubtitleError{
				Block:  next,
				Reason: "missing blank line before block",
			}
		}
	}

	if end <= start {
		return Entry{}, &MalformedSubtitleError{
			Block: block,
			Reason: fmt.Sprintf(
				"end %s is not after start %s",
				formatSRTTime(end),
				formatSRTTime(start),
			),
		}
	}

	if prev != nil && start < prev.EndTime {
		return Entry{}, &MalformedSubtitleError{
			Block: block,
			Reason: fmt.Sprintf(
				"starts at %s before previous block ends at %s",
				formatSRTTime(start),
				formatSRTTime(prev.EndTime),
			),
		}
	}

	entry := Entry{
		Index:     index,
		StartTime: start,
		EndTime:   end,
		Lines:     append([]string(nil), lines[2:]...),
	}
	if err := entry.Validate(); err != nil {
		var invalid *InvalidRecordError
		if errors.As(err, &invalid) {
			return Entry{}, &MalformedSubtitleError{Block: block, Reason: invalid.Reason}
		}
		return Entry{}, &MalformedSubtitleError{Block: block, Reason: err.Error()}
	}
	return entry, nil
}

func parseSRTTimingLine(line string) (time.Duration, time.Duration, error) {
	matches := srtTimingRegex.FindStringSubmatch(line)
	if len(matches) != 9 {
		return 0, 0, fmt.Errorf("expected HH:MM:SS,mmm --> HH:MM:SS,mmm")
	}

	start, err := parseSRTTimestamp(
		matches[1], matches[2], matches[3], matches[4],
	)
	if err != nil {
		return 0, 0, fmt.Errorf("start: %w", err)
	}
	end, err := parseSRTTimestamp(
		matches[5], matches[6], matches[7], matches[8],
	)
	if err != nil {
		return 0, 0, fmt.Errorf("end: %w", err)
	}
	return start, end, nil
}

func parseSRTTimestamp(
	hours, minutes, seconds, millis string,
) (time.Duration, error) {
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.Atoi(seconds)
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(millis)
	if err != nil {
		return 0, err
	}
	if h > maxSRTHours {
		return 0, fmt.Errorf("hours %d out of range", h)
	}
	if m > 59 || s > 59 {
		return 0, fmt.Errorf(
			"minutes and seconds must be below 60, got %d:%d",
			m,
			s,
		)
	}

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}
