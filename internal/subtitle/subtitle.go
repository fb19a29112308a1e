package subtitle

import (
	"fmt"
	"strings"
	"time"
)

// represents single subtitle entry
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Lines     []string
}

// NewEntry builds an entry and checks its invariants: the interval must be
// non-empty and there must be at least one line, none of them blank.
func NewEntry(
	index int,
	start, end time.Duration,
	lines []string,
) (Entry, error) {
	e := Entry{
		Index:     index,
		StartTime: start,
		EndTime:   end,
		Lines:     append([]string(nil), lines...),
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (e Entry) Validate() error {
	if e.StartTime < 0 {
		return &InvalidRecordError{
			Index:  e.Index,
			Reason: fmt.Sprintf("negative start %s", formatSRTTime(e.StartTime)),
		}
	}
	if e.StartTime >= e.EndTime {
		return &InvalidRecordError{
			Index: e.Index,
			Reason: fmt.Sprintf(
				"start %s is not before end %s",
				formatSRTTime(e.StartTime),
				formatSRTTime(e.EndTime),
			),
		}
	}
	if len(e.Lines) == 0 {
		return &InvalidRecordError{Index: e.Index, Reason: "empty text"}
	}
	for i, line := range e.Lines {
		if strings.TrimSpace(line) == "" {
			return &InvalidRecordError{
				Index:  e.Index,
				Reason: fmt.Sprintf("line %d is blank", i+1),
			}
		}
		if strings.ContainsAny(line, "\r\n") {
			return &InvalidRecordError{
				Index:  e.Index,
				Reason: fmt.Sprintf("line %d contains a line break", i+1),
			}
		}
	}
	return nil
}

func (e Entry) Duration() time.Duration {
	return e.EndTime - e.StartTime
}

// Text joins the lines the way they are displayed.
func (e Entry) Text() string {
	return strings.Join(e.Lines, "\n")
}

// represents complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
	Format   string
}

// Renumber rewrites indices as 1..N in slice order.
func (s *Subtitle) Renumber() {
	for i := range s.Entries {
		s.Entries[i].Index = i + 1
	}
}

// Validate checks every entry and that entries are ordered by start time
// without overlapping.
func (s *Subtitle) Validate() error {
	for i, e := range s.Entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if i == 0 {
			continue
		}
		prev := s.Entries[i-1]
		if e.StartTime < prev.EndTime {
			return &InvalidRecordError{
				Index: e.Index,
				Reason: fmt.Sprintf(
					"starts at %s before previous entry ends at %s",
					formatSRTTime(e.StartTime),
					formatSRTTime(prev.EndTime),
				),
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *Subtitle) Clone() *Subtitle {
	out := &Subtitle{
		Entries:  make([]Entry, len(s.Entries)),
		Language: s.Language,
		Format:   s.Format,
	}
	for i, e := range s.Entries {
		e.Lines = append([]string(nil), e.Lines...)
		out.Entries[i] = e
	}
	return out
}

// Shift returns a copy with every timestamp moved by offset. Shifting an
// entry to before zero is an error.
func (s *Subtitle) Shift(offset time.Duration) (*Subtitle, error) {
	out := s.Clone()
	for i := range out.Entries {
		e := &out.Entries[i]
		e.StartTime += offset
		e.EndTime += offset
		if e.StartTime < 0 {
			return nil, &InvalidRecordError{
				Index:  e.Index,
				Reason: fmt.Sprintf("shift by %s moves start before zero", offset),
			}
		}
	}
	return out, nil
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
	FormatASS Format = "ass"
)

// interface for subtitle generation
type Generator interface {
	Generate(segments []Segment) (*Subtitle, error)
}

// represents transcribed audio segment
type Segment struct {
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// interface for writing subtitles to files
type Writer interface {
	Write(subtitle *Subtitle, path string) error
}
