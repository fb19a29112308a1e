package subtitle

import "time"

// Span is the interval of the source video covered by a subtitle track.
type Span struct {
	Start time.Duration
	End   time.Duration
}

func (s Span) Duration() time.Duration {
	return s.End - s.Start
}

func (s Span) String() string {
	return formatSRTTime(s.Start) + " --> " + formatSRTTime(s.End)
}

// ExtractSpan returns the start of the first entry and the end of the last
// one.
func ExtractSpan(sub *Subtitle) (Span, error) {
	if sub == nil || len(sub.Entries) == 0 {
		return Span{}, &EmptySequenceError{Op: "extract span"}
	}
	return Span{
		Start: sub.Entries[0].StartTime,
		End:   sub.Entries[len(sub.Entries)-1].EndTime,
	}, nil
}
