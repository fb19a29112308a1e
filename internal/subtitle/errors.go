package subtitle

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRecord     = errors.New("invalid subtitle record")
	ErrMalformedSubtitle = errors.New("malformed subtitle")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrEmptySequence     = errors.New("empty subtitle sequence")
)

// InvalidRecordError reports an entry whose fields break the record
// invariants.
type InvalidRecordError struct {
	Index  int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid subtitle record %d: %s", e.Index, e.Reason)
}

func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// MalformedSubtitleError reports a block that could not be parsed. Block is
// the value of the block's index line, or its 1-based position when the
// index line itself is missing or unreadable.
type MalformedSubtitleError struct {
	Block  int
	Reason string
}

func (e *MalformedSubtitleError) Error() string {
	return fmt.Sprintf("malformed subtitle block %d: %s", e.Block, e.Reason)
}

func (e *MalformedSubtitleError) Is(target error) bool {
	return target == ErrMalformedSubtitle
}

type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

type EmptySequenceError struct {
	Op string
}

func (e *EmptySequenceError) Error() string {
	if e.Op == "" {
		return ErrEmptySequence.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, ErrEmptySequence)
}

func (e *EmptySequenceError) Is(target error) bool {
	return target == ErrEmptySequence
}
