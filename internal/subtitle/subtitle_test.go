package subtitle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	lines := []string{"first", "second"}
	e, err := NewEntry(3, time.Second, 2*time.Second, lines)
	require.NoError(t, err)
	assert.Equal(t, 3, e.Index)
	assert.Equal(t, time.Second, e.Duration())
	assert.Equal(t, "first\nsecond", e.Text())

	lines[0] = "changed"
	assert.Equal(t, "first", e.Lines[0], "entry must not alias the caller's slice")
}

func TestNewEntryInvalid(t *testing.T) {
	tests := []struct {
		name  string
		start time.Duration
		end   time.Duration
		lines []string
	}{
		{"negative start", -time.Millisecond, time.Second, []string{"x"}},
		{"start equals end", time.Second, time.Second, []string{"x"}},
		{"start after end", 2 * time.Second, time.Second, []string{"x"}},
		{"no lines", 0, time.Second, nil},
		{"blank line", 0, time.Second, []string{"x", "  "}},
		{"embedded newline", 0, time.Second, []string{"x\ny"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEntry(1, tt.start, tt.end, tt.lines)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}
}

func TestSubtitleValidateOverlap(t *testing.T) {
	sub := &Subtitle{Entries: []Entry{
		{Index: 1, StartTime: 0, EndTime: 2 * time.Second, Lines: []string{"a"}},
		{Index: 2, StartTime: time.Second, EndTime: 3 * time.Second, Lines: []string{"b"}},
	}}
	err := sub.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRecord))

	sub.Entries[1].StartTime = 2 * time.Second
	assert.NoError(t, sub.Validate())
}

func TestSubtitleCloneIsDeep(t *testing.T) {
	sub := &Subtitle{
		Language: "en",
		Entries:  []Entry{{Index: 1, StartTime: 0, EndTime: time.Second, Lines: []string{"a"}}},
	}
	c := sub.Clone()
	c.Entries[0].Lines[0] = "b"
	c.Entries[0].EndTime = 5 * time.Second

	assert.Equal(t, "a", sub.Entries[0].Lines[0])
	assert.Equal(t, time.Second, sub.Entries[0].EndTime)
	assert.Equal(t, "en", c.Language)
}

func TestRenumber(t *testing.T) {
	sub := &Subtitle{Entries: []Entry{{Index: 9}, {Index: 9}, {Index: 0}}}
	sub.Renumber()
	for i, e := range sub.Entries {
		assert.Equal(t, i+1, e.Index)
	}
}

func TestShift(t *testing.T) {
	sub := &Subtitle{Entries: []Entry{
		{Index: 1, StartTime: 10 * time.Second, EndTime: 12 * time.Second, Lines: []string{"a"}},
		{Index: 2, StartTime: 12 * time.Second, EndTime: 15 * time.Second, Lines: []string{"b"}},
	}}

	shifted, err := sub.Shift(-10 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), shifted.Entries[0].StartTime)
	assert.Equal(t, 5*time.Second, shifted.Entries[1].EndTime)
	assert.Equal(t, 10*time.Second, sub.Entries[0].StartTime, "original untouched")

	_, err = sub.Shift(-11 * time.Second)
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}
