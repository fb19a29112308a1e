package subtitle

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSimple(t *testing.T) {
	g := NewDefaultGenerator()

	sub, err := g.Generate([]Segment{
		{StartTime: 0, EndTime: 2 * time.Second, Text: " Hello there. "},
		{StartTime: 2 * time.Second, EndTime: 4 * time.Second, Text: "General Kenobi."},
	})
	require.NoError(t, err)
	require.Len(t, sub.Entries, 2)
	assert.Equal(t, string(FormatSRT), sub.Format)
	assert.Equal(t, []string{"Hello there."}, sub.Entries[0].Lines)
	assert.Equal(t, 2, sub.Entries[1].Index)
	assert.NoError(t, sub.Validate())
}

func TestGenerateNoSegments(t *testing.T) {
	sub, err := NewDefaultGenerator().Generate(nil)
	require.NoError(t, err)
	assert.Empty(t, sub.Entries)
}

func TestGenerateSkipsEmptyAndClipsOverlap(t *testing.T) {
	sub, err := NewDefaultGenerator().Generate([]Segment{
		{StartTime: 0, EndTime: 3 * time.Second, Text: "first"},
		{StartTime: time.Second, EndTime: time.Second + 500*time.Millisecond, Text: "swallowed"},
		{StartTime: 3 * time.Second, EndTime: 4 * time.Second, Text: "   "},
		{StartTime: 2 * time.Second, EndTime: 5 * time.Second, Text: "clipped"},
		{StartTime: 5*time.Second + 1234567*time.Nanosecond, EndTime: 6 * time.Second, Text: "truncated"},
	})
	require.NoError(t, err)
	require.Len(t, sub.Entries, 3)

	assert.Equal(t, "first", sub.Entries[0].Text())
	assert.Equal(t, "clipped", sub.Entries[1].Text())
	assert.Equal(t, 3*time.Second, sub.Entries[1].StartTime)
	assert.Equal(t, 5*time.Second+time.Millisecond, sub.Entries[2].StartTime)
	assert.NoError(t, sub.Validate())
}

func TestGenerateSplitsLongSegments(t *testing.T) {
	g := NewDefaultGenerator()
	words := strings.Repeat("lorem ipsum dolor sit amet ", 10)

	sub, err := g.Generate([]Segment{
		{StartTime: 0, EndTime: 20 * time.Second, Text: words},
	})
	require.NoError(t, err)
	require.Greater(t, len(sub.Entries), 1)
	require.NoError(t, sub.Validate())

	assert.Equal(t, time.Duration(0), sub.Entries[0].StartTime)
	assert.Equal(t, 20*time.Second, sub.Entries[len(sub.Entries)-1].EndTime)

	var got []string
	for i, e := range sub.Entries {
		if i > 0 {
			assert.Equal(t, sub.Entries[i-1].EndTime, e.StartTime)
		}
		assert.LessOrEqual(t, len(e.Lines), g.MaxLinesPerSub)
		for _, line := range e.Lines {
			got = append(got, strings.Fields(line)...)
		}
	}
	assert.Equal(t, strings.Fields(words), got)
}

func TestFormatText(t *testing.T) {
	g := NewDefaultGenerator()

	assert.Equal(t, []string{"short"}, g.formatText("short"))

	long := "this sentence is definitely longer than forty two characters"
	lines := g.formatText(long)
	require.Len(t, lines, 2)
	assert.Equal(t, long, lines[0]+" "+lines[1])

	single := strings.Repeat("x", 60)
	assert.Equal(t, []string{single}, g.formatText(single))
}
