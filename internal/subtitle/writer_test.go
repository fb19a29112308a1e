package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSubtitle() *Subtitle {
	return &Subtitle{
		Entries: []Entry{
			{Index: 1, StartTime: 1 * time.Second, EndTime: 4 * time.Second, Lines: []string{"Hello, world!"}},
			{Index: 2, StartTime: 5500 * time.Millisecond, EndTime: 8200 * time.Millisecond, Lines: []string{"Two", "lines"}},
		},
		Format: string(FormatSRT),
	}
}

func TestSRTWriterCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.srt")
	require.NoError(t, (&SRTWriter{}).Write(sampleSubtitle(), path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"1\n00:00:01,000 --> 00:00:04,000\nHello, world!\n\n2\n00:00:05,500 --> 00:00:08,200\nTwo\nlines\n",
		string(b),
	)
}

func TestVTTWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.vtt")
	require.NoError(t, (&VTTWriter{}).Write(sampleSubtitle(), path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)
	assert.True(t, strings.HasPrefix(content, "WEBVTT\n\n"))
	assert.Contains(t, content, "00:00:05.500 --> 00:00:08.200\nTwo\nlines\n")
}

func TestASSWriter(t *testing.T) {
	style := DefaultASSStyle()
	style.FontName = "Montserrat"
	style.FontSize = 64
	style.PlayResX = 1080
	style.PlayResY = 1920
	style.Outline = 2.5

	path := filepath.Join(t.TempDir(), "out.ass")
	w := &ASSWriter{Title: "Test", Style: style}
	require.NoError(t, w.Write(sampleSubtitle(), path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(b)

	assert.Contains(t, content, "Title: Test\n")
	assert.Contains(t, content, "PlayResX: 1080\nPlayResY: 1920\n")
	assert.Contains(t, content, "Style: Default,Montserrat,64,&H00FFFFFF,&H000000FF,&H00000000,&H00000000,0,0,0,0,100,100,0,0,1,2.5,2,2,10,10,10,1\n")
	assert.Contains(t, content, "Dialogue: 0,0:00:01.00,0:00:04.00,Default,,0,0,0,,Hello, world!\n")
	assert.Contains(t, content, "Dialogue: 0,0:00:05.50,0:00:08.20,Default,,0,0,0,,Two\\Nlines\n")
}

func TestASSWriterOmitsPlayResWhenUnset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ass")
	w, err := NewWriter(FormatASS)
	require.NoError(t, err)
	require.NoError(t, w.Write(sampleSubtitle(), path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "PlayResX")
	assert.Contains(t, string(b), "Title: Clipper Generated Subtitles\n")
}

func TestASSColor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "#FFFFFF", want: "&H00FFFFFF"},
		{in: "#ff8800", want: "&H000088FF"},
		{in: "123456", want: "&H00563412"},
		{in: "#FFF", wantErr: true},
		{in: "#GGGGGG", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ASSColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewWriterUnsupported(t *testing.T) {
	_, err := NewWriter(Format("sub"))
	assert.Error(t, err)
}

func TestFormatExtensions(t *testing.T) {
	assert.Equal(t, FormatASS, GetFormatFromExtension("x/y.SSA"))
	assert.Equal(t, FormatVTT, GetFormatFromExtension("y.vtt"))
	assert.Equal(t, FormatSRT, GetFormatFromExtension("y.txt"))
	assert.Equal(t, ".ass", GetExtensionForFormat(FormatASS))
	assert.Equal(t, ".srt", GetExtensionForFormat(Format("other")))
}
