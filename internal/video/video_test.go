package video

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/clipper/internal/subtitle"
)

var _ Processor = (*DefaultProcessor)(nil)

func TestExtractAudioKwargs(t *testing.T) {
	tests := []struct {
		name       string
		opts       ExtractAudioOptions
		codec      string
		bitrate    any
		hasBitrate bool
	}{
		{"wav default", DefaultExtractAudioOptions(), "pcm_s16le", nil, false},
		{"mp3 with bitrate", ExtractAudioOptions{Format: "mp3", SampleRate: 44100, Channels: 2, Bitrate: "128k"}, "libmp3lame", "128k", true},
		{"flac ignores bitrate", ExtractAudioOptions{Format: "flac", Bitrate: "128k"}, "flac", nil, false},
		{"unknown falls back to pcm", ExtractAudioOptions{Format: "xyz"}, "pcm_s16le", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kw := tt.opts.kwargs()
			assert.Equal(t, tt.codec, kw["acodec"])
			b, ok := kw["b:a"]
			assert.Equal(t, tt.hasBitrate, ok)
			if ok {
				assert.Equal(t, tt.bitrate, b)
			}
		})
	}
}

func TestParseResizeMode(t *testing.T) {
	m, err := ParseResizeMode(" Fill ")
	require.NoError(t, err)
	assert.Equal(t, ResizeFill, m)

	m, err = ParseResizeMode("")
	require.NoError(t, err)
	assert.Equal(t, ResizeStretch, m)

	_, err = ParseResizeMode("letterbox")
	assert.Error(t, err)
}

func TestResizeFilter(t *testing.T) {
	f, err := resizeFilter(1080, 1920, ResizeStretch)
	require.NoError(t, err)
	assert.Equal(t, "scale=1080:1920,setsar=1", f)

	f, err = resizeFilter(1080, 1920, ResizeFill)
	require.NoError(t, err)
	assert.Equal(t, "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,setsar=1", f)

	_, err = resizeFilter(1081, 1920, ResizeFill)
	assert.Error(t, err)
	_, err = resizeFilter(0, 1920, ResizeFill)
	assert.Error(t, err)
	_, err = resizeFilter(1080, 1920, ResizeMode("zoom"))
	assert.Error(t, err)
}

func TestSubtitlesFilter(t *testing.T) {
	assert.Equal(t, "subtitles=/tmp/a.ass", subtitlesFilter("/tmp/a.ass", ""))
	assert.Equal(t,
		`subtitles=C\:\\clips\\it\'s.ass:fontsdir=/fonts`,
		subtitlesFilter(`C:\clips\it's.ass`, "/fonts"),
	)
}

func TestFmtSeconds(t *testing.T) {
	assert.Equal(t, "1.647", fmtSeconds(1647*time.Millisecond))
	assert.Equal(t, "3600.000", fmtSeconds(time.Hour))
}

func TestStyleValidate(t *testing.T) {
	assert.NoError(t, DefaultStyle().Validate())

	bad := DefaultStyle()
	bad.FontSize = 0
	assert.Error(t, bad.Validate())

	bad = DefaultStyle()
	bad.Color = "white"
	assert.ErrorContains(t, bad.Validate(), "font colour")

	bad = DefaultStyle()
	bad.StrokeWidth = -1
	assert.Error(t, bad.Validate())

	bad = DefaultStyle()
	bad.FontPath = filepath.Join(t.TempDir(), "missing.ttf")
	assert.ErrorContains(t, bad.Validate(), "font path")
}

func TestStyleFonts(t *testing.T) {
	dir := t.TempDir()
	font := filepath.Join(dir, "Montserrat-Bold.ttf")
	require.NoError(t, os.WriteFile(font, []byte("font"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Zed.otf"), []byte("font"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644))

	t.Run("default font", func(t *testing.T) {
		d, name, err := DefaultStyle().fonts()
		require.NoError(t, err)
		assert.Empty(t, d)
		assert.Equal(t, "Arial", name)
	})

	t.Run("font file", func(t *testing.T) {
		s := DefaultStyle()
		s.FontPath = font
		d, name, err := s.fonts()
		require.NoError(t, err)
		assert.Equal(t, dir, d)
		assert.Equal(t, "Montserrat-Bold", name)
	})

	t.Run("font directory picks first font", func(t *testing.T) {
		s := DefaultStyle()
		s.FontPath = dir
		d, name, err := s.fonts()
		require.NoError(t, err)
		assert.Equal(t, dir, d)
		assert.Equal(t, "Montserrat-Bold", name)
	})

	t.Run("explicit name wins", func(t *testing.T) {
		s := DefaultStyle()
		s.FontPath = dir
		s.FontName = "Zed Sans"
		_, name, err := s.fonts()
		require.NoError(t, err)
		assert.Equal(t, "Zed Sans", name)
	})

	t.Run("directory without fonts", func(t *testing.T) {
		s := DefaultStyle()
		s.FontPath = t.TempDir()
		_, _, err := s.fonts()
		assert.ErrorContains(t, err, "no font files")
	})
}

func TestStyleASSStyle(t *testing.T) {
	s := Style{FontSize: 80, Color: "#FFCC00", StrokeColor: "#101010", StrokeWidth: 4}
	st, err := s.assStyle("Inter", 1080, 1920)
	require.NoError(t, err)

	assert.Equal(t, "Inter", st.FontName)
	assert.Equal(t, 80, st.FontSize)
	assert.Equal(t, "&H0000CCFF", st.PrimaryColour)
	assert.Equal(t, "&H00101010", st.OutlineColour)
	assert.Equal(t, 4.0, st.Outline)
	assert.Equal(t, 1080, st.PlayResX)
	assert.Equal(t, 1920, st.PlayResY)
	assert.Equal(t, 240, st.MarginV)
}

func TestProcessorMissingInputs(t *testing.T) {
	ctx := context.Background()
	p := NewProcessor(t.TempDir(), nil)
	missing := filepath.Join(t.TempDir(), "missing.mp4")

	err := p.Cut(ctx, missing, "out.mp4", subtitle.Span{Start: 0, End: time.Second})
	assert.ErrorContains(t, err, "video file not found")

	err = p.Resize(ctx, missing, "out.mp4", 1080, 1920, ResizeStretch)
	assert.ErrorContains(t, err, "video file not found")

	err = p.ExtractAudio(ctx, missing, "out.wav", DefaultExtractAudioOptions())
	assert.ErrorContains(t, err, "video file not found")

	existing := filepath.Join(t.TempDir(), "in.mp4")
	require.NoError(t, os.WriteFile(existing, []byte("not really a video"), 0644))

	err = p.BurnSubtitles(ctx, existing, filepath.Join(t.TempDir(), "none.srt"), "out.mp4", DefaultStyle())
	assert.ErrorContains(t, err, "subtitle file not found")

	err = p.Cut(ctx, existing, "out.mp4", subtitle.Span{Start: 2 * time.Second, End: time.Second})
	assert.ErrorContains(t, err, "invalid span")
}
