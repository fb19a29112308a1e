package download

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ffmpegbin "github.com/mgpai22/clipper/internal/ffmpeg"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func TestVideoKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=abc_DEF-123", "abc_DEF-123"},
		{"https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ"},
		{"https://youtube.com/shorts/aBcDeFgHiJk", "aBcDeFgHiJk"},
		{"https://www.youtube.com/live/aBcDeFgHiJk?feature=share", "aBcDeFgHiJk"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, VideoKey(mustURL(t, tt.in)))
		})
	}

	other := VideoKey(mustURL(t, "https://vimeo.com/12345"))
	assert.Len(t, other, 36)
	assert.Equal(t, other, VideoKey(mustURL(t, "https://vimeo.com/12345")), "key must be stable")
	assert.NotEqual(t, other, VideoKey(mustURL(t, "https://vimeo.com/67890")))
}

type fakeRunner struct {
	calls [][]string
	write bool
	out   string
	err   error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.write {
		for i, a := range args {
			if a == "-o" {
				if err := os.WriteFile(args[i+1], []byte("video"), 0644); err != nil {
					return nil, err
				}
			}
		}
	}
	return []byte(f.out), f.err
}

func newTestDownloader(r *fakeRunner) *Downloader {
	d := New(nil)
	d.ytDlp = func() (string, error) { return "/usr/bin/yt-dlp", nil }
	d.run = r.run
	return d
}

func TestDownload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "video")
	r := &fakeRunner{write: true}
	d := newTestDownloader(r)

	path, err := d.Download(context.Background(), "https://www.youtube.com/watch?v=dQw4w9WgXcQ", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dQw4w9WgXcQ.mp4"), path)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "/usr/bin/yt-dlp", r.calls[0][0])
	assert.Contains(t, r.calls[0], "--merge-output-format")
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.calls[0][len(r.calls[0])-1])

	// second run finds the file and skips yt-dlp
	path2, err := d.Download(context.Background(), "https://youtu.be/dQw4w9WgXcQ", dir)
	require.NoError(t, err)
	assert.Equal(t, path, path2)
	assert.Len(t, r.calls, 1)
}

func TestDownloadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("bad url", func(t *testing.T) {
		d := newTestDownloader(&fakeRunner{})
		for _, in := range []string{"", "not a url", "ftp://example.com/v.mp4", "https://"} {
			_, err := d.Download(ctx, in, t.TempDir())
			var de *Error
			assert.ErrorAs(t, err, &de, in)
		}
	})

	t.Run("yt-dlp missing", func(t *testing.T) {
		d := newTestDownloader(&fakeRunner{})
		d.ytDlp = func() (string, error) { return "", ffmpegbin.ErrYtDlpNotFound }
		_, err := d.Download(ctx, "https://youtu.be/abc", t.TempDir())
		assert.ErrorIs(t, err, ffmpegbin.ErrYtDlpNotFound)
	})

	t.Run("yt-dlp fails", func(t *testing.T) {
		boom := errors.New("exit status 1")
		d := newTestDownloader(&fakeRunner{err: boom, out: strings.Repeat("x", 2000) + "ERROR: Video unavailable"})
		_, err := d.Download(ctx, "https://youtu.be/abc", t.TempDir())

		var de *Error
		require.ErrorAs(t, err, &de)
		assert.ErrorIs(t, err, boom)
		assert.True(t, strings.HasSuffix(de.Output, "Video unavailable"))
		assert.LessOrEqual(t, len(de.Output), 515)
	})

	t.Run("no output file", func(t *testing.T) {
		d := newTestDownloader(&fakeRunner{})
		_, err := d.Download(ctx, "https://youtu.be/abc", t.TempDir())
		assert.ErrorContains(t, err, "is missing")
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		d := newTestDownloader(&fakeRunner{err: errors.New("signal: killed")})
		_, err := d.Download(cctx, "https://youtu.be/abc", t.TempDir())
		assert.ErrorIs(t, err, context.Canceled)
	})
}
