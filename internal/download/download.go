package download

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	ffmpegbin "github.com/mgpai22/clipper/internal/ffmpeg"
	"github.com/mgpai22/clipper/internal/logging"
)

// Error is returned when a video cannot be fetched.
type Error struct {
	URL    string
	Err    error
	Output string // tail of the downloader's output
}

func (e *Error) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("download %s failed: %v: %s", e.URL, e.Err, e.Output)
	}
	return fmt.Sprintf("download %s failed: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Downloader fetches videos with yt-dlp.
type Downloader struct {
	logger *zap.SugaredLogger
	ytDlp  func() (string, error)
	run    runFunc
}

func New(logger *zap.SugaredLogger) *Downloader {
	return &Downloader{
		logger: logging.OrNop(logger),
		ytDlp:  ffmpegbin.YtDlpPath,
		run:    runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Download saves the video at rawURL as an mp4 under dir and returns its
// path. A video that was already downloaded is not fetched again.
func (d *Downloader) Download(ctx context.Context, rawURL, dir string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("not a valid http(s) URL")}
	}

	outPath := filepath.Join(dir, VideoKey(u)+".mp4")
	if _, err := os.Stat(outPath); err == nil {
		d.logger.Infow("Video already downloaded, skipping", "path", outPath)
		return outPath, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create video directory: %w", err)
	}

	bin, err := d.ytDlp()
	if err != nil {
		return "", &Error{URL: rawURL, Err: err}
	}

	args := []string{
		"--no-playlist",
		"--no-progress",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b",
		"--merge-output-format", "mp4",
		"-o", outPath,
		u.String(),
	}

	d.logger.Infow("Downloading video", "url", u.String(), "output", outPath)
	d.logger.Debugw("Running yt-dlp", "bin", bin, "args", args)

	out, err := d.run(ctx, bin, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &Error{URL: rawURL, Err: err, Output: tail(string(out), 512)}
	}

	if _, err := os.Stat(outPath); err != nil {
		return "", &Error{URL: rawURL, Err: fmt.Errorf("yt-dlp finished but %s is missing", outPath)}
	}
	return outPath, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// VideoKey derives a stable file name for a video URL: the YouTube video id
// when there is one, otherwise a name-based UUID of the URL.
func VideoKey(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtube.com", "music.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			id = v
		} else if parts := strings.Split(strings.Trim(u.Path, "/"), "/"); len(parts) == 2 &&
			(parts[0] == "shorts" || parts[0] == "live" || parts[0] == "embed") {
			id = parts[1]
		}
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	}

	if id = unsafeChars.ReplaceAllString(id, ""); id != "" {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(u.String())).String()
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
