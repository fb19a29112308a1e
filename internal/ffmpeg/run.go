package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// Run executes stream with the resolved ffmpeg binary and kills the process
// when ctx is done. Failures carry the tail of ffmpeg's stderr.
func Run(ctx context.Context, stream *ffmpeggo.Stream) error {
	ffmpegPath, err := FFmpegPath()
	if err != nil {
		return err
	}

	var stderr bytes.Buffer
	cmd := stream.
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		WithErrorOutput(&stderr).
		Compile()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %s", err, tail(stderr.String(), 5))
		}
		return nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

// tail returns the last n non-empty lines of s joined by " | ".
func tail(s string, n int) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
