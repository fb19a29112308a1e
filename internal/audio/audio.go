package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"

	ffmpegbin "github.com/mgpai22/clipper/internal/ffmpeg"
)

const defaultConcurrency = 10

// audio chunk info
type ChunkInfo struct {
	Path      string
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
}

// settings for audio compression
type CompressionOptions struct {
	Format     string // mp3 or aac
	SampleRate int
	Channels   int
	Bitrate    string // e.g. "64k"
}

// small mono mp3: enough for speech models, small enough to upload
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		Format:     "mp3",
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

func (o CompressionOptions) kwargs() ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{
		"vn": "",
		"ar": o.SampleRate,
		"ac": o.Channels,
	}
	if o.Format == "aac" {
		kwargs["acodec"] = "aac"
	} else {
		kwargs["acodec"] = "libmp3lame"
	}
	if o.Bitrate != "" {
		kwargs["b:a"] = o.Bitrate
	}
	return kwargs
}

func GetDuration(ctx context.Context, filePath string) (time.Duration, error) {
	probe, err := ffmpegbin.Probe(ctx, filePath)
	if err != nil {
		return 0, err
	}
	return probe.Duration, nil
}

// CompressAudio re-encodes any media file into a speech-sized audio file.
func CompressAudio(
	ctx context.Context,
	inputPath, outputPath string,
	opts CompressionOptions,
) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	stream := ffmpeg.Input(inputPath).Output(outputPath, opts.kwargs())
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return fmt.Errorf("compression failed: %w", err)
	}

	return nil
}

// planChunks lays out consecutive chunks of at most chunkDuration covering
// total. The last chunk is shortened to end exactly at total.
func planChunks(
	total, chunkDuration time.Duration,
	outputDir, baseName, ext string,
) []ChunkInfo {
	var chunks []ChunkInfo
	for i := 0; ; i++ {
		start := time.Duration(i) * chunkDuration
		if start >= total {
			break
		}
		end := start + chunkDuration
		if end > total {
			end = total
		}
		chunks = append(chunks, ChunkInfo{
			Path: filepath.Join(
				outputDir,
				fmt.Sprintf("%s_chunk_%03d%s", baseName, i, ext),
			),
			Index:     i,
			StartTime: start,
			EndTime:   end,
		})
	}
	return chunks
}

// splits an audio file into chunks of specified duration
func ChunkAudio(
	ctx context.Context,
	audioPath string,
	chunkDuration time.Duration,
	outputDir string,
) ([]ChunkInfo, error) {
	return ChunkAudioConcurrent(ctx, audioPath, chunkDuration, outputDir, 0)
}

// ChunkAudioConcurrent cuts chunks with at most concurrency ffmpeg processes
// at once (10 when concurrency <= 0). The first failure cancels the rest.
func ChunkAudioConcurrent(
	ctx context.Context,
	audioPath string,
	chunkDuration time.Duration,
	outputDir string,
	concurrency int,
) ([]ChunkInfo, error) {
	if chunkDuration <= 0 {
		return nil, fmt.Errorf(
			"chunk duration must be positive, got %v",
			chunkDuration,
		)
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	totalDuration, err := GetDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get audio duration: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := filepath.Ext(audioPath)
	baseName := strings.TrimSuffix(filepath.Base(audioPath), ext)
	planned := planChunks(totalDuration, chunkDuration, outputDir, baseName, ext)

	var (
		mu     sync.Mutex
		chunks []ChunkInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, c := range planned {
		g.Go(func() error {
			stream := ffmpeg.Input(audioPath).Output(c.Path, ffmpeg.KwArgs{
				"ss": c.StartTime.Seconds(),
				"t":  (c.EndTime - c.StartTime).Seconds(),
				"c":  "copy",
			})
			if err := ffmpegbin.Run(gctx, stream); err != nil {
				return fmt.Errorf("failed to create chunk %d: %w", c.Index, err)
			}

			mu.Lock()
			chunks = append(chunks, c)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = CleanupChunks(chunks)
		return nil, err
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})

	return chunks, nil
}

var (
	videoExts = map[string]bool{
		".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
		".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
		".mpeg": true, ".mpg": true, ".3gp": true,
	}
	audioExts = map[string]bool{
		".mp3": true, ".wav": true, ".aac": true, ".flac": true,
		".ogg": true, ".m4a": true, ".wma": true, ".aiff": true,
	}
)

func IsVideoFile(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}

func IsAudioFile(path string) bool {
	return audioExts[strings.ToLower(filepath.Ext(path))]
}

func IsMediaFile(path string) bool {
	return IsAudioFile(path) || IsVideoFile(path)
}

// removes all chunk files
func CleanupChunks(chunks []ChunkInfo) error {
	var lastErr error
	for _, chunk := range chunks {
		if err := os.Remove(chunk.Path); err != nil && !os.IsNotExist(err) {
			lastErr = err
		}
	}
	return lastErr
}
