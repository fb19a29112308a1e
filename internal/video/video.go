package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"

	ffmpegbin "github.com/mgpai22/clipper/internal/ffmpeg"
	"github.com/mgpai22/clipper/internal/logging"
	"github.com/mgpai22/clipper/internal/subtitle"
)

// video file information
type Info struct {
	Path      string
	Duration  time.Duration
	Width     int
	Height    int
	FrameRate float64
	Codec     string
	HasAudio  bool
}

// Processor covers every ffmpeg operation the pipeline needs.
type Processor interface {
	ExtractAudio(ctx context.Context, videoPath, outputPath string, opts ExtractAudioOptions) error
	GetInfo(ctx context.Context, videoPath string) (*Info, error)
	Cut(ctx context.Context, videoPath, outputPath string, span subtitle.Span) error
	Resize(ctx context.Context, videoPath, outputPath string, width, height int, mode ResizeMode) error
	BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath string, style Style) error
}

// holds options for audio extraction
type ExtractAudioOptions struct {
	Format     string // wav, mp3, aac, flac
	SampleRate int
	Channels   int
	Bitrate    string // lossy formats only, e.g. "128k"
}

func DefaultExtractAudioOptions() ExtractAudioOptions {
	return ExtractAudioOptions{
		Format:     "wav",
		SampleRate: 16000,
		Channels:   1,
	}
}

func (o ExtractAudioOptions) kwargs() ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{
		"vn": "",
		"ar": o.SampleRate,
		"ac": o.Channels,
	}

	switch o.Format {
	case "mp3":
		kwargs["acodec"] = "libmp3lame"
	case "aac":
		kwargs["acodec"] = "aac"
	case "flac":
		kwargs["acodec"] = "flac"
	default:
		kwargs["acodec"] = "pcm_s16le"
	}
	if o.Bitrate != "" && (o.Format == "mp3" || o.Format == "aac") {
		kwargs["b:a"] = o.Bitrate
	}
	return kwargs
}

type ResizeMode string

const (
	// ResizeStretch scales straight to the target size, ignoring aspect.
	ResizeStretch ResizeMode = "stretch"
	// ResizeFill scales to cover the target and crops the overflow.
	ResizeFill ResizeMode = "fill"
)

func ParseResizeMode(s string) (ResizeMode, error) {
	switch m := ResizeMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ResizeStretch, ResizeFill:
		return m, nil
	case "":
		return ResizeStretch, nil
	default:
		return "", fmt.Errorf("unknown resize mode %q (want stretch or fill)", s)
	}
}

// shared output settings for re-encoded clips
func encodeArgs(extra ffmpeg.KwArgs) ffmpeg.KwArgs {
	kw := ffmpeg.KwArgs{
		"c:v":      "libx264",
		"preset":   "veryfast",
		"crf":      18,
		"pix_fmt":  "yuv420p",
		"c:a":      "aac",
		"b:a":      "192k",
		"movflags": "+faststart",
	}
	for k, v := range extra {
		kw[k] = v
	}
	return kw
}

// default implementation using ffmpeg
type DefaultProcessor struct {
	tempDir string
	logger  *zap.SugaredLogger
}

func NewProcessor(tempDir string, logger *zap.SugaredLogger) *DefaultProcessor {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &DefaultProcessor{
		tempDir: tempDir,
		logger:  logging.OrNop(logger),
	}
}

func (p *DefaultProcessor) ExtractAudio(
	ctx context.Context,
	videoPath, outputPath string,
	opts ExtractAudioOptions,
) error {
	if err := requireFile(videoPath, "video"); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	p.logger.Debugw("Extracting audio", "video", videoPath, "output", outputPath, "format", opts.Format)

	stream := ffmpeg.Input(videoPath).Output(outputPath, opts.kwargs())
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return fmt.Errorf("ffmpeg extraction failed: %w", err)
	}
	return nil
}

func (p *DefaultProcessor) GetInfo(
	ctx context.Context,
	videoPath string,
) (*Info, error) {
	probe, err := ffmpegbin.Probe(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Path:     videoPath,
		Duration: probe.Duration,
		HasAudio: probe.HasAudio(),
	}
	if v, ok := probe.VideoStream(); ok {
		info.Width = v.Width
		info.Height = v.Height
		info.FrameRate = v.FrameRate
		info.Codec = v.CodecName
	}
	return info, nil
}

// Cut re-encodes the [span.Start, span.End) part of the video so the clip
// starts on the requested frame rather than the nearest keyframe.
func (p *DefaultProcessor) Cut(
	ctx context.Context,
	videoPath, outputPath string,
	span subtitle.Span,
) error {
	if err := requireFile(videoPath, "video"); err != nil {
		return err
	}
	if span.End <= span.Start {
		return fmt.Errorf("invalid span %s", span)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	p.logger.Infow("Cutting video", "video", videoPath, "span", span.String())

	stream := ffmpeg.Input(videoPath, ffmpeg.KwArgs{
		"ss": fmtSeconds(span.Start),
		"to": fmtSeconds(span.End),
	}).Output(outputPath, encodeArgs(nil))
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return fmt.Errorf("ffmpeg cut failed: %w", err)
	}
	return nil
}

func resizeFilter(width, height int, mode ResizeMode) (string, error) {
	if width <= 0 || height <= 0 {
		return "", fmt.Errorf("invalid target size %dx%d", width, height)
	}
	// libx264 needs even dimensions
	if width%2 != 0 || height%2 != 0 {
		return "", fmt.Errorf("target size %dx%d must be even", width, height)
	}

	size := fmt.Sprintf("%d:%d", width, height)
	switch mode {
	case ResizeStretch, "":
		return "scale=" + size + ",setsar=1", nil
	case ResizeFill:
		return "scale=" + size + ":force_original_aspect_ratio=increase,crop=" + size + ",setsar=1", nil
	default:
		return "", fmt.Errorf("unknown resize mode %q", mode)
	}
}

func (p *DefaultProcessor) Resize(
	ctx context.Context,
	videoPath, outputPath string,
	width, height int,
	mode ResizeMode,
) error {
	if err := requireFile(videoPath, "video"); err != nil {
		return err
	}
	filter, err := resizeFilter(width, height, mode)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	p.logger.Infow("Resizing video", "video", videoPath, "width", width, "height", height, "mode", mode)

	stream := ffmpeg.Input(videoPath).Output(outputPath, encodeArgs(ffmpeg.KwArgs{"vf": filter}))
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return fmt.Errorf("ffmpeg resize failed: %w", err)
	}
	return nil
}

// BurnSubtitles renders the SRT captions into the picture. Captions are
// converted to an ASS file carrying the style, sized to the video frame.
func (p *DefaultProcessor) BurnSubtitles(
	ctx context.Context,
	videoPath, srtPath, outputPath string,
	style Style,
) error {
	if err := requireFile(videoPath, "video"); err != nil {
		return err
	}
	if err := requireFile(srtPath, "subtitle"); err != nil {
		return err
	}
	if err := style.Validate(); err != nil {
		return fmt.Errorf("invalid style: %w", err)
	}

	sub, err := subtitle.ReadSRTFile(srtPath)
	if err != nil {
		return err
	}

	info, err := p.GetInfo(ctx, videoPath)
	if err != nil {
		return err
	}

	fontsDir, fontName, err := style.fonts()
	if err != nil {
		return err
	}
	assStyle, err := style.assStyle(fontName, info.Width, info.Height)
	if err != nil {
		return err
	}

	assPath := filepath.Join(
		p.tempDir,
		strings.TrimSuffix(filepath.Base(srtPath), filepath.Ext(srtPath))+".ass",
	)
	writer := &subtitle.ASSWriter{Title: "Clipper Captions", Style: assStyle}
	if err := writer.Write(sub, assPath); err != nil {
		return fmt.Errorf("failed to write ASS captions: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	p.logger.Infow("Burning subtitles",
		"video", videoPath,
		"entries", len(sub.Entries),
		"font", fontName,
		"fontsDir", fontsDir,
	)

	stream := ffmpeg.Input(videoPath).
		Output(outputPath, encodeArgs(ffmpeg.KwArgs{"vf": subtitlesFilter(assPath, fontsDir)}))
	if err := ffmpegbin.Run(ctx, stream); err != nil {
		return fmt.Errorf("ffmpeg burn-in failed: %w", err)
	}
	return nil
}

func subtitlesFilter(assPath, fontsDir string) string {
	f := "subtitles=" + escapeFilterPath(assPath)
	if fontsDir != "" {
		f += ":fontsdir=" + escapeFilterPath(fontsDir)
	}
	return f
}

func requireFile(path, kind string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%s file not found: %s", kind, path)
	}
	return nil
}

func fmtSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// escapes a path for use inside an ffmpeg filter argument
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	p = strings.ReplaceAll(p, ",", "\\,")
	return p
}
