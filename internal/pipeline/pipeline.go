package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mgpai22/clipper/internal/logging"
	"github.com/mgpai22/clipper/internal/subtitle"
	"github.com/mgpai22/clipper/internal/video"
)

const HighlightFileName = "interesting_part.srt"

type Downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, outputPath string, opts video.ExtractAudioOptions) error
}

// Transcriber returns SRT text for the speech in an audio file.
type Transcriber interface {
	TranscribeSRT(ctx context.Context, audioPath string) ([]byte, error)
}

// HighlightSelector returns the raw SRT of the most interesting part of
// a transcript. Its output is untrusted.
type HighlightSelector interface {
	Select(ctx context.Context, transcript string, maxChars int) (string, error)
}

type Editor interface {
	Cut(ctx context.Context, videoPath, outputPath string, span subtitle.Span) error
	Resize(ctx context.Context, videoPath, outputPath string, width, height int, mode video.ResizeMode) error
	BurnSubtitles(ctx context.Context, videoPath, srtPath, outputPath string, style video.Style) error
}

type Deps struct {
	Downloader  Downloader
	Audio       AudioExtractor
	Transcriber Transcriber
	Highlighter HighlightSelector
	Editor      Editor
}

type Config struct {
	URL     string
	WorkDir string
	// RunID names the run directory under WorkDir. Reusing an id resumes a
	// run: stages whose output exists are skipped. Empty means a new id.
	RunID      string
	MaxChars   int
	Width      int
	Height     int
	ResizeMode video.ResizeMode
	Style      video.Style
	Logger     *zap.SugaredLogger
}

func DefaultConfig() Config {
	return Config{
		WorkDir:    "clipper-runs",
		MaxChars:   15,
		Width:      1080,
		Height:     1920,
		ResizeMode: video.ResizeStretch,
		Style:      video.DefaultStyle(),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return &subtitle.InvalidConfigError{Field: "url", Reason: "must not be empty"}
	}
	if c.WorkDir == "" {
		return &subtitle.InvalidConfigError{Field: "work dir", Reason: "must not be empty"}
	}
	if c.RunID != "" && (strings.ContainsAny(c.RunID, `/\`) || c.RunID == "." || c.RunID == "..") {
		return &subtitle.InvalidConfigError{Field: "run id", Reason: fmt.Sprintf("%q is not a plain directory name", c.RunID)}
	}
	if c.MaxChars <= 0 {
		return &subtitle.InvalidConfigError{Field: "max chars", Reason: fmt.Sprintf("must be positive, got %d", c.MaxChars)}
	}
	if c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0 {
		return &subtitle.InvalidConfigError{
			Field:  "size",
			Reason: fmt.Sprintf("%dx%d must be positive and even", c.Width, c.Height),
		}
	}
	if _, err := video.ParseResizeMode(string(c.ResizeMode)); err != nil {
		return &subtitle.InvalidConfigError{Field: "resize mode", Reason: err.Error()}
	}
	if err := c.Style.Validate(); err != nil {
		return &subtitle.InvalidConfigError{Field: "style", Reason: err.Error()}
	}
	return nil
}

func (d Deps) validate() error {
	switch {
	case d.Downloader == nil:
		return fmt.Errorf("pipeline: downloader is required")
	case d.Audio == nil:
		return fmt.Errorf("pipeline: audio extractor is required")
	case d.Transcriber == nil:
		return fmt.Errorf("pipeline: transcriber is required")
	case d.Highlighter == nil:
		return fmt.Errorf("pipeline: highlight selector is required")
	case d.Editor == nil:
		return fmt.Errorf("pipeline: editor is required")
	}
	return nil
}

// Result lists every artifact a run produced.
type Result struct {
	RunID          string
	Dir            string
	VideoPath      string
	AudioPath      string
	TranscriptPath string
	HighlightPath  string // equalized highlight, source timeline
	ClipSRTPath    string // highlight re-timed onto the cut clip
	CutPath        string
	ResizedPath    string
	OutputPath     string
	Span           subtitle.Span
}

type dirs struct {
	video, audio, subtitles, output string
}

func makeDirs(root string) (dirs, error) {
	d := dirs{
		video:     filepath.Join(root, "video"),
		audio:     filepath.Join(root, "audio"),
		subtitles: filepath.Join(root, "subtitles"),
		output:    filepath.Join(root, "output"),
	}
	for _, p := range []string{d.video, d.audio, d.subtitles, d.output} {
		if err := os.MkdirAll(p, 0755); err != nil {
			return dirs{}, fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return d, nil
}

// Run downloads the video, transcribes it, asks for a highlight and renders
// the highlight as a vertical clip with burned-in captions. Collaborator
// errors are returned unchanged.
func Run(ctx context.Context, cfg Config, deps Deps) (*Result, error) {
	if cfg.ResizeMode == "" {
		cfg.ResizeMode = video.ResizeStretch
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}

	log := logging.OrNop(cfg.Logger)

	eq, err := subtitle.NewEqualizer(cfg.MaxChars, log)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: cfg.RunID}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	res.Dir = filepath.Join(cfg.WorkDir, res.RunID)
	log = log.With("run", res.RunID)

	d, err := makeDirs(res.Dir)
	if err != nil {
		return nil, err
	}

	log.Infow("Downloading video", "url", cfg.URL)
	res.VideoPath, err = deps.Downloader.Download(ctx, cfg.URL, d.video)
	if err != nil {
		return nil, err
	}
	if err := requireFile(res.VideoPath, "downloaded video"); err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(res.VideoPath), filepath.Ext(res.VideoPath))

	res.AudioPath = filepath.Join(d.audio, base+".mp3")
	if exists(res.AudioPath) {
		log.Infow("Audio already extracted, skipping", "path", res.AudioPath)
	} else {
		log.Infow("Extracting audio", "video", res.VideoPath)
		opts := video.ExtractAudioOptions{Format: "mp3", SampleRate: 16000, Channels: 1, Bitrate: "64k"}
		if err := deps.Audio.ExtractAudio(ctx, res.VideoPath, res.AudioPath, opts); err != nil {
			return nil, err
		}
		if err := requireFile(res.AudioPath, "extracted audio"); err != nil {
			return nil, err
		}
	}

	res.TranscriptPath = filepath.Join(d.subtitles, base+".srt")
	transcript, err := transcriptStage(ctx, deps.Transcriber, eq, res.AudioPath, res.TranscriptPath, log)
	if err != nil {
		return nil, err
	}

	res.HighlightPath = filepath.Join(d.output, HighlightFileName)
	highlight, err := highlightStage(ctx, deps.Highlighter, eq, transcript, cfg.MaxChars, res.HighlightPath, log)
	if err != nil {
		return nil, err
	}

	clip, err := Render(ctx, deps.Editor, res.VideoPath, highlight, d.output, base, RenderOptions{
		Width:      cfg.Width,
		Height:     cfg.Height,
		ResizeMode: cfg.ResizeMode,
		Style:      cfg.Style,
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}
	res.Span = clip.Span
	res.ClipSRTPath = clip.SRTPath
	res.CutPath = clip.CutPath
	res.ResizedPath = clip.ResizedPath
	res.OutputPath = clip.OutputPath

	log.Infow("Clip ready", "output", res.OutputPath, "duration", res.Span.Duration())
	return res, nil
}

// RenderOptions controls how a highlight becomes a clip.
type RenderOptions struct {
	Width      int
	Height     int
	ResizeMode video.ResizeMode
	Style      video.Style
	Logger     *zap.SugaredLogger
}

// Clip lists the files Render produced.
type Clip struct {
	Span        subtitle.Span
	SRTPath     string
	CutPath     string
	ResizedPath string
	OutputPath  string
}

// Render cuts the span of highlight out of videoPath, moves the captions
// onto the clip's timeline, resizes the clip and burns the captions in.
// Files go to dir and are named after base. Steps whose output exists are
// skipped.
func Render(
	ctx context.Context,
	ed Editor,
	videoPath string,
	highlight *subtitle.Subtitle,
	dir, base string,
	opts RenderOptions,
) (*Clip, error) {
	log := logging.OrNop(opts.Logger)
	if opts.ResizeMode == "" {
		opts.ResizeMode = video.ResizeStretch
	}

	span, err := subtitle.ExtractSpan(highlight)
	if err != nil {
		return nil, err
	}
	log.Infow("Highlight selected", "span", span.String(), "entries", len(highlight.Entries))

	clipSub, err := highlight.Shift(-span.Start)
	if err != nil {
		return nil, err
	}
	c := &Clip{
		Span:        span,
		SRTPath:     filepath.Join(dir, base+"_clip.srt"),
		CutPath:     filepath.Join(dir, base+"_cut.mp4"),
		ResizedPath: filepath.Join(dir, base+"_resized.mp4"),
		OutputPath:  filepath.Join(dir, base+"_final.mp4"),
	}
	if err := (&subtitle.SRTWriter{}).Write(clipSub, c.SRTPath); err != nil {
		return nil, fmt.Errorf("failed to write clip subtitles: %w", err)
	}

	if err := stage(log, "cut", c.CutPath, func() error {
		return ed.Cut(ctx, videoPath, c.CutPath, span)
	}); err != nil {
		return nil, err
	}

	if err := stage(log, "resize", c.ResizedPath, func() error {
		return ed.Resize(ctx, c.CutPath, c.ResizedPath, opts.Width, opts.Height, opts.ResizeMode)
	}); err != nil {
		return nil, err
	}

	if err := stage(log, "burn subtitles", c.OutputPath, func() error {
		return ed.BurnSubtitles(ctx, c.ResizedPath, c.SRTPath, c.OutputPath, opts.Style)
	}); err != nil {
		return nil, err
	}
	return c, nil
}

// transcriptStage produces the equalized transcript of the whole video,
// reusing one from an earlier run when present.
func transcriptStage(
	ctx context.Context,
	t Transcriber,
	eq *subtitle.Equalizer,
	audioPath, path string,
	log *zap.SugaredLogger,
) (*subtitle.Subtitle, error) {
	if exists(path) {
		log.Infow("Transcript already exists, skipping", "path", path)
		sub, err := subtitle.ReadSRTFile(path)
		if err != nil {
			return nil, err
		}
		// the earlier run may have used another line budget
		return eq.Equalize(sub)
	}

	log.Infow("Transcribing audio", "audio", audioPath)
	raw, err := t.TranscribeSRT(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	sub, err := subtitle.ParseSRTString(string(raw))
	if err != nil {
		return nil, fmt.Errorf("transcript is not valid SRT: %w", err)
	}
	sub, err = eq.Equalize(sub)
	if err != nil {
		return nil, err
	}
	if err := (&subtitle.SRTWriter{}).Write(sub, path); err != nil {
		return nil, fmt.Errorf("failed to write transcript: %w", err)
	}
	log.Infow("Transcript written", "path", path, "entries", len(sub.Entries))
	return sub, nil
}

// highlightStage asks the model for a highlight, validates the answer as
// SRT and equalizes it.
func highlightStage(
	ctx context.Context,
	h HighlightSelector,
	eq *subtitle.Equalizer,
	transcript *subtitle.Subtitle,
	maxChars int,
	path string,
	log *zap.SugaredLogger,
) (*subtitle.Subtitle, error) {
	if exists(path) {
		log.Infow("Highlight already selected, skipping", "path", path)
		return subtitle.ReadSRTFile(path)
	}

	raw, err := h.Select(ctx, string(subtitle.MarshalSRT(transcript)), maxChars)
	if err != nil {
		return nil, err
	}

	sub, err := subtitle.ParseSRTString(raw)
	if err != nil {
		return nil, fmt.Errorf("highlight is not valid SRT: %w", err)
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	sub, err = eq.Equalize(sub)
	if err != nil {
		return nil, err
	}
	if len(sub.Entries) == 0 {
		return nil, &subtitle.EmptySequenceError{Op: "highlight"}
	}
	if score := Agreement(transcript, sub); score < minAgreement {
		log.Warnw("Highlight text differs from the transcript", "agreement", score)
	}

	if err := (&subtitle.SRTWriter{}).Write(sub, path); err != nil {
		return nil, fmt.Errorf("failed to write highlight: %w", err)
	}
	return sub, nil
}

// stage runs fn unless output already exists, then checks fn produced it.
func stage(log *zap.SugaredLogger, name, output string, fn func() error) error {
	if exists(output) {
		log.Infow("Output exists, skipping", "stage", name, "path", output)
		return nil
	}
	log.Infow("Running stage", "stage", name)
	if err := fn(); err != nil {
		return err
	}
	return requireFile(output, name+" output")
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

func requireFile(path, what string) error {
	if !exists(path) {
		return fmt.Errorf("%s missing: %s", what, path)
	}
	return nil
}
