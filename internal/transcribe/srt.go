package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mgpai22/clipper/internal/audio"
	"github.com/mgpai22/clipper/internal/logging"
	"github.com/mgpai22/clipper/internal/subtitle"
)

const (
	DefaultChunkDuration = 10 * time.Minute
	DefaultConcurrency   = 3
)

// SRTTranscriber turns an audio file into SRT text. Long audio is split
// into chunks which are transcribed concurrently when the backend supports
// it.
type SRTTranscriber struct {
	Transcriber   Transcriber
	Generator     subtitle.Generator
	WorkDir       string // chunk files go under WorkDir/chunks
	ChunkDuration time.Duration
	Concurrency   int

	logger   *zap.SugaredLogger
	duration func(ctx context.Context, path string) (time.Duration, error)
	chunk    func(ctx context.Context, path string, d time.Duration, dir string) ([]audio.ChunkInfo, error)
}

func NewSRTTranscriber(t Transcriber, workDir string, logger *zap.SugaredLogger) *SRTTranscriber {
	return &SRTTranscriber{
		Transcriber:   t,
		Generator:     subtitle.NewDefaultGenerator(),
		WorkDir:       workDir,
		ChunkDuration: DefaultChunkDuration,
		Concurrency:   DefaultConcurrency,
		logger:        logging.OrNop(logger),
		duration:      audio.GetDuration,
		chunk:         audio.ChunkAudio,
	}
}

// TranscribeSRT returns the SRT rendering of the speech in audioPath.
// A transcript without any segments is an error.
func (s *SRTTranscriber) TranscribeSRT(ctx context.Context, audioPath string) ([]byte, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, &Error{Op: "input", Err: err}
	}

	result, err := s.transcribe(ctx, audioPath)
	if err != nil {
		var te *Error
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &Error{Op: "transcribe", Err: err}
	}
	if len(result.Segments) == 0 {
		return nil, &Error{Op: "transcribe", Err: fmt.Errorf("no speech segments in %s", audioPath)}
	}

	gen := s.Generator
	if gen == nil {
		gen = subtitle.NewDefaultGenerator()
	}
	sub, err := gen.Generate(result.Segments)
	if err != nil {
		return nil, &Error{Op: "generate", Err: err}
	}
	if len(sub.Entries) == 0 {
		return nil, &Error{Op: "generate", Err: fmt.Errorf("transcript of %s has no text", audioPath)}
	}

	s.logger.Infow("Transcription complete",
		"segments", len(result.Segments),
		"entries", len(sub.Entries),
		"duration", result.Duration,
	)
	return subtitle.MarshalSRT(sub), nil
}

func (s *SRTTranscriber) transcribe(ctx context.Context, audioPath string) (*Result, error) {
	ct, concurrent := s.Transcriber.(ConcurrentTranscriber)
	if !concurrent || s.ChunkDuration <= 0 {
		return s.Transcriber.Transcribe(ctx, audioPath)
	}

	total, err := s.duration(ctx, audioPath)
	if err != nil {
		s.logger.Warnw("Could not determine audio duration, transcribing in one piece", "error", err)
		return s.Transcriber.Transcribe(ctx, audioPath)
	}
	if total <= s.ChunkDuration {
		return s.Transcriber.Transcribe(ctx, audioPath)
	}

	dir := filepath.Join(s.WorkDir, "chunks")
	if s.WorkDir == "" {
		dir = filepath.Join(filepath.Dir(audioPath), "chunks")
	}

	s.logger.Infow("Splitting audio", "duration", total, "chunkDuration", s.ChunkDuration)
	chunks, err := s.chunk(ctx, audioPath, s.ChunkDuration, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk audio: %w", err)
	}
	defer func() {
		if err := audio.CleanupChunks(chunks); err != nil {
			s.logger.Debugw("Failed to remove audio chunks", "error", err)
		}
	}()

	return ct.TranscribeWithChunks(ctx, chunks, s.Concurrency)
}
