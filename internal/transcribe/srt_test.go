package transcribe

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgpai22/clipper/internal/audio"
	"github.com/mgpai22/clipper/internal/subtitle"
)

type fakeTranscriber struct {
	mu       sync.Mutex
	segments []subtitle.Segment
	err      error
	calls    []string
	chunked  int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, audioPath)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Segments: f.segments}, nil
}

func (f *fakeTranscriber) TranscribeWithChunks(ctx context.Context, chunks []audio.ChunkInfo, concurrency int) (*Result, error) {
	f.chunked = len(chunks)
	segments, total, err := transcribeChunks(ctx, chunks, concurrency,
		func(ctx context.Context, chunk audio.ChunkInfo) ([]subtitle.Segment, error) {
			res, err := f.Transcribe(ctx, chunk.Path)
			if err != nil {
				return nil, err
			}
			return res.Segments, nil
		})
	if err != nil {
		return nil, err
	}
	return &Result{Segments: segments, Duration: total}, nil
}

// plain transcriber without chunk support
type singleTranscriber struct{ f *fakeTranscriber }

func (s *singleTranscriber) Transcribe(ctx context.Context, p string) (*Result, error) {
	return s.f.Transcribe(ctx, p)
}

func writeAudio(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "audio.mp3")
	require.NoError(t, os.WriteFile(p, []byte("mp3"), 0644))
	return p
}

func newTestSRTTranscriber(tr Transcriber, total time.Duration) *SRTTranscriber {
	s := NewSRTTranscriber(tr, "", nil)
	s.duration = func(context.Context, string) (time.Duration, error) { return total, nil }
	s.chunk = func(_ context.Context, path string, d time.Duration, dir string) ([]audio.ChunkInfo, error) {
		var chunks []audio.ChunkInfo
		for i := 0; time.Duration(i)*d < total; i++ {
			end := min(time.Duration(i+1)*d, total)
			chunks = append(chunks, audio.ChunkInfo{
				Path:      filepath.Join(dir, "chunk"+string(rune('a'+i))),
				Index:     i,
				StartTime: time.Duration(i) * d,
				EndTime:   end,
			})
		}
		return chunks, nil
	}
	return s
}

func TestTranscribeSRTShortAudio(t *testing.T) {
	tr := &fakeTranscriber{segments: []subtitle.Segment{
		{StartTime: 0, EndTime: 2 * time.Second, Text: "hello world"},
		{StartTime: 2 * time.Second, EndTime: 4 * time.Second, Text: "second line"},
	}}
	s := newTestSRTTranscriber(tr, time.Minute)

	out, err := s.TranscribeSRT(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Zero(t, tr.chunked)

	sub, err := subtitle.ParseSRT(bytes.NewReader(out))
	require.NoError(t, err)
	require.Len(t, sub.Entries, 2)
	assert.Equal(t, "hello world", sub.Entries[0].Text())
	assert.Equal(t, 4*time.Second, sub.Entries[1].EndTime)
}

func TestTranscribeSRTChunksLongAudio(t *testing.T) {
	tr := &fakeTranscriber{segments: []subtitle.Segment{
		{StartTime: time.Second, EndTime: 3 * time.Second, Text: "chunk speech"},
	}}
	s := newTestSRTTranscriber(tr, 25*time.Minute)

	out, err := s.TranscribeSRT(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, 3, tr.chunked)

	sub, err := subtitle.ParseSRT(bytes.NewReader(out))
	require.NoError(t, err)
	require.Len(t, sub.Entries, 3)
	assert.Equal(t, time.Second, sub.Entries[0].StartTime)
	assert.Equal(t, 10*time.Minute+time.Second, sub.Entries[1].StartTime)
	assert.Equal(t, 20*time.Minute+3*time.Second, sub.Entries[2].EndTime)
}

func TestTranscribeSRTNonConcurrentBackend(t *testing.T) {
	f := &fakeTranscriber{segments: []subtitle.Segment{
		{StartTime: 0, EndTime: time.Second, Text: "one piece"},
	}}
	s := newTestSRTTranscriber(&singleTranscriber{f}, time.Hour)

	_, err := s.TranscribeSRT(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Len(t, f.calls, 1)
	assert.Zero(t, f.chunked)
}

func TestTranscribeSRTErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing audio", func(t *testing.T) {
		s := newTestSRTTranscriber(&fakeTranscriber{}, time.Minute)
		_, err := s.TranscribeSRT(ctx, filepath.Join(t.TempDir(), "none.mp3"))
		var te *Error
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "input", te.Op)
	})

	t.Run("backend failure", func(t *testing.T) {
		boom := errors.New("quota exceeded")
		s := newTestSRTTranscriber(&fakeTranscriber{err: boom}, time.Minute)
		_, err := s.TranscribeSRT(ctx, writeAudio(t))
		var te *Error
		require.ErrorAs(t, err, &te)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("provider error kept", func(t *testing.T) {
		pe := &Error{Provider: ProviderGemini, Op: "upload", Err: errors.New("denied")}
		s := newTestSRTTranscriber(&fakeTranscriber{err: pe}, time.Minute)
		_, err := s.TranscribeSRT(ctx, writeAudio(t))
		assert.Same(t, pe, err)
		assert.EqualError(t, err, "gemini transcription upload failed: denied")
	})

	t.Run("empty transcript", func(t *testing.T) {
		s := newTestSRTTranscriber(&fakeTranscriber{}, time.Minute)
		_, err := s.TranscribeSRT(ctx, writeAudio(t))
		assert.ErrorContains(t, err, "no speech segments")
	})

	t.Run("chunk failure cancels", func(t *testing.T) {
		s := newTestSRTTranscriber(&fakeTranscriber{err: errors.New("bad chunk")}, 30*time.Minute)
		_, err := s.TranscribeSRT(ctx, writeAudio(t))
		assert.ErrorContains(t, err, "bad chunk")
	})
}

func TestShiftSegments(t *testing.T) {
	in := []subtitle.Segment{{StartTime: time.Second, EndTime: 2 * time.Second, Text: "a"}}
	out := shiftSegments(in, time.Minute)
	assert.Equal(t, time.Minute+time.Second, out[0].StartTime)
	assert.Equal(t, time.Minute+2*time.Second, out[0].EndTime)
	assert.Equal(t, time.Second, in[0].StartTime, "input must not change")
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderGemini, p)

	p, err = ParseProvider("openai")
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, p)

	_, err = ParseProvider("whisper")
	assert.Error(t, err)
}
