package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/mgpai22/clipper/internal/audio"
	"github.com/mgpai22/clipper/internal/logging"
	"github.com/mgpai22/clipper/internal/subtitle"
)

// implements Transcriber interface using OpenAI Audio API
type OpenAITranscriber struct {
	client  openai.Client
	model   string
	options Options
	logger  *zap.SugaredLogger
}

type whisperSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// verbose_json response body
type whisperVerboseResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

func NewOpenAITranscriber(
	ctx context.Context,
	apiKey string,
	opts Options,
) (*OpenAITranscriber, error) {
	if apiKey == "" {
		return nil, &Error{Provider: ProviderOpenAI, Op: "client setup", Err: fmt.Errorf("API key is required")}
	}

	model := opts.Model
	if model == "" {
		model = "whisper-1"
	}

	return &OpenAITranscriber{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		options: opts,
		logger:  logging.OrNop(opts.Logger),
	}, nil
}

func (t *OpenAITranscriber) Transcribe(
	ctx context.Context,
	audioPath string,
) (*Result, error) {
	duration, err := audio.GetDuration(ctx, audioPath)
	if err != nil {
		t.logger.Debugw("Could not probe audio duration", "path", audioPath, "error", err)
	}

	segments, err := t.transcribeFile(ctx, audioPath, duration)
	if err != nil {
		return nil, err
	}

	lang := t.options.Language
	if t.shouldUseTranslation() {
		lang = "en"
	}
	return &Result{
		Segments: segments,
		Language: lang,
		Duration: duration,
	}, nil
}

func (t *OpenAITranscriber) TranscribeWithChunks(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	concurrency int,
) (*Result, error) {
	t.logger.Infow("Transcribing chunks", "provider", ProviderOpenAI, "chunks", len(chunks), "concurrency", concurrency)

	segments, total, err := transcribeChunks(ctx, chunks, concurrency,
		func(ctx context.Context, chunk audio.ChunkInfo) ([]subtitle.Segment, error) {
			return t.transcribeFile(ctx, chunk.Path, chunk.EndTime-chunk.StartTime)
		})
	if err != nil {
		return nil, err
	}

	return &Result{
		Segments: segments,
		Language: t.options.Language,
		Duration: total,
	}, nil
}

// whisper can only translate into English, any other output language is
// handled by transcribing natively
func (t *OpenAITranscriber) shouldUseTranslation() bool {
	lang := strings.ToLower(strings.TrimSpace(t.options.TranscriptLanguage))
	return lang == "english" || lang == "en"
}

func (t *OpenAITranscriber) transcribeFile(
	ctx context.Context,
	audioPath string,
	duration time.Duration,
) ([]subtitle.Segment, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audio file not found: %s", audioPath)
		}
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var rawJSON, text string
	if t.shouldUseTranslation() {
		params := openai.AudioTranslationNewParams{
			File:           file,
			Model:          openai.AudioModel(t.model),
			ResponseFormat: openai.AudioTranslationNewParamsResponseFormatVerboseJSON,
		}
		if t.options.Prompt != "" {
			params.Prompt = openai.String(t.options.Prompt)
		}

		resp, err := t.client.Audio.Translations.New(ctx, params)
		if err != nil {
			return nil, &Error{Provider: ProviderOpenAI, Op: "translation", Err: err}
		}
		rawJSON, text = resp.RawJSON(), resp.Text
	} else {
		params := openai.AudioTranscriptionNewParams{
			File:                   file,
			Model:                  openai.AudioModel(t.model),
			ResponseFormat:         openai.AudioResponseFormatVerboseJSON,
			TimestampGranularities: []string{"segment"},
		}
		if t.options.Language != "" {
			params.Language = openai.String(t.options.Language)
		}
		if t.options.Prompt != "" {
			params.Prompt = openai.String(t.options.Prompt)
		}

		resp, err := t.client.Audio.Transcriptions.New(ctx, params)
		if err != nil {
			return nil, &Error{Provider: ProviderOpenAI, Op: "request", Err: err}
		}
		rawJSON, text = resp.RawJSON(), resp.Text
	}

	segments, err := t.parseVerboseJSONResponse(rawJSON, duration)
	if err != nil {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, &Error{Provider: ProviderOpenAI, Op: "parse", Err: err}
		}
		t.logger.Warnw("No timed segments in response, using a single segment", "path", audioPath, "error", err)
		segments = []subtitle.Segment{{StartTime: 0, EndTime: duration, Text: text}}
	}
	return segments, nil
}

func (t *OpenAITranscriber) parseVerboseJSONResponse(
	rawJSON string,
	fallbackDuration time.Duration,
) ([]subtitle.Segment, error) {
	if rawJSON == "" {
		return nil, fmt.Errorf("empty response")
	}

	var verboseResp whisperVerboseResponse
	if err := json.Unmarshal([]byte(rawJSON), &verboseResp); err != nil {
		return nil, fmt.Errorf("failed to parse verbose_json response: %w", err)
	}

	if len(verboseResp.Segments) == 0 {
		if verboseResp.Text == "" {
			return nil, fmt.Errorf("no segments or text in response")
		}
		dur := fallbackDuration
		if verboseResp.Duration > 0 {
			dur = time.Duration(verboseResp.Duration * float64(time.Second))
		}
		return []subtitle.Segment{{
			StartTime: 0,
			EndTime:   dur,
			Text:      strings.TrimSpace(verboseResp.Text),
		}}, nil
	}

	segments := make([]subtitle.Segment, 0, len(verboseResp.Segments))
	for _, seg := range verboseResp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, subtitle.Segment{
			StartTime: time.Duration(seg.Start * float64(time.Second)),
			EndTime:   time.Duration(seg.End * float64(time.Second)),
			Text:      text,
		})
	}

	return segments, nil
}
