package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/mgpai22/clipper/internal/audio"
	"github.com/mgpai22/clipper/internal/logging"
	"github.com/mgpai22/clipper/internal/subtitle"
)

// implements Transcriber interface using Google Gemini
type GeminiTranscriber struct {
	client  *genai.Client
	model   string
	options Options
	logger  *zap.SugaredLogger
}

// segment from Gemini's JSON response
type transcriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func NewGeminiTranscriber(ctx context.Context, apiKey string, opts Options) (*GeminiTranscriber, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, &Error{Provider: ProviderGemini, Op: "client setup", Err: err}
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiTranscriber{
		client:  client,
		model:   model,
		options: opts,
		logger:  logging.OrNop(opts.Logger),
	}, nil
}

// transcribes single audio file
func (t *GeminiTranscriber) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	segments, err := t.transcribeFile(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	duration, err := audio.GetDuration(ctx, audioPath)
	if err != nil {
		t.logger.Debugw("Could not probe audio duration", "path", audioPath, "error", err)
	}

	return &Result{
		Segments: segments,
		Language: t.options.Language,
		Duration: duration,
	}, nil
}

// transcribes multiple chunks in parallel
func (t *GeminiTranscriber) TranscribeWithChunks(ctx context.Context, chunks []audio.ChunkInfo, concurrency int) (*Result, error) {
	t.logger.Infow("Transcribing chunks", "provider", ProviderGemini, "chunks", len(chunks), "concurrency", concurrency)

	segments, total, err := transcribeChunks(ctx, chunks, concurrency,
		func(ctx context.Context, chunk audio.ChunkInfo) ([]subtitle.Segment, error) {
			return t.transcribeFile(ctx, chunk.Path)
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

func (t *GeminiTranscriber) transcribeFile(ctx context.Context, audioPath string) ([]subtitle.Segment, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	uploadedFile, err := t.client.Files.UploadFromPath(ctx, audioPath, nil)
	if err != nil {
		return nil, &Error{Provider: ProviderGemini, Op: "upload", Err: err}
	}

	defer func() {
		// the upload expires on its own, a failed delete is not fatal
		if _, err := t.client.Files.Delete(context.WithoutCancel(ctx), uploadedFile.Name, nil); err != nil {
			t.logger.Debugw("Failed to delete uploaded audio", "file", uploadedFile.Name, "error", err)
		}
	}()

	parts := []*genai.Part{
		genai.NewPartFromText(t.buildTranscriptionPrompt()),
		genai.NewPartFromURI(uploadedFile.URI, uploadedFile.MIMEType),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	t.logger.Debugw("Requesting transcript", "model", t.model, "path", audioPath)

	result, err := t.client.Models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return nil, &Error{Provider: ProviderGemini, Op: "request", Err: err}
	}

	segments, err := parseTranscriptionResponse(result)
	if err != nil {
		return nil, &Error{Provider: ProviderGemini, Op: "parse", Err: err}
	}
	return segments, nil
}

// creates the prompt for transcription
func (t *GeminiTranscriber) buildTranscriptionPrompt() string {
	var sb strings.Builder

	sb.WriteString("Generate a detailed transcript of this audio. ")
	sb.WriteString("For each sentence or phrase, provide the start timestamp, end timestamp, and the exact text spoken. ")
	sb.WriteString("Format your response as a JSON array with objects containing 'start', 'end', and 'text' fields, ")
	sb.WriteString("where 'start' and 'end' are timestamps in seconds (as numbers). ")

	if t.options.Language != "" {
		fmt.Fprintf(&sb, "The audio is in %s. ", t.options.Language)
	}

	if t.options.TranscriptLanguage != "" && t.options.TranscriptLanguage != "native" {
		fmt.Fprintf(&sb, "Output the transcript in %s. ", t.options.TranscriptLanguage)
	}

	if t.options.Prompt != "" {
		sb.WriteString(t.options.Prompt)
		sb.WriteString(" ")
	}

	sb.WriteString("Return ONLY the JSON array, no other text or markdown formatting.")

	return sb.String()
}

// parses Gemini's response into segments
func parseTranscriptionResponse(result *genai.GenerateContentResponse) ([]subtitle.Segment, error) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var responseText strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			responseText.WriteString(part.Text)
		}
	}

	if responseText.Len() == 0 {
		return nil, fmt.Errorf("no text in Gemini response")
	}

	transcriptSegments, err := extractTranscriptSegments(cleanJSONResponse(responseText.String()))
	if err != nil {
		return nil, err
	}

	segments := make([]subtitle.Segment, len(transcriptSegments))
	for i, ts := range transcriptSegments {
		segments[i] = subtitle.Segment{
			StartTime: time.Duration(ts.Start * float64(time.Second)),
			EndTime:   time.Duration(ts.End * float64(time.Second)),
			Text:      strings.TrimSpace(ts.Text),
		}
	}
	return segments, nil
}

// wrapper keys models like to put the transcript under
var preferredKeys = []string{"segments", "transcript", "data"}

const maxWrapperDepth = 4

// extractTranscriptSegments finds the first JSON value in s that holds
// transcript segments. Models often add prose around the JSON or wrap the
// array in an object, so every '[' and '{' is tried as a starting point.
func extractTranscriptSegments(s string) ([]transcriptSegment, error) {
	var lastErr error
	for i := 0; i < len(s); i++ {
		if s[i] != '[' && s[i] != '{' {
			continue
		}

		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&raw); err != nil {
			lastErr = err
			continue
		}
		if segments, ok := segmentsFromJSON(raw, 0); ok {
			return segments, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("no transcript segments in response: %w (response: %s)", lastErr, truncateString(s, 200))
	}
	return nil, fmt.Errorf("no transcript segments in response (response: %s)", truncateString(s, 200))
}

func segmentsFromJSON(raw json.RawMessage, depth int) ([]transcriptSegment, bool) {
	if depth > maxWrapperDepth {
		return nil, false
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, false
	}

	switch trimmed[0] {
	case '[':
		var segments []transcriptSegment
		if err := json.Unmarshal(raw, &segments); err != nil {
			return nil, false
		}
		return segments, validateSegments(segments)

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, false
		}
		for _, key := range preferredKeys {
			if v, ok := obj[key]; ok {
				if segments, ok := segmentsFromJSON(v, depth+1); ok {
					return segments, true
				}
			}
		}

		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if segments, ok := segmentsFromJSON(obj[k], depth+1); ok {
				return segments, true
			}
		}
	}
	return nil, false
}

// reports whether at least one segment carries data
func validateSegments(segments []transcriptSegment) bool {
	for _, s := range segments {
		if s.Start != 0 || s.End != 0 || s.Text != "" {
			return true
		}
	}
	return false
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*")

// removes markdown formatting from the response
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonBlockRegex.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
