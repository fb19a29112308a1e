package transcribe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestExtractTranscriptSegments(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantCount int
		wantText  string
		wantErr   bool
	}{
		{
			name:      "plain array",
			input:     `[{"start": 0.0, "end": 2.5, "text": "Hello world"}, {"start": 2.5, "end": 5.0, "text": "How are you"}]`,
			wantCount: 2,
			wantText:  "Hello world",
		},
		{
			name: "prose around the array",
			input: `Here is the JSON transcript:
			[{"start": 1.0, "end": 3.0, "text": "Test segment"}]
			I hope this helps!`,
			wantCount: 1,
			wantText:  "Test segment",
		},
		{
			name:      "segments key",
			input:     `{"segments": [{"start": 0.0, "end": 2.0, "text": "Wrapped"}]}`,
			wantCount: 1,
			wantText:  "Wrapped",
		},
		{
			name:      "transcript key",
			input:     `{"transcript": [{"start": 0.0, "end": 2.0, "text": "From transcript"}]}`,
			wantCount: 1,
		},
		{
			name:      "data key",
			input:     `{"data": [{"start": 0.0, "end": 2.0, "text": "From data"}]}`,
			wantCount: 1,
		},
		{
			name:      "unknown key",
			input:     `{"clips": [{"start": 0.0, "end": 2.0, "text": "From unknown key"}]}`,
			wantCount: 1,
			wantText:  "From unknown key",
		},
		{
			name:      "preferred key wins over others",
			input:     `{"alpha": [{"start": 0, "end": 1, "text": "alpha"}], "segments": [{"start": 0, "end": 1, "text": "preferred"}]}`,
			wantCount: 1,
			wantText:  "preferred",
		},
		{
			name: "unrelated object first",
			input: `{"status": "ok", "count": 5}
			[{"start": 0.0, "end": 2.0, "text": "Real transcript"}]`,
			wantCount: 1,
			wantText:  "Real transcript",
		},
		{
			name: "number array skipped",
			input: `[1, 2, 3]
			[{"start": 0.0, "end": 2.0, "text": "Actual transcript"}]`,
			wantCount: 1,
			wantText:  "Actual transcript",
		},
		{
			name:      "nested wrapper",
			input:     `{"response": {"segments": [{"start": 0.0, "end": 1.0, "text": "Nested"}]}}`,
			wantCount: 1,
			wantText:  "Nested",
		},
		{
			name:      "timestamps without text",
			input:     `[{"start": 1.0, "end": 2.0, "text": ""}]`,
			wantCount: 1,
		},
		{name: "empty array", input: `[]`, wantErr: true},
		{name: "no JSON", input: `This is just plain text.`, wantErr: true},
		{name: "truncated JSON", input: `[{"start": 0.0, "end": 2.0, "text": "incomplete"`, wantErr: true},
		{name: "all zero segment", input: `[{"start": 0, "end": 0, "text": ""}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := extractTranscriptSegments(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, segments, tt.wantCount)
			if tt.wantText != "" {
				assert.Equal(t, tt.wantText, segments[0].Text)
			}
		})
	}
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `[{"start": 0}]`, `[{"start": 0}]`},
		{"json fence", "```json\n[{\"start\": 0}]\n```", `[{"start": 0}]`},
		{"bare fence", "```\n[{\"start\": 0}]\n```", `[{"start": 0}]`},
		{"whitespace", "  \n\n```json\n[{\"start\": 0}]\n```\n\n  ", `[{"start": 0}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSONResponse(tt.input))
		})
	}
}

func TestValidateSegments(t *testing.T) {
	assert.False(t, validateSegments(nil))
	assert.False(t, validateSegments([]transcriptSegment{}))
	assert.False(t, validateSegments([]transcriptSegment{{}}))
	assert.True(t, validateSegments([]transcriptSegment{{Text: "hello"}}))
	assert.True(t, validateSegments([]transcriptSegment{{Start: 1}}))
	assert.True(t, validateSegments([]transcriptSegment{{End: 2}}))
	assert.True(t, validateSegments([]transcriptSegment{{}, {Start: 1, End: 2, Text: "valid"}}))
}

func TestParseTranscriptionResponse(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(
				"```json\n[{\"start\": 1.25, \"end\": 3.5, \"text\": \"  Welcome back  \"}]\n```",
				genai.RoleModel,
			),
		}},
	}

	segments, err := parseTranscriptionResponse(resp)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, 1250*time.Millisecond, segments[0].StartTime)
	assert.Equal(t, 3500*time.Millisecond, segments[0].EndTime)
	assert.Equal(t, "Welcome back", segments[0].Text)

	_, err = parseTranscriptionResponse(nil)
	assert.Error(t, err)

	_, err = parseTranscriptionResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{}},
	})
	assert.ErrorContains(t, err, "no text")
}

func TestBuildTranscriptionPrompt(t *testing.T) {
	g := &GeminiTranscriber{options: Options{
		Language:           "Spanish",
		TranscriptLanguage: "English",
		Prompt:             "Speaker is a chef.",
	}}
	p := g.buildTranscriptionPrompt()
	assert.Contains(t, p, "The audio is in Spanish.")
	assert.Contains(t, p, "Output the transcript in English.")
	assert.Contains(t, p, "Speaker is a chef.")

	native := (&GeminiTranscriber{options: Options{TranscriptLanguage: "native"}}).buildTranscriptionPrompt()
	assert.NotContains(t, native, "Output the transcript in")
}
