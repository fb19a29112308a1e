package transcribe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerboseJSONResponse(t *testing.T) {
	tr := &OpenAITranscriber{}

	tests := []struct {
		name      string
		rawJSON   string
		wantCount int
		wantErr   bool
	}{
		{
			name: "segments",
			rawJSON: `{"text": "Hello world. How are you?", "segments": [
				{"start": 0.0, "end": 1.5, "text": "Hello world."},
				{"start": 1.5, "end": 3.0, "text": "How are you?"}
			], "language": "en", "duration": 3.0}`,
			wantCount: 2,
		},
		{
			name:      "text only",
			rawJSON:   `{"text": "No segments here.", "segments": [], "duration": 2.5}`,
			wantCount: 1,
		},
		{
			name:      "null segments",
			rawJSON:   `{"text": "Text only.", "segments": null}`,
			wantCount: 1,
		},
		{
			name: "blank segments dropped",
			rawJSON: `{"text": "Hello", "segments": [
				{"start": 0.0, "end": 0.5, "text": ""},
				{"start": 0.5, "end": 1.5, "text": "Hello"},
				{"start": 1.5, "end": 2.0, "text": "   "}
			]}`,
			wantCount: 1,
		},
		{
			name: "extra whisper fields",
			rawJSON: `{"task": "transcribe", "language": "english", "duration": 8.47, "text": "x", "segments": [
				{"id": 0, "seek": 0, "start": 0.0, "end": 3.32, "text": "The stale smell of old beer lingers.", "tokens": [50364, 440], "avg_logprob": -0.28}
			]}`,
			wantCount: 1,
		},
		{name: "empty", rawJSON: "", wantErr: true},
		{name: "invalid", rawJSON: `{"text": "incomplete`, wantErr: true},
		{name: "nothing", rawJSON: `{"text": "", "segments": []}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := tr.parseVerboseJSONResponse(tt.rawJSON, 5*time.Second)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, segments, tt.wantCount)
			for _, seg := range segments {
				assert.NotEmpty(t, seg.Text)
			}
		})
	}
}

func TestParseVerboseJSONResponseTimestamps(t *testing.T) {
	tr := &OpenAITranscriber{}

	segments, err := tr.parseVerboseJSONResponse(`{"segments": [
		{"start": 1.5, "end": 3.0, "text": " Hello world. "},
		{"start": 3.0, "end": 5.5, "text": "Goodbye."}
	]}`, 10*time.Second)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, 1500*time.Millisecond, segments[0].StartTime)
	assert.Equal(t, 3*time.Second, segments[0].EndTime)
	assert.Equal(t, "Hello world.", segments[0].Text)
	assert.Equal(t, 5500*time.Millisecond, segments[1].EndTime)
}

func TestParseVerboseJSONResponseFallbackDuration(t *testing.T) {
	tr := &OpenAITranscriber{}

	segments, err := tr.parseVerboseJSONResponse(`{"text": "whole file", "duration": 10.5}`, 15*time.Second)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, time.Duration(0), segments[0].StartTime)
	assert.Equal(t, 10500*time.Millisecond, segments[0].EndTime)

	segments, err = tr.parseVerboseJSONResponse(`{"text": "no duration"}`, 15*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, segments[0].EndTime)
}

func TestShouldUseTranslation(t *testing.T) {
	for lang, want := range map[string]bool{
		"english":  true,
		"ENGLISH":  true,
		" en ":     true,
		"native":   false,
		"":         false,
		"spanish":  false,
		"japanese": false,
	} {
		tr := &OpenAITranscriber{options: Options{TranscriptLanguage: lang}}
		assert.Equal(t, want, tr.shouldUseTranslation(), "language %q", lang)
	}
}

func TestNewOpenAITranscriberRequiresKey(t *testing.T) {
	_, err := NewOpenAITranscriber(t.Context(), "", Options{})
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ProviderOpenAI, te.Provider)
}
