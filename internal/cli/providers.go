package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

var providerEnv = map[string]string{
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"proxy":     "OPENAI_ACCESS_TOKEN",
}

// apiKey returns the flag value, or the provider's environment variable.
func apiKey(flagValue, provider string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	env, ok := providerEnv[provider]
	if !ok {
		return "", fmt.Errorf("unknown provider %q", provider)
	}
	if key := os.Getenv(env); key != "" {
		return key, nil
	}
	return "", fmt.Errorf(
		"API key is required: use --api-key flag or set %s environment variable",
		env,
	)
}

var (
	geminiModels = []string{
		"gemini-3-pro-preview",
		"gemini-3-flash-preview",
		"gemini-2.5-pro",
		"gemini-2.5-flash",
		"gemini-2.5-flash-lite",
	}
	openAIChatModels = []string{
		"o1", "o3-mini", "o1-pro", "o3",
		"gpt-5", "gpt-5-nano", "gpt-5-mini", "gpt-5-pro",
		"gpt-5.1", "gpt-5.2", "gpt-5.2-pro",
	}
	openAIAudioModels = []string{"whisper-1"}
	anthropicModels   = []string{
		"claude-haiku-4-5",
		"claude-sonnet-4-5",
		"claude-opus-4-5",
	}
)

// checkModel rejects models outside the known list for a provider unless
// override is set. An empty model means the provider default.
func checkModel(provider, model string, known []string, override bool) error {
	if model == "" || override || slices.Contains(known, model) {
		return nil
	}
	return fmt.Errorf(
		"unsupported %s model %q: valid models are %s (use --model-override to bypass)",
		provider, model, strings.Join(known, ", "),
	)
}

// whisper only translates into English, so an OpenAI transcript is either
// in the spoken language or in English
func isValidOpenAITranscriptLanguage(lang string) bool {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "", "native", "english", "en":
		return true
	}
	return false
}
