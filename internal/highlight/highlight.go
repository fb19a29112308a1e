package highlight

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mgpai22/clipper/internal/logging"
)

// MaxTranscriptChars bounds how much of the transcript goes into the prompt.
const MaxTranscriptChars = 20000

// Selector asks a language model for the most interesting part of a
// transcript. The answer is raw SRT text and must be validated by the caller.
type Selector interface {
	Select(ctx context.Context, transcript string, maxChars int) (string, error)
}

// highlight service provider
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	// ProviderProxy talks to a local chat backend over HTTP.
	ProviderProxy Provider = "proxy"
)

func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderProxy:
		return p, nil
	case "":
		return ProviderGemini, nil
	default:
		return "", fmt.Errorf("unsupported highlight provider %q", s)
	}
}

type Options struct {
	Model    string
	Prompt   string // extra instructions appended to the prompt
	ProxyURL string
	Timeout  time.Duration
	Logger   *zap.SugaredLogger
}

// Error is returned when the model query fails or yields nothing usable.
type Error struct {
	Provider Provider
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s highlight %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// completer sends one prompt and returns the model's text.
type completer interface {
	complete(ctx context.Context, prompt string) (string, error)
}

type selector struct {
	provider Provider
	backend  completer
	options  Options
	logger   *zap.SugaredLogger
}

// creates Selector based on provider. apiKey is the access token for the
// proxy provider.
func Factory(
	ctx context.Context,
	provider Provider,
	apiKey string,
	opts Options,
) (Selector, error) {
	if apiKey == "" {
		return nil, &Error{Provider: provider, Op: "setup", Err: fmt.Errorf("API key is required")}
	}

	var (
		backend completer
		err     error
	)
	switch provider {
	case ProviderGemini:
		backend, err = newGeminiBackend(ctx, apiKey, opts.Model)
	case ProviderOpenAI:
		backend = newOpenAIBackend(apiKey, opts.Model)
	case ProviderAnthropic:
		backend = newAnthropicBackend(apiKey, opts.Model)
	case ProviderProxy:
		backend, err = newProxyBackend(apiKey, opts.ProxyURL, opts.Timeout)
	default:
		return nil, fmt.Errorf("unsupported highlight provider: %s", provider)
	}
	if err != nil {
		return nil, &Error{Provider: provider, Op: "setup", Err: err}
	}

	return &selector{
		provider: provider,
		backend:  backend,
		options:  opts,
		logger:   logging.OrNop(opts.Logger),
	}, nil
}

func (s *selector) Select(ctx context.Context, transcript string, maxChars int) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", &Error{Provider: s.provider, Op: "prompt", Err: fmt.Errorf("empty transcript")}
	}

	prompt := BuildPrompt(transcript, maxChars, s.options.Prompt)
	s.logger.Infow("Querying model for highlight", "provider", s.provider, "promptChars", len(prompt))

	text, err := s.backend.complete(ctx, prompt)
	if err != nil {
		return "", &Error{Provider: s.provider, Op: "query", Err: err}
	}

	text = CleanResponse(text)
	if text == "" {
		return "", &Error{Provider: s.provider, Op: "query", Err: fmt.Errorf("model returned no text")}
	}

	s.logger.Debugw("Model answered", "provider", s.provider, "chars", len(text))
	return text, nil
}

// BuildPrompt creates the highlight prompt. Only the first
// MaxTranscriptChars runes of the transcript are included.
func BuildPrompt(transcript string, maxChars int, extra string) string {
	if r := []rune(transcript); len(r) > MaxTranscriptChars {
		transcript = string(r[:MaxTranscriptChars])
	}

	var sb strings.Builder
	sb.WriteString("I have a video transcript and I want you to find one interesting part of the video for me.\n")
	sb.WriteString("Don't explain what you're doing, don't reference anything else, don't hallucinate, and don't repeat yourself.\n\n")
	fmt.Fprintf(&sb,
		"Send me the interesting part of the video transcript in the SRT format, with each line being max %d characters long.\n\n",
		maxChars,
	)
	sb.WriteString("Do NOT change ANYTHING, merely send me the most interesting part of the video transcript. The part's end has to make sense.\n\n")
	sb.WriteString("Make the part at least 7 seconds long.\n\n")

	if extra != "" {
		fmt.Fprintf(&sb, "Additional instructions: %s\n\n", extra)
	}

	sb.WriteString("Relevant transcript:\n\"")
	sb.WriteString(transcript)
	sb.WriteString("\"\n")
	return sb.String()
}

var fenceRegex = regexp.MustCompile("```[a-zA-Z]*[ \t]*\r?\n?")

// CleanResponse strips markdown code fences and surrounding whitespace.
func CleanResponse(s string) string {
	s = fenceRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
