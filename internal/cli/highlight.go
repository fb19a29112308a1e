package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipper/internal/highlight"
	"github.com/mgpai22/clipper/internal/subtitle"
)

var highlightCmd = &cobra.Command{
	Use:   "highlight [transcript.srt]",
	Short: "Ask a language model for the most interesting part of a transcript",
	Long: `Send an SRT transcript to a language model and keep the part it finds most
interesting. The answer is validated as SRT and equalized to --max-chars.

Providers: gemini, openai, anthropic and proxy (a local chat backend that
answers POST /query with {"message": ...}).

Examples:
  clipper highlight talk.srt
  clipper highlight talk.srt --llm-provider anthropic -o interesting_part.srt
  clipper highlight talk.srt --llm-provider proxy --proxy-url http://localhost:5000/query`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlight,
}

func init() {
	rootCmd.AddCommand(highlightCmd)

	addHighlightFlags(highlightCmd)
	highlightCmd.Flags().
		Int("max-chars", 15, "Maximum characters per subtitle line")
}

func addHighlightFlags(cmd *cobra.Command) {
	cmd.Flags().
		String("llm-provider", "gemini", "Highlight provider (gemini, openai, anthropic, proxy)")
	cmd.Flags().
		String("llm-api-key", "", "API key for the highlight provider (or set the provider's env var)")
	cmd.Flags().
		String("llm-model", "", "Highlight model (provider-specific, uses sensible defaults)")
	cmd.Flags().
		Bool("llm-model-override", false, "Allow any custom highlight model, bypassing model validation")
	cmd.Flags().
		String("proxy-url", highlight.DefaultProxyURL, "Endpoint of the proxy provider")
	cmd.Flags().
		Duration("llm-timeout", 5*time.Minute, "Timeout for one proxy request")
	cmd.Flags().
		String("prompt", "", "Additional instructions for picking the highlight")
}

func newHighlightSelector(ctx context.Context, cmd *cobra.Command) (highlight.Selector, error) {
	providerStr, _ := cmd.Flags().GetString("llm-provider")
	key, _ := cmd.Flags().GetString("llm-api-key")
	model, _ := cmd.Flags().GetString("llm-model")
	override, _ := cmd.Flags().GetBool("llm-model-override")
	proxyURL, _ := cmd.Flags().GetString("proxy-url")
	timeout, _ := cmd.Flags().GetDuration("llm-timeout")
	prompt, _ := cmd.Flags().GetString("prompt")

	provider, err := highlight.ParseProvider(providerStr)
	if err != nil {
		return nil, err
	}

	switch provider {
	case highlight.ProviderGemini:
		err = checkModel("Gemini", model, geminiModels, override)
	case highlight.ProviderOpenAI:
		err = checkModel("OpenAI", model, openAIChatModels, override)
	case highlight.ProviderAnthropic:
		err = checkModel("Anthropic", model, anthropicModels, override)
	}
	if err != nil {
		return nil, err
	}

	key, err = apiKey(key, string(provider))
	if err != nil {
		return nil, err
	}

	return highlight.Factory(ctx, provider, key, highlight.Options{
		Model:    model,
		Prompt:   prompt,
		ProxyURL: proxyURL,
		Timeout:  timeout,
		Logger:   logger.SugaredLogger,
	})
}

// selectHighlight queries the model and turns the answer into an
// equalized subtitle track.
func selectHighlight(
	ctx context.Context,
	sel highlight.Selector,
	transcript *subtitle.Subtitle,
	maxChars int,
) (*subtitle.Subtitle, error) {
	eq, err := subtitle.NewEqualizer(maxChars, logger.SugaredLogger)
	if err != nil {
		return nil, err
	}

	raw, err := sel.Select(ctx, string(subtitle.MarshalSRT(transcript)), maxChars)
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
	if len(sub.Entries) == 0 {
		return nil, &subtitle.EmptySequenceError{Op: "select highlight"}
	}
	return eq.Equalize(sub)
}

func runHighlight(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	maxChars, _ := cmd.Flags().GetInt("max-chars")
	outputPath, _ := cmd.Flags().GetString("output")

	transcript, err := subtitle.ReadSRTFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}

	sel, err := newHighlightSelector(ctx, cmd)
	if err != nil {
		return err
	}

	sub, err := selectHighlight(ctx, sel, transcript, maxChars)
	if err != nil {
		return err
	}
	span, _ := subtitle.ExtractSpan(sub)

	if outputPath == "" {
		_, err := cmd.OutOrStdout().Write(subtitle.MarshalSRT(sub))
		return err
	}
	if err := (&subtitle.SRTWriter{}).Write(sub, outputPath); err != nil {
		return fmt.Errorf("failed to write highlight: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.ErrOrStderr(), "Highlight written: %s (%s)\n", absOutput, span)
	return nil
}
