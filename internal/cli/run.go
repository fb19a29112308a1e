package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipper/internal/download"
	"github.com/mgpai22/clipper/internal/pipeline"
	"github.com/mgpai22/clipper/internal/video"
)

var runCmd = &cobra.Command{
	Use:   "run [url]",
	Short: "Turn a video URL into a subtitled vertical highlight clip",
	Long: `Download a video, transcribe it, ask a language model for its most
interesting part and render that part as a vertical clip with burned-in
captions.

Every run lives in its own directory under --work-dir. Pass --run-id of an
earlier run to resume it: steps whose output exists are skipped.

Settings not given as flags are asked for on stdin, unless --no-input is set.

Examples:
  clipper run https://www.youtube.com/watch?v=dQw4w9WgXcQ
  clipper run https://youtu.be/dQw4w9WgXcQ --no-input --max-chars 12 --resize-mode fill
  clipper run https://youtu.be/dQw4w9WgXcQ --provider openai --llm-provider anthropic
  clipper run https://youtu.be/dQw4w9WgXcQ --run-id 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	d := pipeline.DefaultConfig()
	addTranscribeFlags(runCmd)
	addHighlightFlags(runCmd)
	addRenderFlags(runCmd)
	runCmd.Flags().
		Int("max-chars", d.MaxChars, "Maximum characters per caption line")
	runCmd.Flags().
		String("work-dir", d.WorkDir, "Directory holding one sub-directory per run")
	runCmd.Flags().
		String("run-id", "", "Resume the run with this id instead of starting a new one")
	runCmd.Flags().
		Duration("timeout", 2*time.Hour, "Give up after this long (0 disables the timeout)")
	runCmd.Flags().
		Bool("no-input", false, "Never prompt; use flag values and defaults")
}

// promptRunSettings asks for the settings the user did not pass as flags.
func promptRunSettings(cmd *cobra.Command, p *prompter, url string) (string, error) {
	if url == "" {
		var err error
		if url, err = p.ask("Video URL", ""); err != nil {
			return "", err
		}
	}

	if err := p.fill(cmd, "max-chars", "Max characters per line"); err != nil {
		return "", err
	}
	if err := p.fill(cmd, "font", "Font file or directory (empty for default)"); err != nil {
		return "", err
	}
	if err := p.fill(cmd, "font-size", "Font size"); err != nil {
		return "", err
	}

	if !cmd.Flags().Changed("width") && !cmd.Flags().Changed("height") {
		w, _ := cmd.Flags().GetInt("width")
		h, _ := cmd.Flags().GetInt("height")
		answer, err := p.ask("Output size", fmt.Sprintf("%dx%d", w, h))
		if err != nil {
			return "", err
		}
		if w, h, err = parseSize(answer); err != nil {
			return "", err
		}
		_ = cmd.Flags().Set("width", strconv.Itoa(w))
		_ = cmd.Flags().Set("height", strconv.Itoa(h))
	}

	for _, q := range []struct{ flag, question string }{
		{"color", "Font colour"},
		{"stroke-color", "Stroke colour"},
		{"stroke-width", "Stroke width"},
	} {
		if err := p.fill(cmd, q.flag, q.question); err != nil {
			return "", err
		}
	}
	return url, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	var url string
	if len(args) == 1 {
		url = args[0]
	}

	noInput, _ := cmd.Flags().GetBool("no-input")
	if !noInput {
		var err error
		url, err = promptRunSettings(cmd, newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), url)
		if err != nil {
			return err
		}
	}

	cfg, err := runConfigFromFlags(cmd, url)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	deps, err := runDeps(ctx, cmd)
	if err != nil {
		return err
	}

	res, err := pipeline.Run(ctx, cfg, deps)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("run timed out: %w", err)
		}
		return err
	}

	absOutput, _ := filepath.Abs(res.OutputPath)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Clip ready: %s\n", absOutput)
	fmt.Fprintf(out, "  Run: %s\n", res.RunID)
	fmt.Fprintf(out, "  Span: %s (%s)\n", res.Span, res.Span.Duration())
	fmt.Fprintf(out, "  Captions: %s\n", res.HighlightPath)
	return nil
}

func runConfigFromFlags(cmd *cobra.Command, url string) (pipeline.Config, error) {
	opts, err := renderOptionsFromFlags(cmd)
	if err != nil {
		return pipeline.Config{}, err
	}

	cfg := pipeline.DefaultConfig()
	cfg.URL = url
	cfg.WorkDir, _ = cmd.Flags().GetString("work-dir")
	cfg.RunID, _ = cmd.Flags().GetString("run-id")
	cfg.MaxChars, _ = cmd.Flags().GetInt("max-chars")
	cfg.Width = opts.width
	cfg.Height = opts.height
	cfg.ResizeMode = opts.mode
	cfg.Style = opts.style
	cfg.Logger = logger.SugaredLogger
	return cfg, nil
}

func runDeps(ctx context.Context, cmd *cobra.Command) (pipeline.Deps, error) {
	// one key serves both steps when they use the same provider
	if !cmd.Flags().Changed("llm-api-key") {
		tp, _ := cmd.Flags().GetString("provider")
		hp, _ := cmd.Flags().GetString("llm-provider")
		if key, _ := cmd.Flags().GetString("api-key"); key != "" && tp == hp {
			_ = cmd.Flags().Set("llm-api-key", key)
		}
	}

	transcriber, err := newSRTTranscriber(ctx, cmd, "")
	if err != nil {
		return pipeline.Deps{}, err
	}
	selector, err := newHighlightSelector(ctx, cmd)
	if err != nil {
		return pipeline.Deps{}, err
	}

	processor := video.NewProcessor("", logger.SugaredLogger)
	return pipeline.Deps{
		Downloader:  download.New(logger.SugaredLogger),
		Audio:       processor,
		Transcriber: transcriber,
		Highlighter: selector,
		Editor:      processor,
	}, nil
}
