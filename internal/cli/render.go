package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipper/internal/pipeline"
	"github.com/mgpai22/clipper/internal/subtitle"
	"github.com/mgpai22/clipper/internal/video"
)

var renderCmd = &cobra.Command{
	Use:   "render [video_file] [highlight.srt]",
	Short: "Cut the highlight out of a video and burn its captions in",
	Long: `Cut the time span covered by the highlight subtitles out of the video,
resize it to the output size and burn the captions in, re-timed onto the clip.

Intermediate files go to --work-dir (a temporary directory by default).

Examples:
  clipper render talk.mp4 interesting_part.srt
  clipper render talk.mp4 interesting_part.srt --resize-mode fill --font fonts/ -o short.mp4
  clipper render talk.mp4 interesting_part.srt --max-chars 12 --color "#FFFF00"`,
	Args: cobra.ExactArgs(2),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	addRenderFlags(renderCmd)
	renderCmd.Flags().
		Int("max-chars", 0, "Equalize caption lines before burning (0 keeps lines as they are)")
	renderCmd.Flags().
		String("work-dir", "", "Directory for intermediate files (default: a temporary directory)")
}

func runRender(cmd *cobra.Command, args []string) error {
	videoPath, srtPath := args[0], args[1]

	maxChars, _ := cmd.Flags().GetInt("max-chars")
	workDir, _ := cmd.Flags().GetString("work-dir")
	outputPath, _ := cmd.Flags().GetString("output")

	opts, err := renderOptionsFromFlags(cmd)
	if err != nil {
		return err
	}
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("video not found: %w", err)
	}

	sub, err := subtitle.ReadSRTFile(srtPath)
	if err != nil {
		return err
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	if maxChars > 0 {
		eq, err := subtitle.NewEqualizer(maxChars, logger.SugaredLogger)
		if err != nil {
			return err
		}
		if sub, err = eq.Equalize(sub); err != nil {
			return err
		}
	}

	if workDir == "" {
		if workDir, err = os.MkdirTemp("", "clipper-render-*"); err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
		defer os.RemoveAll(workDir)
	} else if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	if outputPath == "" {
		outputPath = strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "_clip.mp4"
	}

	clip, err := pipeline.Render(
		cmd.Context(),
		video.NewProcessor(workDir, logger.SugaredLogger),
		videoPath,
		sub,
		workDir,
		base,
		pipeline.RenderOptions{
			Width:      opts.width,
			Height:     opts.height,
			ResizeMode: opts.mode,
			Style:      opts.style,
			Logger:     logger.SugaredLogger,
		},
	)
	if err != nil {
		return err
	}

	if err := moveFile(clip.OutputPath, outputPath); err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Clip rendered: %s\n", absOutput)
	fmt.Fprintf(cmd.OutOrStdout(), "  Span: %s (%s)\n", clip.Span, clip.Span.Duration())
	return nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return os.Remove(src)
}
