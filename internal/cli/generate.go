package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipper/internal/audio"
	"github.com/mgpai22/clipper/internal/subtitle"
	"github.com/mgpai22/clipper/internal/transcribe"
	"github.com/mgpai22/clipper/internal/video"
)

var generateCmd = &cobra.Command{
	Use:   "generate [media_file]",
	Short: "Generate subtitles for an audio or video file",
	Long: `Generate subtitles for the specified audio or video file using AI transcription.

The command accepts both audio files (mp3, wav, aac, etc.) and video files (mp4, mkv, etc.).
For video files, audio is extracted before transcription. Long audio is split
into chunks which are transcribed in parallel.

With --max-chars the subtitle lines are equalized: no line is longer than the
budget and every line gets its own share of the original timing.

Examples:
  clipper generate video.mp4
  clipper generate audio.mp3 --format vtt
  clipper generate video.mp4 --max-chars 15 -o captions.srt
  clipper generate podcast.mp3 --provider openai -d 5 --concurrency 5`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	addTranscribeFlags(generateCmd)
	generateCmd.Flags().
		StringP("format", "f", "srt", "Output subtitle format (srt, vtt, ass)")
	generateCmd.Flags().
		Int("max-chars", 0, "Equalize lines to at most this many characters (0 keeps lines as generated)")
}

func addTranscribeFlags(cmd *cobra.Command) {
	cmd.Flags().
		String("provider", "gemini", "Transcription provider (gemini, openai)")
	cmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY env var)")
	cmd.Flags().
		IntP("chunk-duration", "d", 10, "Chunk duration in minutes for splitting long audio")
	cmd.Flags().
		Int("concurrency", transcribe.DefaultConcurrency, "Number of parallel transcription workers")
	cmd.Flags().
		String("model", "", "Transcription model (provider-specific, uses sensible defaults)")
	cmd.Flags().
		Bool("model-override", false, "Allow any custom model, bypassing model validation")
	cmd.Flags().
		String("transcript-language", "native", "Output language for transcript (e.g., 'english', 'spanish', or 'native' for original language)")
}

// newSRTTranscriber builds a transcriber from the transcription flags.
func newSRTTranscriber(ctx context.Context, cmd *cobra.Command, workDir string) (*transcribe.SRTTranscriber, error) {
	providerStr, _ := cmd.Flags().GetString("provider")
	key, _ := cmd.Flags().GetString("api-key")
	chunkMinutes, _ := cmd.Flags().GetInt("chunk-duration")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	model, _ := cmd.Flags().GetString("model")
	override, _ := cmd.Flags().GetBool("model-override")
	language, _ := cmd.Flags().GetString("language")
	transcriptLang, _ := cmd.Flags().GetString("transcript-language")

	provider, err := transcribe.ParseProvider(providerStr)
	if err != nil {
		return nil, err
	}
	if chunkMinutes <= 0 {
		return nil, fmt.Errorf("chunk-duration must be positive, got %d", chunkMinutes)
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", concurrency)
	}

	switch provider {
	case transcribe.ProviderGemini:
		err = checkModel("Gemini", model, geminiModels, override)
	case transcribe.ProviderOpenAI:
		err = checkModel("OpenAI", model, openAIAudioModels, override)
		if err == nil && !isValidOpenAITranscriptLanguage(transcriptLang) {
			err = fmt.Errorf(
				"OpenAI can only produce native or English transcripts, got %q (use --provider gemini)",
				transcriptLang,
			)
		}
	}
	if err != nil {
		return nil, err
	}

	key, err = apiKey(key, string(provider))
	if err != nil {
		return nil, err
	}

	t, err := transcribe.Factory(ctx, provider, key, transcribe.Options{
		Language:           language,
		TranscriptLanguage: transcriptLang,
		Model:              model,
		Logger:             logger.SugaredLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transcriber: %w", err)
	}

	s := transcribe.NewSRTTranscriber(t, workDir, logger.SugaredLogger)
	s.ChunkDuration = time.Duration(chunkMinutes) * time.Minute
	s.Concurrency = concurrency
	return s, nil
}

// audioExtractor compresses plain audio files and extracts the track from
// videos, so the transcriber always uploads a small mp3.
type audioExtractor struct {
	processor *video.DefaultProcessor
}

func (a audioExtractor) ExtractAudio(ctx context.Context, mediaPath, outputPath string, opts video.ExtractAudioOptions) error {
	if audio.IsAudioFile(mediaPath) {
		return audio.CompressAudio(ctx, mediaPath, outputPath, audio.CompressionOptions{
			Format:     opts.Format,
			SampleRate: opts.SampleRate,
			Channels:   opts.Channels,
			Bitrate:    opts.Bitrate,
		})
	}
	return a.processor.ExtractAudio(ctx, mediaPath, outputPath, opts)
}

func speechAudioOptions() video.ExtractAudioOptions {
	c := audio.DefaultCompressionOptions()
	return video.ExtractAudioOptions{
		Format:     c.Format,
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		Bitrate:    c.Bitrate,
	}
}

func parseSubtitleFormat(s string) (subtitle.Format, error) {
	switch f := subtitle.Format(strings.ToLower(s)); f {
	case subtitle.FormatSRT, subtitle.FormatVTT, subtitle.FormatASS:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q: use srt, vtt, or ass", s)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	mediaPath := args[0]
	ctx := cmd.Context()

	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", mediaPath)
	}
	if !audio.IsMediaFile(mediaPath) {
		return fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(mediaPath))
	}

	formatStr, _ := cmd.Flags().GetString("format")
	maxChars, _ := cmd.Flags().GetInt("max-chars")
	outputPath, _ := cmd.Flags().GetString("output")
	language, _ := cmd.Flags().GetString("language")

	format, err := parseSubtitleFormat(formatStr)
	if err != nil {
		return err
	}
	if maxChars < 0 {
		return fmt.Errorf("max-chars must not be negative, got %d", maxChars)
	}
	if outputPath == "" {
		outputPath = strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath)) + subtitle.GetExtensionForFormat(format)
	}

	tempDir, err := os.MkdirTemp("", "clipper-*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	transcriber, err := newSRTTranscriber(ctx, cmd, tempDir)
	if err != nil {
		return err
	}

	logger.Infow("Starting subtitle generation",
		"input", mediaPath,
		"output", outputPath,
		"format", format,
	)

	audioPath := filepath.Join(tempDir, "audio.mp3")
	extractor := audioExtractor{processor: video.NewProcessor(tempDir, logger.SugaredLogger)}
	if err := extractor.ExtractAudio(ctx, mediaPath, audioPath, speechAudioOptions()); err != nil {
		return fmt.Errorf("failed to prepare audio: %w", err)
	}

	raw, err := transcriber.TranscribeSRT(ctx, audioPath)
	if err != nil {
		return err
	}

	subs, err := subtitle.ParseSRTString(string(raw))
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	if maxChars > 0 {
		eq, err := subtitle.NewEqualizer(maxChars, logger.SugaredLogger)
		if err != nil {
			return err
		}
		if subs, err = eq.Equalize(subs); err != nil {
			return err
		}
	}
	subs.Language = language
	subs.Format = string(format)

	writer, err := subtitle.NewWriter(format)
	if err != nil {
		return fmt.Errorf("failed to create subtitle writer: %w", err)
	}
	if err := writer.Write(subs, outputPath); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subtitles generated successfully: %s\n", absOutput)
	fmt.Fprintf(out, "  Entries: %d\n", len(subs.Entries))
	if span, err := subtitle.ExtractSpan(subs); err == nil {
		fmt.Fprintf(out, "  Span: %s\n", span)
	}
	return nil
}
