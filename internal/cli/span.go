package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipper/internal/subtitle"
)

var spanCmd = &cobra.Command{
	Use:   "span [subtitle.srt]",
	Short: "Print the time span covered by a subtitle file",
	Long: `Print the start of the first entry and the end of the last entry of an
SRT file, in SRT timestamp notation. With --seconds the bounds are printed as
decimal seconds, ready for ffmpeg's -ss and -to.`,
	Args: cobra.ExactArgs(1),
	RunE: runSpan,
}

func init() {
	rootCmd.AddCommand(spanCmd)

	spanCmd.Flags().Bool("seconds", false, "Print start and end as decimal seconds")
}

func runSpan(cmd *cobra.Command, args []string) error {
	seconds, _ := cmd.Flags().GetBool("seconds")

	sub, err := subtitle.ReadSRTFile(args[0])
	if err != nil {
		return err
	}
	span, err := subtitle.ExtractSpan(sub)
	if err != nil {
		return err
	}

	if seconds {
		fmt.Fprintf(cmd.OutOrStdout(), "%.3f %.3f\n", span.Start.Seconds(), span.End.Seconds())
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), span)
	return nil
}
