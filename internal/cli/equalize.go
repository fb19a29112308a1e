package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/clipper/internal/subtitle"
)

var equalizeCmd = &cobra.Command{
	Use:   "equalize [subtitle.srt]",
	Short: "Split subtitle lines so none is longer than --max-chars",
	Long: `Rewrite an SRT file so that no subtitle line exceeds --max-chars characters.
Each resulting line becomes its own entry with a share of the original timing
proportional to its length. Words longer than the budget stay on a line of
their own.

The file is rewritten in place unless -o is given.

Examples:
  clipper equalize talk.srt
  clipper equalize talk.srt --max-chars 20 -o short_lines.srt`,
	Args: cobra.ExactArgs(1),
	RunE: runEqualize,
}

func init() {
	rootCmd.AddCommand(equalizeCmd)

	equalizeCmd.Flags().
		IntP("max-chars", "c", 15, "Maximum characters per subtitle line")
}

func runEqualize(cmd *cobra.Command, args []string) error {
	in := args[0]
	maxChars, _ := cmd.Flags().GetInt("max-chars")
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = in
	}

	sub, err := subtitle.EqualizeFile(in, out, maxChars, logger.SugaredLogger)
	if err != nil {
		return err
	}

	absOutput, _ := filepath.Abs(out)
	fmt.Fprintf(cmd.OutOrStdout(), "Equalized %d entries: %s\n", len(sub.Entries), absOutput)
	return nil
}
