package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mgpai22/clipper/internal/logging"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "clipper",
	Short: "Cut a subtitled vertical highlight clip out of a long video",
	Long: `Clipper downloads a video, transcribes it, asks a language model for
the most interesting part and renders that part as a vertical clip with
burned-in captions.

Each step is also available as its own command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// best-effort: load .env if present
		_ = godotenv.Load()

		if err := loadConfigFile(cmd, configPath, cmd.Flags().Changed("config")); err != nil {
			return err
		}

		logger = logging.NewLogger(verbose)
		return nil
	},
}

// Execute runs the CLI. Ctrl-C cancels the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", defaultConfigFile, "TOML file with flag defaults")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("language", "l", "", "Language code (e.g., en, es, fr)")
}
