package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mgpai22/dubline/internal/config"
	"github.com/mgpai22/dubline/internal/logging"
)

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dubline",
	Short: "AI dubbing from audio or subtitles",
	Long: `Dubline transcribes a recording, optionally translates the lines,
synthesizes speech for every cue and stitches the clips back onto the
original timeline so each line starts where it was spoken.

Settings come from dubline.toml, DUBLINE_* environment variables and a
.env file in the working directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a missing .env is normal
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		loaded, used, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logger = logging.NewLogger(verbose || cfg.Logging.Verbose)
		if used != "" {
			logger.Debugw("Loaded config", "path", used)
		}
		return nil
	},
}

// Execute runs the command line with ctx as every command's context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (default ./dubline.toml or the user config dir)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
	rootCmd.PersistentFlags().
		StringP("language", "l", "", "Source language code (e.g., en, es, ko)")
}
