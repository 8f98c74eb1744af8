package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/dubline/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the dubline configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a sample configuration file",
	Long: `Write the built-in defaults as a TOML file.

Without a path the file goes to the user config directory, where it is
picked up automatically on the next run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolP("force", "f", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if err := config.WriteSample(path, force); err != nil {
		return err
	}

	logger.Infow("Sample config written", "path", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Config written: %s\n", path)
	return nil
}
