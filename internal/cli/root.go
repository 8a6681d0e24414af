// Package cli implements the rebin command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/xtxerr/rebin/internal/config"
	"github.com/xtxerr/rebin/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool

	// cfg is loaded once in the persistent pre-run and read by every
	// subcommand.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "rebin",
	Short: "Resize fixed-interval time series stores",
	Long: "Rebin creates, inspects, resizes and exports fixed-interval " +
		"time series stores with multiple precision tiers. Resizing " +
		"migrates every archive into a new retention schema and swaps " +
		"the result in atomically.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, args []string) error {
	cfg = config.DefaultConfig()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level := cfg.Logging.Level
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	logging.Init(logging.ParseLevel(level), logJSON || cfg.Logging.JSON)
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "json-log", false, "write logs as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(resizeCmd)
	rootCmd.AddCommand(exportCmd)
}
