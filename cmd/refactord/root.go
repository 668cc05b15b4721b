package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/refactord/refactord/pkg/config"
	"github.com/refactord/refactord/pkg/logger"
)

var (
	cfgFile string
	debug   bool
	cfg     *config.Config
	log     zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "refactord",
	Short: "Automated change-driven refactoring for JavaScript projects",
	Long: `refactord watches a project for source edits and reacts to them:

- Analyzes the impact of each change batch
- Detects complexity hot spots, duplication and import cycles
- Plans prioritized refactoring tasks with risk and time estimates
- Executes approved plans under snapshot rollback, gated on the test suite
- Keeps documentation and git history in step with accepted changes`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches .refactord.yaml and ~/.config/refactord)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "log file path")
}

// initConfig loads the configuration and builds the process logger
func initConfig() {
	loaded, err := config.NewLoader(cfgFile).LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		loaded = config.DefaultConfig()
	}
	cfg = loaded

	if debug {
		cfg.Logging.Level = "debug"
	}
	if logLevel, err := rootCmd.PersistentFlags().GetString("log-level"); err == nil && logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFile, err := rootCmd.PersistentFlags().GetString("log-file"); err == nil && logFile != "" {
		cfg.Logging.File = logFile
	}

	log, err = logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
		log = zerolog.Nop()
	}
}
