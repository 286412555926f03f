package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roasbeef/prsentry/internal/build"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// cfgFile is an explicit config file path, overriding the default.
	cfgFile string

	// debugFlag raises the log level to debug.
	debugFlag bool

	// noLogFile disables the rotating log file.
	noLogFile bool

	// logCleanup flushes the rotating log writer on exit.
	logCleanup func()
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "prsentry",
	Short: "Automated PR review session orchestrator",
	Long: `prsentry runs an automated code-review session against a single pull
request. It resolves the acting identity, discards stale pending reviews
left by prior runs, decides whether "request changes" is permitted, and
supervises the external review agent to completion.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the CLI.
func Execute() error {
	defer func() {
		if logCleanup != nil {
			logCleanup()
		}
	}()

	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "",
		"Config file (default: ~/.prsentry/config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(
		&debugFlag, "debug", false,
		"Enable debug logging",
	)
	rootCmd.PersistentFlags().BoolVar(
		&noLogFile, "no-log-file", false,
		"Disable the rotating log file",
	)

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(identityCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup resolves configuration and initializes the logging stack before
// any subcommand runs.
func setup(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}

	logDir := ""
	if !noLogFile {
		var err error
		logDir, err = build.DefaultLogDir()
		if err != nil {
			return err
		}
	}

	_, cleanup, err := build.SetupLoggers(logDir, debugFlag)
	if err != nil {
		return err
	}
	logCleanup = cleanup

	return nil
}

// initConfig wires viper: explicit file, then ~/.prsentry/config.yaml,
// then environment. GITHUB_TOKEN is honored directly since that is what
// CI environments export.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w",
				err)
		}

		viper.AddConfigPath(filepath.Join(home, ".prsentry"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PRSENTRY")
	viper.AutomaticEnv()
	_ = viper.BindEnv("github.token", "GITHUB_TOKEN", "PRSENTRY_GITHUB_TOKEN")

	viper.SetDefault("agent.command", "claude")
	viper.SetDefault("agent.args", []string{"-p"})

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; env and flags cover it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			if _, ok := err.(*os.PathError); !ok {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}

	return nil
}
