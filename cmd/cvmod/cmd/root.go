// Package cmd provides the command-line interface of cvmod.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/littleutils/cvmod/internal/logging"
)

// Environment variables that provide flag defaults.
const (
	EnvSampleRate  = "CVMOD_SAMPLE_RATE"
	EnvLogLevel    = "CVMOD_LOG_LEVEL"
	EnvLogFormat   = "CVMOD_LOG_FORMAT"
	EnvMonitorPort = "CVMOD_MONITOR_PORT"
)

var envFlags = map[string]string{
	"sample-rate":  EnvSampleRate,
	"log-level":    EnvLogLevel,
	"log-format":   EnvLogFormat,
	"monitor-port": EnvMonitorPort,
}

var logger = slog.Default()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cvmod",
	Short: "cvmod runs patches of control voltage modules.",
	Long: `cvmod runs patches of control voltage modules described in HCL ` +
		`files. Modules exchange voltages through cables and through ` +
		`teleport labels.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("env-file", ".env", "File with environment defaults")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	if err := applyEnv(cmd); err != nil {
		return err
	}

	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	logger = logging.New(level, format, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	return nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// applyEnv fills the flags the user did not set from the environment.
func applyEnv(cmd *cobra.Command) error {
	for name, env := range envFlags {
		flag := cmd.Flags().Lookup(name)
		if flag == nil || flag.Changed {
			continue
		}

		value, ok := os.LookupEnv(env)
		if !ok || value == "" {
			continue
		}

		if err := cmd.Flags().Set(name, value); err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
	}

	return nil
}
