package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dshills/snowcortex/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	version   = "0.1.0-dev"
	commit    = "unknown"
	buildDate = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string

	// Global config
	cfg *config.Config
)

func main() {
	setupCommands()
	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		name := ""
		if cmd != nil && cmd != rootCmd {
			name = cmd.Name()
		}
		fmt.Fprint(os.Stderr, FormatError(err, name))

		var exitErr ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitCodeGeneralError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snowcortex",
	Short: "snowcortex - chat with Snowflake Cortex LLM functions",
	Long: `snowcortex sends chat conversations to Snowflake Cortex and prints the replies.

Connection settings are read from flags, the config file, and the
SNOWFLAKE_ACCOUNT, SNOWFLAKE_USERNAME, SNOWFLAKE_PASSWORD, SNOWFLAKE_DATABASE,
SNOWFLAKE_SCHEMA, SNOWFLAKE_WAREHOUSE, SNOWFLAKE_ROLE and (optionally)
SNOWFLAKE_AUTHENTICATOR environment variables, in that order of precedence.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Skip for version command
		if cmd.Name() == "version" {
			return nil
		}

		// Initialize logging first
		if err := initLogging(); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		// Load configuration
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load configuration")
			return ExitError{Code: ExitCodeConfigError, Err: fmt.Errorf("failed to load configuration: %w", err)}
		}

		// Log format from config applies unless set via flag
		if !cmd.Flags().Changed("log-format") && cfg.IsJSONFormat() {
			logFormat = "json"
			if err := initLogging(); err != nil {
				return err
			}
		}

		// Override log level from config if not set via flag
		if cmd.Flags().Changed("log-level") {
			level, err := parseLogLevel(logLevel)
			if err != nil {
				return err
			}
			zerolog.SetGlobalLevel(level)
		} else {
			zerolog.SetGlobalLevel(cfg.GetLogLevel())
		}

		log.Debug().
			Str("version", version).
			Str("config_file", cfgFile).
			Msg("snowcortex initialized")

		return nil
	},
}

func setupCommands() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: .snowcortex.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format (console, json)")

	// Setup command-specific flags
	setupModelFlags(chatCmd)
	setupModelFlags(generateCmd)
	setupChatFlags()
	setupGenerateFlags()

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(generateCmd)

	// Set version template
	rootCmd.SetVersionTemplate(fmt.Sprintf("snowcortex v%s\n", version))
}

func initLogging() error {
	// Configure output
	if logFormat == "console" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Set log level
	level, err := parseLogLevel(logLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	return nil
}

func parseLogLevel(level string) (zerolog.Level, error) {
	switch level {
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
	}
}
