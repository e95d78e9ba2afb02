package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Subcommands read the loaded config
// from the shared cliState after PersistentPreRunE has run.
func newRootCmd() (*cobra.Command, *cliState) {
	state := &cliState{}
	root := &cobra.Command{
		Use:          "philterz",
		Short:        "Render Django-style templates with Go's html/template",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config, err := LoadConfig(state.configPath)
			if err != nil {
				return err
			}
			if state.logLevel != "" {
				config.Server.LogLevel = state.logLevel
			}
			state.config = config
			state.logger = newLogger(cmd.ErrOrStderr(), config.Server.LogLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&state.configPath, "config", "c", "./config.json", "path to the JSON config file")
	root.PersistentFlags().StringVar(&state.logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")

	root.AddCommand(
		renderCmd(state),
		serveCmd(state),
		tagsCmd(state),
		schemaCmd(),
		versionCmd(),
	)
	return root, state
}

// cliState carries what PersistentPreRunE loaded to the subcommands.
type cliState struct {
	configPath string
	logLevel   string

	config *Config
	logger *slog.Logger
}

// Execute runs the CLI.
func Execute() error {
	root, _ := newRootCmd()
	return root.Execute()
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLogLevel(level)}))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		// The version needs no config file.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("philterz version %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}
