// Package cli implements the assistant command line: the HTTP server, a
// terminal chat and the two property calculators.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"immobilier-assistant/internal/config"
)

type app struct {
	v       *viper.Viper
	envFile string
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func NewRootCommand() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:           "assistant",
		Short:         "Immobilier Info chat assistant",
		Long:          "Serve the Immobilier Info assistant API, chat with it from a terminal, or run the property calculators.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if a.envFile != "" {
				return config.LoadDotEnv(a.envFile)
			}
			return config.LoadDotEnv()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "load variables from this file instead of .env")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("language", "en", "assistant language (en|fr|ar)")
	flags.String("provider", config.ProviderGemini, "language model provider (gemini|openai)")
	flags.String("model", "", "model name; defaults to the provider's default")
	flags.String("base-url", "", "override the provider API host")
	a.bind(root, map[string]string{
		config.KeyLogLevel:    "log-level",
		config.KeyLanguage:    "language",
		config.KeyLLMProvider: "provider",
		config.KeyModel:       "model",
		config.KeyBaseURL:     "base-url",
	}, true)

	root.AddCommand(a.serveCommand(), a.chatCommand(), mortgageCommand(), roiCommand())
	return root
}

// bind attaches flags to config keys so that flag > env > default.
func (a *app) bind(cmd *cobra.Command, keys map[string]string, persistent bool) {
	fs := cmd.Flags()
	if persistent {
		fs = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := a.v.BindPFlag(key, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("cli: bind flag %q: %v", name, err))
		}
	}
}

// terminalLogger renders slog records through charmbracelet/log.
func terminalLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(log.NewWithOptions(w, log.Options{
		Level:           log.Level(level),
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	}))
}

func jsonLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
