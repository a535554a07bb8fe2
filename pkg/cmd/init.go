package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// BuildInfo holds the build metadata injected at compile time.
type BuildInfo struct {
	Version string
	AppName string
}

type cmdFlags struct {
	version    string
	appName    string
	ConfigPath string `mapstructure:"config"`
	LogLevel   string `mapstructure:"log_level"`
	TextFormat bool   `mapstructure:"log_text"`
}

// InitCommand initializes the root command of the CLI application with its
// subcommands and persistent flags.
func InitCommand(build BuildInfo) cobra.Command {
	flags := cmdFlags{
		version:    build.Version,
		appName:    build.AppName,
		LogLevel:   "info",
		TextFormat: true,
	}

	cmd := cobra.Command{
		Use:     flags.appName,
		Version: flags.version,
		Short:   "Search documentation sites by inventory and content",
		Long:    "Librovore detects, searches, and extracts content from Sphinx, Pydoctor, Rustdoc, and MkDocs documentation sites.",
	}

	cmd.PersistentFlags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&flags.TextFormat, "log-text", flags.TextFormat, "log in text format, otherwise JSON")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to the configuration file")

	cmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		return initLogger(&flags)
	}

	for _, name := range []string{"log_level", "log_text", "config"} {
		if err := viper.BindEnv(name); err != nil {
			slog.Error("failed to bind env var", "name", name, "error", err)
		}
	}

	viper.AutomaticEnv()

	cmd.AddCommand(
		newDetectCmd(&flags),
		newQueryInventoryCmd(&flags),
		newQueryContentCmd(&flags),
		newSummarizeInventoryCmd(&flags),
		newSurveyProcessorsCmd(&flags),
		newServeCmd(&flags, build),
	)

	return cmd
}
