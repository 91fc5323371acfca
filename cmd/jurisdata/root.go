package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/nao1215/jurisdata/internal/config"
	jlog "github.com/nao1215/jurisdata/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jurisdata",
		Short: "Discover extractable page elements and manage link configurations",
		Long: `jurisdata talks to a local discovery service over a persistent TCP
connection. Given a URL, the service reports which CSS classes and other
elements of the page can be extracted.

Link configurations describe, per URL, which tags to select, which links to
follow and how tags are grouped. They are stored as JSON under the XDG
config directory and can be edited with the config subcommands.

Settings are read from .jurisdata.yaml in the current or home directory,
or from the file given with --settings.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("settings", "",
		"Settings file path (default: .jurisdata.yaml in current or home directory)")
	cmd.PersistentFlags().String("link-config", "",
		"Link configuration file (default: $XDG_CONFIG_HOME/jurisdata/link_configs.json)")
	cmd.PersistentFlags().String("history-dir", "",
		"Directory of the history database (default: $XDG_DATA_HOME/jurisdata)")

	cmd.AddCommand(NewDiscoverCmd())
	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// loadConfig builds the configuration from defaults, the settings file and
// the persistent flags, in increasing priority.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	settingsPath := stringFlag(cmd, "settings")
	cfg.SettingsFilePath = settingsPath

	explicit := settingsPath != ""
	path := config.FindSettingsFile(settingsPath)
	switch {
	case path != "":
		settings, err := config.LoadSettingsFile(path)
		if err != nil && !errors.Is(err, config.ErrSettingsNotFound) {
			return nil, fmt.Errorf("failed to load settings file %s: %w", path, err)
		}
		if settings != nil {
			settings.ApplyTo(cfg)
		}
	case explicit:
		return nil, fmt.Errorf("%w: %s", config.ErrSettingsNotFound, settingsPath)
	}

	if v := stringFlag(cmd, "link-config"); v != "" {
		cfg.LinkConfigPath = v
	}
	if v := stringFlag(cmd, "history-dir"); v != "" {
		cfg.HistoryDir = v
	}
	return cfg, nil
}

// stringFlag returns the value of a string flag, or "" when the command
// does not define it.
func stringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}
	return v
}

// setupLogger creates the redacting logger on stderr and installs it as the
// default.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logger := jlog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)
	return logger
}

// warnf prints a yellow warning line on stderr.
func warnf(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", args...)
}
