package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/jurisdata/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/jurisdata.yaml
var settingsTemplate embed.FS

// settingsTemplatePath is the template location inside settingsTemplate.
const settingsTemplatePath = "templates/jurisdata.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a jurisdata settings file",
		Long: `Init writes a commented .jurisdata.yaml settings file with every
available option set to its default.

Examples:
  # Create .jurisdata.yaml in the current directory
  jurisdata init

  # Create the file at a specific path
  jurisdata init -o ~/.jurisdata.yaml

  # Overwrite an existing file
  jurisdata init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultSettingsFile,
		"Output file path for the settings file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite an existing settings file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("settings file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := settingsTemplate.ReadFile(settingsTemplatePath)
	if err != nil {
		return fmt.Errorf("failed to read settings template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created settings file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to change:")
	fmt.Fprintln(out, "  - the discovery service address and proxy")
	fmt.Fprintln(out, "  - receive block size and timeouts")
	fmt.Fprintln(out, "  - where history and link configurations are stored")

	return nil
}
