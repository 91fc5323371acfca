package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultSettingsFile is the default settings file name.
const DefaultSettingsFile = ".jurisdata.yaml"

// ErrSettingsNotFound is returned when the settings file does not exist.
var ErrSettingsNotFound = errors.New("settings file not found")

// LoadSettingsFile loads settings from a YAML file. If a sibling
// "<name>.local<ext>" file exists (for example .jurisdata.local.yaml), its
// values are merged over the base file.
//
// A missing base file returns ErrSettingsNotFound.
func LoadSettingsFile(path string) (*Settings, error) {
	base, err := readSettings(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}

	localPath := LocalOverridePath(path)
	override, err := readSettings(localPath)
	switch {
	case err == nil:
		if err := mergo.Merge(base, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", localPath, err)
		}
		// mergo skips zero-valued sources, so an explicit "enabled: false"
		// must be copied by hand.
		if override.History.Enabled != nil {
			base.History.Enabled = override.History.Enabled
		}
		slog.Debug("merged settings with local overrides", "local", localPath)
	case os.IsNotExist(err):
	default:
		return nil, err
	}

	return base, nil
}

func readSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided settings path is intentional
	if err != nil {
		return nil, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &s, nil
}

// LocalOverridePath returns the local override path for a settings file:
// ".jurisdata.yaml" -> ".jurisdata.local.yaml", "settings" -> "settings.local".
func LocalOverridePath(path string) string {
	dir, base := filepath.Split(path)
	ext := filepath.Ext(base)
	if ext == base {
		// dotfile without extension, e.g. ".jurisdata"
		ext = ""
	}
	return filepath.Join(dir, strings.TrimSuffix(base, ext)+".local"+ext)
}

// FindSettingsFile searches for the settings file in the following order:
// 1. settingsPath, if specified
// 2. .jurisdata.yaml in the current directory
// 3. .jurisdata.yaml in the user's home directory
// 4. config.yaml in the XDG config directory
//
// Returns the path found, or empty string.
func FindSettingsFile(settingsPath string) string {
	if settingsPath != "" {
		if _, err := os.Stat(settingsPath); err == nil {
			return settingsPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultSettingsFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultSettingsFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
