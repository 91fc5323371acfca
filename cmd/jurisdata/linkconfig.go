package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nao1215/jurisdata/internal/linkconfig"
	"github.com/nao1215/jurisdata/internal/model"
	"github.com/nao1215/jurisdata/internal/report"
	"github.com/spf13/cobra"
)

// errInvalidLinkConfig is returned by "config validate" when problems exist.
var errInvalidLinkConfig = errors.New("link configuration has problems")

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit link configurations",
		Long: `Config manages the persisted link configurations.

Each entry is keyed by URL (or any name) and is either an alias of another
entry or a full configuration of selected tags and groups. Tag patterns are
literal class names or "regex:<expression>". Group members are tag patterns
or "group:<name>" references to other groups of the same entry.

Examples:
  # List every entry
  jurisdata config list

  # Select a tag and follow its links using another entry's configuration
  jurisdata config tag https://courts.example/decisions decision-title --follow --use-config decision-page

  # Allow at most two of a set of tags to match together
  jurisdata config group https://courts.example/decisions headline --type multiple --count 2 --member title --member subtitle

  # Reuse a configuration for a paginated URL
  jurisdata config alias "https://courts.example/decisions?page=2" https://courts.example/decisions`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigShowCmd(),
		newConfigResolveCmd(),
		newConfigAliasCmd(),
		newConfigTagCmd(),
		newConfigGroupCmd(),
		newConfigRemoveCmd(),
		newConfigValidateCmd(),
		newConfigPathCmd(),
	)
	return cmd
}

// openStore loads the link configuration store selected by the flags.
// A failure to persist a seeded document is reported as a warning.
func openStore(cmd *cobra.Command) (*linkconfig.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cmd, cfg.Verbose)

	store := linkconfig.New(cfg.ResolvedLinkConfigPath(), linkconfig.WithLogger(logger))
	if err := store.Load(); err != nil {
		warnf(cmd, "link configurations could not be saved: %v", err)
	}
	return store, nil
}

// saveStore persists edits. A save failure leaves the edit unsaved and is
// reported as a warning.
func saveStore(cmd *cobra.Command, store *linkconfig.Store) {
	if err := store.Save(); err != nil {
		slog.Error("failed to save link configurations", "path", store.Path(), "error", err)
		warnf(cmd, "changes were not saved: %v", err)
		return
	}
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Saved %s\n", store.Path())
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List link configuration entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}

			t := report.NewTable()
			t.AppendHeader(table.Row{"Name", "Kind", "Alias of", "Tags", "Groups"})
			for _, name := range store.Names() {
				cfg, _ := store.Get(name)
				if cfg.IsAlias() {
					t.AppendRow(table.Row{name, "alias", cfg.UseConfig, "-", "-"})
					continue
				}
				t.AppendRow(table.Row{name, "full", "-", len(cfg.SelectedTags), len(cfg.Groups)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show one link configuration entry as stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			cfg, ok := store.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %q", linkconfig.ErrNotFound, args[0])
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return printLinkConfig(cmd, args[0], cfg, asJSON)
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Print the entry as JSON")
	return cmd
}

func newConfigResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve <url>",
		Short: "Show the configuration that applies to a URL",
		Long: `Resolve follows at most one alias from the entry for the URL and prints
the configuration it yields. A URL without an entry resolves to an empty
configuration, and an entry for the same URL with a different query string
is suggested.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			url := args[0]

			cfg, name, err := store.ResolveStrict(url)
			if err != nil {
				warnf(cmd, "%v", err)
			}
			out := cmd.OutOrStdout()
			switch {
			case name == "":
				fmt.Fprintf(out, "%s has no link configuration\n", url)
				if similar, ok := store.FindSimilar(url); ok {
					fmt.Fprintf(out, "similar entry: %s\n", similar)
				}
			case name != url:
				fmt.Fprintf(out, "%s uses the configuration of %s\n", url, name)
			}

			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return printLinkConfig(cmd, url, cfg, asJSON)
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Print the configuration as JSON")
	return cmd
}

// printLinkConfig writes cfg as JSON or as tag and group tables.
func printLinkConfig(cmd *cobra.Command, name string, cfg model.LinkConfig, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		data, err := json.MarshalIndent(map[string]model.LinkConfig{name: cfg}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	if cfg.IsAlias() {
		fmt.Fprintf(out, "%s is an alias of %s\n", name, cfg.UseConfig)
		return nil
	}
	fmt.Fprintln(out, report.RenderTags(cfg))
	fmt.Fprintln(out, report.RenderGroups(cfg))
	return nil
}

func newConfigAliasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "alias <name> <target>",
		Short: "Make an entry use another entry's configuration",
		Long: `Alias replaces the entry <name> with {"use_config": <target>}.
The target must exist and must not be an alias itself.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.SetAlias(args[0], args[1]); err != nil {
				return err
			}
			saveStore(cmd, store)
			return nil
		},
	}
}

func newConfigTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag <name> <pattern>",
		Short: "Select or deselect a tag pattern",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			name, pattern := args[0], model.TagPattern(args[1])

			remove, err := cmd.Flags().GetBool("remove")
			if err != nil {
				return err
			}
			if remove {
				if err := store.RemoveTag(name, pattern); err != nil {
					return err
				}
				saveStore(cmd, store)
				return nil
			}

			var settings model.TagSettings
			if cmd.Flags().Changed("follow") {
				follow, err := cmd.Flags().GetBool("follow")
				if err != nil {
					return err
				}
				settings.FollowLink = model.Bool(follow)
			}
			if settings.UseConfig, err = cmd.Flags().GetString("use-config"); err != nil {
				return err
			}
			if err := store.SetTag(name, pattern, settings); err != nil {
				return err
			}
			saveStore(cmd, store)
			return nil
		},
	}
	cmd.Flags().Bool("follow", false, "Follow links found in elements matching the pattern")
	cmd.Flags().String("use-config", "", "Configuration to apply to pages reached through the link")
	cmd.Flags().Bool("remove", false, "Deselect the pattern instead")
	return cmd
}

func newConfigGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group <name> <group>",
		Short: "Define or delete a tag group",
		Long: `Group stores a named constraint over tag patterns.

  unique      at most one member may match
  multiple    at most --count members may match (minimum 2)
  all         any number of members may match`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			name, groupName := args[0], args[1]

			remove, err := cmd.Flags().GetBool("remove")
			if err != nil {
				return err
			}
			if remove {
				if err := store.RemoveGroup(name, groupName); err != nil {
					return err
				}
				saveStore(cmd, store)
				return nil
			}

			typeName, err := cmd.Flags().GetString("type")
			if err != nil {
				return err
			}
			count, err := cmd.Flags().GetInt("count")
			if err != nil {
				return err
			}
			groupType, err := model.ParseGroupType(typeName, count)
			if err != nil {
				return err
			}
			members, err := cmd.Flags().GetStringArray("member")
			if err != nil {
				return err
			}
			group := model.Group{Type: groupType, Members: members}
			if !group.HasEnoughMembers() {
				warnf(cmd, "group %q has %d members; %s expects at least %d",
					groupName, len(members), groupType, groupType.MinMembers())
			}
			if err := store.SetGroup(name, groupName, group); err != nil {
				return err
			}
			saveStore(cmd, store)
			return nil
		},
	}
	cmd.Flags().String("type", "unique", "Group type: unique, multiple or all")
	cmd.Flags().Int("count", model.MinMultiple, "Maximum simultaneous matches for --type multiple")
	cmd.Flags().StringArray("member", nil, `Member pattern or "group:<name>" (repeatable)`)
	cmd.Flags().Bool("remove", false, "Delete the group instead")
	return cmd
}

func newConfigRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			saveStore(cmd, store)
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the document for broken aliases, references and patterns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			problems := linkconfig.Problems(store.Validate())
			if len(problems) == 0 {
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "%s: %d entries, no problems\n",
					store.Path(), store.Len())
				return nil
			}
			for _, p := range problems {
				color.New(color.FgRed).Fprintf(cmd.OutOrStdout(), "  - %v\n", p)
			}
			return fmt.Errorf("%w: %d found", errInvalidLinkConfig, len(problems))
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the link configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.ResolvedLinkConfigPath())
			return nil
		},
	}
}
