package model

import (
	"encoding/json"
	"maps"
)

// TagSettings are the per-tag options of a selected tag pattern.
type TagSettings struct {
	// FollowLink asks the service to follow the element's link. Nil means
	// "not set".
	FollowLink *bool `json:"follow_link,omitempty"`

	// UseConfig names the configuration to apply to followed pages.
	UseConfig string `json:"use_config,omitempty"`
}

// Follow reports whether FollowLink is set and true.
func (s TagSettings) Follow() bool {
	return s.FollowLink != nil && *s.FollowLink
}

// Equal compares the settings by value.
func (s TagSettings) Equal(other TagSettings) bool {
	if s.UseConfig != other.UseConfig {
		return false
	}
	if (s.FollowLink == nil) != (other.FollowLink == nil) {
		return false
	}
	return s.FollowLink == nil || *s.FollowLink == *other.FollowLink
}

// Bool returns a pointer to b, for TagSettings.FollowLink.
func Bool(b bool) *bool {
	return &b
}

// LinkConfig is the extraction configuration for a URL. It is either a
// pure alias ({"use_config": name}) or a full configuration with groups and
// selected tags.
type LinkConfig struct {
	// UseConfig, when non-empty, makes this entry an alias of another entry.
	UseConfig string

	// Groups maps group names to their constraint.
	Groups map[string]Group

	// SelectedTags maps tag patterns to their settings.
	SelectedTags map[string]TagSettings
}

// EmptyConfig returns a full configuration with no groups and no tags.
func EmptyConfig() LinkConfig {
	return LinkConfig{
		Groups:       map[string]Group{},
		SelectedTags: map[string]TagSettings{},
	}
}

// Alias returns an alias configuration pointing at target.
func Alias(target string) LinkConfig {
	return LinkConfig{UseConfig: target}
}

// IsAlias reports whether the entry redirects to another entry.
func (c LinkConfig) IsAlias() bool {
	return c.UseConfig != ""
}

// IsEmpty reports whether c is a full configuration without rules.
func (c LinkConfig) IsEmpty() bool {
	return !c.IsAlias() && len(c.Groups) == 0 && len(c.SelectedTags) == 0
}

// Clone returns a deep copy of c. Full configurations always get non-nil maps.
func (c LinkConfig) Clone() LinkConfig {
	if c.IsAlias() {
		return Alias(c.UseConfig)
	}
	out := EmptyConfig()
	for name, g := range c.Groups {
		out.Groups[name] = g.Clone()
	}
	for pattern, s := range c.SelectedTags {
		if s.FollowLink != nil {
			s.FollowLink = Bool(*s.FollowLink)
		}
		out.SelectedTags[pattern] = s
	}
	return out
}

// Equal compares two configurations by value. Nil and empty maps are equal.
func (c LinkConfig) Equal(other LinkConfig) bool {
	if c.UseConfig != other.UseConfig {
		return false
	}
	if !maps.EqualFunc(c.Groups, other.Groups, Group.Equal) {
		return false
	}
	return maps.EqualFunc(c.SelectedTags, other.SelectedTags, TagSettings.Equal)
}

type linkConfigWire struct {
	UseConfig    string                 `json:"use_config,omitempty"`
	Groups       map[string]Group       `json:"groups"`
	SelectedTags map[string]TagSettings `json:"selected_tags"`
}

type aliasWire struct {
	UseConfig string `json:"use_config"`
}

// MarshalJSON writes {"use_config": name} for aliases and
// {"groups": {...}, "selected_tags": {...}} otherwise.
func (c LinkConfig) MarshalJSON() ([]byte, error) {
	if c.IsAlias() {
		return json.Marshal(aliasWire{UseConfig: c.UseConfig})
	}
	w := linkConfigWire{Groups: c.Groups, SelectedTags: c.SelectedTags}
	if w.Groups == nil {
		w.Groups = map[string]Group{}
	}
	if w.SelectedTags == nil {
		w.SelectedTags = map[string]TagSettings{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads either document shape. When use_config is present the
// entry is an alias and any other fields are ignored.
func (c *LinkConfig) UnmarshalJSON(data []byte) error {
	var w linkConfigWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.UseConfig != "" {
		*c = Alias(w.UseConfig)
		return nil
	}
	*c = EmptyConfig()
	maps.Copy(c.Groups, w.Groups)
	maps.Copy(c.SelectedTags, w.SelectedTags)
	for name, g := range c.Groups {
		if g.Members == nil {
			g.Members = []string{}
			c.Groups[name] = g
		}
	}
	return nil
}
