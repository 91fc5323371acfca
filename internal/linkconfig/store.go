package linkconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/nao1215/jurisdata/internal/model"
	"github.com/titanous/json5"
)

// DefaultName is the entry that always exists in the document.
const DefaultName = "default"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store holds every link configuration of one document.
// It is safe for concurrent use.
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]model.LinkConfig

	// undecoded holds loaded entries that failed to decode. They are
	// written back unchanged until replaced or removed.
	undecoded map[string]json.RawMessage

	// backupOnSave moves the existing file to "<path>.bak" before the next
	// write. Set when the file exists but could not be read.
	backupOnSave bool
}

// New creates a Store backed by path holding only the default entry.
// Call Load to read the document.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:    path,
		logger:  slog.Default(),
		entries: seed(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func seed() map[string]model.LinkConfig {
	return map[string]model.LinkConfig{DefaultName: model.EmptyConfig()}
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.path
}

// NormalizeURL strips everything from the first '?' onward.
func NormalizeURL(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

// Resolve returns the configuration that applies to url.
//
// A missing entry yields an empty configuration. An alias yields the entry
// it names, returned as stored without following it further. An alias to a
// missing entry yields an empty configuration.
func (s *Store) Resolve(url string) model.LinkConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.entries[url]
	if !ok {
		return model.EmptyConfig()
	}
	if !cfg.IsAlias() {
		return cfg.Clone()
	}
	target, ok := s.entries[cfg.UseConfig]
	if !ok {
		return model.EmptyConfig()
	}
	return target.Clone()
}

// ResolveStrict resolves url like Resolve and also returns the name of the
// entry that supplied the configuration. It returns ErrAliasNotFound when
// the alias target is missing and ErrAliasChain when the target is itself
// an alias. A url without an entry returns an empty configuration, an empty
// name and no error.
func (s *Store) ResolveStrict(url string) (model.LinkConfig, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.entries[url]
	if !ok {
		return model.EmptyConfig(), "", nil
	}
	if !cfg.IsAlias() {
		return cfg.Clone(), url, nil
	}
	target, ok := s.entries[cfg.UseConfig]
	if !ok {
		return model.EmptyConfig(), "", fmt.Errorf("%w: %q -> %q", ErrAliasNotFound, url, cfg.UseConfig)
	}
	if target.IsAlias() {
		return target.Clone(), cfg.UseConfig, fmt.Errorf("%w: %q -> %q -> %q", ErrAliasChain, url, cfg.UseConfig, target.UseConfig)
	}
	return target.Clone(), cfg.UseConfig, nil
}

// FindSimilar returns an existing entry, other than url itself, whose
// normalized form equals the normalized url. The lookup is advisory and
// never affects Resolve.
func (s *Store) FindSimilar(url string) (string, bool) {
	want := NormalizeURL(url)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, name := range slices.Sorted(maps.Keys(s.entries)) {
		if name != url && NormalizeURL(name) == want {
			return name, true
		}
	}
	return "", false
}

// Get returns a copy of the named entry.
func (s *Store) Get(name string) (model.LinkConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.entries[name]
	if !ok {
		return model.LinkConfig{}, false
	}
	return cfg.Clone(), true
}

// Names returns the entry names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.entries))
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Set stores cfg under name, replacing any existing entry.
func (s *Store) Set(name string, cfg model.LinkConfig) error {
	if name == "" {
		return ErrEmptyName
	}
	if cfg.IsAlias() {
		return s.SetAlias(name, cfg.UseConfig)
	}

	cfg = cfg.Clone()
	clampGroups(cfg.Groups)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = cfg
	return nil
}

// clampGroups raises every Multiple(n) below model.MinMultiple.
func clampGroups(groups map[string]model.Group) {
	for name, g := range groups {
		if g.Type.Kind() == model.GroupMultiple {
			g.Type = model.NewMultiple(g.Type.Count())
			groups[name] = g
		}
	}
}

// SetAlias makes name an alias of target. The target must exist and must
// not be an alias itself.
func (s *Store) SetAlias(name, target string) error {
	if name == "" || target == "" {
		return ErrEmptyName
	}
	if name == target {
		return fmt.Errorf("%w: %q", ErrSelfAlias, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.entries[target]
	if !ok {
		return fmt.Errorf("%w: %q", ErrAliasNotFound, target)
	}
	if t.IsAlias() {
		return fmt.Errorf("%w: %q -> %q", ErrAliasChain, target, t.UseConfig)
	}
	if s.isAliasTargetLocked(name) {
		return fmt.Errorf("%w: other entries alias %q", ErrAliasChain, name)
	}
	s.entries[name] = model.Alias(target)
	return nil
}

// isAliasTargetLocked reports whether any alias points at name.
func (s *Store) isAliasTargetLocked(name string) bool {
	for _, cfg := range s.entries {
		if cfg.UseConfig == name {
			return true
		}
	}
	return false
}

// fullLocked returns the full configuration stored under name, creating an
// empty one when name is missing.
func (s *Store) fullLocked(name string) (model.LinkConfig, error) {
	if name == "" {
		return model.LinkConfig{}, ErrEmptyName
	}
	cfg, ok := s.entries[name]
	if !ok {
		return model.EmptyConfig(), nil
	}
	if cfg.IsAlias() {
		return model.LinkConfig{}, fmt.Errorf("%w: %q uses %q", ErrIsAlias, name, cfg.UseConfig)
	}
	return cfg.Clone(), nil
}

// SetTag selects pattern in the named entry with the given settings. The
// entry is created when missing. Regex patterns must compile.
func (s *Store) SetTag(name string, pattern model.TagPattern, settings model.TagSettings) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if _, err := pattern.Compile(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.fullLocked(name)
	if err != nil {
		return err
	}
	if settings.FollowLink != nil {
		settings.FollowLink = model.Bool(*settings.FollowLink)
	}
	cfg.SelectedTags[string(pattern)] = settings
	s.entries[name] = cfg
	return nil
}

// RemoveTag deselects pattern from the named entry.
func (s *Store) RemoveTag(name string, pattern model.TagPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.existingFullLocked(name)
	if err != nil {
		return err
	}
	if _, ok := cfg.SelectedTags[string(pattern)]; !ok {
		return fmt.Errorf("%w: tag %q in %q", ErrNotFound, pattern, name)
	}
	delete(cfg.SelectedTags, string(pattern))
	s.entries[name] = cfg
	return nil
}

// SetGroup stores group under groupName in the named entry. The entry is
// created when missing and Multiple(n) is clamped to at least
// model.MinMultiple.
func (s *Store) SetGroup(name, groupName string, group model.Group) error {
	if groupName == "" {
		return ErrEmptyName
	}
	if group.Type.Kind() == model.GroupMultiple {
		group.Type = model.NewMultiple(group.Type.Count())
	}
	for _, p := range group.Patterns() {
		if _, err := p.Compile(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.fullLocked(name)
	if err != nil {
		return err
	}
	cfg.Groups[groupName] = group.Clone()
	s.entries[name] = cfg
	return nil
}

// RemoveGroup deletes groupName from the named entry.
func (s *Store) RemoveGroup(name, groupName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.existingFullLocked(name)
	if err != nil {
		return err
	}
	if _, ok := cfg.Groups[groupName]; !ok {
		return fmt.Errorf("%w: group %q in %q", ErrNotFound, groupName, name)
	}
	delete(cfg.Groups, groupName)
	s.entries[name] = cfg
	return nil
}

func (s *Store) existingFullLocked(name string) (model.LinkConfig, error) {
	if _, ok := s.entries[name]; !ok {
		return model.LinkConfig{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return s.fullLocked(name)
}

// Remove deletes the named entry. The default entry cannot be removed.
func (s *Store) Remove(name string) error {
	if name == DefaultName {
		return ErrRemoveDefault
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[name]
	_, raw := s.undecoded[name]
	if !ok && !raw {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(s.entries, name)
	delete(s.undecoded, name)
	return nil
}

// Apply stores cfg under name and persists the whole document.
func (s *Store) Apply(name string, cfg model.LinkConfig) error {
	if err := s.Set(name, cfg); err != nil {
		return err
	}
	return s.Save()
}

// Load replaces the entries with the document at the store path.
//
// A missing or unparseable document is replaced by the built-in default,
// which is persisted immediately; an unparseable one is first copied to
// "<path>.bak". A file that exists but cannot be read is left in place and
// moved to "<path>.bak" on the next save. Entries that fail to decode are
// kept out of the store but written back unchanged, and the document is
// copied to "<path>.bak". A document without a default entry gets one and
// is persisted. Only persistence failures are returned.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.undecoded = nil
	s.backupOnSave = false

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.entries = seed()
		if errors.Is(err, fs.ErrNotExist) {
			return s.saveLocked()
		}
		s.logger.Warn("failed to read link configurations, using default",
			"path", s.path, "error", err)
		s.backupOnSave = true
		return nil
	}

	entries, undecoded, err := s.decode(data)
	if err != nil {
		s.logger.Warn("failed to parse link configurations, using default",
			"path", s.path, "error", err)
		if err := os.WriteFile(s.path+".bak", data, 0o600); err != nil {
			s.logger.Warn("failed to back up link configurations", "error", err)
		}
		s.entries = seed()
		return s.saveLocked()
	}

	s.entries = entries
	if len(undecoded) > 0 {
		s.undecoded = undecoded
		if err := os.WriteFile(s.path+".bak", data, 0o600); err != nil {
			s.logger.Warn("failed to back up link configurations", "error", err)
		}
	}
	if _, ok := s.entries[DefaultName]; !ok {
		s.entries[DefaultName] = model.EmptyConfig()
		return s.saveLocked()
	}
	return nil
}

// decode parses a lenient JSON5 document into entries. Entries that do not
// decode are returned separately as strict JSON.
func (s *Store) decode(data []byte) (map[string]model.LinkConfig, map[string]json.RawMessage, error) {
	var doc any
	if err := json5.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, nil, errors.New("document is not an object")
	}

	entries := make(map[string]model.LinkConfig, len(obj))
	var undecoded map[string]json.RawMessage
	for name, raw := range obj {
		strict, err := json.Marshal(raw)
		if err != nil {
			return nil, nil, err
		}
		var cfg model.LinkConfig
		if err := json.Unmarshal(strict, &cfg); err != nil {
			s.logger.Warn("keeping undecodable link configuration as is", "name", name, "error", err)
			if undecoded == nil {
				undecoded = make(map[string]json.RawMessage)
			}
			undecoded[name] = strict
			continue
		}
		entries[name] = cfg
	}
	return entries, undecoded, nil
}

// Undecoded returns the names of loaded entries that could not be decoded,
// sorted.
func (s *Store) Undecoded() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.undecoded {
		if _, ok := s.entries[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Save writes every entry to the store path.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := encodeEntries(s.entries, s.undecoded)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	if s.backupOnSave {
		if err := os.Rename(s.path, s.path+".bak"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: failed to back up unreadable document: %w", ErrPersist, err)
		}
		s.backupOnSave = false
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	s.logger.Debug("link configurations saved", "path", s.path, "entries", len(s.entries))
	return nil
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place. path is unchanged on failure.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".link_configs-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	success = true
	return nil
}

// Document returns the serialized document as Save would write it.
func (s *Store) Document() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return encodeEntries(s.entries, s.undecoded)
}

// encodeEntries renders the document as indented JSON without HTML
// escaping, so URLs stay readable. Decoded entries win over undecoded ones
// of the same name.
func encodeEntries(entries map[string]model.LinkConfig, undecoded map[string]json.RawMessage) ([]byte, error) {
	doc := make(map[string]any, len(entries)+len(undecoded))
	for name, raw := range undecoded {
		doc[name] = raw
	}
	for name, cfg := range entries {
		doc[name] = cfg
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
