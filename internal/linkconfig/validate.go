package linkconfig

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nao1215/jurisdata/internal/model"
	"go.uber.org/multierr"
)

// Validate checks the whole document and returns every problem found,
// combined with multierr. It reports alias chains and cycles, aliases and
// tag use_config values naming missing entries, group references to
// missing groups, regex patterns that do not compile and entries that did
// not decode.
func (s *Store) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs error
	for _, name := range slices.Sorted(maps.Keys(s.entries)) {
		cfg := s.entries[name]
		if cfg.IsAlias() {
			errs = multierr.Append(errs, s.validateAliasLocked(name))
			continue
		}
		errs = multierr.Append(errs, s.validateFullLocked(name, cfg))
	}
	for _, name := range slices.Sorted(maps.Keys(s.undecoded)) {
		if _, ok := s.entries[name]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", ErrUndecodable, name))
		}
	}
	return errs
}

// Problems returns the individual errors reported by Validate.
func Problems(err error) []error {
	return multierr.Errors(err)
}

func (s *Store) validateAliasLocked(name string) error {
	path := []string{name}
	seen := map[string]bool{name: true}
	current := s.entries[name]

	for current.IsAlias() {
		target := current.UseConfig
		path = append(path, target)
		if seen[target] {
			return fmt.Errorf("%w: %v", ErrAliasCycle, path)
		}
		next, ok := s.entries[target]
		if !ok {
			return fmt.Errorf("%w: %q -> %q", ErrAliasNotFound, path[len(path)-2], target)
		}
		seen[target] = true
		current = next
	}

	if len(path) > 2 {
		return fmt.Errorf("%w: %v", ErrAliasChain, path)
	}
	return nil
}

func (s *Store) validateFullLocked(name string, cfg model.LinkConfig) error {
	var errs error

	for _, pattern := range slices.Sorted(maps.Keys(cfg.SelectedTags)) {
		if _, err := model.TagPattern(pattern).Compile(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%q: %w: %w", name, ErrInvalidPattern, err))
		}
		target := cfg.SelectedTags[pattern].UseConfig
		if target == "" {
			continue
		}
		if _, ok := s.entries[target]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("%q: tag %q: %w: %q", name, pattern, ErrDanglingConfigRef, target))
		}
	}

	for _, groupName := range slices.Sorted(maps.Keys(cfg.Groups)) {
		group := cfg.Groups[groupName]
		for _, ref := range group.GroupRefs() {
			if _, ok := cfg.Groups[ref]; !ok {
				errs = multierr.Append(errs, fmt.Errorf("%q: group %q: %w: %q", name, groupName, ErrDanglingGroupRef, ref))
			}
		}
		for _, p := range group.Patterns() {
			if _, err := p.Compile(); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%q: group %q: %w: %w", name, groupName, ErrInvalidPattern, err))
			}
		}
	}
	return errs
}
