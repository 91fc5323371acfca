package linkconfig

import "errors"

var (
	// ErrPersist is returned when the document cannot be written.
	ErrPersist = errors.New("failed to persist link configurations")

	// ErrNotFound is returned when a named entry does not exist.
	ErrNotFound = errors.New("link configuration not found")

	// ErrEmptyName is returned when an entry name is empty.
	ErrEmptyName = errors.New("link configuration name must not be empty")

	// ErrAliasChain is returned when an alias points at another alias.
	ErrAliasChain = errors.New("alias points at another alias")

	// ErrAliasCycle is returned when following aliases returns to an entry
	// already visited.
	ErrAliasCycle = errors.New("alias cycle")

	// ErrAliasNotFound is returned when an alias points at a missing entry.
	ErrAliasNotFound = errors.New("alias target not found")

	// ErrSelfAlias is returned when an entry would alias itself.
	ErrSelfAlias = errors.New("entry cannot alias itself")

	// ErrIsAlias is returned when tags or groups are edited on an alias.
	ErrIsAlias = errors.New("entry is an alias")

	// ErrRemoveDefault is returned when removing the default entry.
	ErrRemoveDefault = errors.New("the default link configuration cannot be removed")

	// ErrInvalidPattern is returned for a regex tag pattern that does not
	// compile.
	ErrInvalidPattern = errors.New("invalid tag pattern")

	// ErrDanglingGroupRef is returned when a group member references a group
	// that does not exist.
	ErrDanglingGroupRef = errors.New("group reference not found")

	// ErrUndecodable is reported for a loaded entry that is not a valid
	// link configuration.
	ErrUndecodable = errors.New("link configuration cannot be decoded")

	// ErrDanglingConfigRef is returned when a tag's use_config names a
	// missing entry.
	ErrDanglingConfigRef = errors.New("tag use_config target not found")
)
