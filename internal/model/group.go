package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MinMultiple is the smallest n accepted for Multiple(n) when editing.
const MinMultiple = 2

// GroupRefPrefix marks a group member that references another group.
const GroupRefPrefix = "group:"

// ErrInvalidGroupType is returned when a group type cannot be decoded.
var ErrInvalidGroupType = errors.New("invalid group type: expected \"unique\", \"all\" or {\"multiple\": n}")

// GroupKind enumerates the group type variants.
type GroupKind int

const (
	// GroupUnique allows exactly one member to match.
	GroupUnique GroupKind = iota

	// GroupMultiple allows up to n members to match.
	GroupMultiple

	// GroupAll places no limit on how many members match.
	GroupAll
)

// String returns the wire name of the kind.
func (k GroupKind) String() string {
	switch k {
	case GroupUnique:
		return "unique"
	case GroupMultiple:
		return "multiple"
	case GroupAll:
		return "all"
	default:
		return "unknown"
	}
}

// GroupType is the tagged union Unique | Multiple(n) | All.
// The zero value is Unique.
//
// JSON encoding: "unique", "all", or {"multiple": n}.
type GroupType struct {
	kind GroupKind
	n    int
}

// Unique returns the Unique group type.
func Unique() GroupType { return GroupType{kind: GroupUnique} }

// All returns the All group type.
func All() GroupType { return GroupType{kind: GroupAll} }

// NewMultiple returns Multiple(n) with n clamped to at least MinMultiple.
func NewMultiple(n int) GroupType {
	if n < MinMultiple {
		n = MinMultiple
	}
	return GroupType{kind: GroupMultiple, n: n}
}

// ParseGroupType builds a group type from its name. n is only used for
// "multiple" and is clamped like NewMultiple.
func ParseGroupType(name string, n int) (GroupType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "unique":
		return Unique(), nil
	case "all":
		return All(), nil
	case "multiple":
		return NewMultiple(n), nil
	default:
		return GroupType{}, fmt.Errorf("%w: %q", ErrInvalidGroupType, name)
	}
}

// Kind returns the variant.
func (t GroupType) Kind() GroupKind { return t.kind }

// Count returns n for Multiple(n), 1 for Unique and 0 for All.
func (t GroupType) Count() int {
	switch t.kind {
	case GroupMultiple:
		return t.n
	case GroupUnique:
		return 1
	default:
		return 0
	}
}

// MaxMatches reports how many members may match at once. bounded is false
// for All.
func (t GroupType) MaxMatches() (n int, bounded bool) {
	switch t.kind {
	case GroupUnique:
		return 1, true
	case GroupMultiple:
		return t.n, true
	default:
		return 0, false
	}
}

// MinMembers is the member count a group of this type needs to be
// meaningful: n for Multiple(n), 1 otherwise. The store does not enforce it.
func (t GroupType) MinMembers() int {
	if t.kind == GroupMultiple {
		return t.n
	}
	return 1
}

// Equal reports whether t and other are the same variant with the same n.
func (t GroupType) Equal(other GroupType) bool {
	return t.kind == other.kind && (t.kind != GroupMultiple || t.n == other.n)
}

// String returns "unique", "all" or "multiple(n)".
func (t GroupType) String() string {
	if t.kind == GroupMultiple {
		return "multiple(" + strconv.Itoa(t.n) + ")"
	}
	return t.kind.String()
}

// MarshalJSON implements json.Marshaler.
func (t GroupType) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case GroupUnique, GroupAll:
		return json.Marshal(t.kind.String())
	case GroupMultiple:
		return json.Marshal(map[string]int{"multiple": t.n})
	default:
		return nil, ErrInvalidGroupType
	}
}

// UnmarshalJSON implements json.Unmarshaler. A decoded Multiple(n) keeps n
// as written; clamping only applies to edits.
func (t *GroupType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidGroupType
	}

	if data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidGroupType, err)
		}
		switch name {
		case "unique":
			*t = Unique()
		case "all":
			*t = All()
		default:
			return fmt.Errorf("%w: %q", ErrInvalidGroupType, name)
		}
		return nil
	}

	var obj map[string]json.Number
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidGroupType, err)
	}
	raw, ok := obj["multiple"]
	if !ok || len(obj) != 1 {
		return ErrInvalidGroupType
	}
	n, err := raw.Int64()
	if err != nil {
		return fmt.Errorf("%w: multiple count %q", ErrInvalidGroupType, raw.String())
	}
	*t = GroupType{kind: GroupMultiple, n: int(n)}
	return nil
}

// Group is a named constraint over which tag patterns may match together.
type Group struct {
	// Type limits how many members may match simultaneously.
	Type GroupType `json:"type"`

	// Members is the ordered list of tag patterns and "group:<name>"
	// references.
	Members []string `json:"members"`
}

// MarshalJSON always writes members as an array.
func (g Group) MarshalJSON() ([]byte, error) {
	type wire Group
	w := wire(g)
	if w.Members == nil {
		w.Members = []string{}
	}
	return json.Marshal(w)
}

// GroupRefs returns the names of the groups referenced by members.
func (g Group) GroupRefs() []string {
	var refs []string
	for _, m := range g.Members {
		if name, ok := strings.CutPrefix(m, GroupRefPrefix); ok {
			refs = append(refs, name)
		}
	}
	return refs
}

// Patterns returns the members that are tag patterns.
func (g Group) Patterns() []TagPattern {
	var patterns []TagPattern
	for _, m := range g.Members {
		if !strings.HasPrefix(m, GroupRefPrefix) {
			patterns = append(patterns, TagPattern(m))
		}
	}
	return patterns
}

// HasEnoughMembers reports whether the group has at least Type.MinMembers()
// members.
func (g Group) HasEnoughMembers() bool {
	return len(g.Members) >= g.Type.MinMembers()
}

// Clone returns a copy that shares no slice with g.
func (g Group) Clone() Group {
	out := Group{Type: g.Type}
	if g.Members != nil {
		out.Members = append([]string{}, g.Members...)
	}
	return out
}

// Equal compares type and ordered members. Nil and empty members are equal.
func (g Group) Equal(other Group) bool {
	if !g.Type.Equal(other.Type) || len(g.Members) != len(other.Members) {
		return false
	}
	for i := range g.Members {
		if g.Members[i] != other.Members[i] {
			return false
		}
	}
	return true
}
