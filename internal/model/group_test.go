package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGroupTypeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		typ  GroupType
		want string
	}{
		{name: "unique", typ: Unique(), want: `"unique"`},
		{name: "all", typ: All(), want: `"all"`},
		{name: "multiple", typ: NewMultiple(3), want: `{"multiple":3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(tt.typ)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}

			var decoded GroupType
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !decoded.Equal(tt.typ) {
				t.Errorf("decoded %v, want %v", decoded, tt.typ)
			}
		})
	}
}

func TestGroupTypeUnmarshalPreservesCount(t *testing.T) {
	t.Parallel()

	var typ GroupType
	if err := json.Unmarshal([]byte(`{"multiple": 1}`), &typ); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if typ.Kind() != GroupMultiple || typ.Count() != 1 {
		t.Errorf("got %v, want multiple(1)", typ)
	}
}

func TestGroupTypeUnmarshalInvalid(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`"several"`,
		`{"multiple": "two"}`,
		`{"many": 2}`,
		`{"multiple": 2, "extra": 1}`,
		`42`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			t.Parallel()

			var typ GroupType
			err := json.Unmarshal([]byte(in), &typ)
			if !errors.Is(err, ErrInvalidGroupType) {
				t.Errorf("Unmarshal(%s) error = %v, want ErrInvalidGroupType", in, err)
			}
		})
	}
}

func TestNewMultipleClamps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want int
	}{
		{in: -5, want: 2},
		{in: 0, want: 2},
		{in: 1, want: 2},
		{in: 2, want: 2},
		{in: 7, want: 7},
	}

	for _, tt := range tests {
		if got := NewMultiple(tt.in).Count(); got != tt.want {
			t.Errorf("NewMultiple(%d).Count() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestGroupTypeMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		typ         GroupType
		wantMax     int
		wantBounded bool
		wantMin     int
		wantString  string
	}{
		{name: "unique", typ: Unique(), wantMax: 1, wantBounded: true, wantMin: 1, wantString: "unique"},
		{name: "multiple", typ: NewMultiple(4), wantMax: 4, wantBounded: true, wantMin: 4, wantString: "multiple(4)"},
		{name: "all", typ: All(), wantMax: 0, wantBounded: false, wantMin: 1, wantString: "all"},
		{name: "zero value is unique", typ: GroupType{}, wantMax: 1, wantBounded: true, wantMin: 1, wantString: "unique"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n, bounded := tt.typ.MaxMatches()
			if n != tt.wantMax || bounded != tt.wantBounded {
				t.Errorf("MaxMatches() = (%d, %v), want (%d, %v)", n, bounded, tt.wantMax, tt.wantBounded)
			}
			if got := tt.typ.MinMembers(); got != tt.wantMin {
				t.Errorf("MinMembers() = %d, want %d", got, tt.wantMin)
			}
			if got := tt.typ.String(); got != tt.wantString {
				t.Errorf("String() = %q, want %q", got, tt.wantString)
			}
		})
	}
}

func TestParseGroupType(t *testing.T) {
	t.Parallel()

	typ, err := ParseGroupType("Multiple", 1)
	if err != nil {
		t.Fatalf("ParseGroupType() error = %v", err)
	}
	if !typ.Equal(NewMultiple(2)) {
		t.Errorf("ParseGroupType() = %v, want multiple(2)", typ)
	}

	if _, err := ParseGroupType("some", 0); !errors.Is(err, ErrInvalidGroupType) {
		t.Errorf("ParseGroupType(some) error = %v, want ErrInvalidGroupType", err)
	}
}

func TestGroupMembers(t *testing.T) {
	t.Parallel()

	g := Group{
		Type:    NewMultiple(3),
		Members: []string{"title", "group:meta", "regex:^price-.*$", "group:links"},
	}

	if diff := cmp.Diff([]string{"meta", "links"}, g.GroupRefs()); diff != "" {
		t.Errorf("GroupRefs() mismatch (-want +got):\n%s", diff)
	}
	want := []TagPattern{"title", "regex:^price-.*$"}
	if diff := cmp.Diff(want, g.Patterns()); diff != "" {
		t.Errorf("Patterns() mismatch (-want +got):\n%s", diff)
	}
	if !g.HasEnoughMembers() {
		t.Error("HasEnoughMembers() = false, want true")
	}

	g.Members = g.Members[:2]
	if g.HasEnoughMembers() {
		t.Error("HasEnoughMembers() = true for 2 members of multiple(3)")
	}
}

func TestGroupMarshalEmptyMembers(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Group{Type: All()})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if want := `{"type":"all","members":[]}`; string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestGroupCloneIsIndependent(t *testing.T) {
	t.Parallel()

	g := Group{Type: Unique(), Members: []string{"a", "b"}}
	c := g.Clone()
	c.Members[0] = "changed"

	if g.Members[0] != "a" {
		t.Errorf("original mutated through clone: %v", g.Members)
	}
}
