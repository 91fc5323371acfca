package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nao1215/jurisdata/internal/linkconfig"
	"github.com/nao1215/jurisdata/internal/model"
)

const decisionsURL = "https://courts.example/decisions"

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// loadStore reads back what the commands persisted.
func loadStore(t *testing.T, path string) *linkconfig.Store {
	t.Helper()

	store := linkconfig.New(path)
	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return store
}

func TestConfigTagCmd(t *testing.T) {
	t.Parallel()

	t.Run("selects a tag with settings", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		stdout, _, err := env.run(t, "config", "tag", decisionsURL, "decision-title",
			"--follow", "--use-config", linkconfig.DefaultName)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Saved "+env.linkConfig) {
			t.Errorf("expected save confirmation, got %q", stdout)
		}

		cfg, ok := loadStore(t, env.linkConfig).Get(decisionsURL)
		if !ok {
			t.Fatal("entry was not persisted")
		}
		want := model.TagSettings{FollowLink: model.Bool(true), UseConfig: linkconfig.DefaultName}
		if diff := cmp.Diff(want, cfg.SelectedTags["decision-title"]); diff != "" {
			t.Errorf("tag settings mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("leaves follow unset when the flag is absent", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if _, _, err := env.run(t, "config", "tag", decisionsURL, "title"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, _ := loadStore(t, env.linkConfig).Get(decisionsURL)
		if got := cfg.SelectedTags["title"].FollowLink; got != nil {
			t.Errorf("FollowLink = %v, want nil", *got)
		}
	})

	t.Run("removes a tag", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if _, _, err := env.run(t, "config", "tag", decisionsURL, "title"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, _, err := env.run(t, "config", "tag", decisionsURL, "title", "--remove"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		cfg, _ := loadStore(t, env.linkConfig).Get(decisionsURL)
		if _, ok := cfg.SelectedTags["title"]; ok {
			t.Error("tag was not removed")
		}
	})

	t.Run("rejects an invalid regex", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, _, err := env.run(t, "config", "tag", decisionsURL, "regex:([")
		if !errors.Is(err, linkconfig.ErrInvalidPattern) {
			t.Errorf("error = %v, want ErrInvalidPattern", err)
		}
	})
}

func TestConfigGroupCmd(t *testing.T) {
	t.Parallel()

	t.Run("stores a multiple group", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, _, err := env.run(t, "config", "group", decisionsURL, "headline",
			"--type", "multiple", "--count", "3",
			"--member", "title", "--member", "subtitle", "--member", "regex:^h[1-3]$")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg, _ := loadStore(t, env.linkConfig).Get(decisionsURL)
		got, ok := cfg.Groups["headline"]
		if !ok {
			t.Fatal("group was not persisted")
		}
		wantType, err := model.ParseGroupType("multiple", 3)
		if err != nil {
			t.Fatalf("ParseGroupType() error = %v", err)
		}
		want := model.Group{Type: wantType, Members: []string{"title", "subtitle", "regex:^h[1-3]$"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("group mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("warns about too few members", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, stderr, err := env.run(t, "config", "group", decisionsURL, "solo", "--member", "title")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr, "warning:") {
			t.Errorf("expected a warning, got %q", stderr)
		}
	})

	t.Run("rejects an unknown type", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if _, _, err := env.run(t, "config", "group", decisionsURL, "g", "--type", "some"); err == nil {
			t.Error("expected error for unknown group type")
		}
	})
}

func TestConfigAliasAndResolve(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	page2 := decisionsURL + "?page=2"

	if _, _, err := env.run(t, "config", "tag", decisionsURL, "title"); err != nil {
		t.Fatalf("tag: %v", err)
	}
	if _, _, err := env.run(t, "config", "alias", page2, decisionsURL); err != nil {
		t.Fatalf("alias: %v", err)
	}

	t.Run("alias resolves to its target", func(t *testing.T) {
		stdout, _, err := env.run(t, "config", "resolve", page2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "uses the configuration of "+decisionsURL) {
			t.Errorf("unexpected output %q", stdout)
		}
		if !strings.Contains(stdout, "title") {
			t.Errorf("expected resolved tags in output, got %q", stdout)
		}
	})

	t.Run("resolve prints JSON", func(t *testing.T) {
		stdout, _, err := env.run(t, "config", "resolve", "--json", decisionsURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got map[string]model.LinkConfig
		if err := json.Unmarshal([]byte(stdout), &got); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, stdout)
		}
		if _, ok := got[decisionsURL].SelectedTags["title"]; !ok {
			t.Errorf("resolved config = %+v", got)
		}
	})

	t.Run("unknown URL suggests a similar entry", func(t *testing.T) {
		stdout, _, err := env.run(t, "config", "resolve", decisionsURL+"?page=9")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "has no link configuration") || !strings.Contains(stdout, "similar entry:") {
			t.Errorf("unexpected output %q", stdout)
		}
	})

	t.Run("alias of an alias is rejected", func(t *testing.T) {
		_, _, err := env.run(t, "config", "alias", "other", page2)
		if !errors.Is(err, linkconfig.ErrAliasChain) {
			t.Errorf("error = %v, want ErrAliasChain", err)
		}
	})

	t.Run("show prints the stored alias", func(t *testing.T) {
		stdout, _, err := env.run(t, "config", "show", page2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "is an alias of "+decisionsURL) {
			t.Errorf("unexpected output %q", stdout)
		}
	})

	t.Run("list shows every entry", func(t *testing.T) {
		stdout, _, err := env.run(t, "config", "list")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, name := range []string{linkconfig.DefaultName, decisionsURL, page2} {
			if !strings.Contains(stdout, name) {
				t.Errorf("expected %q in list output:\n%s", name, stdout)
			}
		}
	})
}

func TestConfigRemoveCmd(t *testing.T) {
	t.Parallel()

	t.Run("removes an entry", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		if _, _, err := env.run(t, "config", "tag", decisionsURL, "title"); err != nil {
			t.Fatalf("tag: %v", err)
		}
		if _, _, err := env.run(t, "config", "remove", decisionsURL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := loadStore(t, env.linkConfig).Get(decisionsURL); ok {
			t.Error("entry was not removed")
		}
	})

	t.Run("default entry cannot be removed", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, _, err := env.run(t, "config", "remove", linkconfig.DefaultName)
		if !errors.Is(err, linkconfig.ErrRemoveDefault) {
			t.Errorf("error = %v, want ErrRemoveDefault", err)
		}
	})

	t.Run("show of a missing entry fails", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, _, err := env.run(t, "config", "show", "missing")
		if !errors.Is(err, linkconfig.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestConfigValidateCmd(t *testing.T) {
	t.Parallel()

	t.Run("clean document", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		stdout, _, err := env.run(t, "config", "validate")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "no problems") {
			t.Errorf("unexpected output %q", stdout)
		}
	})

	t.Run("broken alias", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		writeFile(t, env.linkConfig, `{
			// hand-edited
			"default": {"groups": {}, "selected_tags": {}},
			"orphan": {"use_config": "missing"},
		}`)

		stdout, _, err := env.run(t, "config", "validate")
		if !errors.Is(err, errInvalidLinkConfig) {
			t.Fatalf("error = %v, want errInvalidLinkConfig", err)
		}
		if !strings.Contains(stdout, "orphan") {
			t.Errorf("expected the broken entry in output, got %q", stdout)
		}
	})
}
