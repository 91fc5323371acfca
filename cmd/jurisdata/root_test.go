package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"strconv"
	"testing"

	"golang.org/x/sync/errgroup"
)

// testEnv points the persistent flags at temporary files.
type testEnv struct {
	linkConfig string
	historyDir string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	dir := t.TempDir()
	return testEnv{
		linkConfig: filepath.Join(dir, "link_configs.json"),
		historyDir: filepath.Join(dir, "history"),
	}
}

// run executes the root command with args after the persistent flags.
func (e testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{
		"--link-config", e.linkConfig,
		"--history-dir", e.historyDir,
	}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// startService runs a fake discovery service that answers each scrape
// request with responses[url], or a failure when the URL is unknown.
func startService(t *testing.T, responses map[string]string) (string, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	var g errgroup.Group
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			g.Go(func() error {
				defer conn.Close()
				return serve(conn, responses)
			})
		}
	})
	t.Cleanup(func() {
		_ = ln.Close()
		if err := g.Wait(); err != nil {
			t.Errorf("fake service: %v", err)
		}
	})

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), strconv.Itoa(addr.Port)
}

func serve(conn net.Conn, responses map[string]string) error {
	dec := json.NewDecoder(conn)
	for {
		var req struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		}
		if err := dec.Decode(&req); err != nil {
			// The client closes the connection when it is done.
			return nil
		}
		resp, ok := responses[req.URL]
		if !ok {
			resp = `{"success":false}`
		}
		if _, err := conn.Write([]byte(resp)); err != nil {
			return nil
		}
	}
}

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "jurisdata" {
			t.Errorf("expected use 'jurisdata', got %q", cmd.Use)
		}
	})

	t.Run("has descriptions", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" || cmd.Long == "" {
			t.Error("expected non-empty short and long descriptions")
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has persistent flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"verbose", "settings", "link-config", "history-dir"} {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("expected persistent flag %q", name)
			}
		}
		if got := cmd.PersistentFlags().Lookup("verbose").Shorthand; got != "v" {
			t.Errorf("expected verbose shorthand 'v', got %q", got)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{
			"discover": false,
			"config":   false,
			"history":  false,
			"compare":  false,
			"init":     false,
			"version":  false,
		}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("persistent flags override defaults", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		stdout, _, err := env.run(t, "config", "path")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != env.linkConfig+"\n" {
			t.Errorf("config path = %q, want %q", stdout, env.linkConfig)
		}
	})

	t.Run("missing explicit settings file", func(t *testing.T) {
		t.Parallel()

		env := newTestEnv(t)
		_, _, err := env.run(t, "--settings", filepath.Join(t.TempDir(), "missing.yaml"), "config", "path")
		if err == nil {
			t.Fatal("expected error for missing settings file")
		}
	})

	t.Run("settings file supplies the link config path", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		settings := filepath.Join(dir, "settings.yaml")
		want := filepath.Join(dir, "from-settings.json")
		writeFile(t, settings, "linkConfigPath: "+want+"\n")

		cmd := NewRootCmd()
		var stdout bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--settings", settings, "config", "path"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout.String() != want+"\n" {
			t.Errorf("config path = %q, want %q", stdout.String(), want)
		}
	})
}
