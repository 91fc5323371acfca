package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/nao1215/jurisdata/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *HistoryDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSession(url string, at time.Time, outcome model.Outcome, result model.Result) *model.Session {
	s := model.NewSession(uuid.NewString(), url)
	s.StartedAt = at
	s.Outcome = outcome
	s.Result = result
	s.Duration = 1500 * time.Millisecond
	s.BytesReceived = 321
	return s
}

func sampleResult(count int) model.Result {
	return model.Result{
		Classes: []model.DiscoveredElement{
			{CSSClass: "title", TagName: "h1", ElementCount: 1, ExampleContent: "Hello"},
			{CSSClass: "item", TagName: "a", ElementCount: count, IsLink: true},
		},
		OtherData: []model.DiscoveredElement{
			{TagName: "span", ElementCount: 4},
		},
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if err == nil {
			t.Fatal("expected error for missing database")
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		s := newSession("https://example.com/", time.Now(), model.OutcomeCompleted, sampleResult(3))
		if err := db.RecordSession(context.Background(), s); err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()
		if _, err := db.GetDiscovery(context.Background(), s.ID); err != nil {
			t.Errorf("GetDiscovery() after reopen error = %v", err)
		}
	})
}

func TestRecordAndGetDiscovery(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	s := newSession("https://example.com/list?page=1", at, model.OutcomeCompleted, sampleResult(3))
	s.ConfigName = "https://example.com/list"
	if err := db.RecordSession(ctx, s); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}

	got, err := db.GetDiscovery(ctx, s.ID)
	if err != nil {
		t.Fatalf("GetDiscovery() error = %v", err)
	}

	want := Record{
		ID:            s.ID,
		URL:           s.URL,
		Timestamp:     at,
		Outcome:       model.OutcomeCompleted,
		BytesReceived: 321,
		Duration:      1500 * time.Millisecond,
		ClassCount:    2,
		OtherCount:    1,
		LinkCount:     1,
		ConfigName:    "https://example.com/list",
		Result:        sampleResult(3),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetDiscovery() mismatch (-want +got):\n%s", diff)
	}
	if !got.Succeeded() {
		t.Error("Succeeded() = false")
	}

	if _, err := db.GetDiscovery(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDiscovery(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRecordSessionReplacesSameID(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	s := newSession("https://example.com/", time.Now(), model.OutcomeFailed, model.Result{})
	s.Error = "malformed"
	if err := db.RecordSession(ctx, s); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	s.Outcome = model.OutcomeCompleted
	s.Error = ""
	s.Result = sampleResult(1)
	if err := db.RecordSession(ctx, s); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}

	records, err := db.History(ctx, s.URL, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(records) != 1 || records[0].Outcome != model.OutcomeCompleted || records[0].Error != "" {
		t.Errorf("History() = %+v, want one completed record", records)
	}
}

func TestHistoryOrdering(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	url := "https://example.com/"
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	sessions := []*model.Session{
		newSession(url, base, model.OutcomeCompleted, sampleResult(1)),
		newSession(url, base.Add(time.Second), model.OutcomeFailed, model.Result{}),
		newSession(url, base.Add(500*time.Millisecond), model.OutcomeCompleted, sampleResult(2)),
		newSession("https://other.example/", base.Add(time.Hour), model.OutcomeCompleted, sampleResult(9)),
	}
	for _, s := range sessions {
		if err := db.RecordSession(ctx, s); err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
	}

	all, err := db.History(ctx, url, 0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	gotIDs := make([]string, 0, len(all))
	for _, r := range all {
		gotIDs = append(gotIDs, r.ID)
	}
	wantIDs := []string{sessions[1].ID, sessions[2].ID, sessions[0].ID}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("History() order mismatch (-want +got):\n%s", diff)
	}

	ok, err := db.SuccessfulHistory(ctx, url, 2)
	if err != nil {
		t.Fatalf("SuccessfulHistory() error = %v", err)
	}
	if len(ok) != 2 || ok[0].ID != sessions[2].ID || ok[1].ID != sessions[0].ID {
		t.Errorf("SuccessfulHistory() = %+v", ok)
	}

	limited, err := db.History(ctx, url, 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("History(limit 1) returned %d records", len(limited))
	}
}

func TestListURLs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, s := range []*model.Session{
		newSession("https://b.example/", base, model.OutcomeCompleted, sampleResult(1)),
		newSession("https://a.example/", base, model.OutcomeCancelled, model.Result{}),
		newSession("https://b.example/", base.Add(time.Minute), model.OutcomeFailed, model.Result{}),
	} {
		if err := db.RecordSession(ctx, s); err != nil {
			t.Fatalf("RecordSession() error = %v", err)
		}
	}

	got, err := db.ListURLs(ctx)
	if err != nil {
		t.Fatalf("ListURLs() error = %v", err)
	}
	want := []URLSummary{
		{URL: "https://a.example/", Runs: 1, Successful: 0, LastSeen: base},
		{URL: "https://b.example/", Runs: 2, Successful: 1, LastSeen: base.Add(time.Minute)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListURLs() mismatch (-want +got):\n%s", diff)
	}
}

func TestHasRecentDiscoveryAndPrune(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	url := "https://example.com/"

	old := newSession(url, time.Now().Add(-48*time.Hour), model.OutcomeCompleted, sampleResult(1))
	if err := db.RecordSession(ctx, old); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}

	recent, err := db.HasRecentDiscovery(ctx, url, time.Hour)
	if err != nil {
		t.Fatalf("HasRecentDiscovery() error = %v", err)
	}
	if recent {
		t.Error("HasRecentDiscovery() = true for a two day old discovery")
	}

	fresh := newSession(url, time.Now(), model.OutcomeCompleted, sampleResult(1))
	if err := db.RecordSession(ctx, fresh); err != nil {
		t.Fatalf("RecordSession() error = %v", err)
	}
	if recent, _ := db.HasRecentDiscovery(ctx, url, time.Hour); !recent {
		t.Error("HasRecentDiscovery() = false after a fresh discovery")
	}

	removed, err := db.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune() removed %d, want 1", removed)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want time.Time
	}{
		{in: "2026-01-02T03:04:05.000000000Z", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2026-01-02T03:04:05Z", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "2026-01-02 03:04:05", want: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{in: "garbage", want: time.Time{}},
	}

	for _, tt := range tests {
		if got := parseTimestamp(tt.in); !got.Equal(tt.want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
