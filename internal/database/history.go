package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/jurisdata/internal/model"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file created inside the history directory.
const FileName = "jurisdata.db"

// timestampLayout is fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a requested discovery does not exist.
var ErrNotFound = errors.New("discovery not found")

// HistoryDB stores finished discoveries.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file when missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS discoveries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		url TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		outcome TEXT NOT NULL,
		bytes_received INTEGER DEFAULT 0,
		duration_ms INTEGER DEFAULT 0,
		class_count INTEGER DEFAULT 0,
		other_count INTEGER DEFAULT 0,
		link_count INTEGER DEFAULT 0,
		config_name TEXT,
		error TEXT,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_discoveries_url ON discoveries(url);
	CREATE INDEX IF NOT EXISTS idx_discoveries_timestamp ON discoveries(timestamp);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Record is one stored discovery.
type Record struct {
	ID            string
	URL           string
	Timestamp     time.Time
	Outcome       model.Outcome
	BytesReceived int
	Duration      time.Duration
	ClassCount    int
	OtherCount    int
	LinkCount     int
	ConfigName    string
	Error         string
	Result        model.Result
}

// Succeeded reports whether the stored discovery completed.
func (r Record) Succeeded() bool {
	return r.Outcome == model.OutcomeCompleted
}

// RecordSession stores a finished discovery session. Recording the same ID
// twice replaces the earlier row.
func (h *HistoryDB) RecordSession(ctx context.Context, s *model.Session) error {
	resultJSON, err := json.Marshal(s.Result)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}

	timestamp := s.StartedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
	INSERT INTO discoveries (id, url, timestamp, outcome, bytes_received, duration_ms,
		class_count, other_count, link_count, config_name, error, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		outcome = excluded.outcome,
		bytes_received = excluded.bytes_received,
		duration_ms = excluded.duration_ms,
		class_count = excluded.class_count,
		other_count = excluded.other_count,
		link_count = excluded.link_count,
		config_name = excluded.config_name,
		error = excluded.error,
		result_json = excluded.result_json
	`

	_, err = h.db.ExecContext(ctx, query,
		s.ID,
		s.URL,
		timestamp.UTC().Format(timestampLayout),
		s.Outcome.String(),
		s.BytesReceived,
		s.Duration.Milliseconds(),
		len(s.Result.Classes),
		len(s.Result.OtherData),
		len(s.Result.Links()),
		s.ConfigName,
		s.Error,
		string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to record discovery: %w", err)
	}
	return nil
}

const recordColumns = `id, url, timestamp, outcome, bytes_received, duration_ms,
	class_count, other_count, link_count, config_name, error, result_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r          Record
		timestamp  string
		outcome    string
		durationMS int64
		configName sql.NullString
		errText    sql.NullString
		resultJSON string
	)

	if err := row.Scan(
		&r.ID,
		&r.URL,
		&timestamp,
		&outcome,
		&r.BytesReceived,
		&durationMS,
		&r.ClassCount,
		&r.OtherCount,
		&r.LinkCount,
		&configName,
		&errText,
		&resultJSON,
	); err != nil {
		return Record{}, err
	}

	r.Timestamp = parseTimestamp(timestamp)
	r.Outcome = model.ParseOutcome(outcome)
	r.Duration = time.Duration(durationMS) * time.Millisecond
	r.ConfigName = configName.String
	r.Error = errText.String
	if err := json.Unmarshal([]byte(resultJSON), &r.Result); err != nil {
		return Record{}, fmt.Errorf("failed to parse result: %w", err)
	}
	return r, nil
}

// GetDiscovery returns the discovery with the given ID.
func (h *HistoryDB) GetDiscovery(ctx context.Context, id string) (Record, error) {
	query := `SELECT ` + recordColumns + ` FROM discoveries WHERE id = ?`

	r, err := scanRecord(h.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to get discovery: %w", err)
	}
	return r, nil
}

// History returns the discoveries of url, newest first. limit <= 0 returns
// all of them.
func (h *HistoryDB) History(ctx context.Context, url string, limit int) ([]Record, error) {
	return h.history(ctx, url, limit, false)
}

// SuccessfulHistory is History restricted to completed discoveries.
func (h *HistoryDB) SuccessfulHistory(ctx context.Context, url string, limit int) ([]Record, error) {
	return h.history(ctx, url, limit, true)
}

func (h *HistoryDB) history(ctx context.Context, url string, limit int, onlyCompleted bool) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM discoveries WHERE url = ?`
	args := []any{url}

	if onlyCompleted {
		query += " AND outcome = ?"
		args = append(args, model.OutcomeCompleted.String())
	}
	query += " ORDER BY timestamp DESC, seq DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan discovery: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// URLSummary describes the stored discoveries of one URL.
type URLSummary struct {
	URL        string
	Runs       int
	Successful int
	LastSeen   time.Time
}

// ListURLs returns every URL with stored discoveries, sorted by URL.
func (h *HistoryDB) ListURLs(ctx context.Context) ([]URLSummary, error) {
	query := `
	SELECT url, COUNT(*), SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), MAX(timestamp)
	FROM discoveries
	GROUP BY url
	ORDER BY url
	`

	rows, err := h.db.QueryContext(ctx, query, model.OutcomeCompleted.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	var summaries []URLSummary
	for rows.Next() {
		var (
			s        URLSummary
			lastSeen string
		)
		if err := rows.Scan(&s.URL, &s.Runs, &s.Successful, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan url summary: %w", err)
		}
		s.LastSeen = parseTimestamp(lastSeen)
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// HasRecentDiscovery reports whether url completed a discovery within d.
func (h *HistoryDB) HasRecentDiscovery(ctx context.Context, url string, d time.Duration) (bool, error) {
	query := `SELECT COUNT(*) FROM discoveries WHERE url = ? AND outcome = ? AND timestamp > ?`

	since := time.Now().Add(-d).UTC().Format(timestampLayout)
	var count int
	if err := h.db.QueryRowContext(ctx, query, url, model.OutcomeCompleted.String(), since).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check recent discovery: %w", err)
	}
	return count > 0, nil
}

// Prune deletes discoveries recorded before cutoff and returns how many
// were removed.
func (h *HistoryDB) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := h.db.ExecContext(ctx,
		`DELETE FROM discoveries WHERE timestamp < ?`,
		cutoff.UTC().Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return result.RowsAffected()
}

// timestampFormats lists the layouts a stored timestamp may use, most
// specific first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp returns the zero time when no layout matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
