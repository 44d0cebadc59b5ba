package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/headache-forecast/internal/weather"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/insert-report.sql
var insertReportSQL string

//go:embed sql/get-latest-report.sql
var getLatestReportSQL string

//go:embed sql/get-reports.sql
var getReportsSQL string

//go:embed sql/prune-reports-by-age.sql
var pruneReportsByAgeSQL string

//go:embed sql/prune-reports-by-count.sql
var pruneReportsByCountSQL string

// Fixed-width UTC layout so stored timestamps sort lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore persists reports in SQLite as JSON payloads.
type SQLiteStore struct {
	db         *sql.DB
	maxHistory int
	maxAge     time.Duration
	now        func() time.Time
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string, maxHistory int, maxAge time.Duration) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	s, err := NewSQLiteStore(db, maxHistory, maxAge)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database and ensures the schema exists.
func NewSQLiteStore(db *sql.DB, maxHistory int, maxAge time.Duration) (*SQLiteStore, error) {
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{
		db:         db,
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveReport inserts report and enforces retention for its location.
func (s *SQLiteStore) SaveReport(report weather.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	key := report.Location.Key()
	if _, err := s.db.Exec(insertReportSQL, report.ID, key, formatTimestamp(report.FetchedAt), string(payload)); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	if s.maxAge > 0 {
		cutoff := formatTimestamp(s.now().Add(-s.maxAge))
		if _, err := s.db.Exec(pruneReportsByAgeSQL, key, cutoff, key); err != nil {
			return fmt.Errorf("prune reports by age: %w", err)
		}
	}
	if s.maxHistory > 0 {
		if _, err := s.db.Exec(pruneReportsByCountSQL, key, key, s.maxHistory); err != nil {
			return fmt.Errorf("prune reports by count: %w", err)
		}
	}
	return nil
}

// GetLatest returns the most recent report for a location.
func (s *SQLiteStore) GetLatest(loc weather.Location) (weather.Report, error) {
	var payload string
	err := s.db.QueryRow(getLatestReportSQL, loc.Key()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Report{}, ErrNotFound
	}
	if err != nil {
		return weather.Report{}, fmt.Errorf("query latest report: %w", err)
	}
	return decodeReport(payload)
}

// GetRange returns all reports for a location between from and to (inclusive).
func (s *SQLiteStore) GetRange(loc weather.Location, from, to time.Time) ([]weather.Report, error) {
	rows, err := s.db.Query(getReportsSQL, loc.Key(), formatTimestamp(from), formatTimestamp(to))
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close report rows", "error", err)
		}
	}()

	var out []weather.Report
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		r, err := decodeReport(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func decodeReport(payload string) (weather.Report, error) {
	var r weather.Report
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return weather.Report{}, fmt.Errorf("decode report: %w", err)
	}
	return r, nil
}
