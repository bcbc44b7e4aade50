package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tkarvo/medguide-bot/internal/medinfo"
)

// StoredReport is a persisted prescription analysis report.
type StoredReport struct {
	ID         int64
	TelegramID int64
	Medicines  []string
	Report     string
	ElapsedMS  int64
	CreatedAt  time.Time
}

// Store defines the persistence interface: a cache of web lookups and a log
// of generated reports.
type Store interface {
	// GetLookup returns the cached lookup result and its fetch time, or
	// (nil, zero, nil) when there is no entry.
	GetLookup(name string) (*medinfo.Result, time.Time, error)
	SetLookup(name string, result *medinfo.Result) error

	SaveReport(report *StoredReport) error
	RecentReports(telegramID int64, limit int) ([]StoredReport, error)

	Close() error
}

// SQLiteStore implements Store on a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed creates) the database at dbPath.
// Use ":memory:" in tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	lookupQuery := `
	CREATE TABLE IF NOT EXISTS lookup_cache (
		name TEXT PRIMARY KEY,
		result_json TEXT NOT NULL,
		fetched_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(lookupQuery); err != nil {
		return fmt.Errorf("failed to create lookup_cache table: %w", err)
	}

	reportsQuery := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		telegram_id INTEGER NOT NULL,
		medicines TEXT NOT NULL,
		report TEXT NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(reportsQuery); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	return nil
}

// GetLookup retrieves a cached lookup result by name.
// Freshness is the caller's concern; the fetch time is returned alongside.
func (s *SQLiteStore) GetLookup(name string) (*medinfo.Result, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resultJSON string
	var fetchedAt time.Time

	err := s.db.QueryRow(
		"SELECT result_json, fetched_at FROM lookup_cache WHERE name = ?",
		name,
	).Scan(&resultJSON, &fetchedAt)

	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query lookup cache: %w", err)
	}

	var result medinfo.Result
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to unmarshal cached lookup: %w", err)
	}

	return &result, fetchedAt, nil
}

// SetLookup stores or replaces a cached lookup result.
func (s *SQLiteStore) SetLookup(name string, result *medinfo.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal lookup result: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO lookup_cache (name, result_json, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			result_json = excluded.result_json,
			fetched_at = excluded.fetched_at
	`, name, string(resultJSON), time.Now())

	if err != nil {
		return fmt.Errorf("failed to save lookup result: %w", err)
	}

	return nil
}

// SaveReport appends a generated report to the log.
func (s *SQLiteStore) SaveReport(report *StoredReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	medicinesJSON, err := json.Marshal(report.Medicines)
	if err != nil {
		return fmt.Errorf("failed to marshal medicines: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO reports (telegram_id, medicines, report, elapsed_ms)
		VALUES (?, ?, ?, ?)
	`, report.TelegramID, string(medicinesJSON), report.Report, report.ElapsedMS)

	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// RecentReports returns the user's latest reports, newest first.
func (s *SQLiteStore) RecentReports(telegramID int64, limit int) ([]StoredReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.Query(`
		SELECT id, telegram_id, medicines, report, elapsed_ms, created_at
		FROM reports WHERE telegram_id = ?
		ORDER BY id DESC LIMIT ?
	`, telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []StoredReport
	for rows.Next() {
		var r StoredReport
		var medicinesJSON string

		if err := rows.Scan(&r.ID, &r.TelegramID, &medicinesJSON, &r.Report, &r.ElapsedMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		if err := json.Unmarshal([]byte(medicinesJSON), &r.Medicines); err != nil {
			return nil, fmt.Errorf("failed to unmarshal medicines for report %d: %w", r.ID, err)
		}

		reports = append(reports, r)
	}

	return reports, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
