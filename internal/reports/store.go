// Package reports saves extracted records and exports them.
package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/dgallion1/isdaudit/internal/extract"
	"github.com/dgallion1/isdaudit/internal/storage"
)

var ErrNotFound = errors.New("report not found")

// Report is a saved extraction result.
type Report struct {
	Key         string                  `json:"key"`
	Filename    string                  `json:"filename"`
	ContentHash string                  `json:"contentHash,omitempty"`
	Timestamp   time.Time               `json:"timestamp"`
	Data        extract.FinancialRecord `json:"data"`
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Key derives the storage key for a filename. Saving the same filename
// twice replaces the earlier report.
func Key(filename string) string {
	return strings.ToLower(unsafeKeyChars.ReplaceAllString(filename, "_"))
}

// Store persists reports in the reports table.
type Store struct {
	db  *storage.DB
	now func() time.Time
}

func NewStore(db *storage.DB) *Store {
	return &Store{db: db, now: time.Now}
}

const reportColumns = `report_key, filename, content_hash, saved_at, payload`

// Save upserts the record under the filename's key.
func (s *Store) Save(ctx context.Context, filename, contentHash string, rec extract.FinancialRecord) (Report, error) {
	r := Report{
		Key:         Key(filename),
		Filename:    filename,
		ContentHash: contentHash,
		Timestamp:   s.now().UTC(),
		Data:        rec,
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return Report{}, fmt.Errorf("marshal record: %w", err)
	}

	q := s.db.Dialect.Rebind(`INSERT INTO reports (` + reportColumns + `) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (report_key) DO UPDATE SET
	filename = excluded.filename,
	content_hash = excluded.content_hash,
	saved_at = excluded.saved_at,
	payload = excluded.payload`)
	if _, err := s.db.ExecContext(ctx, q, r.Key, r.Filename, r.ContentHash, r.Timestamp.UnixMilli(), string(payload)); err != nil {
		return Report{}, fmt.Errorf("save report %s: %w", r.Key, err)
	}
	return r, nil
}

// List returns all reports, newest first.
func (s *Store) List(ctx context.Context) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY saved_at DESC, report_key`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get looks a report up by filename (or key).
func (s *Store) Get(ctx context.Context, filename string) (Report, error) {
	q := s.db.Dialect.Rebind(`SELECT ` + reportColumns + ` FROM reports WHERE report_key = ?`)
	return s.one(ctx, q, Key(filename))
}

// FindByHash returns the most recent report for identical document text.
func (s *Store) FindByHash(ctx context.Context, contentHash string) (Report, error) {
	q := s.db.Dialect.Rebind(`SELECT ` + reportColumns + ` FROM reports WHERE content_hash = ? ORDER BY saved_at DESC LIMIT 1`)
	return s.one(ctx, q, contentHash)
}

func (s *Store) Delete(ctx context.Context, filename string) error {
	q := s.db.Dialect.Rebind(`DELETE FROM reports WHERE report_key = ?`)
	res, err := s.db.ExecContext(ctx, q, Key(filename))
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reports`); err != nil {
		return fmt.Errorf("clear reports: %w", err)
	}
	return nil
}

func (s *Store) one(ctx context.Context, q string, arg any) (Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, q, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (Report, error) {
	var (
		r       Report
		savedAt int64
		payload string
	)
	if err := row.Scan(&r.Key, &r.Filename, &r.ContentHash, &savedAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, err
		}
		return Report{}, fmt.Errorf("scan report: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &r.Data); err != nil {
		return Report{}, fmt.Errorf("decode report %s: %w", r.Key, err)
	}
	r.Timestamp = time.UnixMilli(savedAt).UTC()
	return r, nil
}
