package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/isdaudit/internal/storage"
)

// SQLStore keeps sessions in the debug_sessions table. Each session gets an
// increasing sequence number; the newest MaxSessions rows survive.
type SQLStore struct {
	db *storage.DB
	// mu serializes appends from this process.
	mu sync.Mutex
}

func NewSQLStore(db *storage.DB) *SQLStore {
	return &SQLStore{db: db}
}

var trimQuery = fmt.Sprintf(`DELETE FROM debug_sessions WHERE seq NOT IN (
	SELECT seq FROM (SELECT seq FROM debug_sessions ORDER BY seq DESC LIMIT %d) AS keep
)`, MaxSessions)

func (s *SQLStore) Append(ctx context.Context, sess Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM debug_sessions`).Scan(&seq); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	insert := s.db.Dialect.Rebind(`INSERT INTO debug_sessions (seq, filename, created_at, payload) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, seq, sess.Filename, sess.Timestamp.UTC().Format(time.RFC3339Nano), string(payload)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx, trimQuery); err != nil {
		return fmt.Errorf("trim sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT payload FROM debug_sessions ORDER BY seq DESC LIMIT %d`, MaxSessions))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		var sess Session
		if err := json.Unmarshal([]byte(payload), &sess); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM debug_sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	return nil
}
