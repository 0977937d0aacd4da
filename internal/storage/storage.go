// Package storage opens the SQL database that backs saved reports and
// the debug session history.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	_ "modernc.org/sqlite"             // sqlite driver
)

// Dialect identifies the SQL flavor behind a DB.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DB is a database handle plus the dialect its queries are written for.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Wrap adopts an existing handle, typically a sqlmock connection.
func Wrap(db *sql.DB, d Dialect) *DB {
	return &DB{DB: db, Dialect: d}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS debug_sessions (
	seq        BIGINT PRIMARY KEY,
	filename   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	payload    TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS reports (
	report_key   TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	saved_at     BIGINT NOT NULL,
	payload      TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS reports_content_hash ON reports (content_hash)`,
}

// Open connects to driver ("sqlite" or "postgres"), verifies the
// connection and creates missing tables.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*DB, error) {
	var (
		sqlDriver string
		dialect   Dialect
	)
	switch driver {
	case "", string(SQLite):
		sqlDriver, dialect = "sqlite", SQLite
	case string(Postgres):
		sqlDriver, dialect = "pgx", Postgres
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	logger.Info("opening database", "driver", dialect)
	sqlDB, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// One writer at a time; sqlite serializes anyway.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	db := Wrap(sqlDB, dialect)
	if err := db.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	logger.Debug("database ready", "driver", dialect)
	return db, nil
}

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
