package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/isdaudit/internal/extract"
	"github.com/dgallion1/isdaudit/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bundle(i int) extract.DebugInfo {
	return extract.DebugInfo{
		Filename:      fmt.Sprintf("audit-%02d.pdf", i),
		Timestamp:     time.Date(2024, 3, 1, 12, 0, i, 0, time.UTC),
		TextLength:    100 + i,
		SectionsFound: []string{"balance sheet", "net position"},
		DebugLogs:     []string{"[12:00:00.000] start"},
		ParsingResults: extract.FinancialRecord{
			NetPosition: extract.NetPosition{TotalAssets: int64(i * 1000)},
		},
		FullExtractedText: "balance sheet net position",
	}
}

func sqliteStore(t *testing.T) *SQLStore {
	t.Helper()
	db, err := storage.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "history.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db)
}

func TestStoresKeepTenMostRecent(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore(t),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := NewRecorder(store, discardLogger())
			for i := 1; i <= 11; i++ {
				require.True(t, rec.Export(ctx, bundle(i)))
			}

			sessions, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, sessions, MaxSessions)
			assert.Equal(t, "audit-11.pdf", sessions[0].Filename)
			assert.Equal(t, "audit-02.pdf", sessions[MaxSessions-1].Filename)
			for _, s := range sessions {
				assert.NotEqual(t, "audit-01.pdf", s.Filename)
			}

			require.NoError(t, store.Clear(ctx))
			sessions, err = store.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, sessions)
		})
	}
}

func TestNewSession(t *testing.T) {
	s := NewSession(bundle(3))
	assert.Equal(t, "Unknown", s.DistrictName)
	assert.Equal(t, 2, s.SectionsFound)
	assert.Equal(t, 103, s.TextLength)

	info := bundle(4)
	info.ParsingResults.DistrictName = "sample isd"
	assert.Equal(t, "sample isd", NewSession(info).DistrictName)
}

func TestSessionJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewSession(bundle(1))))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	for _, key := range []string{"filename", "timestamp", "districtName", "textLength", "sectionsFound", "data"} {
		assert.Contains(t, raw, key)
	}
	data := raw["data"].(map[string]any)
	for _, key := range []string{"debugLogs", "parsingResults", "fullExtractedText"} {
		assert.Contains(t, data, key)
	}
	assert.Contains(t, buf.String(), "\n  \"filename\"")
}

func TestAt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, NewSession(bundle(1))))
	require.NoError(t, store.Append(ctx, NewSession(bundle(2))))

	s, err := At(ctx, store, 1)
	require.NoError(t, err)
	assert.Equal(t, "audit-01.pdf", s.Filename)

	_, err = At(ctx, store, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestExportFilename(t *testing.T) {
	s := NewSession(bundle(5))
	s.Filename = "/tmp/reports/Sample ISD 2023.pdf"
	assert.Equal(t, "pdf-debug-Sample ISD 2023-20240301-120005.json", ExportFilename(s))
}

func TestRecorderSwallowsStorageErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))
	mock.ExpectQuery("SELECT payload FROM debug_sessions").WillReturnError(errors.New("no such table"))
	mock.ExpectExec("DELETE FROM debug_sessions").WillReturnError(errors.New("read-only"))

	rec := NewRecorder(NewSQLStore(storage.Wrap(sqlDB, storage.SQLite)), discardLogger())
	ctx := context.Background()
	assert.False(t, rec.Export(ctx, bundle(1)))
	assert.Nil(t, rec.List(ctx))
	rec.Clear(ctx)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreAppendRollsBackOnInsertFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COALESCE\(MAX\(seq\), 0\) \+ 1 FROM debug_sessions`).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(7))
	mock.ExpectExec(`INSERT INTO debug_sessions`).
		WithArgs(int64(7), "audit-01.pdf", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	store := NewSQLStore(storage.Wrap(sqlDB, storage.Postgres))
	err = store.Append(context.Background(), NewSession(bundle(1)))
	assert.ErrorContains(t, err, "insert session: disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}
