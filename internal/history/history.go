// Package history keeps the capped, most-recent-first list of exported
// debug sessions.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/isdaudit/internal/extract"
)

// MaxSessions is the history capacity. Older sessions are evicted first.
const MaxSessions = 10

var ErrIndexOutOfRange = errors.New("session index out of range")

// Session is one exported extraction run.
type Session struct {
	Filename      string            `json:"filename"`
	Timestamp     time.Time         `json:"timestamp"`
	DistrictName  string            `json:"districtName"`
	TextLength    int               `json:"textLength"`
	SectionsFound int               `json:"sectionsFound"`
	Data          extract.DebugInfo `json:"data"`
}

// NewSession summarizes a debug bundle.
func NewSession(info extract.DebugInfo) Session {
	return Session{
		Filename:      info.Filename,
		Timestamp:     info.Timestamp,
		DistrictName:  info.ParsingResults.Label(),
		TextLength:    info.TextLength,
		SectionsFound: len(info.SectionsFound),
		Data:          info,
	}
}

// Store persists sessions. Append inserts at the front and trims the list
// to MaxSessions; List returns most recent first.
type Store interface {
	Append(ctx context.Context, s Session) error
	List(ctx context.Context) ([]Session, error)
	Clear(ctx context.Context) error
}

// At returns the i-th most recent session (0-based).
func At(ctx context.Context, store Store, i int) (Session, error) {
	sessions, err := store.List(ctx)
	if err != nil {
		return Session{}, err
	}
	if i < 0 || i >= len(sessions) {
		return Session{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(sessions))
	}
	return sessions[i], nil
}

// WriteJSON writes v as two-space indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ExportFilename names the file a session is exported to.
func ExportFilename(s Session) string {
	base := strings.TrimSuffix(filepath.Base(s.Filename), filepath.Ext(s.Filename))
	if base == "" || base == "." {
		base = "document"
	}
	return fmt.Sprintf("pdf-debug-%s-%s.json", base, s.Timestamp.Format("20060102-150405"))
}
