package history

import (
	"context"
	"log/slog"

	"github.com/dgallion1/isdaudit/internal/extract"
)

// Recorder exports debug bundles into a Store. Storage failures are
// logged and never returned: history is diagnostic only.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger.With("component", "history")}
}

// Export pushes info to the front of the history and reports whether it
// was stored.
func (r *Recorder) Export(ctx context.Context, info extract.DebugInfo) bool {
	sess := NewSession(info)
	if err := r.store.Append(ctx, sess); err != nil {
		r.logger.Warn("failed to export debug session", "filename", sess.Filename, "error", err)
		return false
	}
	r.logger.Debug("debug session exported", "filename", sess.Filename, "district", sess.DistrictName)
	return true
}

// List returns stored sessions, or nil when the store is unavailable.
func (r *Recorder) List(ctx context.Context) []Session {
	sessions, err := r.store.List(ctx)
	if err != nil {
		r.logger.Warn("failed to list debug sessions", "error", err)
		return nil
	}
	return sessions
}

func (r *Recorder) Clear(ctx context.Context) {
	if err := r.store.Clear(ctx); err != nil {
		r.logger.Warn("failed to clear debug sessions", "error", err)
	}
}
