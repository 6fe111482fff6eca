package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gezibash/hookmeta/internal/archive"
)

// NewRecord summarizes snap for the archive, with its full view attached.
func NewRecord(snap *Snapshot) (*archive.Record, error) {
	view, err := json.Marshal(NewView(snap, nil))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot view: %w", err)
	}
	return &archive.Record{
		ID:          snap.ID.String(),
		BuiltAt:     snap.BuiltAt,
		Origins:     snap.Origins,
		Receivers:   len(snap.Index.Receivers()),
		Descriptors: snap.Index.Len(),
		Endpoints:   len(snap.Bindings),
		View:        view,
	}, nil
}

// Record stores snap in b.
func Record(ctx context.Context, b archive.Backend, snap *Snapshot) error {
	rec, err := NewRecord(snap)
	if err != nil {
		return err
	}
	if err := b.Put(ctx, rec); err != nil {
		return fmt.Errorf("archive snapshot %s: %w", rec.ID, err)
	}
	return nil
}

// Recorder returns a publish listener that archives every published
// snapshot. Archive failures are logged and never fail the reload.
func Recorder(b archive.Backend, logger *slog.Logger) PublishFunc {
	return func(ctx context.Context, snap *Snapshot) {
		if err := Record(ctx, b, snap); err != nil {
			logger.ErrorContext(ctx, "archive snapshot failed", "snapshot", snap.ID.String(), "error", err)
			return
		}
		logger.DebugContext(ctx, "snapshot archived", "snapshot", snap.ID.String())
	}
}

// DefaultHistoryLimit is the number of records listed when no limit is given.
const DefaultHistoryLimit = 20

// HistoryHandler serves archived snapshots. Without parameters it lists the
// newest records without their views; ?limit=n changes how many and ?id=x
// returns one record in full.
func HistoryHandler(b archive.Backend) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
			return
		}

		q := r.URL.Query()
		if id := q.Get("id"); id != "" {
			rec, err := b.Get(r.Context(), id)
			switch {
			case errors.Is(err, archive.ErrNotFound):
				writeJSON(w, http.StatusNotFound, errorBody("unknown snapshot "+id))
			case err != nil:
				writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			default:
				writeJSON(w, http.StatusOK, rec)
			}
			return
		}

		limit := DefaultHistoryLimit
		if v := q.Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
				return
			}
			limit = n
		}
		records, err := b.List(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
			return
		}
		summaries := make([]*archive.Record, len(records))
		for i, rec := range records {
			s := *rec
			s.View = nil
			summaries[i] = &s
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": summaries})
	})
}
