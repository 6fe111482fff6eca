package snapshot

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gezibash/hookmeta/internal/resolver"
)

// View is the JSON form of a published snapshot.
type View struct {
	ID        string                  `json:"id"`
	BuiltAt   time.Time               `json:"built_at"`
	Origins   []string                `json:"origins"`
	Receivers []string                `json:"receivers"`
	Endpoints map[string]EndpointView `json:"endpoints"`
	LastError string                  `json:"last_error,omitempty"`
}

// EndpointView is one endpoint's resolved bindings.
type EndpointView struct {
	Receiver string           `json:"receiver,omitempty"`
	Bindings []resolver.Entry `json:"bindings"`
}

// NewView renders snap. lastErr is the store's most recent reload error.
func NewView(snap *Snapshot, lastErr error) View {
	v := View{
		ID:        snap.ID.String(),
		BuiltAt:   snap.BuiltAt,
		Origins:   snap.Origins,
		Receivers: snap.Index.Receivers(),
		Endpoints: make(map[string]EndpointView, len(snap.Bindings)),
	}
	for id, set := range snap.Bindings {
		v.Endpoints[id] = endpointView(set)
	}
	if lastErr != nil {
		v.LastError = lastErr.Error()
	}
	return v
}

func endpointView(set resolver.BindingSet) EndpointView {
	return EndpointView{Receiver: set.Receiver, Bindings: set.Entries()}
}

// BindingsHandler serves the current snapshot as JSON. With an endpoint
// query parameter it serves only that endpoint's bindings. It answers 503
// until the first snapshot is published.
func BindingsHandler(s *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
			return
		}
		snap := s.Current()
		if snap == nil {
			body := errorBody("no snapshot published")
			if err := s.LastError(); err != nil {
				body["last_error"] = err.Error()
			}
			writeJSON(w, http.StatusServiceUnavailable, body)
			return
		}

		if id := r.URL.Query().Get("endpoint"); id != "" {
			set, ok := snap.Binding(id)
			if !ok {
				writeJSON(w, http.StatusNotFound, errorBody("unknown endpoint "+id))
				return
			}
			writeJSON(w, http.StatusOK, endpointView(set))
			return
		}
		writeJSON(w, http.StatusOK, NewView(snap, s.LastError()))
	})
}

// ReloadHandler rebuilds the store on POST. A failed build answers 422 and
// leaves the previous snapshot published.
func ReloadHandler(s *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
			return
		}
		snap, err := s.Reload(r.Context())
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": snap.ID.String(), "endpoints": len(snap.Bindings)})
	})
}

func errorBody(msg string) map[string]any {
	return map[string]any{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
