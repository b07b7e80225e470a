package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetingnotes/fleeting-sync/internal/state"
	"github.com/fleetingnotes/fleeting-sync/internal/storage"
	syncengine "github.com/fleetingnotes/fleeting-sync/internal/sync"
)

// NewRouter creates a chi router with the status-API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(syncer *syncengine.Syncer, states *state.Store, store storage.Provider, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(syncer, states, store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/status", h.Status)
	r.Post("/sync", h.TriggerSync)
	r.Get("/notes", h.ListNotes)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
