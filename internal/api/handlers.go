package api

import (
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/fleetingnotes/fleeting-sync/internal/apperr"
	"github.com/fleetingnotes/fleeting-sync/internal/state"
	"github.com/fleetingnotes/fleeting-sync/internal/storage"
	syncengine "github.com/fleetingnotes/fleeting-sync/internal/sync"
	"github.com/fleetingnotes/fleeting-sync/internal/vault"
)

// Handler holds the status-API route handlers.
type Handler struct {
	syncer *syncengine.Syncer
	states *state.Store
	store  storage.Provider
}

// NewHandler creates a new Handler.
func NewHandler(syncer *syncengine.Syncer, states *state.Store, store storage.Provider) *Handler {
	return &Handler{syncer: syncer, states: states, store: store}
}

// Status handles GET /status: current mode, folder, last sync and recent
// run history.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("runs"))
	runs, err := h.states.RecentRuns(limit)
	if err != nil {
		slog.Error("status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if runs == nil {
		runs = []state.Run{}
	}

	resp := StatusResponse{
		Mode:     string(h.syncer.Settings().Mode),
		Folder:   h.syncer.Settings().Folder,
		InFlight: h.syncer.InFlight(),
		Runs:     runs,
	}
	if last, err := h.states.LastSync(); err == nil && !last.IsZero() {
		resp.LastSync = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// TriggerSync handles POST /sync: runs one cycle and reports its result.
// A cycle already in flight yields 409.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	res, err := h.syncer.Sync(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrSyncInProgress) {
			writeJSON(w, http.StatusConflict, errorBody(err.Error()))
			return
		}
		status := http.StatusBadGateway
		if apperr.IsAuth(err) {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, errorBody(syncengine.UserMessage(err)))
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{Pushed: res.Pushed, Stats: res.Stats})
}

// ListNotes handles GET /notes: the current local note index.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	idx, err := vault.Scan(h.store, h.syncer.Settings().Folder)
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	items := make([]NoteListItem, 0, len(idx))
	for id, rec := range idx {
		items = append(items, NoteListItem{
			ID:      id,
			Path:    rec.File.Path,
			Title:   rec.Meta.Title(),
			ModTime: rec.File.ModTime,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}
