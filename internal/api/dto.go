package api

import (
	"time"

	"github.com/fleetingnotes/fleeting-sync/internal/state"
	syncengine "github.com/fleetingnotes/fleeting-sync/internal/sync"
)

// StatusResponse describes the syncer's current configuration and history.
type StatusResponse struct {
	Mode     string      `json:"mode"`
	Folder   string      `json:"folder"`
	LastSync *time.Time  `json:"last_sync,omitempty"`
	InFlight bool        `json:"in_flight"`
	Runs     []state.Run `json:"runs"`
}

// SyncResponse wraps the result of a manually triggered sync.
type SyncResponse struct {
	Pushed int              `json:"pushed"`
	Stats  syncengine.Stats `json:"stats"`
}

// NoteListItem is one synced note in a list response.
type NoteListItem struct {
	ID      string    `json:"id"`
	Path    string    `json:"path"`
	Title   string    `json:"title,omitempty"`
	ModTime time.Time `json:"mod_time"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes"`
	Total int            `json:"total"`
}
