// Package models defines the domain types shared across fleeting-sync.
package models

import "time"

// Note is the remote representation of a fleeting note. Timestamps stay
// ISO-8601 strings on the wire; the engine only ever slices their date part.
type Note struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Source     string `json:"source"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	Deleted    bool   `json:"_isDeleted"`
}

// Timestamp returns the note's reference timestamp: creation time when
// present, last modification otherwise.
func (n Note) Timestamp() string {
	if n.CreatedAt != "" {
		return n.CreatedAt
	}
	return n.ModifiedAt
}

// NoteUpdate is the push payload for a single note. Fields default to the
// empty string, never null, because the remote API treats absence ambiguously.
type NoteUpdate struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// FileInfo is a lightweight vault list entry.
type FileInfo struct {
	Path     string    `json:"path"` // relative to the vault root, forward slashes
	ModTime  time.Time `json:"mod_time"`
	Checksum string    `json:"checksum"`
}
