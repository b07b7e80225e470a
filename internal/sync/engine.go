// Package sync holds the reconciliation engine and the orchestrator that
// drives push/pull cycles against the remote note store.
package sync

import (
	"fmt"
	"sort"
	"time"

	"github.com/fleetingnotes/fleeting-sync/internal/checksum"
	"github.com/fleetingnotes/fleeting-sync/internal/models"
	"github.com/fleetingnotes/fleeting-sync/internal/storage"
	"github.com/fleetingnotes/fleeting-sync/internal/template"
	"github.com/fleetingnotes/fleeting-sync/internal/vault"
)

// Mode controls which directions a sync cycle runs and whether remote
// deletions propagate to local files.
type Mode string

const (
	// ModeOneWay pulls remote notes into the vault. Remote tombstones are
	// dropped without touching local files.
	ModeOneWay Mode = "one-way"
	// ModeOneWayDelete pulls remote notes and deletes the local file of
	// every remote tombstone.
	ModeOneWayDelete Mode = "one-way-with-delete"
	// ModeTwoWay pushes local edits first, then pulls. Tombstones delete
	// local files as in ModeOneWayDelete.
	ModeTwoWay Mode = "two-way"
)

// Valid reports whether m is a recognized sync mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeOneWay, ModeOneWayDelete, ModeTwoWay:
		return true
	}
	return false
}

// Pushes reports whether local edits are uploaded before pulling.
func (m Mode) Pushes() bool { return m == ModeTwoWay }

// PropagatesDeletes reports whether remote tombstones remove local files.
func (m Mode) PropagatesDeletes() bool {
	return m == ModeOneWayDelete || m == ModeTwoWay
}

// ComputeModified returns the local records that qualify for push: the file
// changed after lastSync, or its front-matter title no longer matches the
// file name (a local rename that should be echoed to the remote title).
// Results are ordered by path so push payloads are deterministic.
func ComputeModified(idx vault.Index, lastSync time.Time) []*vault.Record {
	var out []*vault.Record
	for _, rec := range idx {
		if rec.File.ModTime.After(lastSync) || renamedLocally(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].File.Path < out[j].File.Path
	})
	return out
}

func renamedLocally(rec *vault.Record) bool {
	return rec.Meta.HasTitle() && rec.Meta.Title() != rec.Basename()
}

// FormatForPush maps qualifying records to their upload payload. The title
// pushed is the current file name (without extension) when the front matter
// carries one, so a local rename updates the remote title.
func FormatForPush(records []*vault.Record) []models.NoteUpdate {
	updates := make([]models.NoteUpdate, 0, len(records))
	for _, rec := range records {
		title := ""
		if rec.Meta.HasTitle() {
			title = rec.Basename()
		}
		updates = append(updates, models.NoteUpdate{
			ID:      rec.ID(),
			Title:   title,
			Content: rec.Body(),
			Source:  rec.Meta.Source(),
		})
	}
	return updates
}

// Stats summarizes the file operations of one apply pass. Applying an
// already-synced note set is observable as all-Unchanged.
type Stats struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Renamed   int `json:"renamed"`
	Deleted   int `json:"deleted"`
	Unchanged int `json:"unchanged"`
}

// ApplyOptions configures one apply pass.
type ApplyOptions struct {
	Folder            string
	Template          string
	PropagatesDeletes bool
}

// Apply reconciles the pulled note set onto the vault folder.
//
// Tombstoned notes are never materialized; when the mode propagates
// deletes, their matching local files are removed. Live notes are matched
// by id: a match is overwritten in place and then renamed to its target
// path (preserving file identity), a miss creates the file after removing
// any orphan occupying the target path. The folder is ensured once per
// call. The first failing note aborts the pass (fail-fast).
func Apply(store storage.Provider, idx vault.Index, notes []models.Note, opts ApplyOptions) (Stats, error) {
	var stats Stats

	folder := vault.NormalizeFolder(opts.Folder)
	if folder != "" {
		if err := store.EnsureDir(folder); err != nil {
			return stats, fmt.Errorf("write notes: %w", err)
		}
	}

	for _, note := range notes {
		if !note.Deleted {
			continue
		}
		if !opts.PropagatesDeletes {
			continue
		}
		rec, ok := idx[note.ID]
		if !ok {
			continue
		}
		if err := store.Delete(rec.File.Path); err != nil {
			return stats, fmt.Errorf("write notes: %w", err)
		}
		stats.Deleted++
	}

	for _, note := range notes {
		if note.Deleted {
			continue
		}
		if err := applyNote(store, idx, note, folder, opts.Template, &stats); err != nil {
			return stats, fmt.Errorf("write notes: %w", err)
		}
	}
	return stats, nil
}

func applyNote(store storage.Provider, idx vault.Index, note models.Note, folder, tmpl string, stats *Stats) error {
	target := vault.FilePath(folder, targetName(note))
	rendered := []byte(template.Render(tmpl, note))

	rec, ok := idx[note.ID]
	if !ok {
		// Unmatched id: a stale file occupying the target path would
		// collide with the create, so remove it first.
		exists, err := store.Exists(target)
		if err != nil {
			return err
		}
		if exists {
			if err := store.Delete(target); err != nil {
				return err
			}
		}
		if err := store.Write(target, rendered); err != nil {
			return err
		}
		stats.Created++
		return nil
	}

	// Matched id: modify before rename so the write lands on the file the
	// index observed. The scan-time checksum decides write-vs-skip without
	// re-reading the file.
	changed := false
	if checksum.Sum(rendered) != rec.File.Checksum {
		if err := store.Write(rec.File.Path, rendered); err != nil {
			return err
		}
		stats.Updated++
		changed = true
	}
	if rec.File.Path != target {
		if err := store.Move(rec.File.Path, target); err != nil {
			return err
		}
		stats.Renamed++
		changed = true
	}
	if !changed {
		stats.Unchanged++
	}
	return nil
}

// targetName derives the file name for a pulled note: its title when
// non-empty, its id otherwise.
func targetName(note models.Note) string {
	if note.Title != "" {
		return note.Title + ".md"
	}
	return note.ID + ".md"
}
