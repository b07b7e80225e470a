// Package vault builds the local note index: a mapping from note id to the
// file that carries it, rebuilt from disk on every reconciliation pass.
package vault

import (
	"fmt"
	"path"
	"strings"

	"github.com/fleetingnotes/fleeting-sync/internal/apperr"
	"github.com/fleetingnotes/fleeting-sync/internal/models"
	"github.com/fleetingnotes/fleeting-sync/internal/parser"
	"github.com/fleetingnotes/fleeting-sync/internal/storage"
)

// Record is one synced note file: its vault location plus parsed contents.
// Records live for a single reconciliation pass and are never persisted.
type Record struct {
	File models.FileInfo
	Meta *parser.Result
}

// ID returns the note identifier from the file's front matter.
func (r *Record) ID() string { return r.Meta.ID() }

// Body returns the note body with the front-matter block stripped.
func (r *Record) Body() string { return r.Meta.Body }

// Basename returns the file name without directory or .md extension.
func (r *Record) Basename() string {
	name := path.Base(r.File.Path)
	return strings.TrimSuffix(name, ".md")
}

// Index maps note id to its local record.
type Index map[string]*Record

// Scan enumerates the files directly inside folder, parses their front
// matter, and returns every record that carries an id. Files without an id
// are invisible to sync. The first read or parse failure aborts the scan
// and is reported with the offending path (fail-fast policy).
func Scan(store storage.Provider, folder string) (Index, error) {
	folder = NormalizeFolder(folder)

	// A folder that has never been synced into does not exist yet; that
	// is an empty index, not an error.
	if folder != "" {
		ok, err := store.Exists(folder)
		if err != nil {
			return nil, fmt.Errorf("vault: scan %q: %w", folder, err)
		}
		if !ok {
			return make(Index), nil
		}
	}

	files, err := store.List(folder)
	if err != nil {
		return nil, fmt.Errorf("vault: scan %q: %w", folder, err)
	}

	idx := make(Index)
	for _, fi := range files {
		if !inFolder(fi.Path, folder) {
			continue
		}
		data, err := store.Read(fi.Path)
		if err != nil {
			return nil, fmt.Errorf("vault: scan %q: %w", folder, err)
		}
		res, err := parser.Parse(data)
		if err != nil {
			return nil, &apperr.ParseError{Path: fi.Path, Err: err}
		}
		if res.ID() == "" {
			continue
		}
		idx[res.ID()] = &Record{File: fi, Meta: res}
	}
	return idx, nil
}

// inFolder reports whether a vault-relative path sits directly in folder:
// the vault root ("") holds paths without a separator, any other folder
// holds paths whose directory matches it exactly.
func inFolder(p, folder string) bool {
	if folder == "" {
		return !strings.Contains(p, "/")
	}
	return path.Dir(p) == folder
}

// NormalizeFolder collapses duplicate separators and strips leading and
// trailing ones, so user-entered folder settings join cleanly.
func NormalizeFolder(folder string) string {
	folder = strings.ReplaceAll(folder, "\\", "/")
	for strings.Contains(folder, "//") {
		folder = strings.ReplaceAll(folder, "//", "/")
	}
	return strings.Trim(folder, "/")
}

// FilePath joins folder and file name into a normalized vault-relative path.
func FilePath(folder, name string) string {
	folder = NormalizeFolder(folder)
	if folder == "" {
		return name
	}
	return folder + "/" + name
}
