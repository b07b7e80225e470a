// Package testutil provides shared test helpers for setting up vaults,
// state databases, and remote-store stand-ins.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/fleetingnotes/fleeting-sync/internal/models"
	"github.com/fleetingnotes/fleeting-sync/internal/state"
	"github.com/fleetingnotes/fleeting-sync/internal/storage"
)

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestState creates a temporary sync-state database that is automatically
// cleaned up.
func TestState(t *testing.T) *state.Store {
	t.Helper()
	dbFile, err := os.CreateTemp("", "fleeting-sync-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	st, err := state.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// StubClient is an in-memory remote.Client. Notes is what FetchNotes
// returns; Pushed records every PushNotes payload.
type StubClient struct {
	Notes    []models.Note
	FetchErr error
	PushErr  error

	Pushed     [][]models.NoteUpdate
	FetchCalls int
}

func (c *StubClient) FetchNotes(ctx context.Context) ([]models.Note, error) {
	c.FetchCalls++
	if c.FetchErr != nil {
		return nil, c.FetchErr
	}
	out := make([]models.Note, len(c.Notes))
	copy(out, c.Notes)
	return out, nil
}

func (c *StubClient) PushNotes(ctx context.Context, updates []models.NoteUpdate) error {
	if c.PushErr != nil {
		return c.PushErr
	}
	c.Pushed = append(c.Pushed, updates)
	return nil
}
