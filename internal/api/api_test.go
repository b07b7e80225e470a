package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fleetingnotes/fleeting-sync/internal/models"
	"github.com/fleetingnotes/fleeting-sync/internal/state"
	syncengine "github.com/fleetingnotes/fleeting-sync/internal/sync"
	"github.com/fleetingnotes/fleeting-sync/internal/template"
	"github.com/fleetingnotes/fleeting-sync/internal/testutil"
)

type testEnv struct {
	client *testutil.StubClient
	syncer *syncengine.Syncer
	states *state.Store
	router http.Handler
}

// newTestEnv wires a temp vault, state DB, stub remote, and router.
// authToken == "" disables auth.
func newTestEnv(t *testing.T, authToken string) *testEnv {
	t.Helper()

	_, store := testutil.TestVault(t)
	states := testutil.TestState(t)
	client := &testutil.StubClient{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	settings := syncengine.Settings{
		Folder:   "",
		Template: template.DefaultTemplate,
		Mode:     syncengine.ModeTwoWay,
	}
	syncer := syncengine.NewSyncer(store, client, states, settings, logger, nil)

	router := NewRouter(syncer, states, store, authToken != "", authToken, nil)
	return &testEnv{client: client, syncer: syncer, states: states, router: router}
}

func TestStatus_Empty(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Mode != string(syncengine.ModeTwoWay) {
		t.Errorf("mode = %q", resp.Mode)
	}
	if resp.LastSync != nil {
		t.Error("last sync should be omitted before first sync")
	}
	if resp.InFlight {
		t.Error("no cycle should be in flight")
	}
	if len(resp.Runs) != 0 {
		t.Errorf("runs = %d, want 0", len(resp.Runs))
	}
}

func TestStatus_AfterSync(t *testing.T) {
	env := newTestEnv(t, "")
	env.client.Notes = []models.Note{
		{ID: "a1", Title: "First", Content: "hello", CreatedAt: "2024-01-02T10:00:00Z"},
	}
	if _, err := env.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.LastSync == nil {
		t.Error("last sync should be set after a successful cycle")
	}
	if len(resp.Runs) != 1 || resp.Runs[0].Status != state.StatusOK {
		t.Errorf("runs = %+v", resp.Runs)
	}
}

func TestStatus_RunsLimit(t *testing.T) {
	env := newTestEnv(t, "")
	now := time.Now()
	for i := 0; i < 5; i++ {
		err := env.states.RecordRun(state.Run{
			StartedAt: now, FinishedAt: now, Status: state.StatusOK,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/status?runs=3", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var resp StatusResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Runs) != 3 {
		t.Errorf("runs = %d, want 3", len(resp.Runs))
	}
}

func TestTriggerSync(t *testing.T) {
	env := newTestEnv(t, "")
	env.client.Notes = []models.Note{
		{ID: "a1", Title: "First", Content: "hello", CreatedAt: "2024-01-02T10:00:00Z"},
		{ID: "b2", Title: "Second", Content: "world", CreatedAt: "2024-01-03T10:00:00Z"},
	}

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("sync = %d, body = %s", w.Code, w.Body.String())
	}

	var resp SyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Stats.Created != 2 {
		t.Errorf("created = %d, want 2", resp.Stats.Created)
	}
}

func TestTriggerSync_FetchFailure(t *testing.T) {
	env := newTestEnv(t, "")
	env.client.FetchErr = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadGateway {
		t.Errorf("failed sync = %d, want 502", w.Code)
	}
}

func TestListNotes(t *testing.T) {
	env := newTestEnv(t, "")
	env.client.Notes = []models.Note{
		{ID: "a1", Title: "Alpha", Content: "x", CreatedAt: "2024-01-02T10:00:00Z"},
		{ID: "b2", Title: "Beta", Content: "y", CreatedAt: "2024-01-03T10:00:00Z"},
	}
	if _, err := env.syncer.Sync(context.Background()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}

	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2", resp.Total)
	}
	// Sorted by path: Alpha.md before Beta.md.
	if resp.Notes[0].ID != "a1" || resp.Notes[0].Title != "Alpha" {
		t.Errorf("notes[0] = %+v", resp.Notes[0])
	}
	if resp.Notes[1].Path != "Beta.md" {
		t.Errorf("notes[1].Path = %q", resp.Notes[1].Path)
	}
}

func TestListNotes_EmptyVault(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}

	var resp NoteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 0 {
		t.Errorf("total = %d, want 0", resp.Total)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	env := newTestEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed status = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	env := newTestEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	env := newTestEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	env := newTestEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, store := testutil.TestVault(t)
	states := testutil.TestState(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := syncengine.NewSyncer(store, &testutil.StubClient{}, states, syncengine.Settings{
		Mode: syncengine.ModeOneWay, Template: template.DefaultTemplate,
	}, logger, nil)

	// Stub handler: writes 200 and blocks until the request context is done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
	})
	router := NewRouter(syncer, states, store, true, "tok", sseHandler)

	// No token.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}

	// Valid token.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req = httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

func TestTriggerSync_Conflict(t *testing.T) {
	env := newTestEnv(t, "")

	// Hold the syncer busy with a slow fetch so the HTTP trigger collides.
	release := make(chan struct{})
	started := make(chan struct{})
	env.client.FetchErr = nil
	slow := &slowClient{inner: env.client, started: started, release: release}

	_, store := testutil.TestVault(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := syncengine.NewSyncer(store, slow, env.states, syncengine.Settings{
		Mode: syncengine.ModeOneWay, Template: template.DefaultTemplate,
	}, logger, nil)
	router := NewRouter(syncer, env.states, store, false, "", nil)

	go func() {
		_, _ = syncer.Sync(context.Background())
	}()
	<-started

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	close(release)
	if w.Code != http.StatusConflict {
		t.Errorf("concurrent sync = %d, want 409", w.Code)
	}
}

// slowClient blocks FetchNotes until released, for in-flight collision tests.
type slowClient struct {
	inner    *testutil.StubClient
	started  chan struct{}
	release  chan struct{}
	signaled bool
}

func (c *slowClient) FetchNotes(ctx context.Context) ([]models.Note, error) {
	if !c.signaled {
		c.signaled = true
		close(c.started)
	}
	<-c.release
	return c.inner.FetchNotes(ctx)
}

func (c *slowClient) PushNotes(ctx context.Context, updates []models.NoteUpdate) error {
	return c.inner.PushNotes(ctx, updates)
}
