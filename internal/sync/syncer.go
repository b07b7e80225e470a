package sync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fleetingnotes/fleeting-sync/internal/apperr"
	"github.com/fleetingnotes/fleeting-sync/internal/models"
	"github.com/fleetingnotes/fleeting-sync/internal/remote"
	"github.com/fleetingnotes/fleeting-sync/internal/state"
	"github.com/fleetingnotes/fleeting-sync/internal/storage"
	"github.com/fleetingnotes/fleeting-sync/internal/vault"
)

// Settings is the value object a sync cycle runs under. It is passed in
// whole at construction rather than read from ambient state.
type Settings struct {
	Folder   string
	Template string
	Mode     Mode
	// Filter, when non-empty, keeps only pulled notes whose title or
	// content contains it (case-insensitive).
	Filter string
}

// Result summarizes one completed sync cycle.
type Result struct {
	Pushed   int           `json:"pushed"`
	Stats    Stats         `json:"stats"`
	Duration time.Duration `json:"duration"`
}

// EventFunc receives sync lifecycle notifications: "sync_started",
// "sync_finished" (with Result), "sync_failed" (with the user message).
type EventFunc func(event string, data any)

// StateStore is the sync bookkeeping surface the orchestrator needs.
type StateStore interface {
	LastSync() (time.Time, error)
	SetLastSync(t time.Time) error
	RecordRun(r state.Run) error
}

// Syncer sequences push-then-pull cycles. At most one cycle runs at a
// time; concurrent triggers are rejected with ErrSyncInProgress.
type Syncer struct {
	store    storage.Provider
	client   remote.Client
	states   StateStore
	settings Settings
	logger   *slog.Logger
	notify   EventFunc

	inFlight atomic.Bool
	now      func() time.Time
}

// NewSyncer creates a syncer with injected collaborators. notify may be nil.
func NewSyncer(store storage.Provider, client remote.Client, states StateStore, settings Settings, logger *slog.Logger, notify EventFunc) *Syncer {
	return &Syncer{
		store:    store,
		client:   client,
		states:   states,
		settings: settings,
		logger:   logger,
		notify:   notify,
		now:      time.Now,
	}
}

// Settings returns the settings the syncer was built with.
func (s *Syncer) Settings() Settings { return s.settings }

// InFlight reports whether a cycle is currently running.
func (s *Syncer) InFlight() bool { return s.inFlight.Load() }

// Sync runs one full cycle: push local edits when the mode is two-way,
// fetch the remote set, apply it onto the vault. The last-sync instant
// advances only when every stage succeeded; any failure leaves it alone so
// the next attempt re-evaluates the same modification window.
func (s *Syncer) Sync(ctx context.Context) (Result, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Result{}, apperr.ErrSyncInProgress
	}
	defer s.inFlight.Store(false)

	started := s.now()
	s.emit("sync_started", nil)

	res, err := s.cycle(ctx)
	res.Duration = s.now().Sub(started)

	// The timestamp advance is part of the cycle's success: a failure here
	// must leave the run recorded as failed, never as ok.
	if err == nil {
		if lsErr := s.states.SetLastSync(s.now()); lsErr != nil {
			err = fmt.Errorf("advance last sync: %w", lsErr)
		}
	}

	run := state.Run{
		StartedAt:  started,
		FinishedAt: s.now(),
		Status:     state.StatusOK,
		Pushed:     res.Pushed,
		Pulled:     res.Stats.Created + res.Stats.Updated + res.Stats.Renamed + res.Stats.Unchanged,
	}
	if err != nil {
		run.Status = state.StatusFailed
		run.Detail = err.Error()
	}
	if recErr := s.states.RecordRun(run); recErr != nil {
		s.logger.Warn("record sync run failed", slog.String("error", recErr.Error()))
	}

	if err != nil {
		s.logger.Error("sync failed", slog.String("error", err.Error()))
		s.emit("sync_failed", UserMessage(err))
		return res, err
	}

	s.logger.Info("sync finished",
		slog.Int("pushed", res.Pushed),
		slog.Int("created", res.Stats.Created),
		slog.Int("updated", res.Stats.Updated),
		slog.Int("renamed", res.Stats.Renamed),
		slog.Int("deleted", res.Stats.Deleted),
		slog.Int("unchanged", res.Stats.Unchanged),
		slog.Duration("duration", res.Duration))
	s.emit("sync_finished", res)
	return res, nil
}

func (s *Syncer) cycle(ctx context.Context) (Result, error) {
	var res Result

	lastSync, err := s.states.LastSync()
	if err != nil {
		return res, err
	}

	idx, err := vault.Scan(s.store, s.settings.Folder)
	if err != nil {
		return res, err
	}

	if s.settings.Mode.Pushes() {
		pushed, err := s.push(ctx, idx, lastSync)
		if err != nil {
			// A failed push aborts the cycle; pull is not attempted.
			return res, err
		}
		res.Pushed = pushed
	}

	notes, err := s.client.FetchNotes(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch notes: %w", err)
	}
	notes = filterNotes(notes, s.settings.Filter)

	stats, err := Apply(s.store, idx, notes, ApplyOptions{
		Folder:            s.settings.Folder,
		Template:          s.settings.Template,
		PropagatesDeletes: s.settings.Mode.PropagatesDeletes(),
	})
	if err != nil {
		return res, err
	}
	res.Stats = stats
	return res, nil
}

// push uploads modified local notes. The network call is skipped entirely
// when nothing qualifies.
func (s *Syncer) push(ctx context.Context, idx vault.Index, lastSync time.Time) (int, error) {
	modified := ComputeModified(idx, lastSync)
	if len(modified) == 0 {
		s.logger.Debug("push: nothing modified, skipping")
		return 0, nil
	}
	updates := FormatForPush(modified)
	if err := s.client.PushNotes(ctx, updates); err != nil {
		return 0, fmt.Errorf("push notes: %w", err)
	}
	return len(updates), nil
}

// filterNotes keeps notes whose title or content contains filter. Applied
// to the pulled set before reconciliation; tombstones pass through so
// delete propagation is unaffected.
func filterNotes(notes []models.Note, filter string) []models.Note {
	if filter == "" {
		return notes
	}
	needle := strings.ToLower(filter)
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if n.Deleted ||
			strings.Contains(strings.ToLower(n.Title), needle) ||
			strings.Contains(strings.ToLower(n.Content), needle) {
			out = append(out, n)
		}
	}
	return out
}

// UserMessage reduces a sync failure to the single line shown to the user.
// Credential rejections get a distinct, actionable message.
func UserMessage(err error) string {
	if err == nil {
		return "sync complete"
	}
	if apperr.IsAuth(err) {
		return "sync failed: invalid credentials, check your sync settings"
	}
	if msg := err.Error(); msg != "" {
		return "sync failed: " + msg
	}
	return "sync failed"
}

func (s *Syncer) emit(event string, data any) {
	if s.notify != nil {
		s.notify(event, data)
	}
}
