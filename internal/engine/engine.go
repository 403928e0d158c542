// ABOUTME: Sync engine construction and background reconciliation loop.
// ABOUTME: Single entry point for all state changes; absorbs network failures.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harperreed/crux/internal/models"
	"github.com/harperreed/crux/internal/store"
)

const (
	// defaultMaxAttempts is the retry ceiling: a pending mutation whose
	// attempt counter exceeds this is dropped rather than retried forever.
	defaultMaxAttempts = 3
	// defaultFlushInterval is the periodic queue flush cadence.
	defaultFlushInterval = 5 * time.Minute
)

// Service is the remote training service as consumed by the engine. The
// api package provides the production implementation.
type Service interface {
	InitializeSessions(ctx context.Context, planID string) error
	ListSessions(ctx context.Context, planID string) ([]models.SessionRecord, error)
	UpsertSession(ctx context.Context, s models.SessionRecord) error
	UpsertExercise(ctx context.Context, e models.ExerciseCompletion) error
	DeleteExercise(ctx context.Context, planID, id string) error
}

// Connectivity is the reachability view the engine needs. The netmon
// package provides the production implementation.
type Connectivity interface {
	Online() bool
	OnConnect(fn func())
}

// Schedule supplies plan schedule templates for local session synthesis
// and auto-completion derivation. The catalog package provides the
// production implementation.
type Schedule interface {
	Schedule(planID string) ([]*models.ScheduledSession, error)
	ExerciseTitles(planID string, week int, day, focus string) ([]string, error)
}

// Options tune the engine. Zero values select defaults.
type Options struct {
	MaxAttempts   int
	FlushInterval time.Duration
	Logger        *log.Logger
}

// Engine orchestrates local mutations, pending queues, and reconciliation
// with the remote service. Every mutation commits locally first, then is
// delivered remotely best-effort; the UI never sees raw network errors.
type Engine struct {
	store    *store.Store
	schedule Schedule
	remote   Service
	net      Connectivity
	logger   *log.Logger

	maxAttempts   int
	flushInterval time.Duration

	// mu serializes composite read-modify-write mutations; the store's
	// own lock covers individual operations but not sequences of them.
	mu sync.Mutex

	// flushMu serializes flush cycles so two triggers cannot interleave
	// their snapshot/restore phases.
	flushMu sync.Mutex

	kick chan struct{}

	subMu sync.Mutex
	subs  []chan Event

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an engine around the given collaborators.
func New(st *store.Store, sched Schedule, remote Service, net Connectivity, opts Options) *Engine {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.FlushInterval == 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	return &Engine{
		store:         st,
		schedule:      sched,
		remote:        remote,
		net:           net,
		logger:        opts.Logger,
		maxAttempts:   opts.MaxAttempts,
		flushInterval: opts.FlushInterval,
		kick:          make(chan struct{}, 1),
	}
}

// Start launches the background loop: flush on reconnect, flush on the
// periodic ticker, and flush on explicit kicks from mutations.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		cancel()
		return
	}
	e.cancel = cancel
	e.mu.Unlock()

	e.net.OnConnect(e.requestFlush)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.Sync(ctx)
			case <-e.kick:
				e.Sync(ctx)
			}
		}
	}()
}

// Stop ends the background loop and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		e.wg.Wait()
	}
}

// Sync flushes the pending queues and then reconciles every locally-known
// plan against the server. All failures are absorbed and logged; local
// state remains the system of record.
func (e *Engine) Sync(ctx context.Context) FlushReport {
	report := e.Flush(ctx)
	if !e.net.Online() {
		return report
	}

	reconciled := true
	for _, planID := range e.store.PlanIDs() {
		if err := e.ReconcilePlan(ctx, planID); err != nil {
			reconciled = false
			e.logger.Warn("reconcile failed", "plan", planID, "err", err)
		}
	}
	if reconciled && report.clean() {
		if err := e.store.SetLastSync(time.Now()); err != nil {
			e.logger.Warn("record last sync", "err", err)
		}
	}
	return report
}

// Sessions returns the locally-held session records for a plan.
func (e *Engine) Sessions(planID string) []models.SessionRecord {
	return e.store.Sessions(planID)
}

// Exercises returns the locally-held completion records for a plan.
func (e *Engine) Exercises(planID string) []models.ExerciseCompletion {
	return e.store.Exercises(planID)
}

// LastSync reports when the last fully successful sync completed.
func (e *Engine) LastSync() (time.Time, error) {
	return e.store.LastSync()
}

// Pending reports the depth of each durable queue.
func (e *Engine) Pending() (sessions, exercises, deletes int, err error) {
	return e.store.PendingCounts()
}

// requestFlush nudges the background loop without blocking. Harmless when
// the loop is not running; the buffered kick is consumed on Start.
func (e *Engine) requestFlush() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// sessionByID locates one session record in a plan.
func sessionByID(recs []models.SessionRecord, id string) (int, bool) {
	for i := range recs {
		if recs[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// errSessionNotFound formats the shared lookup failure.
func errSessionNotFound(planID, sessionID string) error {
	return fmt.Errorf("session %s not found in plan %s", sessionID, planID)
}
