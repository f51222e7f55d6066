package playback

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trungkien100823/koicourse/internal/gateway"
	"github.com/trungkien100823/koicourse/internal/progress"
	"github.com/trungkien100823/koicourse/internal/store"
)

// State is the phase of a chapter-viewing session.
type State int

const (
	StateLoading State = iota
	StatePlaying
	StateFinished
	StateErrored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	case StateErrored:
		return "errored"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// ErrSessionClosed is returned when an operation targets an abandoned
// session.
var ErrSessionClosed = errors.New("playback session closed")

// Config describes one chapter-viewing session.
type Config struct {
	OwnerID   string
	EnrollID  string
	CourseID  string
	ChapterID string
	MediaURL  string
	// Status is the chapter's completion status at session start. A
	// chapter already Done never re-prompts.
	Status store.Status
	// OnPrompt is invoked once when playback finishes and the chapter is
	// eligible for completion. The UI collaborator asks the user and
	// calls Confirm on a yes.
	OnPrompt func()
}

// Monitor observes playback position against duration and decides when a
// chapter is eligible for completion. It never grants completion itself:
// only an explicit Confirm pushes the completion event and reconciles.
type Monitor struct {
	cfg    Config
	st     *store.Store
	api    gateway.API
	rec    *progress.Reconciler
	logger *zap.Logger

	mu         sync.Mutex
	state      State
	prompted   bool
	confirming bool
	lastErr    error
}

// NewMonitor creates a monitor in StateLoading. A nil logger is replaced
// with a no-op logger.
func NewMonitor(cfg Config, st *store.Store, api gateway.API, rec *progress.Reconciler, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:    cfg,
		st:     st,
		api:    api,
		rec:    rec,
		logger: logger,
		state:  StateLoading,
	}
}

// State returns the current session state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start transitions Loading → Playing once the media is ready.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateLoading {
		m.state = StatePlaying
	}
}

// ReportProgress feeds the playback position signal. The Playing →
// Finished transition fires only on exact equality of position and
// duration — not a threshold — and only while the chapter is still
// InProgress. Finishing surfaces a single confirmation prompt; it does
// not complete the chapter.
func (m *Monitor) ReportProgress(position, duration int64) {
	m.mu.Lock()
	if m.state != StatePlaying || duration == 0 || position != duration {
		m.mu.Unlock()
		return
	}
	if m.cfg.Status == store.StatusDone || m.prompted {
		m.mu.Unlock()
		return
	}
	m.prompted = true
	m.state = StateFinished
	prompt := m.cfg.OnPrompt
	m.mu.Unlock()

	if prompt != nil {
		prompt()
	}
}

// Confirm is the only path to completion: it pushes the completion event,
// upgrades the local cache, and reconciles. Concurrent calls collapse to a
// single effective transition; the loser returns (nil, nil). The
// completion call runs on a detached context so that leaving the screen
// cannot cancel an already-acknowledged completion awaiting persistence.
func (m *Monitor) Confirm(ctx context.Context) (*progress.CourseView, error) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return nil, ErrSessionClosed
	}
	if m.cfg.Status == store.StatusDone || m.confirming {
		m.mu.Unlock()
		return nil, nil
	}
	m.confirming = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.confirming = false
		m.mu.Unlock()
	}()

	ctx = context.WithoutCancel(ctx)

	if _, err := m.api.MarkChapterComplete(ctx, m.cfg.ChapterID); err != nil {
		return nil, fmt.Errorf("confirm chapter completion: %w", err)
	}

	// The server acknowledged; upgrade the cache before reconciling so a
	// flaky follow-up fetch cannot lose the completion.
	err := m.st.SetChapterStatus(ctx, m.cfg.OwnerID, m.cfg.ChapterID, m.cfg.CourseID, store.StatusDone)
	if err != nil && !errors.Is(err, store.ErrDowngrade) {
		return nil, err
	}

	m.mu.Lock()
	m.cfg.Status = store.StatusDone
	m.mu.Unlock()

	return m.rec.Reconcile(ctx, m.cfg.OwnerID, m.cfg.EnrollID, m.cfg.CourseID)
}

// Fail moves the session to Errored from Loading or Playing on a playback
// fault.
func (m *Monitor) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateLoading && m.state != StatePlaying {
		return
	}
	m.state = StateErrored
	m.lastErr = err
	m.logger.Warn("playback fault",
		zap.String("chapterId", m.cfg.ChapterID),
		zap.Error(err))
}

// LastError returns the fault that moved the session to Errored.
func (m *Monitor) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Retry re-enters Loading from Errored and returns a cache-busted media
// URL: a uniquifying query parameter defeats intermediate caching layers
// that may have served the faulty response.
func (m *Monitor) Retry() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateErrored {
		return "", fmt.Errorf("retry from %s state", m.state)
	}
	m.state = StateLoading
	m.lastErr = nil
	return cacheBust(m.cfg.MediaURL), nil
}

// Close silently abandons the session from any state. No partial progress
// is recorded beyond what was already durably reconciled; an in-flight
// Confirm still completes on its detached context.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateClosed
}

func cacheBust(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("cb", uuid.NewString())
	u.RawQuery = q.Encode()
	return u.String()
}
