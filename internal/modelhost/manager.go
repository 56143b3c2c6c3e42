package modelhost

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/worker"
)

// ErrClosed is returned by Invoke after Close.
var ErrClosed = errors.New("model manager closed")

// Worker is the lifecycle surface a Manager drives. *worker.Worker satisfies it.
type Worker interface {
	Start()
	Stop()
	IsAlive() bool
	IsProcessing() bool
	Invoke(ctx context.Context, cmd worker.Command) (any, error)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithTimer replaces the idle timer.
func WithTimer(timer Timer) Option {
	return func(m *Manager) {
		if timer != nil {
			m.timer = timer
		}
	}
}

// WithClock replaces the clock used for last-access timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Status is a point-in-time view of one Manager.
type Status struct {
	Kind               string     `json:"kind"`
	Model              string     `json:"model"`
	Alive              bool       `json:"alive"`
	Processing         bool       `json:"processing"`
	InFlight           int        `json:"in_flight"`
	LastAccess         *time.Time `json:"last_access,omitempty"`
	IdleTimeoutSeconds int        `json:"idle_timeout_seconds"`
}

// Manager coordinates one Worker and one idle Timer.
type Manager struct {
	kind    string
	model   string
	worker  Worker
	timer   Timer
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time

	// mu guards worker start/stop transitions and the fields below. It is
	// never held while a command executes.
	mu         sync.Mutex
	inflight   int
	lastAccess time.Time
	closed     bool
}

// NewManager wraps w. An idleTimeout of zero disables eviction.
func NewManager(kind, model string, w Worker, idleTimeout time.Duration, opts ...Option) *Manager {
	m := &Manager{
		kind:    kind,
		model:   model,
		worker:  w,
		timer:   NewTimer(),
		timeout: idleTimeout,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(
		logging.String(logging.FieldModelKind, kind),
		logging.String("model", model),
	)
	return m
}

// Kind returns the managed resource kind.
func (m *Manager) Kind() string { return m.kind }

// Invoke starts the worker if needed and forwards cmd to it. Worker errors
// are returned untouched.
func (m *Manager) Invoke(ctx context.Context, cmd worker.Command) (any, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, services.Wrap(services.ErrTransient, m.kind, cmd.Name, "model manager is shutting down", ErrClosed)
	}
	if !m.worker.IsAlive() {
		logging.WithContext(ctx, m.logger).Info("starting model worker")
		m.worker.Start()
	}
	m.inflight++
	m.mu.Unlock()

	started := m.now()
	value, err := m.worker.Invoke(ctx, cmd)

	m.mu.Lock()
	m.inflight--
	m.lastAccess = m.now()
	if !m.closed && m.worker.IsAlive() {
		m.arm()
	}
	m.mu.Unlock()

	logger := logging.WithContext(ctx, m.logger)
	if err != nil {
		logger.Debug("model invocation failed",
			logging.String("command", cmd.Name),
			logging.Error(err),
		)
	} else {
		logger.Debug("model invocation completed",
			logging.String("command", cmd.Name),
			logging.Duration("elapsed", m.lastAccess.Sub(started)),
		)
	}
	return value, err
}

// arm restarts the idle timer. Caller holds m.mu.
func (m *Manager) arm() {
	if m.timeout <= 0 {
		return
	}
	m.timer.Reset(m.timeout, m.checkIdle)
}

// checkIdle is the eviction check fired by the idle timer. The state is
// re-read under the mutex so a request that started after the timer fired
// keeps the worker alive.
func (m *Manager) checkIdle() {
	if !m.worker.IsAlive() || m.worker.IsProcessing() {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.inflight > 0 || !m.worker.IsAlive() || m.worker.IsProcessing() {
		return
	}
	m.worker.Stop()
	m.timer.Cancel()
	m.logger.Info("model evicted after idle timeout",
		logging.Duration("idle_timeout", m.timeout),
		logging.String(logging.FieldEventType, "model_evicted"),
	)
}

// Status reports the manager's current state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := Status{
		Kind:               m.kind,
		Model:              m.model,
		Alive:              m.worker.IsAlive(),
		Processing:         m.worker.IsProcessing(),
		InFlight:           m.inflight,
		IdleTimeoutSeconds: int(m.timeout / time.Second),
	}
	if !m.lastAccess.IsZero() {
		last := m.lastAccess
		status.LastAccess = &last
	}
	return status
}

// Close stops the worker and cancels the timer. Later Invoke calls fail.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.timer.Cancel()
	if m.worker.IsAlive() {
		m.worker.Stop()
		m.logger.Info("model worker stopped for shutdown")
	}
}
