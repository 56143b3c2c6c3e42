package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"scribe/internal/logging"
	"scribe/internal/services"
)

const (
	defaultStopGrace    = 5 * time.Second
	defaultPollInterval = time.Second
)

// Config describes how a backend materializes its resource. It is copied by
// value into every execution unit.
type Config struct {
	Device       string
	Model        string
	DownloadPath string
	LogLevel     string
}

// Backend materializes the opaque resource inside an execution unit.
type Backend interface {
	Name() string
	Materialize(ctx context.Context, cfg Config) (Resource, error)
}

// Resource is a loaded model. It is only ever touched from the execution
// unit that created it.
type Resource interface {
	Handle(ctx context.Context, cmd Command) (any, error)
	Close() error
}

// Option customizes a Worker.
type Option func(*Worker)

// WithLogger sets the worker logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithStopGrace bounds how long Stop waits for a cooperative exit.
func WithStopGrace(grace time.Duration) Option {
	return func(w *Worker) {
		if grace > 0 {
			w.grace = grace
		}
	}
}

// WithPollInterval sets how often the dispatch loop checks for a stop signal.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.poll = interval
		}
	}
}

// WithInvokeTimeout caps each Invoke. Zero leaves the caller's context in charge.
func WithInvokeTimeout(timeout time.Duration) Option {
	return func(w *Worker) {
		if timeout >= 0 {
			w.invokeTimeout = timeout
		}
	}
}

// Worker owns at most one execution unit hosting a Resource.
type Worker struct {
	kind          string
	cfg           Config
	backend       Backend
	logger        *slog.Logger
	grace         time.Duration
	poll          time.Duration
	invokeTimeout time.Duration

	mu   sync.Mutex
	unit *unit

	callMu sync.Mutex
	seq    atomic.Uint64
}

// unit is one execution unit: a goroutine running the dispatch loop.
type unit struct {
	conn     *Conn
	peer     *Conn
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	procMu     sync.Mutex
	processing bool
	loadErr    error
}

func (u *unit) alive() bool {
	if u == nil {
		return false
	}
	select {
	case <-u.done:
		return false
	default:
	}
	return !u.conn.Closed()
}

func (u *unit) signalStop() {
	u.stopOnce.Do(func() { close(u.stop) })
}

func (u *unit) stopping() bool {
	select {
	case <-u.stop:
		return true
	default:
		return false
	}
}

func (u *unit) setProcessing(v bool) {
	u.procMu.Lock()
	u.processing = v
	u.procMu.Unlock()
}

func (u *unit) setLoadErr(err error) {
	u.procMu.Lock()
	u.loadErr = err
	u.procMu.Unlock()
}

func (u *unit) loadError() error {
	u.procMu.Lock()
	defer u.procMu.Unlock()
	return u.loadErr
}

func (u *unit) isProcessing() bool {
	u.procMu.Lock()
	defer u.procMu.Unlock()
	return u.processing
}

// New constructs a stopped Worker.
func New(kind string, cfg Config, backend Backend, opts ...Option) *Worker {
	w := &Worker{
		kind:    kind,
		cfg:     cfg,
		backend: backend,
		logger:  logging.NewNop(),
		grace:   defaultStopGrace,
		poll:    defaultPollInterval,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(
		logging.String(logging.FieldModelKind, kind),
		logging.String("model", cfg.Model),
		logging.String("backend", backend.Name()),
	)
	return w
}

// Kind returns the resource kind the worker serves.
func (w *Worker) Kind() string { return w.kind }

// Config returns the worker's resource configuration.
func (w *Worker) Config() Config { return w.cfg }

// Start launches a new execution unit unless one is already alive. It does
// not wait for the resource to load.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unit.alive() {
		return
	}

	conn, peer := Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	u := &unit{
		conn:   conn,
		peer:   peer,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	w.unit = u
	go w.run(u, w.cfg)
	w.logger.Debug("worker started")
}

// Stop asks the execution unit to exit and waits up to the grace period
// before abandoning it. IsAlive reports false once Stop returns.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	u := w.unit
	w.unit = nil
	if !u.alive() {
		if u != nil {
			u.cancel()
		}
		return
	}

	u.signalStop()
	timer := time.NewTimer(w.grace)
	defer timer.Stop()
	select {
	case <-u.done:
		u.cancel()
		w.logger.Info("worker stopped")
	case <-timer.C:
		u.cancel()
		u.conn.Close()
		logging.WarnWithContext(w.logger, "worker did not stop within grace period", "worker_stop_timeout",
			logging.Duration("grace", w.grace),
			logging.String(logging.FieldImpact, "execution unit abandoned; in-flight request aborted"),
			logging.String(logging.FieldErrorHint, "check the model backend for hung processes"),
		)
	}
}

// IsAlive reports whether an execution unit exists and has not exited.
func (w *Worker) IsAlive() bool {
	return w.current().alive()
}

// IsProcessing reports whether the execution unit is running a command.
func (w *Worker) IsProcessing() bool {
	u := w.current()
	if u == nil {
		return false
	}
	return u.isProcessing()
}

func (w *Worker) current() *unit {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unit
}

// Invoke sends cmd to the execution unit and waits for its outcome. Concurrent
// callers queue; one command is outstanding at a time.
func (w *Worker) Invoke(ctx context.Context, cmd Command) (any, error) {
	w.callMu.Lock()
	defer w.callMu.Unlock()

	u := w.current()
	if !u.alive() {
		return nil, ErrWorkerNotRunning
	}
	if w.invokeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.invokeTimeout)
		defer cancel()
	}

	seq := w.seq.Add(1)
	if err := u.conn.Send(ctx, envelope{Seq: seq, Command: cmd}); err != nil {
		return nil, w.transportError(u, cmd, err)
	}
	for {
		msg, err := u.conn.Recv(ctx)
		if err != nil {
			return nil, w.transportError(u, cmd, err)
		}
		if msg.Seq != seq {
			w.logger.Debug("discarding stale worker response", logging.Int64("seq", int64(msg.Seq)))
			continue
		}
		if msg.Outcome.Failed() {
			return nil, &ComputationError{Worker: w.kind, Command: cmd.Name, Err: msg.Outcome.Err}
		}
		return msg.Outcome.Value, nil
	}
}

func (w *Worker) transportError(u *unit, cmd Command, err error) error {
	switch {
	case errors.Is(err, ErrChannelClosed):
		return &ChannelError{Worker: w.kind, Err: u.loadError()}
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, w.kind, cmd.Name, "model invocation timed out", err)
	default:
		return err
	}
}

// run is the dispatch loop of one execution unit.
func (w *Worker) run(u *unit, cfg Config) {
	defer close(u.done)
	defer u.peer.Close()

	started := time.Now()
	resource, err := w.backend.Materialize(u.ctx, cfg)
	if err != nil {
		u.setLoadErr(err)
		logging.ErrorWithContext(w.logger, "model load failed", "model_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check model configuration and backend installation"),
		)
		return
	}
	w.logger.Info("model loaded", logging.Duration("elapsed", time.Since(started)))
	defer func() {
		if err := resource.Close(); err != nil {
			w.logger.Warn("model release failed", logging.Error(err))
		}
	}()

	for !u.stopping() {
		msg, ok, err := u.peer.Poll(w.poll)
		if err != nil {
			return
		}
		if !ok {
			continue
		}
		outcome := w.execute(u, resource, msg.Command)
		if err := u.peer.Send(u.ctx, envelope{Seq: msg.Seq, Outcome: outcome}); err != nil {
			return
		}
	}
}

func (w *Worker) execute(u *unit, resource Resource, cmd Command) (outcome Outcome) {
	u.setProcessing(true)
	defer u.setProcessing(false)
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker command panicked", logging.String("command", cmd.Name), logging.Any("panic", r))
			outcome = Failure(fmt.Errorf("%s panicked: %v", cmd.Name, r))
		}
	}()

	started := time.Now()
	value, err := resource.Handle(u.ctx, cmd)
	if err != nil {
		w.logger.Debug("worker command failed", logging.String("command", cmd.Name), logging.Error(err))
		return Failure(err)
	}
	w.logger.Debug("worker command completed",
		logging.String("command", cmd.Name),
		logging.Duration("elapsed", time.Since(started)),
	)
	return Result(value)
}
