package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/modelhost"
	"scribe/internal/preflight"
	"scribe/internal/transcription"
	"scribe/internal/uploads"
)

// Daemon owns the API server and the model registry.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	base     *slog.Logger
	registry *modelhost.Registry
	uploads  *uploads.Store
	svc      *transcription.Service
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running atomic.Bool
	stopped bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	Address      string             `json:"address,omitempty"`
	LockFilePath string             `json:"lock_file_path"`
	Models       []modelhost.Status `json:"models"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, registry *modelhost.Registry, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || registry == nil {
		return nil, errors.New("daemon requires config and model registry")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	store, err := uploads.NewStore(cfg.Paths.UploadDir, cfg.Uploads.MaxUploadMB)
	if err != nil {
		return nil, fmt.Errorf("open upload store: %w", err)
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		base:     logger,
		registry: registry,
		uploads:  store,
		svc:      transcription.New(cfg, registry, store, logger),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and starts serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if d.stopped {
		return errors.New("daemon already stopped")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another scribe server is already running")
	}

	for _, failed := range preflight.Failed(preflight.RunAll(ctx, d.cfg)) {
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", failed.Name),
			logging.String("detail", failed.Detail),
			logging.String(logging.FieldImpact, "requests needing this dependency will fail"),
		)
	}

	runCtx, cancel := context.WithCancel(ctx)
	server := newAPIServer(d.cfg, d.svc, d.registry, d.uploads, d.base)
	if err := server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.api = server
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("scribe server started",
		logging.String("lock", d.lockPath),
		logging.String("address", server.address()),
	)
	return nil
}

// Stop shuts down the API server, stops every model and releases the lock.
// A stopped daemon cannot be started again.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running.Load() {
		return
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.registry.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.stopped = true
	d.logger.Info("scribe server stopped")
}

// Address returns the address the API listens on, empty when stopped.
func (d *Daemon) Address() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() || d.api == nil {
		return ""
	}
	return d.api.address()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Address:      d.Address(),
		LockFilePath: d.lockPath,
		Models:       d.registry.Statuses(),
	}
}
