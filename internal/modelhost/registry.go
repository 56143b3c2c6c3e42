package modelhost

import (
	"log/slog"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/worker"
)

// WorkerSource builds the worker for a resource kind and reports its model name.
type WorkerSource func(kind string) (Worker, string, error)

// Registry holds one lazily built Manager per resource kind.
type Registry struct {
	cfg      *config.Config
	logger   *slog.Logger
	source   WorkerSource
	newTimer func() Timer

	speech      Once[Manager]
	translation Once[Manager]
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithWorkerSource replaces the worker factory.
func WithWorkerSource(source WorkerSource) RegistryOption {
	return func(r *Registry) {
		if source != nil {
			r.source = source
		}
	}
}

// WithTimerFactory replaces the idle timer constructor.
func WithTimerFactory(newTimer func() Timer) RegistryOption {
	return func(r *Registry) {
		if newTimer != nil {
			r.newTimer = newTimer
		}
	}
}

// NewRegistry returns a Registry backed by worker.Factory.
func NewRegistry(cfg *config.Config, logger *slog.Logger, opts ...RegistryOption) *Registry {
	factory := worker.NewFactory(cfg, logger)
	r := &Registry{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "modelhost"),
		source: func(kind string) (Worker, string, error) {
			w, err := factory.Create(kind)
			if err != nil {
				return nil, "", err
			}
			return w, w.Config().Model, nil
		},
		newTimer: NewTimer,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SpeechToText returns the recognition Manager.
func (r *Registry) SpeechToText() (*Manager, error) {
	return r.speech.Get(func() (*Manager, error) {
		return r.build(worker.KindSpeechToText)
	})
}

// Translation returns the translation Manager.
func (r *Registry) Translation() (*Manager, error) {
	return r.translation.Get(func() (*Manager, error) {
		return r.build(worker.KindTranslation)
	})
}

func (r *Registry) build(kind string) (*Manager, error) {
	w, model, err := r.source(kind)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("model manager created", logging.String(logging.FieldModelKind, kind), logging.String("model", model))
	return NewManager(kind, model, w, r.cfg.IdleTimeout(),
		WithTimer(r.newTimer()),
		WithLogger(r.logger),
	), nil
}

// Statuses reports every resource kind; kinds never used report the
// configured model as not alive.
func (r *Registry) Statuses() []Status {
	idle := int(r.cfg.IdleTimeout().Seconds())
	statuses := make([]Status, 0, 2)
	if m := r.speech.Peek(); m != nil {
		statuses = append(statuses, m.Status())
	} else {
		statuses = append(statuses, Status{Kind: worker.KindSpeechToText, Model: r.cfg.SpeechToText.ModelName, IdleTimeoutSeconds: idle})
	}
	if m := r.translation.Peek(); m != nil {
		statuses = append(statuses, m.Status())
	} else {
		statuses = append(statuses, Status{Kind: worker.KindTranslation, Model: r.cfg.Translation.ModelName, IdleTimeoutSeconds: idle})
	}
	return statuses
}

// Close shuts down every Manager that was built.
func (r *Registry) Close() {
	for _, m := range []*Manager{r.speech.Peek(), r.translation.Peek()} {
		if m != nil {
			m.Close()
		}
	}
}
