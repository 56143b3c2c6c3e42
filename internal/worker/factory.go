package worker

import (
	"log/slog"
	"strings"

	"scribe/internal/config"
	"scribe/internal/logging"
)

// Resource kinds.
const (
	KindSpeechToText = "speech_to_text"
	KindTranslation  = "translation"
)

// Supported model names.
const (
	ModelWhisper  = "openai/whisper"
	ModelMBART    = "facebook/mbart-large-50-many-to-many-mmt"
	ModelSeamless = "facebook/seamless-m4t-v2-large"
)

// SupportedModels lists the model names accepted for kind.
func SupportedModels(kind string) []string {
	switch kind {
	case KindSpeechToText:
		return []string{ModelWhisper}
	case KindTranslation:
		return []string{ModelMBART, ModelSeamless}
	default:
		return nil
	}
}

// Factory builds Workers from application configuration.
type Factory struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewFactory returns a Factory for cfg.
func NewFactory(cfg *config.Config, logger *slog.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logging.NewComponentLogger(logger, "worker")}
}

// Create returns the worker for kind.
func (f *Factory) Create(kind string) (*Worker, error) {
	switch kind {
	case KindSpeechToText:
		return f.SpeechToText()
	case KindTranslation:
		return f.Translation()
	default:
		return nil, &UnsupportedModelError{Kind: kind, Name: kind}
	}
}

// SpeechToText returns the recognition worker for the configured model.
func (f *Factory) SpeechToText() (*Worker, error) {
	stt := f.cfg.SpeechToText
	cfg := f.workerConfig(stt.ModelName, stt.DownloadPath)
	switch strings.ToLower(stt.ModelName) {
	case ModelWhisper:
		return New(KindSpeechToText, cfg, NewWhisperBackend(stt.Binary, stt.ModelType), f.options()...), nil
	default:
		return nil, &UnsupportedModelError{Kind: KindSpeechToText, Name: stt.ModelName}
	}
}

// Translation returns the translation worker for the configured model.
func (f *Factory) Translation() (*Worker, error) {
	tr := f.cfg.Translation
	cfg := f.workerConfig(tr.ModelName, tr.DownloadPath)
	var flavor string
	switch strings.ToLower(tr.ModelName) {
	case ModelMBART:
		flavor = FlavorMBART
	case ModelSeamless:
		flavor = FlavorSeamless
	default:
		return nil, &UnsupportedModelError{Kind: KindTranslation, Name: tr.ModelName}
	}
	backend := NewHostBackend(tr.HostCommand, flavor, f.cfg.StopGrace(), f.logger)
	return New(KindTranslation, cfg, backend, f.options()...), nil
}

func (f *Factory) workerConfig(model, downloadPath string) Config {
	return Config{
		Device:       f.cfg.Compute.Device,
		Model:        model,
		DownloadPath: downloadPath,
		LogLevel:     f.cfg.Logging.Level,
	}
}

func (f *Factory) options() []Option {
	return []Option{
		WithLogger(f.logger),
		WithStopGrace(f.cfg.StopGrace()),
		WithInvokeTimeout(f.cfg.InvokeTimeout()),
	}
}
