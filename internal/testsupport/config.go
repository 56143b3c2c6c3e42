package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"scribe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Model binaries resolve inside the temp tree so nothing touches the host.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Compute.Device = "cpu"
	cfgVal.SpeechToText.DownloadPath = filepath.Join(base, "models", "whisper")
	cfgVal.Translation.DownloadPath = filepath.Join(base, "models", "translation")
	cfgVal.Models.StopGraceSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithIdleTimeout overrides the model idle timeout in seconds.
func WithIdleTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Models.IdleTimeoutSeconds = seconds
	}
}

// WithTranslationModel overrides the configured translation model name.
func WithTranslationModel(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translation.ModelName = name
	}
}

// WithAPIToken sets the bearer token required by the API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the whisper CLI and the
// translation host are stubbed with scripts that speak their protocols.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if len(names) == 0 {
			WriteExecutable(b.t, filepath.Join(binDir, b.cfg.SpeechToText.Binary), WhisperStubScript)
			host := filepath.Join(binDir, "scribe-translate-host")
			WriteExecutable(b.t, host, TranslationHostStubScript)
			b.cfg.Translation.HostCommand = []string{host}
		} else {
			for _, name := range names {
				WriteExecutable(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
			}
		}
		PrependPath(b.t, binDir)
	}
}

// PrependPath puts dir in front of PATH for the duration of the test.
func PrependPath(t testing.TB, dir string) {
	t.Helper()
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
