package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"scribe/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("SCRIBE_API_TOKEN", "")
	t.Setenv("SCRIBE_DEVICE", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "scribe")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	wantModels := filepath.Join(tempHome, ".cache", "scribe", "models", "whisper")
	if cfg.SpeechToText.DownloadPath != wantModels {
		t.Fatalf("unexpected whisper download path: got %q want %q", cfg.SpeechToText.DownloadPath, wantModels)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Compute.Device != "cpu" {
		t.Fatalf("unexpected device: %q", cfg.Compute.Device)
	}
	if cfg.SpeechToText.ModelName != "openai/whisper" || cfg.SpeechToText.ModelType != "turbo" {
		t.Fatalf("unexpected speech model: %q/%q", cfg.SpeechToText.ModelName, cfg.SpeechToText.ModelType)
	}
	if cfg.Translation.ModelName != "facebook/mbart-large-50-many-to-many-mmt" {
		t.Fatalf("unexpected translation model: %q", cfg.Translation.ModelName)
	}
	if cfg.IdleTimeout() != 60*time.Second {
		t.Fatalf("unexpected idle timeout: %s", cfg.IdleTimeout())
	}
	if cfg.StopGrace() != 5*time.Second {
		t.Fatalf("unexpected stop grace: %s", cfg.StopGrace())
	}
	if !cfg.Uploads.DeleteAfterTranscription {
		t.Fatal("expected uploads to be deleted after transcription by default")
	}
	if cfg.LockPath() != filepath.Join(wantData, "scribe.lock") {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.UploadDir, cfg.Paths.LogDir, cfg.SpeechToText.DownloadPath, cfg.Translation.DownloadPath} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "scribe.toml")

	type payload struct {
		Compute struct {
			Device string `toml:"device"`
		} `toml:"compute"`
		Translation struct {
			ModelName   string   `toml:"model_name"`
			HostCommand []string `toml:"host_command"`
		} `toml:"translation"`
		Models struct {
			IdleTimeoutSeconds int `toml:"idle_timeout_seconds"`
		} `toml:"models"`
	}
	custom := payload{}
	custom.Compute.Device = "CUDA:1"
	custom.Translation.ModelName = "facebook/seamless-m4t-v2-large"
	custom.Translation.HostCommand = []string{"python3", " -m ", "host", ""}
	custom.Models.IdleTimeoutSeconds = 0
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}
	t.Setenv("SCRIBE_DEVICE", "")

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Compute.Device != "cuda:1" {
		t.Fatalf("expected normalized device, got %q", cfg.Compute.Device)
	}
	if cfg.Translation.ModelName != "facebook/seamless-m4t-v2-large" {
		t.Fatalf("unexpected translation model: %q", cfg.Translation.ModelName)
	}
	want := []string{"python3", "-m", "host"}
	if strings.Join(cfg.Translation.HostCommand, " ") != strings.Join(want, " ") {
		t.Fatalf("unexpected host command: got %q want %q", cfg.Translation.HostCommand, want)
	}
	if cfg.IdleTimeout() != 0 {
		t.Fatalf("expected eviction disabled, got %s", cfg.IdleTimeout())
	}
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scribe.toml")
	contents := "[paths]\napi_token = \"file-token\"\n\n[compute]\ndevice = \"cpu\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("SCRIBE_API_TOKEN", "env-token")
	t.Setenv("SCRIBE_DEVICE", "mps")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.APIToken != "env-token" {
		t.Errorf("expected API token from env, got %q", cfg.Paths.APIToken)
	}
	if cfg.Compute.Device != "mps" {
		t.Errorf("expected device from env, got %q", cfg.Compute.Device)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "scribe.toml")
	if err := os.WriteFile(configPath, []byte("[paths\napi_bind = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "idle_timeout_seconds") {
		t.Fatalf("sample config missing idle timeout: %s", contents)
	}
	for _, line := range []string{`{"ready":true}`, `"translation":"Bonjour"`, "--flavor"} {
		if !strings.Contains(string(contents), line) {
			t.Fatalf("sample config does not document the translation host protocol (%s)", line)
		}
	}

	cfg := config.Default()
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.SpeechToText.ModelName != "openai/whisper" {
		t.Fatalf("unexpected sample model name: %q", cfg.SpeechToText.ModelName)
	}
	if cfg.Compute.Device != "cpu" {
		t.Fatalf("unexpected sample device: %q", cfg.Compute.Device)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Default()
		cfg.Compute.Device = "cpu"
		return cfg
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cases := map[string]func(*config.Config){
		"unknown device":         func(c *config.Config) { c.Compute.Device = "tpu" },
		"bad cuda index":         func(c *config.Config) { c.Compute.Device = "cuda:x" },
		"negative idle timeout":  func(c *config.Config) { c.Models.IdleTimeoutSeconds = -1 },
		"zero stop grace":        func(c *config.Config) { c.Models.StopGraceSeconds = 0 },
		"empty speech model":     func(c *config.Config) { c.SpeechToText.ModelName = "" },
		"empty translation":      func(c *config.Config) { c.Translation.ModelName = "" },
		"unknown log format":     func(c *config.Config) { c.Logging.Format = "xml" },
		"unknown log level":      func(c *config.Config) { c.Logging.Level = "trace" },
		"negative invoke window": func(c *config.Config) { c.Models.InvokeTimeoutSeconds = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestAPIBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:8000": "http://127.0.0.1:8000",
		"0.0.0.0:9000":   "http://127.0.0.1:9000",
		":8080":          "http://127.0.0.1:8080",
		"[::]:7000":      "http://127.0.0.1:7000",
		"scribe.lan:80":  "http://scribe.lan:80",
	}
	for bind, want := range cases {
		cfg := config.Default()
		cfg.Paths.APIBind = bind
		if got := cfg.APIBaseURL(); got != want {
			t.Errorf("APIBaseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}
