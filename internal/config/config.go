package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	UploadDir    string `toml:"upload_dir"`
	LogDir       string `toml:"log_dir"`
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
	APITokenHash string `toml:"api_token_hash"`
}

// Compute selects the accelerator the models run on.
type Compute struct {
	Device string `toml:"device"`
}

// SpeechToText configures the recognition model and the CLI that hosts it.
type SpeechToText struct {
	ModelName    string `toml:"model_name"`
	ModelType    string `toml:"model_type"`
	DownloadPath string `toml:"download_path"`
	Binary       string `toml:"binary"`
}

// Translation configures the translation model and its helper process.
type Translation struct {
	ModelName    string   `toml:"model_name"`
	DownloadPath string   `toml:"download_path"`
	HostCommand  []string `toml:"host_command"`
}

// Models contains worker lifecycle timing.
type Models struct {
	// IdleTimeoutSeconds is how long a loaded model may sit unused before it
	// is evicted. Zero disables eviction.
	IdleTimeoutSeconds   int `toml:"idle_timeout_seconds"`
	StopGraceSeconds     int `toml:"stop_grace_seconds"`
	InvokeTimeoutSeconds int `toml:"invoke_timeout_seconds"`
}

// Uploads contains handling rules for files received over the API.
type Uploads struct {
	DeleteAfterTranscription bool `toml:"delete_after_transcription"`
	MaxUploadMB              int  `toml:"max_upload_mb"`
}

// API contains HTTP transport settings.
type API struct {
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for scribe.
//
// Configuration sections by subsystem:
//   - Paths: data, upload and log directories plus the API bind address/token
//   - Compute: accelerator device shared by every model
//   - SpeechToText: recognition model and CLI binary
//   - Translation: translation model and helper host command
//   - Models: idle eviction and worker stop/invoke timing
//   - Uploads: upload size limit and post-transcription cleanup
//   - API: CORS origins
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Compute      Compute      `toml:"compute"`
	SpeechToText SpeechToText `toml:"speech_to_text"`
	Translation  Translation  `toml:"translation"`
	Models       Models       `toml:"models"`
	Uploads      Uploads      `toml:"uploads"`
	API          API          `toml:"api"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("scribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the server writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.UploadDir,
		c.Paths.LogDir,
		c.SpeechToText.DownloadPath,
		c.Translation.DownloadPath,
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the single-instance lock file used by the server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "scribe.lock")
}

// IdleTimeout returns the model idle eviction delay.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Models.IdleTimeoutSeconds) * time.Second
}

// StopGrace returns how long a worker may take to exit cooperatively.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Models.StopGraceSeconds) * time.Second
}

// InvokeTimeout returns the per-request ceiling for a model call. Zero means
// the caller's context alone bounds the call.
func (c *Config) InvokeTimeout() time.Duration {
	return time.Duration(c.Models.InvokeTimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Uploads.MaxUploadMB) << 20
}

// APIBaseURL returns the URL clients use to reach the API. Wildcard bind
// hosts are replaced with the loopback address.
func (c *Config) APIBaseURL() string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(c.Paths.APIBind))
	if err != nil {
		return "http://" + strings.TrimSpace(c.Paths.APIBind)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultModelCacheDir(name string) string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "scribe", "models", name)
	}
	return filepath.Join("~", ".cache", "scribe", "models", name)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
