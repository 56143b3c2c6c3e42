package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCompute()
	if err := c.normalizeSpeechToText(); err != nil {
		return err
	}
	if err := c.normalizeTranslation(); err != nil {
		return err
	}
	c.normalizeModels()
	c.normalizeUploads()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if value, ok := os.LookupEnv("SCRIBE_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIToken = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.Paths.APITokenHash = strings.TrimSpace(c.Paths.APITokenHash)
	return nil
}

func (c *Config) normalizeCompute() {
	if value, ok := os.LookupEnv("SCRIBE_DEVICE"); ok && strings.TrimSpace(value) != "" {
		c.Compute.Device = value
	}
	c.Compute.Device = strings.ToLower(strings.TrimSpace(c.Compute.Device))
	if c.Compute.Device == "" {
		c.Compute.Device = defaultDevice
	}
}

func (c *Config) normalizeSpeechToText() error {
	var err error
	c.SpeechToText.ModelName = strings.TrimSpace(c.SpeechToText.ModelName)
	c.SpeechToText.ModelType = strings.TrimSpace(c.SpeechToText.ModelType)
	if c.SpeechToText.ModelType == "" {
		c.SpeechToText.ModelType = defaultSpeechToTextModelType
	}
	c.SpeechToText.Binary = strings.TrimSpace(c.SpeechToText.Binary)
	if c.SpeechToText.Binary == "" {
		c.SpeechToText.Binary = defaultSpeechToTextBinary
	}
	if strings.TrimSpace(c.SpeechToText.DownloadPath) == "" {
		c.SpeechToText.DownloadPath = defaultModelCacheDir("whisper")
	}
	if c.SpeechToText.DownloadPath, err = expandPath(c.SpeechToText.DownloadPath); err != nil {
		return fmt.Errorf("speech_to_text.download_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranslation() error {
	var err error
	c.Translation.ModelName = strings.TrimSpace(c.Translation.ModelName)
	if strings.TrimSpace(c.Translation.DownloadPath) == "" {
		c.Translation.DownloadPath = defaultModelCacheDir("translation")
	}
	if c.Translation.DownloadPath, err = expandPath(c.Translation.DownloadPath); err != nil {
		return fmt.Errorf("translation.download_path: %w", err)
	}
	command := make([]string, 0, len(c.Translation.HostCommand))
	for _, arg := range c.Translation.HostCommand {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			command = append(command, trimmed)
		}
	}
	if len(command) == 0 {
		command = []string{defaultTranslationHostCommand}
	}
	c.Translation.HostCommand = command
	return nil
}

func (c *Config) normalizeModels() {
	if value, ok := os.LookupEnv("SCRIBE_MODEL_IDLE_TIMEOUT"); ok {
		if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			c.Models.IdleTimeoutSeconds = seconds
		}
	}
	if c.Models.StopGraceSeconds <= 0 {
		c.Models.StopGraceSeconds = defaultStopGraceSeconds
	}
}

func (c *Config) normalizeUploads() {
	if c.Uploads.MaxUploadMB <= 0 {
		c.Uploads.MaxUploadMB = defaultMaxUploadMB
	}
}

func (c *Config) normalizeAPI() {
	origins := make([]string, 0, len(c.API.AllowedOrigins))
	seen := make(map[string]struct{}, len(c.API.AllowedOrigins))
	for _, origin := range c.API.AllowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		origins = append(origins, trimmed)
	}
	c.API.AllowedOrigins = origins
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
