package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCompute(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateUploads(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCompute() error {
	device := c.Compute.Device
	switch {
	case device == "cpu", device == "mps", device == "cuda":
		return nil
	case strings.HasPrefix(device, "cuda:"):
		if _, err := strconv.Atoi(strings.TrimPrefix(device, "cuda:")); err != nil {
			return fmt.Errorf("compute.device: invalid cuda index in %q", device)
		}
		return nil
	default:
		return fmt.Errorf("compute.device must be cpu, mps, cuda, or cuda:<index> (got %q)", device)
	}
}

// Model names are not checked against the supported set here; the worker
// factory owns that mapping and reports unsupported names when a model is
// first requested.
func (c *Config) validateModels() error {
	if c.SpeechToText.ModelName == "" {
		return errors.New("speech_to_text.model_name must be set")
	}
	if c.Translation.ModelName == "" {
		return errors.New("translation.model_name must be set")
	}
	if c.Models.IdleTimeoutSeconds < 0 {
		return errors.New("models.idle_timeout_seconds must be >= 0")
	}
	if c.Models.InvokeTimeoutSeconds < 0 {
		return errors.New("models.invoke_timeout_seconds must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"models.stop_grace_seconds": c.Models.StopGraceSeconds,
	})
}

func (c *Config) validateUploads() error {
	return ensurePositiveMap(map[string]int{
		"uploads.max_upload_mb": c.Uploads.MaxUploadMB,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error (got %q)", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
