package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"scribe/internal/api"
	"scribe/internal/config"
	"scribe/internal/modelhost"
)

// fetchModels reads model status from a running server.
func fetchModels(ctx context.Context, cfg *config.Config) ([]modelhost.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.APIBaseURL()+"/api/models", nil)
	if err != nil {
		return nil, err
	}
	if token := strings.TrimSpace(cfg.Paths.APIToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure api.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&failure) == nil && failure.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, failure.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	var payload api.ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	return payload.Models, nil
}
