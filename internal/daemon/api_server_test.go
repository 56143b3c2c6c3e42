package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"scribe/internal/api"
	"scribe/internal/logging"
	"scribe/internal/modelhost"
	"scribe/internal/testsupport"
	"scribe/internal/transcription"
	"scribe/internal/uploads"
)

func TestAPIServerServesModels(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	store, err := uploads.NewStore(cfg.Paths.UploadDir, cfg.Uploads.MaxUploadMB)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	registry := modelhost.NewRegistry(cfg, logging.NewNop())
	t.Cleanup(registry.Close)
	svc := transcription.New(cfg, registry, store, logging.NewNop())

	srv := newAPIServer(cfg, svc, registry, store, logging.NewNop())
	if srv.address() != "" {
		t.Fatalf("address before start = %q", srv.address())
	}
	if err := srv.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer srv.stop()

	resp, err := http.Get("http://" + srv.address() + "/api/models")
	if err != nil {
		t.Fatalf("models request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", resp.StatusCode)
	}
	var payload api.ModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Models) != 2 || payload.Models[0].Alive {
		t.Fatalf("unexpected models: %+v", payload.Models)
	}
}

func TestAPIServerRejectsBusyAddress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newAPIServer(cfg, nil, nil, nil, logging.NewNop())
	if err := first.start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer first.stop()

	cfg.Paths.APIBind = first.address()
	second := newAPIServer(cfg, nil, nil, nil, logging.NewNop())
	if err := second.start(context.Background()); err == nil {
		second.stop()
		t.Fatal("expected listen error on busy address")
	}
}
