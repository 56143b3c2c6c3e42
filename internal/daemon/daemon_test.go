package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"scribe/internal/daemon"
	"scribe/internal/logging"
	"scribe/internal/modelhost"
	"scribe/internal/testsupport"
)

func newDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, *modelhost.Registry) {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithStubbedBinaries()}, opts...)...)
	registry := modelhost.NewRegistry(cfg, logging.NewNop())
	d, err := daemon.New(cfg, registry, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, registry
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running || status.Address == "" {
		t.Fatalf("expected running daemon with address, got %+v", status)
	}
	if len(status.Models) != 2 {
		t.Fatalf("expected 2 model statuses, got %d", len(status.Models))
	}

	addr := status.Address
	resp, err := http.Get("http://" + addr + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	status = d.Status()
	if status.Running || status.Address != "" {
		t.Fatalf("expected daemon to be stopped, got %+v", status)
	}
	if _, err := http.Get("http://" + addr + "/api/health"); err == nil {
		t.Fatal("expected server to be unreachable after stop")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected restart after stop to fail")
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	first, err := daemon.New(cfg, modelhost.NewRegistry(cfg, logging.NewNop()), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(first.Stop)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := daemon.New(cfg, modelhost.NewRegistry(cfg, logging.NewNop()), logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	err = second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestStopClosesLoadedModels(t *testing.T) {
	d, registry := newDaemon(t)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	body := strings.NewReader(`{"text":"hello","source_language":"en","target_language":"fr"}`)
	resp, err := http.Post("http://"+d.Address()+"/api/translate", "application/json", body)
	if err != nil {
		t.Fatalf("translate request: %v", err)
	}
	var payload struct {
		Translation string `json:"translation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if payload.Translation != "[hello]" {
		t.Fatalf("translation = %q", payload.Translation)
	}

	var alive bool
	for _, st := range registry.Statuses() {
		if st.Kind == "translation" {
			alive = st.Alive
		}
	}
	if !alive {
		t.Fatal("expected translation model to be loaded")
	}

	d.Stop()
	for _, st := range registry.Statuses() {
		if st.Alive {
			t.Fatalf("model %s still alive after stop", st.Kind)
		}
	}
}
