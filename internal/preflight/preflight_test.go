package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scribe/internal/config"
	"scribe/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckServer_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/models" || r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"models":[{"kind":"speech_to_text"},{"kind":"translation"}]}`))
	}))
	defer srv.Close()

	result := CheckServer(context.Background(), srv.URL, "good")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "2 models") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckServer_BadToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	result := CheckServer(context.Background(), srv.URL, "bad")
	if result.Passed {
		t.Fatal("expected failure for bad token")
	}
}

func TestCheckServer_NotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	result := CheckServer(context.Background(), url, "")
	if result.Passed {
		t.Fatal("expected failure for closed server")
	}
	if result.Detail == "" {
		t.Fatal("expected detail")
	}
}

func TestCheckServer_MissingURL(t *testing.T) {
	if result := CheckServer(context.Background(), " ", ""); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_StubbedConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	binDir := filepath.Join(testsupport.BaseDir(cfg), "bin")
	testsupport.WriteExecutable(t, filepath.Join(binDir, "ffmpeg"), "#!/bin/sh\nexit 0\n")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	names := make(map[string]bool, len(results))
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"Data directory", "Upload directory", "whisper", "Translation host", "FFmpeg"} {
		if !names[want] {
			t.Errorf("missing check %q", want)
		}
	}
}

func TestRunAll_ReportsMissingBinary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.SpeechToText.Binary = "clearly-not-present-whisper"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, r := range Failed(RunAll(context.Background(), cfg)) {
		if r.Name == "whisper" {
			found = true
			if !strings.Contains(r.Detail, "not found") {
				t.Fatalf("unexpected detail %q", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected whisper failure")
	}
}

func TestProbeAccelerator(t *testing.T) {
	if probe := ProbeAccelerator(""); !probe.Detected || probe.Detail() != "cpu" {
		t.Fatalf("unexpected cpu probe %+v", probe)
	}

	binDir := t.TempDir()
	testsupport.WriteExecutable(t, filepath.Join(binDir, "nvidia-smi"), "#!/bin/sh\necho 'NVIDIA GeForce RTX 4090'\n")
	t.Setenv("PATH", binDir)
	probe := ProbeAccelerator("cuda:0")
	if !probe.Detected || probe.Name != "NVIDIA GeForce RTX 4090" {
		t.Fatalf("unexpected cuda probe %+v", probe)
	}
	if probe.Detail() != "NVIDIA GeForce RTX 4090 on cuda:0" {
		t.Fatalf("detail = %q", probe.Detail())
	}

	t.Setenv("PATH", "")
	if probe := ProbeAccelerator("cuda"); probe.Detected {
		t.Fatalf("expected undetected without nvidia-smi, got %+v", probe)
	}
}

func TestCheckServerFromConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.APIBind = strings.TrimPrefix(srv.URL, "http://")
	if result := CheckServerFromConfig(context.Background(), &cfg); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
}
