package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"scribe/internal/daemon"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/modelhost"
	"scribe/internal/testsupport"
	"scribe/internal/worker"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigHashToken(t *testing.T) {
	out, _, err := runCLI(t, []string{"config", "hash-token", "s3cret"}, "")
	if err != nil {
		t.Fatalf("hash-token: %v", err)
	}
	hash := strings.TrimSpace(out)
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")); err != nil {
		t.Fatalf("hash does not match token: %v", err)
	}

	out, _, err = runCLIWithInput(t, []string{"config", "hash-token"}, "", strings.NewReader("piped\n"))
	if err != nil {
		t.Fatalf("hash-token from stdin: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(strings.TrimSpace(out)), []byte("piped")); err != nil {
		t.Fatalf("stdin hash does not match: %v", err)
	}

	if _, _, err := runCLIWithInput(t, []string{"config", "hash-token"}, "", strings.NewReader("  ")); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestLanguagesCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"languages"}, "")
	if err != nil {
		t.Fatalf("languages: %v", err)
	}
	requireContains(t, out, "German")
	requireContains(t, out, "Deutsch")
	requireContains(t, out, "de_DE")

	out, _, err = runCLI(t, []string{"languages", "--model", "whisper", "--json"}, "")
	if err != nil {
		t.Fatalf("languages --json: %v", err)
	}
	var langs []language.Language
	if err := json.Unmarshal([]byte(out), &langs); err != nil {
		t.Fatalf("decode languages: %v", err)
	}
	whisper, _ := language.Supported(worker.ModelWhisper)
	if len(langs) != len(whisper) || len(langs) == 0 {
		t.Fatalf("expected %d whisper languages, got %d", len(whisper), len(langs))
	}
	for _, l := range langs {
		if l.Code == "xh" {
			t.Fatal("whisper listing should not include xh")
		}
	}

	if _, _, err := runCLI(t, []string{"languages", "--model", "nope"}, ""); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestTranscribeCommandFormats(t *testing.T) {
	env := setupCLITestEnv(t)
	media := filepath.Join(env.baseDir, "talk.wav")
	testsupport.WriteFile(t, media, 16)

	out, _, err := runCLI(t, []string{"transcribe", media, "--language", "en"}, env.configPath)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if out != "Hello there. General Kenobi.\n" {
		t.Fatalf("text output = %q", out)
	}

	srtPath := filepath.Join(env.baseDir, "talk.srt")
	if _, _, err := runCLI(t, []string{"transcribe", media, "--format", "srt", "--output", srtPath}, env.configPath); err != nil {
		t.Fatalf("transcribe srt: %v", err)
	}
	data, err := os.ReadFile(srtPath)
	if err != nil {
		t.Fatalf("read srt: %v", err)
	}
	requireContains(t, string(data), "00:00:01,500 --> 00:00:03,250")

	out, _, err = runCLI(t, []string{"transcribe", media, "--format", "json", "--target", "fr"}, env.configPath)
	if err != nil {
		t.Fatalf("transcribe json: %v", err)
	}
	var segments []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(out), &segments); err != nil {
		t.Fatalf("decode segments: %v", err)
	}
	if len(segments) != 2 || segments[0].Text != "[Hello there.]" {
		t.Fatalf("unexpected segments: %+v", segments)
	}

	if _, err := os.Stat(media); err != nil {
		t.Fatalf("local input removed: %v", err)
	}
	if _, _, err := runCLI(t, []string{"transcribe", media, "--format", "vtt"}, env.configPath); err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if _, _, err := runCLI(t, []string{"transcribe", filepath.Join(env.baseDir, "missing.wav")}, env.configPath); err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestTranslateCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"translate", "Good morning", "--from", "en", "--to", "es"}, env.configPath)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "[Good morning]\n" {
		t.Fatalf("translate output = %q", out)
	}

	out, _, err = runCLIWithInput(t, []string{"translate", "-", "--from", "en", "--to", "es"}, env.configPath, strings.NewReader("From stdin\n"))
	if err != nil {
		t.Fatalf("translate stdin: %v", err)
	}
	if out != "[From stdin]\n" {
		t.Fatalf("stdin output = %q", out)
	}

	if _, _, err := runCLI(t, []string{"translate", "hi", "--from", "en"}, env.configPath); err == nil {
		t.Fatal("expected error when --to is missing")
	}

	srtPath := filepath.Join(env.baseDir, "in.srt")
	srt := "1\n00:00:01,000 --> 00:00:02,000\nHello\n\n2\n00:00:02,000 --> 00:00:03,500\nworld.\n"
	if err := os.WriteFile(srtPath, []byte(srt), 0o644); err != nil {
		t.Fatalf("write srt: %v", err)
	}
	out, _, err = runCLI(t, []string{"subtitles", "translate", srtPath, "--from", "en", "--to", "de"}, env.configPath)
	if err != nil {
		t.Fatalf("subtitles translate: %v", err)
	}
	requireContains(t, out, "[Hello")
	requireContains(t, out, "world.]")
	requireContains(t, out, "00:00:02,000 --> 00:00:03,500")
}

func TestStatusCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	registry := modelhost.NewRegistry(env.cfg, logging.NewNop())
	d, err := daemon.New(env.cfg, registry, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	env.cfg.Paths.APIBind = d.Address()
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var report statusReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode status: %v\n%s", err, out)
	}
	if !report.Server.Passed {
		t.Fatalf("expected server check to pass: %+v", report.Server)
	}
	if len(report.Models) != 2 {
		t.Fatalf("expected 2 models, got %+v", report.Models)
	}
	if report.Accelerator.Device != "cpu" || !report.Accelerator.Detected {
		t.Fatalf("unexpected accelerator: %+v", report.Accelerator)
	}

	out, _, err = runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status text: %v", err)
	}
	requireContains(t, out, "== Server ==")
	requireContains(t, out, "speech_to_text")
}

func TestStatusCommandWithoutServer(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Paths.APIBind = "127.0.0.1:1"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "API server:")
	requireContains(t, out, "[WARN]")
}

func TestParseParameterFlags(t *testing.T) {
	params, err := parseParameterFlags([]string{"beam_size=5", "temperature=0.2", "prompt=hello world", "fp16=false"})
	if err != nil {
		t.Fatalf("parseParameterFlags: %v", err)
	}
	if params["beam_size"] != float64(5) || params["temperature"] != 0.2 {
		t.Fatalf("numeric values not decoded: %+v", params)
	}
	if params["prompt"] != "hello world" || params["fp16"] != false {
		t.Fatalf("unexpected values: %+v", params)
	}
	if _, err := parseParameterFlags([]string{"novalue"}); err == nil {
		t.Fatal("expected error for missing =")
	}
	if p, err := parseParameterFlags(nil); err != nil || p != nil {
		t.Fatalf("expected nil params, got %v %v", p, err)
	}
}
