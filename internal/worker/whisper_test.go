package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"scribe/internal/services"
	"scribe/internal/testsupport"
	"scribe/internal/transcript"
)

func TestMergeTranscriptionParametersDefaults(t *testing.T) {
	got := mergeTranscriptionParameters(TranscribeArgs{Language: "en"}, "cpu")
	want := map[string]any{"language": "en", "fp16": false}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("cpu defaults = %v, want %v", got, want)
	}

	got = mergeTranscriptionParameters(TranscribeArgs{Language: "en"}, "cuda")
	if got["fp16"] != true {
		t.Fatalf("expected fp16 on accelerated device, got %v", got["fp16"])
	}
}

func TestMergeTranscriptionParametersCallerWins(t *testing.T) {
	args := TranscribeArgs{
		Language:   "en",
		Parameters: map[string]any{"language": "de", "fp16": true, "beam_size": float64(5)},
	}
	got := mergeTranscriptionParameters(args, "cpu")
	if got["language"] != "de" || got["fp16"] != true || got["beam_size"] != float64(5) {
		t.Fatalf("caller parameters overridden: %v", got)
	}
	if _, ok := args.Parameters["fp16"]; !ok || len(args.Parameters) != 3 {
		t.Fatal("caller map must not be mutated")
	}
}

func TestFormatParameter(t *testing.T) {
	cases := map[string]any{
		"True":  true,
		"False": false,
		"0.2":   0.2,
		"5":     5,
		"hi":    "hi",
	}
	for want, value := range cases {
		if got := formatParameter(value); got != want {
			t.Fatalf("formatParameter(%v) = %q, want %q", value, got, want)
		}
	}
}

func whisperResourceForTest(t *testing.T, device string) (Resource, string) {
	t.Helper()
	dir := t.TempDir()
	binary := filepath.Join(dir, "whisper")
	testsupport.WriteExecutable(t, binary, testsupport.WhisperStubScript)
	argsFile := filepath.Join(dir, "args.txt")
	t.Setenv("SCRIBE_STUB_ARGS_FILE", argsFile)

	backend := NewWhisperBackend(binary, "turbo")
	res, err := backend.Materialize(context.Background(), Config{
		Device:       device,
		Model:        ModelWhisper,
		DownloadPath: filepath.Join(dir, "models"),
	})
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	return res, argsFile
}

func TestWhisperBackendTranscribes(t *testing.T) {
	res, argsFile := whisperResourceForTest(t, "cpu")
	defer res.Close()

	input := filepath.Join(t.TempDir(), "interview.wav")
	testsupport.WriteFile(t, input, 16)

	value, err := res.Handle(context.Background(), Command{
		Name: CommandTranscribe,
		Args: TranscribeArgs{Path: input, Language: "en", Parameters: map[string]any{"beam_size": float64(5)}},
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	result, ok := value.(transcript.Result)
	if !ok {
		t.Fatalf("expected transcript.Result, got %T", value)
	}
	if len(result.Segments) != 2 || result.Segments[1].Text != "General Kenobi." {
		t.Fatalf("unexpected transcript %+v", result)
	}

	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	args := strings.Split(strings.TrimSpace(string(data)), "\n")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		input + " --model turbo",
		"--device cpu",
		"--output_format json",
		"--beam_size 5",
		"--fp16 False",
		"--language en",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
}

func TestWhisperBackendReportsToolFailure(t *testing.T) {
	res, _ := whisperResourceForTest(t, "cpu")
	input := filepath.Join(t.TempDir(), "corrupt.wav")
	testsupport.WriteFile(t, input, 16)

	_, err := res.Handle(context.Background(), Command{Name: CommandTranscribe, Args: TranscribeArgs{Path: input}})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "failed to decode audio") {
		t.Fatalf("expected tool output in error, got %v", err)
	}
}

func TestWhisperBackendRejectsBadInput(t *testing.T) {
	res, _ := whisperResourceForTest(t, "cpu")

	_, err := res.Handle(context.Background(), Command{Name: CommandTranscribe, Args: TranscribeArgs{Path: "/nonexistent.wav"}})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	input := filepath.Join(t.TempDir(), "a.wav")
	testsupport.WriteFile(t, input, 1)
	_, err = res.Handle(context.Background(), Command{
		Name: CommandTranscribe,
		Args: TranscribeArgs{Path: input, Parameters: map[string]any{"bogus": 1}},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown parameter, got %v", err)
	}

	_, err = res.Handle(context.Background(), Command{Name: CommandTranslate})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unknown command, got %v", err)
	}
}

func TestWhisperBackendMissingBinary(t *testing.T) {
	backend := NewWhisperBackend(filepath.Join(t.TempDir(), "nope"), "turbo")
	_, err := backend.Materialize(context.Background(), Config{Device: "cpu"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
