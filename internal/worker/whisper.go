package worker

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// commandRunner runs an external program and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultCommandRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// whisperFlags maps accepted transcription parameters onto CLI flags.
var whisperFlags = map[string]string{
	"language":                    "--language",
	"fp16":                        "--fp16",
	"task":                        "--task",
	"temperature":                 "--temperature",
	"beam_size":                   "--beam_size",
	"best_of":                     "--best_of",
	"patience":                    "--patience",
	"length_penalty":              "--length_penalty",
	"initial_prompt":              "--initial_prompt",
	"word_timestamps":             "--word_timestamps",
	"condition_on_previous_text":  "--condition_on_previous_text",
	"no_speech_threshold":         "--no_speech_threshold",
	"logprob_threshold":           "--logprob_threshold",
	"compression_ratio_threshold": "--compression_ratio_threshold",
}

// WhisperBackend runs speech recognition through the openai-whisper CLI.
// The model weights are cached under the worker's DownloadPath.
type WhisperBackend struct {
	Binary    string
	ModelType string

	run      commandRunner
	lookPath func(string) (string, error)
}

// NewWhisperBackend returns a backend invoking binary with the given model type.
func NewWhisperBackend(binary, modelType string) *WhisperBackend {
	return &WhisperBackend{
		Binary:    binary,
		ModelType: modelType,
		run:       defaultCommandRunner,
		lookPath:  exec.LookPath,
	}
}

func (b *WhisperBackend) Name() string { return "whisper" }

// Materialize resolves the CLI and prepares the model cache directory.
func (b *WhisperBackend) Materialize(_ context.Context, cfg Config) (Resource, error) {
	binary, err := b.lookPath(b.Binary)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, KindSpeechToText, "materialize",
			fmt.Sprintf("whisper binary %q not found", b.Binary), err)
	}
	if strings.TrimSpace(cfg.DownloadPath) != "" {
		if err := os.MkdirAll(cfg.DownloadPath, 0o755); err != nil {
			return nil, services.Wrap(services.ErrConfiguration, KindSpeechToText, "materialize",
				"create model directory", err)
		}
	}
	return &whisperResource{
		binary:    binary,
		modelType: b.ModelType,
		cfg:       cfg,
		run:       b.run,
	}, nil
}

type whisperResource struct {
	binary    string
	modelType string
	cfg       Config
	run       commandRunner
}

func (r *whisperResource) Handle(ctx context.Context, cmd Command) (any, error) {
	if cmd.Name != CommandTranscribe {
		return nil, unsupportedCommand(KindSpeechToText, cmd)
	}
	args, ok := cmd.Args.(TranscribeArgs)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, KindSpeechToText, cmd.Name,
			fmt.Sprintf("unexpected arguments %T", cmd.Args), nil)
	}
	if _, err := os.Stat(args.Path); err != nil {
		return nil, services.Wrap(services.ErrNotFound, KindSpeechToText, cmd.Name, "input file unavailable", err)
	}

	params := mergeTranscriptionParameters(args, r.cfg.Device)
	outputDir, err := os.MkdirTemp("", "scribe-whisper-")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, KindSpeechToText, cmd.Name, "create output directory", err)
	}
	defer os.RemoveAll(outputDir)

	argv, err := r.buildArgs(args.Path, outputDir, params)
	if err != nil {
		return nil, err
	}
	if _, err := r.run(ctx, r.binary, argv...); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, KindSpeechToText, cmd.Name, "whisper failed", err)
	}

	stem := strings.TrimSuffix(filepath.Base(args.Path), filepath.Ext(args.Path))
	result, err := transcript.Load(filepath.Join(outputDir, stem+".json"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, KindSpeechToText, cmd.Name, "read whisper output", err)
	}
	if result.Language == "" {
		if lang, ok := params["language"].(string); ok {
			result.Language = lang
		}
	}
	return result, nil
}

func (r *whisperResource) Close() error { return nil }

func (r *whisperResource) buildArgs(input, outputDir string, params map[string]any) ([]string, error) {
	argv := []string{
		input,
		"--model", r.modelType,
		"--device", r.cfg.Device,
		"--output_format", "json",
		"--output_dir", outputDir,
		"--verbose", "False",
	}
	if r.cfg.DownloadPath != "" {
		argv = append(argv, "--model_dir", r.cfg.DownloadPath)
	}

	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		flag, ok := whisperFlags[key]
		if !ok {
			return nil, services.Wrap(services.ErrValidation, KindSpeechToText, CommandTranscribe,
				fmt.Sprintf("unsupported transcription parameter %q", key), nil)
		}
		value := formatParameter(params[key])
		if key == "language" && (value == "" || strings.EqualFold(value, "auto")) {
			continue
		}
		argv = append(argv, flag, value)
	}
	return argv, nil
}

// mergeTranscriptionParameters applies the recognition defaults: language
// falls back to the requested language and fp16 is enabled only off-CPU.
// Caller-supplied keys always win.
func mergeTranscriptionParameters(args TranscribeArgs, device string) map[string]any {
	merged := make(map[string]any, len(args.Parameters)+2)
	for key, value := range args.Parameters {
		merged[key] = value
	}
	if _, ok := merged["language"]; !ok && args.Language != "" {
		merged["language"] = args.Language
	}
	if _, ok := merged["fp16"]; !ok {
		merged["fp16"] = device != "cpu"
	}
	return merged
}

func formatParameter(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "True"
		}
		return "False"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func unsupportedCommand(kind string, cmd Command) error {
	return services.Wrap(services.ErrValidation, kind, cmd.Name,
		fmt.Sprintf("command %q not supported", cmd.Name), nil)
}
