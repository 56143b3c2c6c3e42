package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// Translation host flavours.
const (
	FlavorMBART    = "mbart"
	FlavorSeamless = "seamless"
)

const hostStderrTail = 20

// hostRequest is one line written to the host's stdin.
type hostRequest struct {
	ID             uint64         `json:"id"`
	Text           string         `json:"text"`
	SourceLanguage string         `json:"source_language"`
	TargetLanguage string         `json:"target_language"`
	Parameters     map[string]any `json:"parameters,omitempty"`
}

// hostResponse is one line read from the host's stdout. The first line the
// host prints after loading its model is {"ready":true}.
type hostResponse struct {
	ID          uint64 `json:"id"`
	Ready       bool   `json:"ready,omitempty"`
	Translation string `json:"translation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HostBackend runs a translation model inside a long-lived helper process
// that speaks newline-delimited JSON on stdin/stdout.
type HostBackend struct {
	Command []string
	Flavor  string
	Grace   time.Duration
	Logger  *slog.Logger
}

// NewHostBackend returns a backend launching command for the given flavour.
func NewHostBackend(command []string, flavor string, grace time.Duration, logger *slog.Logger) *HostBackend {
	if grace <= 0 {
		grace = defaultStopGrace
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HostBackend{
		Command: append([]string(nil), command...),
		Flavor:  flavor,
		Grace:   grace,
		Logger:  logger,
	}
}

func (b *HostBackend) Name() string { return "host:" + b.Flavor }

// Materialize starts the host process in its own process group and waits for
// it to report that the model is loaded.
func (b *HostBackend) Materialize(ctx context.Context, cfg Config) (Resource, error) {
	if len(b.Command) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, KindTranslation, "materialize", "translation host command is empty", nil)
	}
	argv := append([]string(nil), b.Command[1:]...)
	argv = append(argv,
		"--model", cfg.Model,
		"--flavor", b.Flavor,
		"--device", cfg.Device,
		"--log-level", cfg.LogLevel,
	)
	if cfg.DownloadPath != "" {
		argv = append(argv, "--cache-dir", cfg.DownloadPath)
	}

	cmd := exec.CommandContext(ctx, b.Command[0], argv...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("translation host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("translation host stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("translation host stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, KindTranslation, "materialize",
			fmt.Sprintf("start translation host %q (host_command; the protocol is described in the sample config)", b.Command[0]), err)
	}

	res := &hostResource{
		cmd:       cmd,
		stdin:     stdin,
		responses: make(chan hostResponse, 8),
		exited:    make(chan struct{}),
		closing:   make(chan struct{}),
		grace:     b.Grace,
		logger:    b.Logger.With(logging.String("pid", fmt.Sprint(cmd.Process.Pid))),
	}
	res.readers.Add(2)
	go res.readStdout(stdout)
	go res.readStderr(stderr)
	go res.wait()

	select {
	case resp, ok := <-res.responses:
		if ok && resp.Ready {
			return res, nil
		}
		_ = res.Close()
		if ok {
			return nil, services.Wrap(services.ErrExternalTool, KindTranslation, "materialize",
				"translation host did not report ready", errors.New(resp.Error))
		}
		return nil, services.Wrap(services.ErrExternalTool, KindTranslation, "materialize",
			"translation host exited during load", res.exitError())
	case <-ctx.Done():
		_ = res.Close()
		return nil, ctx.Err()
	}
}

type hostResource struct {
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	responses chan hostResponse
	exited    chan struct{}
	closing   chan struct{}
	readers   sync.WaitGroup
	grace     time.Duration
	logger    *slog.Logger
	nextID    uint64

	mu       sync.Mutex
	waitErr  error
	stderr   []string
	closeErr error
	closed   bool
}

func (r *hostResource) readStdout(stdout io.Reader) {
	defer r.readers.Done()
	defer close(r.responses)
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var resp hostResponse
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			r.logger.Debug("ignoring non-protocol host output", logging.String("line", line))
			continue
		}
		select {
		case r.responses <- resp:
		case <-r.closing:
			return
		}
	}
}

func (r *hostResource) readStderr(stderr io.Reader) {
	defer r.readers.Done()
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		r.logger.Debug("translation host", logging.String("stderr", line))
		r.mu.Lock()
		r.stderr = append(r.stderr, line)
		if len(r.stderr) > hostStderrTail {
			r.stderr = r.stderr[len(r.stderr)-hostStderrTail:]
		}
		r.mu.Unlock()
	}
}

func (r *hostResource) wait() {
	r.readers.Wait()
	err := r.cmd.Wait()
	r.mu.Lock()
	r.waitErr = err
	r.mu.Unlock()
	close(r.exited)
}

func (r *hostResource) exitError() error {
	timer := time.NewTimer(r.grace)
	defer timer.Stop()
	select {
	case <-r.exited:
	case <-timer.C:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tail := strings.TrimSpace(strings.Join(r.stderr, "\n"))
	if r.waitErr != nil {
		return fmt.Errorf("%w: %s", r.waitErr, tail)
	}
	if tail == "" {
		return io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %s", io.ErrUnexpectedEOF, tail)
}

// Handle sends one translation request and waits for the matching reply.
func (r *hostResource) Handle(ctx context.Context, cmd Command) (any, error) {
	if cmd.Name != CommandTranslate {
		return nil, unsupportedCommand(KindTranslation, cmd)
	}
	args, ok := cmd.Args.(TranslateArgs)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, KindTranslation, cmd.Name,
			fmt.Sprintf("unexpected arguments %T", cmd.Args), nil)
	}

	r.nextID++
	req := hostRequest{
		ID:             r.nextID,
		Text:           args.Text,
		SourceLanguage: args.SourceLanguage,
		TargetLanguage: args.TargetLanguage,
		Parameters:     args.Parameters,
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, KindTranslation, cmd.Name, "encode request", err)
	}
	if _, err := r.stdin.Write(append(payload, '\n')); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, KindTranslation, cmd.Name, "write to translation host", err)
	}

	for {
		select {
		case resp, ok := <-r.responses:
			if !ok {
				return nil, services.Wrap(services.ErrExternalTool, KindTranslation, cmd.Name,
					"translation host exited", r.exitError())
			}
			if resp.ID != req.ID {
				continue
			}
			if resp.Error != "" {
				return nil, services.Wrap(services.ErrExternalTool, KindTranslation, cmd.Name,
					"translation failed", errors.New(resp.Error))
			}
			return resp.Translation, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close ends the host: stdin is closed so it can exit on its own, then the
// whole process group is killed if it outlives the grace period.
func (r *hostResource) Close() error {
	r.mu.Lock()
	if r.closed {
		err := r.closeErr
		r.mu.Unlock()
		return err
	}
	r.closed = true
	r.mu.Unlock()

	close(r.closing)
	_ = r.stdin.Close()
	timer := time.NewTimer(r.grace)
	defer timer.Stop()
	var err error
	select {
	case <-r.exited:
	case <-timer.C:
		r.logger.Warn("translation host ignored shutdown; killing process group")
		if killErr := killGroup(r.cmd); killErr != nil {
			err = fmt.Errorf("kill translation host: %w", killErr)
		}
		<-r.exited
	}
	r.mu.Lock()
	r.closeErr = err
	r.mu.Unlock()
	return err
}

func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
