package preflight

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"scribe/internal/config"
)

// CheckServerFromConfig checks the server at the configured bind address.
func CheckServerFromConfig(ctx context.Context, cfg *config.Config) Result {
	if cfg == nil {
		return Result{Name: "API server", Detail: "Unknown"}
	}
	return CheckServer(ctx, cfg.APIBaseURL(), cfg.Paths.APIToken)
}

// AcceleratorProbe reports what backs the configured compute device.
type AcceleratorProbe struct {
	Device   string
	Detected bool
	Name     string
}

// ProbeAccelerator asks nvidia-smi for the GPU behind a cuda device. CPU
// devices are always available.
func ProbeAccelerator(device string) AcceleratorProbe {
	device = strings.TrimSpace(device)
	if device == "" {
		device = "cpu"
	}
	if device == "cpu" {
		return AcceleratorProbe{Device: device, Detected: true, Name: "CPU"}
	}
	if !strings.HasPrefix(device, "cuda") {
		return AcceleratorProbe{Device: device}
	}
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return AcceleratorProbe{Device: device}
	}

	index := "0"
	if _, idx, ok := strings.Cut(device, ":"); ok && idx != "" {
		index = idx
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader", "--id="+index)
	output, err := cmd.Output()
	if err != nil {
		return AcceleratorProbe{Device: device}
	}
	name := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	if name == "" {
		return AcceleratorProbe{Device: device}
	}
	return AcceleratorProbe{Device: device, Detected: true, Name: name}
}

// Detail renders a display-friendly summary for status UIs.
func (p AcceleratorProbe) Detail() string {
	if !p.Detected {
		return fmt.Sprintf("%s (not detected)", p.Device)
	}
	if p.Device == "cpu" {
		return "cpu"
	}
	return fmt.Sprintf("%s on %s", p.Name, p.Device)
}
