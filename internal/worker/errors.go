package worker

import (
	"errors"
	"fmt"

	"scribe/internal/services"
)

var (
	// ErrWorkerNotRunning is returned by Invoke when no execution unit is alive.
	ErrWorkerNotRunning = errors.New("worker not running")
	// ErrChannelClosed reports that the controller/unit channel closed.
	ErrChannelClosed = errors.New("worker channel closed")
	// ErrUnsupportedModel matches every *UnsupportedModelError.
	ErrUnsupportedModel = errors.New("unsupported model configuration")
)

// UnsupportedModelError is returned by the Factory for an unknown model name.
type UnsupportedModelError struct {
	Kind string
	Name string
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("unsupported %s model %q", e.Kind, e.Name)
}

func (e *UnsupportedModelError) Is(target error) bool {
	return target == ErrUnsupportedModel || target == services.ErrConfiguration
}

// ComputationError carries a failure raised by the resource while executing a
// command. The worker stays alive.
type ComputationError struct {
	Worker  string
	Command string
	Err     error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s worker: %s failed: %v", e.Worker, e.Command, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// ComputationErrors without a service marker of their own count as external
// tool failures.
func (e *ComputationError) Is(target error) bool {
	if target != services.ErrExternalTool {
		return false
	}
	return services.Classify(e.Err) == services.ClassInternal
}

// ChannelError reports that the execution unit went away. Err holds the
// materialization failure when that is what ended the unit.
type ChannelError struct {
	Worker string
	Err    error
}

func (e *ChannelError) Error() string {
	if e.Err == nil || errors.Is(e.Err, ErrChannelClosed) {
		return fmt.Sprintf("%s worker: %v", e.Worker, ErrChannelClosed)
	}
	return fmt.Sprintf("%s worker: %v: %v", e.Worker, ErrChannelClosed, e.Err)
}

func (e *ChannelError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrChannelClosed}
	}
	return []error{ErrChannelClosed, e.Err}
}

func (e *ChannelError) Is(target error) bool {
	return target == services.ErrTransient
}
