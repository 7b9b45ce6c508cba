package slot

import (
	"context"
	"errors"

	"trvd/pkg/types"
)

// tooBusyError signals gate wait timeout/overflow for 429 mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "slot busy: queue wait exceeded" }

// ErrTooBusy constructs a tooBusyError.
func ErrTooBusy() error { return tooBusyError{} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// roleNotFoundError indicates a role with no configured artifact.
type roleNotFoundError struct{ role types.Role }

func (e roleNotFoundError) Error() string { return "no artifact for role: " + string(e.role) }

// ErrRoleNotFound constructs a roleNotFoundError.
func ErrRoleNotFound(role types.Role) error { return roleNotFoundError{role: role} }

// IsRoleNotFound reports whether err indicates an unconfigured role.
func IsRoleNotFound(err error) bool {
	var e roleNotFoundError
	return errors.As(err, &e)
}

// modelLoadError indicates a missing/corrupt artifact or a budget violation.
// Fatal to the current execution, not to the process.
type modelLoadError struct {
	role  types.Role
	msg   string
	cause error
}

func (e modelLoadError) Error() string {
	s := "load " + string(e.role) + ": " + e.msg
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e modelLoadError) Unwrap() error { return e.cause }

// ErrModelLoad constructs a modelLoadError.
func ErrModelLoad(role types.Role, msg string, cause error) error {
	return modelLoadError{role: role, msg: msg, cause: cause}
}

// IsModelLoad reports whether err is a model load failure.
func IsModelLoad(err error) bool {
	var e modelLoadError
	return errors.As(err, &e)
}

// generationError indicates an engine-level generation failure.
type generationError struct {
	role  types.Role
	cause error
}

func (e generationError) Error() string {
	return "generate " + string(e.role) + ": " + e.cause.Error()
}

func (e generationError) Unwrap() error { return e.cause }

// ErrGeneration constructs a generationError.
func ErrGeneration(role types.Role, cause error) error {
	return generationError{role: role, cause: cause}
}

// IsGeneration reports whether err is a generation failure.
func IsGeneration(err error) bool {
	var e generationError
	return errors.As(err, &e)
}

// reclaimTimeoutError indicates the reclaim barrier expired. The slot state
// can no longer be trusted; this is fatal until process restart.
type reclaimTimeoutError struct{}

func (reclaimTimeoutError) Error() string {
	return "reclaim timeout: slot state untrusted, restart required"
}

// ErrReclaimTimeout constructs a reclaimTimeoutError.
func ErrReclaimTimeout() error { return reclaimTimeoutError{} }

// IsReclaimTimeout reports whether err indicates a poisoned slot.
func IsReclaimTimeout(err error) bool {
	var e reclaimTimeoutError
	return errors.As(err, &e)
}

// engineUnavailableError signals a missing inference runtime (e.g. built
// without the llama tag) so the HTTP layer can return 503 instead of 500.
type engineUnavailableError struct{ msg string }

func (e engineUnavailableError) Error() string { return e.msg }

// ErrEngineUnavailable constructs an engineUnavailableError.
func ErrEngineUnavailable(msg string) error { return engineUnavailableError{msg: msg} }

// IsEngineUnavailable reports whether err indicates a missing runtime.
func IsEngineUnavailable(err error) bool {
	var e engineUnavailableError
	return errors.As(err, &e)
}

// IsCancelled reports whether err stems from cooperative cancellation or a
// per-call deadline rather than an engine fault.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsOutOfMemory reports whether err carries the engine's OOM signal.
func IsOutOfMemory(err error) bool { return errors.Is(err, ErrOutOfMemory) }
