package pipeline

import (
	"errors"

	"trvd/internal/slot"
	"trvd/pkg/types"
)

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

// ErrValidation reports a request rejected before any model work started.
func ErrValidation(msg string) error { return &validationError{msg: msg} }

// IsValidation reports whether err is a request validation failure.
func IsValidation(err error) bool {
	var e *validationError
	return errors.As(err, &e)
}

type phaseError struct {
	phase types.Phase
	cause error
}

func (e *phaseError) Error() string { return string(e.phase) + " phase: " + e.cause.Error() }
func (e *phaseError) Unwrap() error { return e.cause }

func errPhase(phase types.Phase, cause error) error {
	return &phaseError{phase: phase, cause: cause}
}

// FailedPhase reports which pipeline phase err was raised in, if any.
func FailedPhase(err error) (types.Phase, bool) {
	var pe *phaseError
	if errors.As(err, &pe) {
		return pe.phase, true
	}
	return "", false
}

// Kind classifies err into a stable machine-readable label for API responses
// and metrics. Slot error predicates see through the phase wrapper.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidation(err):
		return "validation"
	case slot.IsRoleNotFound(err):
		return "role_not_found"
	case slot.IsTooBusy(err):
		return "busy"
	case slot.IsReclaimTimeout(err):
		return "reclaim_timeout"
	case slot.IsOutOfMemory(err):
		return "out_of_memory"
	case slot.IsModelLoad(err):
		return "model_load"
	case slot.IsEngineUnavailable(err):
		return "engine_unavailable"
	case slot.IsCancelled(err):
		return "cancelled"
	case slot.IsGeneration(err):
		return "generation"
	default:
		return "internal"
	}
}
