package slot

import (
	"context"
	"errors"

	"trvd/pkg/types"
)

// ErrOutOfMemory is wrapped by engine errors when the accelerator reports
// memory exhaustion, so callers can distinguish OOM from other failures.
var ErrOutOfMemory = errors.New("accelerator out of memory")

// Engine abstracts the token-generation runtime. Concrete implementations
// (go-llama.cpp) satisfy this; tests inject fakes.
type Engine interface {
	// Load brings one model artifact into accelerator memory and returns a
	// handle for generation. On failure no memory may remain allocated.
	Load(path string, opts LoadOpts) (Handle, error)
}

// Handle is a loaded model. Generate may be called repeatedly; Close
// releases all accelerator and host memory and blocks until pending device
// work on the handle has completed.
type Handle interface {
	// Generate produces text for the prompt. The onToken callback, when
	// non-nil, receives each token as it streams. Implementations must
	// return promptly when ctx is canceled.
	Generate(ctx context.Context, req types.GenerationRequest, onToken func(string) error) (string, error)
	Close() error
}

// LoadOpts carries artifact-level engine parameters.
type LoadOpts struct {
	CtxSize   int
	GPULayers int
	Threads   int
}
