//go:build !llama

package slot

// This file provides a no-CGO stub for the llama engine. It is compiled when
// the 'llama' build tag is NOT set, keeping default builds and CI CGO-free.
// The real engine lives in adapter_llama.go (tagged 'llama').

// llamaBuilt indicates this binary was compiled without real llama support.
var llamaBuilt = false

type llamaEngine struct{}

// NewLlamaEngine returns an engine that refuses to load models without the
// 'llama' build tag. Fail fast; no mocked inference in production binaries.
func NewLlamaEngine() Engine { return &llamaEngine{} }

func (e *llamaEngine) Load(path string, opts LoadOpts) (Handle, error) {
	return nil, ErrEngineUnavailable("llama support not built (missing 'llama' build tag)")
}
