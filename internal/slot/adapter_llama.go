//go:build llama

package slot

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"trvd/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaEngine loads GGUF artifacts in-process via go-llama.cpp.
type llamaEngine struct{}

// NewLlamaEngine returns the in-process llama.cpp engine.
func NewLlamaEngine() Engine { return &llamaEngine{} }

// llamaHandle owns one loaded model.
type llamaHandle struct {
	model   *llama.LLama
	threads int
}

func (e *llamaEngine) Load(path string, opts LoadOpts) (Handle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(opts.CtxSize),
	}
	if opts.GPULayers != 0 {
		mo = append(mo, llama.SetGPULayers(opts.GPULayers))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		if isOOMText(err.Error()) {
			return nil, errors.Join(ErrOutOfMemory, err)
		}
		return nil, err
	}
	return &llamaHandle{model: m, threads: opts.Threads}, nil
}

func (h *llamaHandle) Generate(ctx context.Context, req types.GenerationRequest, onToken func(string) error) (string, error) {
	if h.model == nil {
		return "", errors.New("llama model not initialized")
	}
	// Bridge token streaming to onToken and respect cancellation.
	h.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if onToken != nil {
			if err := onToken(tok); err != nil {
				return false
			}
		}
		return true
	})
	po := mapRequestToPredictOptions(req, h.threads)
	text, err := h.model.Predict(req.Prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if isOOMText(err.Error()) {
			return "", errors.Join(ErrOutOfMemory, err)
		}
		return "", err
	}
	if ctx.Err() != nil {
		// The callback stopped prediction early; report cancellation
		// rather than a truncated success.
		return "", ctx.Err()
	}
	return strings.TrimSpace(text), nil
}

func (h *llamaHandle) Close() error {
	if h.model != nil {
		h.model.Free()
		h.model = nil
	}
	return nil
}

func isOOMText(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "out of memory") || strings.Contains(s, "oom")
}

// mapRequestToPredictOptions converts a generation request into go-llama.cpp options.
func mapRequestToPredictOptions(req types.GenerationRequest, threads int) []llama.PredictOption {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}
	if threads <= 0 {
		threads = 4
	}
	po := []llama.PredictOption{
		llama.SetTokens(maxTokens),
		llama.SetThreads(threads),
	}
	if req.Temperature > 0 {
		po = append(po, llama.SetTemperature(float32(req.Temperature)))
	}
	if req.TopP > 0 {
		po = append(po, llama.SetTopP(float32(req.TopP)))
	}
	if len(req.Stop) > 0 {
		po = append(po, llama.SetStopWords(req.Stop...))
	}
	return po
}
