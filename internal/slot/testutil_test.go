package slot

import (
	"context"
	"sync"
	"time"

	"trvd/pkg/types"
)

// fakeEngine satisfies Engine and records residency so tests can check the
// single-residency invariant across arbitrary role sequences.
type fakeEngine struct {
	mu          sync.Mutex
	loads       int
	closes      int
	resident    int
	maxResident int
	loadErr     error
	closeDelay  time.Duration
	generate    func(ctx context.Context, req types.GenerationRequest) (string, error)
}

type fakeHandle struct {
	eng *fakeEngine
}

func (e *fakeEngine) Load(path string, opts LoadOpts) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	e.resident++
	if e.resident > e.maxResident {
		e.maxResident = e.resident
	}
	return &fakeHandle{eng: e}, nil
}

func (h *fakeHandle) Generate(ctx context.Context, req types.GenerationRequest, onToken func(string) error) (string, error) {
	if h.eng.generate != nil {
		return h.eng.generate(ctx, req)
	}
	return "ok", nil
}

func (h *fakeHandle) Close() error {
	if h.eng.closeDelay > 0 {
		time.Sleep(h.eng.closeDelay)
	}
	h.eng.mu.Lock()
	h.eng.closes++
	h.eng.resident--
	h.eng.mu.Unlock()
	return nil
}

func (e *fakeEngine) counts() (loads, closes, maxResident int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loads, e.closes, e.maxResident
}

// testArtifacts returns one artifact per known role.
func testArtifacts() []types.Artifact {
	var out []types.Artifact
	for _, r := range types.KnownRoles {
		out = append(out, types.Artifact{
			Role:    r,
			Name:    string(r) + ".gguf",
			Path:    "/models/" + string(r) + ".gguf",
			CtxSize: 2048,
			SizeMB:  100,
		})
	}
	return out
}

func newTestManager(eng *fakeEngine, opts ...func(*ManagerConfig)) *Manager {
	cfg := ManagerConfig{
		Artifacts:      testArtifacts(),
		Engine:         eng,
		ReclaimTimeout: time.Second,
	}
	for _, o := range opts {
		o(&cfg)
	}
	return New(cfg)
}
