// Package e2e drives the assembled daemon over HTTP with a scripted engine:
// config file, registry, slot manager, controller and router all real, only
// the inference runtime replaced.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trvd/internal/config"
	"trvd/internal/daemon"
	"trvd/internal/httpapi"
	"trvd/internal/pipeline"
	"trvd/internal/registry"
	"trvd/internal/slot"
	"trvd/internal/tool"
	"trvd/pkg/types"
)

// scriptedEngine answers per the model artifact it was loaded from, so each
// role behaves plausibly without a real runtime. Residency is tracked to
// assert the single-slot invariant across a whole execution.
type scriptedEngine struct {
	mu          sync.Mutex
	resident    int
	maxResident int
	loads       int
}

type scriptedHandle struct {
	eng  *scriptedEngine
	path string
}

func (e *scriptedEngine) Load(path string, opts slot.LoadOpts) (slot.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loads++
	e.resident++
	if e.resident > e.maxResident {
		e.maxResident = e.resident
	}
	return &scriptedHandle{eng: e, path: path}, nil
}

func (h *scriptedHandle) Generate(_ context.Context, req types.GenerationRequest, _ func(string) error) (string, error) {
	switch {
	case strings.Contains(h.path, "translator") && strings.Contains(req.Prompt, "Rewrite the answer below"):
		i := strings.LastIndex(req.Prompt, "Answer: ")
		return strings.TrimSpace(req.Prompt[i+len("Answer: "):]), nil
	case strings.Contains(h.path, "translator"):
		return "What is 2 plus 2?", nil
	case strings.Contains(h.path, "critic"):
		return "VERDICT: PASS", nil
	default:
		return "Two plus two equals four.\nFinal answer: 4", nil
	}
}

func (h *scriptedHandle) Close() error {
	h.eng.mu.Lock()
	h.eng.resident--
	h.eng.mu.Unlock()
	return nil
}

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, role := range []string{"translator", "reasoner", "critic"} {
		if err := os.WriteFile(filepath.Join(dir, role+".gguf"), []byte("stub"), 0o644); err != nil {
			t.Fatalf("write artifact: %v", err)
		}
	}
	cfg := `addr: ":0"
log_level: error
roles:
  translator:
    path: ` + filepath.Join(dir, "translator.gguf") + `
  reasoner:
    path: ` + filepath.Join(dir, "reasoner.gguf") + `
  critic:
    path: ` + filepath.Join(dir, "critic.gguf") + `
slot:
  reclaim_timeout_seconds: 5
pipeline:
  max_critic_iterations: 2
`
	path := filepath.Join(dir, "trvd.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func startServer(t *testing.T, eng *scriptedEngine) (*httptest.Server, *slot.Manager) {
	t.Helper()
	cfg, err := config.Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Finalize()
	arts, err := registry.Build(cfg.Roles)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if err := registry.Validate(arts); err != nil {
		t.Fatalf("validate registry: %v", err)
	}

	mgr := slot.New(slot.ManagerConfig{
		Artifacts:      arts,
		Engine:         eng,
		ReclaimTimeout: time.Duration(cfg.Slot.ReclaimTimeoutSeconds) * time.Second,
		Logger:         zerolog.Nop(),
	})
	t.Cleanup(func() { mgr.Close() })

	tools := tool.NewRegistry()
	if err := tools.Register(tool.Calculator{}); err != nil {
		t.Fatalf("register tool: %v", err)
	}
	ctrl := pipeline.New(pipeline.ControllerConfig{
		Generator: mgr,
		Tools:     tools,
		Pipeline:  cfg.Pipeline,
		Logger:    zerolog.Nop(),
	})

	srv := httptest.NewServer(httpapi.NewMux(daemon.New(mgr, ctrl)))
	t.Cleanup(srv.Close)
	return srv, mgr
}

func execute(t *testing.T, srv *httptest.Server, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/execute", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /execute: %v", err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func TestExecuteArithmeticEndToEnd(t *testing.T) {
	eng := &scriptedEngine{}
	srv, _ := startServer(t, eng)

	resp, body := execute(t, srv, `{
		"query": "2+2?",
		"language": "english",
		"options": {"enable_critic": false, "enable_deep_cot": false, "enable_tools": false}
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var res types.PipelineResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(res.FinalAnswer, "4") {
		t.Fatalf("final answer %q does not contain 4", res.FinalAnswer)
	}
	if len(res.Trace) != 3 {
		t.Fatalf("trace entries = %d, want 3", len(res.Trace))
	}
	if res.CriticIterations != 0 {
		t.Fatalf("critic iterations = %d, want 0", res.CriticIterations)
	}

	eng.mu.Lock()
	maxResident := eng.maxResident
	eng.mu.Unlock()
	if maxResident != 1 {
		t.Fatalf("max resident models = %d, want 1", maxResident)
	}
}

func TestExecuteWithCriticHotSwapsRoles(t *testing.T) {
	eng := &scriptedEngine{}
	srv, _ := startServer(t, eng)

	resp, body := execute(t, srv, `{
		"query": "2+2?",
		"options": {"enable_deep_cot": false}
	}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var res types.PipelineResult
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.CriticIterations != 1 {
		t.Fatalf("critic iterations = %d, want 1", res.CriticIterations)
	}

	// translator, reasoner, critic, translator again: 4 loads, never 2 at once.
	eng.mu.Lock()
	loads, maxResident := eng.loads, eng.maxResident
	eng.mu.Unlock()
	if loads != 4 {
		t.Fatalf("engine loads = %d, want 4", loads)
	}
	if maxResident != 1 {
		t.Fatalf("max resident models = %d, want 1", maxResident)
	}
}

func TestExecuteValidationOverHTTP(t *testing.T) {
	srv, _ := startServer(t, &scriptedEngine{})

	resp, body := execute(t, srv, `{"query": "   "}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.Kind != "validation" {
		t.Fatalf("kind=%q, want validation", er.Kind)
	}
}

func TestStatusReflectsActivity(t *testing.T) {
	srv, _ := startServer(t, &scriptedEngine{})

	execute(t, srv, `{"query":"2+2?","options":{"enable_critic":false,"enable_deep_cot":false}}`)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()
	var st types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if st.Pipeline.Queries != 1 {
		t.Fatalf("queries = %d, want 1", st.Pipeline.Queries)
	}
	if len(st.Artifacts) != 3 {
		t.Fatalf("artifacts = %d, want 3", len(st.Artifacts))
	}
	// Last phase is synthesis, so the translator stays resident.
	if st.Slot.State != "resident" || st.Slot.Role != "translator" {
		t.Fatalf("slot = %+v, want resident translator", st.Slot)
	}
}

func TestUnloadThenReadyz(t *testing.T) {
	srv, mgr := startServer(t, &scriptedEngine{})

	execute(t, srv, `{"query":"2+2?","options":{"enable_critic":false,"enable_deep_cot":false}}`)

	resp, err := http.Post(srv.URL+"/unload", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /unload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unload status=%d", resp.StatusCode)
	}
	if st := mgr.Status(); st.State != "empty" {
		t.Fatalf("slot state after unload = %q, want empty", st.State)
	}

	resp, err = http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}
}

func TestRolesEndpoint(t *testing.T) {
	srv, _ := startServer(t, &scriptedEngine{})

	resp, err := http.Get(srv.URL + "/roles")
	if err != nil {
		t.Fatalf("GET /roles: %v", err)
	}
	defer resp.Body.Close()
	var rr types.RolesResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(rr.Artifacts) != 3 {
		t.Fatalf("artifacts = %d, want 3", len(rr.Artifacts))
	}
	roles := map[types.Role]bool{}
	for _, a := range rr.Artifacts {
		roles[a.Role] = true
	}
	if !roles[types.RoleTranslator] || !roles[types.RoleReasoner] || !roles[types.RoleCritic] {
		t.Fatalf("missing roles in %v", rr.Artifacts)
	}
}
