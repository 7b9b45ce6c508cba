package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"trvd/internal/config"
	"trvd/internal/slot"
	"trvd/internal/tool"
	"trvd/pkg/types"
)

// roleGen routes generation calls to per-role response functions and records
// every call for assertions.
type roleGen struct {
	mu       sync.Mutex
	handlers map[types.Role]func(call int, req types.GenerationRequest) (string, error)
	calls    []genCall
	perRole  map[types.Role]int
}

type genCall struct {
	role   types.Role
	prompt string
}

func newRoleGen() *roleGen {
	return &roleGen{
		handlers: map[types.Role]func(int, types.GenerationRequest) (string, error){},
		perRole:  map[types.Role]int{},
	}
}

func (g *roleGen) on(role types.Role, fn func(call int, req types.GenerationRequest) (string, error)) {
	g.handlers[role] = fn
}

func (g *roleGen) reply(role types.Role, text string) {
	g.on(role, func(int, types.GenerationRequest) (string, error) { return text, nil })
}

func (g *roleGen) Generate(_ context.Context, role types.Role, req types.GenerationRequest) (string, error) {
	g.mu.Lock()
	n := g.perRole[role]
	g.perRole[role]++
	g.calls = append(g.calls, genCall{role: role, prompt: req.Prompt})
	fn := g.handlers[role]
	g.mu.Unlock()
	if fn == nil {
		return "", errors.New("no handler for role " + string(role))
	}
	return fn(n, req)
}

func (g *roleGen) callsFor(role types.Role) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.perRole[role]
}

func newTestController(g *roleGen, reg *tool.Registry) *Controller {
	return New(ControllerConfig{
		Generator: g,
		Tools:     reg,
		Pipeline: config.PipelineConfig{
			MaxCriticIterations: 3,
			CoTDepth:            2,
			NumPaths:            3,
			MaxToolCalls:        3,
		},
		Logger: zerolog.Nop(),
	})
}

// echoTranslator answers ingestion with a fixed restatement and synthesis by
// echoing back the answer embedded in the prompt.
func wireTranslator(g *roleGen, restated string) {
	g.on(types.RoleTranslator, func(_ int, req types.GenerationRequest) (string, error) {
		if strings.Contains(req.Prompt, "Rewrite the answer below") {
			// Synthesis: pull the answer off the prompt tail.
			i := strings.LastIndex(req.Prompt, "Answer: ")
			return strings.TrimSpace(req.Prompt[i+len("Answer: "):]), nil
		}
		return restated, nil
	})
}

func boolPtr(b bool) *bool { return &b }
func intPtr(n int) *int    { return &n }

func TestExecuteEmptyQueryRejectedBeforeModelWork(t *testing.T) {
	g := newRoleGen()
	c := newTestController(g, nil)

	_, err := c.Execute(context.Background(), types.ExecuteRequest{Query: "   "})
	if err == nil || !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(g.calls) != 0 {
		t.Fatalf("expected no generation calls, got %d", len(g.calls))
	}
}

func TestExecuteMinimalTraceShape(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "What is 2 plus 2?")
	g.reply(types.RoleReasoner, "2 plus 2 equals 4.\nFinal answer: 4")
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query:    "2+2?",
		Language: "english",
		Options: types.ExecuteOptions{
			EnableCritic:  boolPtr(false),
			EnableDeepCoT: boolPtr(false),
			EnableTools:   boolPtr(false),
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(res.FinalAnswer, "4") {
		t.Fatalf("final answer %q does not contain 4", res.FinalAnswer)
	}
	if len(res.Trace) != 3 {
		t.Fatalf("expected 3 trace entries, got %d", len(res.Trace))
	}
	wantPhases := []types.Phase{types.PhaseIngestion, types.PhaseReasoning, types.PhaseSynthesis}
	for i, want := range wantPhases {
		if res.Trace[i].Phase != want {
			t.Fatalf("trace[%d] phase = %s, want %s", i, res.Trace[i].Phase, want)
		}
	}
	if res.CriticIterations != 0 {
		t.Fatalf("critic iterations = %d, want 0", res.CriticIterations)
	}
	if res.ID == "" {
		t.Fatalf("expected non-empty execution id")
	}
}

func TestExecuteCriticPassFirstReview(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.reply(types.RoleReasoner, "reasoning\nFinal answer: 7")
	g.reply(types.RoleCritic, "VERDICT: PASS")
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query:   "q",
		Options: types.ExecuteOptions{EnableDeepCoT: boolPtr(false)},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CriticIterations != 1 {
		t.Fatalf("critic iterations = %d, want 1", res.CriticIterations)
	}
	if res.CriticExhausted {
		t.Fatalf("unexpected critic_exhausted")
	}
	if g.callsFor(types.RoleReasoner) != 1 {
		t.Fatalf("reasoner calls = %d, want 1 (no revision on pass)", g.callsFor(types.RoleReasoner))
	}
}

func TestExecuteCriticExhaustionProceedsToSynthesis(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.reply(types.RoleReasoner, "reasoning\nFinal answer: 7")
	g.reply(types.RoleCritic, "VERDICT: FAIL the arithmetic is off")
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query:   "q",
		Options: types.ExecuteOptions{EnableDeepCoT: boolPtr(false)},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CriticIterations != 3 {
		t.Fatalf("critic iterations = %d, want 3", res.CriticIterations)
	}
	if !res.CriticExhausted {
		t.Fatalf("expected critic_exhausted")
	}
	// Initial pass plus one revision per rejected review except the last.
	if got := g.callsFor(types.RoleReasoner); got != 3 {
		t.Fatalf("reasoner calls = %d, want 3", got)
	}
	if res.FinalAnswer == "" {
		t.Fatalf("expected best effort answer despite exhaustion")
	}
	var revisions int
	for _, s := range res.Trace {
		if s.Phase == types.PhaseRevision {
			revisions++
		}
	}
	if revisions != 2 {
		t.Fatalf("revision steps = %d, want 2", revisions)
	}
}

func TestExecuteRevisionIncorporatesCriticReason(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.on(types.RoleCritic, func(call int, _ types.GenerationRequest) (string, error) {
		if call == 0 {
			return "VERDICT: FAIL off by one in step two", nil
		}
		return "VERDICT: PASS", nil
	})
	var revisionPrompt string
	g.on(types.RoleReasoner, func(call int, req types.GenerationRequest) (string, error) {
		if call == 1 {
			revisionPrompt = req.Prompt
		}
		return "fixed\nFinal answer: 8", nil
	})
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query:   "q",
		Options: types.ExecuteOptions{EnableDeepCoT: boolPtr(false)},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CriticIterations != 2 {
		t.Fatalf("critic iterations = %d, want 2", res.CriticIterations)
	}
	if !strings.Contains(revisionPrompt, "off by one in step two") {
		t.Fatalf("revision prompt missing critic objection: %q", revisionPrompt)
	}
}

func TestExecuteDeepCoTCallCount(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.reply(types.RoleReasoner, "thinking\nFinal answer: 9")
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query: "q",
		Options: types.ExecuteOptions{
			EnableCritic: boolPtr(false),
			CoTDepth:     intPtr(2),
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// Depth 2 with reflection and adversarial passes: 4 reasoning calls.
	if got := g.callsFor(types.RoleReasoner); got != 4 {
		t.Fatalf("reasoner calls = %d, want 4", got)
	}
	if len(res.Trace) != 6 {
		t.Fatalf("trace entries = %d, want 6", len(res.Trace))
	}
}

func TestExecuteToolLoopRecordsInvocations(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "compute 12*(3+4)")
	g.on(types.RoleReasoner, func(call int, _ types.GenerationRequest) (string, error) {
		if call == 0 {
			return "TOOL_CALL: calculator(12*(3+4))", nil
		}
		return "Final answer: 84", nil
	})
	reg := tool.NewRegistry()
	if err := reg.Register(tool.Calculator{}); err != nil {
		t.Fatalf("register calculator: %v", err)
	}
	c := newTestController(g, reg)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query: "q",
		Options: types.ExecuteOptions{
			EnableCritic: boolPtr(false),
			EnableTools:  boolPtr(true),
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(res.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(res.ToolCalls))
	}
	if res.ToolCalls[0].Result != "84" {
		t.Fatalf("tool result = %q, want 84", res.ToolCalls[0].Result)
	}
	if !strings.Contains(res.FinalAnswer, "84") {
		t.Fatalf("final answer %q does not contain 84", res.FinalAnswer)
	}
}

func TestExecuteSelfConsistencyConfidence(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.on(types.RoleReasoner, func(call int, _ types.GenerationRequest) (string, error) {
		if call == 1 {
			return "Final answer: 41", nil
		}
		return "Final answer: 42", nil
	})
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query: "q",
		Options: types.ExecuteOptions{
			EnableCritic:          boolPtr(false),
			EnableSelfConsistency: boolPtr(true),
			NumPaths:              intPtr(3),
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Confidence <= 0.6 || res.Confidence >= 0.7 {
		t.Fatalf("confidence = %v, want 2/3", res.Confidence)
	}
}

func TestExecuteRetriesGenerationOnce(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.on(types.RoleReasoner, func(call int, _ types.GenerationRequest) (string, error) {
		if call == 0 {
			return "", slot.ErrGeneration(types.RoleReasoner, errors.New("engine hiccup"))
		}
		return "ok\nFinal answer: 5", nil
	})
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query: "q",
		Options: types.ExecuteOptions{
			EnableCritic:  boolPtr(false),
			EnableDeepCoT: boolPtr(false),
		},
	})
	if err != nil {
		t.Fatalf("Execute after retry: %v", err)
	}
	if res.FinalAnswer == "" {
		t.Fatalf("expected answer after retried generation")
	}
	if got := g.callsFor(types.RoleReasoner); got != 2 {
		t.Fatalf("reasoner calls = %d, want 2", got)
	}
}

func TestExecuteFailureCarriesPartialTrace(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	boom := slot.ErrGeneration(types.RoleReasoner, errors.New("persistent failure"))
	g.on(types.RoleReasoner, func(int, types.GenerationRequest) (string, error) {
		return "", boom
	})
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query: "q",
		Options: types.ExecuteOptions{
			EnableCritic:  boolPtr(false),
			EnableDeepCoT: boolPtr(false),
		},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !slot.IsGeneration(err) {
		t.Fatalf("predicate lost through wrapping: %v", err)
	}
	if phase, ok := FailedPhase(err); !ok || phase != types.PhaseReasoning {
		t.Fatalf("failed phase = %v (%v), want reasoning", phase, ok)
	}
	if Kind(err) != "generation" {
		t.Fatalf("kind = %q, want generation", Kind(err))
	}
	if res == nil || len(res.Trace) != 1 || res.Trace[0].Phase != types.PhaseIngestion {
		t.Fatalf("expected partial trace with the ingestion step, got %+v", res)
	}
	if res.FinalAnswer != "" {
		t.Fatalf("failed execution must not carry a final answer")
	}
}

func TestExecuteUnknownLanguageFallsBackToEnglish(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.reply(types.RoleReasoner, "Final answer: ok")
	c := newTestController(g, nil)

	res, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query:    "q",
		Language: "klingon",
		Options: types.ExecuteOptions{
			EnableCritic:  boolPtr(false),
			EnableDeepCoT: boolPtr(false),
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Language != "english" {
		t.Fatalf("language = %q, want english fallback", res.Language)
	}
}

func TestExecuteBridgeRoleRouting(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.reply(types.RoleBridge, "Final answer: via bridge")
	c := newTestController(g, nil)

	_, err := c.Execute(context.Background(), types.ExecuteRequest{
		Query: "q",
		Options: types.ExecuteOptions{
			EnableCritic:  boolPtr(false),
			EnableDeepCoT: boolPtr(false),
			UseBridge:     boolPtr(true),
		},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if g.callsFor(types.RoleReasoner) != 0 {
		t.Fatalf("reasoner should not be used when bridge routing is on")
	}
	if g.callsFor(types.RoleBridge) != 1 {
		t.Fatalf("bridge calls = %d, want 1", g.callsFor(types.RoleBridge))
	}
}

func TestStatsAccumulate(t *testing.T) {
	g := newRoleGen()
	wireTranslator(g, "restated problem")
	g.reply(types.RoleReasoner, "Final answer: 1")
	g.reply(types.RoleCritic, "VERDICT: PASS")
	c := newTestController(g, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Execute(context.Background(), types.ExecuteRequest{
			Query:   "q",
			Options: types.ExecuteOptions{EnableDeepCoT: boolPtr(false)},
		}); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	_, err := c.Execute(context.Background(), types.ExecuteRequest{Query: ""})
	if err == nil {
		t.Fatalf("expected validation error")
	}

	st := c.Stats()
	if st.Queries != 2 {
		t.Fatalf("queries = %d, want 2", st.Queries)
	}
	if st.Languages["english"] != 2 {
		t.Fatalf("english count = %d, want 2", st.Languages["english"])
	}
	if st.AvgCriticIterations != 1 {
		t.Fatalf("avg critic iterations = %v, want 1", st.AvgCriticIterations)
	}
}
