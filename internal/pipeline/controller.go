// Package pipeline implements the translate-reason-verify controller: one
// execution moves a vernacular query through ingestion, reasoning, a bounded
// critic loop and synthesis, hot-swapping the single model slot between the
// roles each phase needs.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trvd/internal/config"
	"trvd/internal/slot"
	"trvd/internal/strategy"
	"trvd/internal/tool"
	"trvd/pkg/types"
)

// Phase sampling defaults. Translation phases run cool, reasoning warm.
const (
	defaultIngestionTemp = 0.3
	defaultReasoningTemp = 0.6
	defaultCriticTemp    = 0.4
	defaultSynthesisTemp = 0.3

	defaultIngestionMaxTokens = 1024
	defaultReasoningMaxTokens = 2048
	defaultCriticMaxTokens    = 1024
	defaultSynthesisMaxTokens = 1024
)

// ControllerConfig wires a Controller.
type ControllerConfig struct {
	// Generator executes generation calls; the slot manager satisfies this.
	Generator strategy.Generator
	// Tools available to the reasoning phase; nil disables tool use.
	Tools *tool.Registry
	// Pipeline holds tuning knobs, normally from config.Config.Finalize.
	Pipeline config.PipelineConfig
	// Logger for execution-scoped logging.
	Logger zerolog.Logger
}

type phaseParams struct {
	temp      float64
	maxTokens int
}

// Controller runs pipeline executions. Safe for concurrent use; actual model
// access is serialized by the slot manager underneath.
type Controller struct {
	gen   strategy.Generator
	tools *tool.Registry
	cfg   config.PipelineConfig
	log   zerolog.Logger

	ingestion phaseParams
	reasoning phaseParams
	critic    phaseParams
	synthesis phaseParams

	stats statsBook
}

// New builds a Controller, applying phase parameter defaults.
func New(cc ControllerConfig) *Controller {
	c := &Controller{
		gen:   &retryingGenerator{gen: cc.Generator, log: cc.Logger},
		tools: cc.Tools,
		cfg:   cc.Pipeline,
		log:   cc.Logger,
	}
	c.ingestion = params(cc.Pipeline.IngestionTemp, defaultIngestionTemp, cc.Pipeline.IngestionMaxTokens, defaultIngestionMaxTokens)
	c.reasoning = params(cc.Pipeline.ReasoningTemp, defaultReasoningTemp, cc.Pipeline.ReasoningMaxTokens, defaultReasoningMaxTokens)
	c.critic = params(cc.Pipeline.CriticTemp, defaultCriticTemp, cc.Pipeline.CriticMaxTokens, defaultCriticMaxTokens)
	c.synthesis = params(cc.Pipeline.SynthesisTemp, defaultSynthesisTemp, cc.Pipeline.SynthesisMaxTokens, defaultSynthesisMaxTokens)
	if c.cfg.MaxCriticIterations <= 0 {
		c.cfg.MaxCriticIterations = config.DefaultMaxCriticIterations
	}
	c.stats.languages = map[string]uint64{}
	return c
}

func params(temp, defTemp float64, tokens, defTokens int) phaseParams {
	p := phaseParams{temp: temp, maxTokens: tokens}
	if p.temp <= 0 {
		p.temp = defTemp
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defTokens
	}
	return p
}

// retryingGenerator retries a failed generation exactly once. Cancellation
// and non-generation failures pass through untouched.
type retryingGenerator struct {
	gen strategy.Generator
	log zerolog.Logger
}

func (r *retryingGenerator) Generate(ctx context.Context, role types.Role, req types.GenerationRequest) (string, error) {
	out, err := r.gen.Generate(ctx, role, req)
	if err == nil || ctx.Err() != nil || !slot.IsGeneration(err) || slot.IsCancelled(err) {
		return out, err
	}
	r.log.Warn().Err(err).Str("role", string(role)).Msg("generation failed, retrying once")
	return r.gen.Generate(ctx, role, req)
}

// runOptions is ExecuteOptions with the unset fields resolved to defaults.
type runOptions struct {
	critic          bool
	deepCoT         bool
	selfConsistency bool
	tools           bool
	bridge          bool
	cotDepth        int
	numPaths        int
	maxToolCalls    int
}

func (c *Controller) resolve(o types.ExecuteOptions) runOptions {
	return runOptions{
		critic:          boolOr(o.EnableCritic, true),
		deepCoT:         boolOr(o.EnableDeepCoT, true),
		selfConsistency: boolOr(o.EnableSelfConsistency, false),
		tools:           boolOr(o.EnableTools, false),
		bridge:          boolOr(o.UseBridge, false),
		cotDepth:        intOr(o.CoTDepth, c.cfg.CoTDepth),
		numPaths:        intOr(o.NumPaths, c.cfg.NumPaths),
		maxToolCalls:    intOr(o.MaxToolCalls, c.cfg.MaxToolCalls),
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Execute runs one full pipeline pass. On failure it returns the partial
// result alongside the error so callers can surface the trace collected so
// far; the result's FinalAnswer is empty in that case.
func (c *Controller) Execute(ctx context.Context, req types.ExecuteRequest) (*types.PipelineResult, error) {
	started := time.Now()
	query := strings.TrimSpace(req.Query)
	if query == "" {
		executionsTotal.WithLabelValues("validation").Inc()
		return nil, ErrValidation("query is required")
	}

	lang, known := resolveLanguage(req.Language)
	if !known {
		c.log.Warn().Str("language", req.Language).Msg("unknown language tag, falling back to english")
	}
	opts := c.resolve(req.Options)
	res := &types.PipelineResult{ID: uuid.NewString(), Language: lang.Tag}
	log := c.log.With().Str("execution", res.ID).Str("language", lang.Tag).Logger()
	log.Info().Msg("pipeline start")
	c.stats.recordStart(lang.Tag)

	fail := func(phase types.Phase, err error) (*types.PipelineResult, error) {
		werr := errPhase(phase, err)
		res.ElapsedSeconds = time.Since(started).Seconds()
		c.stats.recordFailure()
		executionsTotal.WithLabelValues(Kind(werr)).Inc()
		log.Error().Err(err).Str("phase", string(phase)).Msg("pipeline failed")
		return res, werr
	}

	// Ingestion: the translator restates the query in plain English. Runs
	// for english too, normalizing phrasing before reasoning sees it.
	ingPrompt := formatIngestion(lang, query)
	ingOut, err := c.gen.Generate(ctx, types.RoleTranslator, types.GenerationRequest{
		Prompt:      ingPrompt,
		MaxTokens:   c.ingestion.maxTokens,
		Temperature: c.ingestion.temp,
	})
	if err != nil {
		return fail(types.PhaseIngestion, err)
	}
	res.Trace = append(res.Trace, newStep(types.PhaseIngestion, types.RoleTranslator, ingPrompt, ingOut))
	working := strings.TrimSpace(ingOut)
	if working == "" {
		working = query
	}

	// Reasoning through the selected strategy.
	reasonRole := types.RoleReasoner
	if opts.bridge {
		reasonRole = types.RoleBridge
	}
	outcome, err := c.reason(ctx, opts, reasonRole, working)
	if err != nil {
		return fail(types.PhaseReasoning, err)
	}
	res.Trace = append(res.Trace, outcome.Steps...)
	res.ToolCalls = append(res.ToolCalls, outcome.ToolCalls...)
	res.Confidence = outcome.Confidence
	solution := outcome.Final

	// Critic loop: review, and revise on a fail verdict, at most
	// MaxCriticIterations reviews. Running out of budget does not abort;
	// the best available solution proceeds to synthesis flagged as such.
	passed := true
	if opts.critic {
		passed = false
		for i := 0; i < c.cfg.MaxCriticIterations; i++ {
			criticPrompt := formatCritic(working, solution)
			criticOut, err := c.gen.Generate(ctx, types.RoleCritic, types.GenerationRequest{
				Prompt:      criticPrompt,
				MaxTokens:   c.critic.maxTokens,
				Temperature: c.critic.temp,
			})
			if err != nil {
				return fail(types.PhaseCritic, err)
			}
			res.CriticIterations++
			res.Trace = append(res.Trace, newStep(types.PhaseCritic, types.RoleCritic, criticPrompt, criticOut))
			v := parseVerdict(criticOut)
			if v.Pass {
				passed = true
				break
			}
			log.Info().Int("iteration", res.CriticIterations).Str("reason", v.Reason).Msg("critic rejected solution")
			if i == c.cfg.MaxCriticIterations-1 {
				break
			}
			revPrompt := formatRevision(working, solution, v.Reason)
			revOut, err := c.gen.Generate(ctx, reasonRole, types.GenerationRequest{
				Prompt:      revPrompt,
				MaxTokens:   c.reasoning.maxTokens,
				Temperature: c.reasoning.temp,
			})
			if err != nil {
				return fail(types.PhaseRevision, err)
			}
			res.Trace = append(res.Trace, newStep(types.PhaseRevision, reasonRole, revPrompt, revOut))
			solution = revOut
		}
		res.CriticExhausted = !passed
		if !passed {
			log.Warn().Int("iterations", res.CriticIterations).Msg("critic budget exhausted, proceeding with best effort answer")
		}
	}

	// Synthesis: the translator transcreates the answer back into the
	// query's language.
	answer := strategy.ExtractAnswer(solution)
	synPrompt := formatSynthesis(lang, answer)
	synOut, err := c.gen.Generate(ctx, types.RoleTranslator, types.GenerationRequest{
		Prompt:      synPrompt,
		MaxTokens:   c.synthesis.maxTokens,
		Temperature: c.synthesis.temp,
	})
	if err != nil {
		return fail(types.PhaseSynthesis, err)
	}
	res.Trace = append(res.Trace, newStep(types.PhaseSynthesis, types.RoleTranslator, synPrompt, synOut))
	res.FinalAnswer = strings.TrimSpace(synOut)
	if res.FinalAnswer == "" {
		res.FinalAnswer = answer
	}

	res.ElapsedSeconds = time.Since(started).Seconds()
	c.stats.recordSuccess(res.ElapsedSeconds, res.CriticIterations)
	executionsTotal.WithLabelValues("ok").Inc()
	executionSeconds.Observe(res.ElapsedSeconds)
	criticIterationsHist.Observe(float64(res.CriticIterations))
	log.Info().
		Float64("elapsed_seconds", res.ElapsedSeconds).
		Int("critic_iterations", res.CriticIterations).
		Bool("critic_exhausted", res.CriticExhausted).
		Msg("pipeline done")
	return res, nil
}

// reason dispatches the reasoning phase. Tool use takes precedence, then
// self-consistency voting, then chain-of-thought; with everything off the
// phase is a single reasoning call.
func (c *Controller) reason(ctx context.Context, opts runOptions, role types.Role, problem string) (strategy.Outcome, error) {
	switch {
	case opts.tools && c.tools != nil && len(c.tools.Names()) > 0:
		return strategy.ToolLoop{
			Role:      role,
			Registry:  c.tools,
			MaxCalls:  opts.maxToolCalls,
			MaxTokens: c.reasoning.maxTokens,
		}.Run(ctx, c.gen, problem)
	case opts.selfConsistency:
		return strategy.SelfConsistency{
			Role:      role,
			NumPaths:  opts.numPaths,
			MaxTokens: c.reasoning.maxTokens,
		}.Run(ctx, c.gen, problem)
	case opts.deepCoT && opts.cotDepth > 0:
		return strategy.ChainOfThought{
			Role:        role,
			Depth:       opts.cotDepth,
			Reflection:  true,
			Adversarial: true,
			MaxTokens:   c.reasoning.maxTokens,
		}.Run(ctx, c.gen, problem)
	default:
		prompt := formatReasoning(problem)
		out, err := c.gen.Generate(ctx, role, types.GenerationRequest{
			Prompt:      prompt,
			MaxTokens:   c.reasoning.maxTokens,
			Temperature: c.reasoning.temp,
		})
		if err != nil {
			return strategy.Outcome{}, err
		}
		return strategy.Outcome{
			Final: out,
			Steps: []types.ReasoningStep{newStep(types.PhaseReasoning, role, prompt, out)},
		}, nil
	}
}

// Stats reports aggregate controller activity.
func (c *Controller) Stats() types.PipelineStats { return c.stats.snapshot() }

func newStep(phase types.Phase, role types.Role, prompt, output string) types.ReasoningStep {
	return types.ReasoningStep{
		Phase:       phase,
		Role:        role,
		InputDigest: types.Digest(prompt),
		Output:      output,
		Timestamp:   time.Now(),
	}
}

type statsBook struct {
	mu        sync.Mutex
	queries   uint64
	failures  uint64
	seconds   float64
	criticSum uint64
	languages map[string]uint64
}

func (s *statsBook) recordStart(lang string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languages[lang]++
}

func (s *statsBook) recordSuccess(seconds float64, criticIters int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	s.seconds += seconds
	s.criticSum += uint64(criticIters)
}

func (s *statsBook) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures++
}

func (s *statsBook) snapshot() types.PipelineStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := types.PipelineStats{
		Queries:      s.queries,
		Failures:     s.failures,
		TotalSeconds: s.seconds,
	}
	if len(s.languages) > 0 {
		out.Languages = make(map[string]uint64, len(s.languages))
		for k, v := range s.languages {
			out.Languages[k] = v
		}
	}
	if s.queries > 0 {
		out.AvgCriticIterations = float64(s.criticSum) / float64(s.queries)
	}
	return out
}
