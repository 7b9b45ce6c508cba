package strategy

import (
	"context"
	"fmt"
	"time"

	"trvd/pkg/types"
)

// ChainOfThought runs sequential generation calls of increasing scrutiny:
// initial analysis, deepened analysis (depth-1 rounds), self-reflection and
// an adversarial pass. The final call's output is the phase result.
//
// Depth 0 collapses to exactly one reasoning call with no reflection or
// adversarial steps.
type ChainOfThought struct {
	Role        types.Role
	Depth       int
	Reflection  bool
	Adversarial bool
	MaxTokens   int
}

const cotInitialPrompt = `Let's think step by step.

Problem: %s

Step-by-step reasoning, ending with a line "Final answer: ...":`

const cotDeepenPrompt = `Analyze this problem more deeply.

Problem: %s

Previous reasoning:
%s

Deeper analysis (edge cases, alternatives, implications), ending with a line "Final answer: ...":`

const cotReflectPrompt = `Reflect on your reasoning.

Problem: %s

Your reasoning:
%s

Are there flaws or biases in this reasoning? What might be missing? End with a line "Final answer: ..." giving your best current answer:`

const cotAdversarialPrompt = `Play devil's advocate.

Problem: %s

Claimed solution:
%s

State the strongest counterarguments, then resolve them. End with a line "Final answer: ..." giving the corrected final answer:`

// Run executes the chain and returns the last step's output as Final.
func (c ChainOfThought) Run(ctx context.Context, gen Generator, problem string) (Outcome, error) {
	var out Outcome
	step := func(prompt string, temp float64) (string, error) {
		text, err := gen.Generate(ctx, c.Role, types.GenerationRequest{
			Prompt:      prompt,
			MaxTokens:   c.MaxTokens,
			Temperature: temp,
		})
		if err != nil {
			return "", err
		}
		out.Steps = append(out.Steps, types.ReasoningStep{
			Phase:       types.PhaseReasoning,
			Role:        c.Role,
			InputDigest: types.Digest(prompt),
			Output:      text,
			Timestamp:   time.Now(),
		})
		return text, nil
	}

	current, err := step(fmt.Sprintf(cotInitialPrompt, problem), 0.6)
	if err != nil {
		return Outcome{}, err
	}
	if c.Depth == 0 {
		out.Final = current
		return out, nil
	}
	for i := 1; i < c.Depth; i++ {
		current, err = step(fmt.Sprintf(cotDeepenPrompt, problem, current), 0.5)
		if err != nil {
			return Outcome{}, err
		}
	}
	if c.Reflection {
		current, err = step(fmt.Sprintf(cotReflectPrompt, problem, current), 0.4)
		if err != nil {
			return Outcome{}, err
		}
	}
	if c.Adversarial {
		current, err = step(fmt.Sprintf(cotAdversarialPrompt, problem, current), 0.5)
		if err != nil {
			return Outcome{}, err
		}
	}
	out.Final = current
	return out, nil
}
