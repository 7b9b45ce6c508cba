package strategy

import (
	"context"
	"fmt"
	"time"

	"trvd/pkg/types"
)

// SelfConsistency issues NumPaths independent generations of the same
// prompt at a diversity-inducing temperature and majority-votes over the
// normalized extracted answers. Ties prefer the path with the shortest
// reasoning text. Confidence is wins / NumPaths.
type SelfConsistency struct {
	Role        types.Role
	NumPaths    int
	Temperature float64
	MaxTokens   int
}

const selfConsistencyPrompt = `Solve the problem with independent step-by-step reasoning.

Problem: %s

Reasoning, ending with a line "Final answer: ...":`

// Run executes the vote and reports the winning answer plus confidence.
func (s SelfConsistency) Run(ctx context.Context, gen Generator, problem string) (Outcome, error) {
	paths := s.NumPaths
	if paths <= 0 {
		paths = 1
	}
	temp := s.Temperature
	if temp <= 0 {
		temp = 0.7
	}
	prompt := fmt.Sprintf(selfConsistencyPrompt, problem)

	var out Outcome
	type path struct {
		answer string
		key    string
		length int
	}
	var all []path
	counts := map[string]int{}
	for i := 0; i < paths; i++ {
		text, err := gen.Generate(ctx, s.Role, types.GenerationRequest{
			Prompt:      prompt,
			MaxTokens:   s.MaxTokens,
			Temperature: temp,
		})
		if err != nil {
			return Outcome{}, err
		}
		out.Steps = append(out.Steps, types.ReasoningStep{
			Phase:       types.PhaseReasoning,
			Role:        s.Role,
			InputDigest: types.Digest(prompt),
			Output:      text,
			Timestamp:   time.Now(),
		})
		ans := ExtractAnswer(text)
		key := Normalize(ans)
		all = append(all, path{answer: ans, key: key, length: len(text)})
		counts[key]++
	}

	best := -1
	for i, p := range all {
		if best < 0 {
			best = i
			continue
		}
		b := all[best]
		switch {
		case counts[p.key] > counts[b.key]:
			best = i
		case counts[p.key] == counts[b.key] && p.key != b.key && p.length < b.length:
			// Tie between distinct answers: shortest reasoning wins as a
			// simplicity proxy.
			best = i
		}
	}
	winner := all[best]
	out.Final = winner.answer
	out.Confidence = float64(counts[winner.key]) / float64(paths)
	return out, nil
}
