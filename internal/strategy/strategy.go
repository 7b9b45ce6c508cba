// Package strategy implements the generation strategies the reasoning phase
// composes: depth-bounded chain-of-thought, self-consistency voting, and a
// bounded tool-invocation loop. Strategies issue generate calls through the
// Generator contract and report their intermediate steps for the trace.
package strategy

import (
	"context"

	"trvd/pkg/types"
)

// Generator issues one generation against a role's model. The slot manager
// satisfies this.
type Generator interface {
	Generate(ctx context.Context, role types.Role, req types.GenerationRequest) (string, error)
}

// Outcome is a strategy's product: the phase result plus everything the
// controller appends to the trace.
type Outcome struct {
	Final      string
	Steps      []types.ReasoningStep
	ToolCalls  []types.ToolInvocation
	Confidence float64
}
