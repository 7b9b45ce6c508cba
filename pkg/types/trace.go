package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Phase names one pipeline stage for trace records.
type Phase string

const (
	PhaseIngestion Phase = "ingestion"
	PhaseReasoning Phase = "reasoning"
	PhaseCritic    Phase = "critic"
	PhaseRevision  Phase = "revision"
	PhaseSynthesis Phase = "synthesis"
)

// ReasoningStep is one ordered trace record. Traces are append-only and
// owned by a single in-flight execution.
type ReasoningStep struct {
	// Pipeline phase that produced this step.
	// example: reasoning
	Phase Phase `json:"phase" example:"reasoning"`
	// Model role invoked.
	// example: reasoner
	Role Role `json:"role" example:"reasoner"`
	// Short digest of the input prompt, for correlating steps without
	// storing full prompts.
	// example: 9f86d081884c
	InputDigest string `json:"input_digest" example:"9f86d081884c"`
	// Generated text.
	Output string `json:"output"`
	// When the step completed.
	Timestamp time.Time `json:"timestamp"`
}

// Verdict is the critic's judgment over a reasoning output.
type Verdict struct {
	// True when the critic accepted the solution.
	// example: false
	Pass bool `json:"pass" example:"false"`
	// Critique text when Pass is false.
	Reason string `json:"reason,omitempty"`
}

// ToolInvocation records one tool call made during the reasoning phase.
type ToolInvocation struct {
	// Registered tool name.
	// example: calculator
	Tool string `json:"tool" example:"calculator"`
	// Raw argument string as emitted by the model.
	// example: 12*(3+4)
	Arguments string `json:"arguments" example:"12*(3+4)"`
	// Tool output on success.
	Result string `json:"result,omitempty"`
	// Error text on failure; the loop continues with this fed back.
	Error string `json:"error,omitempty"`
	// When the call completed.
	Timestamp time.Time `json:"timestamp"`
}

// Digest returns the first 12 hex chars of the SHA-256 of s, the format
// stored in ReasoningStep.InputDigest.
func Digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
