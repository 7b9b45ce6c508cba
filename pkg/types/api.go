package types

// ExecuteRequest is the payload for POST /execute.
type ExecuteRequest struct {
	// Query text in the source language.
	// example: दो और दो कितने होते हैं?
	Query string `json:"query" example:"दो और दो कितने होते हैं?"`
	// Language tag of the query; defaults to english.
	// example: hindi
	Language string `json:"language,omitempty" example:"hindi"`
	// Optional execution options; unset fields use server defaults.
	Options ExecuteOptions `json:"options,omitempty"`
}

// ExecuteOptions tunes one pipeline execution. Pointer fields distinguish
// "unset" from an explicit false/zero.
type ExecuteOptions struct {
	// Run the critic phase; default true.
	EnableCritic *bool `json:"enable_critic,omitempty"`
	// Use depth-bounded chain-of-thought in the reasoning phase; default true.
	EnableDeepCoT *bool `json:"enable_deep_cot,omitempty"`
	// Use self-consistency voting in the reasoning phase; default false.
	EnableSelfConsistency *bool `json:"enable_self_consistency,omitempty"`
	// Allow the reasoner to invoke registered tools; default false.
	EnableTools *bool `json:"enable_tools,omitempty"`
	// Route reasoning to the bridge role instead of reasoner.
	UseBridge *bool `json:"use_bridge,omitempty"`
	// Chain-of-thought depth; 0 means a single reasoning call.
	// example: 2
	CoTDepth *int `json:"cot_depth,omitempty" example:"2"`
	// Number of self-consistency paths.
	// example: 5
	NumPaths *int `json:"num_paths,omitempty" example:"5"`
	// Tool call budget per execution.
	// example: 5
	MaxToolCalls *int `json:"max_tool_calls,omitempty" example:"5"`
}

// PipelineResult is the final product of one execution. Constructed once,
// immutable afterwards.
type PipelineResult struct {
	// Unique execution id.
	// example: 7a9c1f0e-3f6b-4f2a-9c1e-0d5a8b7c6d5e
	ID string `json:"id" example:"7a9c1f0e-3f6b-4f2a-9c1e-0d5a8b7c6d5e"`
	// Final answer, transcreated into the source language.
	FinalAnswer string `json:"final_answer"`
	// Language tag the answer was rendered in.
	// example: hindi
	Language string `json:"language" example:"hindi"`
	// Ordered reasoning trace.
	Trace []ReasoningStep `json:"trace"`
	// Tool invocations made during reasoning.
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
	// Number of critic iterations performed.
	// example: 1
	CriticIterations int `json:"critic_iterations" example:"1"`
	// True when the critic budget ran out without a pass; the answer is
	// best-effort in that case.
	CriticExhausted bool `json:"critic_exhausted,omitempty"`
	// Self-consistency confidence (wins / paths) when voting was used.
	// example: 0.8
	Confidence float64 `json:"confidence,omitempty" example:"0.8"`
	// Wall-clock execution time in seconds.
	// example: 42.7
	ElapsedSeconds float64 `json:"elapsed_seconds" example:"42.7"`
}

// RoleStats aggregates per-role slot activity for /status.
type RoleStats struct {
	// Number of times this role's artifact was loaded.
	// example: 3
	Loads uint64 `json:"loads" example:"3"`
	// Number of completed generations.
	// example: 12
	Generations uint64 `json:"generations" example:"12"`
	// Cumulative generation wall time in seconds.
	// example: 87.2
	GenerationSeconds float64 `json:"generation_seconds" example:"87.2"`
	// Rough token count (whitespace-delimited) produced.
	// example: 5120
	Tokens uint64 `json:"tokens" example:"5120"`
	// Tokens divided by generation seconds.
	// example: 58.7
	TokensPerSecond float64 `json:"tokens_per_second" example:"58.7"`
}

// SlotStatus is a read-only projection of the slot manager.
type SlotStatus struct {
	// Slot lifecycle state: empty, loading, resident, unloading, broken.
	// example: resident
	State string `json:"state" example:"resident"`
	// Resident role when state is resident.
	// example: reasoner
	Role string `json:"role,omitempty" example:"reasoner"`
	// Total loads across all roles.
	// example: 9
	LoadsTotal uint64 `json:"loads_total" example:"9"`
	// Total completed reclaims.
	// example: 8
	ReclaimsTotal uint64 `json:"reclaims_total" example:"8"`
	// Last error observed by the manager, if any.
	LastError string `json:"last_error,omitempty"`
}

// PipelineStats aggregates controller activity for /status.
type PipelineStats struct {
	// Executions completed successfully.
	// example: 41
	Queries uint64 `json:"queries" example:"41"`
	// Executions that returned a structured failure.
	// example: 2
	Failures uint64 `json:"failures" example:"2"`
	// Cumulative pipeline wall time in seconds.
	// example: 1843.5
	TotalSeconds float64 `json:"total_seconds" example:"1843.5"`
	// Executions per language tag.
	Languages map[string]uint64 `json:"languages,omitempty"`
	// Mean critic iterations over completed executions.
	// example: 1.3
	AvgCriticIterations float64 `json:"avg_critic_iterations" example:"1.3"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Slot     SlotStatus           `json:"slot"`
	Roles    map[string]RoleStats `json:"roles"`
	Pipeline PipelineStats        `json:"pipeline"`
	// Configured artifacts by role.
	Artifacts []Artifact `json:"artifacts"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// RolesResponse wraps the artifact list returned by GET /roles.
type RolesResponse struct {
	Artifacts []Artifact `json:"artifacts"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: query is required
	Error string `json:"error" example:"query is required"`
	// Machine-readable error kind.
	// example: validation
	Kind string `json:"kind,omitempty" example:"validation"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Pipeline phase the failure occurred in, if the execution got that far.
	// example: reasoning
	Phase string `json:"phase,omitempty" example:"reasoning"`
	// Execution id, present when the pipeline was entered.
	ID string `json:"id,omitempty"`
	// Partial reasoning trace accumulated before the failure.
	Trace []ReasoningStep `json:"trace,omitempty"`
}
