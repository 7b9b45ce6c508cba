package types

// Role names the function a model fulfills in the pipeline. Each role maps
// to exactly one artifact on disk.
type Role string

const (
	RoleTranslator Role = "translator"
	RoleReasoner   Role = "reasoner"
	RoleCritic     Role = "critic"
	// RoleBridge is the alternate reasoner used when a request routes
	// reasoning away from the primary model.
	RoleBridge Role = "bridge"
)

// KnownRoles lists every role the registry may configure.
var KnownRoles = []Role{RoleTranslator, RoleReasoner, RoleCritic, RoleBridge}

// Artifact describes one model file bound to a role. Immutable after the
// registry is built.
type Artifact struct {
	// Role this artifact serves.
	// example: reasoner
	Role Role `json:"role" example:"reasoner"`
	// Human-friendly name, defaults to the file name.
	// example: qwen2.5-7b-q4_k_m.gguf
	Name string `json:"name" example:"qwen2.5-7b-q4_k_m.gguf"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/qwen2.5-7b-q4_k_m.gguf
	Path string `json:"path" example:"/home/user/models/qwen2.5-7b-q4_k_m.gguf"`
	// Context window size in tokens.
	// example: 4096
	CtxSize int `json:"ctx_size" example:"4096"`
	// Accelerator layer count; -1 offloads all layers.
	// example: -1
	GPULayers int `json:"gpu_layers" example:"-1"`
	// File size in MB, used for the memory budget admission check.
	// example: 4200
	SizeMB int `json:"size_mb" example:"4200"`
}

// GenerationRequest carries one prompt plus sampling parameters to the slot
// manager. Value type; no shared state.
type GenerationRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Stop        []string
}
