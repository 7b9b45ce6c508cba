package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// RoleConfig binds one pipeline role to a model artifact.
type RoleConfig struct {
	Path      string `json:"path" yaml:"path" toml:"path"`
	Name      string `json:"name" yaml:"name" toml:"name"`
	CtxSize   int    `json:"ctx_size" yaml:"ctx_size" toml:"ctx_size"`
	GPULayers int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`
}

// SlotConfig tunes the slot manager and reclaimer.
type SlotConfig struct {
	// Memory budget for a single resident model, MB. 0 disables the check.
	BudgetMB int `json:"budget_mb" yaml:"budget_mb" toml:"budget_mb"`
	// Max time a caller may wait for the slot before too-busy.
	MaxWaitSeconds int `json:"max_wait_seconds" yaml:"max_wait_seconds" toml:"max_wait_seconds"`
	// Per-generation timeout. 0 disables.
	GenerateTimeoutSeconds int `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds"`
	// Reclaim barrier timeout. Expiry poisons the slot.
	ReclaimTimeoutSeconds int `json:"reclaim_timeout_seconds" yaml:"reclaim_timeout_seconds" toml:"reclaim_timeout_seconds"`
}

// PipelineConfig tunes the TRV controller.
type PipelineConfig struct {
	MaxCriticIterations int `json:"max_critic_iterations" yaml:"max_critic_iterations" toml:"max_critic_iterations"`
	CoTDepth            int `json:"cot_depth" yaml:"cot_depth" toml:"cot_depth"`
	NumPaths            int `json:"num_paths" yaml:"num_paths" toml:"num_paths"`
	MaxToolCalls        int `json:"max_tool_calls" yaml:"max_tool_calls" toml:"max_tool_calls"`
	// Per-phase sampling temperatures; zero means package default.
	IngestionTemp float64 `json:"ingestion_temp" yaml:"ingestion_temp" toml:"ingestion_temp"`
	ReasoningTemp float64 `json:"reasoning_temp" yaml:"reasoning_temp" toml:"reasoning_temp"`
	CriticTemp    float64 `json:"critic_temp" yaml:"critic_temp" toml:"critic_temp"`
	SynthesisTemp float64 `json:"synthesis_temp" yaml:"synthesis_temp" toml:"synthesis_temp"`
	// Per-phase generation budgets in tokens.
	IngestionMaxTokens int `json:"ingestion_max_tokens" yaml:"ingestion_max_tokens" toml:"ingestion_max_tokens"`
	ReasoningMaxTokens int `json:"reasoning_max_tokens" yaml:"reasoning_max_tokens" toml:"reasoning_max_tokens"`
	CriticMaxTokens    int `json:"critic_max_tokens" yaml:"critic_max_tokens" toml:"critic_max_tokens"`
	SynthesisMaxTokens int `json:"synthesis_max_tokens" yaml:"synthesis_max_tokens" toml:"synthesis_max_tokens"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr     string                `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel string                `json:"log_level" yaml:"log_level" toml:"log_level"`
	Roles    map[string]RoleConfig `json:"roles" yaml:"roles" toml:"roles"`
	Slot     SlotConfig            `json:"slot" yaml:"slot" toml:"slot"`
	Pipeline PipelineConfig        `json:"pipeline" yaml:"pipeline" toml:"pipeline"`
}

// Defaults applied by Finalize for unset fields.
const (
	DefaultAddr                = ":8080"
	DefaultMaxCriticIterations = 3
	DefaultCoTDepth            = 2
	DefaultNumPaths            = 5
	DefaultMaxToolCalls        = 5
	DefaultCtxSize             = 4096
	DefaultMaxWait             = 120 * time.Second
	DefaultGenerateTimeout     = 300 * time.Second
	DefaultReclaimTimeout      = 30 * time.Second
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Finalize fills unset fields with package defaults.
func (c *Config) Finalize() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Pipeline.MaxCriticIterations <= 0 {
		c.Pipeline.MaxCriticIterations = DefaultMaxCriticIterations
	}
	if c.Pipeline.CoTDepth <= 0 {
		c.Pipeline.CoTDepth = DefaultCoTDepth
	}
	if c.Pipeline.NumPaths <= 0 {
		c.Pipeline.NumPaths = DefaultNumPaths
	}
	if c.Pipeline.MaxToolCalls <= 0 {
		c.Pipeline.MaxToolCalls = DefaultMaxToolCalls
	}
	if c.Slot.MaxWaitSeconds <= 0 {
		c.Slot.MaxWaitSeconds = int(DefaultMaxWait / time.Second)
	}
	if c.Slot.GenerateTimeoutSeconds < 0 {
		c.Slot.GenerateTimeoutSeconds = 0
	}
	if c.Slot.ReclaimTimeoutSeconds <= 0 {
		c.Slot.ReclaimTimeoutSeconds = int(DefaultReclaimTimeout / time.Second)
	}
	for role, rc := range c.Roles {
		if rc.CtxSize <= 0 {
			rc.CtxSize = DefaultCtxSize
		}
		if rc.GPULayers == 0 {
			rc.GPULayers = -1
		}
		c.Roles[role] = rc
	}
}
