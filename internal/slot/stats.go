package slot

import (
	"strings"
	"sync"
	"time"

	"trvd/pkg/types"
)

// statsBook tracks per-role load and generation counters.
type statsBook struct {
	mu    sync.Mutex
	roles map[types.Role]*roleCounters
}

type roleCounters struct {
	loads       uint64
	generations uint64
	genSeconds  float64
	tokens      uint64
}

func newStatsBook() *statsBook {
	return &statsBook{roles: make(map[types.Role]*roleCounters)}
}

func (s *statsBook) forRole(r types.Role) *roleCounters {
	c := s.roles[r]
	if c == nil {
		c = &roleCounters{}
		s.roles[r] = c
	}
	return c
}

func (s *statsBook) recordLoad(r types.Role) {
	s.mu.Lock()
	s.forRole(r).loads++
	s.mu.Unlock()
}

func (s *statsBook) recordGeneration(r types.Role, text string, dur time.Duration) {
	s.mu.Lock()
	c := s.forRole(r)
	c.generations++
	c.genSeconds += dur.Seconds()
	// Whitespace-delimited fields as a rough token estimate; exact counts
	// would need tokenizer hooks the engine does not expose.
	c.tokens += uint64(len(strings.Fields(text)))
	s.mu.Unlock()
}

// Snapshot returns a copy of per-role statistics keyed by role name.
func (s *statsBook) Snapshot() map[string]types.RoleStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]types.RoleStats, len(s.roles))
	for r, c := range s.roles {
		rs := types.RoleStats{
			Loads:             c.loads,
			Generations:       c.generations,
			GenerationSeconds: c.genSeconds,
			Tokens:            c.tokens,
		}
		if c.genSeconds > 0 {
			rs.TokensPerSecond = float64(c.tokens) / c.genSeconds
		}
		out[string(r)] = rs
	}
	return out
}
