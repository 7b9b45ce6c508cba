package slot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trvd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultMaxWait        = 120 * time.Second
	defaultReclaimTimeout = 30 * time.Second
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Artifacts []types.Artifact
	Engine    Engine
	// BudgetMB limits the resident artifact size; 0 disables the check.
	BudgetMB        int
	MaxWait         time.Duration
	GenerateTimeout time.Duration
	ReclaimTimeout  time.Duration
	Threads         int
	Publisher       EventPublisher
	Logger          zerolog.Logger
}

// Manager owns the single loaded-model slot. All operations serialize
// through one gate; state transitions are Empty -> Loading -> Resident ->
// Unloading -> Empty, with Broken as the terminal poisoned state.
type Manager struct {
	gate    chan struct{}
	maxWait time.Duration

	mu       sync.RWMutex
	state    State
	role     types.Role
	handle   Handle
	lastErr  string
	loads    uint64
	reclaims uint64

	engine     Engine
	artifacts  map[types.Role]types.Artifact
	budgetMB   int
	genTimeout time.Duration
	threads    int
	reclaimer  *Reclaimer
	stats      *statsBook
	publisher  EventPublisher
	log        zerolog.Logger
}

// New constructs a Manager from ManagerConfig.
func New(cfg ManagerConfig) *Manager {
	m := &Manager{
		gate:      make(chan struct{}, 1),
		state:     StateEmpty,
		engine:    cfg.Engine,
		artifacts: make(map[types.Role]types.Artifact, len(cfg.Artifacts)),
		budgetMB:  cfg.BudgetMB,
		threads:   cfg.Threads,
		stats:     newStatsBook(),
		publisher: cfg.Publisher,
		log:       cfg.Logger,
	}
	for _, a := range cfg.Artifacts {
		m.artifacts[a.Role] = a
	}
	if cfg.MaxWait <= 0 {
		m.maxWait = defaultMaxWait
	} else {
		m.maxWait = cfg.MaxWait
	}
	m.genTimeout = cfg.GenerateTimeout
	rt := cfg.ReclaimTimeout
	if rt <= 0 {
		rt = defaultReclaimTimeout
	}
	m.reclaimer = &Reclaimer{Timeout: rt}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	return m
}

// Artifacts returns the configured artifacts, sorted by role at build time.
func (m *Manager) Artifacts() []types.Artifact {
	out := make([]types.Artifact, 0, len(m.artifacts))
	for _, r := range types.KnownRoles {
		if a, ok := m.artifacts[r]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Ready reports whether the slot can serve work (not poisoned).
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state != StateBroken
}

// Load makes role's artifact resident, reclaiming any other resident model
// first. Idempotent when role is already resident.
func (m *Manager) Load(ctx context.Context, role types.Role) error {
	release, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return m.loadLocked(role)
}

// Generate runs one generation against role's model, loading it first when
// needed. Cancellation of ctx interrupts both the queue wait and the
// generation itself; the slot remains consistent afterwards.
func (m *Manager) Generate(ctx context.Context, role types.Role, req types.GenerationRequest) (string, error) {
	return m.GenerateStream(ctx, role, req, nil)
}

// GenerateStream is Generate with a per-token callback.
func (m *Manager) GenerateStream(ctx context.Context, role types.Role, req types.GenerationRequest, onToken func(string) error) (string, error) {
	release, err := m.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	if err := m.loadLocked(role); err != nil {
		return "", err
	}
	m.mu.RLock()
	h := m.handle
	m.mu.RUnlock()

	genCtx := ctx
	if m.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, m.genTimeout)
		defer cancel()
	}
	start := time.Now()
	text, err := h.Generate(genCtx, req, onToken)
	dur := time.Since(start)
	if err != nil {
		if IsCancelled(err) {
			// The engine returned promptly on cancellation; residency is
			// untouched and a later reclaim proceeds normally.
			return "", err
		}
		m.setLastErr(err.Error())
		return "", ErrGeneration(role, err)
	}
	m.stats.recordGeneration(role, text, dur)
	generationSeconds.WithLabelValues(string(role)).Observe(dur.Seconds())
	m.log.Debug().Str("role", string(role)).Dur("dur", dur).Int("chars", len(text)).Msg("generation done")
	return text, nil
}

// Unload explicitly reclaims the resident model. No-op when empty.
func (m *Manager) Unload(ctx context.Context) error {
	release, err := m.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	m.mu.RLock()
	st := m.state
	m.mu.RUnlock()
	switch st {
	case StateBroken:
		return ErrReclaimTimeout()
	case StateEmpty:
		return nil
	}
	return m.reclaimLocked()
}

// Snapshot returns a read-only view of the slot.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:         m.state,
		Role:          m.role,
		LoadsTotal:    m.loads,
		ReclaimsTotal: m.reclaims,
		LastError:     m.lastErr,
	}
}

// Status builds the slot section of the /status payload.
func (m *Manager) Status() types.SlotStatus {
	s := m.Snapshot()
	out := types.SlotStatus{
		State:         string(s.State),
		LoadsTotal:    s.LoadsTotal,
		ReclaimsTotal: s.ReclaimsTotal,
		LastError:     s.LastError,
	}
	if s.State == StateResident {
		out.Role = string(s.Role)
	}
	return out
}

// Stats returns per-role counters keyed by role name.
func (m *Manager) Stats() map[string]types.RoleStats { return m.stats.Snapshot() }

// Close reclaims any resident model at shutdown. Best-effort.
func (m *Manager) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), m.reclaimer.Timeout+time.Second)
	defer cancel()
	err := m.Unload(ctx)
	if err != nil && !IsReclaimTimeout(err) {
		m.log.Warn().Err(err).Msg("shutdown unload failed")
	}
	return err
}

// loadLocked performs the reclaim-then-load transition. Caller holds the gate.
func (m *Manager) loadLocked(role types.Role) error {
	m.mu.RLock()
	st, cur := m.state, m.role
	m.mu.RUnlock()

	if st == StateBroken {
		return ErrReclaimTimeout()
	}
	if st == StateResident && cur == role {
		// Idempotent: same role stays resident.
		return nil
	}

	art, ok := m.artifacts[role]
	if !ok {
		return ErrRoleNotFound(role)
	}
	if m.budgetMB > 0 && art.SizeMB > m.budgetMB {
		return ErrModelLoad(role, "artifact exceeds memory budget", nil)
	}

	// Unconditional reclaim on every role switch: the single-residency
	// invariant dominates over co-residency optimizations.
	if st == StateResident {
		if err := m.reclaimLocked(); err != nil {
			return err
		}
	}

	m.setState(StateLoading, role)
	m.publisher.Publish(Event{Name: "load_start", Role: role, Fields: map[string]any{"path": art.Path}})
	start := time.Now()
	h, err := m.engine.Load(art.Path, LoadOpts{CtxSize: art.CtxSize, GPULayers: art.GPULayers, Threads: m.threads})
	if err != nil {
		// Guaranteed release on the partial-initialization error path.
		if h != nil {
			_ = m.reclaimer.Reclaim(h)
		}
		m.setState(StateEmpty, "")
		m.setLastErr(err.Error())
		m.publisher.Publish(Event{Name: "load_error", Role: role, Fields: map[string]any{"error": err.Error()}})
		if IsEngineUnavailable(err) {
			return err
		}
		return ErrModelLoad(role, "engine load failed", err)
	}

	m.mu.Lock()
	m.handle = h
	m.role = role
	m.state = StateResident
	m.loads++
	m.lastErr = ""
	m.mu.Unlock()
	m.stats.recordLoad(role)
	loadsTotal.WithLabelValues(string(role)).Inc()
	residentGauge.Set(1)
	m.publisher.Publish(Event{Name: "load_done", Role: role, Fields: map[string]any{"dur_ms": time.Since(start).Milliseconds()}})
	m.log.Info().Str("role", string(role)).Str("path", art.Path).Dur("dur", time.Since(start)).Msg("model loaded")
	return nil
}

// reclaimLocked releases the resident handle. Caller holds the gate.
func (m *Manager) reclaimLocked() error {
	m.mu.Lock()
	h := m.handle
	role := m.role
	// Drop ownership first so no consumer can reach the handle.
	m.handle = nil
	m.state = StateUnloading
	m.mu.Unlock()

	m.publisher.Publish(Event{Name: "reclaim_start", Role: role, Fields: map[string]any{}})
	err := m.reclaimer.Reclaim(h)
	if err != nil {
		if IsReclaimTimeout(err) {
			m.mu.Lock()
			m.state = StateBroken
			m.lastErr = err.Error()
			m.mu.Unlock()
			reclaimsTotal.WithLabelValues("timeout").Inc()
			m.publisher.Publish(Event{Name: "reclaim_timeout", Role: role, Fields: map[string]any{}})
			m.log.Error().Str("role", string(role)).Msg("reclaim barrier timed out; slot poisoned")
			return err
		}
		// A close error is recorded, but references are dropped and the
		// collector ran, so the slot continues as empty.
		m.setLastErr(err.Error())
		m.log.Warn().Err(err).Str("role", string(role)).Msg("reclaim reported close error")
	}
	m.mu.Lock()
	m.role = ""
	m.state = StateEmpty
	m.reclaims++
	m.mu.Unlock()
	residentGauge.Set(0)
	reclaimsTotal.WithLabelValues("ok").Inc()
	m.publisher.Publish(Event{Name: "reclaim_done", Role: role, Fields: map[string]any{}})
	return nil
}

func (m *Manager) setState(st State, role types.Role) {
	m.mu.Lock()
	m.state = st
	m.role = role
	m.mu.Unlock()
}

func (m *Manager) setLastErr(s string) {
	m.mu.Lock()
	m.lastErr = s
	m.mu.Unlock()
}
