// Package daemon ties the slot manager and the pipeline controller into the
// single service the HTTP layer exposes.
package daemon

import (
	"context"
	"time"

	"trvd/internal/pipeline"
	"trvd/internal/slot"
	"trvd/pkg/types"
)

// Daemon implements httpapi.Service.
type Daemon struct {
	slot     *slot.Manager
	pipeline *pipeline.Controller
	started  time.Time
}

// New wires a Daemon from its two halves.
func New(m *slot.Manager, p *pipeline.Controller) *Daemon {
	return &Daemon{slot: m, pipeline: p, started: time.Now()}
}

// Execute runs one pipeline execution.
func (d *Daemon) Execute(ctx context.Context, req types.ExecuteRequest) (*types.PipelineResult, error) {
	return d.pipeline.Execute(ctx, req)
}

// Status assembles the combined slot, role and pipeline view.
func (d *Daemon) Status() types.StatusResponse {
	now := time.Now()
	return types.StatusResponse{
		Slot:           d.slot.Status(),
		Roles:          d.slot.Stats(),
		Pipeline:       d.pipeline.Stats(),
		Artifacts:      d.slot.Artifacts(),
		UptimeSeconds:  int64(now.Sub(d.started).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}

// Roles lists the configured artifacts.
func (d *Daemon) Roles() []types.Artifact { return d.slot.Artifacts() }

// Unload evicts the resident model, if any.
func (d *Daemon) Unload(ctx context.Context) error { return d.slot.Unload(ctx) }

// Ready reports whether the slot can serve work.
func (d *Daemon) Ready() bool { return d.slot.Ready() }
