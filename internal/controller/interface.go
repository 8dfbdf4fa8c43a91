package controller

import (
	"context"

	"github.com/virtmem/memctl/internal/monitor"
)

// Controller is a per-knob-domain reconciliation unit. Process runs once
// per policy cycle: it compares the desired values the policy evaluator
// attached to the host entity against the last-applied values the
// monitoring side collected, and issues at most one batched write
// carrying only the knobs that changed. A cycle with no policy change
// costs zero external writes.
//
// Controllers hold no persistent state; they are pure functions of the
// entities they are given.
type Controller interface {
	Process(ctx context.Context, host *monitor.Entity, guests []*monitor.Entity)
}
