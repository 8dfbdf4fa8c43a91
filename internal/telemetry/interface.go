package telemetry

import (
	"context"
	"time"

	"github.com/virtmem/memctl/internal/monitor"
)

// Recorder persists completed collection cycles.
type Recorder interface {
	Record(ctx context.Context, monitorName string, sample monitor.Sample) error
	Close() error
}

// Repository defines the interface for telemetry data storage.
type Repository interface {
	Store(monitorName string, at time.Time, sample monitor.Sample) error
	Close() error
}
