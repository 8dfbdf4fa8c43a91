package collector

import (
	"github.com/virtmem/memctl/internal/hypervisor"
	"github.com/virtmem/memctl/internal/logger"
)

// GuestMemory collects a guest's memory statistics through the
// hypervisor interface.
type GuestMemory struct {
	iface hypervisor.Interface
	uuid  string

	// Stats errors are logged once when first seen, then suppressed
	// until the stream recovers.
	statsAvailable bool
}

func init() {
	MustRegister("GuestMemory", NewGuestMemory)
}

func NewGuestMemory(ctx *Context) (Collector, error) {
	if ctx.Hypervisor == nil {
		return nil, Fatalf("no hypervisor interface for monitor %s", ctx.MonitorName)
	}

	uuid, _ := ctx.Property("uuid").(string)
	if uuid == "" {
		return nil, Fatalf("no guest uuid for monitor %s", ctx.MonitorName)
	}

	if err := ctx.Hypervisor.StartVMMemoryStats(uuid); err != nil {
		return nil, WrapFatal("cannot start guest memory stats", err)
	}

	return &GuestMemory{
		iface:          ctx.Hypervisor,
		uuid:           uuid,
		statsAvailable: true,
	}, nil
}

func (c *GuestMemory) MandatoryFields() []string {
	return []string{
		"mem_available", "mem_unused", "major_fault", "minor_fault",
		"swap_in", "swap_out",
	}
}

func (c *GuestMemory) OptionalFields() []string {
	return []string{"swap_total", "swap_usage"}
}

func (c *GuestMemory) Collect() (map[string]any, error) {
	stats, err := c.iface.VMMemoryStats(c.uuid)
	if err != nil {
		// Not a collection error: a lower-priority collector may still
		// supply these fields, and the monitor detects any that stay
		// missing when it validates the merged cycle.
		if c.statsAvailable {
			logger.Warn().Err(err).Str("uuid", c.uuid).Msg("Guest memory stats unavailable")
		}
		c.statsAvailable = false

		return map[string]any{}, nil
	}

	c.statsAvailable = true

	return stats, nil
}
