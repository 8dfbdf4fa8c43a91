package hypervisor

import "github.com/virtmem/memctl/internal/errors"

const (
	// Guest statistics errors
	ErrStatsUnavailable = errors.ErrorCode("hypervisor_stats_unavailable")
	ErrGuestNotFound    = errors.ErrorCode("hypervisor_guest_not_found")

	// Tuning errors
	ErrTuneFailed   = errors.ErrorCode("hypervisor_tune_failed")
	ErrUnknownKnob  = errors.ErrorCode("hypervisor_unknown_knob")
	ErrKnobNotFound = errors.ErrorCode("hypervisor_knob_not_found")
)
