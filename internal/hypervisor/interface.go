package hypervisor

import "context"

// Interface is the guest-statistics surface of the hypervisor. The
// concrete connection (libvirt, vdsm) lives outside this repository;
// collectors only depend on this contract.
type Interface interface {
	// StartVMMemoryStats enables the memory-statistics stream for a guest.
	// Called once when a guest collector is constructed.
	StartVMMemoryStats(uuid string) error

	// VMMemoryStats returns the current memory statistics for a guest.
	VMMemoryStats(uuid string) (map[string]any, error)
}

// Tuner applies one batched knob map per knob domain. A controller cycle
// issues at most one call; implementations absorb per-knob write failures
// so one bad knob cannot block the rest of the batch.
type Tuner interface {
	KSMTune(ctx context.Context, params map[string]int64) error
}
