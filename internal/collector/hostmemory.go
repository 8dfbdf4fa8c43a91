package collector

import (
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/virtmem/memctl/internal/logger"
)

const defaultVMStatPath = "/proc/vmstat"

// HostMemory reports host-wide memory and swap statistics. Sizes come
// from the kernel via gopsutil and are reported in KiB; swap and fault
// rates are per-cycle deltas of the /proc/vmstat counters, so they only
// appear from the second cycle on.
type HostMemory struct {
	vmstatPath string

	prevSwapIn   *int64
	prevSwapOut  *int64
	prevMajFault *int64
	prevMinFault *int64
	haveBaseline bool
}

func init() {
	MustRegister("HostMemory", NewHostMemory)
}

func NewHostMemory(ctx *Context) (Collector, error) {
	return &HostMemory{
		vmstatPath: ctx.ConfigValue("vmstat_path", defaultVMStatPath),
	}, nil
}

func (c *HostMemory) MandatoryFields() []string {
	return []string{"mem_available", "mem_unused", "mem_free", "swap_total", "swap_usage"}
}

func (c *HostMemory) OptionalFields() []string {
	return []string{"swap_in", "swap_out", "major_fault", "minor_fault", "anon_pages"}
}

func (c *HostMemory) Collect() (map[string]any, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, WrapRecoverable("virtual memory stats unavailable", err)
	}

	swap, err := mem.SwapMemory()
	if err != nil {
		return nil, WrapRecoverable("swap stats unavailable", err)
	}

	data := map[string]any{
		"mem_available": toKiB(vm.Total),
		"mem_unused":    toKiB(vm.Free),
		"mem_free":      toKiB(vm.Available),
		"swap_total":    toKiB(swap.Total),
		"swap_usage":    toKiB(swap.Used),
	}

	c.collectVMStat(data)

	return data, nil
}

// collectVMStat fills the per-cycle counter deltas. The vmstat counters
// are cumulative, so missing a read only widens the next delta.
func (c *HostMemory) collectVMStat(data map[string]any) {
	blob, err := ReadDatafile(c.vmstatPath)
	if err != nil {
		logger.Debug().Err(err).Msg("vmstat unavailable, skipping rate fields")
		return
	}

	swapIn := ParseInt(`^pswpin (\d+)`, blob)
	swapOut := ParseInt(`^pswpout (\d+)`, blob)
	majFault := ParseInt(`^pgmajfault (\d+)`, blob)
	minFault := ParseInt(`^pgfault (\d+)`, blob)

	if c.haveBaseline {
		setDelta(data, "swap_in", c.prevSwapIn, swapIn)
		setDelta(data, "swap_out", c.prevSwapOut, swapOut)
		setDelta(data, "major_fault", c.prevMajFault, majFault)
		setDelta(data, "minor_fault", c.prevMinFault, minFault)
	}

	if anon := ParseInt(`^nr_anon_pages (\d+)`, blob); anon != nil {
		data["anon_pages"] = *anon
	}

	c.prevSwapIn, c.prevSwapOut = swapIn, swapOut
	c.prevMajFault, c.prevMinFault = majFault, minFault
	c.haveBaseline = true
}

func setDelta(data map[string]any, field string, prev, cur *int64) {
	if prev == nil || cur == nil {
		return
	}

	delta := *cur - *prev
	if delta < 0 {
		// Counter reset across a reboot or overflow.
		delta = 0
	}
	data[field] = delta
}

func toKiB(bytes uint64) int64 {
	return int64(bytes / 1024)
}
