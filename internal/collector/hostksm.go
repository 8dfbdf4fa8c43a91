package collector

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultKSMRoot = "/sys/kernel/mm/ksm"

// HostKSM reads the state of the kernel same-page merging daemon from
// sysfs. The run/pages_to_scan/sleep_millisecs fields double as the
// read-back of the last knob values applied by the KSM controller.
type HostKSM struct {
	root string
}

func init() {
	MustRegister("HostKSM", NewHostKSM)
}

func NewHostKSM(ctx *Context) (Collector, error) {
	root := ctx.ConfigValue("root", defaultKSMRoot)

	// A host without the ksm sysfs tree will never produce data.
	if _, err := os.Stat(root); err != nil {
		return nil, WrapFatal("ksm sysfs tree not present at "+root, err)
	}

	return &HostKSM{root: root}, nil
}

func (c *HostKSM) MandatoryFields() []string {
	return []string{"ksm_run", "ksm_pages_to_scan", "ksm_sleep_millisecs"}
}

func (c *HostKSM) OptionalFields() []string {
	return []string{
		"ksm_merge_across_nodes", "ksm_pages_shared", "ksm_pages_sharing",
		"ksm_pages_unshared", "ksm_full_scans",
	}
}

func (c *HostKSM) Collect() (map[string]any, error) {
	data := make(map[string]any)

	for _, field := range c.MandatoryFields() {
		val, err := c.readKnob(field)
		if err != nil {
			return nil, WrapRecoverable("ksm "+field+" unreadable", err)
		}
		data[field] = val
	}

	// Optional entries vary by kernel version; absence is not an error.
	for _, field := range c.OptionalFields() {
		if val, err := c.readKnob(field); err == nil {
			data[field] = val
		}
	}

	return data, nil
}

func (c *HostKSM) readKnob(field string) (int64, error) {
	name := strings.TrimPrefix(field, "ksm_")

	blob, err := ReadDatafile(filepath.Join(c.root, name))
	if err != nil {
		return 0, err
	}

	return strconv.ParseInt(strings.TrimSpace(blob), 10, 64)
}
