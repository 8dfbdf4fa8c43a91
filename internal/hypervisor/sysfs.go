package hypervisor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/virtmem/memctl/internal/errors"
	"github.com/virtmem/memctl/internal/logger"
)

const defaultKSMRoot = "/sys/kernel/mm/ksm"

// knownKSMKnobs are the knob files a tuner is allowed to touch. Anything
// else in the sysfs directory is read-only kernel state.
var knownKSMKnobs = map[string]struct{}{
	"run":                {},
	"pages_to_scan":      {},
	"sleep_millisecs":    {},
	"merge_across_nodes": {},
}

// SysfsTuner applies KSM knob writes directly through sysfs. This is the
// knob domain's single actuation point on hosts without a management
// daemon in front of the kernel.
type SysfsTuner struct {
	root string
}

func NewSysfsTuner(root string) *SysfsTuner {
	if root == "" {
		root = defaultKSMRoot
	}

	return &SysfsTuner{root: root}
}

// KSMTune writes every knob in params to its sysfs file. A failed write is
// logged and skipped; the remaining knobs are still attempted. An error is
// returned only when no knob in a non-empty batch could be applied.
func (t *SysfsTuner) KSMTune(ctx context.Context, params map[string]int64) error {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(errors.ErrTimeout, err)
	}

	applied := 0
	for knob, value := range params {
		if _, ok := knownKSMKnobs[knob]; !ok {
			logger.Warn().Str("knob", knob).Msg("Refusing to write unknown KSM knob")
			continue
		}

		path := filepath.Join(t.root, knob)
		if err := os.WriteFile(path, []byte(strconv.FormatInt(value, 10)), 0o644); err != nil {
			logger.Warn().Err(err).Str("knob", knob).Msg("Failed to write KSM knob")
			continue
		}

		logger.Debug().Str("knob", knob).Int64("value", value).Msg("Applied KSM knob")
		applied++
	}

	if applied == 0 && len(params) > 0 {
		return errFactory.WithData(ErrTuneFailed, params)
	}

	return nil
}
