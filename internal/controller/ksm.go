package controller

import (
	"context"

	"github.com/spf13/cast"
	"github.com/virtmem/memctl/internal/errors"
	"github.com/virtmem/memctl/internal/hypervisor"
	"github.com/virtmem/memctl/internal/logger"
	"github.com/virtmem/memctl/internal/monitor"
)

const ErrNoTuner = errors.ErrorCode("controller_no_tuner")

// ksmKnobs is the fixed knob set of the KSM domain. Control directives
// and collected read-back fields both use the ksm_ prefixed form.
var ksmKnobs = []string{"run", "pages_to_scan", "sleep_millisecs", "merge_across_nodes"}

// KSM tunes the kernel same-page merging daemon:
//   - ksm_run: 0 stop, 1 run, 2 unmerge shared pages
//   - ksm_pages_to_scan: pages scanned per work unit
//   - ksm_sleep_millisecs: sleep between scans
//   - ksm_merge_across_nodes: 1 merge across all nodes, 0 per NUMA node
type KSM struct {
	tuner hypervisor.Tuner
}

func NewKSM(tuner hypervisor.Tuner) (*KSM, error) {
	if tuner == nil {
		return nil, errors.New().New(ErrNoTuner)
	}

	return &KSM{tuner: tuner}, nil
}

// Process reconciles the KSM knobs against the host's control directives.
// A knob with no directive this cycle is skipped outright; absence never
// means "reset to default".
func (k *KSM) Process(ctx context.Context, host *monitor.Entity, _ []*monitor.Entity) {
	outputs := make(map[string]int64)

	for _, knob := range ksmKnobs {
		name := "ksm_" + knob

		raw := host.Control(name)
		if raw == nil {
			continue
		}

		desired, err := cast.ToInt64E(raw)
		if err != nil {
			logger.Warn().Str("knob", name).Interface("value", raw).
				Msg("Non-numeric control value, skipping knob")
			continue
		}

		if applied := host.Stat(name); applied != nil {
			if current, err := cast.ToInt64E(applied); err == nil && current == desired {
				continue
			}
		}

		logger.Debug().Str("knob", name).
			Interface("applied", host.Stat(name)).
			Int64("desired", desired).
			Msg("KSM knob changed")
		outputs[knob] = desired
	}

	if len(outputs) == 0 {
		return
	}

	logger.Info().Interface("outputs", outputs).Msg("Updating KSM configuration")
	if err := k.tuner.KSMTune(ctx, outputs); err != nil {
		logger.Error().Err(err).Msg("Failed to apply KSM configuration")
	}
}
