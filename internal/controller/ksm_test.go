package controller_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtmem/memctl/internal/collector"
	"github.com/virtmem/memctl/internal/controller"
	"github.com/virtmem/memctl/internal/monitor"
)

type fakeTuner struct {
	calls   []map[string]int64
	tuneErr error
}

func (f *fakeTuner) KSMTune(_ context.Context, params map[string]int64) error {
	f.calls = append(f.calls, params)
	return f.tuneErr
}

type ksmStateCollector struct {
	state map[string]any
}

func (c *ksmStateCollector) Collect() (map[string]any, error) { return c.state, nil }
func (c *ksmStateCollector) MandatoryFields() []string {
	return []string{"ksm_run", "ksm_pages_to_scan", "ksm_sleep_millisecs", "ksm_merge_across_nodes"}
}
func (c *ksmStateCollector) OptionalFields() []string { return nil }

// hostEntity builds a host snapshot whose newest sample carries the given
// last-applied knob values, the same way the monitoring side exposes them.
func hostEntity(t *testing.T, applied map[string]any) *monitor.Entity {
	t.Helper()

	m := monitor.New(monitor.Config{
		Name:          "host",
		Collectors:    []collector.Collector{&ksmStateCollector{state: applied}},
		HistoryLength: 5,
	})
	require.NotNil(t, m.Collect())

	e := m.Interrogate()
	require.NotNil(t, e)

	return e
}

func appliedState() map[string]any {
	return map[string]any{
		"ksm_run":                int64(1),
		"ksm_pages_to_scan":      int64(64),
		"ksm_sleep_millisecs":    int64(20),
		"ksm_merge_across_nodes": int64(1),
	}
}

func TestKSMNoChangeIssuesNoWrites(t *testing.T) {
	tuner := &fakeTuner{}
	ksm, err := controller.NewKSM(tuner)
	require.NoError(t, err)

	host := hostEntity(t, appliedState())
	host.SetControl("ksm_run", int64(1))
	host.SetControl("ksm_pages_to_scan", int64(64))
	host.SetControl("ksm_sleep_millisecs", int64(20))
	host.SetControl("ksm_merge_across_nodes", int64(1))

	ksm.Process(context.Background(), host, nil)
	assert.Empty(t, tuner.calls, "a cycle with no policy change costs zero external writes")
}

func TestKSMSingleChangedKnobBatchesOnlyThatKnob(t *testing.T) {
	tuner := &fakeTuner{}
	ksm, err := controller.NewKSM(tuner)
	require.NoError(t, err)

	host := hostEntity(t, appliedState())
	host.SetControl("ksm_run", int64(1))
	host.SetControl("ksm_pages_to_scan", int64(128))
	host.SetControl("ksm_sleep_millisecs", int64(20))
	host.SetControl("ksm_merge_across_nodes", int64(1))

	ksm.Process(context.Background(), host, nil)
	require.Len(t, tuner.calls, 1, "exactly one batched apply call")
	assert.Equal(t, map[string]int64{"pages_to_scan": 128}, tuner.calls[0])
}

func TestKSMAbsentControlSkipsKnob(t *testing.T) {
	tuner := &fakeTuner{}
	ksm, err := controller.NewKSM(tuner)
	require.NoError(t, err)

	// Only one directive this cycle; absence is not "reset to default".
	host := hostEntity(t, appliedState())
	host.SetControl("ksm_run", int64(0))

	ksm.Process(context.Background(), host, nil)
	require.Len(t, tuner.calls, 1)
	assert.Equal(t, map[string]int64{"run": 0}, tuner.calls[0])
}

func TestKSMCoercesControlValues(t *testing.T) {
	tuner := &fakeTuner{}
	ksm, err := controller.NewKSM(tuner)
	require.NoError(t, err)

	host := hostEntity(t, appliedState())
	host.SetControl("ksm_sleep_millisecs", "80")
	host.SetControl("ksm_pages_to_scan", 64.0)
	host.SetControl("ksm_run", "not-a-number")

	ksm.Process(context.Background(), host, nil)
	require.Len(t, tuner.calls, 1)
	assert.Equal(t, map[string]int64{"sleep_millisecs": 80}, tuner.calls[0],
		"coerced values diff against applied state; junk directives are dropped")
}

func TestKSMUnknownAppliedStateTriggersWrite(t *testing.T) {
	tuner := &fakeTuner{}
	ksm, err := controller.NewKSM(tuner)
	require.NoError(t, err)

	// The read-back collector reported nothing for merge_across_nodes:
	// with no known applied value the directive must be written.
	applied := appliedState()
	applied["ksm_merge_across_nodes"] = nil
	host := hostEntity(t, applied)
	host.SetControl("ksm_merge_across_nodes", int64(0))

	ksm.Process(context.Background(), host, nil)
	require.Len(t, tuner.calls, 1)
	assert.Equal(t, map[string]int64{"merge_across_nodes": 0}, tuner.calls[0])
}

func TestKSMTuneErrorDoesNotPanic(t *testing.T) {
	tuner := &fakeTuner{tuneErr: assert.AnError}
	ksm, err := controller.NewKSM(tuner)
	require.NoError(t, err)

	host := hostEntity(t, appliedState())
	host.SetControl("ksm_run", int64(0))

	assert.NotPanics(t, func() { ksm.Process(context.Background(), host, nil) })
}

func TestNewKSMRequiresTuner(t *testing.T) {
	_, err := controller.NewKSM(nil)
	require.Error(t, err)
}
