package monitor

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/virtmem/memctl/internal/collector"
	"github.com/virtmem/memctl/internal/logger"
)

// Sample is one cycle's merged measurement set. A field explicitly set to
// nil is an optional field that no collector produced this cycle. Samples
// are never mutated after they are appended to a monitor's history, so
// snapshots may share them across goroutines.
type Sample map[string]any

// Readiness reports whether the monitor's last cycle produced a usable
// sample.
type Readiness int

const (
	Unknown Readiness = iota
	Ready
	NotReady
)

func (r Readiness) String() string {
	switch r {
	case Ready:
		return "ready"
	case NotReady:
		return "not ready"
	default:
		return "unknown"
	}
}

// Sink receives every completed sample of a monitor, e.g. for plotting or
// telemetry. Sinks run on the collection goroutine after the sample is
// already appended; a slow sink delays the next cycle, never corrupts
// state.
type Sink func(monitor string, fields []string, s Sample)

// Config carries the construction inputs for a Monitor.
type Config struct {
	Name          string
	Properties    map[string]any
	Collectors    []collector.Collector
	HistoryLength int
	// Running is the process-wide enable toggle consulted by ShouldRun.
	// May be nil, in which case only the termination flag applies.
	Running *atomic.Bool
	Sinks   []Sink
}

// Monitor owns an ordered collector set and a bounded history of merged
// samples. One collection cycle runs at a time; snapshot readers and the
// cycle writer share a single guard scoped to history, properties and
// variables. Collector calls may block on I/O and therefore always run
// outside the guard.
type Monitor struct {
	name          string
	collectors    []collector.Collector
	historyLength int
	running       *atomic.Bool
	sinks         []Sink

	// Guards history, properties, variables and the readiness state.
	mu         sync.Mutex
	properties map[string]any
	variables  map[string]any
	history    []Sample
	ready      Readiness

	// Memoized on the first cycle; read-only afterwards.
	mandatory  map[string]struct{}
	optional   map[string]struct{}
	fieldsInit bool
	fieldNames []string

	terminated atomic.Bool
}

func New(cfg Config) *Monitor {
	props := make(map[string]any, len(cfg.Properties))
	for k, v := range cfg.Properties {
		props[k] = v
	}

	historyLength := cfg.HistoryLength
	if historyLength <= 0 {
		historyLength = 1
	}

	return &Monitor{
		name:          cfg.Name,
		collectors:    cfg.Collectors,
		historyLength: historyLength,
		running:       cfg.Running,
		sinks:         cfg.Sinks,
		properties:    props,
		variables:     make(map[string]any),
	}
}

func (m *Monitor) Name() string {
	return m.name
}

// Collect runs one collection cycle: every collector in declared order,
// fragments merged under first-writer-wins semantics, the result
// validated against the mandatory field set and appended to the bounded
// history. Returns the finished sample, or nil when the cycle produced
// none.
func (m *Monitor) Collect() Sample {
	m.initFields()

	data := make(Sample)
	for _, c := range m.collectors {
		collected, err := c.Collect()

		switch {
		case err == nil:
			if collected == nil {
				logger.Debug().Str("monitor", m.name).Msg("Collector returned no data")
				continue
			}
		case collector.IsFatal(err):
			m.setNotReady("fatal collector error: " + err.Error())
			m.Terminate()
			return nil
		case collector.IsRecoverable(err):
			m.dispCollectionError("collection error: " + err.Error())
			continue
		default:
			// Uncategorized failures never propagate upward; the
			// collector simply contributed nothing this cycle.
			logger.Error().Err(err).Str("monitor", m.name).Msg("Unexpected collection error")
			continue
		}

		// First-writer-wins: once a field is present, later collectors
		// cannot overwrite it, and an explicitly nil first write is as
		// sticky as any other.
		for key, val := range collected {
			if _, seen := data[key]; !seen {
				data[key] = val
			}
		}
	}

	if missing := m.missingFields(data); len(missing) > 0 {
		m.setNotReady("incomplete data: missing " + joinFields(missing))
		return nil
	}

	// An optional field no collector produced is recorded as an explicit
	// nil, distinguishing "ran but produced nothing" from "never defined".
	for field := range m.optional {
		if _, ok := data[field]; !ok {
			data[field] = nil
		}
	}

	m.mu.Lock()
	m.history = append(m.history, data)
	for len(m.history) > m.historyLength {
		m.history = m.history[1:]
	}
	m.setReadyLocked()
	m.mu.Unlock()

	for _, sink := range m.sinks {
		sink(m.name, m.fieldNames, data)
	}

	return data
}

// initFields memoizes the mandatory and optional field sets on the first
// cycle. Mandatory wins any overlap: a field one collector guarantees is
// dropped from the optional set even if another collector declared it
// optional, which can mask a misdeclaration, hence the warning.
func (m *Monitor) initFields() {
	if m.fieldsInit {
		return
	}

	m.mandatory = make(map[string]struct{})
	m.optional = make(map[string]struct{})
	for _, c := range m.collectors {
		for _, f := range c.MandatoryFields() {
			m.mandatory[f] = struct{}{}
		}
		for _, f := range c.OptionalFields() {
			m.optional[f] = struct{}{}
		}
	}

	for f := range m.optional {
		if _, ok := m.mandatory[f]; ok {
			logger.Warn().Str("monitor", m.name).Str("field", f).
				Msg("Field declared both mandatory and optional, treating as mandatory")
			delete(m.optional, f)
		}
	}

	m.fieldNames = make([]string, 0, len(m.mandatory)+len(m.optional))
	for f := range m.mandatory {
		m.fieldNames = append(m.fieldNames, f)
	}
	for f := range m.optional {
		m.fieldNames = append(m.fieldNames, f)
	}
	sortFields(m.fieldNames)

	logger.Debug().Str("monitor", m.name).
		Strs("fields", m.fieldNames).
		Msg("Monitor field contract computed")

	m.fieldsInit = true
}

func (m *Monitor) missingFields(data Sample) []string {
	var missing []string
	for field := range m.mandatory {
		if _, ok := data[field]; !ok {
			missing = append(missing, field)
		}
	}
	sortFields(missing)

	return missing
}

// Interrogate takes a snapshot of the monitor for policy processing.
// Returns nil unless the monitor is Ready. The returned entity holds
// copies of the properties, variables and history buffer; the samples
// themselves are shared, which is safe because they are immutable once
// appended.
func (m *Monitor) Interrogate() *Entity {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready != Ready {
		return nil
	}

	e := newEntity(m.name)
	for k, v := range m.properties {
		e.properties[k] = v
	}
	for k, v := range m.variables {
		e.variables[k] = v
	}
	e.statistics = make([]Sample, len(m.history))
	copy(e.statistics, m.history)

	e.finalize()

	return e
}

// UpdateVariables merges externally supplied name/value pairs into the
// monitor's variable map, last writer wins per key. The policy evaluator
// calls this between cycles to persist cross-cycle state such as
// hysteresis counters.
func (m *Monitor) UpdateVariables(vars map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range vars {
		m.variables[k] = v
	}
}

// Terminate requests a cooperative shutdown. An in-flight cycle is not
// interrupted; the owning scheduler stops invoking Collect once ShouldRun
// reports false.
func (m *Monitor) Terminate() {
	m.terminated.Store(true)
}

func (m *Monitor) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready == Ready
}

// Readiness returns the three-valued readiness state.
func (m *Monitor) Readiness() Readiness {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ready
}

// ShouldRun reports whether the owning scheduler should keep invoking
// collection cycles.
func (m *Monitor) ShouldRun() bool {
	if m.terminated.Load() {
		return false
	}

	return m.running == nil || m.running.Load()
}

func (m *Monitor) setReadyLocked() {
	if m.ready != Ready {
		logger.Info().Str("monitor", m.name).Msg("Monitor is ready")
	}
	m.ready = Ready
}

func (m *Monitor) setNotReady(message string) {
	m.mu.Lock()
	m.ready = NotReady
	m.mu.Unlock()

	m.dispCollectionError(message)
}

// dispCollectionError logs at warn while the monitor is believed healthy
// and drops to debug once it is already NotReady, so a persistent fault
// does not flood the log.
func (m *Monitor) dispCollectionError(message string) {
	if m.Readiness() == NotReady {
		logger.Debug().Str("monitor", m.name).Msg(message)
	} else {
		logger.Warn().Str("monitor", m.name).Msg(message)
	}
}

func sortFields(fields []string) {
	sort.Strings(fields)
}

func joinFields(fields []string) string {
	return strings.Join(fields, ", ")
}
