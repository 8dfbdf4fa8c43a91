package monitor

import "github.com/spf13/cast"

// Entity is the read-only snapshot a monitor hands to the policy
// evaluator. Properties, variables and the history buffer are copied at
// interrogation time and unaffected by later collection cycles.
//
// The controls map is the one mutable part: the policy evaluator attaches
// its desired-value directives there, and controllers read them back via
// Control. An entity is owned by a single policy cycle and is not safe
// for concurrent use.
type Entity struct {
	name       string
	properties map[string]any
	variables  map[string]any
	statistics []Sample
	controls   map[string]any

	// Newest sample's fields, filled by finalize for direct access.
	fields Sample
}

func newEntity(name string) *Entity {
	return &Entity{
		name:       name,
		properties: make(map[string]any),
		variables:  make(map[string]any),
		controls:   make(map[string]any),
	}
}

// finalize computes the derived view once all statistics are set.
func (e *Entity) finalize() {
	if len(e.statistics) > 0 {
		e.fields = e.statistics[len(e.statistics)-1]
	} else {
		e.fields = Sample{}
	}
}

func (e *Entity) Name() string {
	return e.name
}

// Prop returns a monitor property, or nil.
func (e *Entity) Prop(name string) any {
	return e.properties[name]
}

// Var returns a policy variable, or nil.
func (e *Entity) Var(name string) any {
	return e.variables[name]
}

// SetVar stores a policy variable on the snapshot. Feed the result back
// with Monitor.UpdateVariables to persist it for the next cycle.
func (e *Entity) SetVar(name string, value any) {
	e.variables[name] = value
}

// Variables returns a copy of the snapshot's variables.
func (e *Entity) Variables() map[string]any {
	vars := make(map[string]any, len(e.variables))
	for k, v := range e.variables {
		vars[k] = v
	}

	return vars
}

// Stat returns the named field from the newest sample, or nil when the
// field is absent or was recorded as an explicit nil.
func (e *Entity) Stat(name string) any {
	return e.fields[name]
}

// StatAvg returns the mean of the named field across the history buffer.
// Samples where the field is nil or non-numeric are skipped; the average
// of nothing is zero.
func (e *Entity) StatAvg(name string) float64 {
	var sum float64
	var n int
	for _, s := range e.statistics {
		v, ok := s[name]
		if !ok || v == nil {
			continue
		}
		f, err := cast.ToFloat64E(v)
		if err != nil {
			continue
		}
		sum += f
		n++
	}

	if n == 0 {
		return 0
	}

	return sum / float64(n)
}

// Len returns the number of samples in the snapshot's history buffer.
func (e *Entity) Len() int {
	return len(e.statistics)
}

// History returns the snapshot's samples, oldest first. Callers must
// treat the samples as read-only.
func (e *Entity) History() []Sample {
	return e.statistics
}

// Control returns a desired-value directive set by the policy evaluator,
// or nil when the policy issued none for this name this cycle.
func (e *Entity) Control(name string) any {
	return e.controls[name]
}

// SetControl attaches a desired-value directive for a controller.
func (e *Entity) SetControl(name string, value any) {
	e.controls[name] = value
}

// Controls returns the directive map itself; controllers only read it.
func (e *Entity) Controls() map[string]any {
	return e.controls
}
