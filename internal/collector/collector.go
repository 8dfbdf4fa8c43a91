package collector

import "github.com/virtmem/memctl/internal/hypervisor"

// Collector is a plugin that returns a fragment of named measurements
// each time Collect is called. Context is given by the properties of the
// owning monitor, passed in at construction.
//
// A collector that fails a single cycle but remains usable returns a
// recoverable *Error; one that can never produce data again returns a
// fatal *Error. Any field listed by MandatoryFields must be present in
// every successful fragment; fields the collector may or may not produce
// belong in OptionalFields.
type Collector interface {
	Collect() (map[string]any, error)
	MandatoryFields() []string
	OptionalFields() []string
}

// Context carries the immutable construction inputs for a collector: the
// owning monitor's identity and base properties, the collector-specific
// raw config section, and the hypervisor handle for guest collectors.
type Context struct {
	MonitorName string
	Properties  map[string]any
	Config      map[string]string
	Hypervisor  hypervisor.Interface
}

// Property returns a base property of the owning monitor, or nil.
func (c *Context) Property(name string) any {
	if c.Properties == nil {
		return nil
	}

	return c.Properties[name]
}

// ConfigValue returns a value from the collector's config section, or the
// given default when the section does not define the key.
func (c *Context) ConfigValue(key, fallback string) string {
	if v, ok := c.Config[key]; ok {
		return v
	}

	return fallback
}
