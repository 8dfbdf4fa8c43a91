package collector

import (
	"strings"

	"github.com/virtmem/memctl/internal/errors"
	"github.com/virtmem/memctl/internal/logger"
)

// Factory constructs a collector from its context. A fatal construction
// problem is reported by returning an error; there is no partial success.
type Factory func(ctx *Context) (Collector, error)

var registry = make(map[string]Factory)

// Register adds a named collector factory to the registry. Names are
// matched case-insensitively at resolution time.
func Register(name string, factory Factory) error {
	errFactory := errors.New()

	key := strings.ToLower(name)
	if _, found := registry[key]; found {
		return errFactory.WithData(ErrDuplicateName, name)
	}

	registry[key] = factory

	return nil
}

// MustRegister registers a factory and panics on a duplicate name. Meant
// for package init of built-in collectors, where a duplicate is a
// programming error.
func MustRegister(name string, factory Factory) {
	if err := Register(name, factory); err != nil {
		panic(err)
	}
}

// New resolves a comma-delimited, ordered list of collector names into
// live instances. The declared order is preserved: it is both the
// execution order and the merge priority during a collection cycle.
// section, when non-nil, supplies the collector-specific config section
// injected into each construction context.
//
// Resolution is all-or-nothing. An unknown name or a fatally failing
// construction yields zero collectors and an error; the caller must treat
// the monitor as having no usable collectors rather than continue with a
// partial set.
func New(list string, ctx *Context, section func(name string) map[string]string) ([]Collector, error) {
	errFactory := errors.New()

	var collectors []Collector
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		factory, found := registry[strings.ToLower(name)]
		if !found {
			logger.Warn().Str("collector", name).Msg("Unknown collector")
			return nil, errFactory.WithData(ErrUnknownCollector, name)
		}

		cctx := *ctx
		if section != nil {
			cctx.Config = section(name)
		}

		c, err := factory(&cctx)
		if err != nil {
			logger.Error().Err(err).Str("collector", name).Msg("Fatal collector error")
			return nil, errFactory.Wrap(ErrConstructFailed, err)
		}

		collectors = append(collectors, c)
	}

	return collectors, nil
}
