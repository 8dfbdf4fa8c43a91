package collector_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtmem/memctl/internal/collector"
)

type stubCollector struct {
	name string
	ctx  *collector.Context
}

func (s *stubCollector) Collect() (map[string]any, error) { return map[string]any{}, nil }
func (s *stubCollector) MandatoryFields() []string        { return nil }
func (s *stubCollector) OptionalFields() []string         { return nil }

func stubFactory(name string) collector.Factory {
	return func(ctx *collector.Context) (collector.Collector, error) {
		return &stubCollector{name: name, ctx: ctx}, nil
	}
}

func TestNewResolvesInDeclaredOrder(t *testing.T) {
	require.NoError(t, collector.Register("orderFirst", stubFactory("orderFirst")))
	require.NoError(t, collector.Register("orderSecond", stubFactory("orderSecond")))

	collectors, err := collector.New("orderFirst, orderSecond", &collector.Context{}, nil)
	require.NoError(t, err)
	require.Len(t, collectors, 2)

	assert.Equal(t, "orderFirst", collectors[0].(*stubCollector).name)
	assert.Equal(t, "orderSecond", collectors[1].(*stubCollector).name)
}

func TestNewUnknownNameAbortsWholeList(t *testing.T) {
	require.NoError(t, collector.Register("knownOne", stubFactory("knownOne")))

	collectors, err := collector.New("knownOne,NoSuchCollector", &collector.Context{}, nil)
	require.Error(t, err)
	assert.Nil(t, collectors, "an unresolvable name yields zero collectors, not a partial set")
}

func TestNewFatalConstructionAbortsWholeList(t *testing.T) {
	require.NoError(t, collector.Register("goodOne", stubFactory("goodOne")))
	require.NoError(t, collector.Register("badOne",
		func(_ *collector.Context) (collector.Collector, error) {
			return nil, collector.Fatalf("backing resource missing")
		}))

	collectors, err := collector.New("goodOne,badOne", &collector.Context{}, nil)
	require.Error(t, err)
	assert.Nil(t, collectors)
}

func TestNewInjectsCollectorSections(t *testing.T) {
	require.NoError(t, collector.Register("sectioned", stubFactory("sectioned")))

	sections := map[string]map[string]string{
		"sectioned": {"root": "/tmp/somewhere"},
	}
	collectors, err := collector.New("sectioned", &collector.Context{},
		func(name string) map[string]string { return sections[name] })
	require.NoError(t, err)
	require.Len(t, collectors, 1)

	ctx := collectors[0].(*stubCollector).ctx
	assert.Equal(t, "/tmp/somewhere", ctx.ConfigValue("root", ""))
	assert.Equal(t, "fallback", ctx.ConfigValue("missing", "fallback"))
}

func TestNewSkipsEmptyListEntries(t *testing.T) {
	require.NoError(t, collector.Register("lonely", stubFactory("lonely")))

	collectors, err := collector.New(" lonely, ,", &collector.Context{}, nil)
	require.NoError(t, err)
	assert.Len(t, collectors, 1)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	require.NoError(t, collector.Register("dupName", stubFactory("dupName")))
	err := collector.Register("DupName", stubFactory("DupName"))
	require.Error(t, err, "names are matched case-insensitively")
}

func TestErrorSeverity(t *testing.T) {
	recoverable := collector.Recoverablef("cycle %d lost", 3)
	fatal := collector.WrapFatal("device gone", assert.AnError)

	assert.True(t, collector.IsRecoverable(recoverable))
	assert.False(t, collector.IsFatal(recoverable))
	assert.True(t, collector.IsFatal(fatal))
	assert.False(t, collector.IsRecoverable(fatal))
	assert.False(t, collector.IsFatal(assert.AnError))
	assert.Contains(t, fatal.Error(), "device gone")
}
