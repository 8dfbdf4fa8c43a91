package plotter_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtmem/memctl/internal/monitor"
	"github.com/virtmem/memctl/internal/plotter"
)

func TestPlotWritesHeaderAndRows(t *testing.T) {
	dir := t.TempDir()

	p, err := plotter.New(dir, "host")
	require.NoError(t, err)
	defer p.Close()

	fields := []string{"mem_free", "swap_in"}
	require.NoError(t, p.Plot(fields, monitor.Sample{"mem_free": int64(4096), "swap_in": nil}))
	require.NoError(t, p.Plot(fields, monitor.Sample{"mem_free": int64(2048), "swap_in": int64(7)}))

	data, err := os.ReadFile(filepath.Join(dir, "host.dat"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# time\tmem_free\tswap_in", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "\t4096\t-"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "\t2048\t7"), lines[2])
}

func TestPlotAppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	fields := []string{"x"}

	p, err := plotter.New(dir, "host")
	require.NoError(t, err)
	require.NoError(t, p.Plot(fields, monitor.Sample{"x": int64(1)}))
	require.NoError(t, p.Close())

	p, err = plotter.New(dir, "host")
	require.NoError(t, err)
	require.NoError(t, p.Plot(fields, monitor.Sample{"x": int64(2)}))
	require.NoError(t, p.Close())

	data, err := os.ReadFile(filepath.Join(dir, "host.dat"))
	require.NoError(t, err)
	assert.Equal(t, 4, len(strings.Split(strings.TrimSpace(string(data)), "\n")))
}

func TestNewCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plots", "nested")

	p, err := plotter.New(dir, "guest-1")
	require.NoError(t, err)
	defer p.Close()

	_, err = os.Stat(filepath.Join(dir, "guest-1.dat"))
	assert.NoError(t, err)
}
