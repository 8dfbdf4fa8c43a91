package telemetry_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/virtmem/memctl/internal/monitor"
	"github.com/virtmem/memctl/internal/telemetry"

	_ "github.com/mattn/go-sqlite3"
)

func TestDisabledServiceIsNoop(t *testing.T) {
	rec, err := telemetry.NewService(telemetry.Config{Enabled: false})
	require.NoError(t, err)
	defer rec.Close()

	assert.NoError(t, rec.Record(context.Background(), "host", monitor.Sample{"x": int64(1)}))
}

func TestRecordPersistsSample(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "telemetry.db")
	rec, err := telemetry.NewService(telemetry.Config{Enabled: true, DBPath: dbPath})
	require.NoError(t, err)

	sample := monitor.Sample{
		"mem_free": int64(4096),
		"swap_in":  nil,      // optional field nobody produced
		"name":     "host-1", // non-numeric, skipped
		"ksm_run":  int64(1),
	}
	require.NoError(t, rec.Record(context.Background(), "host", sample))
	require.NoError(t, rec.Close())

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var rows int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM samples WHERE monitor = 'host'`).Scan(&rows))
	assert.Equal(t, 3, rows, "numeric and explicit-nil fields are stored")

	var value sql.NullFloat64
	require.NoError(t, db.QueryRow(
		`SELECT value FROM samples WHERE field = 'mem_free'`).Scan(&value))
	require.True(t, value.Valid)
	assert.InDelta(t, 4096, value.Float64, 1e-9)

	require.NoError(t, db.QueryRow(
		`SELECT value FROM samples WHERE field = 'swap_in'`).Scan(&value))
	assert.False(t, value.Valid, "nil fields are stored as NULL")
}

func TestRecordNilSample(t *testing.T) {
	rec, err := telemetry.NewService(telemetry.Config{
		Enabled: true,
		DBPath:  filepath.Join(t.TempDir(), "telemetry.db"),
	})
	require.NoError(t, err)
	defer rec.Close()

	require.Error(t, rec.Record(context.Background(), "host", nil))
}

func TestRecordCancelledContext(t *testing.T) {
	rec, err := telemetry.NewService(telemetry.Config{
		Enabled: true,
		DBPath:  filepath.Join(t.TempDir(), "telemetry.db"),
	})
	require.NoError(t, err)
	defer rec.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	require.Error(t, rec.Record(ctx, "host", monitor.Sample{"x": int64(1)}))
}

func TestEnabledConfigRequiresDBPath(t *testing.T) {
	_, err := telemetry.NewService(telemetry.Config{Enabled: true})
	require.Error(t, err)
}
