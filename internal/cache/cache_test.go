package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/bambu-core/internal/infrastructure/database"
	"github.com/nerrad567/bambu-core/migrations"
)

func newSQLite(t *testing.T) *SQLite {
	t.Helper()

	db, err := database.Open(database.Config{Path: database.MemoryPath, BusyTimeout: 1})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	require.NoError(t, db.Migrate(context.Background(), migrations.FS))
	return NewSQLite(db)
}

func newMemory(t *testing.T) *Memory {
	t.Helper()

	m, err := NewMemory(0)
	require.NoError(t, err)
	return m
}

// exerciseBackend runs the behaviour every backend must share.
func exerciseBackend(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Set(ctx, "printer-status:latest-status", []byte(`{"state":"IDLE"}`)))
	got, err := c.Get(ctx, "printer-status:latest-status")
	require.NoError(t, err)
	assert.Equal(t, `{"state":"IDLE"}`, string(got))

	require.NoError(t, c.Set(ctx, "printer-status:latest-status", []byte(`{"state":"RUNNING"}`)))
	got, err = c.Get(ctx, "printer-status:latest-status")
	require.NoError(t, err)
	assert.Equal(t, `{"state":"RUNNING"}`, string(got))

	require.NoError(t, c.Delete(ctx, "printer-status:latest-status"))
	require.NoError(t, c.Delete(ctx, "printer-status:latest-status"))
	_, err = c.Get(ctx, "printer-status:latest-status")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory(t *testing.T) {
	exerciseBackend(t, newMemory(t))
}

func TestMemory_Eviction(t *testing.T) {
	m, err := NewMemory(2)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, "b", []byte("2")))
	require.NoError(t, m.Set(ctx, "c", []byte("3")))

	assert.Equal(t, 2, m.Len())
	_, err = m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	m := newMemory(t)
	ctx := context.Background()
	value := []byte("abc")

	require.NoError(t, m.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLite(t *testing.T) {
	exerciseBackend(t, newSQLite(t))
}

type entry struct {
	State string `json:"state"`
	Layer int    `json:"layer"`
}

func TestJSON(t *testing.T) {
	ctx := context.Background()
	typed := NewJSON[entry](newMemory(t))

	_, err := typed.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, typed.Set(ctx, "k", &entry{State: "RUNNING", Layer: 12}))
	got, err := typed.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, entry{State: "RUNNING", Layer: 12}, *got)

	require.NoError(t, typed.Set(ctx, "k", nil))
	_, err = typed.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJSON_Corrupt(t *testing.T) {
	ctx := context.Background()
	mem := newMemory(t)
	require.NoError(t, mem.Set(ctx, "k", []byte("{not json")))

	_, err := NewJSON[entry](mem).Get(ctx, "k")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
