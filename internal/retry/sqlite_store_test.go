package retry

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashcli/internal/config"
	apperrors "dashcli/internal/errors"
)

func configRetry(max int, base time.Duration, factor float64, maxDelay time.Duration) config.RetryConfig {
	return config.RetryConfig{
		MaxRetries:            max,
		BaseDelay:             base,
		BackoffFactor:         factor,
		UseExponentialBackoff: true,
		MaxDelay:              maxDelay,
	}
}

func newTestSQLiteStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "retry.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, path := newTestSQLiteStore(t)

	_, found, err := store.Get(ctx, "load:sales")
	require.NoError(t, err)
	assert.False(t, found)

	want := State{RetryCount: 2, LastRetryAt: 1736078400000}
	require.NoError(t, store.Set(ctx, "load:sales", want))

	got, found, err := store.Get(ctx, "load:sales")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)

	// Upsert replaces the record
	require.NoError(t, store.Set(ctx, "load:sales", State{RetryCount: 3, LastRetryAt: 1}))
	got, _, err = store.Get(ctx, "load:sales")
	require.NoError(t, err)
	assert.Equal(t, 3, got.RetryCount)

	// State survives reopening the database
	require.NoError(t, store.Close())
	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, found, err = reopened.Get(ctx, "load:sales")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, got.RetryCount)

	require.NoError(t, reopened.Remove(ctx, "load:sales"))
	_, found, err = reopened.Get(ctx, "load:sales")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStoreCorruptRecord(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestSQLiteStore(t)

	_, err := store.db.Exec(`INSERT INTO retry_state (key, value, updated_at) VALUES (?, ?, ?)`,
		"broken", "{not json", time.Now())
	require.NoError(t, err)

	_, _, err = store.Get(ctx, "broken")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage))

	// The manager treats the corrupt record as unavailable storage
	m := NewManager("broken", store, DefaultConfig(), nil)
	assert.Zero(t, m.RetryCount(ctx))
	assert.Equal(t, 1, m.IncrementRetry(ctx))
	assert.Equal(t, 1, m.RetryCount(ctx), "the increment overwrote the corrupt record")
}

func TestManagerWithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestSQLiteStore(t)

	first := NewManager("load:trades", store, DefaultConfig(), nil)
	first.IncrementRetry(ctx)
	first.IncrementRetry(ctx)

	second := NewManager("load:trades", store, DefaultConfig(), nil)
	assert.Equal(t, 2, second.RetryCount(ctx))
	assert.Equal(t, 4*time.Second, second.RetryDelay(ctx))

	second.Reset(ctx)
	assert.Zero(t, first.RetryCount(ctx))
}

func TestSQLiteStoreInMemory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", State{RetryCount: 1}))
	st, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, st.RetryCount)
}
