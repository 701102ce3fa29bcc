package retry

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "dashcli/internal/errors"
	"dashcli/internal/shared/testutil"
)

// failingStore simulates an unavailable persistence layer
type failingStore struct {
	calls int
}

func (s *failingStore) Get(context.Context, string) (State, bool, error) {
	s.calls++
	return State{}, false, errors.New("store offline")
}

func (s *failingStore) Set(context.Context, string, State) error {
	s.calls++
	return errors.New("store offline")
}

func (s *failingStore) Remove(context.Context, string) error {
	s.calls++
	return errors.New("store offline")
}

func TestManagerExhaustsAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	m := NewManager("load:sales", NewMemoryStore(), DefaultConfig(), nil)

	assert.True(t, m.CanRetry(ctx))
	for i := 1; i <= 3; i++ {
		assert.Equal(t, i, m.IncrementRetry(ctx))
	}
	assert.False(t, m.CanRetry(ctx))
	assert.Equal(t, 3, m.RetryCount(ctx))

	m.Reset(ctx)
	assert.True(t, m.CanRetry(ctx))
	assert.Zero(t, m.RetryCount(ctx))
}

func TestManagerRetryDelay(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.MaxRetries = 10
	m := NewManager("k", nil, cfg, nil)

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond,
		30000 * time.Millisecond,
	}
	for i, d := range want {
		assert.Equal(t, d, m.RetryDelay(ctx), "retry %d", i)
		m.IncrementRetry(ctx)
	}

	cfg.UseExponentialBackoff = false
	flat := NewManager("flat", nil, cfg, nil)
	flat.IncrementRetry(ctx)
	flat.IncrementRetry(ctx)
	assert.Equal(t, time.Second, flat.RetryDelay(ctx))
}

func TestManagerPersistsTimestamp(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager("k", store, DefaultConfig(), nil)
	fixed := time.Date(2025, 1, 5, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	m.IncrementRetry(ctx)

	st, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, State{RetryCount: 1, LastRetryAt: fixed.UnixMilli()}, st)

	m.Reset(ctx)
	_, found, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "reset removes the record")
}

func TestManagerSharesStateThroughStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	NewManager("k", store, DefaultConfig(), nil).IncrementRetry(ctx)
	assert.Equal(t, 1, NewManager("k", store, DefaultConfig(), nil).RetryCount(ctx))
	assert.Zero(t, NewManager("other", store, DefaultConfig(), nil).RetryCount(ctx))
}

func TestManagerDegradesWhenStoreFails(t *testing.T) {
	ctx := context.Background()
	logger, logs := testutil.NewTestLogger(t)
	store := &failingStore{}
	m := NewManager("k", store, DefaultConfig(), logger)

	assert.NotPanics(t, func() {
		assert.Equal(t, 1, m.IncrementRetry(ctx))
		assert.Equal(t, 2, m.IncrementRetry(ctx))
		assert.Equal(t, 2, m.RetryCount(ctx))
		assert.True(t, m.CanRetry(ctx))
		m.Reset(ctx)
	})
	assert.Zero(t, m.RetryCount(ctx))
	assert.Positive(t, store.calls)
	testutil.AssertLogContains(t, logs, slog.LevelWarn, "retry store unavailable")
	testutil.AssertLogAttr(t, logs, "component", "retry")
	testutil.AssertLogAttr(t, logs, "key", "k")
}

func TestRetry(t *testing.T) {
	transient := apperrors.NewTransientLoadError("connection reset", nil)
	permanent := apperrors.NewUnparseableError("bad json", nil)

	t.Run("success resets state", func(t *testing.T) {
		ctx := context.Background()
		m := NewManager("k", nil, DefaultConfig(), nil)
		m.IncrementRetry(ctx)

		got, err := Retry(ctx, m, func(context.Context) (string, error) { return "ok", nil })
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Zero(t, m.RetryCount(ctx))
	})

	t.Run("transient failure increments", func(t *testing.T) {
		ctx := context.Background()
		m := NewManager("k", nil, DefaultConfig(), nil)

		_, err := Retry(ctx, m, func(context.Context) (int, error) { return 0, transient })
		assert.ErrorIs(t, err, transient)
		assert.Equal(t, 1, m.RetryCount(ctx))
	})

	t.Run("wrapped transient failure increments", func(t *testing.T) {
		ctx := context.Background()
		m := NewManager("k", nil, DefaultConfig(), nil)

		_, err := Retry(ctx, m, func(context.Context) (int, error) {
			return 0, apperrors.NewAppError(apperrors.ErrTypeStorage, "outer", transient)
		})
		assert.Error(t, err)
		assert.Equal(t, 1, m.RetryCount(ctx))
	})

	t.Run("other errors propagate untouched", func(t *testing.T) {
		ctx := context.Background()
		m := NewManager("k", nil, DefaultConfig(), nil)

		_, err := Retry(ctx, m, func(context.Context) (int, error) { return 0, permanent })
		assert.Same(t, permanent, err)
		assert.Zero(t, m.RetryCount(ctx))
	})

	t.Run("exhausted manager does not call op", func(t *testing.T) {
		ctx := context.Background()
		m := NewManager("load:sales", nil, DefaultConfig(), nil)
		calls := 0
		op := func(context.Context) (int, error) {
			calls++
			return 0, transient
		}

		for i := 0; i < 3; i++ {
			_, err := Retry(ctx, m, op)
			assert.ErrorIs(t, err, transient)
		}
		_, err := Retry(ctx, m, op)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeRetriesExhausted))
		assert.Contains(t, err.Error(), "load:sales")
		assert.Equal(t, 3, calls)
	})

	t.Run("delay on failure honours context", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DelayOnFailure = true
		cfg.BaseDelay = time.Hour
		m := NewManager("k", nil, cfg, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := Retry(ctx, m, func(context.Context) (int, error) { return 0, transient })
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Minute)
		assert.Equal(t, 1, m.RetryCount(context.Background()))
	})

	t.Run("delay on failure waits", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DelayOnFailure = true
		cfg.BaseDelay = 5 * time.Millisecond
		cfg.UseExponentialBackoff = false
		m := NewManager("k", nil, cfg, nil)

		start := time.Now()
		_, err := Retry(context.Background(), m, func(context.Context) (int, error) { return 0, transient })
		assert.ErrorIs(t, err, transient)
		assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	})
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(configRetry(5, 250*time.Millisecond, 3, 0))
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 3.0, cfg.BackoffFactor)
	assert.Equal(t, 30*time.Second, cfg.MaxDelay, "zero max delay falls back to the cap")
}
