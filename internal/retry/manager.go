package retry

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"dashcli/internal/config"
	apperrors "dashcli/internal/errors"
	"dashcli/internal/infrastructure"
)

// Config controls the retry bound and the backoff schedule.
type Config struct {
	MaxRetries            int
	BaseDelay             time.Duration
	BackoffFactor         float64
	UseExponentialBackoff bool
	MaxDelay              time.Duration
	// DelayOnFailure makes Retry wait RetryDelay before returning a
	// transient failure.
	DelayOnFailure bool
}

// DefaultConfig allows 3 retries starting at 1s and doubling up to 30s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:            3,
		BaseDelay:             time.Second,
		BackoffFactor:         2,
		UseExponentialBackoff: true,
		MaxDelay:              30 * time.Second,
	}
}

// ConfigFrom converts the application retry section.
func ConfigFrom(cfg config.RetryConfig) Config {
	c := Config{
		MaxRetries:            cfg.MaxRetries,
		BaseDelay:             cfg.BaseDelay,
		BackoffFactor:         cfg.BackoffFactor,
		UseExponentialBackoff: cfg.UseExponentialBackoff,
		MaxDelay:              cfg.MaxDelay,
		DelayOnFailure:        cfg.DelayOnFailure,
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultConfig().MaxDelay
	}
	return c
}

// Manager is the retry state machine of one operation key. A store failure
// never fails a call: the manager logs a warning and continues from its
// in-memory copy of the state.
type Manager struct {
	key    string
	cfg    Config
	store  Store
	logger *slog.Logger

	mu     sync.Mutex
	shadow State
	now    func() time.Time
}

// NewManager creates a manager for key. A nil store keeps state in memory.
func NewManager(key string, store Store, cfg Config, logger *slog.Logger) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Manager{
		key:    key,
		cfg:    cfg,
		store:  store,
		logger: infrastructure.ComponentLogger(logger, "retry").With("key", key),
		now:    time.Now,
	}
}

// Key returns the operation key the manager tracks.
func (m *Manager) Key() string { return m.key }

// CanRetry reports whether another attempt is allowed.
func (m *Manager) CanRetry(ctx context.Context) bool {
	return m.RetryCount(ctx) < m.cfg.MaxRetries
}

// RetryCount returns the number of recorded failures.
func (m *Manager) RetryCount(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx).RetryCount
}

// IncrementRetry records one more failure and returns the new count.
func (m *Manager) IncrementRetry(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.load(ctx)
	st.RetryCount++
	st.LastRetryAt = m.now().UnixMilli()
	m.save(ctx, st)
	return st.RetryCount
}

// RetryDelay is BaseDelay, or BaseDelay*BackoffFactor^RetryCount with
// exponential backoff, never more than MaxDelay.
func (m *Manager) RetryDelay(ctx context.Context) time.Duration {
	if !m.cfg.UseExponentialBackoff {
		return m.cfg.BaseDelay
	}
	n := m.RetryCount(ctx)
	delay := float64(m.cfg.BaseDelay) * math.Pow(m.cfg.BackoffFactor, float64(n))
	if m.cfg.MaxDelay > 0 && delay > float64(m.cfg.MaxDelay) {
		return m.cfg.MaxDelay
	}
	return time.Duration(delay)
}

// Reset deletes the persisted record.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shadow = State{}
	if err := m.store.Remove(ctx, m.key); err != nil {
		m.logger.WarnContext(ctx, "retry store unavailable, reset kept in memory",
			slog.String("error", err.Error()))
	}
}

// load must be called with mu held.
func (m *Manager) load(ctx context.Context) State {
	st, found, err := m.store.Get(ctx, m.key)
	if err != nil {
		m.logger.WarnContext(ctx, "retry store unavailable, using in-memory state",
			slog.String("error", err.Error()),
			slog.Int("retry_count", m.shadow.RetryCount))
		return m.shadow
	}
	if !found {
		st = State{}
	}
	m.shadow = st
	return st
}

// save must be called with mu held.
func (m *Manager) save(ctx context.Context, st State) {
	m.shadow = st
	if err := m.store.Set(ctx, m.key, st); err != nil {
		m.logger.WarnContext(ctx, "retry store unavailable, state kept in memory",
			slog.String("error", err.Error()),
			slog.Int("retry_count", st.RetryCount))
	}
}

// Retry runs op once under m's policy. Exhausted managers fail without
// calling op. Success resets the state. A transient-load failure is counted,
// optionally followed by RetryDelay, and returned so the caller decides
// whether to call again. Other errors are returned untouched.
func Retry[T any](ctx context.Context, m *Manager, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if !m.CanRetry(ctx) {
		return zero, apperrors.NewRetriesExhaustedError(m.key, m.cfg.MaxRetries)
	}

	result, err := op(ctx)
	if err == nil {
		m.Reset(ctx)
		return result, nil
	}

	if !apperrors.IsType(err, apperrors.ErrTypeTransientLoad) {
		return zero, err
	}

	count := m.IncrementRetry(ctx)
	m.logger.WarnContext(ctx, "transient failure recorded",
		slog.Int("retry_count", count),
		slog.Int("max_retries", m.cfg.MaxRetries),
		slog.String("error", err.Error()))

	if m.cfg.DelayOnFailure {
		if werr := wait(ctx, m.RetryDelay(ctx)); werr != nil {
			return zero, werr
		}
	}
	return zero, err
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
