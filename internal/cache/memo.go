package cache

// Memoize returns the cached result for (operation, input, params) or runs
// compute and caches its value. Failed computations are not cached. The
// second return value reports a cache hit.
func Memoize[V any](c *ResultCache[V], operation string, input, params any, compute func() (V, error)) (V, bool, error) {
	key := GenerateKey(map[string]any{
		"operation": operation,
		"input":     input,
		"params":    params,
	})

	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	v, err := compute()
	if err != nil {
		var zero V
		return zero, false, err
	}
	c.Set(key, v)
	return v, false, nil
}
