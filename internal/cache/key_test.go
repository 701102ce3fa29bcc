package cache

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyIgnoresMapOrder(t *testing.T) {
	a := GenerateKey(map[string]any{"a": 1, "b": 2})
	b := GenerateKey(map[string]any{"b": 2, "a": 1})
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestGenerateKeyStructAndMapAgree(t *testing.T) {
	type params struct {
		Column string `json:"column"`
		Bins   int    `json:"bins"`
	}
	assert.Equal(t,
		GenerateKey(params{Column: "price", Bins: 5}),
		GenerateKey(map[string]any{"bins": 5, "column": "price"}))
}

func TestGenerateKeyDistinguishesContent(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"different values", map[string]any{"a": 1}, map[string]any{"a": 2}},
		{"array order matters", []int{1, 2}, []int{2, 1}},
		{"nested", map[string]any{"x": map[string]any{"y": 1}}, map[string]any{"x": map[string]any{"y": "1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEqual(t, GenerateKey(tt.a), GenerateKey(tt.b))
		})
	}
}

func TestGenerateKeyFallback(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	tests := []struct {
		name string
		data any
	}{
		{"cycle", cyclic},
		{"channel", make(chan int)},
		{"nan", math.NaN()},
		{"function", func() {}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := GenerateKey(tt.data)
			second := GenerateKey(tt.data)
			assert.True(t, strings.HasPrefix(first, "fallback-"), first)
			assert.NotEqual(t, first, second, "fallback keys are unique")
		})
	}
}

func TestMemoize(t *testing.T) {
	c := New[int](WithMaxSize(4))
	calls := 0
	compute := func() (int, error) {
		calls++
		return 42, nil
	}

	v, hit, err := Memoize(c, "sum", "dataset-a", map[string]any{"col": "x"}, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 42, v)

	v, hit, err = Memoize(c, "sum", "dataset-a", map[string]any{"col": "x"}, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)

	_, hit, _ = Memoize(c, "sum", "dataset-a", map[string]any{"col": "y"}, compute)
	assert.False(t, hit)
	assert.Equal(t, 2, calls)

	_, hit, _ = Memoize(c, "mean", "dataset-a", map[string]any{"col": "x"}, compute)
	assert.False(t, hit, "operation is part of the key")
}

func TestMemoizeDoesNotCacheErrors(t *testing.T) {
	c := New[string]()
	boom := errors.New("boom")

	_, _, err := Memoize(c, "op", nil, nil, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, c.Len())
}
