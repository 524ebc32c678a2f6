package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetFromCache(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)

	c.Set("closes", []float64{1, 2, 3}, time.Minute)
	c.Set("name", "AAPL", time.Minute)

	got, ok := GetFromCache[[]float64](c, "closes")
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, got)

	_, ok = GetFromCache[int](c, "name")
	assert.False(t, ok, "wrong type must miss")

	_, ok = GetFromCache[string](c, "missing")
	assert.False(t, ok)

	c.Delete("name")
	_, ok = c.Get("name")
	assert.False(t, ok)
}

func TestCacheExpiration(t *testing.T) {
	c := NewCache(time.Minute, time.Minute)
	c.Set("short", 1, 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestTyped(t *testing.T) {
	shared := NewCache(time.Minute, time.Minute)
	series := NewTyped[[]float64](shared, "series:", time.Minute)

	series.Set("AAPL", []float64{1, 2})
	got, ok := series.Get("AAPL")
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2}, got)

	_, ok = shared.Get("series:AAPL")
	assert.True(t, ok, "keys are prefixed in the shared cache")

	series.Delete("AAPL")
	_, ok = series.Get("AAPL")
	assert.False(t, ok)

	disabled := NewTyped[int](shared, "off:", 0)
	disabled.Set("x", 1)
	_, ok = disabled.Get("x")
	assert.False(t, ok)
}
