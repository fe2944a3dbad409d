package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/findworkai/aigate/internal/constants"
	"github.com/findworkai/aigate/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func newTestRegistry(t *testing.T, opts Options) *Registry {
	t.Helper()
	if opts.Logger == nil {
		logger := klog.NewKlogr()
		opts.Logger = &logger
	}
	registry := NewRegistry(NewMemoryBackend().NewStore, opts)
	t.Cleanup(func() { _ = registry.Close() })
	return registry
}

func TestRegistry_SingletonPerSignature(t *testing.T) {
	registry := newTestRegistry(t, Options{})

	a, err := registry.Get(time.Minute, 500)
	require.NoError(t, err)
	b, err := registry.Get(60*time.Second, 500)
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := registry.Get(time.Minute, 1000)
	require.NoError(t, err)
	assert.NotSame(t, a, c)

	d, err := registry.Get(time.Second, 500)
	require.NoError(t, err)
	assert.NotSame(t, a, d)

	assert.Equal(t, 3, registry.Len())
	assert.Equal(t, "60000:500", a.Name())
	assert.Equal(t, Signature{Interval: time.Minute, MaxUniqueTokens: 500}, a.Signature())
	assert.Equal(t, constants.StoreMemory, a.StoreType())

	names := make([]string, 0, 3)
	for _, limiter := range registry.List() {
		names = append(names, limiter.Name())
	}
	assert.Equal(t, []string{"1000:500", "60000:1000", "60000:500"}, names)

	found, ok := registry.Lookup("60000:1000")
	require.True(t, ok)
	assert.Same(t, c, found)
	_, ok = registry.Lookup("1:1")
	assert.False(t, ok)
}

func TestRegistry_LimitersKeepSeparateWindows(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	registry := newTestRegistry(t, Options{Clock: clock.Now})

	short, err := registry.Get(time.Second, 0)
	require.NoError(t, err)
	long, err := registry.Get(time.Minute, 0)
	require.NoError(t, err)

	result, err := short.Check(ctx, "user", 1)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = long.Check(ctx, "user", 1)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRegistry_InvalidArguments(t *testing.T) {
	registry := newTestRegistry(t, Options{})

	_, err := registry.Get(0, 10)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = registry.Get(time.Microsecond, 10)
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = registry.Get(time.Second, -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = NewRegistry(nil, Options{}).Get(time.Second, 1)
	assert.ErrorIs(t, err, ErrNilStore)

	failing := NewRegistry(func(StoreOptions) (Store, error) {
		return nil, errors.New("no backend")
	}, Options{})
	_, err = failing.Get(time.Second, 1)
	assert.ErrorContains(t, err, "no backend")
}

func TestRegistry_Close(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(t, Options{})

	limiter, err := registry.Get(time.Minute, 10)
	require.NoError(t, err)

	require.NoError(t, registry.Close())
	require.NoError(t, registry.Close())
	assert.Zero(t, registry.Len())

	_, err = registry.Get(time.Minute, 10)
	assert.ErrorIs(t, err, ErrRegistryClosed)

	_, err = limiter.Check(ctx, "user", 1)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestRegistry_EvictionMetrics(t *testing.T) {
	ctx := context.Background()
	promRegistry := prometheus.NewRegistry()
	collector, err := metrics.NewPrometheusCollectorWithRegistry(metrics.DefaultConfig(), promRegistry)
	require.NoError(t, err)

	registry := newTestRegistry(t, Options{Metrics: collector})
	limiter, err := registry.Get(time.Minute, 1)
	require.NoError(t, err)

	_, err = limiter.Check(ctx, "a", 5)
	require.NoError(t, err)
	_, err = limiter.Check(ctx, "b", 5)
	require.NoError(t, err)
	_, err = limiter.Sweep(ctx)
	require.NoError(t, err)

	families, err := promRegistry.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[family.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[family.GetName()] += metric.GetGauge().GetValue()
			}
		}
	}

	assert.Equal(t, 1.0, values["aigate_rate_limit_evictions_total"])
	assert.Equal(t, 1.0, values["aigate_rate_limit_sweeps_total"])
	assert.Equal(t, 1.0, values["aigate_rate_limit_identifiers"])
}
