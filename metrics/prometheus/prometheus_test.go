package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/squareup/lazyrows/conf"
)

func TestCreateCounterBeforeStart(t *testing.T) {
	f := NewFactory(*conf.NewTestConfig())
	_, err := f.CreateCounter("lazyrows_test_total", "test")
	require.Error(t, err)
	require.Error(t, f.Stop())
}

func TestCounters(t *testing.T) {
	f := NewFactory(*conf.NewTestConfig())
	require.NoError(t, f.Start())
	require.Error(t, f.Start())
	defer func() {
		require.NoError(t, f.Stop())
	}()

	c1, err := f.CreateCounter("lazyrows_fetches_total", "fetches")
	require.NoError(t, err)
	c2, err := f.CreateCounter("lazyrows_fetches_total", "fetches")
	require.NoError(t, err)
	require.Same(t, c1, c2)

	c1.Inc()
	c2.Inc()
	require.Equal(t, 2.0, testutil.ToFloat64(c1.(*Counter).pCounter))

	// factories do not share a registry
	other := NewFactory(*conf.NewTestConfig())
	require.NoError(t, other.Start())
	c3, err := other.CreateCounter("lazyrows_fetches_total", "fetches")
	require.NoError(t, err)
	require.Equal(t, 0.0, testutil.ToFloat64(c3.(*Counter).pCounter))
	require.NoError(t, other.Stop())
}
