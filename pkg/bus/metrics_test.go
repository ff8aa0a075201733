package bus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountTraffic(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	b := NewReplyBuffer()
	b.SetMetrics(m)
	b.Put("one")
	b.Put(brokenPayload{})
	b.Put("three")

	require.Equal(t, 3.0, testutil.ToFloat64(m.enqueued))
	require.Equal(t, 3.0, testutil.ToFloat64(m.pending))

	_, err = b.TryGet()
	require.NoError(t, err)
	_, err = b.TryGet()
	require.Error(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.delivered))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failed))
	require.Equal(t, 1.0, testutil.ToFloat64(m.pending))
}

func TestNewMetricsRejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	if _, err := NewMetrics(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestNilMetricsDisableCounting(t *testing.T) {
	t.Parallel()

	b := NewReplyBuffer()
	b.SetMetrics(nil)
	b.Put("x")

	reply, err := b.TryGet()
	require.NoError(t, err)
	require.Equal(t, "x", reply.AsString(false))
}
