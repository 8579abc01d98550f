package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCountsWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := New(reg, "")
	require.NoError(t, err)

	r.Counter(observability.MUsecaseRequests).Add(1,
		observability.L("use_case", "order.create"),
		observability.L("outcome", "success"),
	)
	r.Counter(observability.MUsecaseRequests).Add(2,
		observability.L("use_case", "order.create"),
		observability.L("outcome", "success"),
	)

	got := testutil.ToFloat64(r.counters[observability.MUsecaseRequests].WithLabelValues("order.create", "success"))
	assert.Equal(t, 3.0, got)
}

func TestRegistryUnknownKeyIsNop(t *testing.T) {
	r, err := New(prometheus.NewRegistry(), "")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		r.Counter("nope").Add(1)
		r.Histogram("nope").Observe(1)
	})
}

func TestRegistryRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "shop")
	require.NoError(t, err)

	_, err = New(reg, "shop")
	assert.Error(t, err)
}
