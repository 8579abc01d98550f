package sales

import (
	"context"
	"sync"
	"testing"

	domorder "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncSubscriber struct {
	handlers map[string][]domoutbox.Handler
}

func (s *syncSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if s.handlers == nil {
		s.handlers = map[string][]domoutbox.Handler{}
	}
	s.handlers[name] = append(s.handlers[name], h)
}

func (s *syncSubscriber) Publish(ctx context.Context, e domoutbox.Event) error {
	for _, h := range s.handlers[e.EventName()] {
		if err := h(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

type tally struct {
	mu     sync.Mutex
	totals map[string]float64
}

func (t *tally) Add(delta float64, labels ...observability.Label) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := ""
	for _, l := range labels {
		key += l.Key + "=" + l.Value + ","
	}
	t.totals[key] += delta
}

type tallyMetrics map[observability.MetricKey]*tally

func (m tallyMetrics) Counter(k observability.MetricKey) observability.Counter {
	if c, ok := m[k]; ok {
		return c
	}
	return observability.NopCounter()
}

func (tallyMetrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

type tel struct{ metrics observability.Metrics }

func (tel) Tracer() observability.Tracer     { return observability.NopTracer() }
func (tel) Logger() observability.Logger     { return observability.NopLogger() }
func (t tel) Metrics() observability.Metrics { return t.metrics }

func TestWorkerCountsEvents(t *testing.T) {
	metrics := tallyMetrics{
		observability.MOrdersCreated: {totals: map[string]float64{}},
		observability.MOrderItems:    {totals: map[string]float64{}},
		observability.MPayments:      {totals: map[string]float64{}},
	}
	bus := &syncSubscriber{}
	New(bus, tel{metrics: metrics}).Start()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, domorder.CreatedEvent{OrderID: 1, ItemCount: 3}))
	require.NoError(t, bus.Publish(ctx, domorder.CreatedEvent{OrderID: 2, ItemCount: 1}))
	require.NoError(t, bus.Publish(ctx, dompay.RequestedEvent{CheckoutRequestID: "ws_1"}))
	require.NoError(t, bus.Publish(ctx, dompay.CompletedEvent{CheckoutRequestID: "ws_1", Status: dompay.StatusSuccess}))

	assert.Equal(t, 2.0, metrics[observability.MOrdersCreated].totals[""])
	assert.Equal(t, 4.0, metrics[observability.MOrderItems].totals[""])
	assert.Equal(t, 1.0, metrics[observability.MPayments].totals["event=requested,result=pending,"])
	assert.Equal(t, 1.0, metrics[observability.MPayments].totals["event=completed,result=success,"])
}

func TestWorkerWithoutSubscriber(t *testing.T) {
	assert.NotPanics(t, func() { New(nil, observability.Nop()).Start() })
}
