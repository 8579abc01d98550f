// Package sales turns committed order and payment events into business
// counters. It never writes to storage.
package sales

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const workerService = "sales-worker"

type Worker struct {
	subscriber domoutbox.Subscriber
	inst       *application.Instrument

	orders   observability.Counter // orders_created_total
	items    observability.Counter // order_items_total
	payments observability.Counter // payments_total{event,result}
}

func New(subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	inst := application.NewInstrument(tel, workerService)
	m := inst.Metrics()
	return &Worker{
		subscriber: subscriber,
		inst:       inst,
		orders:     m.Counter(observability.MOrdersCreated),
		items:      m.Counter(observability.MOrderItems),
		payments:   m.Counter(observability.MPayments),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(domorder.CreatedEvent{}.EventName(), w.handleOrderCreated)
	w.subscriber.Subscribe(dompay.RequestedEvent{}.EventName(), w.handlePaymentRequested)
	w.subscriber.Subscribe(dompay.CompletedEvent{}.EventName(), w.handlePaymentCompleted)
}

func (w *Worker) handleOrderCreated(ctx context.Context, e domoutbox.Event) (err error) {
	const useCase = "sales.worker.order_created"
	evt, ok := e.(domorder.CreatedEvent)
	if !ok {
		return w.ignore(ctx, useCase, e)
	}
	_, run := w.inst.Start(ctx, useCase, "OrderCreated",
		attribute.String("event", e.EventName()),
		attribute.Int64("order.id", int64(evt.OrderID)),
	)
	defer func() { run.End(err) }()

	w.orders.Add(1)
	w.items.Add(float64(evt.ItemCount))
	run.Field("order_id", evt.OrderID)
	run.Field("items", evt.ItemCount)
	return nil
}

func (w *Worker) handlePaymentRequested(ctx context.Context, e domoutbox.Event) (err error) {
	const useCase = "sales.worker.payment_requested"
	evt, ok := e.(dompay.RequestedEvent)
	if !ok {
		return w.ignore(ctx, useCase, e)
	}
	_, run := w.inst.Start(ctx, useCase, "PaymentRequested",
		attribute.String("event", e.EventName()),
		attribute.String("payment.checkout_request_id", evt.CheckoutRequestID),
	)
	defer func() { run.End(err) }()

	w.payments.Add(1,
		observability.L("event", "requested"),
		observability.L("result", string(dompay.StatusPending)),
	)
	run.Field("checkout_request_id", evt.CheckoutRequestID)
	return nil
}

func (w *Worker) handlePaymentCompleted(ctx context.Context, e domoutbox.Event) (err error) {
	const useCase = "sales.worker.payment_completed"
	evt, ok := e.(dompay.CompletedEvent)
	if !ok {
		return w.ignore(ctx, useCase, e)
	}
	_, run := w.inst.Start(ctx, useCase, "PaymentCompleted",
		attribute.String("event", e.EventName()),
		attribute.String("payment.checkout_request_id", evt.CheckoutRequestID),
	)
	defer func() { run.End(err) }()

	w.payments.Add(1,
		observability.L("event", "completed"),
		observability.L("result", string(evt.Status)),
	)
	run.Field("checkout_request_id", evt.CheckoutRequestID)
	run.Field("payment_status", string(evt.Status))
	return nil
}

func (w *Worker) ignore(ctx context.Context, useCase string, e domoutbox.Event) error {
	_, run := w.inst.Start(ctx, useCase, "Ignored", attribute.String("event", e.EventName()))
	run.Status("IGNORED")
	run.End(nil)
	return nil
}
