package application

import (
	"context"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability/logctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

const (
	outcomeSuccess = "success"
	outcomeError   = "error"
)

const (
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

// Instrument holds the tracer, base logger and RED instruments shared by the
// use cases of one service.
type Instrument struct {
	tracer       observability.Tracer
	log          observability.Logger
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
	pubFailures  observability.Counter   // event_publish_failed_total{event}
	metrics      observability.Metrics
}

func NewInstrument(tel observability.Observability, service string) *Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Instrument{
		tracer:       tel.Tracer(),
		log:          tel.Logger().With(observability.F("service", service)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
		pubFailures:  metrics.Counter(observability.MEventPublishFailures),
		metrics:      metrics,
	}
}

func (i *Instrument) Logger() observability.Logger   { return i.log }
func (i *Instrument) Metrics() observability.Metrics { return i.metrics }

// Run tracks one use case execution from Start to End.
type Run struct {
	inst    *Instrument
	ctx     context.Context
	span    trace.Span
	log     observability.Logger
	useCase string
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

// Start opens the use case span and binds the use case name onto the request logger.
func (i *Instrument) Start(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	logger := logctx.FromOr(ctx, i.log).With(observability.F("use_case", useCase))
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := i.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	return ctx, &Run{
		inst:    i,
		ctx:     ctx,
		span:    span,
		log:     logger,
		useCase: useCase,
		start:   time.Now(),
		outcome: outcomeSuccess,
		status:  "OK",
	}
}

// Fail marks the run as failed with a machine-readable status.
func (r *Run) Fail(status string) {
	r.outcome, r.status = outcomeError, status
}

// Status overrides the status text while keeping the outcome.
func (r *Run) Status(status string) { r.status = status }

// Field adds a field to the final use_case_done line.
func (r *Run) Field(k string, v any) {
	r.fields = append(r.fields, observability.F(k, v))
}

func (r *Run) Span() trace.Span              { return r.span }
func (r *Run) Logger() observability.Logger { return r.log }

// End closes the span, records metrics and writes the use_case_done line.
// A non-nil err without a prior Fail is recorded as UNEXPECTED.
func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()
	if err != nil && r.outcome == outcomeSuccess {
		r.Fail("UNEXPECTED")
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.inst.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.inst.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.log.Info("use_case_done", fields...)
}

// Publish hands e to pub with a short timeout. A failed publish does not fail
// the run; it is recorded on the span, the status and the final log line.
func (r *Run) Publish(pub domoutbox.Publisher, e domoutbox.Event) {
	if pub == nil || e == nil {
		return
	}
	endpoint := e.EventName()
	pubCtx, cancel := context.WithTimeout(r.ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := outcomeSuccess
	err := pub.Publish(pubCtx, e)
	switch {
	case err != nil:
		outcome = outcomeError
		r.status = "EVENT_PUBLISH_FAILED"
	case pubCtx.Err() != nil:
		outcome = "canceled"
		err = pubCtx.Err()
		r.status = "EVENT_PUBLISH_TIMEOUT"
	}

	r.inst.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	r.inst.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", endpoint),
	)

	if err != nil {
		r.inst.pubFailures.Add(1, observability.L("event", endpoint))
		if r.span != nil {
			r.span.RecordError(err)
		}
		r.fields = append(r.fields, observability.F("event_publish_error", err.Error()))
		return
	}
	if r.span != nil {
		r.span.AddEvent(endpoint)
	}
}
