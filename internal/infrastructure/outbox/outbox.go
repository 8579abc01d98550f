package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-storefront/app/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability/logctx"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentOutbox = "outbox"

	defaultQueueSize      = 1024
	defaultConcurrency    = 8
	defaultHandlerTimeout = 30 * time.Second
)

var ErrBusStopped = errors.New("outbox: bus stopped")

// HandlerContext prepares the context a handler runs with, typically binding
// an event-scoped logger.
type HandlerContext func(ctx context.Context, base observability.Logger, attrs map[string]string) context.Context

// envelope keeps the publisher's span so handlers join the same trace.
type envelope struct {
	event domoutbox.Event
	span  trace.SpanContext
}

// Bus is an in-memory, non-durable event bus. Events are dispatched in
// publish order; handlers of one event run concurrently up to a cap.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]domoutbox.Handler
	stopped bool

	queue     chan envelope
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	concurrency    int
	handlerTimeout time.Duration
	handlerCtx     HandlerContext
	log            observability.Logger
}

type Option func(*Bus)

func WithQueueSize(n int) Option { return func(b *Bus) { b.queue = make(chan envelope, n) } }

func WithConcurrency(n int) Option { return func(b *Bus) { b.concurrency = n } }

func WithHandlerTimeout(d time.Duration) Option { return func(b *Bus) { b.handlerTimeout = d } }

func WithHandlerContext(fn HandlerContext) Option { return func(b *Bus) { b.handlerCtx = fn } }

func NewBus(tel observability.Observability, opts ...Option) *Bus {
	if tel == nil {
		tel = observability.Nop()
	}
	b := &Bus{
		subs:           make(map[string][]domoutbox.Handler),
		queue:          make(chan envelope, defaultQueueSize),
		done:           make(chan struct{}),
		concurrency:    defaultConcurrency,
		handlerTimeout: defaultHandlerTimeout,
		log:            tel.Logger().With(observability.F("component", componentOutbox)),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.concurrency < 1 {
		b.concurrency = 1
	}
	if b.handlerCtx == nil {
		b.handlerCtx = func(ctx context.Context, base observability.Logger, attrs map[string]string) context.Context {
			return logctx.With(ctx, base.With(observability.F("event", attrs["event"])))
		}
	}
	return b
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

// Start launches the dispatch loop. The loop outlives ctx cancellation and
// ends when Stop has drained the queue.
func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop refuses new events and waits for queued ones to be handled or for ctx to end.
func (b *Bus) Stop(ctx context.Context) error {
	var err error
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		close(b.queue)
		b.mu.Unlock()

		logger := logctx.FromOr(ctx, b.log)
		b.startOnce.Do(func() { close(b.done) })
		select {
		case <-b.done:
			logger.Info("event_bus_stopped")
		case <-ctx.Done():
			err = ctx.Err()
			logger.Warn("event_bus_stop_timeout", observability.F("pending", len(b.queue)))
		}
	})
	return err
}

func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrBusStopped
	}

	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- envelope{event: e, span: trace.SpanContextFromContext(ctx)}:
		logger.Debug("event_enqueued")
		return nil
	case <-ctx.Done():
		logger.Warn("event_enqueue_aborted", observability.F("error", ctx.Err().Error()))
		return ctx.Err()
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for env := range b.queue {
		b.fanout(ctx, env)
	}
}

func (b *Bus) fanout(ctx context.Context, env envelope) {
	name := env.event.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		b.log.Debug("event_dropped_no_subscriber", observability.F("event", name))
		return
	}

	if env.span.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, env.span)
	}

	sem := make(chan struct{}, b.concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			hctx := b.handlerCtx(ctx, b.log, map[string]string{"event": name})
			logger := logctx.FromOr(hctx, b.log)
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(hctx, b.handlerTimeout)
			defer cancel()
			if err := h(hctx, env.event); err != nil {
				logger.Warn("event_handler_error", observability.F("error", err.Error()))
			}
		}()
	}

	wg.Wait()
	b.log.Debug("event_fanned_out",
		observability.F("event", name),
		observability.F("handlers", len(handlers)),
	)
}
