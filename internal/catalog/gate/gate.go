// Package gate serializes every call to the external card catalog through
// one FIFO queue with a minimum spacing between call starts and a hard
// per-call timeout.
package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ramonehamilton/mtg-binder/internal/metrics"
)

// TracerName names the tracer that records one span per catalog call.
const TracerName = "github.com/ramonehamilton/mtg-binder/internal/catalog/gate"

const (
	// DefaultMinSpacing is the minimum delay between the starts of two calls.
	DefaultMinSpacing = 100 * time.Millisecond

	// DefaultTimeout bounds a single call.
	DefaultTimeout = 30 * time.Second

	defaultQueueSize = 256
)

// ErrClosed is returned for calls enqueued after Close.
var ErrClosed = errors.New("catalog gate closed")

// TimeoutError is returned when a call exceeds the gate timeout.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("catalog call %s timed out after %s", e.Op, e.Timeout)
}

// StatusCode is the HTTP status callers should surface for this error.
func (e *TimeoutError) StatusCode() int {
	return http.StatusServiceUnavailable
}

// IsTimeout reports whether err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Func is a unit of work executed inside the gate.
type Func func(ctx context.Context) error

// Options configures a Gate.
type Options struct {
	MinSpacing time.Duration
	Timeout    time.Duration
	QueueSize  int
	Metrics    *metrics.Catalog
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// DefaultOptions returns the production spacing and timeout.
func DefaultOptions() Options {
	return Options{
		MinSpacing: DefaultMinSpacing,
		Timeout:    DefaultTimeout,
		QueueSize:  defaultQueueSize,
	}
}

type job struct {
	ctx      context.Context
	op       string
	fn       Func
	enqueued time.Time
	done     chan error
}

// Gate is the process-wide queue for catalog calls. Construct one at
// startup and share it with every catalog consumer.
type Gate struct {
	limiter *rate.Limiter
	timeout time.Duration
	metrics *metrics.Catalog
	tracer  trace.Tracer

	// mu orders enqueues against Close so no job lands after the final drain.
	mu        sync.RWMutex
	closed    bool
	jobs      chan *job
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	pending   atomic.Int64
}

// New creates a gate and starts its worker.
func New(opts Options) *Gate {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}

	limit := rate.Inf
	if opts.MinSpacing > 0 {
		limit = rate.Every(opts.MinSpacing)
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	g := &Gate{
		limiter: rate.NewLimiter(limit, 1),
		timeout: opts.Timeout,
		metrics: opts.Metrics,
		tracer:  tp.Tracer(TracerName),
		jobs:    make(chan *job, opts.QueueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go g.run()
	return g
}

// Do enqueues fn and blocks until it has run. Calls run one at a time in
// enqueue order. A call that exceeds the timeout returns a *TimeoutError and
// the queue moves on.
func (g *Gate) Do(ctx context.Context, op string, fn Func) error {
	j := &job{
		ctx:      ctx,
		op:       op,
		fn:       fn,
		enqueued: time.Now(),
		done:     make(chan error, 1),
	}

	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return ErrClosed
	}
	g.pending.Add(1)
	select {
	case g.jobs <- j:
	case <-ctx.Done():
		g.mu.RUnlock()
		g.pending.Add(-1)
		return ctx.Err()
	}
	g.mu.RUnlock()

	// Every enqueued job is answered, by the worker or by the final drain.
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of calls queued or running.
func (g *Gate) Pending() int {
	return int(g.pending.Load())
}

// Close stops the worker and waits for it to exit. A running call finishes;
// queued calls fail with ErrClosed.
func (g *Gate) Close() {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.closed = true
		g.mu.Unlock()
		close(g.quit)
	})
	<-g.stopped
}

func (g *Gate) run() {
	defer close(g.stopped)
	for {
		select {
		case <-g.quit:
			g.drain()
			return
		case j := <-g.jobs:
			j.done <- g.execute(j)
			g.pending.Add(-1)
		}
	}
}

func (g *Gate) drain() {
	for {
		select {
		case j := <-g.jobs:
			j.done <- ErrClosed
			g.pending.Add(-1)
		default:
			return
		}
	}
}

// execute waits for the spacing slot, then runs the job under the timeout.
func (g *Gate) execute(j *job) error {
	if err := j.ctx.Err(); err != nil {
		return err
	}

	ctx, span := g.tracer.Start(j.ctx, "catalog."+j.op,
		trace.WithAttributes(attribute.String("catalog.op", j.op)),
	)
	defer span.End()

	if err := g.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rate limiter wait")
		return fmt.Errorf("rate limiter error: %w", err)
	}

	started := time.Now()
	wait := started.Sub(j.enqueued)
	span.SetAttributes(attribute.Int64("catalog.queue_wait_ms", wait.Milliseconds()))

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- j.fn(callCtx)
	}()

	var err error
	select {
	case err = <-result:
	case <-callCtx.Done():
		err = callCtx.Err()
	}

	timedOut := err != nil && j.ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded)
	if timedOut {
		err = &TimeoutError{Op: j.op, Timeout: g.timeout}
	}

	if g.metrics != nil {
		g.metrics.ObserveCall(wait, time.Since(started), err, timedOut)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
