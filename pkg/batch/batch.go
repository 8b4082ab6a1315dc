// Package batch groups independent remote sub-queries of one kind and runs
// them as a single synchronous barrier.
//
// Every added sub-query receives exactly one callback invocation carrying its
// response or its error, in whatever order the sub-queries complete. A failing
// sub-query never aborts its siblings. Execute returns once every callback has
// fired; callbacks are serialized so they may write to shared accumulators
// without further coordination.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight sub-queries when no option overrides it.
const DefaultConcurrency = 8

// Call performs one sub-query.
type Call[T any] func(ctx context.Context) (T, error)

// Callback receives the outcome of one sub-query. resp is the zero value when
// err is non-nil.
type Callback[T any] func(requestID string, resp T, err error)

// Observer receives a summary once a batch has drained.
type Observer interface {
	ObserveBatch(kind string, size, failed int, duration time.Duration)
}

// Option configures a Batch.
type Option func(*options)

type options struct {
	concurrency int
	logger      *zap.Logger
	observer    Observer
}

// WithConcurrency bounds the number of sub-queries in flight. Values below one
// are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLogger logs per-item failures at warn level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver reports batch summaries, typically to metrics.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

type item[T any] struct {
	requestID string
	call      Call[T]
}

// Batch collects sub-queries of a single kind.
type Batch[T any] struct {
	kind     string
	callback Callback[T]
	items    []item[T]
	opts     options
	executed bool
}

// New creates a batch whose sub-queries all report to callback.
func New[T any](kind string, callback Callback[T], opts ...Option) *Batch[T] {
	o := options{concurrency: DefaultConcurrency, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Batch[T]{kind: kind, callback: callback, opts: o}
}

// Add registers a sub-query. Adding after Execute panics.
func (b *Batch[T]) Add(requestID string, call Call[T]) {
	if b.executed {
		panic(fmt.Sprintf("batch %s: add after execute", b.kind))
	}
	b.items = append(b.items, item[T]{requestID: requestID, call: call})
}

// Len returns the number of registered sub-queries.
func (b *Batch[T]) Len() int {
	return len(b.items)
}

// Kind returns the query kind the batch was created for.
func (b *Batch[T]) Kind() string {
	return b.kind
}

// Execute runs every registered sub-query and blocks until each callback has
// fired. An empty batch returns immediately without invoking the callback.
// A batch executes at most once.
func (b *Batch[T]) Execute(ctx context.Context) {
	if b.executed {
		return
	}
	b.executed = true
	if len(b.items) == 0 {
		return
	}

	start := time.Now()
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed int
	)
	g.SetLimit(b.opts.concurrency)

	for _, it := range b.items {
		it := it
		g.Go(func() error {
			resp, err := b.run(ctx, it)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				b.opts.logger.Warn("batch sub-query failed",
					zap.String("kind", b.kind),
					zap.String("request_id", it.requestID),
					zap.Error(err),
				)
			}
			b.invoke(it.requestID, resp, err)
			return nil
		})
	}
	_ = g.Wait()

	if b.opts.observer != nil {
		b.opts.observer.ObserveBatch(b.kind, len(b.items), failed, time.Since(start))
	}
}

func (b *Batch[T]) run(ctx context.Context, it item[T]) (resp T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			resp = zero
			err = fmt.Errorf("sub-query %s panicked: %v", it.requestID, r)
		}
	}()
	resp, err = it.call(ctx)
	if err != nil {
		var zero T
		resp = zero
	}
	return resp, err
}

// invoke shields the batch from a panicking callback so that the remaining
// callbacks still fire.
func (b *Batch[T]) invoke(requestID string, resp T, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.opts.logger.Error("batch callback panicked",
				zap.String("kind", b.kind),
				zap.String("request_id", requestID),
				zap.Any("panic", r),
			)
		}
	}()
	if b.callback != nil {
		b.callback(requestID, resp, err)
	}
}
