package database

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Future is the non-blocking handle every KVS operation returns (spec
// §5: "the core is a non-blocking asynchronous client of the KVS...
// operations never block the calling thread"). It is populated by a
// goroutine and read back with Await, standing in for the Lettuce
// RedisFuture the original Java implementation returns.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go starts fn in its own goroutine and returns a handle for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		f.val, f.err = fn()
		close(f.done)
	}()
	return f
}

// Done returns an already-resolved Future, useful for composite
// operations that skip a step based on a synchronous precondition.
func Done[T any](val T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: val, err: err}
	close(f.done)
	return f
}

// Await blocks the caller's goroutine (not the KVS connection) until the
// result is ready or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Err discards the value and reports only the error, which is all a
// composite operation's AwaitAll caller needs.
func (f *Future[T]) Err(ctx context.Context) error {
	_, err := f.Await(ctx)
	return err
}

// Awaitable is the narrow interface AwaitAll needs; every *Future[T]
// satisfies it regardless of T, which is how a composite operation can
// return futures of different result types in one slice.
type Awaitable interface {
	Err(ctx context.Context) error
}

// DefaultFanOutLimit bounds how many futures AwaitAll drains
// concurrently. Composite operations over wide topic filters or long
// in-flight lists must not fan out unboundedly (spec §9 design note).
const DefaultFanOutLimit = 32

// AwaitAll drains every future, returning the first error encountered
// (per-future errors are not masked as success — spec §7). Concurrency
// is capped at DefaultFanOutLimit regardless of how many futures are
// passed.
func AwaitAll(ctx context.Context, futures ...Awaitable) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultFanOutLimit)
	for _, f := range futures {
		f := f
		g.Go(func() error {
			return f.Err(gctx)
		})
	}
	return g.Wait()
}
