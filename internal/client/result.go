package client

import "context"

// Result is the outcome of one transport call: a value or a failure reason
type Result[T any] struct {
	Value T
	Err   error
}

// Ok returns true if the call succeeded
func (r Result[T]) Ok() bool {
	return r.Err == nil
}

// Reason returns the failure reason, or an empty string on success
func (r Result[T]) Reason() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Async runs fn on its own goroutine and delivers exactly one Result.
// The channel is buffered so the goroutine never blocks on an absent reader.
func Async[T any](ctx context.Context, fn func(context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		v, err := fn(ctx)
		ch <- Result[T]{Value: v, Err: err}
	}()
	return ch
}
