/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/acronis/go-cachekit/retry"
)

// Factory produces a value for GetOrSet on a cache miss.
type Factory[V any] func(ctx context.Context) (V, error)

// FactoryError is returned by GetOrSet when the factory fails. Nothing is cached in this case.
type FactoryError struct {
	Err error
}

// Error implements error.
func (e *FactoryError) Error() string {
	return "Factory failed: " + e.Err.Error()
}

// Unwrap returns the error returned by the factory.
func (e *FactoryError) Unwrap() error {
	return e.Err
}

var errNilFactory = errors.New("factory is nil")

// PanicError is an error that represents a value the factory panicked with and the stack trace.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("%v\n\n%s", p.Value, p.Stack)
}

// Unwrap returns the panic value if it's an error.
func (p *PanicError) Unwrap() error {
	err, ok := p.Value.(error)
	if !ok {
		return nil
	}
	return err
}

func newPanicError(v interface{}) error {
	stack := debug.Stack()
	// The first line is "goroutine N [running]:".
	if line := bytes.IndexByte(stack, '\n'); line >= 0 {
		stack = stack[line+1:]
	}
	return &PanicError{Value: v, Stack: stack}
}

// callFactory runs the factory converting its error or panic into *FactoryError.
func callFactory[V any](ctx context.Context, factory Factory[V]) (val V, err error) {
	if factory == nil {
		return val, &FactoryError{Err: errNilFactory}
	}
	defer func() {
		if r := recover(); r != nil {
			var zero V
			val, err = zero, &FactoryError{Err: newPanicError(r)}
		}
	}()
	if val, err = factory(ctx); err != nil {
		var zero V
		return zero, &FactoryError{Err: err}
	}
	return val, nil
}

// RetryingFactory wraps the factory so it's retried according to the policy.
// Nil isRetryable means every error is retryable.
func RetryingFactory[V any](factory Factory[V], policy retry.Policy, isRetryable retry.IsRetryable) Factory[V] {
	return func(ctx context.Context) (V, error) {
		return retry.Do(ctx, policy, isRetryable, nil, func(ctx context.Context) (V, error) {
			return factory(ctx)
		})
	}
}
