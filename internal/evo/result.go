package evo

import (
	"context"
	"fmt"
	"sync"
)

// Result is a single-valued future settled at most once per run: resolved
// with the fittest chromosome of the terminal generation, or rejected with
// ErrStopped when the engine is stopped first.
type Result[C Chromosome] struct {
	once  sync.Once
	done  chan struct{}
	value C
	err   error
}

func newResult[C Chromosome]() *Result[C] {
	return &Result[C]{done: make(chan struct{})}
}

func (r *Result[C]) resolve(value C) bool {
	settled := false
	r.once.Do(func() {
		r.value = value
		settled = true
		close(r.done)
	})
	return settled
}

func (r *Result[C]) reject(err error) bool {
	settled := false
	r.once.Do(func() {
		r.err = err
		settled = true
		close(r.done)
	})
	return settled
}

// Done is closed once the result is settled.
func (r *Result[C]) Done() <-chan struct{} { return r.done }

// Value returns the settled outcome without blocking.
func (r *Result[C]) Value() (C, error) {
	select {
	case <-r.done:
		return r.value, r.err
	default:
		var zero C
		return zero, fmt.Errorf("%w: result is not settled", ErrIllegalState)
	}
}

// Wait blocks until the result is settled or ctx ends.
func (r *Result[C]) Wait(ctx context.Context) (C, error) {
	select {
	case <-r.done:
		return r.value, r.err
	case <-ctx.Done():
		var zero C
		return zero, ctx.Err()
	}
}
