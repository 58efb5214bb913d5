package evo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type matesOutcome[C Chromosome] struct {
	mates []C
	err   error
}

// SelectMates asks selector for the co-parents of parent1 among population
// and returns the complete parent set, parent1 first. The population is
// offered cyclically until the selector returns. A selector that has not
// returned within timeout fails the attempt with ErrTimeout, whether or not
// it honours ctx.
func SelectMates[C Chromosome](ctx context.Context, selector MatesSelector[C], parent1 C, population []C, timeout time.Duration) ([]C, error) {
	if selector == nil {
		return nil, fmt.Errorf("%w: mates selector is nil", ErrInvalidArgument)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: mates timeout %s <= 0", ErrInvalidArgument, timeout)
	}

	selectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	feed := make(chan C)
	go offerCyclically(selectCtx, population, feed)

	done := make(chan matesOutcome[C], 1)
	go func() {
		mates, err := selector.SelectMates(selectCtx, parent1, feed)
		done <- matesOutcome[C]{mates: mates, err: err}
	}()

	timedOut := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: mates selection for %s exceeded %s", ErrTimeout, parent1.Fingerprint(), timeout)
	}

	select {
	case out := <-done:
		if errors.Is(selectCtx.Err(), context.DeadlineExceeded) {
			return nil, timedOut()
		}
		if out.err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("select mates for %s: %w", parent1.Fingerprint(), out.err)
		}
		parents := make([]C, 0, len(out.mates)+1)
		parents = append(parents, parent1)
		for _, m := range out.mates {
			if isNil(m) {
				return nil, fmt.Errorf("%w: mates selector returned nil mate for %s", ErrInvalidArgument, parent1.Fingerprint())
			}
			parents = append(parents, m)
		}
		return parents, nil
	case <-selectCtx.Done():
		return nil, timedOut()
	}
}

// offerCyclically sends population on feed round after round and closes
// feed once ctx ends. An empty population closes feed immediately.
func offerCyclically[C Chromosome](ctx context.Context, population []C, feed chan<- C) {
	defer close(feed)
	if len(population) == 0 {
		return
	}
	for i := 0; ; i = (i + 1) % len(population) {
		select {
		case feed <- population[i]:
		case <-ctx.Done():
			return
		}
	}
}
