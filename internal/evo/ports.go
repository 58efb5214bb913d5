package evo

import (
	"context"
	"time"
)

// AppearanceSource produces fresh chromosomes (age 0, generation 0) out of
// nowhere. It is treated as unbounded: every call yields a new chromosome.
type AppearanceSource[C Chromosome] interface {
	Appear(ctx context.Context) (C, error)
}

type AppearanceFunc[C Chromosome] func(ctx context.Context) (C, error)

func (f AppearanceFunc[C]) Appear(ctx context.Context) (C, error) { return f(ctx) }

// SelectionPredicate makes a binary choice per chromosome, e.g. whether it
// should be mutated or act as the first parent of a crossover.
type SelectionPredicate[C Chromosome] interface {
	Select(c C) bool
}

type PredicateFunc[C Chromosome] func(c C) bool

func (f PredicateFunc[C]) Select(c C) bool { return f(c) }

// MutationStrategy returns one mutant per input chromosome.
type MutationStrategy[C Chromosome] interface {
	Mutate(ctx context.Context, c C) (C, error)
}

type MutationFunc[C Chromosome] func(ctx context.Context, c C) (C, error)

func (f MutationFunc[C]) Mutate(ctx context.Context, c C) (C, error) { return f(ctx, c) }

// MatesSelector chooses the co-parents of parent1 from candidates. The
// engine keeps re-offering the population on candidates (cyclically) until
// the selector returns or ctx is done; candidates is closed when ctx ends.
// The returned slice must not contain parent1.
type MatesSelector[C Chromosome] interface {
	SelectMates(ctx context.Context, parent1 C, candidates <-chan C) ([]C, error)
}

type MatesFunc[C Chromosome] func(ctx context.Context, parent1 C, candidates <-chan C) ([]C, error)

func (f MatesFunc[C]) SelectMates(ctx context.Context, parent1 C, candidates <-chan C) ([]C, error) {
	return f(ctx, parent1, candidates)
}

// CrossoverStrategy recombines a complete parent set (parent1 first) into
// zero or more offspring.
type CrossoverStrategy[C Chromosome] interface {
	Crossover(ctx context.Context, parents []C) ([]C, error)
}

type CrossoverFunc[C Chromosome] func(ctx context.Context, parents []C) ([]C, error)

func (f CrossoverFunc[C]) Crossover(ctx context.Context, parents []C) ([]C, error) {
	return f(ctx, parents)
}

// SelectionStrategy cuts the buffer down to the survivors of a generation.
// The buffer starts with the aged elite; strategies that want to keep the
// elite rely on that ordering.
type SelectionStrategy[C Chromosome] interface {
	Select(ctx context.Context, buffer []C) ([]C, error)
}

type SelectionFunc[C Chromosome] func(ctx context.Context, buffer []C) ([]C, error)

func (f SelectionFunc[C]) Select(ctx context.Context, buffer []C) ([]C, error) {
	return f(ctx, buffer)
}

// TerminationCondition decides when a run ends.
type TerminationCondition[C Chromosome] interface {
	ShouldTerminate(population *Population[C], iteration int, elapsed time.Duration) bool
}

type TerminationFunc[C Chromosome] func(population *Population[C], iteration int, elapsed time.Duration) bool

func (f TerminationFunc[C]) ShouldTerminate(population *Population[C], iteration int, elapsed time.Duration) bool {
	return f(population, iteration, elapsed)
}

// FitnessFunction evaluates encoded genetic data.
type FitnessFunction[D any] interface {
	Evaluate(data D) (Fitness, error)
}

type FitnessFunc[D any] func(data D) (Fitness, error)

func (f FitnessFunc[D]) Evaluate(data D) (Fitness, error) { return f(data) }
