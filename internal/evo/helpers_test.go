package evo

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

type testChromosome struct {
	data       string
	fitness    Fitness
	age        int
	generation int
}

func (c *testChromosome) Fingerprint() string { return c.data }
func (c *testChromosome) Fitness() Fitness { return c.fitness }
func (c *testChromosome) Age() int { return c.age }
func (c *testChromosome) Generation() int { return c.generation }
func (c *testChromosome) Parents() []Chromosome { return nil }
func (c *testChromosome) String() string { return c.data }

func newTestChromosome(data string, fitness float64) *testChromosome {
	return &testChromosome{data: data, fitness: MustFitness(fitness)}
}

type testBuilder struct {
	c   testChromosome
	set bool
}

func newTestBuilder() ChromosomeBuilder[*testChromosome] { return &testBuilder{} }

func (b *testBuilder) From(c *testChromosome) ChromosomeBuilder[*testChromosome] {
	b.c = *c
	b.set = true
	return b
}

func (b *testBuilder) WithAge(age int) ChromosomeBuilder[*testChromosome] {
	b.c.age = age
	return b
}

func (b *testBuilder) WithGeneration(generation int) ChromosomeBuilder[*testChromosome] {
	b.c.generation = generation
	return b
}

func (b *testBuilder) Build() (*testChromosome, error) {
	if !b.set {
		return nil, fmt.Errorf("%w: no data", ErrIllegalState)
	}
	if b.c.age < 0 || b.c.generation < 0 {
		return nil, fmt.Errorf("%w: negative metadata", ErrInvalidArgument)
	}
	out := b.c
	return &out, nil
}

// sequentialAppearance yields a1, a2, ... with a fitness fixed per
// fingerprint.
func sequentialAppearance() AppearanceFunc[*testChromosome] {
	var n atomic.Int64
	return func(ctx context.Context) (*testChromosome, error) {
		i := n.Add(1)
		return newTestChromosome(fmt.Sprintf("a%d", i), float64(i%97)/97), nil
	}
}

func never() PredicateFunc[*testChromosome] {
	return func(*testChromosome) bool { return false }
}

func takeFirst(n int) SelectionFunc[*testChromosome] {
	return func(ctx context.Context, buffer []*testChromosome) ([]*testChromosome, error) {
		if len(buffer) < n {
			return buffer, nil
		}
		return buffer[:n], nil
	}
}

func builderFactory(size, elite int) func() *PopulationBuilder[*testChromosome] {
	return func() *PopulationBuilder[*testChromosome] {
		return NewPopulationBuilder[*testChromosome]().WithSize(size).WithEliteCount(elite)
	}
}

func noMates() MatesFunc[*testChromosome] {
	return func(ctx context.Context, parent1 *testChromosome, candidates <-chan *testChromosome) ([]*testChromosome, error) {
		return nil, nil
	}
}

func noOffspring() CrossoverFunc[*testChromosome] {
	return func(ctx context.Context, parents []*testChromosome) ([]*testChromosome, error) {
		return nil, nil
	}
}

func identityMutation() MutationFunc[*testChromosome] {
	return func(ctx context.Context, c *testChromosome) (*testChromosome, error) { return c, nil }
}

// quietConfig selects nothing for mutation or crossover and keeps the first
// size buffer entries.
func quietConfig(size, elite, bufferSize int) Config[*testChromosome] {
	return Config[*testChromosome]{
		Name:                 "test",
		Termination:          TerminationFunc[*testChromosome](func(*Population[*testChromosome], int, time.Duration) bool { return false }),
		Appearance:           sequentialAppearance(),
		NewPopulationBuilder: builderFactory(size, elite),
		MutationSelector:     never(),
		Mutation:             identityMutation(),
		Parent1Selector:      never(),
		MatesSelector:        noMates(),
		Crossover:            noOffspring(),
		Selection:            takeFirst(size),
		NewChromosomeBuilder: newTestBuilder,
		BufferSize:           bufferSize,
		Workers:              4,
	}
}

func buildPopulation(t *testing.T, elite int, chromosomes ...*testChromosome) *Population[*testChromosome] {
	t.Helper()
	pop, err := NewPopulationBuilder[*testChromosome]().
		Include(chromosomes...).
		WithSize(len(chromosomes)).
		WithEliteCount(elite).
		Build(context.Background())
	if err != nil {
		t.Fatalf("build population: %v", err)
	}
	return pop
}
