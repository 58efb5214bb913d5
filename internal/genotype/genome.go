package genotype

import (
	"errors"
	"fmt"

	"evolvekit/internal/evo"
)

// Genome is the stock immutable chromosome: genetic data of type D plus
// fitness, age, generation and lineage.
type Genome[D any] struct {
	data        D
	codec       Codec[D]
	fingerprint string
	fitness     evo.Fitness
	age         int
	generation  int
	parents     []evo.Chromosome
}

// Data returns a copy of the genetic data.
func (g *Genome[D]) Data() D { return g.codec.Clone(g.data) }

func (g *Genome[D]) Fingerprint() string { return g.fingerprint }

func (g *Genome[D]) Fitness() evo.Fitness { return g.fitness }

func (g *Genome[D]) Age() int { return g.age }

func (g *Genome[D]) Generation() int { return g.generation }

func (g *Genome[D]) Parents() []evo.Chromosome {
	return append([]evo.Chromosome(nil), g.parents...)
}

func (g *Genome[D]) String() string {
	return fmt.Sprintf("genome(%.8s fitness=%s age=%d gen=%d)", g.fingerprint, g.fitness, g.age, g.generation)
}

// Builder creates genomes. The fitness is taken from WithFitness when given,
// otherwise it is evaluated through the fitness function at Build time.
// Builders are single use and not safe for concurrent use.
type Builder[D any] struct {
	codec       Codec[D]
	fitnessFunc evo.FitnessFunction[D]
	data        D
	hasData     bool
	fitness     evo.Fitness
	hasFitness  bool
	age         int
	generation  int
	parents     []evo.Chromosome
	errs        []error
}

func NewBuilder[D any](codec Codec[D], fitnessFunc evo.FitnessFunction[D]) *Builder[D] {
	b := &Builder[D]{codec: codec, fitnessFunc: fitnessFunc}
	if codec == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: codec is required", evo.ErrIllegalState))
	}
	return b
}

// NewFactory returns the builder factory the engine uses to age genomes.
func NewFactory[D any](codec Codec[D], fitnessFunc evo.FitnessFunction[D]) evo.BuilderFactory[*Genome[D]] {
	return func() evo.ChromosomeBuilder[*Genome[D]] {
		return NewBuilder(codec, fitnessFunc)
	}
}

func (b *Builder[D]) WithData(data D) *Builder[D] {
	if b.codec != nil {
		data = b.codec.Clone(data)
	}
	b.data, b.hasData = data, true
	b.hasFitness = false
	return b
}

func (b *Builder[D]) WithFitness(fitness evo.Fitness) *Builder[D] {
	b.fitness, b.hasFitness = fitness, true
	return b
}

// WithFitnessFunc replaces the fitness function given to NewBuilder. A
// fitness set through WithFitness or copied by From still takes precedence.
func (b *Builder[D]) WithFitnessFunc(f evo.FitnessFunction[D]) *Builder[D] {
	if f == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: fitness function is nil", evo.ErrInvalidArgument))
		return b
	}
	b.fitnessFunc = f
	return b
}

func (b *Builder[D]) WithParent(parents ...evo.Chromosome) *Builder[D] {
	for _, p := range parents {
		if p == nil {
			b.errs = append(b.errs, fmt.Errorf("%w: parent is nil", evo.ErrInvalidArgument))
			continue
		}
		b.parents = append(b.parents, p)
	}
	return b
}

// From copies data, metadata, lineage and the already known fitness of g.
func (b *Builder[D]) From(g *Genome[D]) evo.ChromosomeBuilder[*Genome[D]] {
	if g == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: source genome is nil", evo.ErrInvalidArgument))
		return b
	}
	b.WithData(g.data)
	b.fitness, b.hasFitness = g.fitness, true
	b.age = g.age
	b.generation = g.generation
	b.parents = append([]evo.Chromosome(nil), g.parents...)
	return b
}

func (b *Builder[D]) WithAge(age int) evo.ChromosomeBuilder[*Genome[D]] {
	if age < 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: age %d < 0", evo.ErrInvalidArgument, age))
		return b
	}
	b.age = age
	return b
}

func (b *Builder[D]) WithGeneration(generation int) evo.ChromosomeBuilder[*Genome[D]] {
	if generation < 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: generation %d < 0", evo.ErrInvalidArgument, generation))
		return b
	}
	b.generation = generation
	return b
}

func (b *Builder[D]) Build() (*Genome[D], error) {
	errs := append([]error(nil), b.errs...)
	if !b.hasData {
		errs = append(errs, fmt.Errorf("%w: genetic data is required", evo.ErrIllegalState))
	}
	if !b.hasFitness && b.fitnessFunc == nil {
		errs = append(errs, fmt.Errorf("%w: fitness or fitness function is required", evo.ErrIllegalState))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	fitness := b.fitness
	if !b.hasFitness {
		var err error
		fitness, err = b.fitnessFunc.Evaluate(b.data)
		if err != nil {
			return nil, fmt.Errorf("evaluate fitness: %w", err)
		}
	}
	return &Genome[D]{
		data:        b.data,
		codec:       b.codec,
		fingerprint: ComputeFingerprint(b.codec, b.data),
		fitness:     fitness,
		age:         b.age,
		generation:  b.generation,
		parents:     b.parents,
	}, nil
}
