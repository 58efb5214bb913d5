package evo

import (
	"context"
	"errors"
	"fmt"
)

const (
	appearanceDrawFactor   = 8
	minAppearanceDrawLimit = 64
)

// PopulationBuilder assembles a Population from an explicit include set, a
// primary source and an appearance source. It is not safe for concurrent
// use; the engine asks its factory for a fresh builder every generation.
type PopulationBuilder[C Chromosome] struct {
	include          []C
	source           []C
	appearance       AppearanceSource[C]
	deny             map[string]struct{}
	removeDuplicates bool
	size             int
	sizeSet          bool
	eliteCount       int
	eliteSet         bool
	appearanceLimit  int
	errs             []error
}

func NewPopulationBuilder[C Chromosome]() *PopulationBuilder[C] {
	return &PopulationBuilder[C]{
		deny:             make(map[string]struct{}),
		removeDuplicates: true,
	}
}

// From resets the builder to reproduce population: same size, elite count
// and chromosomes as the primary source.
func (b *PopulationBuilder[C]) From(population *Population[C]) *PopulationBuilder[C] {
	if population == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: population is nil", ErrInvalidArgument))
		return b
	}
	b.include = nil
	b.deny = make(map[string]struct{})
	b.source = population.Chromosomes()
	b.size, b.sizeSet = population.Len(), true
	b.eliteCount, b.eliteSet = population.EliteCount(), true
	return b
}

// Include adds chromosomes that are enumerated before any other source.
func (b *PopulationBuilder[C]) Include(chromosomes ...C) *PopulationBuilder[C] {
	for _, c := range chromosomes {
		if isNil(c) {
			b.errs = append(b.errs, fmt.Errorf("%w: included chromosome is nil", ErrInvalidArgument))
			continue
		}
		b.include = append(b.include, c)
	}
	return b
}

// Deny excludes chromosomes, matched by fingerprint, from every source.
func (b *PopulationBuilder[C]) Deny(chromosomes ...C) *PopulationBuilder[C] {
	for _, c := range chromosomes {
		if isNil(c) {
			b.errs = append(b.errs, fmt.Errorf("%w: denied chromosome is nil", ErrInvalidArgument))
			continue
		}
		b.deny[c.Fingerprint()] = struct{}{}
	}
	return b
}

func (b *PopulationBuilder[C]) WithSource(chromosomes []C) *PopulationBuilder[C] {
	b.source = chromosomes
	return b
}

func (b *PopulationBuilder[C]) WithAppearance(source AppearanceSource[C]) *PopulationBuilder[C] {
	b.appearance = source
	return b
}

func (b *PopulationBuilder[C]) RemoveDuplicates(remove bool) *PopulationBuilder[C] {
	b.removeDuplicates = remove
	return b
}

func (b *PopulationBuilder[C]) WithSize(size int) *PopulationBuilder[C] {
	if size < 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: size %d < 0", ErrInvalidArgument, size))
		return b
	}
	b.size, b.sizeSet = size, true
	return b
}

func (b *PopulationBuilder[C]) WithEliteCount(eliteCount int) *PopulationBuilder[C] {
	if eliteCount < 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: elite count %d < 0", ErrInvalidArgument, eliteCount))
		return b
	}
	b.eliteCount, b.eliteSet = eliteCount, true
	return b
}

// WithAppearanceLimit bounds how many chromosomes are drawn from the
// appearance source in one build. Zero selects the default.
func (b *PopulationBuilder[C]) WithAppearanceLimit(limit int) *PopulationBuilder[C] {
	if limit < 0 {
		b.errs = append(b.errs, fmt.Errorf("%w: appearance limit %d < 0", ErrInvalidArgument, limit))
		return b
	}
	b.appearanceLimit = limit
	return b
}

func (b *PopulationBuilder[C]) Size() int { return b.size }

func (b *PopulationBuilder[C]) EliteCount() int { return b.eliteCount }

func (b *PopulationBuilder[C]) validate() error {
	errs := append([]error(nil), b.errs...)
	if !b.sizeSet {
		errs = append(errs, fmt.Errorf("%w: population size is not configured", ErrIllegalState))
	}
	if !b.eliteSet {
		errs = append(errs, fmt.Errorf("%w: elite count is not configured", ErrIllegalState))
	}
	if b.sizeSet && b.eliteSet && b.eliteCount > b.size {
		errs = append(errs, fmt.Errorf("%w: elite count %d > size %d", ErrIllegalState, b.eliteCount, b.size))
	}
	return errors.Join(errs...)
}

// Build enumerates include set, primary source and appearance source in
// that order, drops denied and (optionally) duplicate fingerprints, keeps
// the first Size chromosomes and sorts them by fitness descending.
func (b *PopulationBuilder[C]) Build(ctx context.Context) (*Population[C], error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	out := make([]C, 0, b.size)
	seen := make(map[string]struct{}, b.size)
	accept := func(c C) error {
		if isNil(c) {
			return fmt.Errorf("%w: source yielded nil chromosome", ErrInvalidArgument)
		}
		fp := c.Fingerprint()
		if _, denied := b.deny[fp]; denied {
			return nil
		}
		if b.removeDuplicates {
			if _, dup := seen[fp]; dup {
				return nil
			}
			seen[fp] = struct{}{}
		}
		out = append(out, c)
		return nil
	}

	for _, group := range [][]C{b.include, b.source} {
		for _, c := range group {
			if len(out) >= b.size {
				break
			}
			if err := accept(c); err != nil {
				return nil, err
			}
		}
	}

	if len(out) < b.size && b.appearance != nil {
		limit := b.appearanceLimit
		if limit == 0 {
			limit = max(appearanceDrawFactor*b.size, minAppearanceDrawLimit)
		}
		for draws := 0; len(out) < b.size && draws < limit; draws++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c, err := b.appearance.Appear(ctx)
			if err != nil {
				return nil, fmt.Errorf("appear chromosome: %w", err)
			}
			if err := accept(c); err != nil {
				return nil, err
			}
		}
	}

	if len(out) < b.size {
		return nil, fmt.Errorf("%w: assembled %d of %d", ErrInsufficientChromosomes, len(out), b.size)
	}

	sortByFitnessDesc(out)
	return newPopulation(out, b.eliteCount), nil
}

func isNil[C any](c C) bool {
	return any(c) == nil
}
