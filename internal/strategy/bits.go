package strategy

import (
	"context"
	"fmt"
	"math"

	"evolvekit/internal/evo"
	"evolvekit/internal/genotype"
)

// BitGenome is the chromosome the bit strategies operate on.
type BitGenome = *genotype.Genome[[]bool]

// BitBuilderFunc returns a fresh genome builder carrying codec and fitness
// function.
type BitBuilderFunc func() *genotype.Builder[[]bool]

// FlipBit flips one random bit. The mutant starts at age 0, one generation
// after its source.
type FlipBit struct {
	NewBuilder BitBuilderFunc
	Rand       *Rand
}

func (m FlipBit) Mutate(ctx context.Context, g BitGenome) (BitGenome, error) {
	bits := g.Data()
	if len(bits) == 0 {
		return nil, fmt.Errorf("%w: cannot flip a bit of empty genome %s", evo.ErrInvalidArgument, g.Fingerprint())
	}
	i := m.Rand.Intn(len(bits))
	bits[i] = !bits[i]
	b := m.NewBuilder().WithData(bits)
	b.WithGeneration(g.Generation() + 1)
	return b.Build()
}

const (
	defaultSplitMean   = 0.5
	defaultSplitSpread = 0.18
)

// SinglePoint recombines exactly two parents into one offspring. The split
// point is drawn from a normal distribution over the relative genome length
// (Mean, Spread), redrawn until it falls inside [0, 1]. Which parent
// contributes the head is chosen at random.
type SinglePoint struct {
	NewBuilder BitBuilderFunc
	Rand       *Rand
	Mean       float64
	Spread     float64
}

func (s SinglePoint) Crossover(ctx context.Context, parents []BitGenome) ([]BitGenome, error) {
	if len(parents) != 2 {
		return nil, fmt.Errorf("%w: single point crossover needs 2 parents, got %d", evo.ErrInvalidArgument, len(parents))
	}
	head, tail := parents[0], parents[1]
	if s.Rand.Bool() {
		head, tail = tail, head
	}
	headBits, tailBits := head.Data(), tail.Data()
	if len(headBits) != len(tailBits) {
		return nil, fmt.Errorf("%w: parent lengths differ: %d and %d", evo.ErrInvalidArgument, len(headBits), len(tailBits))
	}

	split := s.splitPoint(len(headBits))
	child := make([]bool, len(headBits))
	copy(child[:split], headBits[:split])
	copy(child[split:], tailBits[split:])

	b := s.NewBuilder().WithData(child)
	b.WithGeneration(max(head.Generation(), tail.Generation()))
	offspring, err := b.Build()
	if err != nil {
		return nil, err
	}
	return []BitGenome{offspring}, nil
}

func (s SinglePoint) splitPoint(n int) int {
	mean, spread := s.Mean, s.Spread
	if mean == 0 && spread == 0 {
		mean, spread = defaultSplitMean, defaultSplitSpread
	}
	for {
		v := s.Rand.NormFloat64()*spread + mean
		if v >= 0 && v <= 1 {
			return int(math.Floor(v * float64(n)))
		}
	}
}

// Similarity is the share of equal positions of two bit genomes.
func Similarity(a, b BitGenome) float64 {
	x, y := a.Data(), b.Data()
	n := max(len(x), len(y))
	if n == 0 {
		return 1
	}
	return float64(n-genotype.Hamming(x, y)) / float64(n)
}

// SimilarityMates looks at Window candidates other than parent1 and picks
// the one whose similarity to parent1 is closest to Target.
type SimilarityMates struct {
	Window int
	Target float64
}

func (s SimilarityMates) SelectMates(ctx context.Context, parent1 BitGenome, candidates <-chan BitGenome) ([]BitGenome, error) {
	if s.Window <= 0 {
		return nil, fmt.Errorf("%w: similarity window %d <= 0", evo.ErrInvalidArgument, s.Window)
	}
	var best BitGenome
	bestDistance := math.Inf(1)
	for seen := 0; seen < s.Window; {
		c, ok := <-candidates
		if !ok {
			break
		}
		if c.Fingerprint() == parent1.Fingerprint() {
			continue
		}
		seen++
		if d := math.Abs(Similarity(parent1, c) - s.Target); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	if best == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("no mate candidate for %s", parent1.Fingerprint())
	}
	return []BitGenome{best}, nil
}
