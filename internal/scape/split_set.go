package scape

import (
	"fmt"
	"math"
	"math/rand"

	"evolvekit/internal/evo"
	"evolvekit/internal/strategy"
)

const (
	minItemWeight = 1
	maxItemWeight = 29
)

// SplitSet partitions weighted items into two subsets of equal total
// weight. Bit i set puts item i into the first subset. Fitness is
// 1 - |w1-w2| / total.
type SplitSet struct {
	weights []int
	total   int64
}

// NewSplitSet draws n item weights in [1, 29] from seed.
func NewSplitSet(n int, seed int64) (*SplitSet, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: item count %d <= 0", evo.ErrInvalidArgument, n)
	}
	rng := rand.New(rand.NewSource(seed))
	weights := make([]int, n)
	for i := range weights {
		weights[i] = minItemWeight + rng.Intn(maxItemWeight-minItemWeight+1)
	}
	return NewSplitSetWeights(weights)
}

func NewSplitSetWeights(weights []int) (*SplitSet, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no item weights", evo.ErrInvalidArgument)
	}
	var total int64
	for i, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("%w: weight %d at index %d <= 0", evo.ErrInvalidArgument, w, i)
		}
		total += int64(w)
	}
	return &SplitSet{weights: append([]int(nil), weights...), total: total}, nil
}

func (*SplitSet) Name() string { return "split-set" }

func (s *SplitSet) Length() int { return len(s.weights) }

func (s *SplitSet) Weights() []int { return append([]int(nil), s.weights...) }

func (s *SplitSet) Random(rng *strategy.Rand) []bool {
	bits := make([]bool, len(s.weights))
	for i := range bits {
		bits[i] = rng.Bool()
	}
	return bits
}

func (s *SplitSet) Evaluate(bits []bool) (evo.Fitness, error) {
	if len(bits) != len(s.weights) {
		return evo.Fitness{}, fmt.Errorf("%w: genome length %d, want %d", evo.ErrInvalidArgument, len(bits), len(s.weights))
	}
	var first int64
	for i, in := range bits {
		if in {
			first += int64(s.weights[i])
		}
	}
	second := s.total - first
	diff := math.Abs(float64(first-second)) / float64(s.total)
	return evo.NewFitness(1 - diff)
}

// OneMax rewards the share of set bits.
type OneMax struct {
	length int
}

func NewOneMax(n int) (*OneMax, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: genome length %d <= 0", evo.ErrInvalidArgument, n)
	}
	return &OneMax{length: n}, nil
}

func (*OneMax) Name() string { return "one-max" }

func (o *OneMax) Length() int { return o.length }

func (o *OneMax) Random(rng *strategy.Rand) []bool {
	bits := make([]bool, o.length)
	for i := range bits {
		bits[i] = rng.Bool()
	}
	return bits
}

func (o *OneMax) Evaluate(bits []bool) (evo.Fitness, error) {
	if len(bits) != o.length {
		return evo.Fitness{}, fmt.Errorf("%w: genome length %d, want %d", evo.ErrInvalidArgument, len(bits), o.length)
	}
	ones := 0
	for _, b := range bits {
		if b {
			ones++
		}
	}
	return evo.NewFitness(float64(ones) / float64(o.length))
}
