package scape

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"evolvekit/internal/evo"
	"evolvekit/internal/genotype"
	"evolvekit/internal/strategy"
)

// Scape is a problem domain over bit genomes: how long a genome is, how to
// draw a random one and how fit a genome is.
type Scape interface {
	Name() string
	Length() int
	Random(rng *strategy.Rand) []bool
	Evaluate(bits []bool) (evo.Fitness, error)
}

// Params tunes a run of the stock bit-genome engine.
type Params struct {
	Items          int           `yaml:"items" json:"items" validate:"gt=0"`
	PopulationSize int           `yaml:"population_size" json:"population_size" validate:"gt=0"`
	EliteCount     int           `yaml:"elite_count" json:"elite_count" validate:"gte=0,ltefield=PopulationSize"`
	BufferSize     int           `yaml:"buffer_size" json:"buffer_size" validate:"gtefield=PopulationSize"`
	MutationRate   float64       `yaml:"mutation_rate" json:"mutation_rate" validate:"gte=0,lte=1"`
	CrossoverRate  float64       `yaml:"crossover_rate" json:"crossover_rate" validate:"gte=0,lte=1"`
	Similarity     float64       `yaml:"similarity" json:"similarity" validate:"gte=0,lte=1"`
	MaxIterations  int           `yaml:"max_iterations" json:"max_iterations" validate:"gte=0"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" validate:"gte=0"`
	MatesTimeout   time.Duration `yaml:"mates_timeout" json:"mates_timeout" validate:"gte=0"`
	Workers        int           `yaml:"workers" json:"workers" validate:"gte=0"`
	Seed           int64         `yaml:"seed" json:"seed"`
}

// Map flattens the params for run records.
func (p Params) Map() map[string]string {
	return map[string]string{
		"items":           strconv.Itoa(p.Items),
		"population_size": strconv.Itoa(p.PopulationSize),
		"elite_count":     strconv.Itoa(p.EliteCount),
		"buffer_size":     strconv.Itoa(p.BufferSize),
		"mutation_rate":   strconv.FormatFloat(p.MutationRate, 'g', -1, 64),
		"crossover_rate":  strconv.FormatFloat(p.CrossoverRate, 'g', -1, 64),
		"similarity":      strconv.FormatFloat(p.Similarity, 'g', -1, 64),
		"max_iterations":  strconv.Itoa(p.MaxIterations),
		"timeout":         p.Timeout.String(),
		"mates_timeout":   p.MatesTimeout.String(),
		"workers":         strconv.Itoa(p.Workers),
		"seed":            strconv.FormatInt(p.Seed, 10),
	}
}

// DefaultParams mirrors the classic split-set demo: 150 chromosomes, a
// buffer 1.7 times that, mutation rate 0.3, crossover rate 0.2 and mates
// close to 75% similarity.
func DefaultParams() Params {
	return Params{
		Items:          1000,
		PopulationSize: 150,
		EliteCount:     0,
		BufferSize:     255,
		MutationRate:   0.3,
		CrossoverRate:  0.2,
		Similarity:     0.75,
		MaxIterations:  500,
		Timeout:        time.Minute,
		MatesTimeout:   evo.DefaultMatesTimeout,
	}
}

// EngineConfig wires the stock strategies for s: random appearance,
// single-bit mutation, single-point crossover with similarity mates, top-N
// selection and termination on perfect fitness, MaxIterations or Timeout
// (the last two only when positive).
func EngineConfig(s Scape, p Params) evo.Config[strategy.BitGenome] {
	rng := strategy.NewRand(p.Seed)
	fitness := evo.FitnessFunc[[]bool](s.Evaluate)
	newBuilder := func() *genotype.Builder[[]bool] {
		return genotype.NewBuilder[[]bool](genotype.BitsCodec{}, fitness)
	}

	stops := []evo.TerminationCondition[strategy.BitGenome]{
		strategy.FitnessGoal[strategy.BitGenome](evo.MaxFitness()),
	}
	if p.MaxIterations > 0 {
		stops = append(stops, strategy.MaxIterations[strategy.BitGenome](p.MaxIterations))
	}
	if p.Timeout > 0 {
		stops = append(stops, strategy.Timeout[strategy.BitGenome](p.Timeout))
	}

	appearance := evo.AppearanceFunc[strategy.BitGenome](func(ctx context.Context) (strategy.BitGenome, error) {
		return newBuilder().WithData(s.Random(rng)).Build()
	})

	return evo.Config[strategy.BitGenome]{
		Name:        s.Name(),
		Properties:  map[string]string{"scape": s.Name(), "items": fmt.Sprint(s.Length())},
		Termination: strategy.Any(stops...),
		Appearance:  appearance,
		// Survivors lost to duplicate fingerprints are refilled with fresh
		// random genomes.
		NewPopulationBuilder: func() *evo.PopulationBuilder[strategy.BitGenome] {
			return evo.NewPopulationBuilder[strategy.BitGenome]().
				WithSize(p.PopulationSize).
				WithEliteCount(p.EliteCount).
				WithAppearance(appearance)
		},
		MutationSelector:     strategy.Probability[strategy.BitGenome](p.MutationRate, rng),
		Mutation:             strategy.FlipBit{NewBuilder: newBuilder, Rand: rng},
		Parent1Selector:      strategy.Probability[strategy.BitGenome](p.CrossoverRate, rng),
		MatesSelector:        strategy.SimilarityMates{Window: max(p.PopulationSize-1, 1), Target: p.Similarity},
		Crossover:            strategy.SinglePoint{NewBuilder: newBuilder, Rand: rng},
		Selection:            strategy.TopN[strategy.BitGenome](p.PopulationSize),
		NewChromosomeBuilder: genotype.NewFactory[[]bool](genotype.BitsCodec{}, fitness),
		BufferSize:           p.BufferSize,
		MatesTimeout:         p.MatesTimeout,
		Workers:              p.Workers,
	}
}

type factory func(p Params) (Scape, error)

var registry = map[string]factory{
	"split-set": func(p Params) (Scape, error) { return NewSplitSet(p.Items, p.Seed) },
	"one-max":   func(p Params) (Scape, error) { return NewOneMax(p.Items) },
}

// New builds the scape registered under name, after Normalize.
func New(name string, p Params) (Scape, error) {
	f, ok := registry[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown scape %q (known: %v)", evo.ErrInvalidArgument, name, Names())
	}
	return f(p)
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
