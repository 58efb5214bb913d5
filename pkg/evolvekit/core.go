// Package evolvekit exposes the generic evolutionary engine and a client
// that runs and records the stock bit-genome scapes.
package evolvekit

import (
	"evolvekit/internal/evo"
	"evolvekit/internal/genotype"
	"evolvekit/internal/model"
	"evolvekit/internal/scape"
	"evolvekit/internal/strategy"
)

type (
	Chromosome                   = evo.Chromosome
	Fitness                      = evo.Fitness
	PopulationStats              = evo.PopulationStats
	Observer                     = evo.Observer
	RunStatus                    = evo.RunStatus
	Engine[C evo.Chromosome]     = evo.Engine[C]
	Config[C evo.Chromosome]     = evo.Config[C]
	Pipeline[C evo.Chromosome]   = evo.Pipeline[C]
	Population[C evo.Chromosome] = evo.Population[C]
	Result[C evo.Chromosome]     = evo.Result[C]

	PopulationBuilder[C evo.Chromosome]    = evo.PopulationBuilder[C]
	ChromosomeBuilder[C evo.Chromosome]    = evo.ChromosomeBuilder[C]
	BuilderFactory[C evo.Chromosome]       = evo.BuilderFactory[C]
	AppearanceSource[C evo.Chromosome]     = evo.AppearanceSource[C]
	SelectionPredicate[C evo.Chromosome]   = evo.SelectionPredicate[C]
	MutationStrategy[C evo.Chromosome]     = evo.MutationStrategy[C]
	MatesSelector[C evo.Chromosome]        = evo.MatesSelector[C]
	CrossoverStrategy[C evo.Chromosome]    = evo.CrossoverStrategy[C]
	SelectionStrategy[C evo.Chromosome]    = evo.SelectionStrategy[C]
	TerminationCondition[C evo.Chromosome] = evo.TerminationCondition[C]

	Genome[D any]    = genotype.Genome[D]
	BitGenome        = strategy.BitGenome
	Params           = scape.Params
	RunRecord        = model.RunRecord
	GenerationRecord = model.GenerationRecord
	ResultRecord     = model.ResultRecord
)

const (
	RunStatusRunning    = evo.RunStatusRunning
	RunStatusTerminated = evo.RunStatusTerminated
	RunStatusFailed     = evo.RunStatusFailed
	RunStatusStopped    = evo.RunStatusStopped
)

var (
	ErrInvalidArgument         = evo.ErrInvalidArgument
	ErrIllegalState            = evo.ErrIllegalState
	ErrTimeout                 = evo.ErrTimeout
	ErrPipelineFailure         = evo.ErrPipelineFailure
	ErrInsufficientChromosomes = evo.ErrInsufficientChromosomes
	ErrStopped                 = evo.ErrStopped
)

// NewEngine validates cfg and returns an idle engine.
func NewEngine[C evo.Chromosome](cfg Config[C]) (*Engine[C], error) {
	return evo.NewEngine(cfg)
}

func NewPipeline[C evo.Chromosome](cfg Config[C]) (*Pipeline[C], error) {
	return evo.NewPipeline(cfg)
}

func NewPopulationBuilder[C evo.Chromosome]() *PopulationBuilder[C] {
	return evo.NewPopulationBuilder[C]()
}

func NewFitness(v float64) (Fitness, error) { return evo.NewFitness(v) }

func DefaultParams() Params { return scape.DefaultParams() }

// Scapes lists the problem domains RunRequest.Scape accepts.
func Scapes() []string { return scape.Names() }

// NormalizeScape folds case, separators and a "scape-" prefix so aliases such
// as "Split_Set" resolve to a name Scapes reports.
func NormalizeScape(name string) string { return scape.Normalize(name) }
