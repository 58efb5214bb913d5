package evo

import "sort"

// Population is one generation's immutable snapshot, ordered by fitness
// descending. The first EliteCount chromosomes are the elite.
type Population[C Chromosome] struct {
	chromosomes []C
	eliteCount  int
	stats       PopulationStats
}

func newPopulation[C Chromosome](chromosomes []C, eliteCount int) *Population[C] {
	return &Population[C]{
		chromosomes: chromosomes,
		eliteCount:  eliteCount,
		stats:       ComputeStats(chromosomes, eliteCount),
	}
}

func (p *Population[C]) Len() int { return len(p.chromosomes) }

func (p *Population[C]) EliteCount() int { return p.eliteCount }

func (p *Population[C]) At(i int) C { return p.chromosomes[i] }

// Chromosomes returns a copy of the ordered chromosomes.
func (p *Population[C]) Chromosomes() []C {
	return append([]C(nil), p.chromosomes...)
}

func (p *Population[C]) Elite() []C {
	return append([]C(nil), p.chromosomes[:p.eliteCount]...)
}

func (p *Population[C]) Rest() []C {
	return append([]C(nil), p.chromosomes[p.eliteCount:]...)
}

// Fittest returns the front element; ok is false for an empty population.
func (p *Population[C]) Fittest() (C, bool) {
	if len(p.chromosomes) == 0 {
		var zero C
		return zero, false
	}
	return p.chromosomes[0], true
}

func (p *Population[C]) Stats() PopulationStats { return p.stats }

func sortByFitnessDesc[C Chromosome](chromosomes []C) {
	sort.SliceStable(chromosomes, func(i, j int) bool {
		return chromosomes[i].Fitness().Compare(chromosomes[j].Fitness()) > 0
	})
}
