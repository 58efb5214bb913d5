package evo

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PopulationStats aggregates one generation.
type PopulationStats struct {
	Size          int     `json:"size"`
	EliteCount    int     `json:"elite_count"`
	MinAge        int     `json:"min_age"`
	MaxAge        int     `json:"max_age"`
	AvgAge        float64 `json:"avg_age"`
	MinGeneration int     `json:"min_generation"`
	MaxGeneration int     `json:"max_generation"`
	AvgGeneration float64 `json:"avg_generation"`
	MinFitness    Fitness `json:"min_fitness"`
	MaxFitness    Fitness `json:"max_fitness"`
	AvgFitness    Fitness `json:"avg_fitness"`
}

// ComputeStats reduces chromosomes into PopulationStats. An empty input
// yields zero values and MinFitness for every fitness field.
func ComputeStats[C Chromosome](chromosomes []C, eliteCount int) PopulationStats {
	out := PopulationStats{
		Size:       len(chromosomes),
		EliteCount: eliteCount,
		MinFitness: MinFitness(),
		MaxFitness: MinFitness(),
		AvgFitness: MinFitness(),
	}
	if len(chromosomes) == 0 {
		return out
	}

	ages := make([]float64, len(chromosomes))
	generations := make([]float64, len(chromosomes))
	fitness := make([]float64, len(chromosomes))
	for i, c := range chromosomes {
		ages[i] = float64(c.Age())
		generations[i] = float64(c.Generation())
		fitness[i] = c.Fitness().Value()
	}

	out.MinAge = int(floats.Min(ages))
	out.MaxAge = int(floats.Max(ages))
	out.AvgAge = clamp(stat.Mean(ages, nil), float64(out.MinAge), float64(out.MaxAge))

	out.MinGeneration = int(floats.Min(generations))
	out.MaxGeneration = int(floats.Max(generations))
	out.AvgGeneration = clamp(stat.Mean(generations, nil), float64(out.MinGeneration), float64(out.MaxGeneration))

	minFit := floats.Min(fitness)
	maxFit := floats.Max(fitness)
	out.MinFitness = Fitness{value: minFit}
	out.MaxFitness = Fitness{value: maxFit}
	out.AvgFitness = Fitness{value: clamp(stat.Mean(fitness, nil), minFit, maxFit)}
	return out
}

// clamp absorbs float rounding so that min <= avg <= max always holds.
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
