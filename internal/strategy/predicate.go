package strategy

import "evolvekit/internal/evo"

func Always[C evo.Chromosome]() evo.PredicateFunc[C] {
	return func(C) bool { return true }
}

func Never[C evo.Chromosome]() evo.PredicateFunc[C] {
	return func(C) bool { return false }
}

// Probability selects each chromosome independently with probability p.
func Probability[C evo.Chromosome](p float64, rng *Rand) evo.PredicateFunc[C] {
	return func(C) bool { return rng.Float64() < p }
}
