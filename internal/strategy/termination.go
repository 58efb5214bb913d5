package strategy

import (
	"time"

	"evolvekit/internal/evo"
)

// MaxIterations fires once iteration n is reached.
func MaxIterations[C evo.Chromosome](n int) evo.TerminationFunc[C] {
	return func(_ *evo.Population[C], iteration int, _ time.Duration) bool {
		return iteration >= n
	}
}

// FitnessGoal fires when the fittest chromosome reaches goal.
func FitnessGoal[C evo.Chromosome](goal evo.Fitness) evo.TerminationFunc[C] {
	return func(p *evo.Population[C], _ int, _ time.Duration) bool {
		fittest, ok := p.Fittest()
		return ok && !fittest.Fitness().Less(goal)
	}
}

// Timeout fires once the run has been going for longer than d.
func Timeout[C evo.Chromosome](d time.Duration) evo.TerminationFunc[C] {
	return func(_ *evo.Population[C], _ int, elapsed time.Duration) bool {
		return elapsed > d
	}
}

func Any[C evo.Chromosome](conditions ...evo.TerminationCondition[C]) evo.TerminationFunc[C] {
	return func(p *evo.Population[C], iteration int, elapsed time.Duration) bool {
		for _, c := range conditions {
			if c.ShouldTerminate(p, iteration, elapsed) {
				return true
			}
		}
		return false
	}
}

func All[C evo.Chromosome](conditions ...evo.TerminationCondition[C]) evo.TerminationFunc[C] {
	return func(p *evo.Population[C], iteration int, elapsed time.Duration) bool {
		if len(conditions) == 0 {
			return false
		}
		for _, c := range conditions {
			if !c.ShouldTerminate(p, iteration, elapsed) {
				return false
			}
		}
		return true
	}
}
