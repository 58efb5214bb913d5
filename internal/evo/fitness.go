package evo

import (
	"fmt"
	"math"
	"strconv"
)

const (
	minFitnessValue = 0.0
	maxFitnessValue = 1.0
)

// Fitness is a normalized quality score in [0, 1]. Higher is better.
// The zero value equals MinFitness.
type Fitness struct {
	value float64
}

func NewFitness(v float64) (Fitness, error) {
	if math.IsNaN(v) {
		return Fitness{}, fmt.Errorf("%w: fitness is NaN", ErrInvalidArgument)
	}
	if v < minFitnessValue {
		return Fitness{}, fmt.Errorf("%w: fitness %v < %v", ErrInvalidArgument, v, minFitnessValue)
	}
	if v > maxFitnessValue {
		return Fitness{}, fmt.Errorf("%w: fitness %v > %v", ErrInvalidArgument, v, maxFitnessValue)
	}
	return Fitness{value: v}, nil
}

// MustFitness is NewFitness for values known to be valid.
func MustFitness(v float64) Fitness {
	f, err := NewFitness(v)
	if err != nil {
		panic(err)
	}
	return f
}

func MinFitness() Fitness { return Fitness{value: minFitnessValue} }

func MaxFitness() Fitness { return Fitness{value: maxFitnessValue} }

func (f Fitness) Value() float64 { return f.value }

// Compare returns -1, 0 or +1.
func (f Fitness) Compare(other Fitness) int {
	switch {
	case f.value < other.value:
		return -1
	case f.value > other.value:
		return 1
	default:
		return 0
	}
}

func (f Fitness) Less(other Fitness) bool { return f.value < other.value }

func (f Fitness) Equal(other Fitness) bool { return f.value == other.value }

func (f Fitness) String() string {
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

func (f Fitness) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(f.value, 'g', -1, 64)), nil
}

func (f *Fitness) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("%w: decode fitness: %v", ErrInvalidArgument, err)
	}
	parsed, err := NewFitness(v)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
