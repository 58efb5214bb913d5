package evo

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestNewFitnessAcceptsUnitInterval(t *testing.T) {
	for _, v := range []float64{0, 0.0001, 0.25, 0.5, 0.9999, 1} {
		f, err := NewFitness(v)
		if err != nil {
			t.Fatalf("new fitness %v: %v", v, err)
		}
		if f.Value() != v {
			t.Fatalf("expected value %v, got %v", v, f.Value())
		}
	}
}

func TestNewFitnessRejectsOutOfRange(t *testing.T) {
	for _, v := range []float64{-0.0001, 1.0001, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := NewFitness(v); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected invalid argument for %v, got %v", v, err)
		}
	}
}

func TestFitnessBoundsAndZeroValue(t *testing.T) {
	if MinFitness().Value() != 0 || MaxFitness().Value() != 1 {
		t.Fatalf("unexpected bounds: min=%v max=%v", MinFitness(), MaxFitness())
	}
	var zero Fitness
	if !zero.Equal(MinFitness()) {
		t.Fatalf("expected zero value to equal min fitness, got %v", zero)
	}
}

func TestFitnessTotalOrder(t *testing.T) {
	values := []float64{0, 0.1, 0.1, 0.5, 0.75, 1}
	for _, a := range values {
		for _, b := range values {
			fa, fb := MustFitness(a), MustFitness(b)
			less, equal, greater := fa.Less(fb), fa.Equal(fb), fb.Less(fa)
			count := 0
			for _, ok := range []bool{less, equal, greater} {
				if ok {
					count++
				}
			}
			if count != 1 {
				t.Fatalf("expected exactly one relation for %v and %v, got less=%t equal=%t greater=%t", a, b, less, equal, greater)
			}
			want := 0
			switch {
			case a < b:
				want = -1
			case a > b:
				want = 1
			}
			if got := fa.Compare(fb); got != want {
				t.Fatalf("compare(%v, %v): expected %d, got %d", a, b, want, got)
			}
		}
	}
}

func TestFitnessJSONRejectsOutOfRange(t *testing.T) {
	var f Fitness
	if err := json.Unmarshal([]byte(`0.42`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Value() != 0.42 {
		t.Fatalf("expected 0.42, got %v", f)
	}
	if err := json.Unmarshal([]byte(`1.5`), &f); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
