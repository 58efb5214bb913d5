package evo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPipelineAgesEliteWithoutModification(t *testing.T) {
	pop := buildPopulation(t, 2,
		newTestChromosome("c1", 0.9),
		newTestChromosome("c2", 0.8),
		newTestChromosome("c3", 0.7),
		newTestChromosome("c4", 0.6),
		newTestChromosome("c5", 0.5),
	)
	pipeline, err := NewPipeline(quietConfig(5, 2, 8))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	next, err := pipeline.Next(context.Background(), pop)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.Len() != 5 || next.EliteCount() != 2 {
		t.Fatalf("unexpected shape: len=%d elite=%d", next.Len(), next.EliteCount())
	}
	for i := 0; i < 2; i++ {
		before, after := pop.At(i), next.At(i)
		if before.Fingerprint() != after.Fingerprint() {
			t.Fatalf("elite %d changed: %s -> %s", i, before.Fingerprint(), after.Fingerprint())
		}
		if after.Age() != before.Age()+1 {
			t.Fatalf("elite %d: expected age %d, got %d", i, before.Age()+1, after.Age())
		}
		if before == after {
			t.Fatalf("elite %d must be cloned, not reused", i)
		}
	}
	for i := 0; i < pop.Len(); i++ {
		if pop.At(i).Age() != 0 {
			t.Fatalf("source population mutated at %d", i)
		}
	}
}

func TestPipelineBufferOrderAndTruncation(t *testing.T) {
	pop := buildPopulation(t, 1,
		newTestChromosome("e", 0.9),
		newTestChromosome("r1", 0.5),
		newTestChromosome("r2", 0.4),
	)
	cfg := quietConfig(3, 1, 4)
	cfg.MutationSelector = PredicateFunc[*testChromosome](func(c *testChromosome) bool { return c.data == "r1" })
	cfg.Mutation = MutationFunc[*testChromosome](func(ctx context.Context, c *testChromosome) (*testChromosome, error) {
		return newTestChromosome(c.data+"'", 0.1), nil
	})

	var got []string
	cfg.Selection = SelectionFunc[*testChromosome](func(ctx context.Context, buffer []*testChromosome) ([]*testChromosome, error) {
		for _, c := range buffer {
			got = append(got, c.data)
		}
		return buffer[:3], nil
	})
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := pipeline.Next(context.Background(), pop); err != nil {
		t.Fatalf("next: %v", err)
	}

	want := []string{"e", "r1'", "r1", "r2"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected buffer %v, got %v", want, got)
	}
}

func TestPipelineFillsBufferFromAppearance(t *testing.T) {
	pop := buildPopulation(t, 0, newTestChromosome("x", 0.5), newTestChromosome("y", 0.4))
	cfg := quietConfig(2, 0, 6)
	var size int
	cfg.Selection = SelectionFunc[*testChromosome](func(ctx context.Context, buffer []*testChromosome) ([]*testChromosome, error) {
		size = len(buffer)
		return buffer[:2], nil
	})
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := pipeline.Next(context.Background(), pop); err != nil {
		t.Fatalf("next: %v", err)
	}
	if size != 6 {
		t.Fatalf("expected buffer of 6, got %d", size)
	}
}

func TestPipelineBufferSmallerThanPopulationFails(t *testing.T) {
	pop := buildPopulation(t, 0,
		newTestChromosome("c1", 0.9),
		newTestChromosome("c2", 0.8),
		newTestChromosome("c3", 0.7),
		newTestChromosome("c4", 0.6),
		newTestChromosome("c5", 0.5),
	)
	pipeline, err := NewPipeline(quietConfig(5, 0, 3))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	next, err := pipeline.Next(context.Background(), pop)
	if next != nil {
		t.Fatalf("expected no population, got %d chromosomes", next.Len())
	}
	if !errors.Is(err, ErrInsufficientChromosomes) || !errors.Is(err, ErrIllegalState) || !errors.Is(err, ErrPipelineFailure) {
		t.Fatalf("expected insufficient chromosomes pipeline failure, got %v", err)
	}
}

func TestPipelineCrossoverProducesOffspring(t *testing.T) {
	pop := buildPopulation(t, 0, newTestChromosome("p", 0.4), newTestChromosome("q", 0.3))
	cfg := quietConfig(2, 0, 6)
	cfg.Parent1Selector = PredicateFunc[*testChromosome](func(c *testChromosome) bool { return c.data == "p" })
	cfg.MatesSelector = MatesFunc[*testChromosome](func(ctx context.Context, parent1 *testChromosome, candidates <-chan *testChromosome) ([]*testChromosome, error) {
		for c := range candidates {
			if c.data != parent1.data {
				return []*testChromosome{c}, nil
			}
		}
		return nil, errors.New("no candidates")
	})
	var mu sync.Mutex
	var parents []string
	cfg.Crossover = CrossoverFunc[*testChromosome](func(ctx context.Context, ps []*testChromosome) ([]*testChromosome, error) {
		mu.Lock()
		defer mu.Unlock()
		for _, p := range ps {
			parents = append(parents, p.data)
		}
		return []*testChromosome{newTestChromosome("child", 0.99)}, nil
	})
	cfg.Selection = SelectionFunc[*testChromosome](func(ctx context.Context, buffer []*testChromosome) ([]*testChromosome, error) {
		return buffer[:2], nil
	})
	pipeline, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	next, err := pipeline.Next(context.Background(), pop)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if fmt.Sprint(parents) != "[p q]" {
		t.Fatalf("expected parent set [p q], got %v", parents)
	}
	if fittest, _ := next.Fittest(); fittest.Fingerprint() != "child" {
		t.Fatalf("expected child to lead the next population, got %s", fittest.Fingerprint())
	}
}

func TestPipelineCrossoverTimeoutPolicy(t *testing.T) {
	pop := buildPopulation(t, 0, newTestChromosome("p", 0.4), newTestChromosome("q", 0.3))
	cfg := quietConfig(2, 0, 4)
	cfg.MatesTimeout = 30 * time.Millisecond
	cfg.Parent1Selector = PredicateFunc[*testChromosome](func(c *testChromosome) bool { return c.data == "p" })
	cfg.MatesSelector = MatesFunc[*testChromosome](func(ctx context.Context, parent1 *testChromosome, candidates <-chan *testChromosome) ([]*testChromosome, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	pipeline, err := NewPipeline(cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := pipeline.Next(context.Background(), pop); !errors.Is(err, ErrTimeout) || !errors.Is(err, ErrPipelineFailure) {
		t.Fatalf("expected timeout pipeline failure, got %v", err)
	}

	cfg.SkipFailedCrossover = true
	pipeline, err = NewPipeline(cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if _, err := pipeline.Next(context.Background(), pop); err != nil {
		t.Fatalf("expected skipped crossover to succeed, got %v", err)
	}
}

func TestSelectMatesTimesOut(t *testing.T) {
	parent1 := newTestChromosome("p1", 0.5)
	only := newTestChromosome("only", 0.4)
	needTwo := MatesFunc[*testChromosome](func(ctx context.Context, parent1 *testChromosome, candidates <-chan *testChromosome) ([]*testChromosome, error) {
		seen := map[string]*testChromosome{}
		for c := range candidates {
			if c.data == parent1.data {
				continue
			}
			seen[c.data] = c
			if len(seen) == 2 {
				out := make([]*testChromosome, 0, 2)
				for _, m := range seen {
					out = append(out, m)
				}
				return out, nil
			}
		}
		return nil, errors.New("candidates exhausted")
	})

	started := time.Now()
	_, err := SelectMates(context.Background(), needTwo, parent1, []*testChromosome{parent1, only}, 50*time.Millisecond)
	elapsed := time.Since(started)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("expected failure near 50ms, took %s", elapsed)
	}
}

func TestSelectMatesTimesOutWhenSelectorIgnoresContext(t *testing.T) {
	stubborn := MatesFunc[*testChromosome](func(ctx context.Context, parent1 *testChromosome, candidates <-chan *testChromosome) ([]*testChromosome, error) {
		time.Sleep(300 * time.Millisecond)
		return nil, nil
	})
	started := time.Now()
	_, err := SelectMates(context.Background(), stubborn, newTestChromosome("p1", 0.5), nil, 20*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed := time.Since(started); elapsed >= 300*time.Millisecond {
		t.Fatalf("expected return before the selector finished, took %s", elapsed)
	}
}

func TestSelectMatesOffersCandidatesCyclically(t *testing.T) {
	parent1 := newTestChromosome("p1", 0.5)
	other := newTestChromosome("o", 0.4)
	seenTwice := MatesFunc[*testChromosome](func(ctx context.Context, parent1 *testChromosome, candidates <-chan *testChromosome) ([]*testChromosome, error) {
		count := 0
		for c := range candidates {
			if c.data == "o" {
				count++
				if count == 3 {
					return []*testChromosome{c}, nil
				}
			}
		}
		return nil, errors.New("candidates exhausted")
	})
	parents, err := SelectMates(context.Background(), seenTwice, parent1, []*testChromosome{parent1, other}, time.Second)
	if err != nil {
		t.Fatalf("select mates: %v", err)
	}
	if len(parents) != 2 || parents[0] != parent1 || parents[1] != other {
		t.Fatalf("expected [p1 o], got %v", parents)
	}
}

func TestNewPipelineAggregatesMissingPorts(t *testing.T) {
	_, err := NewPipeline(Config[*testChromosome]{BufferSize: -1})
	if !errors.Is(err, ErrIllegalState) || !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected illegal state and invalid argument, got %v", err)
	}
}
