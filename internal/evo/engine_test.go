package evo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNewEngineAggregatesConfigErrors(t *testing.T) {
	_, err := NewEngine(Config[*testChromosome]{})
	if err == nil {
		t.Fatal("expected config error")
	}
	if !errors.Is(err, ErrIllegalState) || !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected illegal state and invalid argument, got %v", err)
	}
	for _, field := range []string{"Termination", "Appearance", "NewPopulationBuilder", "MutationSelector", "Mutation", "Parent1Selector", "MatesSelector", "Crossover", "Selection", "NewChromosomeBuilder", "BufferSize"} {
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("expected %s in %q", field, err.Error())
		}
	}
}

func TestEngineNameAndProperties(t *testing.T) {
	cfg := quietConfig(3, 1, 6)
	cfg.Name = "split-set"
	cfg.Properties = map[string]string{"scape": "split-set"}
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	cfg.Properties["scape"] = "mutated"
	if engine.Name() != "split-set" {
		t.Fatalf("unexpected name %q", engine.Name())
	}
	if v, ok := engine.Property("scape"); !ok || v != "split-set" {
		t.Fatalf("unexpected property %q %t", v, ok)
	}
	if _, ok := engine.Property("missing"); ok {
		t.Fatal("expected missing property")
	}
}

func TestEngineLifecycleErrors(t *testing.T) {
	engine, err := NewEngine(quietConfig(3, 1, 6))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Stop(); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("expected illegal state on idle stop, got %v", err)
	}
	if _, err := engine.Result(); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("expected illegal state on idle result, got %v", err)
	}
	if _, ok := <-engine.Stats(); ok {
		t.Fatal("expected closed stats stream while idle")
	}

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := engine.Start(context.Background()); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("expected illegal state on double start, got %v", err)
	}
	if !engine.Running() {
		t.Fatal("expected running engine")
	}
	result, err := engine.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if err := engine.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if engine.Running() {
		t.Fatal("expected idle engine")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := result.Wait(ctx); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected stopped result, got %v", err)
	}
	if err := engine.Stop(); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("expected illegal state on double stop, got %v", err)
	}
}

func TestEngineTerminationDeliversFittest(t *testing.T) {
	var mu sync.Mutex
	var atThree *Population[*testChromosome]
	cfg := quietConfig(6, 1, 12)
	cfg.Termination = TerminationFunc[*testChromosome](func(p *Population[*testChromosome], iteration int, elapsed time.Duration) bool {
		if iteration != 3 {
			return false
		}
		mu.Lock()
		atThree = p
		mu.Unlock()
		return true
	})
	cfg.Selection = SelectionFunc[*testChromosome](func(ctx context.Context, buffer []*testChromosome) ([]*testChromosome, error) {
		sorted := append([]*testChromosome(nil), buffer...)
		sortByFitnessDesc(sorted)
		return sorted, nil
	})

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer engine.Stop()

	result, err := engine.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	fittest, err := result.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if atThree == nil {
		t.Fatal("termination never saw iteration 3")
	}
	best := atThree.At(0)
	for _, c := range atThree.Chromosomes() {
		if best.Fitness().Less(c.Fitness()) {
			best = c
		}
	}
	if fittest.Fingerprint() != best.Fingerprint() || !fittest.Fitness().Equal(best.Fitness()) {
		t.Fatalf("expected fittest %s (%v), got %s (%v)", best.Fingerprint(), best.Fitness(), fittest.Fingerprint(), fittest.Fitness())
	}
}

func TestEngineStatsStreamOnePerGeneration(t *testing.T) {
	cfg := quietConfig(4, 1, 8)
	cfg.Termination = TerminationFunc[*testChromosome](func(p *Population[*testChromosome], iteration int, elapsed time.Duration) bool {
		return iteration == 3
	})
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer engine.Stop()

	var got []PopulationStats
	timeout := time.After(5 * time.Second)
	stats := engine.Stats()
	for done := false; !done; {
		select {
		case s, ok := <-stats:
			if !ok {
				done = true
				break
			}
			got = append(got, s)
		case <-timeout:
			t.Fatal("stats stream did not close")
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 stats for iterations 0..2, got %d", len(got))
	}
	for i, s := range got {
		if s.Size != 4 || s.EliteCount != 1 {
			t.Fatalf("stats %d: unexpected shape %+v", i, s)
		}
	}
	if got[2].MaxAge < 2 {
		t.Fatalf("expected elite to age across generations, got %+v", got[2])
	}
}

func TestEnginePipelineFailureAbortsRun(t *testing.T) {
	engine, err := NewEngine(quietConfig(5, 0, 3))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	result, err := engine.Result()
	if err != nil {
		t.Fatalf("result: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool { return engine.Err() != nil })
	if err := engine.Err(); !errors.Is(err, ErrPipelineFailure) || !errors.Is(err, ErrInsufficientChromosomes) {
		t.Fatalf("expected insufficient chromosomes pipeline failure, got %v", err)
	}
	select {
	case <-result.Done():
		t.Fatal("result must stay unsettled after a failed run")
	default:
	}
	if !engine.Running() {
		t.Fatal("engine stays running until stopped")
	}

	if err := engine.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := result.Value(); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected stopped after stop, got %v", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if err := engine.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestEngineStopCancelsPendingMatesSelection(t *testing.T) {
	var entered, cancelled, crossovers atomic.Int32
	cfg := quietConfig(4, 1, 8)
	cfg.MatesTimeout = 10 * time.Second
	cfg.Parent1Selector = PredicateFunc[*testChromosome](func(*testChromosome) bool { return true })
	cfg.MatesSelector = MatesFunc[*testChromosome](func(ctx context.Context, parent1 *testChromosome, candidates <-chan *testChromosome) ([]*testChromosome, error) {
		entered.Add(1)
		<-ctx.Done()
		cancelled.Add(1)
		return nil, ctx.Err()
	})
	cfg.Crossover = CrossoverFunc[*testChromosome](func(ctx context.Context, parents []*testChromosome) ([]*testChromosome, error) {
		crossovers.Add(1)
		return nil, nil
	})

	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	for round := 1; round <= 2; round++ {
		entered.Store(0)
		cancelled.Store(0)
		if err := engine.Start(context.Background()); err != nil {
			t.Fatalf("round %d: start: %v", round, err)
		}
		stats := engine.Stats()
		select {
		case <-stats:
		case <-time.After(5 * time.Second):
			t.Fatalf("round %d: no stats for the initial generation", round)
		}
		waitFor(t, 5*time.Second, func() bool { return entered.Load() > 0 })

		began := time.Now()
		if err := engine.Stop(); err != nil {
			t.Fatalf("round %d: stop: %v", round, err)
		}
		if elapsed := time.Since(began); elapsed > time.Second {
			t.Fatalf("round %d: stop took %s", round, elapsed)
		}
		waitFor(t, 2*time.Second, func() bool { return cancelled.Load() == entered.Load() })

		var received int
		for range stats {
			received++
		}
		if received != 0 {
			t.Fatalf("round %d: expected no stats after stop, got %d", round, received)
		}
		if err := engine.Err(); err != nil {
			t.Fatalf("round %d: stop is not a failure, got %v", round, err)
		}
	}
	if n := crossovers.Load(); n != 0 {
		t.Fatalf("expected no crossover after cancelled mates selection, got %d", n)
	}
}

type recordingObserver struct {
	NopObserver
	mu       sync.Mutex
	statuses []RunStatus
	gens     int
}

func (o *recordingObserver) RunFinished(status RunStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, status)
}

func (o *recordingObserver) GenerationEvaluated(int, PopulationStats) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gens++
}

func TestEngineReportsRunStatusOnce(t *testing.T) {
	observer := &recordingObserver{}
	cfg := quietConfig(3, 1, 6)
	cfg.Observer = observer
	cfg.Termination = TerminationFunc[*testChromosome](func(p *Population[*testChromosome], iteration int, elapsed time.Duration) bool {
		return iteration == 2
	})
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	result, _ := engine.Result()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := result.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := engine.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if len(observer.statuses) != 1 || observer.statuses[0] != RunStatusTerminated {
		t.Fatalf("expected one terminated status, got %v", observer.statuses)
	}
	if observer.gens != 2 {
		t.Fatalf("expected 2 evaluated generations, got %d", observer.gens)
	}
}
