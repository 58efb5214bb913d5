package evo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Engine drives generations until the termination condition fires. Each
// generation's pipeline output is fed back to the loop that consumed it,
// so a run of any length uses one loop goroutine and one feedback channel.
type Engine[C Chromosome] struct {
	cfg      Config[C]
	pipeline *Pipeline[C]
	logger   zerolog.Logger
	tracer   trace.Tracer

	mu      sync.Mutex
	current *engineRun[C]
	lastErr error
}

// engineRun holds what one Start/Stop cycle owns.
type engineRun[C Chromosome] struct {
	cancel   context.CancelFunc
	result   *Result[C]
	stats    *statsHub
	started  time.Time
	finished atomic.Bool
}

func NewEngine[C Chromosome](cfg Config[C]) (*Engine[C], error) {
	if err := cfg.validate(true); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Engine[C]{
		cfg:      cfg,
		pipeline: newPipeline(cfg),
		logger:   cfg.Logger.With().Str("component", "engine").Str("engine", cfg.Name).Logger(),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

func (e *Engine[C]) Name() string { return e.cfg.Name }

func (e *Engine[C]) Property(key string) (string, bool) {
	v, ok := e.cfg.Properties[key]
	return v, ok
}

func (e *Engine[C]) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Start launches a new run. The run ends on termination, on a pipeline
// failure or when ctx is cancelled, but the engine stays Running until
// Stop is called.
func (e *Engine[C]) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		err := fmt.Errorf("%w: engine is already running", ErrIllegalState)
		e.logger.Error().Err(err).Msg("start rejected")
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &engineRun[C]{
		cancel:  cancel,
		result:  newResult[C](),
		stats:   newStatsHub(e.cfg.StatsBuffer, e.cfg.Observer),
		started: time.Now(),
	}
	e.current = run
	e.lastErr = nil
	e.cfg.Observer.RunStarted()
	e.logger.Info().Msg("engine started")

	feedback := make(chan *Population[C], 1)
	go e.loop(runCtx, run, feedback)
	return nil
}

// Stop cancels the active run without waiting for in-flight work, closes
// the stats stream and rejects an unsettled result with ErrStopped.
func (e *Engine[C]) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	run := e.current
	if run == nil {
		err := fmt.Errorf("%w: engine is not running", ErrIllegalState)
		e.logger.Error().Err(err).Msg("stop rejected")
		return err
	}

	run.cancel()
	run.stats.close()
	run.result.reject(ErrStopped)
	if run.finished.CompareAndSwap(false, true) {
		e.cfg.Observer.RunFinished(RunStatusStopped)
	}
	e.current = nil
	e.logger.Info().Dur("elapsed", time.Since(run.started)).Msg("engine stopped")
	return nil
}

// Result returns the future of the current run.
func (e *Engine[C]) Result() (*Result[C], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		err := fmt.Errorf("%w: engine is not running", ErrIllegalState)
		e.logger.Error().Err(err).Msg("result rejected")
		return nil, err
	}
	return e.current.result, nil
}

// Stats subscribes to the per-generation stats of the current run,
// replaying the retained history first. The channel is closed when the run
// ends; while Idle it is returned already closed.
func (e *Engine[C]) Stats() <-chan PopulationStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return closedStats()
	}
	return e.current.stats.subscribe()
}

// Err reports the failure that aborted the latest run, if any.
func (e *Engine[C]) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine[C]) loop(ctx context.Context, run *engineRun[C], feedback chan *Population[C]) {
	defer run.stats.close()

	population, err := e.initialPopulation(ctx)
	if err != nil {
		e.fail(ctx, run, feedback, 0, err)
		return
	}

	for iteration := 0; ; iteration++ {
		elapsed := time.Since(run.started)
		genCtx, span := e.tracer.Start(ctx, "evo.generation", trace.WithAttributes(
			attribute.Int("iteration", iteration),
			attribute.Int("population.size", population.Len()),
		))

		if e.cfg.Termination.ShouldTerminate(population, iteration, elapsed) {
			span.End()
			e.terminate(ctx, run, feedback, population, iteration, elapsed)
			return
		}

		stats := population.Stats()
		run.stats.publish(stats)
		e.cfg.Observer.GenerationEvaluated(iteration, stats)
		e.logger.Debug().
			Int("iteration", iteration).
			Dur("elapsed", elapsed).
			Float64("max_fitness", stats.MaxFitness.Value()).
			Float64("avg_fitness", stats.AvgFitness.Value()).
			Msg("generation evaluated")

		errs := make(chan error, 1)
		go e.runPipeline(genCtx, population, feedback, errs)

		select {
		case next := <-feedback:
			population = next
			span.SetStatus(codes.Ok, "")
			span.End()
		case err := <-errs:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			if ctx.Err() != nil {
				return
			}
			e.fail(ctx, run, feedback, iteration, err)
			return
		case <-ctx.Done():
			span.End()
			return
		}
	}
}

func (e *Engine[C]) runPipeline(ctx context.Context, population *Population[C], feedback chan<- *Population[C], errs chan<- error) {
	next, err := e.pipeline.Next(ctx, population)
	if err != nil {
		errs <- err
		return
	}
	select {
	case feedback <- next:
	case <-ctx.Done():
	}
}

func (e *Engine[C]) initialPopulation(ctx context.Context) (*Population[C], error) {
	builder := e.cfg.NewPopulationBuilder()
	if builder == nil {
		return nil, fmt.Errorf("%w: %w: population builder factory returned nil", ErrPipelineFailure, ErrIllegalState)
	}
	population, err := builder.WithAppearance(e.cfg.Appearance).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: build initial population: %w", ErrPipelineFailure, err)
	}
	return population, nil
}

func (e *Engine[C]) terminate(ctx context.Context, run *engineRun[C], feedback chan *Population[C], population *Population[C], iteration int, elapsed time.Duration) {
	fittest, ok := population.Fittest()
	if !ok {
		e.fail(ctx, run, feedback, iteration, fmt.Errorf("%w: %w: terminal population is empty", ErrPipelineFailure, ErrIllegalState))
		return
	}
	if !run.finished.CompareAndSwap(false, true) {
		return
	}
	run.result.resolve(fittest)
	close(feedback)
	e.cfg.Observer.RunFinished(RunStatusTerminated)
	e.logger.Info().
		Int("iteration", iteration).
		Dur("elapsed", elapsed).
		Str("fittest", fittest.Fingerprint()).
		Float64("fitness", fittest.Fitness().Value()).
		Msg("termination condition met")
}

// fail aborts the run. The result stays unsettled until Stop rejects it.
func (e *Engine[C]) fail(ctx context.Context, run *engineRun[C], feedback chan *Population[C], iteration int, err error) {
	if ctx.Err() != nil || !run.finished.CompareAndSwap(false, true) {
		return
	}
	close(feedback)
	e.mu.Lock()
	if e.current == run {
		e.lastErr = err
	}
	e.mu.Unlock()
	e.cfg.Observer.RunFinished(RunStatusFailed)
	e.logger.Error().
		Err(err).
		Int("iteration", iteration).
		Dur("elapsed", time.Since(run.started)).
		Msg("generation failed, run aborted")
}
