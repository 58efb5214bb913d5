package evo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "evolvekit/internal/evo"

// Pipeline turns one population into the next. It holds no per-generation
// state, so a single Pipeline serves every generation of a run.
type Pipeline[C Chromosome] struct {
	cfg    Config[C]
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewPipeline validates cfg (Termination is not needed here) and applies
// defaults.
func NewPipeline[C Chromosome](cfg Config[C]) (*Pipeline[C], error) {
	if err := cfg.validate(false); err != nil {
		return nil, err
	}
	return newPipeline(cfg.withDefaults()), nil
}

func newPipeline[C Chromosome](cfg Config[C]) *Pipeline[C] {
	return &Pipeline[C]{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("component", "pipeline").Logger(),
		tracer: otel.Tracer(tracerName),
	}
}

// Next runs aging, mutation and crossover concurrently, assembles the buffer
// (aged elite, mutants, offspring, aged rest, appearances) up to BufferSize,
// applies Selection and builds the next population.
//
// Failures are wrapped with ErrPipelineFailure. Cancellation of ctx is
// returned as ctx.Err() unwrapped.
func (p *Pipeline[C]) Next(ctx context.Context, population *Population[C]) (*Population[C], error) {
	if population == nil {
		return nil, fmt.Errorf("%w: population is nil", ErrInvalidArgument)
	}
	ctx, span := p.tracer.Start(ctx, "evo.pipeline", trace.WithAttributes(
		attribute.Int("population.size", population.Len()),
		attribute.Int("population.elite", population.EliteCount()),
		attribute.Int("buffer.size", p.cfg.BufferSize),
	))
	defer span.End()
	started := time.Now()

	next, err := p.next(ctx, population)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if !errors.Is(err, ErrPipelineFailure) {
			err = fmt.Errorf("%w: %w", ErrPipelineFailure, err)
		}
		return nil, err
	}

	elapsed := time.Since(started)
	p.cfg.Observer.PipelineCompleted(elapsed)
	span.SetStatus(codes.Ok, "")
	p.logger.Debug().
		Int("size", next.Len()).
		Dur("elapsed", elapsed).
		Msg("next population built")
	return next, nil
}

func (p *Pipeline[C]) next(ctx context.Context, population *Population[C]) (*Population[C], error) {
	elite := population.Elite()
	rest := population.Rest()
	all := population.Chromosomes()

	// Predicates run here, on one goroutine; only the heavy ports fan out.
	mutationInput := rest
	if p.cfg.MutateElite {
		mutationInput = all
	}
	room := max(p.cfg.BufferSize-len(elite), 0)
	var toMutate []C
	for _, c := range mutationInput {
		if len(toMutate) >= room {
			break
		}
		if p.cfg.MutationSelector.Select(c) {
			toMutate = append(toMutate, c)
		}
	}
	room -= len(toMutate)
	var parents1 []C
	if room > 0 {
		for _, c := range all {
			if p.cfg.Parent1Selector.Select(c) {
				parents1 = append(parents1, c)
			}
		}
	}

	agedElite := make([]C, len(elite))
	agedRest := make([]C, len(rest))
	mutants := make([]C, len(toMutate))
	offspring := make([][]C, len(parents1))

	tasks := pool.New().
		WithMaxGoroutines(p.cfg.Workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()

	for i, c := range elite {
		tasks.Go(func(ctx context.Context) error {
			aged, err := incrementAge(p.cfg.NewChromosomeBuilder, c)
			if err != nil {
				return fmt.Errorf("age elite %s: %w", c.Fingerprint(), err)
			}
			agedElite[i] = aged
			return nil
		})
	}
	for i, c := range rest {
		tasks.Go(func(ctx context.Context) error {
			aged, err := incrementAge(p.cfg.NewChromosomeBuilder, c)
			if err != nil {
				return fmt.Errorf("age %s: %w", c.Fingerprint(), err)
			}
			agedRest[i] = aged
			return nil
		})
	}
	for i, c := range toMutate {
		tasks.Go(func(ctx context.Context) error {
			mutant, err := p.cfg.Mutation.Mutate(ctx, c)
			if err != nil {
				return fmt.Errorf("mutate %s: %w", c.Fingerprint(), err)
			}
			if isNil(mutant) {
				return fmt.Errorf("%w: mutation of %s returned nil", ErrInvalidArgument, c.Fingerprint())
			}
			mutants[i] = mutant
			return nil
		})
	}
	for i, parent1 := range parents1 {
		tasks.Go(func(ctx context.Context) error {
			children, err := p.crossover(ctx, parent1, all)
			if err != nil {
				return err
			}
			offspring[i] = children
			return nil
		})
	}
	if err := tasks.Wait(); err != nil {
		return nil, err
	}

	buffer := make([]C, 0, p.cfg.BufferSize)
	appendBounded := func(cs ...C) {
		for _, c := range cs {
			if len(buffer) >= p.cfg.BufferSize {
				return
			}
			buffer = append(buffer, c)
		}
	}
	appendBounded(agedElite...)
	appendBounded(mutants...)
	for _, children := range offspring {
		appendBounded(children...)
	}
	appendBounded(agedRest...)

	fresh, err := p.appear(ctx, p.cfg.BufferSize-len(buffer))
	if err != nil {
		return nil, err
	}
	buffer = append(buffer, fresh...)

	p.logger.Debug().
		Int("elite", len(agedElite)).
		Int("mutants", len(mutants)).
		Int("crossovers", len(parents1)).
		Int("fresh", len(fresh)).
		Int("buffer", len(buffer)).
		Msg("buffer assembled")

	selected, err := p.cfg.Selection.Select(ctx, buffer)
	if err != nil {
		return nil, fmt.Errorf("select survivors: %w", err)
	}

	builder := p.cfg.NewPopulationBuilder()
	if builder == nil {
		return nil, fmt.Errorf("%w: population builder factory returned nil", ErrIllegalState)
	}
	next, err := builder.WithSource(selected).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build next population: %w", err)
	}
	return next, nil
}

func (p *Pipeline[C]) crossover(ctx context.Context, parent1 C, population []C) ([]C, error) {
	parents, err := SelectMates(ctx, p.cfg.MatesSelector, parent1, population, p.cfg.MatesTimeout)
	if err == nil {
		var children []C
		children, err = p.cfg.Crossover.Crossover(ctx, parents)
		if err == nil {
			for _, child := range children {
				if isNil(child) {
					return nil, fmt.Errorf("%w: crossover of %s returned nil offspring", ErrInvalidArgument, parent1.Fingerprint())
				}
			}
			return children, nil
		}
		err = fmt.Errorf("crossover %s: %w", parent1.Fingerprint(), err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	reason := "error"
	if errors.Is(err, ErrTimeout) {
		reason = "timeout"
	}
	p.cfg.Observer.CrossoverFailed(reason)
	if !p.cfg.SkipFailedCrossover {
		return nil, err
	}
	p.logger.Warn().Err(err).Str("parent", parent1.Fingerprint()).Msg("crossover attempt skipped")
	return nil, nil
}

// appear draws n fresh chromosomes concurrently.
func (p *Pipeline[C]) appear(ctx context.Context, n int) ([]C, error) {
	if n <= 0 {
		return nil, nil
	}
	fresh := make([]C, n)
	tasks := pool.New().
		WithMaxGoroutines(p.cfg.Workers).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i := range fresh {
		tasks.Go(func(ctx context.Context) error {
			c, err := p.cfg.Appearance.Appear(ctx)
			if err != nil {
				return fmt.Errorf("appear chromosome: %w", err)
			}
			if isNil(c) {
				return fmt.Errorf("%w: appearance source returned nil", ErrInvalidArgument)
			}
			fresh[i] = c
			return nil
		})
	}
	if err := tasks.Wait(); err != nil {
		return nil, err
	}
	return fresh, nil
}
