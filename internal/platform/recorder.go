package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"evolvekit/internal/evo"
	"evolvekit/internal/model"
	"evolvekit/internal/storage"
)

const defaultBatchSize = 32

// Recorder runs one engine to completion and persists its progress: the run
// record, the stats of every generation and the fittest chromosome.
type Recorder[C evo.Chromosome] struct {
	Store  storage.Store
	Logger zerolog.Logger
	// BatchSize bounds how many generations are buffered before they are
	// appended to the store. Zero means 32.
	BatchSize int
	// Describe renders the genes of the result, if set.
	Describe func(C) string
}

// Record starts engine, drains its stats into the store and waits until the
// run terminates, fails or ctx ends. The engine is always stopped before
// Record returns. The returned error is the pipeline failure, ctx.Err() or
// a storage error.
func (r *Recorder[C]) Record(ctx context.Context, run model.RunRecord, engine *evo.Engine[C]) (model.ResultRecord, error) {
	if r.Store == nil {
		return model.ResultRecord{}, fmt.Errorf("%w: store is required", evo.ErrIllegalState)
	}
	if run.ID == "" {
		return model.ResultRecord{}, fmt.Errorf("%w: run id is required", evo.ErrInvalidArgument)
	}
	logger := r.Logger.With().Str("run_id", run.ID).Logger()

	now := time.Now().UTC()
	run.VersionedRecord = storage.Versioned()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now
	run.Status = evo.RunStatusRunning
	if err := r.Store.SaveRun(ctx, run); err != nil {
		return model.ResultRecord{}, fmt.Errorf("save run %s: %w", run.ID, err)
	}

	if err := engine.Start(ctx); err != nil {
		return model.ResultRecord{}, r.finish(ctx, run, evo.RunStatusFailed, err)
	}
	stats := engine.Stats()
	result, err := engine.Result()
	if err != nil {
		_ = engine.Stop()
		return model.ResultRecord{}, r.finish(ctx, run, evo.RunStatusFailed, err)
	}

	started := time.Now()
	drained := make(chan drainOutcome, 1)
	go func() {
		drained <- r.drain(context.WithoutCancel(ctx), run.ID, started, stats)
	}()

	var outcome drainOutcome
	select {
	case outcome = <-drained:
	case <-ctx.Done():
	}
	pipelineErr := engine.Err()
	_ = engine.Stop()
	if !outcome.done {
		outcome = <-drained
	}

	fittest, resultErr := result.Value()
	switch {
	case resultErr == nil:
		record := model.ResultRecord{
			VersionedRecord: storage.Versioned(),
			RunID:           run.ID,
			Fingerprint:     fittest.Fingerprint(),
			Fitness:         fittest.Fitness(),
			Age:             fittest.Age(),
			Generation:      fittest.Generation(),
			Iterations:      outcome.generations,
		}
		if r.Describe != nil {
			record.Genes = r.Describe(fittest)
		}
		if err := r.Store.SaveResult(context.WithoutCancel(ctx), record); err != nil {
			return record, r.finish(ctx, run, evo.RunStatusFailed, fmt.Errorf("save result %s: %w", run.ID, err))
		}
		logger.Info().
			Int("iterations", outcome.generations).
			Float64("fitness", record.Fitness.Value()).
			Msg("run recorded")
		return record, r.finish(ctx, run, evo.RunStatusTerminated, outcome.err)
	case pipelineErr != nil:
		return model.ResultRecord{}, r.finish(ctx, run, evo.RunStatusFailed, pipelineErr)
	default:
		err := ctx.Err()
		if err == nil {
			err = resultErr
		}
		return model.ResultRecord{}, r.finish(ctx, run, evo.RunStatusStopped, err)
	}
}

type drainOutcome struct {
	generations int
	err         error
	done        bool
}

func (r *Recorder[C]) drain(ctx context.Context, runID string, started time.Time, stats <-chan evo.PopulationStats) drainOutcome {
	size := r.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}

	out := drainOutcome{done: true}
	batch := make([]model.GenerationRecord, 0, size)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.Store.AppendGenerations(ctx, runID, batch); err != nil && out.err == nil {
			out.err = fmt.Errorf("append generations %s: %w", runID, err)
			r.Logger.Error().Err(err).Str("run_id", runID).Msg("generation stats not persisted")
		}
		batch = batch[:0]
	}

	for s := range stats {
		batch = append(batch, model.GenerationRecord{
			VersionedRecord: storage.Versioned(),
			RunID:           runID,
			Iteration:       out.generations,
			ElapsedMS:       time.Since(started).Milliseconds(),
			Stats:           s,
		})
		out.generations++
		if len(batch) == size {
			flush()
		}
	}
	flush()
	return out
}

func (r *Recorder[C]) finish(ctx context.Context, run model.RunRecord, status evo.RunStatus, cause error) error {
	run.Status = status
	run.UpdatedAt = time.Now().UTC()
	if cause != nil {
		run.Error = cause.Error()
	}
	if err := r.Store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		return errors.Join(cause, fmt.Errorf("save run %s: %w", run.ID, err))
	}
	return cause
}
