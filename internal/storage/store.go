package storage

import (
	"context"

	"evolvekit/internal/model"
)

// Store persists runs, their per-generation stats and their results.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	AppendGenerations(ctx context.Context, runID string, generations []model.GenerationRecord) error
	GetGenerations(ctx context.Context, runID string) ([]model.GenerationRecord, bool, error)
	SaveResult(ctx context.Context, result model.ResultRecord) error
	GetResult(ctx context.Context, runID string) (model.ResultRecord, bool, error)
}
