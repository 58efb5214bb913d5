package evolvekit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"evolvekit/internal/evo"
	"evolvekit/internal/platform"
	"evolvekit/internal/stats"
	"evolvekit/internal/storage"
)

const (
	defaultDBPath = "evolvekit.db"
	defaultScape  = "split-set"
	defaultLimit  = 20
)

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	// StoreKind is memory or sqlite. Empty means memory.
	StoreKind string
	DBPath    string
	Logger    *zerolog.Logger
	Observer  Observer
}

// Client runs scapes through a Polis and reads back what was recorded.
type Client struct {
	store    storage.Store
	logger   *zerolog.Logger
	observer Observer

	mu    sync.Mutex
	polis *platform.Polis
}

// RunRequest is one run of a stock scape. Params are inlined so a YAML run
// file reads flat.
type RunRequest struct {
	ID     string `yaml:"id" json:"id,omitempty"`
	Name   string `yaml:"name" json:"name,omitempty"`
	Scape  string `yaml:"scape" json:"scape" validate:"omitempty,oneof=split-set one-max"`
	Params `yaml:",inline"`
}

type RunSummary struct {
	RunID   string
	Scape   string
	Status  RunStatus
	Result  ResultRecord
	Elapsed time.Duration
}

type RunsRequest struct {
	Limit int
}

type GenerationsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

func New(opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{store: store, logger: opts.Logger, observer: opts.Observer}, nil
}

// Close stops every active run and releases the store.
func (c *Client) Close() error {
	c.mu.Lock()
	p := c.polis
	c.polis = nil
	c.mu.Unlock()
	if p != nil {
		p.Stop()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensurePolis(ctx)
	return err
}

// Run executes req to completion and returns what was recorded. A run that
// fails or is cancelled returns its error; its run record is still stored.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	req.Scape = NormalizeScape(req.Scape)
	if req.Scape == "" {
		req.Scape = defaultScape
	}

	started := time.Now()
	id, err := p.Start(ctx, req.spec())
	if err != nil {
		return RunSummary{}, err
	}
	result, err := p.Wait(ctx, id)
	summary := RunSummary{RunID: id, Scape: req.Scape, Result: result, Elapsed: time.Since(started)}
	if run, ok, getErr := c.store.GetRun(context.WithoutCancel(ctx), id); getErr == nil && ok {
		summary.Status = run.Status
	}
	return summary, err
}

// RunSplitSet runs the split-set scape with req's params.
func (c *Client) RunSplitSet(ctx context.Context, req RunRequest) (RunSummary, error) {
	req.Scape = "split-set"
	return c.Run(ctx, req)
}

// Start launches req in the background and returns its run ID. The run
// outlives ctx; it ends on termination, Stop or Close.
func (c *Client) Start(ctx context.Context, req RunRequest) (string, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return "", err
	}
	req.Scape = NormalizeScape(req.Scape)
	if req.Scape == "" {
		req.Scape = defaultScape
	}
	return p.Start(context.WithoutCancel(ctx), req.spec())
}

func (c *Client) Wait(ctx context.Context, runID string) (ResultRecord, error) {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return ResultRecord{}, err
	}
	return p.Wait(ctx, runID)
}

func (c *Client) Stop(ctx context.Context, runID string) error {
	p, err := c.ensurePolis(ctx)
	if err != nil {
		return err
	}
	return p.StopRun(runID)
}

// Runs lists recorded runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunRecord, error) {
	if _, err := c.ensurePolis(ctx); err != nil {
		return nil, err
	}
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}

	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.After(runs[j].CreatedAt) })
	if len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return runs, nil
}

// Generations returns the recorded stats of a run in iteration order. With
// Limit set only the last Limit generations are returned.
func (c *Client) Generations(ctx context.Context, req GenerationsRequest) ([]GenerationRecord, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	generations, ok, err := c.store.GetGenerations(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, known, _ := c.store.GetRun(ctx, runID); !known {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, nil
	}
	if req.Limit > 0 && len(generations) > req.Limit {
		generations = generations[len(generations)-req.Limit:]
	}
	return generations, nil
}

// Result returns the fittest chromosome recorded for runID. An empty runID
// selects the latest run.
func (c *Client) Result(ctx context.Context, runID string) (ResultRecord, error) {
	runID, err := c.resolveRunID(ctx, runID, runID == "")
	if err != nil {
		return ResultRecord{}, err
	}
	result, ok, err := c.store.GetResult(ctx, runID)
	if err != nil {
		return ResultRecord{}, err
	}
	if !ok {
		return ResultRecord{}, fmt.Errorf("%w: no result for %s", ErrRunNotFound, runID)
	}
	return result, nil
}

// Export writes the records of runID under outDir/<run id> and returns that
// directory. An empty runID selects the latest run.
func (c *Client) Export(ctx context.Context, runID, outDir string) (string, error) {
	runID, err := c.resolveRunID(ctx, runID, runID == "")
	if err != nil {
		return "", err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	generations, _, err := c.store.GetGenerations(ctx, runID)
	if err != nil {
		return "", err
	}
	artifacts := stats.RunArtifacts{Run: run, Generations: generations}
	if result, ok, err := c.store.GetResult(ctx, runID); err != nil {
		return "", err
	} else if ok {
		artifacts.Result = &result
	}
	return stats.WriteRunArtifacts(outDir, artifacts)
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", fmt.Errorf("%w: use either run id or latest", evo.ErrInvalidArgument)
	}
	if runID != "" {
		if _, err := c.ensurePolis(ctx); err != nil {
			return "", err
		}
		return runID, nil
	}
	if !latest {
		return "", fmt.Errorf("%w: run id is required", evo.ErrInvalidArgument)
	}
	runs, err := c.Runs(ctx, RunsRequest{Limit: 1})
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w: no runs recorded", ErrRunNotFound)
	}
	return runs[0].ID, nil
}

func (c *Client) ensurePolis(ctx context.Context) (*platform.Polis, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.polis != nil {
		return c.polis, nil
	}
	p := platform.NewPolis(platform.Config{Store: c.store, Logger: c.logger, Observer: c.observer})
	if err := p.Init(ctx); err != nil {
		return nil, err
	}
	c.polis = p
	return c.polis, nil
}

func (r RunRequest) spec() platform.RunSpec {
	return platform.RunSpec{ID: r.ID, Name: r.Name, Scape: r.Scape, Params: r.Params}
}
