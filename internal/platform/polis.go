package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"evolvekit/internal/evo"
	"evolvekit/internal/genotype"
	"evolvekit/internal/model"
	"evolvekit/internal/scape"
	"evolvekit/internal/storage"
	"evolvekit/internal/strategy"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Store  storage.Store
	Logger *zerolog.Logger
	// Observer receives the events of every engine run, typically
	// telemetry.Metrics.
	Observer evo.Observer
}

type StopReason string

const (
	StopReasonNormal   StopReason = "normal"
	StopReasonShutdown StopReason = "shutdown"
)

// RunSpec describes one bit-genome run over a registered scape.
type RunSpec struct {
	// ID is generated when empty.
	ID     string
	Name   string
	Scape  string `validate:"required"`
	Params scape.Params
}

// Polis owns the store and the registry of runs it launched.
type Polis struct {
	store    storage.Store
	logger   zerolog.Logger
	observer evo.Observer

	mu             sync.RWMutex
	started        bool
	lastStopReason StopReason
	runs           map[string]*managedRun
	finished       map[string]runOutcome
}

type managedRun struct {
	spec   RunSpec
	cancel context.CancelFunc
	done   chan struct{}
}

type runOutcome struct {
	result model.ResultRecord
	err    error
}

func NewPolis(cfg Config) *Polis {
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Polis{
		store:          cfg.Store,
		logger:         logger.With().Str("component", "polis").Logger(),
		observer:       cfg.Observer,
		runs:           make(map[string]*managedRun),
		finished:       make(map[string]runOutcome),
		lastStopReason: StopReasonNormal,
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("%w: store is required", evo.ErrIllegalState)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Store() storage.Store { return p.store }

// Start validates spec, builds its engine and runs it in the background.
// It returns the run ID.
func (p *Polis) Start(ctx context.Context, spec RunSpec) (string, error) {
	spec.Scape = scape.Normalize(spec.Scape)
	if err := validateSpec(spec); err != nil {
		return "", err
	}
	sc, err := scape.New(spec.Scape, spec.Params)
	if err != nil {
		return "", err
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if spec.Name == "" {
		spec.Name = spec.Scape
	}

	runLogger := p.logger.With().Str("run_id", spec.ID).Str("scape", spec.Scape).Logger()
	cfg := scape.EngineConfig(sc, spec.Params)
	cfg.Name = spec.Name
	cfg.Properties["run_id"] = spec.ID
	cfg.Logger = &runLogger
	cfg.Observer = p.observer
	engine, err := evo.NewEngine(cfg)
	if err != nil {
		return "", err
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &managedRun{spec: spec, cancel: cancel, done: make(chan struct{})}
	if err := p.register(spec.ID, run); err != nil {
		cancel()
		return "", err
	}

	recorder := &Recorder[strategy.BitGenome]{
		Store:    p.store,
		Logger:   runLogger,
		Describe: func(g strategy.BitGenome) string { return genotype.FormatBits(g.Data()) },
	}
	record := model.RunRecord{
		ID:     spec.ID,
		Name:   spec.Name,
		Scape:  spec.Scape,
		Params: spec.Params.Map(),
	}
	go func() {
		defer cancel()
		result, err := recorder.Record(runCtx, record, engine)
		p.complete(spec.ID, run, runOutcome{result: result, err: err})
	}()

	runLogger.Info().Msg("run started")
	return spec.ID, nil
}

// Run starts spec and waits for its outcome.
func (p *Polis) Run(ctx context.Context, spec RunSpec) (model.ResultRecord, error) {
	id, err := p.Start(ctx, spec)
	if err != nil {
		return model.ResultRecord{}, err
	}
	return p.Wait(ctx, id)
}

// Wait blocks until the run finishes or ctx ends.
func (p *Polis) Wait(ctx context.Context, runID string) (model.ResultRecord, error) {
	p.mu.RLock()
	run, active := p.runs[runID]
	outcome, done := p.finished[runID]
	p.mu.RUnlock()

	switch {
	case done:
		return outcome.result, outcome.err
	case !active:
		return model.ResultRecord{}, fmt.Errorf("%w: unknown run: %s", evo.ErrInvalidArgument, runID)
	}

	select {
	case <-run.done:
	case <-ctx.Done():
		return model.ResultRecord{}, ctx.Err()
	}
	p.mu.RLock()
	outcome = p.finished[runID]
	p.mu.RUnlock()
	return outcome.result, outcome.err
}

// StopRun cancels an active run. Its outcome stays available through Wait.
func (p *Polis) StopRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("%w: run id is required", evo.ErrInvalidArgument)
	}
	p.mu.RLock()
	run, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: run not active: %s", evo.ErrIllegalState, runID)
	}
	run.cancel()
	return nil
}

func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Polis) Started() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.started
}

func (p *Polis) LastStopReason() StopReason {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastStopReason
}

func (p *Polis) Stop() {
	_ = p.StopWithReason(StopReasonNormal)
}

// StopWithReason cancels every active run and waits for them to be
// recorded.
func (p *Polis) StopWithReason(reason StopReason) error {
	if reason == "" {
		reason = StopReasonNormal
	}
	if reason != StopReasonNormal && reason != StopReasonShutdown {
		return fmt.Errorf("%w: unsupported stop reason: %s", evo.ErrInvalidArgument, reason)
	}

	p.mu.Lock()
	runs := make([]*managedRun, 0, len(p.runs))
	for _, run := range p.runs {
		run.cancel()
		runs = append(runs, run)
	}
	p.started = false
	p.lastStopReason = reason
	p.mu.Unlock()

	for _, run := range runs {
		<-run.done
	}
	p.logger.Info().Str("reason", string(reason)).Int("runs", len(runs)).Msg("polis stopped")
	return nil
}

func (p *Polis) register(runID string, run *managedRun) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return fmt.Errorf("%w: polis is not initialized", evo.ErrIllegalState)
	}
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("%w: run already active: %s", evo.ErrIllegalState, runID)
	}
	if _, exists := p.finished[runID]; exists {
		return fmt.Errorf("%w: run already recorded: %s", evo.ErrIllegalState, runID)
	}
	p.runs[runID] = run
	return nil
}

func (p *Polis) complete(runID string, run *managedRun, outcome runOutcome) {
	p.mu.Lock()
	if current, ok := p.runs[runID]; ok && current == run {
		delete(p.runs, runID)
	}
	p.finished[runID] = outcome
	p.mu.Unlock()
	close(run.done)
}

func validateSpec(spec RunSpec) error {
	err := validate.Struct(spec)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%w: %s must satisfy %s%s", evo.ErrInvalidArgument, fe.Namespace(), fe.Tag(), paramSuffix(fe.Param())))
	}
	return errors.Join(errs...)
}

func paramSuffix(param string) string {
	if param == "" {
		return ""
	}
	return "=" + param
}
