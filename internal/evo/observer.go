package evo

import "time"

// Observer receives engine events, typically to export metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	RunStarted()
	RunFinished(status RunStatus)
	GenerationEvaluated(iteration int, stats PopulationStats)
	PipelineCompleted(elapsed time.Duration)
	CrossoverFailed(reason string)
	StatsDropped()
}

type RunStatus string

const (
	RunStatusRunning    RunStatus = "running"
	RunStatusTerminated RunStatus = "terminated"
	RunStatusFailed     RunStatus = "failed"
	RunStatusStopped    RunStatus = "stopped"
)

type NopObserver struct{}

func (NopObserver) RunStarted() {}
func (NopObserver) RunFinished(RunStatus) {}
func (NopObserver) GenerationEvaluated(int, PopulationStats) {}
func (NopObserver) PipelineCompleted(time.Duration) {}
func (NopObserver) CrossoverFailed(string) {}
func (NopObserver) StatsDropped() {}
