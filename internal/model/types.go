package model

import (
	"time"

	"evolvekit/internal/evo"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type RunStatus = evo.RunStatus

// RunRecord describes one engine run.
type RunRecord struct {
	VersionedRecord
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Scape     string            `json:"scape"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Status    RunStatus         `json:"status"`
	Error     string            `json:"error,omitempty"`
	Params    map[string]string `json:"params,omitempty"`
}

// GenerationRecord is the stats of one evaluated generation of a run.
type GenerationRecord struct {
	VersionedRecord
	RunID     string              `json:"run_id"`
	Iteration int                 `json:"iteration"`
	ElapsedMS int64               `json:"elapsed_ms"`
	Stats     evo.PopulationStats `json:"stats"`
}

// ResultRecord is the fittest chromosome a run terminated with.
type ResultRecord struct {
	VersionedRecord
	RunID       string      `json:"run_id"`
	Fingerprint string      `json:"fingerprint"`
	Fitness     evo.Fitness `json:"fitness"`
	Age         int         `json:"age"`
	Generation  int         `json:"generation"`
	Iterations  int         `json:"iterations"`
	Genes       string      `json:"genes,omitempty"`
}
