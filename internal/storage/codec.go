package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"evolvekit/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Versioned is the version header every new record should carry.
func Versioned() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeGeneration(g model.GenerationRecord) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeGeneration(data []byte) (model.GenerationRecord, error) {
	var generation model.GenerationRecord
	if err := json.Unmarshal(data, &generation); err != nil {
		return model.GenerationRecord{}, err
	}
	if err := checkVersion(generation.VersionedRecord); err != nil {
		return model.GenerationRecord{}, err
	}
	return generation, nil
}

func EncodeResult(r model.ResultRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeResult(data []byte) (model.ResultRecord, error) {
	var result model.ResultRecord
	if err := json.Unmarshal(data, &result); err != nil {
		return model.ResultRecord{}, err
	}
	if err := checkVersion(result.VersionedRecord); err != nil {
		return model.ResultRecord{}, err
	}
	return result, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
