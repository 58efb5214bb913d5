// Package stats writes recorded runs to disk as plain artifacts: the run
// and result records as JSON and the fitness series as CSV.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"evolvekit/internal/model"
)

const (
	runFile    = "run.json"
	resultFile = "result.json"
	seriesFile = "fitness_series.csv"
)

var seriesHeader = []string{"iteration", "elapsed_ms", "size", "min_fitness", "avg_fitness", "max_fitness", "avg_age"}

type RunArtifacts struct {
	Run         model.RunRecord
	Generations []model.GenerationRecord
	// Result is nil for runs that did not terminate.
	Result *model.ResultRecord
}

// SeriesPoint is one row of the fitness series.
type SeriesPoint struct {
	Iteration int
	ElapsedMS int64
	Size      int
	Min       float64
	Avg       float64
	Max       float64
	AvgAge    float64
}

// WriteRunArtifacts writes artifacts under baseDir/<run id> and returns that
// directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), artifacts.Run); err != nil {
		return "", err
	}
	if artifacts.Result != nil {
		if err := writeJSON(filepath.Join(runDir, resultFile), artifacts.Result); err != nil {
			return "", err
		}
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), artifacts.Generations); err != nil {
		return "", err
	}
	return runDir, nil
}

func writeSeries(path string, generations []model.GenerationRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(seriesHeader); err != nil {
		return err
	}
	for _, g := range generations {
		if err := writer.Write([]string{
			strconv.Itoa(g.Iteration),
			strconv.FormatInt(g.ElapsedMS, 10),
			strconv.Itoa(g.Stats.Size),
			formatFloat(g.Stats.MinFitness.Value()),
			formatFloat(g.Stats.AvgFitness.Value()),
			formatFloat(g.Stats.MaxFitness.Value()),
			formatFloat(g.Stats.AvgAge),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Sync()
}

// ReadFitnessSeries reads the series written for runID. The boolean is false
// when no series exists.
func ReadFitnessSeries(baseDir, runID string) ([]SeriesPoint, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, seriesFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(seriesHeader)
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []SeriesPoint{}, true, nil
		}
		return nil, false, err
	}

	var series []SeriesPoint
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, err
		}
		point, err := parsePoint(record)
		if err != nil {
			return nil, false, fmt.Errorf("fitness series row %d: %w", len(series)+1, err)
		}
		series = append(series, point)
	}
	return series, true, nil
}

func parsePoint(record []string) (SeriesPoint, error) {
	var (
		p    SeriesPoint
		errs []error
	)
	atoi := func(s string) int {
		v, err := strconv.Atoi(s)
		errs = append(errs, err)
		return v
	}
	parseFloat := func(s string) float64 {
		v, err := strconv.ParseFloat(s, 64)
		errs = append(errs, err)
		return v
	}
	p.Iteration = atoi(record[0])
	elapsed, err := strconv.ParseInt(record[1], 10, 64)
	errs = append(errs, err)
	p.ElapsedMS = elapsed
	p.Size = atoi(record[2])
	p.Min = parseFloat(record[3])
	p.Avg = parseFloat(record[4])
	p.Max = parseFloat(record[5])
	p.AvgAge = parseFloat(record[6])
	return p, errors.Join(errs...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
