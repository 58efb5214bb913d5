package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"evolvekit/internal/telemetry"
	"evolvekit/pkg/evolvekit"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	var (
		configPath  string
		metricsAddr string
		jsonOut     bool
	)
	flagReq := evolvekit.RunRequest{Scape: "split-set", Params: evolvekit.DefaultParams()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one evolutionary search and record it",
		Example: `  evolvekitctl run --scape split-set --items 200 --population 60 --buffer 100
  evolvekitctl run --config run.yaml --store sqlite --db-path runs.db --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := evolvekit.RunRequest{Scape: "split-set", Params: evolvekit.DefaultParams()}
			if configPath != "" {
				loaded, err := loadRunRequest(configPath, req)
				if err != nil {
					return err
				}
				req = loaded
			}
			applyChangedFlags(cmd, &req, flagReq)
			if err := validateRunRequest(&req); err != nil {
				return err
			}

			var observer evolvekit.Observer
			if metricsAddr != "" {
				metrics := telemetry.NewMetrics("")
				observer = metrics
				srv := metrics.Server(metricsAddr)
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						fmt.Fprintf(cmd.ErrOrStderr(), "metrics server: %v\n", err)
					}
				}()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = srv.Shutdown(ctx)
				}()
			}

			s, err := opts.open(cmd, observer)
			if err != nil {
				return err
			}
			defer s.close()

			summary, err := s.client.Run(cmd.Context(), req)
			if err != nil {
				if summary.RunID != "" {
					s.logger.Error().Err(err).Str("run_id", summary.RunID).Str("status", string(summary.Status)).Msg("run did not terminate")
				}
				return err
			}
			return printRunSummary(cmd, summary, jsonOut)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "YAML run file; flags override its values")
	f.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	f.BoolVar(&jsonOut, "json", false, "print the summary as JSON")
	f.StringVar(&flagReq.ID, "id", "", "run id (generated when empty)")
	f.StringVar(&flagReq.Name, "name", "", "run name")
	f.StringVar(&flagReq.Scape, "scape", flagReq.Scape, "problem domain (split-set, one-max)")
	f.IntVar(&flagReq.Items, "items", flagReq.Items, "genome length")
	f.IntVar(&flagReq.PopulationSize, "population", flagReq.PopulationSize, "population size")
	f.IntVar(&flagReq.EliteCount, "elite", flagReq.EliteCount, "elite count")
	f.IntVar(&flagReq.BufferSize, "buffer", flagReq.BufferSize, "candidate buffer size")
	f.Float64Var(&flagReq.MutationRate, "mutation-rate", flagReq.MutationRate, "probability a chromosome is mutated")
	f.Float64Var(&flagReq.CrossoverRate, "crossover-rate", flagReq.CrossoverRate, "probability a chromosome is a crossover parent")
	f.Float64Var(&flagReq.Similarity, "similarity", flagReq.Similarity, "target similarity of crossover mates")
	f.IntVar(&flagReq.MaxIterations, "max-iterations", flagReq.MaxIterations, "stop after this many generations (0 disables)")
	f.DurationVar(&flagReq.Timeout, "timeout", flagReq.Timeout, "stop after this long (0 disables)")
	f.DurationVar(&flagReq.MatesTimeout, "mates-timeout", flagReq.MatesTimeout, "bound of one mates selection")
	f.IntVar(&flagReq.Workers, "workers", flagReq.Workers, "pipeline workers (0 means GOMAXPROCS)")
	f.Int64Var(&flagReq.Seed, "seed", flagReq.Seed, "random seed")
	return cmd
}

// applyChangedFlags copies the flags set on the command line from src into
// dst, leaving values from the run file alone otherwise.
func applyChangedFlags(cmd *cobra.Command, dst *evolvekit.RunRequest, src evolvekit.RunRequest) {
	setters := map[string]func(){
		"id":             func() { dst.ID = src.ID },
		"name":           func() { dst.Name = src.Name },
		"scape":          func() { dst.Scape = src.Scape },
		"items":          func() { dst.Items = src.Items },
		"population":     func() { dst.PopulationSize = src.PopulationSize },
		"elite":          func() { dst.EliteCount = src.EliteCount },
		"buffer":         func() { dst.BufferSize = src.BufferSize },
		"mutation-rate":  func() { dst.MutationRate = src.MutationRate },
		"crossover-rate": func() { dst.CrossoverRate = src.CrossoverRate },
		"similarity":     func() { dst.Similarity = src.Similarity },
		"max-iterations": func() { dst.MaxIterations = src.MaxIterations },
		"timeout":        func() { dst.Timeout = src.Timeout },
		"mates-timeout":  func() { dst.MatesTimeout = src.MatesTimeout },
		"workers":        func() { dst.Workers = src.Workers },
		"seed":           func() { dst.Seed = src.Seed },
	}
	for name, set := range setters {
		if cmd.Flags().Changed(name) {
			set()
		}
	}
}

func printRunSummary(cmd *cobra.Command, summary evolvekit.RunSummary, jsonOut bool) error {
	if jsonOut {
		return writeJSON(cmd, map[string]any{
			"run_id":     summary.RunID,
			"scape":      summary.Scape,
			"status":     summary.Status,
			"elapsed_ms": summary.Elapsed.Milliseconds(),
			"result":     summary.Result,
		})
	}

	out := cmd.OutOrStdout()
	r := summary.Result
	fmt.Fprintf(out, "run_id=%s scape=%s status=%s\n", summary.RunID, summary.Scape, summary.Status)
	fmt.Fprintf(out, "generations=%s elapsed=%s\n", humanize.Comma(int64(r.Iterations)), summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "fittest=%.12s fitness=%s age=%d generation=%d\n", r.Fingerprint, humanize.FtoaWithDigits(r.Fitness.Value(), 6), r.Age, r.Generation)
	if r.Genes != "" {
		fmt.Fprintf(out, "genes=%s\n", abbreviate(r.Genes, 64))
	}
	return nil
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
