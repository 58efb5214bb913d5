package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"evolvekit/pkg/evolvekit"
)

func newRunsCommand(opts *globalOptions) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("%w: limit must be > 0", evolvekit.ErrInvalidArgument)
			}
			s, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			runs, err := s.client.Runs(cmd.Context(), evolvekit.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs found")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tSCAPE\tSTATUS\tCREATED\tERROR")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", run.ID, run.Scape, run.Status, humanize.Time(run.CreatedAt), run.Error)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs as JSON")
	return cmd
}

func newGenerationsCommand(opts *globalOptions) *cobra.Command {
	var (
		latest  bool
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "generations [run-id]",
		Short: "Show the per-generation stats of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := evolvekit.GenerationsRequest{Latest: latest, Limit: limit}
			if len(args) == 1 {
				req.RunID = args[0]
			}
			s, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			generations, err := s.client.Generations(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, generations)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ITERATION\tELAPSED MS\tSIZE\tMIN\tAVG\tMAX\tAVG AGE")
			for _, g := range generations {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%.2f\n",
					g.Iteration,
					humanize.Comma(g.ElapsedMS),
					g.Stats.Size,
					humanize.FtoaWithDigits(g.Stats.MinFitness.Value(), 4),
					humanize.FtoaWithDigits(g.Stats.AvgFitness.Value(), 4),
					humanize.FtoaWithDigits(g.Stats.MaxFitness.Value(), 4),
					g.Stats.AvgAge,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "use the latest run")
	cmd.Flags().IntVar(&limit, "limit", 0, "show only the last N generations")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit generations as JSON")
	return cmd
}

func newResultCommand(opts *globalOptions) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "result [run-id]",
		Short: "Show the fittest chromosome of a run (latest when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var runID string
			if len(args) == 1 {
				runID = args[0]
			}
			s, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.client.Result(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run_id=%s fingerprint=%s\n", result.RunID, result.Fingerprint)
			fmt.Fprintf(out, "fitness=%s age=%d generation=%d iterations=%s\n",
				humanize.FtoaWithDigits(result.Fitness.Value(), 6), result.Age, result.Generation, humanize.Comma(int64(result.Iterations)))
			if result.Genes != "" {
				fmt.Fprintf(out, "genes=%s\n", result.Genes)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the result as JSON")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write a run's records and fitness series to a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				return fmt.Errorf("%w: --out is required", evolvekit.ErrInvalidArgument)
			}
			var runID string
			if len(args) == 1 {
				runID = args[0]
			}
			s, err := opts.open(cmd, nil)
			if err != nil {
				return err
			}
			defer s.close()

			dir, err := s.client.Export(cmd.Context(), runID, outDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "exports", "directory the run is exported under")
	return cmd
}
