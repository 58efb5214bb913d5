package evolvekit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func smallRequest(scape string) RunRequest {
	params := DefaultParams()
	params.Items = 10
	params.PopulationSize = 12
	params.EliteCount = 1
	params.BufferSize = 24
	params.MaxIterations = 6
	params.Timeout = 5 * time.Second
	params.MatesTimeout = time.Second
	params.Workers = 2
	params.Seed = 11
	return RunRequest{Scape: scape, Params: params}
}

func newClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientRunAndQueries(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	summary, err := client.RunSplitSet(ctx, smallRequest(""))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Scape != "split-set" || summary.Status != RunStatusTerminated || summary.RunID == "" {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	runs, err := client.Runs(ctx, RunsRequest{})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	generations, err := client.Generations(ctx, GenerationsRequest{Latest: true})
	if err != nil {
		t.Fatalf("generations: %v", err)
	}
	if len(generations) != summary.Result.Iterations {
		t.Fatalf("expected %d generations, got %d", summary.Result.Iterations, len(generations))
	}
	if len(generations) > 1 {
		last, err := client.Generations(ctx, GenerationsRequest{RunID: summary.RunID, Limit: 1})
		if err != nil {
			t.Fatalf("generations with limit: %v", err)
		}
		if len(last) != 1 || last[0].Iteration != len(generations)-1 {
			t.Fatalf("expected only the last generation, got %+v", last)
		}
	}

	result, err := client.Result(ctx, "")
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Fingerprint != summary.Result.Fingerprint || len(result.Genes) != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestClientUnknownRun(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	if _, err := client.Result(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
	if _, err := client.Generations(ctx, GenerationsRequest{RunID: "missing"}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
	if _, err := client.Generations(ctx, GenerationsRequest{RunID: "x", Latest: true}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, err := client.Result(ctx, ""); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected no runs recorded, got %v", err)
	}
}

func TestClientStartStop(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	req := smallRequest("one-max")
	req.Items = 5000
	req.MaxIterations = 0
	req.Timeout = 0
	id, err := client.Start(ctx, req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := client.Stop(ctx, id); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Wait(waitCtx, id); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled run, got %v", err)
	}
}

func TestClientStartOutlivesCallerContext(t *testing.T) {
	client := newClient(t)

	req := smallRequest("one-max")
	req.Items = 5000
	req.MaxIterations = 0
	req.Timeout = 0
	callCtx, cancelCall := context.WithCancel(context.Background())
	id, err := client.Start(callCtx, req)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	cancelCall()
	time.Sleep(100 * time.Millisecond)

	ctx := context.Background()
	if err := client.Stop(ctx, id); err != nil {
		t.Fatalf("expected run to be active after caller context ended: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Wait(waitCtx, id); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled run, got %v", err)
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	if _, err := New(Options{StoreKind: "etcd"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestClientExport(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	summary, err := client.Run(ctx, smallRequest("one-max"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	out := t.TempDir()
	dir, err := client.Export(ctx, "", out)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if dir != filepath.Join(out, summary.RunID) {
		t.Fatalf("unexpected export dir: %s", dir)
	}
	for _, name := range []string{"run.json", "result.json", "fitness_series.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if _, err := client.Export(ctx, "missing", out); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected run not found, got %v", err)
	}
}
