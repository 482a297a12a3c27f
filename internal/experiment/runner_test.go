package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
	"github.com/paiml/sovereign-ai-stack-book/internal/config"
	"github.com/paiml/sovereign-ai-stack-book/internal/consensus"
)

func testRunner() *Runner {
	return NewRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRunner_Default(t *testing.T) {
	e := config.Default()
	e.Trials, e.TasksPerTrial = 20, 100
	for i := range e.Configurations {
		e.Configurations[i].FailureRate = 0.1
	}

	rep, err := testRunner().Run(context.Background(), e)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Baseline != "single" || len(rep.Entries) != 3 || len(rep.Comparisons) != 2 {
		t.Fatalf("report shape = baseline %q, %d entries, %d comparisons",
			rep.Baseline, len(rep.Entries), len(rep.Comparisons))
	}
	if rep.Comparisons[0].Label != "bft-f1" || rep.Comparisons[1].Label != "bft-f2" {
		t.Errorf("comparison order = %q, %q", rep.Comparisons[0].Label, rep.Comparisons[1].Label)
	}
	for _, c := range rep.Comparisons {
		if !c.Report.Improved() {
			t.Errorf("%s should improve on a single agent: %+v", c.Label, c.Report)
		}
	}
	if rep.Result("bft-f2").Agents != 7 {
		t.Errorf("bft-f2 agents = %d", rep.Result("bft-f2").Agents)
	}
	if rep.Result("missing") != nil {
		t.Error("Result(missing) should be nil")
	}
}

func TestRunner_Deterministic(t *testing.T) {
	e := config.Sweep(2, 0.2)
	e.Trials, e.TasksPerTrial = 10, 30

	e.Workers = 1
	a, err := testRunner().Run(context.Background(), e)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	e.Workers = 6
	b, err := testRunner().Run(context.Background(), e)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("reports differ between worker counts:\n%s\n%s", ja, jb)
	}
}

func TestRunner_BaselineNotFirst(t *testing.T) {
	e := config.Default()
	e.Trials, e.TasksPerTrial = 5, 20
	e.Baseline = "bft-f1"

	rep, err := testRunner().Run(context.Background(), e)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Comparisons) != 2 || rep.Comparisons[0].Label != "single" || rep.Comparisons[1].Label != "bft-f2" {
		t.Errorf("comparisons = %+v", rep.Comparisons)
	}
}

func TestRunner_SingleConfiguration(t *testing.T) {
	e := config.Only(config.Configuration{
		Label:        "pool",
		Strategy:     consensus.KindMajority,
		FailureRates: []float64{0, 0, 1},
	})
	e.Trials, e.TasksPerTrial = 10, 100

	rep, err := testRunner().Run(context.Background(), e)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Comparisons) != 0 {
		t.Errorf("comparisons = %d, want 0", len(rep.Comparisons))
	}
	r := rep.Result("pool")
	if r.Successes != r.TotalTasks {
		t.Errorf("two reliable agents of three should always agree: %d/%d", r.Successes, r.TotalTasks)
	}
	if r.FailureModes[agent.ModeCrash]+r.FailureModes[agent.ModeHallucination]+r.FailureModes[agent.ModeCorruption] != 0 {
		t.Errorf("successful tasks should record no failure modes: %v", r.FailureModes)
	}
}

func TestRunner_Errors(t *testing.T) {
	if _, err := testRunner().Run(context.Background(), nil); err == nil {
		t.Error("nil experiment should fail")
	}
	e := config.Default()
	e.Configurations[0].FailureRate = 2
	if _, err := testRunner().Run(context.Background(), e); !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}
