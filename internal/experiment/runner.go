// Package experiment runs every configuration of a config.Experiment through
// the Monte Carlo harness and compares each against the baseline.
package experiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/paiml/sovereign-ai-stack-book/internal/config"
	"github.com/paiml/sovereign-ai-stack-book/internal/consensus"
	"github.com/paiml/sovereign-ai-stack-book/internal/montecarlo"
	"github.com/paiml/sovereign-ai-stack-book/internal/reliability"
)

// Entry is the result of one configuration.
type Entry struct {
	Label  string                       `json:"label" yaml:"label"`
	Result *montecarlo.SimulationResult `json:"result" yaml:"result"`
}

// Comparison is one configuration measured against the baseline.
type Comparison struct {
	Label  string                         `json:"label" yaml:"label"`
	Report *reliability.ComparativeReport `json:"report" yaml:"report"`
}

// Report collects every result of an experiment.
type Report struct {
	Name     string  `json:"name" yaml:"name"`
	Baseline string  `json:"baseline" yaml:"baseline"`
	Entries  []Entry `json:"results" yaml:"results"`

	// Comparisons holds one entry per non-baseline configuration, in
	// configuration order. It is empty for single-configuration experiments.
	Comparisons []Comparison `json:"comparisons,omitempty" yaml:"comparisons,omitempty"`
}

// Runner executes experiments.
type Runner struct {
	harness *montecarlo.Harness
	logger  *slog.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{
		harness: montecarlo.NewHarness(montecarlo.WithLogger(logger)),
		logger:  logger,
	}
}

// Run simulates every configuration in order and compares each against the
// baseline.
func (r *Runner) Run(ctx context.Context, e *config.Experiment) (*Report, error) {
	if e == nil {
		return nil, fmt.Errorf("experiment is nil")
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	base := e.BaselineIndex()
	report := &Report{
		Name:     e.Name,
		Baseline: e.Configurations[base].Label,
		Entries:  make([]Entry, 0, len(e.Configurations)),
	}

	r.logger.Info("running experiment",
		"name", e.Name,
		"configurations", len(e.Configurations),
		"trials", e.Trials,
		"tasks_per_trial", e.TasksPerTrial,
		"baseline", report.Baseline,
	)

	for _, c := range e.Configurations {
		strategy, err := consensus.Build(c.StrategyConfig(e.FailureSplit))
		if err != nil {
			return nil, fmt.Errorf("configuration %q: %w", c.Label, err)
		}
		result, err := r.harness.Run(ctx, strategy, e.RunConfig(c))
		if err != nil {
			return nil, fmt.Errorf("configuration %q: %w", c.Label, err)
		}
		report.Entries = append(report.Entries, Entry{Label: c.Label, Result: result})
	}

	baseline := report.Entries[base].Result
	for i, entry := range report.Entries {
		if i == base {
			continue
		}
		cmp, err := reliability.Compare(baseline, entry.Result)
		if err != nil {
			return nil, fmt.Errorf("compare %q: %w", entry.Label, err)
		}
		report.Comparisons = append(report.Comparisons, Comparison{Label: entry.Label, Report: cmp})
		r.logger.Debug("comparison",
			"baseline", report.Baseline,
			"candidate", entry.Label,
			"improvement_pp", cmp.AbsoluteImprovement.String(),
			"failure_reduction", cmp.FailureReduction.String(),
		)
	}
	return report, nil
}

// Result returns the result for label, or nil.
func (rep *Report) Result(label string) *montecarlo.SimulationResult {
	for _, e := range rep.Entries {
		if e.Label == label {
			return e.Result
		}
	}
	return nil
}
