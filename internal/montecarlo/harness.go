// Package montecarlo drives many seeded trials through a consensus strategy
// and aggregates what happened.
//
// Every task's seed is derived from its (trial, task) indices, so a trial's
// outcome does not depend on which goroutine ran it or when. Trials may run
// in parallel; their tallies are written to per-trial slots and merged in
// trial order afterwards, so identical inputs always produce an identical
// SimulationResult.
package montecarlo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
	"github.com/paiml/sovereign-ai-stack-book/internal/consensus"
)

// Harness runs Monte Carlo simulations.
type Harness struct {
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the harness logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// NewHarness creates a harness. By default it logs nothing.
func NewHarness(opts ...Option) *Harness {
	h := &Harness{}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h
}

// Run evaluates strategy with a default harness.
func Run(strategy consensus.Strategy, cfg RunConfig) (*SimulationResult, error) {
	return NewHarness().Run(context.Background(), strategy, cfg)
}

// trialTally holds the counts for one trial. Fixed-size arrays keep the
// merge free of map iteration.
type trialTally struct {
	tasks       int
	successes   int
	noConsensus int
	wrong       int
	invocations int
	escalations int
	latency     int64
	modes       [4]int
	complexity  [agent.MaxComplexity + 1]Tally
}

var modeIndex = map[agent.FailureMode]int{
	agent.ModeSuccess:       0,
	agent.ModeHallucination: 1,
	agent.ModeCorruption:    2,
	agent.ModeCrash:         3,
}

// Run executes cfg.Trials × cfg.TasksPerTrial decisions. The context only
// stops scheduling of further trials; a cancelled run returns ctx.Err().
func (h *Harness) Run(ctx context.Context, strategy consensus.Strategy, cfg RunConfig) (*SimulationResult, error) {
	if strategy == nil {
		return nil, fmt.Errorf("run: %w", consensus.ErrEmptyPool)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Scheme == "" {
		cfg.Scheme = SeedMixed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	tallies := make([]trialTally, cfg.Trials)

	if cfg.Workers <= 1 {
		for t := range tallies {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			tallies[t] = h.runTrial(strategy, cfg, t)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Workers)
		for t := range tallies {
			t := t
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				tallies[t] = h.runTrial(strategy, cfg, t)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	result := merge(strategy, cfg, tallies)
	h.logger.Info("simulation complete",
		"strategy", result.Strategy,
		"tasks", result.TotalTasks,
		"success_rate", result.SuccessRate().String(),
		"workers", cfg.Workers,
		"duration", time.Since(start),
	)
	return result, nil
}

func (h *Harness) runTrial(strategy consensus.Strategy, cfg RunConfig, trial int) trialTally {
	var tt trialTally
	for k := 0; k < cfg.TasksPerTrial; k++ {
		task := agent.TaskFor(uint64(k), cfg.Complexity)
		d := strategy.Decide(task, cfg.Seed(trial, k))

		tt.tasks++
		tt.invocations += d.Invocations
		tt.latency += d.LatencyMicros
		if d.Escalated {
			tt.escalations++
		}

		ok := false
		if v, agreed := d.Outcome.Value(); agreed {
			ok = v == agent.ExpectedValue(task.ID)
			if !ok {
				tt.wrong++
			}
		} else {
			tt.noConsensus++
		}

		if ok {
			tt.successes++
		} else {
			for _, vote := range d.Votes {
				if vote.Mode.IsFailure() {
					tt.modes[modeIndex[vote.Mode]]++
				}
			}
		}

		if task.Complexity > 0 {
			c := &tt.complexity[task.Complexity]
			c.Total++
			if ok {
				c.Passed++
			}
		}
	}
	h.logger.Debug("trial complete",
		"strategy", strategy.Name(),
		"trial", trial,
		"successes", tt.successes,
		"tasks", tt.tasks,
	)
	return tt
}

// merge folds per-trial tallies in trial order.
func merge(strategy consensus.Strategy, cfg RunConfig, tallies []trialTally) *SimulationResult {
	r := &SimulationResult{
		Strategy:     strategy.Name(),
		Kind:         strategy.Kind(),
		Agents:       strategy.Size(),
		Config:       cfg,
		FailureModes: make(map[agent.FailureMode]int, len(agent.FailureModes())),
	}
	for _, mode := range agent.FailureModes() {
		r.FailureModes[mode] = 0
	}
	var complexity [agent.MaxComplexity + 1]Tally

	for i := range tallies {
		tt := &tallies[i]
		r.TotalTasks += tt.tasks
		r.Successes += tt.successes
		r.NoConsensus += tt.noConsensus
		r.WrongAgreements += tt.wrong
		r.Invocations += tt.invocations
		r.LatencyMicros += tt.latency
		r.Escalations += tt.escalations
		for _, mode := range agent.FailureModes() {
			r.FailureModes[mode] += tt.modes[modeIndex[mode]]
		}
		for c := range complexity {
			complexity[c].Passed += tt.complexity[c].Passed
			complexity[c].Total += tt.complexity[c].Total
		}
	}

	if cfg.Complexity {
		r.Complexity = make(map[int]Tally, agent.MaxComplexity)
		for c := agent.MinComplexity; c <= agent.MaxComplexity; c++ {
			if complexity[c].Total > 0 {
				r.Complexity[c] = complexity[c]
			}
		}
	}
	return r
}
