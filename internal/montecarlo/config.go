package montecarlo

import (
	"errors"
	"fmt"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
)

// ErrInvalidRunConfig is returned when a RunConfig cannot be executed.
var ErrInvalidRunConfig = errors.New("invalid run config")

// SeedScheme selects how per-task seeds are derived from (trial, task).
type SeedScheme string

const (
	// SeedMixed hashes (base, trial, task) into an independent seed per task.
	SeedMixed SeedScheme = "mixed"
	// SeedTrial uses base+trial for every task in a trial, so the task id is
	// the only thing that varies within a trial.
	SeedTrial SeedScheme = "trial"
)

// String returns the scheme as a string.
func (s SeedScheme) String() string {
	return string(s)
}

// IsValid returns true if this is a known scheme.
func (s SeedScheme) IsValid() bool {
	switch s {
	case SeedMixed, SeedTrial:
		return true
	default:
		return false
	}
}

// Defaults for a run: 100 trials of 100 tasks.
const (
	DefaultTrials        = 100
	DefaultTasksPerTrial = 100
	DefaultBaseSeed      = 42
)

// RunConfig controls a Monte Carlo run.
type RunConfig struct {
	Trials        int        `json:"trials" yaml:"trials"`
	TasksPerTrial int        `json:"tasks_per_trial" yaml:"tasks_per_trial"`
	BaseSeed      uint64     `json:"base_seed" yaml:"base_seed"`
	Scheme        SeedScheme `json:"seed_scheme,omitempty" yaml:"seed_scheme,omitempty"`

	// Workers bounds concurrent trials. Zero or one runs sequentially.
	// The result does not depend on it.
	Workers int `json:"-" yaml:"-"`

	// Complexity enables complexity-weighted failure rates.
	Complexity bool `json:"complexity,omitempty" yaml:"complexity,omitempty"`
}

// DefaultRunConfig returns 100 trials of 100 tasks, run sequentially.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Trials:        DefaultTrials,
		TasksPerTrial: DefaultTasksPerTrial,
		BaseSeed:      DefaultBaseSeed,
		Scheme:        SeedMixed,
	}
}

// Validate checks the config. Zero trials or tasks is valid and produces an
// empty result.
func (c RunConfig) Validate() error {
	if c.Trials < 0 {
		return fmt.Errorf("trials %d: %w", c.Trials, ErrInvalidRunConfig)
	}
	if c.TasksPerTrial < 0 {
		return fmt.Errorf("tasks per trial %d: %w", c.TasksPerTrial, ErrInvalidRunConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d: %w", c.Workers, ErrInvalidRunConfig)
	}
	if c.Scheme != "" && !c.Scheme.IsValid() {
		return fmt.Errorf("seed scheme %q: %w", c.Scheme, ErrInvalidRunConfig)
	}
	return nil
}

// Samples returns the total number of tasks the run evaluates.
func (c RunConfig) Samples() int {
	return c.Trials * c.TasksPerTrial
}

// Seed returns the seed for task k of trial t. It depends only on the
// config and the indices, never on execution order.
func (c RunConfig) Seed(trial, task int) uint64 {
	if c.Scheme == SeedTrial {
		return c.BaseSeed + uint64(trial)
	}
	return agent.DeriveSeed(c.BaseSeed, uint64(trial), uint64(task))
}
