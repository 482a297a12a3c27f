// Package config loads experiment definitions. An experiment names a set of
// consensus configurations to simulate under one Monte Carlo setup, and the
// baseline they are compared against. Files may be TOML or YAML; JSON is
// accepted from request bodies.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shirou/gopsutil/v4/cpu"
	"gopkg.in/yaml.v3"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
	"github.com/paiml/sovereign-ai-stack-book/internal/consensus"
	"github.com/paiml/sovereign-ai-stack-book/internal/montecarlo"
	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
)

// ErrInvalidConfig is returned for experiments that cannot be run.
var ErrInvalidConfig = errors.New("invalid experiment config")

// ErrUnsupportedFormat is returned for files that are neither TOML nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Format is a config file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DefaultFailureRate is the per-agent failure rate of the default experiment.
const DefaultFailureRate = 0.23

// Configuration is one strategy to simulate.
type Configuration struct {
	// Label identifies the configuration in reports and as a baseline.
	Label string `json:"label" toml:"label" yaml:"label"`

	Strategy       consensus.Kind `json:"strategy" toml:"strategy" yaml:"strategy"`
	FaultTolerance int            `json:"fault_tolerance,omitempty" toml:"fault_tolerance" yaml:"fault_tolerance,omitempty"`
	FailureRate    float64        `json:"failure_rate" toml:"failure_rate" yaml:"failure_rate"`

	// FailureRates gives each agent its own rate; see consensus.Config.
	FailureRates []float64 `json:"failure_rates,omitempty" toml:"failure_rates" yaml:"failure_rates,omitempty"`

	Escalation consensus.Escalation `json:"escalation,omitempty" toml:"escalation" yaml:"escalation,omitempty"`

	// Complexity enables complexity-weighted failure rates for this configuration.
	Complexity bool `json:"complexity,omitempty" toml:"complexity" yaml:"complexity,omitempty"`
}

// StrategyConfig returns the consensus config for c under split.
func (c Configuration) StrategyConfig(split agent.FailureSplit) consensus.Config {
	return consensus.Config{
		Kind:           c.Strategy,
		FaultTolerance: c.FaultTolerance,
		FailureRate:    c.FailureRate,
		FailureRates:   c.FailureRates,
		Escalation:     c.Escalation,
		Split:          split,
	}
}

// Experiment is a complete simulation plan.
type Experiment struct {
	Name          string `json:"name" toml:"name" yaml:"name"`
	Trials        int    `json:"trials" toml:"trials" yaml:"trials"`
	TasksPerTrial int    `json:"tasks_per_trial" toml:"tasks_per_trial" yaml:"tasks_per_trial"`

	// Workers bounds concurrent trials. Zero picks DefaultWorkers.
	Workers int `json:"workers,omitempty" toml:"workers" yaml:"workers,omitempty"`

	BaseSeed   uint64                `json:"base_seed" toml:"base_seed" yaml:"base_seed"`
	SeedScheme montecarlo.SeedScheme `json:"seed_scheme,omitempty" toml:"seed_scheme" yaml:"seed_scheme,omitempty"`

	// Baseline is the label every other configuration is compared against.
	// Empty means the first configuration.
	Baseline string `json:"baseline,omitempty" toml:"baseline" yaml:"baseline,omitempty"`

	FailureSplit   agent.FailureSplit `json:"failure_split" toml:"failure_split" yaml:"failure_split"`
	Configurations []Configuration    `json:"configurations" toml:"configurations" yaml:"configurations"`
}

// Default returns the reference experiment: 100 trials of 100 tasks at a
// 23% per-agent failure rate, comparing a single agent with majority voting
// at f=1 and f=2.
func Default() *Experiment {
	e := defaults()
	e.Configurations = []Configuration{
		{Label: "single", Strategy: consensus.KindSingle, FailureRate: DefaultFailureRate},
		{Label: "bft-f1", Strategy: consensus.KindMajority, FaultTolerance: 1, FailureRate: DefaultFailureRate},
		{Label: "bft-f2", Strategy: consensus.KindMajority, FaultTolerance: 2, FailureRate: DefaultFailureRate},
	}
	e.Baseline = "single"
	return e
}

// defaults is Default without configurations, used as the base that files
// are decoded over.
func defaults() *Experiment {
	return &Experiment{
		Name:          "default",
		Trials:        montecarlo.DefaultTrials,
		TasksPerTrial: montecarlo.DefaultTasksPerTrial,
		BaseSeed:      montecarlo.DefaultBaseSeed,
		SeedScheme:    montecarlo.SeedMixed,
		FailureSplit:  agent.DefaultFailureSplit(),
	}
}

// DefaultWorkers returns the logical CPU count, falling back to
// runtime.NumCPU when it cannot be read.
func DefaultWorkers() int {
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%s: %w (want .toml, .yaml or .yml)", path, ErrUnsupportedFormat)
	}
}

// Load reads and validates an experiment file.
func Load(path string) (*Experiment, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment file: %w", err)
	}
	e, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return e, nil
}

// Parse decodes and validates an experiment.
func Parse(data []byte, format Format) (*Experiment, error) {
	e, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Decode decodes an experiment without validating it. Fields absent from
// data keep their defaults, including individual failure split shares;
// unknown fields are rejected.
func Decode(data []byte, format Format) (*Experiment, error) {
	e := defaults()
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), e)
		if err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown field %q: %w", undecoded[0].String(), ErrInvalidConfig)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(e); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(e); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing json: %w", err)
		}
	default:
		return nil, fmt.Errorf("format %q: %w", format, ErrUnsupportedFormat)
	}
	return e, nil
}

// Validate checks that every configuration can be built and the run
// parameters are usable.
func (e *Experiment) Validate() error {
	if len(e.Configurations) == 0 {
		return fmt.Errorf("no configurations: %w", ErrInvalidConfig)
	}
	if err := e.runConfig(false).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := e.FailureSplit.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	seen := make(map[string]bool, len(e.Configurations))
	for i, c := range e.Configurations {
		if strings.TrimSpace(c.Label) == "" {
			return fmt.Errorf("configuration %d: label is required: %w", i, ErrInvalidConfig)
		}
		if seen[c.Label] {
			return fmt.Errorf("configuration %q: duplicate label: %w", c.Label, ErrInvalidConfig)
		}
		seen[c.Label] = true
		if c.Escalation != "" && !c.Escalation.IsValid() {
			return fmt.Errorf("configuration %q: escalation %q (valid: %v): %w",
				c.Label, c.Escalation, consensus.AllEscalations(), ErrInvalidConfig)
		}
		if _, err := consensus.Build(c.StrategyConfig(e.FailureSplit)); err != nil {
			return fmt.Errorf("configuration %q: %w: %w", c.Label, ErrInvalidConfig, err)
		}
	}

	if e.Baseline != "" && !seen[e.Baseline] {
		return fmt.Errorf("baseline %q matches no configuration: %w", e.Baseline, ErrInvalidConfig)
	}
	return nil
}

// Agents returns the most agent executions c can make for one task,
// counting a dual arbiter. Nothing is built.
func (c Configuration) Agents() (int, error) {
	switch c.Strategy {
	case consensus.KindSingle:
		return 1, nil
	case consensus.KindDual:
		if c.Escalation == consensus.EscalateArbiter {
			return 3, nil
		}
		return 2, nil
	case consensus.KindMajority:
		if n := len(c.FailureRates); n > 0 {
			return n, nil
		}
		q, err := quorum.New(c.FaultTolerance)
		if err != nil {
			return 0, fmt.Errorf("configuration %q: %w: %w", c.Label, ErrInvalidConfig, err)
		}
		return q.N, nil
	default:
		return 0, fmt.Errorf("configuration %q: unknown strategy %q: %w", c.Label, c.Strategy, ErrInvalidConfig)
	}
}

// Executions returns the most agent executions the experiment can make:
// trials × tasks × the agents of every configuration. It is a float64 so
// oversized experiments cannot overflow.
func (e *Experiment) Executions() (float64, error) {
	agents := 0.0
	for _, c := range e.Configurations {
		n, err := c.Agents()
		if err != nil {
			return 0, err
		}
		agents += float64(n)
	}
	return float64(max(e.Trials, 0)) * float64(max(e.TasksPerTrial, 0)) * agents, nil
}

// BaselineIndex returns the index of the baseline configuration.
func (e *Experiment) BaselineIndex() int {
	for i, c := range e.Configurations {
		if c.Label == e.Baseline {
			return i
		}
	}
	return 0
}

// RunConfig returns the Monte Carlo parameters for configuration c.
func (e *Experiment) RunConfig(c Configuration) montecarlo.RunConfig {
	rc := e.runConfig(true)
	rc.Complexity = c.Complexity
	return rc
}

func (e *Experiment) runConfig(resolveWorkers bool) montecarlo.RunConfig {
	workers := e.Workers
	if workers == 0 && resolveWorkers {
		workers = DefaultWorkers()
	}
	return montecarlo.RunConfig{
		Trials:        e.Trials,
		TasksPerTrial: e.TasksPerTrial,
		BaseSeed:      e.BaseSeed,
		Scheme:        e.SeedScheme,
		Workers:       workers,
	}
}

// Sweep returns an experiment comparing a single agent against majority
// voting at every f from 0 to maxF, all at failureRate.
func Sweep(maxF int, failureRate float64) *Experiment {
	e := defaults()
	e.Name = "sweep"
	e.Baseline = "single"
	e.Configurations = []Configuration{
		{Label: "single", Strategy: consensus.KindSingle, FailureRate: failureRate},
	}
	for f := 0; f <= maxF; f++ {
		e.Configurations = append(e.Configurations, Configuration{
			Label:          fmt.Sprintf("bft-f%d", f),
			Strategy:       consensus.KindMajority,
			FaultTolerance: f,
			FailureRate:    failureRate,
		})
	}
	return e
}

// SweepAgents returns the agent executions per task of Sweep(maxF, ...):
// one for the single agent plus 3f+1 for every f up to maxF.
func SweepAgents(maxF int) float64 {
	if maxF < 0 {
		return 1
	}
	n := float64(maxF) + 1
	return 1 + n + 1.5*float64(maxF)*n
}

// Only returns a default experiment holding the single configuration c.
func Only(c Configuration) *Experiment {
	e := defaults()
	e.Name = c.Label
	e.Configurations = []Configuration{c}
	return e
}
