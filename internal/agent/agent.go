// Package agent models unreliable computational agents that stand in for
// generative models. An agent may succeed, hallucinate, corrupt its output, or
// crash, and every outcome is a pure function of the agent's fixed parameters
// and the (task, seed) pair it is asked to execute.
package agent

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFailureRate is returned when a failure rate is outside [0,1] or NaN.
var ErrInvalidFailureRate = errors.New("failure rate must be within [0,1]")

// Complexity weighting of failure rates.
const (
	MinComplexity = 1
	MaxComplexity = 5

	// ComplexityPenalty is added to the failure rate per complexity level above 1.
	ComplexityPenalty = 0.05

	// MaxEffectiveFailureRate caps complexity-weighted rates. Rates already
	// above the cap are left untouched.
	MaxEffectiveFailureRate = 0.95
)

// Task identifies a unit of work. A zero Complexity disables weighting.
type Task struct {
	ID         uint64 `json:"id"`
	Complexity int    `json:"complexity,omitempty"`
}

// TaskFor returns the task for index id. When weighted is set, complexity
// cycles through 1..5.
func TaskFor(id uint64, weighted bool) Task {
	t := Task{ID: id}
	if weighted {
		t.Complexity = MinComplexity + int(id%MaxComplexity)
	}
	return t
}

// EffectiveFailureRate applies the task's complexity penalty to base.
func (t Task) EffectiveFailureRate(base float64) float64 {
	if t.Complexity <= MinComplexity {
		return base
	}
	rate := base + float64(t.Complexity-MinComplexity)*ComplexityPenalty
	if rate > MaxEffectiveFailureRate {
		rate = math.Max(base, MaxEffectiveFailureRate)
	}
	return rate
}

// Agent is a simulated agent with a fixed failure rate.
// Its fields are set at construction and never mutated.
type Agent struct {
	id          uint64
	failureRate float64
	split       FailureSplit
}

// Option configures an Agent.
type Option func(*Agent)

// WithFailureSplit overrides the default 60/25/15 failure split.
func WithFailureSplit(s FailureSplit) Option {
	return func(a *Agent) {
		a.split = s
	}
}

// New creates an agent. failureRate must lie in [0,1]; it is never clamped.
func New(id uint64, failureRate float64, opts ...Option) (Agent, error) {
	if math.IsNaN(failureRate) || failureRate < 0 || failureRate > 1 {
		return Agent{}, fmt.Errorf("agent %d: failure rate %v: %w", id, failureRate, ErrInvalidFailureRate)
	}
	a := Agent{
		id:          id,
		failureRate: failureRate,
		split:       DefaultFailureSplit(),
	}
	for _, opt := range opts {
		opt(&a)
	}
	if err := a.split.Validate(); err != nil {
		return Agent{}, fmt.Errorf("agent %d: %w", id, err)
	}
	return a, nil
}

// ID returns the agent identifier.
func (a Agent) ID() uint64 {
	return a.id
}

// FailureRate returns the configured failure rate.
func (a Agent) FailureRate() float64 {
	return a.failureRate
}

// Split returns the failure split used to pick failure modes.
func (a Agent) Split() FailureSplit {
	return a.split
}

// Execute runs task taskID under seed and reports whether it succeeded and
// which mode resulted. Identical inputs always yield identical outputs.
func (a Agent) Execute(taskID, seed uint64) (bool, FailureMode) {
	return a.ExecuteTask(Task{ID: taskID}, seed)
}

// ExecuteTask is Execute with the task's complexity weighting applied.
func (a Agent) ExecuteTask(t Task, seed uint64) (bool, FailureMode) {
	rate := t.EffectiveFailureRate(a.failureRate)
	u := Unit(Hash(saltOutcome, a.id, t.ID, seed))
	if u >= rate {
		return true, ModeSuccess
	}
	return false, a.split.Pick(Unit(Hash(saltMode, a.id, t.ID, seed)))
}

// Vote executes the task and converts the result into a ballot.
func (a Agent) Vote(t Task, seed uint64) Vote {
	_, mode := a.ExecuteTask(t, seed)
	v := Vote{AgentID: a.id, Mode: mode}
	switch mode {
	case ModeSuccess:
		v.Value, v.Present = ExpectedValue(t.ID), true
	case ModeHallucination:
		v.Value, v.Present = hallucinatedValue(a.id, t.ID, seed), true
	case ModeCorruption:
		v.Value, v.Present = corruptedValue(a.id, t.ID), true
	case ModeCrash:
		// no output
	}
	return v
}
