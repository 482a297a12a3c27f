package montecarlo

import (
	"encoding/json"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
	"github.com/paiml/sovereign-ai-stack-book/internal/consensus"
	"github.com/paiml/sovereign-ai-stack-book/internal/stats"
)

// Tally is a passed/total pair.
type Tally struct {
	Passed int `json:"passed" yaml:"passed"`
	Total  int `json:"total" yaml:"total"`
}

// Rate returns Passed/Total, undefined for an empty tally.
func (t Tally) Rate() stats.Ratio {
	return stats.Of(float64(t.Passed), float64(t.Total))
}

// SimulationResult aggregates a run. It is produced once and never mutated
// afterwards; rates are derived from the counts on every call. It encodes
// as its Summary.
type SimulationResult struct {
	Strategy string
	Kind     consensus.Kind
	Agents   int
	Config   RunConfig

	TotalTasks int
	Successes  int

	// NoConsensus counts tasks the strategy could not settle.
	NoConsensus int
	// WrongAgreements counts tasks that settled on an incorrect value.
	WrongAgreements int

	// FailureModes counts the failure mode of every agent execution that
	// contributed to a failed task. A single failed task under a multi-agent
	// strategy can contribute several entries.
	FailureModes map[agent.FailureMode]int

	// Invocations counts agent executions across the run.
	Invocations int
	// Escalations counts decisions that consulted a dual fallback.
	Escalations int
	// LatencyMicros sums the simulated latency of every decision.
	LatencyMicros int64

	// Complexity breaks results down by task complexity when weighting is on.
	Complexity map[int]Tally
}

// Failures returns the number of tasks that did not reach the correct value.
func (r *SimulationResult) Failures() int {
	return r.TotalTasks - r.Successes
}

// SuccessRate returns successes/total, undefined when no tasks ran.
func (r *SimulationResult) SuccessRate() stats.Ratio {
	return stats.Of(float64(r.Successes), float64(r.TotalTasks))
}

// FailureRate returns 1 - SuccessRate, so the two always sum to exactly 1.
// Undefined when no tasks ran.
func (r *SimulationResult) FailureRate() stats.Ratio {
	s := r.SuccessRate()
	if !s.Defined {
		return stats.Undefined()
	}
	return stats.Defined(1 - s.Value)
}

// SuccessInterval returns the Wilson interval for the success rate at
// normal quantile z.
func (r *SimulationResult) SuccessInterval(z float64) stats.Interval {
	return stats.Wilson(r.Successes, r.TotalTasks, z)
}

// InvocationsPerTask returns the mean number of agent executions per task.
func (r *SimulationResult) InvocationsPerTask() stats.Ratio {
	return stats.Of(float64(r.Invocations), float64(r.TotalTasks))
}

// MeanLatency returns the mean simulated latency per task in microseconds.
func (r *SimulationResult) MeanLatency() stats.Ratio {
	return stats.Of(float64(r.LatencyMicros), float64(r.TotalTasks))
}

// ModeFailures returns the total number of failed agent executions recorded
// in FailureModes.
func (r *SimulationResult) ModeFailures() int {
	total := 0
	for _, mode := range agent.FailureModes() {
		total += r.FailureModes[mode]
	}
	return total
}

// ModeShare returns the share of recorded agent failures that were mode.
func (r *SimulationResult) ModeShare(mode agent.FailureMode) stats.Ratio {
	return stats.Of(float64(r.FailureModes[mode]), float64(r.ModeFailures()))
}

// Summary is the result with its derived rates filled in, for encoders.
type Summary struct {
	Strategy           string                    `json:"strategy" yaml:"strategy"`
	Kind               consensus.Kind            `json:"kind" yaml:"kind"`
	Agents             int                       `json:"agents" yaml:"agents"`
	Trials             int                       `json:"trials" yaml:"trials"`
	TasksPerTrial      int                       `json:"tasks_per_trial" yaml:"tasks_per_trial"`
	BaseSeed           uint64                    `json:"base_seed" yaml:"base_seed"`
	TotalTasks         int                       `json:"total_tasks" yaml:"total_tasks"`
	Successes          int                       `json:"successes" yaml:"successes"`
	Failures           int                       `json:"failures" yaml:"failures"`
	NoConsensus        int                       `json:"no_consensus" yaml:"no_consensus"`
	WrongAgreements    int                       `json:"wrong_agreements" yaml:"wrong_agreements"`
	SuccessRate        stats.Ratio               `json:"success_rate" yaml:"success_rate"`
	FailureRate        stats.Ratio               `json:"failure_rate" yaml:"failure_rate"`
	SuccessInterval    stats.Interval            `json:"success_interval_95" yaml:"success_interval_95"`
	FailureModes       map[agent.FailureMode]int `json:"failure_modes" yaml:"failure_modes"`
	Invocations        int                       `json:"invocations" yaml:"invocations"`
	InvocationsPerTask stats.Ratio               `json:"invocations_per_task" yaml:"invocations_per_task"`
	Escalations        int                       `json:"escalations,omitempty" yaml:"escalations,omitempty"`
	LatencyMicros      int64                     `json:"latency_us" yaml:"latency_us"`
	MeanLatencyMicros  stats.Ratio               `json:"mean_latency_us" yaml:"mean_latency_us"`
	Complexity         map[int]Tally             `json:"complexity,omitempty" yaml:"complexity,omitempty"`
}

// Summary returns the encoder view of the result.
func (r *SimulationResult) Summary() Summary {
	return Summary{
		Strategy:           r.Strategy,
		Kind:               r.Kind,
		Agents:             r.Agents,
		Trials:             r.Config.Trials,
		TasksPerTrial:      r.Config.TasksPerTrial,
		BaseSeed:           r.Config.BaseSeed,
		TotalTasks:         r.TotalTasks,
		Successes:          r.Successes,
		Failures:           r.Failures(),
		NoConsensus:        r.NoConsensus,
		WrongAgreements:    r.WrongAgreements,
		SuccessRate:        r.SuccessRate(),
		FailureRate:        r.FailureRate(),
		SuccessInterval:    r.SuccessInterval(stats.Z95),
		FailureModes:       r.FailureModes,
		Invocations:        r.Invocations,
		InvocationsPerTask: r.InvocationsPerTask(),
		Escalations:        r.Escalations,
		LatencyMicros:      r.LatencyMicros,
		MeanLatencyMicros:  r.MeanLatency(),
		Complexity:         r.Complexity,
	}
}

// MarshalJSON encodes the Summary view.
func (r *SimulationResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Summary())
}

// MarshalYAML encodes the Summary view.
func (r *SimulationResult) MarshalYAML() (interface{}, error) {
	return r.Summary(), nil
}
