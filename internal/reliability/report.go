// Package reliability compares aggregated simulation results. Every derived
// figure is a stats.Ratio, so a zero denominator shows up as "n/a" instead
// of NaN or Inf.
package reliability

import (
	"errors"
	"fmt"

	"github.com/paiml/sovereign-ai-stack-book/internal/montecarlo"
	"github.com/paiml/sovereign-ai-stack-book/internal/stats"
)

// ErrMissingResult is returned when Compare is given a nil result.
var ErrMissingResult = errors.New("missing simulation result")

// ComparativeReport describes how a candidate configuration fares against a
// baseline. It is computed once and not modified afterwards.
type ComparativeReport struct {
	Baseline  string `json:"baseline" yaml:"baseline"`
	Candidate string `json:"candidate" yaml:"candidate"`

	BaselineSuccessRate  stats.Ratio `json:"baseline_success_rate" yaml:"baseline_success_rate"`
	CandidateSuccessRate stats.Ratio `json:"candidate_success_rate" yaml:"candidate_success_rate"`

	BaselineFailures  int `json:"baseline_failures" yaml:"baseline_failures"`
	CandidateFailures int `json:"candidate_failures" yaml:"candidate_failures"`

	// AbsoluteImprovement is the success-rate gain in percentage points.
	AbsoluteImprovement stats.Ratio `json:"absolute_improvement_pp" yaml:"absolute_improvement_pp"`

	// FailureReduction is the fraction of baseline failures eliminated.
	// Undefined when the baseline never failed.
	FailureReduction stats.Ratio `json:"failure_reduction" yaml:"failure_reduction"`

	// Multiplier is candidate success rate over baseline success rate.
	// Undefined when the baseline never succeeded.
	Multiplier stats.Ratio `json:"reliability_multiplier" yaml:"reliability_multiplier"`

	// InvocationOverhead is the candidate's agent executions per task over
	// the baseline's.
	InvocationOverhead stats.Ratio `json:"invocation_overhead" yaml:"invocation_overhead"`

	// LatencyOverhead is the candidate's extra mean latency per task as a
	// fraction of the baseline's. Undefined when the baseline took no time.
	LatencyOverhead stats.Ratio `json:"latency_overhead" yaml:"latency_overhead"`

	// WrongAgreements counts tasks where the candidate settled on a wrong value.
	WrongAgreements int `json:"wrong_agreements" yaml:"wrong_agreements"`
}

// Improved reports whether the candidate's success rate is strictly higher.
func (r *ComparativeReport) Improved() bool {
	v, ok := r.AbsoluteImprovement.Get()
	return ok && v > 0
}

// Compare derives the comparative statistics of candidate against baseline.
func Compare(baseline, candidate *montecarlo.SimulationResult) (*ComparativeReport, error) {
	if baseline == nil || candidate == nil {
		return nil, ErrMissingResult
	}

	bs, cs := baseline.SuccessRate(), candidate.SuccessRate()
	report := &ComparativeReport{
		Baseline:             baseline.Strategy,
		Candidate:            candidate.Strategy,
		BaselineSuccessRate:  bs,
		CandidateSuccessRate: cs,
		BaselineFailures:     baseline.Failures(),
		CandidateFailures:    candidate.Failures(),
		AbsoluteImprovement:  cs.Sub(bs).Scale(100),
		FailureReduction:     failureReduction(baseline, candidate),
		Multiplier:           ratio(cs, bs),
		InvocationOverhead:   ratio(candidate.InvocationsPerTask(), baseline.InvocationsPerTask()),
		LatencyOverhead:      latencyOverhead(baseline, candidate),
		WrongAgreements:      candidate.WrongAgreements,
	}
	return report, nil
}

// failureReduction compares failure counts directly when both runs saw the
// same number of tasks, and failure rates otherwise.
func failureReduction(baseline, candidate *montecarlo.SimulationResult) stats.Ratio {
	if baseline.TotalTasks == 0 || candidate.TotalTasks == 0 {
		return stats.Undefined()
	}
	if baseline.TotalTasks == candidate.TotalTasks {
		bf, cf := float64(baseline.Failures()), float64(candidate.Failures())
		return stats.Of(bf-cf, bf)
	}
	bf, cf := baseline.FailureRate(), candidate.FailureRate()
	return ratio(bf.Sub(cf), bf)
}

func latencyOverhead(baseline, candidate *montecarlo.SimulationResult) stats.Ratio {
	bl := baseline.MeanLatency()
	return ratio(candidate.MeanLatency().Sub(bl), bl)
}

func ratio(num, den stats.Ratio) stats.Ratio {
	if !num.Defined || !den.Defined {
		return stats.Undefined()
	}
	return stats.Of(num.Value, den.Value)
}

// Sweep compares each candidate against baseline, in order.
func Sweep(baseline *montecarlo.SimulationResult, candidates []*montecarlo.SimulationResult) ([]*ComparativeReport, error) {
	reports := make([]*ComparativeReport, 0, len(candidates))
	for i, c := range candidates {
		r, err := Compare(baseline, c)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}
