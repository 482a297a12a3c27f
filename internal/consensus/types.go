// Package consensus combines the votes of one or more agents into a single
// decision. Each strategy is an independent implementation of Strategy:
// SingleAgent passes one agent's output through, DualValidation requires two
// agents to agree, and MajorityVote accepts a value once a Byzantine quorum
// of matching votes is reached.
//
// A strategy never errors at decision time. When agreement cannot be reached
// the decision's Outcome is NoConsensus, which callers must handle explicitly.
package consensus

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
)

// Kind identifies a consensus strategy family.
type Kind string

const (
	// KindSingle is one agent with no error correction.
	KindSingle Kind = "single"
	// KindDual is two independent agents that must agree.
	KindDual Kind = "dual"
	// KindMajority is 3f+1 agents accepting a value at 2f+1 matching votes.
	KindMajority Kind = "majority"
)

// String returns the kind as a string.
func (k Kind) String() string {
	return string(k)
}

// IsValid returns true if this is a known strategy kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindSingle, KindDual, KindMajority:
		return true
	default:
		return false
	}
}

// AllKinds returns all valid strategy kinds.
func AllKinds() []Kind {
	return []Kind{KindSingle, KindDual, KindMajority}
}

// ErrEmptyPool is returned when a strategy is built without voters.
var ErrEmptyPool = errors.New("consensus pool has no voters")

// ErrMissingArbiter is returned when arbiter escalation is requested without an arbiter.
var ErrMissingArbiter = errors.New("arbiter escalation requires an arbiter")

// Outcome is the terminal result of a consensus round: either Agreed on a
// value, or NoConsensus. The zero Outcome is NoConsensus.
type Outcome struct {
	agreed bool
	value  agent.Value
}

// Agreed returns an outcome that settled on v.
func Agreed(v agent.Value) Outcome {
	return Outcome{agreed: true, value: v}
}

// NoConsensus returns the outcome for a round that did not settle.
func NoConsensus() Outcome {
	return Outcome{}
}

// Value returns the agreed value, and false for NoConsensus.
func (o Outcome) Value() (agent.Value, bool) {
	return o.value, o.agreed
}

// IsAgreed reports whether the round settled on a value.
func (o Outcome) IsAgreed() bool {
	return o.agreed
}

// String renders the outcome as Agreed(0x..) or NoConsensus.
func (o Outcome) String() string {
	if !o.agreed {
		return "NoConsensus"
	}
	return fmt.Sprintf("Agreed(%s)", o.value)
}

// MarshalJSON encodes the outcome as {"agreed":bool,"value":"0x.."}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := struct {
		Agreed bool   `json:"agreed"`
		Value  string `json:"value,omitempty"`
	}{Agreed: o.agreed}
	if o.agreed {
		out.Value = o.value.String()
	}
	return json.Marshal(out)
}

// Decision is everything a strategy produced for one task.
type Decision struct {
	Outcome Outcome `json:"outcome"`

	// Votes are the ballots consulted, in invocation order.
	Votes []agent.Vote `json:"votes"`

	// Invocations counts agent executions, including any escalation.
	Invocations int `json:"invocations"`

	// Escalated is set when a dual strategy consulted its fallback.
	Escalated bool `json:"escalated,omitempty"`

	// LatencyMicros is the simulated time the decision took; see Latency.
	LatencyMicros int64 `json:"latency_us"`
}

// Simulated cost of a decision, in microseconds.
const (
	// AgentLatencyMicros is one agent execution on a task without complexity.
	AgentLatencyMicros = 1500
	// ComplexityLatencyMicros is added to an execution per complexity level.
	ComplexityLatencyMicros = 200
	// CoordinationLatencyMicros is added once when more than one agent ran.
	CoordinationLatencyMicros = 200
)

// Latency returns the simulated latency of running invocations agents in
// sequence on t. A single agent takes 1500+200c µs, and two take
// 3200+400c µs.
func Latency(t agent.Task, invocations int) int64 {
	if invocations <= 0 {
		return 0
	}
	per := int64(AgentLatencyMicros + ComplexityLatencyMicros*t.Complexity)
	total := per * int64(invocations)
	if invocations > 1 {
		total += CoordinationLatencyMicros
	}
	return total
}

// Strategy combines agent votes for a task into a Decision.
// Implementations hold only immutable configuration, so Decide is safe for
// concurrent use and is a pure function of (task, seed).
type Strategy interface {
	Kind() Kind
	// Name is a short human-readable label, e.g. "MajorityVote(f=1)".
	Name() string
	// Size is the number of primary voters consulted per task.
	Size() int
	Decide(t agent.Task, seed uint64) Decision
}

// tally counts present votes by value and returns the most common value.
// Ties resolve to the value first seen, which keeps the result a function of
// vote order only.
func tally(votes []agent.Vote) (agent.Value, int) {
	counts := make(map[agent.Value]int, len(votes))
	var best agent.Value
	bestCount := 0
	for _, v := range votes {
		if !v.Present {
			continue
		}
		counts[v.Value]++
		if c := counts[v.Value]; c > bestCount {
			best, bestCount = v.Value, c
		}
	}
	return best, bestCount
}
