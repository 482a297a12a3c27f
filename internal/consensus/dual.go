package consensus

import (
	"fmt"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
)

// Escalation selects what DualValidation does when its two voters disagree.
type Escalation string

const (
	// EscalateNone reports NoConsensus on disagreement.
	EscalateNone Escalation = "none"
	// EscalateArbiter asks a third voter and accepts whichever primary vote
	// it matches.
	EscalateArbiter Escalation = "arbiter"
	// EscalateOracle accepts a primary vote that matches the expected value.
	// Ground truth is unavailable at inference time, so this is valid for
	// offline measurement only.
	EscalateOracle Escalation = "oracle"
)

// String returns the escalation policy as a string.
func (e Escalation) String() string {
	return string(e)
}

// IsValid returns true if this is a known escalation policy.
func (e Escalation) IsValid() bool {
	switch e {
	case EscalateNone, EscalateArbiter, EscalateOracle:
		return true
	default:
		return false
	}
}

// AllEscalations returns all valid escalation policies.
func AllEscalations() []Escalation {
	return []Escalation{EscalateNone, EscalateArbiter, EscalateOracle}
}

// DualValidation runs two independent voters and agrees only when both
// produce the same value.
type DualValidation struct {
	primary    [2]agent.Voter
	arbiter    agent.Voter
	escalation Escalation
}

// DualOption configures a DualValidation.
type DualOption func(*DualValidation)

// WithEscalation sets the disagreement policy. The default is EscalateNone.
func WithEscalation(e Escalation) DualOption {
	return func(d *DualValidation) {
		d.escalation = e
	}
}

// WithArbiter sets the third voter consulted under EscalateArbiter and
// switches the policy to it.
func WithArbiter(v agent.Voter) DualOption {
	return func(d *DualValidation) {
		d.arbiter = v
		d.escalation = EscalateArbiter
	}
}

// NewDualValidation builds a dual strategy over a and b.
func NewDualValidation(a, b agent.Voter, opts ...DualOption) (*DualValidation, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("dual validation: %w", ErrEmptyPool)
	}
	d := &DualValidation{
		primary:    [2]agent.Voter{a, b},
		escalation: EscalateNone,
	}
	for _, opt := range opts {
		opt(d)
	}
	if !d.escalation.IsValid() {
		return nil, fmt.Errorf("dual validation: unknown escalation %q", d.escalation)
	}
	if d.escalation == EscalateArbiter && d.arbiter == nil {
		return nil, fmt.Errorf("dual validation: %w", ErrMissingArbiter)
	}
	return d, nil
}

// Kind returns KindDual.
func (d *DualValidation) Kind() Kind { return KindDual }

// Name returns "DualValidation" with the escalation policy when one is set.
func (d *DualValidation) Name() string {
	if d.escalation == EscalateNone {
		return "DualValidation"
	}
	return fmt.Sprintf("DualValidation(%s)", d.escalation)
}

// Size returns 2. The arbiter is not counted because it only runs on
// disagreement.
func (d *DualValidation) Size() int { return 2 }

// Escalation returns the disagreement policy.
func (d *DualValidation) Escalation() Escalation { return d.escalation }

// Decide runs both voters and escalates on disagreement.
func (d *DualValidation) Decide(t agent.Task, seed uint64) Decision {
	a := d.primary[0].Vote(t, seed)
	b := d.primary[1].Vote(t, seed)
	dec := Decision{Votes: []agent.Vote{a, b}, Invocations: 2, LatencyMicros: Latency(t, 2)}

	if a.Present && b.Present && a.Value == b.Value {
		dec.Outcome = Agreed(a.Value)
		return dec
	}

	switch d.escalation {
	case EscalateArbiter:
		dec.Escalated = true
		c := d.arbiter.Vote(t, seed)
		dec.Votes = append(dec.Votes, c)
		dec.Invocations++
		dec.LatencyMicros = Latency(t, dec.Invocations)
		if c.Present && ((a.Present && c.Value == a.Value) || (b.Present && c.Value == b.Value)) {
			dec.Outcome = Agreed(c.Value)
		}
	case EscalateOracle:
		dec.Escalated = true
		expected := agent.ExpectedValue(t.ID)
		if (a.Present && a.Value == expected) || (b.Present && b.Value == expected) {
			dec.Outcome = Agreed(expected)
		}
	}
	return dec
}
