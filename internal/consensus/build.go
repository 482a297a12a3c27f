package consensus

import (
	"errors"
	"fmt"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
)

// ErrPoolSize is returned when per-agent failure rates do not fit the strategy.
var ErrPoolSize = errors.New("failure rate count does not match strategy")

// Config describes a strategy in plain data so it can be loaded from files
// or request bodies.
type Config struct {
	Kind Kind `json:"strategy" yaml:"strategy"`

	// FaultTolerance is f for majority voting. With FailureRates the pool
	// size decides the threshold and f is only range checked.
	FaultTolerance int `json:"fault_tolerance,omitempty" yaml:"fault_tolerance,omitempty"`

	// FailureRate applies to every agent unless FailureRates is set.
	FailureRate float64 `json:"failure_rate" yaml:"failure_rate"`

	// FailureRates sets one rate per agent. For majority voting this builds
	// an explicit pool; for dual validation a third entry is the arbiter.
	FailureRates []float64 `json:"failure_rates,omitempty" yaml:"failure_rates,omitempty"`

	Escalation Escalation `json:"escalation,omitempty" yaml:"escalation,omitempty"`

	// Split overrides the default failure split when non-zero.
	Split agent.FailureSplit `json:"failure_split,omitempty" yaml:"failure_split,omitempty"`
}

// rate returns the failure rate for agent i.
func (c Config) rate(i int) float64 {
	if len(c.FailureRates) > 0 {
		return c.FailureRates[i]
	}
	return c.FailureRate
}

func (c Config) agentOptions() []agent.Option {
	if c.Split.IsZero() {
		return nil
	}
	return []agent.Option{agent.WithFailureSplit(c.Split)}
}

func (c Config) newAgent(i int) (agent.Agent, error) {
	return agent.New(uint64(i), c.rate(i), c.agentOptions()...)
}

// Build constructs the strategy c describes. Any invalid failure rate or
// fault tolerance fails construction.
func Build(c Config) (Strategy, error) {
	switch c.Kind {
	case KindSingle:
		if n := len(c.FailureRates); n > 1 {
			return nil, fmt.Errorf("single agent: %d rates: %w", n, ErrPoolSize)
		}
		a, err := c.newAgent(0)
		if err != nil {
			return nil, fmt.Errorf("single agent: %w", err)
		}
		s, err := NewSingleAgent(a)
		if err != nil {
			return nil, err
		}
		return s, nil

	case KindDual:
		return buildDual(c)

	case KindMajority:
		if len(c.FailureRates) == 0 {
			m, err := NewMajorityVote(c.FaultTolerance, c.FailureRate, c.agentOptions()...)
			if err != nil {
				return nil, err
			}
			return m, nil
		}
		if _, err := quorum.New(c.FaultTolerance); err != nil {
			return nil, fmt.Errorf("majority vote: %w", err)
		}
		voters := make([]agent.Voter, len(c.FailureRates))
		for i := range voters {
			a, err := c.newAgent(i)
			if err != nil {
				return nil, fmt.Errorf("majority vote: %w", err)
			}
			voters[i] = a
		}
		m, err := NewMajorityVotePool(voters)
		if err != nil {
			return nil, err
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (valid: %v)", c.Kind, AllKinds())
	}
}

func buildDual(c Config) (Strategy, error) {
	escalation := c.Escalation
	if escalation == "" {
		escalation = EscalateNone
	}
	want := 2
	if escalation == EscalateArbiter {
		want = 3
	}
	if n := len(c.FailureRates); n != 0 && n != want {
		return nil, fmt.Errorf("dual validation (%s): %d rates, want %d: %w", escalation, n, want, ErrPoolSize)
	}

	a, err := c.newAgent(0)
	if err != nil {
		return nil, fmt.Errorf("dual validation: %w", err)
	}
	b, err := c.newAgent(1)
	if err != nil {
		return nil, fmt.Errorf("dual validation: %w", err)
	}
	opts := []DualOption{WithEscalation(escalation)}
	if escalation == EscalateArbiter {
		arb, err := c.newAgent(2)
		if err != nil {
			return nil, fmt.Errorf("dual validation arbiter: %w", err)
		}
		opts = append(opts, WithArbiter(arb))
	}
	d, err := NewDualValidation(a, b, opts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}
