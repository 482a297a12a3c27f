package consensus

import (
	"fmt"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
)

// SingleAgent returns the lone voter's raw output with no error correction.
// It is the baseline every other strategy is compared against.
type SingleAgent struct {
	voter agent.Voter
}

// NewSingleAgent wraps voter.
func NewSingleAgent(voter agent.Voter) (*SingleAgent, error) {
	if voter == nil {
		return nil, fmt.Errorf("single agent: %w", ErrEmptyPool)
	}
	return &SingleAgent{voter: voter}, nil
}

// Kind returns KindSingle.
func (s *SingleAgent) Kind() Kind { return KindSingle }

// Name returns "SingleAgent".
func (s *SingleAgent) Name() string { return "SingleAgent" }

// Size returns 1.
func (s *SingleAgent) Size() int { return 1 }

// Decide agrees on whatever the voter produced, right or wrong. A crash
// yields NoConsensus.
func (s *SingleAgent) Decide(t agent.Task, seed uint64) Decision {
	v := s.voter.Vote(t, seed)
	d := Decision{Votes: []agent.Vote{v}, Invocations: 1, LatencyMicros: Latency(t, 1)}
	if v.Present {
		d.Outcome = Agreed(v.Value)
	}
	return d
}
