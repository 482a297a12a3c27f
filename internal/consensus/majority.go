package consensus

import (
	"fmt"

	"github.com/paiml/sovereign-ai-stack-book/internal/agent"
	"github.com/paiml/sovereign-ai-stack-book/internal/quorum"
)

// MajorityVote tallies identical output values across a pool of voters and
// accepts a value once it reaches the quorum threshold. The threshold is more
// than half the pool, so at most one value can reach it and no tie-break is
// needed.
type MajorityVote struct {
	f         int
	voters    []agent.Voter
	threshold int
}

// NewMajorityVote builds the 3f+1 agents a quorum of fault tolerance f
// requires, all with the same failure rate. Agent ids run 0..3f.
func NewMajorityVote(f int, failureRate float64, opts ...agent.Option) (*MajorityVote, error) {
	q, err := quorum.New(f)
	if err != nil {
		return nil, fmt.Errorf("majority vote: %w", err)
	}
	voters := make([]agent.Voter, q.N)
	for i := range voters {
		a, err := agent.New(uint64(i), failureRate, opts...)
		if err != nil {
			return nil, fmt.Errorf("majority vote: %w", err)
		}
		voters[i] = a
	}
	return &MajorityVote{f: f, voters: voters, threshold: q.Threshold}, nil
}

// NewMajorityVotePool builds a majority strategy over an explicit pool, which
// may hold heterogeneous or fixed voters. The acceptance threshold is derived
// from the pool size with quorum.PoolThreshold, and the fault tolerance
// reported is the one the pool size supports, quorum.Tolerated(n).
func NewMajorityVotePool(voters []agent.Voter) (*MajorityVote, error) {
	if len(voters) == 0 {
		return nil, fmt.Errorf("majority vote: %w", ErrEmptyPool)
	}
	for i, v := range voters {
		if v == nil {
			return nil, fmt.Errorf("majority vote: voter %d is nil: %w", i, ErrEmptyPool)
		}
	}
	pool := make([]agent.Voter, len(voters))
	copy(pool, voters)
	return &MajorityVote{
		f:         quorum.Tolerated(len(pool)),
		voters:    pool,
		threshold: quorum.PoolThreshold(len(pool)),
	}, nil
}

// Kind returns KindMajority.
func (m *MajorityVote) Kind() Kind { return KindMajority }

// Name returns e.g. "MajorityVote(f=1)". Pools that are not 3f+1 agents
// carry their size too, e.g. "MajorityVote(n=3,f=0)".
func (m *MajorityVote) Name() string {
	if len(m.voters) != 3*m.f+1 {
		return fmt.Sprintf("MajorityVote(n=%d,f=%d)", len(m.voters), m.f)
	}
	return fmt.Sprintf("MajorityVote(f=%d)", m.f)
}

// Size returns the pool size.
func (m *MajorityVote) Size() int { return len(m.voters) }

// FaultTolerance returns the number of Byzantine voters tolerated.
func (m *MajorityVote) FaultTolerance() int { return m.f }

// Threshold returns the number of matching votes required.
func (m *MajorityVote) Threshold() int { return m.threshold }

// Decide collects one vote from every voter and accepts the plurality value
// if it reaches the threshold. Crashed voters abstain.
func (m *MajorityVote) Decide(t agent.Task, seed uint64) Decision {
	votes := make([]agent.Vote, len(m.voters))
	for i, v := range m.voters {
		votes[i] = v.Vote(t, seed)
	}
	dec := Decision{Votes: votes, Invocations: len(votes), LatencyMicros: Latency(t, len(votes))}
	if value, count := tally(votes); count >= m.threshold {
		dec.Outcome = Agreed(value)
	}
	return dec
}
