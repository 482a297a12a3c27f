// Package quorum derives Byzantine agreement sizes from a fault-tolerance parameter.
//
// For a fault tolerance f, a quorum needs n = 3f+1 participants and accepts a
// value once 2f+1 of them agree. Because 2f+1 is more than half of 3f+1, at
// most one value can ever reach the threshold.
package quorum

import (
	"errors"
	"fmt"
	"math"
)

// MaxFaultTolerance is the largest f whose quorum size 3f+1 fits in an int.
const MaxFaultTolerance = (math.MaxInt - 1) / 3

var (
	// ErrNegativeFaultTolerance is returned for f < 0.
	ErrNegativeFaultTolerance = errors.New("fault tolerance must be non-negative")

	// ErrFaultToleranceTooLarge is returned for f > MaxFaultTolerance.
	ErrFaultToleranceTooLarge = errors.New("fault tolerance too large")
)

// Quorum describes the agreement requirements for a fault tolerance f.
// It is always derived, never stored alongside the agents it sizes.
type Quorum struct {
	// F is the number of simultaneously Byzantine agents tolerated.
	F int `json:"fault_tolerance" yaml:"fault_tolerance"`

	// N is the number of agents required (3f+1).
	N int `json:"agents" yaml:"agents"`

	// Threshold is the number of matching votes required (2f+1).
	Threshold int `json:"threshold" yaml:"threshold"`
}

// New returns the quorum for fault tolerance f.
// f = 0 is valid and degenerates to a single agent with no Byzantine tolerance.
func New(f int) (Quorum, error) {
	if f < 0 {
		return Quorum{}, fmt.Errorf("fault tolerance %d: %w", f, ErrNegativeFaultTolerance)
	}
	if f > MaxFaultTolerance {
		return Quorum{}, fmt.Errorf("fault tolerance %d exceeds %d: %w", f, MaxFaultTolerance, ErrFaultToleranceTooLarge)
	}
	return Quorum{F: f, N: 3*f + 1, Threshold: 2*f + 1}, nil
}

// Size returns n(f) = 3f+1.
func Size(f int) (int, error) {
	q, err := New(f)
	if err != nil {
		return 0, err
	}
	return q.N, nil
}

// Threshold returns threshold(f) = 2f+1.
func Threshold(f int) (int, error) {
	q, err := New(f)
	if err != nil {
		return 0, err
	}
	return q.Threshold, nil
}

// Reached reports whether votes matching votes satisfy the quorum.
func (q Quorum) Reached(votes int) bool {
	return votes >= q.Threshold
}

// PoolThreshold returns the acceptance threshold for an explicit pool of n
// agents: ceil((2n+1)/3), computed as (2n+2)/3. It equals 2f+1 when n = 3f+1
// and always exceeds n/2, so agreement stays unique for pools of any size.
func PoolThreshold(n int) int {
	if n <= 0 {
		return 0
	}
	return (2*n + 2) / 3
}

// Tolerated returns the largest f a pool of n agents can tolerate, (n-1)/3.
func Tolerated(n int) int {
	if n <= 0 {
		return 0
	}
	return (n - 1) / 3
}
