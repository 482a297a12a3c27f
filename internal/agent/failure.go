package agent

import (
	"errors"
	"fmt"
	"math"
)

// FailureMode is the outcome category of a single agent execution.
// Exactly one mode results per execution.
type FailureMode string

const (
	// ModeSuccess means the agent produced the expected output.
	ModeSuccess FailureMode = "success"
	// ModeHallucination means the output is well-formed but semantically wrong.
	ModeHallucination FailureMode = "hallucination"
	// ModeCorruption means the output is malformed or damaged.
	ModeCorruption FailureMode = "corruption"
	// ModeCrash means the agent produced no output at all.
	ModeCrash FailureMode = "crash"
)

// String returns the mode as a string.
func (m FailureMode) String() string {
	return string(m)
}

// IsValid returns true if this is a known mode.
func (m FailureMode) IsValid() bool {
	switch m {
	case ModeSuccess, ModeHallucination, ModeCorruption, ModeCrash:
		return true
	default:
		return false
	}
}

// IsFailure returns true for every valid mode other than ModeSuccess.
func (m FailureMode) IsFailure() bool {
	return m.IsValid() && m != ModeSuccess
}

// AllModes returns every mode, success first.
func AllModes() []FailureMode {
	return []FailureMode{ModeSuccess, ModeHallucination, ModeCorruption, ModeCrash}
}

// FailureModes returns the non-success modes in the order the split table
// assigns them.
func FailureModes() []FailureMode {
	return []FailureMode{ModeHallucination, ModeCorruption, ModeCrash}
}

// Shares of failures attributed to each mode by default.
const (
	DefaultHallucinationShare = 0.60
	DefaultCorruptionShare    = 0.25
	DefaultCrashShare         = 0.15
)

// splitTolerance bounds the rounding slack allowed when shares are summed.
const splitTolerance = 1e-9

// ErrInvalidSplit is returned when a failure split is not a probability distribution.
var ErrInvalidSplit = errors.New("invalid failure split")

// FailureSplit is the fixed probability table used to pick a mode once an
// execution has failed. Shares must each lie in [0,1] and sum to 1.
type FailureSplit struct {
	Hallucination float64 `json:"hallucination" toml:"hallucination" yaml:"hallucination"`
	Corruption    float64 `json:"corruption" toml:"corruption" yaml:"corruption"`
	Crash         float64 `json:"crash" toml:"crash" yaml:"crash"`
}

// DefaultFailureSplit returns the 60/25/15 split.
func DefaultFailureSplit() FailureSplit {
	return FailureSplit{
		Hallucination: DefaultHallucinationShare,
		Corruption:    DefaultCorruptionShare,
		Crash:         DefaultCrashShare,
	}
}

// IsZero reports whether no share has been set.
func (s FailureSplit) IsZero() bool {
	return s == FailureSplit{}
}

// Validate checks that the split is a probability distribution.
func (s FailureSplit) Validate() error {
	shares := []struct {
		name  string
		value float64
	}{
		{"hallucination", s.Hallucination},
		{"corruption", s.Corruption},
		{"crash", s.Crash},
	}
	sum := 0.0
	for _, sh := range shares {
		if math.IsNaN(sh.value) || sh.value < 0 || sh.value > 1 {
			return fmt.Errorf("%s share %v outside [0,1]: %w", sh.name, sh.value, ErrInvalidSplit)
		}
		sum += sh.value
	}
	if math.Abs(sum-1) > splitTolerance {
		return fmt.Errorf("shares sum to %v, want 1: %w", sum, ErrInvalidSplit)
	}
	return nil
}

// Pick maps u in [0,1) onto a failure mode using cumulative shares in
// hallucination, corruption, crash order. Rounding slack falls to crash.
func (s FailureSplit) Pick(u float64) FailureMode {
	if u < s.Hallucination {
		return ModeHallucination
	}
	if u < s.Hallucination+s.Corruption {
		return ModeCorruption
	}
	return ModeCrash
}

// Share returns the configured share for a failure mode, or 0 for success
// and unknown modes.
func (s FailureSplit) Share(m FailureMode) float64 {
	switch m {
	case ModeHallucination:
		return s.Hallucination
	case ModeCorruption:
		return s.Corruption
	case ModeCrash:
		return s.Crash
	default:
		return 0
	}
}
