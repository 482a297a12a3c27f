package agent

import "strconv"

// Value is an opaque output value that voters compare for equality.
type Value uint64

// String renders the value in hex.
func (v Value) String() string {
	return "0x" + strconv.FormatUint(uint64(v), 16)
}

// Vote is the output one voter produced for one task.
type Vote struct {
	AgentID uint64      `json:"agent_id"`
	Mode    FailureMode `json:"mode"`
	Value   Value       `json:"value"`
	// Present is false when the voter produced nothing (a crash).
	Present bool `json:"present"`
}

// Voter is anything that can cast a vote on a task.
type Voter interface {
	ID() uint64
	Vote(t Task, seed uint64) Vote
}

var _ Voter = Agent{}
var _ Voter = Fixed{}

// ExpectedValue is the correct output for a task, shared by every honest voter.
func ExpectedValue(taskID uint64) Value {
	return Value(Hash(saltExpected, taskID))
}

// hallucinatedValue is plausible but wrong and unique to (agent, task, seed),
// so independent hallucinations almost never agree with each other.
func hallucinatedValue(agentID, taskID, seed uint64) Value {
	v := Value(Hash(saltHallucination, agentID, taskID, seed))
	if v == ExpectedValue(taskID) {
		v ^= 1
	}
	return v
}

// corruptedValue flips a non-empty, agent-specific set of bits of the
// expected value, so it never equals it.
func corruptedValue(agentID, taskID uint64) Value {
	mask := Value(Hash(saltCorruption, agentID, taskID) | 1)
	return ExpectedValue(taskID) ^ mask
}

// Fixed is a voter that always votes the same value regardless of task.
// With a wrong value it models a colluding Byzantine agent.
type Fixed struct {
	id    uint64
	value Value
}

// NewFixed returns a voter that always votes value.
func NewFixed(id uint64, value Value) Fixed {
	return Fixed{id: id, value: value}
}

// ID returns the voter identifier.
func (f Fixed) ID() uint64 {
	return f.id
}

// Vote returns the fixed value, tagged as a success only when it happens to
// match the expected value for the task.
func (f Fixed) Vote(t Task, _ uint64) Vote {
	mode := ModeHallucination
	if f.value == ExpectedValue(t.ID) {
		mode = ModeSuccess
	}
	return Vote{AgentID: f.id, Mode: mode, Value: f.value, Present: true}
}
