package agent

import (
	"errors"
	"math"
	"testing"
)

func TestNew_RejectsOutOfRangeFailureRate(t *testing.T) {
	tests := []struct {
		rate    float64
		wantErr bool
	}{
		{0, false},
		{0.23, false},
		{1, false},
		{-0.01, true},
		{1.01, true},
		{math.NaN(), true},
		{math.Inf(1), true},
		{math.Inf(-1), true},
	}

	for _, tt := range tests {
		a, err := New(0, tt.rate)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(0, %v) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidFailureRate) {
				t.Errorf("New(0, %v) error = %v, want ErrInvalidFailureRate", tt.rate, err)
			}
			continue
		}
		if a.FailureRate() != tt.rate {
			t.Errorf("FailureRate() = %v, want %v (never clamped)", a.FailureRate(), tt.rate)
		}
	}
}

func TestNew_RejectsInvalidSplit(t *testing.T) {
	_, err := New(1, 0.5, WithFailureSplit(FailureSplit{Hallucination: 0.5, Corruption: 0.5, Crash: 0.5}))
	if !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("error = %v, want ErrInvalidSplit", err)
	}
}

func TestExecute_Deterministic(t *testing.T) {
	a, err := New(7, 0.3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for task := uint64(0); task < 500; task++ {
		for _, seed := range []uint64{0, 1, 42, math.MaxUint64} {
			s1, m1 := a.Execute(task, seed)
			s2, m2 := a.Execute(task, seed)
			if s1 != s2 || m1 != m2 {
				t.Fatalf("Execute(%d, %d) not deterministic: (%v,%s) vs (%v,%s)", task, seed, s1, m1, s2, m2)
			}
			if s1 != (m1 == ModeSuccess) {
				t.Fatalf("Execute(%d, %d) = (%v, %s): success flag disagrees with mode", task, seed, s1, m1)
			}
		}
	}

	// A second agent with identical parameters behaves identically.
	b, _ := New(7, 0.3)
	for task := uint64(0); task < 100; task++ {
		if a.Vote(Task{ID: task}, 9) != b.Vote(Task{ID: task}, 9) {
			t.Fatalf("agents with identical parameters diverged on task %d", task)
		}
	}
}

func TestExecute_BoundaryRates(t *testing.T) {
	never, _ := New(0, 0)
	always, _ := New(1, 1)
	for task := uint64(0); task < 1000; task++ {
		if ok, mode := never.Execute(task, 42); !ok || mode != ModeSuccess {
			t.Fatalf("rate 0 failed on task %d with %s", task, mode)
		}
		if ok, mode := always.Execute(task, 42); ok || !mode.IsFailure() {
			t.Fatalf("rate 1 succeeded on task %d with %s", task, mode)
		}
	}
}

func TestExecute_RespectsFailureRate(t *testing.T) {
	a, _ := New(0, 0.25)
	const samples = 20000
	successes := 0
	for task := uint64(0); task < samples; task++ {
		if ok, _ := a.Execute(task, 42); ok {
			successes++
		}
	}
	rate := float64(successes) / samples
	if rate < 0.73 || rate > 0.77 {
		t.Errorf("success rate = %.4f, want ~0.75", rate)
	}
}

func TestExecute_AdjacentTasksUncorrelated(t *testing.T) {
	a, _ := New(3, 0.5)
	const samples = 20000
	same := 0
	prev, _ := a.Execute(0, 11)
	for task := uint64(1); task <= samples; task++ {
		cur, _ := a.Execute(task, 11)
		if cur == prev {
			same++
		}
		prev = cur
	}
	// Independent coin flips agree about half the time.
	frac := float64(same) / samples
	if frac < 0.47 || frac > 0.53 {
		t.Errorf("adjacent-task agreement = %.4f, want ~0.5", frac)
	}
}

func TestExecute_FailureModeDistribution(t *testing.T) {
	a, _ := New(0, 1)
	const samples = 20000
	counts := make(map[FailureMode]int)
	for task := uint64(0); task < samples; task++ {
		_, mode := a.Execute(task, 42)
		counts[mode]++
	}

	split := DefaultFailureSplit()
	for _, mode := range FailureModes() {
		got := float64(counts[mode]) / samples
		want := split.Share(mode)
		if math.Abs(got-want) > 0.02 {
			t.Errorf("share of %s = %.4f, want ~%.2f", mode, got, want)
		}
	}
	if counts[ModeHallucination] <= counts[ModeCorruption] || counts[ModeCorruption] <= counts[ModeCrash] {
		t.Errorf("expected hallucination > corruption > crash, got %v", counts)
	}
}

func TestExecute_CustomSplit(t *testing.T) {
	a, err := New(0, 1, WithFailureSplit(FailureSplit{Crash: 1}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for task := uint64(0); task < 200; task++ {
		if _, mode := a.Execute(task, 1); mode != ModeCrash {
			t.Fatalf("task %d mode = %s, want crash", task, mode)
		}
	}
}

func TestTask_EffectiveFailureRate(t *testing.T) {
	tests := []struct {
		name string
		task Task
		base float64
		want float64
	}{
		{"unweighted", Task{ID: 1}, 0.13, 0.13},
		{"complexity 1", Task{ID: 1, Complexity: 1}, 0.13, 0.13},
		{"complexity 3", Task{ID: 1, Complexity: 3}, 0.13, 0.23},
		{"capped", Task{ID: 1, Complexity: 5}, 0.9, 0.95},
		{"already above cap", Task{ID: 1, Complexity: 5}, 1.0, 1.0},
	}
	for _, tt := range tests {
		got := tt.task.EffectiveFailureRate(tt.base)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: EffectiveFailureRate(%v) = %v, want %v", tt.name, tt.base, got, tt.want)
		}
	}
}

func TestTaskFor(t *testing.T) {
	if got := TaskFor(12, false); got.Complexity != 0 || got.ID != 12 {
		t.Errorf("TaskFor(12, false) = %+v", got)
	}
	for id := uint64(0); id < 10; id++ {
		got := TaskFor(id, true)
		want := 1 + int(id%5)
		if got.Complexity != want {
			t.Errorf("TaskFor(%d, true).Complexity = %d, want %d", id, got.Complexity, want)
		}
	}
}

func TestExecuteTask_ComplexityLowersSuccess(t *testing.T) {
	a, _ := New(0, 0.13)
	const samples = 10000
	low, high := 0, 0
	for id := uint64(0); id < samples; id++ {
		if ok, _ := a.ExecuteTask(Task{ID: id, Complexity: 1}, 42); ok {
			low++
		}
		if ok, _ := a.ExecuteTask(Task{ID: id, Complexity: 5}, 42); ok {
			high++
		}
	}
	if low <= high {
		t.Errorf("complexity 1 successes %d should exceed complexity 5 successes %d", low, high)
	}
}
