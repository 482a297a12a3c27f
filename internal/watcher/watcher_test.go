package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_Coalesces(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(120 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0 after Cancel", got)
	}
}

func TestNewDebouncer_Default(t *testing.T) {
	if got := NewDebouncer(0).Duration(); got != DefaultDebounceDuration {
		t.Errorf("Duration() = %v, want %v", got, DefaultDebounceDuration)
	}
}

func TestWatcher_ReportsTargetChanges(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "exp.toml")
	other := filepath.Join(dir, "other.toml")
	for _, p := range []string{target, other} {
		if err := os.WriteFile(p, []byte("trials = 1\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	got := make(chan []string, 4)
	w, err := New(func(paths []string) { got <- paths }, WithDebounceDuration(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if err := w.Add(target); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Add(target); err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if targets := w.Targets(); len(targets) != 1 {
		t.Fatalf("Targets() = %v", targets)
	}

	if err := os.WriteFile(other, []byte("trials = 2\n"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}
	if err := os.WriteFile(target, []byte("trials = 3\n"), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}

	select {
	case paths := <-got:
		abs, _ := filepath.Abs(target)
		if len(paths) != 1 || paths[0] != abs {
			t.Errorf("changed = %v, want [%s]", paths, abs)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}

func TestWatcher_ClosedRejectsAdd(t *testing.T) {
	w, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if err := w.Add(filepath.Join(t.TempDir(), "x.toml")); err != ErrClosed {
		t.Errorf("Add after Close = %v, want ErrClosed", err)
	}
}

func TestWatch_StopsWithContext(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "exp.yaml")
	if err := os.WriteFile(target, []byte("a: 1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, []string{target}, func(p []string) { calls <- p }, WithDebounceDuration(20*time.Millisecond))
	}()

	// Keep writing until the watch is established and reports a change.
	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
loop:
	for {
		select {
		case <-calls:
			break loop
		case <-tick.C:
			_ = os.WriteFile(target, []byte("a: 2\n"), 0o644)
		case <-deadline:
			t.Fatal("timed out waiting for change")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), []string{filepath.Join(t.TempDir(), "nope", "x.toml")}, func([]string) {})
	if err == nil {
		t.Error("watching a file in a missing directory should fail")
	}
}
