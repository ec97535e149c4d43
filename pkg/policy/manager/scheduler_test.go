package manager

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := NewScheduler("every minute", func(context.Context) error { return nil }, nil)
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() with invalid schedule should fail")
	}
	if s.NextRun() != nil {
		t.Error("NextRun() should be nil when not running")
	}
}

func TestScheduler_RunsReload(t *testing.T) {
	var runs atomic.Int32
	s := NewScheduler("@every 1s", func(context.Context) error {
		runs.Add(1)
		return errors.New("reload failed")
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrWatchRunning) {
		t.Errorf("second Start() error = %v, want ErrWatchRunning", err)
	}
	if next := s.NextRun(); next == nil || next.Before(time.Now().Add(-time.Second)) {
		t.Errorf("NextRun() = %v", next)
	}

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduled reload did not run")
		}
		time.Sleep(50 * time.Millisecond)
	}

	s.Stop()
	s.Stop()
	if s.NextRun() != nil {
		t.Error("NextRun() should be nil after Stop")
	}
}

func TestScheduler_StopsWithContext(t *testing.T) {
	s := NewScheduler("@every 1h", func(context.Context) error { return nil }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for s.NextRun() != nil {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after context cancellation")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
