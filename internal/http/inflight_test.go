package http

import (
	"context"
	"testing"
	"time"
)

func TestInFlightTracker_BeginDone(t *testing.T) {
	var tr InFlightTracker
	done1 := tr.Begin()
	done2 := tr.Begin()
	if got := tr.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
	done1()
	done2()
	if got := tr.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}
}

func TestInFlightTracker_WaitForZero_Immediate(t *testing.T) {
	var tr InFlightTracker
	if err := tr.WaitForZero(context.Background(), time.Millisecond); err != nil {
		t.Errorf("WaitForZero() error = %v", err)
	}
}

func TestInFlightTracker_WaitForZero_Drains(t *testing.T) {
	var tr InFlightTracker
	done := tr.Begin()
	go func() {
		time.Sleep(20 * time.Millisecond)
		done()
	}()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := tr.WaitForZero(ctx, 5*time.Millisecond); err != nil {
		t.Errorf("WaitForZero() error = %v", err)
	}
}

func TestInFlightTracker_WaitForZero_Timeout(t *testing.T) {
	var tr InFlightTracker
	done := tr.Begin()
	defer done()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tr.WaitForZero(ctx, 5*time.Millisecond); err != context.DeadlineExceeded {
		t.Errorf("WaitForZero() error = %v, want DeadlineExceeded", err)
	}
}

func TestDraining(t *testing.T) {
	SetDraining(true)
	defer SetDraining(false)
	if !IsDraining() {
		t.Error("IsDraining() = false, want true")
	}
}
