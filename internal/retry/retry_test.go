package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stagehand-labs/stagehand/internal/failure"
	"github.com/stagehand-labs/stagehand/internal/platform"
)

func TestDoSucceedsAfterBusy(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 3}, nil, "a.bin", func() error {
		calls++
		if calls < 3 {
			return &platform.BusyError{Path: "a.bin"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoExhaustionIsResourceBusy(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 4}, nil, "a.bin", func() error {
		calls++
		return &platform.BusyError{Path: "a.bin"}
	})
	if !errors.Is(err, failure.ErrResourceBusy) {
		t.Fatalf("expected ResourceBusy, got %v", err)
	}
	var busy *platform.BusyError
	if !errors.As(err, &busy) {
		t.Errorf("expected the last busy error to be wrapped, got %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
}

func TestDoStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("disk full")
	calls := 0
	err := Do(context.Background(), Policy{Attempts: 5}, nil, "a.bin", func() error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || errors.Is(err, failure.ErrResourceBusy) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 5, Delay: time.Hour}, nil, "a.bin", func() error {
		calls++
		cancel()
		return &platform.BusyError{Path: "a.bin"}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
