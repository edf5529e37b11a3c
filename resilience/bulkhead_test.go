package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBulkhead_LimitsConcurrency(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	ctx := context.Background()

	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(ctx, func(ctx context.Context) error {
				<-release
				return nil
			})
		}()
	}

	// Wait until both slots are held.
	deadline := time.Now().Add(time.Second)
	for b.Metrics().Active < 2 {
		if time.Now().After(deadline) {
			t.Fatal("workers never acquired both slots")
		}
		time.Sleep(time.Millisecond)
	}

	err := b.Execute(ctx, successOp)
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute() at capacity error = %v, want ErrBulkheadFull", err)
	}

	close(release)
	wg.Wait()

	if err := b.Execute(ctx, successOp); err != nil {
		t.Errorf("Execute() after release error = %v, want nil", err)
	}
}

func TestBulkhead_MaxWaitGrantsFreedSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- b.Execute(ctx, successOp)
	}()

	time.Sleep(20 * time.Millisecond)
	b.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("waiting Execute() error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Error("waiting Execute() never completed after slot freed")
	}
}

func TestBulkhead_MaxWaitExpires(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer b.Release()

	err := b.Acquire(ctx)
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Acquire() error = %v, want ErrBulkheadFull", err)
	}

	m := b.Metrics()
	if m.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", m.Rejected)
	}
}

func TestBulkhead_CallerCancellation(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Minute})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer b.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := b.Acquire(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestBulkhead_Metrics(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 3})
	ctx := context.Background()

	_ = b.Acquire(ctx)
	_ = b.Acquire(ctx)

	m := b.Metrics()
	if m.Active != 2 {
		t.Errorf("Active = %d, want 2", m.Active)
	}
	if m.Available != 1 {
		t.Errorf("Available = %d, want 1", m.Available)
	}
	if m.MaxActive != 2 {
		t.Errorf("MaxActive = %d, want 2", m.MaxActive)
	}

	b.Release()
	b.Release()
	if got := b.Metrics().Active; got != 0 {
		t.Errorf("Active after release = %d, want 0", got)
	}
}
