package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPreservesTaskOrder(t *testing.T) {
	var tasks []Task[string]
	for i := 0; i < 10; i++ {
		i := i
		tasks = append(tasks, func(ctx context.Context) (string, bool, error) {
			// Stagger so completion order differs from submission order.
			time.Sleep(time.Duration(10-i) * time.Millisecond)
			return fmt.Sprintf("item-%d", i), false, nil
		})
	}

	results := Run(context.Background(), tasks, 4)
	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Value != fmt.Sprintf("item-%d", i) {
			t.Errorf("result %d out of order: %q", i, r.Value)
		}
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var active, peak int32
	var mu sync.Mutex

	var tasks []Task[int]
	for i := 0; i < 20; i++ {
		tasks = append(tasks, func(ctx context.Context) (int, bool, error) {
			n := atomic.AddInt32(&active, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return 0, false, nil
		})
	}

	Run(context.Background(), tasks, 3)

	mu.Lock()
	defer mu.Unlock()
	if peak > 3 {
		t.Errorf("concurrency bound violated: peak %d workers", peak)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	tasks := []Task[string]{
		func(ctx context.Context) (string, bool, error) { return "ok-0", false, nil },
		func(ctx context.Context) (string, bool, error) { return "", false, errors.New("boom") },
		func(ctx context.Context) (string, bool, error) { return "", true, nil },
		func(ctx context.Context) (string, bool, error) { panic("worse boom") },
		func(ctx context.Context) (string, bool, error) { return "ok-4", false, nil },
	}

	results := Run(context.Background(), tasks, 2)

	if results[0].Value != "ok-0" || results[4].Value != "ok-4" {
		t.Error("healthy siblings should be unaffected by failures")
	}
	if results[1].Err == nil {
		t.Error("expected error result for failing task")
	}
	if !results[2].Absent {
		t.Error("expected absent result")
	}
	if results[3].Err == nil {
		t.Error("expected panic to surface as error result")
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var started int32
	var tasks []Task[int]
	for i := 0; i < 50; i++ {
		tasks = append(tasks, func(ctx context.Context) (int, bool, error) {
			atomic.AddInt32(&started, 1)
			if atomic.LoadInt32(&started) == 2 {
				cancel()
			}
			time.Sleep(2 * time.Millisecond)
			return 1, false, nil
		})
	}

	results := Run(ctx, tasks, 1)

	if len(results) != 50 {
		t.Fatalf("every task slot must receive a result, got %d", len(results))
	}

	var cancelled int
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled == 0 {
		t.Error("expected undispatched tasks to be marked cancelled")
	}
}
