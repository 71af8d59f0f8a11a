package worker

import (
	"context"
	"fmt"
	"sync"
)

// Result is the outcome of one task. Exactly one of Value, Absent, or Err is
// meaningful: Absent marks a soft failure where the remote simply had no
// data, Err a real processing error. Either way sibling tasks are unaffected.
type Result[T any] struct {
	Value  T
	Absent bool
	Err    error
}

// Task produces one result. A task reporting absent returns the zero value,
// true, nil.
type Task[T any] func(ctx context.Context) (T, bool, error)

// Run executes tasks with at most concurrency goroutines and returns one
// result per task, in task order. A panicking task is converted to an error
// result. When ctx is cancelled, undispatched tasks complete with ctx.Err()
// so the caller still receives a result per slot.
func Run[T any](ctx context.Context, tasks []Task[T], concurrency int) []Result[T] {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	results := make([]Result[T], len(tasks))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				results[i] = runOne(ctx, tasks[i])
			}
		}()
	}

	for i := range tasks {
		select {
		case <-ctx.Done():
			results[i] = Result[T]{Err: ctx.Err()}
			continue
		case indexes <- i:
		}
	}
	close(indexes)
	wg.Wait()

	return results
}

func runOne[T any](ctx context.Context, task Task[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: fmt.Errorf("task panicked: %v", r)}
		}
	}()

	if ctx.Err() != nil {
		return Result[T]{Err: ctx.Err()}
	}

	value, absent, err := task(ctx)
	if err != nil {
		return Result[T]{Err: err}
	}
	if absent {
		return Result[T]{Absent: true}
	}
	return Result[T]{Value: value}
}
