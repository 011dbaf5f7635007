// Package async holds the two concurrency helpers the pipeline is built on:
// an order-preserving bounded-parallel runner and a retry wrapper with
// exponential backoff.
package async

import (
	"context"
	"sync"
)

// RunLimited executes tasks with at most limit of them in flight at once.
// results[i] always corresponds to tasks[i] regardless of completion order.
// A failing task does not abort its siblings; the first error by task index
// is returned after every scheduled task has finished. Tasks not yet
// scheduled when ctx is cancelled report ctx.Err() at their slot.
func RunLimited[T any](ctx context.Context, tasks []func() (T, error), limit int) ([]T, error) {
	if limit < 1 {
		limit = 1
	}

	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, task := range tasks {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[i] = ctx.Err()
			continue
		}

		wg.Add(1)
		go func(i int, task func() (T, error)) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i], errs[i] = task()
		}(i, task)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
