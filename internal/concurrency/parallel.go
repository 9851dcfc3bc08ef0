package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions configures parallel processing.
type ParallelOptions struct {
	// MaxWorkers bounds how many items are in flight at once.
	MaxWorkers int
}

// DefaultOptions returns the default options for parallel processing.
func DefaultOptions() ParallelOptions {
	return ParallelOptions{
		MaxWorkers: 10,
	}
}

func (o ParallelOptions) workers(n int) int {
	w := o.MaxWorkers
	if w <= 0 {
		w = DefaultOptions().MaxWorkers
	}
	if w > n {
		w = n
	}
	return w
}

type indexed[R any] struct {
	index  int
	result R
	err    error
}

// ProcessParallel runs itemFunc for every item on a bounded pool of workers.
// Results come back in input order; a failed item leaves its zero value in
// place and contributes to the returned errors.
//
// Once ctx is done no new items are started. Items that never ran keep their
// zero value and are not reported as errors; callers check ctx.Err().
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	jobs := make(chan int, len(items))
	results := make(chan indexed[R], len(items))

	var wg sync.WaitGroup
	for w := 0; w < opts.workers(len(items)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jobIndex := range jobs {
				if ctx.Err() != nil {
					return
				}
				result, err := itemFunc(ctx, jobIndex, items[jobIndex])
				results <- indexed[R]{jobIndex, result, err}
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	resultList := make([]R, len(items))
	var errs []error
	for res := range results {
		if res.err != nil {
			errs = append(errs, res.err)
		}
		resultList[res.index] = res.result
	}

	return resultList, errs
}

// ForEach runs itemFunc for every item on a bounded pool of workers and
// collects the errors. Cancellation behaves as in ProcessParallel.
func ForEach[T any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) error,
) []error {
	_, errs := ProcessParallel(ctx, items, opts, func(ctx context.Context, index int, item T) (struct{}, error) {
		return struct{}{}, itemFunc(ctx, index, item)
	})
	return errs
}
