package workers

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of work. Tasks must honor ctx cancellation; the
// pool never kills a running task, it only stops dispatching.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Pool is a bounded worker pool for running independent tasks in
// parallel. Analyzer fan-out has no ordering requirement, so the pool
// only guarantees that every dispatched task's result is reported.
type Pool struct {
	size   int
	logger *zap.Logger
}

// NewPool creates a pool with the given parallelism. A non-positive
// size degrades to serial execution.
func NewPool(size int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{size: size, logger: logger}
}

// Result reports one task's outcome
type Result struct {
	Name string
	Err  error
	// Skipped is set for tasks never dispatched because the context
	// expired first.
	Skipped bool
}

// Run executes the tasks with bounded parallelism and returns one
// result per task, in task order. It returns once every dispatched
// task has finished, even when the context expires mid-flight.
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	sem := make(chan struct{}, p.size)
	var wg sync.WaitGroup

	for i, task := range tasks {
		results[i].Name = task.Name

		if ctx.Err() != nil {
			results[i].Skipped = true
			results[i].Err = ctx.Err()
			p.logger.Warn("task skipped, context expired",
				zap.String("task", task.Name))
			continue
		}

		select {
		case <-ctx.Done():
			results[i].Skipped = true
			results[i].Err = ctx.Err()
			p.logger.Warn("task skipped, context expired",
				zap.String("task", task.Name))
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := task.Run(ctx); err != nil {
				results[i].Err = err
				p.logger.Warn("task failed",
					zap.String("task", task.Name),
					zap.Error(err))
			}
		}(i, task)
	}

	wg.Wait()
	return results
}
