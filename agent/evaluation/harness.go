package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/types"
)

// TaskRunner executes one task under a total message budget.
// *workflow.Orchestrator satisfies it.
type TaskRunner interface {
	Run(ctx context.Context, task types.Task, maxSteps int) (*types.TaskResult, error)
}

// RunnerFunc adapts a function to TaskRunner.
type RunnerFunc func(ctx context.Context, task types.Task, maxSteps int) (*types.TaskResult, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, task types.Task, maxSteps int) (*types.TaskResult, error) {
	return f(ctx, task, maxSteps)
}

// Observer receives one call per evaluated task.
type Observer interface {
	ObserveEvaluation(taskID string, passed bool, duration time.Duration)
}

// Result is the outcome of one evaluation task.
type Result struct {
	TaskID            string        `json:"task_id"`
	Completed         bool          `json:"completed"`
	ExpectedCompleted bool          `json:"expected_completed"`
	Passed            bool          `json:"passed"`
	MessagesProcessed int           `json:"messages_processed"`
	Duration          time.Duration `json:"duration"`
	Error             string        `json:"error,omitempty"`
}

// Summary aggregates a suite run.
type Summary struct {
	Results  []Result      `json:"results"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	PassRate float64       `json:"pass_rate"`
	Duration time.Duration `json:"duration"`
}

// Harness runs evaluation tasks one after another against a TaskRunner.
type Harness struct {
	runner        TaskRunner
	observer      Observer
	stopOnFailure bool
	logger        *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithObserver reports every task outcome to obs.
func WithObserver(obs Observer) Option {
	return func(h *Harness) { h.observer = obs }
}

// WithStopOnFailure stops the suite at the first task that does not pass.
func WithStopOnFailure(stop bool) Option {
	return func(h *Harness) { h.stopOnFailure = stop }
}

// NewHarness creates a harness over runner.
func NewHarness(runner TaskRunner, opts ...Option) *Harness {
	h := &Harness{runner: runner, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With(zap.String("component", "evaluation"))
	return h
}

// Run evaluates tasks in order. A runner error fails that task only; a
// cancelled ctx stops the suite and returns the partial summary with ctx's error.
func (h *Harness) Run(ctx context.Context, tasks []Task) (*Summary, error) {
	for i := range tasks {
		if err := tasks[i].Validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
	}

	start := time.Now()
	summary := &Summary{Results: make([]Result, 0, len(tasks))}
	var runErr error
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		result := h.runTask(ctx, task)
		summary.Results = append(summary.Results, result)
		if result.Passed {
			summary.Passed++
		} else {
			summary.Failed++
		}
		if !result.Passed && h.stopOnFailure {
			break
		}
	}
	summary.Duration = time.Since(start)
	if n := len(summary.Results); n > 0 {
		summary.PassRate = float64(summary.Passed) / float64(n)
	}

	h.logger.Info("evaluation completed",
		zap.Int("passed", summary.Passed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, runErr
}

func (h *Harness) runTask(ctx context.Context, task Task) Result {
	expected := task.ExpectsCompletion()
	result := Result{TaskID: task.ID, ExpectedCompleted: expected}

	if task.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := h.runner.Run(ctx, task.TaskSpec(), task.MaxSteps)
	result.Duration = time.Since(start)

	switch {
	case err != nil:
		result.Error = err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			result.Error = "evaluation timeout: " + result.Error
		}
		h.logger.Warn("evaluation task failed",
			zap.String("task_id", task.ID),
			zap.Duration("duration", result.Duration),
			zap.Error(err),
		)
	case out == nil:
		result.Error = "runner returned no result"
	default:
		result.Completed = out.Completed
		result.MessagesProcessed = out.MessagesProcessed
		result.Passed = out.Completed == expected
		h.logger.Info("evaluation task finished",
			zap.String("task_id", task.ID),
			zap.Bool("completed", out.Completed),
			zap.Bool("expected_completed", expected),
			zap.Bool("passed", result.Passed),
			zap.Int("messages_processed", out.MessagesProcessed),
			zap.Duration("duration", result.Duration),
		)
	}

	if h.observer != nil {
		h.observer.ObserveEvaluation(task.ID, result.Passed, result.Duration)
	}
	return result
}
