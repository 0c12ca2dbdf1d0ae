package workflow

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent/memory"
	"github.com/BaSui01/devcrew/internal/pool"
	"github.com/BaSui01/devcrew/workflow/checkpoint"
)

// DefaultMaxSteps is the step budget used when a run does not pass one.
const DefaultMaxSteps = 100

// Run outcomes reported to observers.
const (
	OutcomeCompleted = "completed"
	OutcomeHalted    = "halted"
	OutcomeFailed    = "failed"
)

// Observer receives run and superstep outcomes, e.g. for metrics. When the
// observer also implements tools.Observer it is handed to the tool arbiter.
type Observer interface {
	ObserveSuperstep(batchSize, responses int, duration time.Duration)
	ObserveRun(outcome string, processed int)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxSteps sets the default step budget for Run and Resume calls that pass
// a non-positive budget.
func WithMaxSteps(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSteps = n
		}
	}
}

// WithCheckpointStore persists a snapshot after every superstep.
func WithCheckpointStore(store checkpoint.Store) Option {
	return func(o *Orchestrator) { o.checkpoints = store }
}

// WithMemory appends every dispatched message to the task's memory session.
func WithMemory(store memory.Store) Option {
	return func(o *Orchestrator) { o.memory = store }
}

// WithObserver sets the run observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithWorkerPool offloads synchronous agent handlers onto p. The caller owns
// the pool and closes it.
func WithWorkerPool(p *pool.WorkerPool) Option {
	return func(o *Orchestrator) { o.pool = p }
}
