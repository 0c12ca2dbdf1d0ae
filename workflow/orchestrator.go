package workflow

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent"
	"github.com/BaSui01/devcrew/agent/hitl"
	"github.com/BaSui01/devcrew/agent/memory"
	"github.com/BaSui01/devcrew/internal/ctxkeys"
	"github.com/BaSui01/devcrew/internal/pool"
	"github.com/BaSui01/devcrew/tools"
	"github.com/BaSui01/devcrew/types"
	"github.com/BaSui01/devcrew/workflow/checkpoint"
)

const instrumentationName = "github.com/BaSui01/devcrew/workflow"

// Orchestrator drives a task through supersteps. The pending queue, history,
// processed count and approval ledger belong to one instance; Run and Resume
// must not be called concurrently on the same Orchestrator.
type Orchestrator struct {
	policy     hitl.Policy
	agents     *agent.Registry
	dispatcher *dispatcher
	ledger     *hitl.Ledger
	gate       *hitl.Gate
	arbiter    *tools.Arbiter

	maxSteps    int
	checkpoints checkpoint.Store
	memory      memory.Store
	observer    Observer
	tracer      trace.Tracer
	pool        *pool.WorkerPool
	logger      *zap.Logger

	running atomic.Bool

	mu        sync.Mutex
	queue     []types.Message
	history   []types.Message
	processed int
}

// New creates an orchestrator over the given tool registry. A nil registry
// gets an empty one.
func New(policy hitl.Policy, registry *tools.Registry, opts ...Option) (*Orchestrator, error) {
	if err := policy.Validate(); err != nil {
		return nil, types.NewError(types.ErrInvalidRequest, "invalid approval policy").WithCause(err)
	}

	o := &Orchestrator{
		policy:   policy,
		ledger:   hitl.NewLedger(),
		maxSteps: DefaultMaxSteps,
		tracer:   otel.Tracer(instrumentationName),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))

	if registry == nil {
		registry = tools.NewRegistry(o.logger)
	}

	o.agents = agent.NewRegistry(o.logger)
	o.dispatcher = newDispatcher(o.agents, o.pool, o.logger)
	o.gate = hitl.NewGate(policy, o.agents, hitl.DeliverFunc(o.dispatcher.deliverNested), o.ledger, o.logger)

	arbiterOpts := []tools.ArbiterOption{tools.WithLogger(o.logger), tools.WithTracer(o.tracer)}
	if obs, ok := o.observer.(tools.Observer); ok {
		arbiterOpts = append(arbiterOpts, tools.WithObserver(obs))
	}
	o.arbiter = tools.NewArbiter(registry, policy, o.gate, arbiterOpts...)
	return o, nil
}

// =============================================================================
// 🤖 Agents
// =============================================================================

// RegisterAgent adds a to the orchestrator. An agent with the same id is replaced.
func (o *Orchestrator) RegisterAgent(a agent.Agent) {
	o.agents.Register(a)
}

// Agent returns a registered agent.
func (o *Orchestrator) Agent(id string) (agent.Agent, bool) {
	return o.agents.Get(id)
}

// Agents returns the registered agent ids, sorted.
func (o *Orchestrator) Agents() []string {
	return o.agents.IDs()
}

// Policy returns the approval policy.
func (o *Orchestrator) Policy() hitl.Policy { return o.policy }

// Tools returns the tool registry.
func (o *Orchestrator) Tools() *tools.Registry { return o.arbiter.Registry() }

// Send queues a message for the next superstep.
func (o *Orchestrator) Send(msg types.Message) {
	o.mu.Lock()
	o.queue = append(o.queue, msg)
	o.mu.Unlock()

	o.logger.Debug("queued message",
		zap.String("sender", msg.Sender),
		zap.String("recipient", msg.Recipient),
	)
}

// =============================================================================
// 🔧 Tools & approvals
// =============================================================================

// ExecuteTool runs an ungated tool. Gated tools are rejected with APPROVAL_REQUIRED.
func (o *Orchestrator) ExecuteTool(ctx context.Context, name string, args map[string]any, caller string) (types.ToolResult, error) {
	return o.arbiter.Execute(ctx, name, args, caller)
}

// ExecuteToolWithApproval runs a tool, obtaining approval first when the
// policy gates it. req may be nil.
func (o *Orchestrator) ExecuteToolWithApproval(ctx context.Context, name string, args map[string]any, caller string, req *types.ApprovalRequest) (types.ToolResult, error) {
	return o.arbiter.ExecuteWithApproval(ctx, name, args, caller, req)
}

// RequestApproval asks the configured user proxy for a decision.
func (o *Orchestrator) RequestApproval(ctx context.Context, req types.ApprovalRequest) (types.ApprovalDecision, error) {
	return o.gate.RequestApproval(ctx, req)
}

// PendingApprovals returns the requests still waiting for a decision.
func (o *Orchestrator) PendingApprovals() map[string]types.ApprovalRequest {
	return o.ledger.Pending()
}

// =============================================================================
// 🚀 Run loop
// =============================================================================

// Run seeds the task and processes supersteps until the queue is empty or
// maxSteps messages have been processed. A non-positive maxSteps uses the
// configured default. Messages queued with Send before Run are processed too.
func (o *Orchestrator) Run(ctx context.Context, task types.Task, maxSteps int) (*types.TaskResult, error) {
	if err := validateTask(task); err != nil {
		return nil, err
	}
	if !o.running.CompareAndSwap(false, true) {
		return nil, types.NewError(types.ErrInvalidRequest, "orchestrator is already running")
	}
	defer o.running.Store(false)

	o.mu.Lock()
	o.history = nil
	o.processed = 0
	o.mu.Unlock()

	o.Send(task.SeedMessage())
	o.logger.Info("starting task",
		zap.String("task_id", task.ID),
		zap.String("initial_agent", task.InitialAgentID),
	)
	return o.loop(ctx, task, maxSteps)
}

// Resume restores state and continues the run. maxSteps is the total budget,
// including the messages already processed before the checkpoint.
func (o *Orchestrator) Resume(ctx context.Context, state *WorkflowState, task types.Task, maxSteps int) (*types.TaskResult, error) {
	if state == nil {
		return nil, types.NewError(types.ErrMalformedCheckpoint, "workflow state is nil")
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	if err := state.Matches(task); err != nil {
		return nil, err
	}
	if !o.running.CompareAndSwap(false, true) {
		return nil, types.NewError(types.ErrInvalidRequest, "orchestrator is already running")
	}
	defer o.running.Store(false)

	o.mu.Lock()
	o.queue = slices.Clone(state.PendingMessages)
	o.history = slices.Clone(state.History)
	o.processed = state.MessagesProcessed
	o.mu.Unlock()
	o.ledger.Restore(state.ApprovalCounter, state.PendingApprovals)

	o.logger.Info("resuming task",
		zap.String("task_id", task.ID),
		zap.Int("messages_processed", state.MessagesProcessed),
		zap.Int("pending", len(state.PendingMessages)),
	)
	return o.loop(ctx, task, maxSteps)
}

// ResumeFromCheckpoint loads the task's checkpoint from the configured store
// and resumes it.
func (o *Orchestrator) ResumeFromCheckpoint(ctx context.Context, task types.Task, maxSteps int) (*types.TaskResult, error) {
	if o.checkpoints == nil {
		return nil, types.NewError(types.ErrInvalidRequest, "no checkpoint store configured")
	}
	data, err := o.checkpoints.Load(ctx, task.ID)
	if err != nil {
		code := types.ErrPersistence
		if errors.Is(err, checkpoint.ErrNotFound) {
			code = types.ErrInvalidRequest
		}
		return nil, types.Errorf(code, "failed to load checkpoint for task '%s'", task.ID).WithCause(err)
	}
	state, err := DecodeState(data)
	if err != nil {
		return nil, err
	}
	return o.Resume(ctx, state, task, maxSteps)
}

// Snapshot captures the current queue, history, processed count and
// approval ledger for task.
func (o *Orchestrator) Snapshot(task types.Task) *WorkflowState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return &WorkflowState{
		TaskID:            task.ID,
		TaskDescription:   task.Description,
		InitialAgentID:    task.InitialAgentID,
		PendingMessages:   slices.Clone(o.queue),
		History:           slices.Clone(o.history),
		MessagesProcessed: o.processed,
		ApprovalCounter:   o.ledger.Counter(),
		PendingApprovals:  o.ledger.Pending(),
	}
}

// Reset drops the queue, history, processed count and approval ledger so the
// next Run starts from nothing. It fails while a run is in progress.
func (o *Orchestrator) Reset() error {
	if !o.running.CompareAndSwap(false, true) {
		return types.NewError(types.ErrInvalidRequest, "orchestrator is already running")
	}
	defer o.running.Store(false)

	o.mu.Lock()
	o.queue = nil
	o.history = nil
	o.processed = 0
	o.mu.Unlock()
	o.ledger.Restore(0, nil)
	return nil
}

func (o *Orchestrator) loop(ctx context.Context, task types.Task, maxSteps int) (*types.TaskResult, error) {
	if maxSteps <= 0 {
		maxSteps = o.maxSteps
	}

	runID := uuid.NewString()
	ctx = ctxkeys.WithRunID(ctx, runID)
	ctx = types.WithTaskID(ctx, task.ID)
	ctx, span := o.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String("task.id", task.ID),
		attribute.String("run.id", runID),
		attribute.Int("max_steps", maxSteps),
	))
	defer span.End()
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = ctxkeys.WithTraceID(ctx, sc.TraceID().String())
	}

	logger := o.logger.With(zap.String("task_id", task.ID), zap.String("run_id", runID))

	for step := 1; ; step++ {
		o.mu.Lock()
		pending, processed := len(o.queue), o.processed
		o.mu.Unlock()
		if pending == 0 || processed >= maxSteps {
			break
		}
		if err := o.superstep(ctx, task, step, maxSteps-processed, logger); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("task aborted", zap.Int("superstep", step), zap.Error(err))
			o.observeRun(OutcomeFailed)
			return nil, err
		}
	}

	result := o.result(task)
	span.SetAttributes(
		attribute.Bool("completed", result.Completed),
		attribute.Int("messages_processed", result.MessagesProcessed),
	)
	if result.Completed {
		logger.Info("task completed", zap.Int("messages_processed", result.MessagesProcessed))
		o.observeRun(OutcomeCompleted)
	} else {
		logger.Warn("task halted after reaching max steps",
			zap.Int("max_steps", maxSteps),
			zap.Int("messages_processed", result.MessagesProcessed),
		)
		o.observeRun(OutcomeHalted)
	}
	return result, nil
}

// superstep drains up to limit messages from the head of the queue,
// dispatches them and folds the responses back in. Messages beyond limit stay
// queued ahead of the responses. On error the batch is put back so Snapshot
// still reflects the last consistent state.
func (o *Orchestrator) superstep(ctx context.Context, task types.Task, step, limit int, logger *zap.Logger) error {
	ctx = ctxkeys.WithSuperstep(ctx, step)
	ctx, span := o.tracer.Start(ctx, "workflow.superstep", trace.WithAttributes(attribute.Int("superstep", step)))
	defer span.End()

	o.mu.Lock()
	n := min(len(o.queue), limit)
	batch := slices.Clone(o.queue[:n])
	o.queue = slices.Clone(o.queue[n:])
	o.mu.Unlock()

	span.SetAttributes(attribute.Int("batch.size", len(batch)))
	logger.Debug("superstep started", zap.Int("superstep", step), zap.Int("batch_size", len(batch)))
	start := time.Now()

	responses, err := o.dispatcher.dispatch(ctx, task.ID, batch)
	if err != nil {
		o.requeue(batch)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if o.memory != nil {
		for _, msg := range batch {
			if err := o.memory.AppendMessage(ctx, task.ID, msg); err != nil {
				o.requeue(batch)
				return types.Errorf(types.ErrPersistence, "failed to append message to memory session '%s'", task.ID).WithCause(err)
			}
		}
	}

	o.mu.Lock()
	o.history = append(o.history, batch...)
	o.queue = append(o.queue, responses...)
	o.processed += len(batch)
	o.mu.Unlock()

	elapsed := time.Since(start)
	if o.observer != nil {
		o.observer.ObserveSuperstep(len(batch), len(responses), elapsed)
	}
	logger.Debug("superstep finished",
		zap.Int("superstep", step),
		zap.Int("responses", len(responses)),
		zap.Duration("duration", elapsed),
	)

	return o.saveCheckpoint(ctx, task)
}

func (o *Orchestrator) requeue(batch []types.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = append(slices.Clone(batch), o.queue...)
}

func (o *Orchestrator) saveCheckpoint(ctx context.Context, task types.Task) error {
	if o.checkpoints == nil {
		return nil
	}
	data, err := o.Snapshot(task).Encode()
	if err != nil {
		return err
	}
	if err := o.checkpoints.Save(ctx, task.ID, data); err != nil {
		return types.Errorf(types.ErrPersistence, "failed to save checkpoint for task '%s'", task.ID).WithCause(err)
	}
	return nil
}

func (o *Orchestrator) result(task types.Task) *types.TaskResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return &types.TaskResult{
		TaskID:            task.ID,
		Completed:         len(o.queue) == 0,
		MessagesProcessed: o.processed,
		History:           slices.Clone(o.history),
	}
}

func (o *Orchestrator) observeRun(outcome string) {
	if o.observer == nil {
		return
	}
	o.mu.Lock()
	processed := o.processed
	o.mu.Unlock()
	o.observer.ObserveRun(outcome, processed)
}

func validateTask(task types.Task) error {
	if task.ID == "" {
		return types.NewError(types.ErrInvalidRequest, "task id is required")
	}
	if task.InitialAgentID == "" {
		return types.NewError(types.ErrInvalidRequest, "task initial agent id is required")
	}
	return nil
}
