package tools

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent/hitl"
	"github.com/BaSui01/devcrew/types"
)

const instrumentationName = "github.com/BaSui01/devcrew/tools"

// Approver obtains a decision for a gated action.
type Approver interface {
	RequestApproval(ctx context.Context, req types.ApprovalRequest) (types.ApprovalDecision, error)
}

// Observer receives tool and approval outcomes, e.g. for metrics.
type Observer interface {
	ObserveTool(name string, success bool, duration time.Duration)
	ObserveApproval(action string, approved bool)
}

// Arbiter executes tools while enforcing the approval policy.
type Arbiter struct {
	registry *Registry
	policy   hitl.Policy
	approver Approver
	observer Observer
	tracer   trace.Tracer
	logger   *zap.Logger
}

// ArbiterOption configures an Arbiter.
type ArbiterOption func(*Arbiter)

// WithObserver sets an outcome observer.
func WithObserver(o Observer) ArbiterOption {
	return func(a *Arbiter) { a.observer = o }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ArbiterOption {
	return func(a *Arbiter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) ArbiterOption {
	return func(a *Arbiter) { a.tracer = t }
}

// NewArbiter creates an arbiter over registry.
func NewArbiter(registry *Registry, policy hitl.Policy, approver Approver, opts ...ArbiterOption) *Arbiter {
	a := &Arbiter{
		registry: registry,
		policy:   policy,
		approver: approver,
		tracer:   otel.Tracer(instrumentationName),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(zap.String("component", "tool_arbiter"))
	return a
}

// Registry returns the underlying registry.
func (a *Arbiter) Registry() *Registry { return a.registry }

// Execute runs an ungated tool. Calling it with a gated name is a programming
// error; such calls must go through ExecuteWithApproval.
func (a *Arbiter) Execute(ctx context.Context, name string, args map[string]any, caller string) (types.ToolResult, error) {
	if a.policy.RequiresApproval(name) {
		return types.ToolResult{}, types.Errorf(types.ErrApprovalRequired,
			"tool '%s' requires explicit approval via ExecuteWithApproval", name).WithTool(name, caller)
	}
	return a.run(ctx, name, args, caller)
}

// ExecuteWithApproval runs a tool, asking the approver first when the policy
// gates it. A rejection is returned as a failed ToolResult, not an error, and the
// tool is never invoked. req may be nil to use the default request.
func (a *Arbiter) ExecuteWithApproval(ctx context.Context, name string, args map[string]any, caller string, req *types.ApprovalRequest) (types.ToolResult, error) {
	if !a.policy.RequiresApproval(name) {
		return a.Execute(ctx, name, args, caller)
	}

	request := DefaultApprovalRequest(name, args, caller)
	if req != nil {
		request = *req
	}

	decision, err := a.approver.RequestApproval(ctx, request)
	if err != nil {
		return types.ToolResult{}, err
	}
	if a.observer != nil {
		a.observer.ObserveApproval(request.Action, decision.Approved)
	}

	if !decision.Approved {
		a.logger.Warn("tool execution rejected",
			zap.String("tool", name),
			zap.String("caller", callerOrUnknown(caller)),
			zap.String("approver", decision.Approver),
		)
		msg := strings.TrimSpace(fmt.Sprintf("Approval rejected by %s: %s", decision.Approver, decision.Notes))
		return types.NewToolFailure(name, msg), nil
	}

	approved := maps.Clone(args)
	if approved == nil {
		approved = make(map[string]any, 2)
	}
	if _, ok := approved[types.MetaApproved]; !ok {
		approved[types.MetaApproved] = true
	}
	if _, ok := approved[types.MetaApprover]; !ok {
		approved[types.MetaApprover] = decision.Approver
	}
	return a.run(ctx, name, approved, caller)
}

// DefaultApprovalRequest builds the request used when the caller supplies none.
func DefaultApprovalRequest(name string, args map[string]any, caller string) types.ApprovalRequest {
	return types.ApprovalRequest{
		Action:      name,
		Description: fmt.Sprintf("Approve tool execution for '%s'.", name),
		Metadata: types.Metadata{
			types.MetaArguments: maps.Clone(args),
			types.MetaCaller:    caller,
		},
	}
}

func (a *Arbiter) run(ctx context.Context, name string, args map[string]any, caller string) (types.ToolResult, error) {
	if caller == "" {
		caller, _ = types.Caller(ctx)
	}
	ctx, span := a.tracer.Start(ctx, "tool.execute", trace.WithAttributes(
		attribute.String("tool.name", name),
		attribute.String("tool.caller", caller),
	))
	defer span.End()

	fields := []zap.Field{
		zap.String("tool", name),
		zap.String("caller", callerOrUnknown(caller)),
	}
	if taskID, ok := types.TaskID(ctx); ok {
		fields = append(fields, zap.String("task_id", taskID))
	}
	a.logger.Info("executing tool", fields...)

	start := time.Now()
	result, err := a.registry.Execute(ctx, name, args)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrToolNotFound) {
			a.logger.Error("tool not found", zap.String("tool", name))
			return types.ToolResult{}, types.Errorf(types.ErrUnknownTool, "unknown tool: %s", name).
				WithTool(name, caller).WithCause(err)
		}
		a.logger.Error("tool failed unexpectedly",
			zap.String("tool", name),
			zap.String("caller", callerOrUnknown(caller)),
			zap.Error(err),
		)
		if a.observer != nil {
			a.observer.ObserveTool(name, false, duration)
		}
		return types.ToolResult{}, types.Errorf(types.ErrToolFailure,
			"tool '%s' failed for caller '%s'", name, callerOrUnknown(caller)).
			WithTool(name, caller).WithCause(err)
	}

	span.SetAttributes(attribute.Bool("tool.success", result.Success))
	if a.observer != nil {
		a.observer.ObserveTool(name, result.Success, duration)
	}
	a.logger.Debug("tool completed",
		zap.String("tool", name),
		zap.Bool("success", result.Success),
		zap.Duration("duration", duration),
	)
	return result, nil
}

func callerOrUnknown(caller string) string {
	if caller == "" {
		return "unknown"
	}
	return caller
}
