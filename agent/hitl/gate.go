package hitl

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/agent"
	"github.com/BaSui01/devcrew/types"
)

// AutonomousNotes is attached to synthesized approvals in autonomous mode.
const (
	AutonomousApprover = "system"
	AutonomousNotes    = "Autonomous mode: approval bypassed."
)

// Resolver looks up agents by id.
type Resolver interface {
	Get(id string) (agent.Agent, bool)
}

// Deliverer hands a single message to an agent and returns its responses.
// The orchestrator supplies one that honors per-recipient serialization.
type Deliverer interface {
	Deliver(ctx context.Context, a agent.Agent, msg types.Message) ([]types.Message, error)
}

// DeliverFunc adapts a function into a Deliverer.
type DeliverFunc func(ctx context.Context, a agent.Agent, msg types.Message) ([]types.Message, error)

// Deliver calls f.
func (f DeliverFunc) Deliver(ctx context.Context, a agent.Agent, msg types.Message) ([]types.Message, error) {
	return f(ctx, a, msg)
}

// Gate brokers approval requests through the configured proxy agent.
type Gate struct {
	policy  Policy
	agents  Resolver
	deliver Deliverer
	ledger  *Ledger
	logger  *zap.Logger
}

// NewGate creates an approval gate. A nil deliverer calls Handle directly;
// a nil ledger gets a fresh one.
func NewGate(policy Policy, agents Resolver, deliver Deliverer, ledger *Ledger, logger *zap.Logger) *Gate {
	if deliver == nil {
		deliver = DeliverFunc(func(ctx context.Context, a agent.Agent, msg types.Message) ([]types.Message, error) {
			return a.Handle(ctx, msg)
		})
	}
	if ledger == nil {
		ledger = NewLedger()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		policy:  policy,
		agents:  agents,
		deliver: deliver,
		ledger:  ledger,
		logger:  logger.With(zap.String("component", "approval_gate")),
	}
}

// Policy returns the gate's policy.
func (g *Gate) Policy() Policy { return g.policy }

// Ledger returns the gate's ledger.
func (g *Gate) Ledger() *Ledger { return g.ledger }

// RequestApproval obtains a decision for req. In autonomous mode it approves
// without contacting the proxy. A request made from inside the proxy's own
// handler is rejected with INVALID_REQUEST.
func (g *Gate) RequestApproval(ctx context.Context, req types.ApprovalRequest) (types.ApprovalDecision, error) {
	if !g.policy.ApprovalRequired() {
		return types.ApprovalDecision{
			Approved: true,
			Approver: AutonomousApprover,
			Notes:    AutonomousNotes,
		}, nil
	}

	proxyID := g.policy.ProxyID()
	// 代理自身持有分发锁，再向自己请求审批会死锁
	if caller, ok := types.Caller(ctx); ok && caller == proxyID {
		return types.ApprovalDecision{}, types.Errorf(types.ErrInvalidRequest,
			"user proxy '%s' cannot request approval from itself", proxyID).WithAgent(proxyID)
	}

	requestID := g.ledger.Next()
	g.ledger.Put(requestID, req)

	proxy, ok := g.agents.Get(proxyID)
	if !ok {
		return types.ApprovalDecision{}, types.Errorf(types.ErrProxyNotRegistered,
			"user proxy agent '%s' is not registered", proxyID).WithAgent(proxyID)
	}

	msg := types.NewMessage(types.SenderOrchestrator, proxyID, req.Description)
	msg.Metadata[types.MetaApprovalRequestID] = requestID
	msg.Metadata[types.MetaAction] = req.Action
	msg.Metadata[types.MetaMetadata] = map[string]any(req.Metadata.Clone())

	g.logger.Info("approval requested",
		zap.String("request_id", requestID),
		zap.String("action", req.Action),
		zap.String("proxy", proxyID),
	)

	responses, err := g.deliver.Deliver(ctx, proxy, msg)
	if err != nil {
		return types.ApprovalDecision{}, types.Errorf(types.ErrAgentFailure,
			"user proxy '%s' failed on request '%s'", proxyID, requestID).WithAgent(proxyID).WithCause(err)
	}

	decision, ok := ExtractDecision(requestID, responses)
	if !ok {
		g.logger.Error("no approval decision", zap.String("request_id", requestID))
		return types.ApprovalDecision{}, types.Errorf(types.ErrNoApprovalDecision,
			"user proxy did not return a decision for request '%s'", requestID).WithAgent(proxyID)
	}
	g.ledger.Take(requestID)

	g.logger.Info("approval decided",
		zap.String("request_id", requestID),
		zap.Bool("approved", decision.Approved),
		zap.String("approver", decision.Approver),
	)
	return decision, nil
}

// ExtractDecision returns the decision carried by the first response whose
// metadata matches requestID with a bool "approved" and a string "approver".
// Later matches are ignored.
func ExtractDecision(requestID string, responses []types.Message) (types.ApprovalDecision, bool) {
	for _, resp := range responses {
		if id, ok := resp.Metadata.String(types.MetaApprovalRequestID); !ok || id != requestID {
			continue
		}
		approved, ok := resp.Metadata.Bool(types.MetaApproved)
		if !ok {
			continue
		}
		approver, ok := resp.Metadata.String(types.MetaApprover)
		if !ok {
			continue
		}
		notes, _ := resp.Metadata.String(types.MetaNotes)
		return types.ApprovalDecision{Approved: approved, Approver: approver, Notes: notes}, true
	}
	return types.ApprovalDecision{}, false
}
