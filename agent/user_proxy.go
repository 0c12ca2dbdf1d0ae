package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/types"
)

// DefaultApprover is used when a decision does not name an approver.
const DefaultApprover = "user"

// DecisionSource produces an approval decision for an incoming request message.
type DecisionSource interface {
	Decide(ctx context.Context, msg types.Message) (types.ApprovalDecision, error)
}

// DecisionFunc adapts a function into a DecisionSource.
type DecisionFunc func(ctx context.Context, msg types.Message) (types.ApprovalDecision, error)

// Decide calls f.
func (f DecisionFunc) Decide(ctx context.Context, msg types.Message) (types.ApprovalDecision, error) {
	return f(ctx, msg)
}

// MetadataDecisions reads the decision from the request metadata. Missing or
// mistyped fields default to approved by DefaultApprover.
func MetadataDecisions() DecisionSource {
	return DecisionFunc(func(_ context.Context, msg types.Message) (types.ApprovalDecision, error) {
		decision := types.ApprovalDecision{Approved: true, Approver: DefaultApprover}
		if approved, ok := msg.Metadata.Bool(types.MetaApproved); ok {
			decision.Approved = approved
		}
		if approver, ok := msg.Metadata.String(types.MetaApprover); ok && approver != "" {
			decision.Approver = approver
		}
		if notes, ok := msg.Metadata.String(types.MetaNotes); ok {
			decision.Notes = notes
		}
		return decision, nil
	})
}

// FixedDecision always returns the same decision.
func FixedDecision(approved bool, approver, notes string) DecisionSource {
	if approver == "" {
		approver = DefaultApprover
	}
	return DecisionFunc(func(context.Context, types.Message) (types.ApprovalDecision, error) {
		return types.ApprovalDecision{Approved: approved, Approver: approver, Notes: notes}, nil
	})
}

// ConsoleDecisions prompts on out and reads one line per request from in.
// "y" or "yes" approves; anything else rejects. Text after a colon becomes the notes,
// e.g. "n: tests are red".
func ConsoleDecisions(in io.Reader, out io.Writer, approver string) DecisionSource {
	if approver == "" {
		approver = DefaultApprover
	}
	c := &consoleDecisions{scanner: bufio.NewScanner(in), out: out, approver: approver}
	return c
}

type consoleDecisions struct {
	mu       sync.Mutex
	scanner  *bufio.Scanner
	out      io.Writer
	approver string
}

func (c *consoleDecisions) Decide(ctx context.Context, msg types.Message) (types.ApprovalDecision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return types.ApprovalDecision{}, err
	}

	action, _ := msg.Metadata.String(types.MetaAction)
	fmt.Fprintf(c.out, "[approval] %s\n  action: %s\n  approve? [y/N]: ", msg.Content, action)

	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return types.ApprovalDecision{}, fmt.Errorf("read approval answer: %w", err)
		}
		return types.ApprovalDecision{Approved: false, Approver: c.approver, Notes: "no answer"}, nil
	}

	answer, notes, _ := strings.Cut(c.scanner.Text(), ":")
	answer = strings.ToLower(strings.TrimSpace(answer))
	return types.ApprovalDecision{
		Approved: answer == "y" || answer == "yes",
		Approver: c.approver,
		Notes:    strings.TrimSpace(notes),
	}, nil
}

// UserProxy represents a human for approval round-trips.
type UserProxy struct {
	id     string
	source DecisionSource
	logger *zap.Logger
}

// NewUserProxy creates a proxy agent. A nil source falls back to MetadataDecisions.
func NewUserProxy(id string, source DecisionSource, logger *zap.Logger) *UserProxy {
	if source == nil {
		source = MetadataDecisions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserProxy{
		id:     id,
		source: source,
		logger: logger.With(zap.String("component", "user_proxy"), zap.String("agent_id", id)),
	}
}

func (p *UserProxy) ID() string   { return p.id }
func (p *UserProxy) Role() string { return "user proxy" }

// Handle answers an approval request with a single reply to its sender.
func (p *UserProxy) Handle(ctx context.Context, msg types.Message) ([]types.Message, error) {
	decision, err := p.source.Decide(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("user proxy %s: %w", p.id, err)
	}

	content := "Rejected"
	if decision.Approved {
		content = "Approved"
	}

	reply := msg.Reply(p.id, content)
	reply.Metadata[types.MetaApprovalRequestID] = msg.Metadata[types.MetaApprovalRequestID]
	reply.Metadata[types.MetaApproved] = decision.Approved
	reply.Metadata[types.MetaApprover] = decision.Approver
	reply.Metadata[types.MetaNotes] = decision.Notes

	p.logger.Debug("approval decided",
		zap.Any("request_id", msg.Metadata[types.MetaApprovalRequestID]),
		zap.Bool("approved", decision.Approved),
		zap.String("approver", decision.Approver),
	)
	return []types.Message{reply}, nil
}
