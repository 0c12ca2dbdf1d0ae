package workflow

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/devcrew/agent"
	"github.com/BaSui01/devcrew/internal/pool"
	"github.com/BaSui01/devcrew/types"
)

// dispatcher delivers one superstep batch. Distinct recipients run
// concurrently; messages for the same recipient are delivered one at a time
// in batch order.
type dispatcher struct {
	agents *agent.Registry
	pool   *pool.WorkerPool
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDispatcher(agents *agent.Registry, p *pool.WorkerPool, logger *zap.Logger) *dispatcher {
	return &dispatcher{
		agents: agents,
		pool:   p,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lock returns the mutex serializing deliveries to agentID.
func (d *dispatcher) lock(agentID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	mu, ok := d.locks[agentID]
	if !ok {
		mu = &sync.Mutex{}
		d.locks[agentID] = mu
	}
	return mu
}

// dispatch resolves every recipient first, then delivers the batch. Responses
// are returned in batch (sender) order with task_id back-filled.
func (d *dispatcher) dispatch(ctx context.Context, taskID string, batch []types.Message) ([]types.Message, error) {
	resolved := make([]agent.Agent, len(batch))
	var order []string
	groups := make(map[string][]int)

	for i, msg := range batch {
		a, ok := d.agents.Get(msg.Recipient)
		if !ok {
			d.logger.Error("attempted to dispatch to unknown agent",
				zap.String("recipient", msg.Recipient),
				zap.String("sender", msg.Sender),
			)
			return nil, types.Errorf(types.ErrUnknownAgent, "unknown agent: %s", msg.Recipient).
				WithAgent(msg.Recipient)
		}
		resolved[i] = a
		if _, seen := groups[msg.Recipient]; !seen {
			order = append(order, msg.Recipient)
		}
		groups[msg.Recipient] = append(groups[msg.Recipient], i)
	}

	results := make([][]types.Message, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for _, recipient := range order {
		indexes := groups[recipient]
		g.Go(func() error {
			for _, i := range indexes {
				// another recipient already failed the batch
				if err := gctx.Err(); err != nil {
					return err
				}
				out, err := d.deliver(gctx, resolved[i], batch[i], true)
				if err != nil {
					return err
				}
				results[i] = out
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var responses []types.Message
	for _, out := range results {
		for _, resp := range out {
			resp.Metadata = resp.Metadata.Clone()
			resp.Metadata.SetDefault(types.MetaTaskID, taskID)
			responses = append(responses, resp)
		}
	}
	return responses, nil
}

// deliverNested is used by the approval gate. It runs on the caller's
// goroutine so a gated call made from inside a pooled handler never waits on
// a second pool slot.
func (d *dispatcher) deliverNested(ctx context.Context, a agent.Agent, msg types.Message) ([]types.Message, error) {
	return d.deliver(ctx, a, msg, false)
}

func (d *dispatcher) deliver(ctx context.Context, a agent.Agent, msg types.Message, offload bool) ([]types.Message, error) {
	mu := d.lock(a.ID())
	mu.Lock()
	defer mu.Unlock()

	ctx = types.WithCaller(ctx, a.ID())
	out, err := d.invoke(ctx, a, msg, offload)
	if err != nil {
		if _, ok := types.AsError(err); ok {
			return nil, err
		}
		return nil, types.Errorf(types.ErrAgentFailure, "agent '%s' failed to handle message from '%s'", a.ID(), msg.Sender).
			WithAgent(a.ID()).WithCause(err)
	}
	return out, nil
}

func (d *dispatcher) invoke(ctx context.Context, a agent.Agent, msg types.Message, offload bool) ([]types.Message, error) {
	if async, ok := a.(agent.AsyncAgent); ok {
		select {
		case res, ok := <-async.HandleAsync(ctx, msg):
			if !ok {
				return nil, types.Errorf(types.ErrAgentFailure, "agent '%s' closed its result channel without a result", a.ID()).
					WithAgent(a.ID())
			}
			return res.Messages, res.Err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if offload && d.pool != nil {
		var out []types.Message
		err := d.pool.SubmitWait(ctx, func(ctx context.Context) error {
			var herr error
			out, herr = a.Handle(ctx, msg)
			return herr
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return a.Handle(ctx, msg)
}
