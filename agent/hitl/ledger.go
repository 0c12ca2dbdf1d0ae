package hitl

import (
	"fmt"
	"maps"
	"sync"
	"sync/atomic"

	"github.com/BaSui01/devcrew/types"
)

// Ledger tracks approval ids and the requests still waiting for a decision.
// One Ledger belongs to one orchestrator; it is never shared process-wide.
type Ledger struct {
	counter atomic.Int64

	mu      sync.Mutex
	pending map[string]types.ApprovalRequest
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{pending: make(map[string]types.ApprovalRequest)}
}

// Next allocates the next request id ("approval-N"). Safe for concurrent callers.
func (l *Ledger) Next() string {
	return fmt.Sprintf("approval-%d", l.counter.Add(1))
}

// Put records a pending request.
func (l *Ledger) Put(id string, req types.ApprovalRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[id] = req
}

// Take removes and returns a pending request.
func (l *Ledger) Take(id string) (types.ApprovalRequest, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	req, ok := l.pending[id]
	delete(l.pending, id)
	return req, ok
}

// Counter returns the number of ids allocated so far.
func (l *Ledger) Counter() int {
	return int(l.counter.Load())
}

// Pending returns a copy of the open requests.
func (l *Ledger) Pending() map[string]types.ApprovalRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.pending)
}

// Restore replaces the ledger contents, e.g. when resuming from a checkpoint.
func (l *Ledger) Restore(counter int, pending map[string]types.ApprovalRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counter.Store(int64(counter))
	l.pending = make(map[string]types.ApprovalRequest, len(pending))
	maps.Copy(l.pending, pending)
}
