package workflow

import (
	"context"
	"fmt"

	"github.com/BaSui01/devcrew/types"
)

// stepAgent replies depend only on the incoming message, so a resumed crew
// replays identically.
type stepAgent struct {
	id     string
	next   string
	fanout int
	last   bool
}

func newStepAgent(id, next string, fanout int, last bool) *stepAgent {
	return &stepAgent{id: id, next: next, fanout: fanout, last: last}
}

func (a *stepAgent) ID() string   { return a.id }
func (a *stepAgent) Role() string { return "step" }

func (a *stepAgent) Handle(_ context.Context, msg types.Message) ([]types.Message, error) {
	if a.last {
		return nil, nil
	}
	out := make([]types.Message, a.fanout)
	for i := range out {
		out[i] = types.NewMessage(a.id, a.next, fmt.Sprintf("%s/%d", msg.Content, i))
	}
	return out, nil
}
