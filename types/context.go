package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyTaskID contextKey = "task_id"
	keyCaller contextKey = "caller"
)

// WithTaskID adds the running task id to context.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	return context.WithValue(ctx, keyTaskID, taskID)
}

// TaskID extracts the running task id from context.
func TaskID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyTaskID).(string)
	return v, ok && v != ""
}

// WithCaller records the agent currently handling a message.
func WithCaller(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, keyCaller, agentID)
}

// Caller extracts the handling agent id from context.
func Caller(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyCaller).(string)
	return v, ok && v != ""
}
