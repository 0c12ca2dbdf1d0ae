// Package ctxkeys 定义编排运行期间写入 context 的键。
package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey   contextKey = "trace_id"
	runIDKey     contextKey = "run_id"
	superstepKey contextKey = "superstep"
)

// WithTraceID 设置 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithRunID 设置 RunID（每次 Run / Resume 调用生成一个）
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// RunID 获取 RunID
func RunID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(runIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithSuperstep 设置当前超步序号（从 1 开始）
func WithSuperstep(ctx context.Context, step int) context.Context {
	return context.WithValue(ctx, superstepKey, step)
}

// Superstep 获取当前超步序号
func Superstep(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(superstepKey).(int)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
