package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/devcrew/types"
)

func echoTool(name string) *FuncTool {
	return NewFuncTool(name, "echo arguments", map[string]any{"value": "any"},
		func(_ context.Context, args map[string]any) (types.ToolResult, error) {
			return types.ToolResult{Success: true, Output: args["value"]}, nil
		})
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	require.NoError(t, r.Register(echoTool("echo")))

	err := r.Register(echoTool("echo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Error(t, r.Register(echoTool("")))
}

func TestRegistry_ExecuteFillsName(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool("echo")))

	res, err := r.Execute(context.Background(), "echo", map[string]any{"value": 42})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "echo", res.Name)
	assert.Equal(t, 42, res.Output)
}

func TestRegistry_ExecuteUnknown(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Execute(context.Background(), "ghost", nil)
	require.ErrorIs(t, err, ErrToolNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRegistry_ListSortedAndUnregister(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool("zeta")))
	require.NoError(t, r.Register(echoTool("alpha")))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zeta", list[1].Name)

	require.NoError(t, r.Unregister("alpha"))
	assert.False(t, r.Has("alpha"))
	assert.ErrorIs(t, r.Unregister("alpha"), ErrToolNotFound)
}

func TestRegistry_RateLimitDelaysCalls(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterWithMetadata(echoTool("slow"), Metadata{
		RateLimit: &RateLimitConfig{MaxCalls: 1, Window: 60 * time.Millisecond},
	}))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := r.Execute(context.Background(), "slow", nil)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestRegistry_RateLimitHonorsContext(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(echoTool("slow")))
	require.NoError(t, r.SetRateLimit("slow", RateLimitConfig{MaxCalls: 1, Window: time.Hour}))
	assert.ErrorIs(t, r.SetRateLimit("ghost", RateLimitConfig{MaxCalls: 1, Window: time.Second}), ErrToolNotFound)

	_, err := r.Execute(context.Background(), "slow", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Execute(ctx, "slow", nil)
	require.Error(t, err)
}

func TestRegistry_TimeoutApplied(t *testing.T) {
	r := NewRegistry(nil)
	blocking := NewFuncTool("block", "waits for ctx", nil, func(ctx context.Context, _ map[string]any) (types.ToolResult, error) {
		<-ctx.Done()
		return types.ToolResult{}, ctx.Err()
	})
	require.NoError(t, r.RegisterWithMetadata(blocking, Metadata{Timeout: 10 * time.Millisecond}))

	_, err := r.Execute(context.Background(), "block", nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
