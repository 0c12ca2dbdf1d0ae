package types

import (
	"context"
	"testing"
)

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, ok := TaskID(ctx); ok {
		t.Fatal("expected no task id on empty context")
	}

	ctx = WithTaskID(ctx, "t1")
	if got, ok := TaskID(ctx); !ok || got != "t1" {
		t.Fatalf("TaskID mismatch: %v %v", got, ok)
	}

	ctx = WithCaller(ctx, "coder")
	if got, ok := Caller(ctx); !ok || got != "coder" {
		t.Fatalf("Caller mismatch: %v %v", got, ok)
	}

	if _, ok := Caller(WithCaller(context.Background(), "")); ok {
		t.Fatal("empty caller should not be reported")
	}
}
