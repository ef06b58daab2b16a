package api

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/petrijr/echo/pkg/config"
)

func TestNewExecutionContext_Defaults(t *testing.T) {
	ec := NewExecutionContext()
	if ec.Config() == nil || ec.Cache() == nil || ec.Logger() == nil {
		t.Fatalf("expected defaults for config, cache and logger")
	}
	if _, ok := ec.Hook("any"); ok {
		t.Fatalf("expected no hooks")
	}
}

func TestNewExecutionContext_Options(t *testing.T) {
	cfg := config.NewValues(map[string]any{"k": "v"})
	cache := NewMemoryCache()
	logger := slog.New(&recordingHandler{})
	q := NewWorkQueue("side")

	ec := NewExecutionContext(WithConfig(cfg), WithCache(cache), WithLogger(logger), WithQueue(q))

	if config.String(ec.Config(), "k", "") != "v" {
		t.Fatalf("config not applied")
	}
	if ec.Cache() != cache || ec.Logger() != logger {
		t.Fatalf("cache or logger not applied")
	}
	if got, ok := ec.Queue("side"); !ok || got != q {
		t.Fatalf("queue not registered")
	}
}

func TestExecutionContext_AddHookReplaces(t *testing.T) {
	ec := NewExecutionContext()
	calls := 0
	ec.AddHook("h", func(ctx context.Context, a Executable) error { calls = 1; return nil })
	ec.AddHook("h", func(ctx context.Context, a Executable) error { calls = 2; return nil })

	h, ok := ec.Hook("h")
	if !ok {
		t.Fatalf("hook missing")
	}
	_ = h(context.Background(), nil)
	if calls != 2 {
		t.Fatalf("expected replaced hook to run, calls=%d", calls)
	}
}

func TestExecutionContext_RouteUnknownQueue(t *testing.T) {
	ec := NewExecutionContext()
	err := ec.Route("missing", New("Read", "x", NewRegistry()))
	if !errors.Is(err, ErrRouting) {
		t.Fatalf("expected Routing error, got %v", err)
	}
	if !errors.Is(err, ErrQueueNotFound) {
		t.Fatalf("expected ErrQueueNotFound cause, got %v", err)
	}
}

func TestExecutionContext_RouteFromHandlerAndDrain(t *testing.T) {
	log := &callLog{}
	var reg *Registry
	reg = NewPlan().
		Func("Write", logHandler(log, "Write", nil)).
		Func("Fanout", func(ctx context.Context, args []any) (any, error) {
			ec := FromContext(ctx)
			for _, arg := range args {
				if err := ec.Route("writes", New("Write", arg, reg)); err != nil {
					return nil, err
				}
			}
			return len(args), nil
		}).
		MustBuild()
	ec := NewExecutionContext(WithQueue(NewWorkQueue("writes")))

	if err := New("Fanout", []any{"a", "b", "c"}, reg).Execute(context.Background(), ec); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	q, _ := ec.Queue("writes")
	if q.Len() != 3 {
		t.Fatalf("expected 3 routed actions, got %d", q.Len())
	}

	n, err := ec.Drain(context.Background(), "writes")
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 3 || q.Len() != 0 {
		t.Fatalf("Drain ran %d actions, %d left", n, q.Len())
	}
	if got := log.get(); len(got) != 3 {
		t.Fatalf("expected 3 Write calls, got %v", got)
	}
}

func TestExecutionContext_DrainJoinsErrors(t *testing.T) {
	reg := NewPlan().Func("Fail", func(ctx context.Context, args []any) (any, error) {
		return nil, errors.New("boom")
	}).Func("Ok", echoHandler()).MustBuild()

	q := NewWorkQueue("side")
	q.Assign(New("Fail", 1, reg))
	q.Assign(New("Ok", 2, reg))
	q.Assign(New("Fail", 3, reg))
	ec := NewExecutionContext(WithQueue(q))

	n, err := ec.Drain(context.Background(), "side")
	if n != 3 {
		t.Fatalf("expected all 3 actions to run, got %d", n)
	}
	if !errors.Is(err, ErrExecution) {
		t.Fatalf("expected joined Execution errors, got %v", err)
	}
}

func TestExecutionContext_DrainUnknownQueue(t *testing.T) {
	_, err := NewExecutionContext().Drain(context.Background(), "nope")
	if !errors.Is(err, ErrRouting) {
		t.Fatalf("expected Routing error, got %v", err)
	}
}

func TestExecutionContext_DrainCancelled(t *testing.T) {
	q := NewWorkQueue("side")
	q.Assign(New("Ok", 1, NewPlan().Func("Ok", echoHandler()).MustBuild()))
	ec := NewExecutionContext(WithQueue(q))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := ec.Drain(ctx, "side")
	if n != 0 || !errors.Is(err, ErrCancellation) {
		t.Fatalf("expected no work and Cancellation error, got n=%d err=%v", n, err)
	}
	if q.Len() != 1 {
		t.Fatalf("cancelled drain must leave work queued")
	}
}

func TestFromContext_Missing(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected nil execution context")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatalf("empty cache returned a value")
	}
	_ = c.Set(ctx, "k", 1)
	if v, ok, _ := c.Get(ctx, "k"); !ok || v != 1 {
		t.Fatalf("Get after Set: %v %v", v, ok)
	}
	_ = c.Delete(ctx, "k")
	if c.Len() != 0 {
		t.Fatalf("Delete did not remove the entry")
	}
}
