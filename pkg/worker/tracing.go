package worker

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/petrijr/echo/pkg/api"
)

const tracerName = "github.com/petrijr/echo/pkg/worker"

type tracedWorker struct {
	next   api.Worker
	tracer trace.Tracer
}

// Traced wraps next so that every dispatch runs inside a span. A nil tp uses
// the global provider.
func Traced(next api.Worker, tp trace.TracerProvider) api.Worker {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &tracedWorker{next: next, tracer: tp.Tracer(tracerName)}
}

func (w *tracedWorker) Receive(ctx context.Context, action api.Executable, ec *api.ExecutionContext) error {
	ctx, span := w.tracer.Start(ctx, "action "+action.Name(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("echo.action", action.Name()),
			attribute.String("echo.action_id", action.ID()),
		),
	)
	defer span.End()

	err := w.next.Receive(ctx, action, ec)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("echo.error_kind", api.KindOf(err).String()))
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
