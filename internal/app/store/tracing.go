package store

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "chatsync/store"

type traced struct {
	next   Store
	tracer trace.Tracer
	driver string
}

// WithTracing records a span for every call into next. Spans are no-ops until
// a tracer provider is installed.
func WithTracing(next Store, driver string) Store {
	return &traced{next: next, tracer: otel.Tracer(tracerName), driver: driver}
}

func (t *traced) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("db.system", t.driver))
	return t.tracer.Start(ctx, "store."+op, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *traced) Append(ctx context.Context, m Message) (out Message, err error) {
	ctx, span := t.start(ctx, "append",
		attribute.Bool("chat.private", m.IsPrivate),
		attribute.Bool("chat.file", m.IsFile),
	)
	defer func() { finish(span, err) }()

	out, err = t.next.Append(ctx, m)
	if err == nil {
		span.SetAttributes(attribute.Int64("chat.message_id", out.ID))
	}
	return out, err
}

func (t *traced) Page(ctx context.Context, q PageQuery) (out []Message, err error) {
	ctx, span := t.start(ctx, "page",
		attribute.Int("chat.skip", q.Skip),
		attribute.Int("chat.limit", q.Limit),
		attribute.Bool("chat.authenticated", q.ViewerID != ""),
	)
	defer func() { finish(span, err) }()

	out, err = t.next.Page(ctx, q)
	span.SetAttributes(attribute.Int("chat.returned", len(out)))
	return out, err
}

func (t *traced) Get(ctx context.Context, id int64) (out Message, err error) {
	ctx, span := t.start(ctx, "get", attribute.Int64("chat.message_id", id))
	defer func() { finish(span, err) }()

	return t.next.Get(ctx, id)
}

func (t *traced) MarkRead(ctx context.Context, id int64, readerID string) (out Message, changed bool, err error) {
	ctx, span := t.start(ctx, "mark_read", attribute.Int64("chat.message_id", id))
	defer func() { finish(span, err) }()

	out, changed, err = t.next.MarkRead(ctx, id, readerID)
	span.SetAttributes(attribute.Bool("chat.changed", changed))
	return out, changed, err
}

func (t *traced) Close() error { return t.next.Close() }
