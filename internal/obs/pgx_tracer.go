package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// sqlAttrLimit caps db.statement length; order payload inserts carry large
// JSON literals that do not belong in span attributes.
const sqlAttrLimit = 300

type querySpanKey struct{}

// PGXTracer implements pgx.QueryTracer, wrapping every statement in a span.
type PGXTracer struct{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := otel.Tracer("db.pgx").Start(ctx, "pgx.query")
	stmt := strings.TrimSpace(data.SQL)
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", clipSQL(stmt)),
	}
	if fields := strings.Fields(stmt); len(fields) > 0 {
		attrs = append(attrs, attribute.String("db.operation", fields[0]))
	}
	span.SetAttributes(attrs...)
	return context.WithValue(ctx, querySpanKey{}, span)
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(querySpanKey{}).(trace.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		span.RecordError(data.Err)
	}
	span.End()
}

func clipSQL(stmt string) string {
	if len(stmt) > sqlAttrLimit {
		return stmt[:sqlAttrLimit] + "..."
	}
	return stmt
}
