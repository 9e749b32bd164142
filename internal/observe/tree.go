// Package observe decorates a types.Tree with structured logging,
// Prometheus metrics and OpenTelemetry spans. Every call gets a UUIDv7
// operation id that appears in its log lines and span.
package observe

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesh-intelligence/grove/pkg/types"
)

const tracerName = "github.com/mesh-intelligence/grove"

var _ types.Tree = (*Tree)(nil)

// Tree wraps another types.Tree.
type Tree struct {
	next    types.Tree
	name    string
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures Wrap.
type Option func(*Tree)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) { t.logger = l }
}

// WithMetrics sets the collectors. The default is DefaultMetrics().
func WithMetrics(m *Metrics) Option {
	return func(t *Tree) { t.metrics = m }
}

// WithTracerProvider sets where spans go. The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(t *Tree) { t.tracer = tp.Tracer(tracerName) }
}

// Wrap decorates next. name identifies the tree in logs and spans, usually
// "<backend>/<representation>".
func Wrap(next types.Tree, name string, opts ...Option) *Tree {
	t := &Tree{next: next, name: name}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	if t.metrics == nil {
		t.metrics = DefaultMetrics()
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(tracerName)
	}
	t.logger = t.logger.With("tree", name)
	return t
}

// Unwrap returns the decorated tree.
func (t *Tree) Unwrap() types.Tree { return t.next }

type call struct {
	t        *Tree
	op       string
	id       string
	mutation bool
	start    time.Time
	span     trace.Span
	attrs    []attribute.KeyValue
}

func (t *Tree) begin(ctx context.Context, op string, mutation bool, attrs ...attribute.KeyValue) (context.Context, *call) {
	opID := newOpID()
	spanAttrs := append([]attribute.KeyValue{
		attribute.String("grove.op_id", opID),
		attribute.String("grove.tree", t.name),
	}, attrs...)
	ctx, span := t.tracer.Start(ctx, "grove."+op, trace.WithAttributes(spanAttrs...))
	return ctx, &call{t: t, op: op, id: opID, mutation: mutation, start: time.Now(), span: span, attrs: attrs}
}

// end records the outcome. extra attributes describe the result.
func (c *call) end(ctx context.Context, err error, extra ...attribute.KeyValue) {
	elapsed := time.Since(c.start)
	result := resultOf(err)
	c.t.metrics.Operations.WithLabelValues(c.op, result).Inc()
	c.t.metrics.Duration.WithLabelValues(c.op).Observe(elapsed.Seconds())

	c.span.SetAttributes(extra...)
	c.span.SetAttributes(attribute.String("grove.result", result))
	if err != nil {
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, result)
	} else {
		c.span.SetStatus(codes.Ok, "")
	}
	c.span.End()

	args := []any{"op", c.op, "op_id", c.id, "result", result, "elapsed", elapsed}
	for _, kv := range c.attrs {
		args = append(args, string(kv.Key), kv.Value.AsInterface())
	}
	for _, kv := range extra {
		args = append(args, string(kv.Key), kv.Value.AsInterface())
	}
	switch {
	case err != nil:
		c.t.logger.ErrorContext(ctx, "tree operation failed", append(args, "error", err)...)
	case c.mutation:
		c.t.logger.InfoContext(ctx, "tree mutated", args...)
	default:
		c.t.logger.DebugContext(ctx, "tree queried", args...)
	}
}

// afterMutation refreshes the node gauge once a mutation committed.
func (t *Tree) afterMutation(ctx context.Context, err error) {
	if err != nil {
		return
	}
	if n, err := t.next.NodeCount(ctx); err == nil {
		t.metrics.Nodes.Set(float64(n))
	}
}

func newOpID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
