package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mesh-intelligence/grove/internal/closure"
	"github.com/mesh-intelligence/grove/internal/memstore"
	"github.com/mesh-intelligence/grove/pkg/types"
)

type fixture struct {
	tree    *Tree
	metrics *Metrics
	logs    *bytes.Buffer
	spans   *tracetest.SpanRecorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := NewMetrics(prometheus.NewRegistry())
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	tree := Wrap(closure.New(memstore.New()), "memory/closure",
		WithLogger(logger), WithMetrics(metrics), WithTracerProvider(tp))
	t.Cleanup(func() { tree.Close() })
	return fixture{tree: tree, metrics: metrics, logs: &logs, spans: spans}
}

func (f fixture) logLines(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(f.logs.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestCountsOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root, err := f.tree.AddNode(ctx, "root", types.NoParent)
	require.NoError(t, err)
	_, err = f.tree.AddNode(ctx, "child", types.ParentID(root))
	require.NoError(t, err)
	_, err = f.tree.AddNode(ctx, "orphan", types.ParentID(999))
	require.ErrorIs(t, err, types.ErrParentNotFound)
	err = f.tree.MoveNode(ctx, root, root)
	require.ErrorIs(t, err, types.ErrCycle)

	ops := f.metrics.Operations
	assert.Equal(t, 2.0, testutil.ToFloat64(ops.WithLabelValues("add_node", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("add_node", ResultNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ops.WithLabelValues("move_node", ResultInvariant)))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.Nodes))
	assert.Equal(t, 2, testutil.CollectAndCount(f.metrics.Duration))
}

func TestLogsWithOperationID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.tree.AddNode(ctx, "root", types.NoParent)
	require.NoError(t, err)
	_, err = f.tree.GetPath(ctx, id)
	require.NoError(t, err)
	err = f.tree.DeleteNode(ctx, 42)
	require.Error(t, err)

	lines := f.logLines(t)
	require.Len(t, lines, 3)

	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "add_node", lines[0]["op"])
	assert.Equal(t, "memory/closure", lines[0]["tree"])
	assert.Equal(t, float64(id), lines[0]["node_id"])
	assert.NotEmpty(t, lines[0]["op_id"])

	assert.Equal(t, "DEBUG", lines[1]["level"])
	assert.Equal(t, "get_path", lines[1]["op"])

	assert.Equal(t, "ERROR", lines[2]["level"])
	assert.Equal(t, ResultNotFound, lines[2]["result"])
	assert.Contains(t, lines[2]["error"], "not found")

	assert.NotEqual(t, lines[0]["op_id"], lines[1]["op_id"])
}

func TestRecordsSpans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tree.AddNode(ctx, "root", types.NoParent)
	require.NoError(t, err)
	_, err = f.tree.IsRoot(ctx, 77)
	require.Error(t, err)

	ended := f.spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "grove.add_node", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)
	assert.Equal(t, "grove.is_root", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)

	var opID string
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "grove.op_id" {
			opID = kv.Value.AsString()
		}
	}
	assert.Len(t, opID, 36)
}

func TestResultOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultOK},
		{types.ErrTitleNotFound, ResultNotFound},
		{types.ErrNotDetached, ResultInvariant},
		{types.ErrNotEmpty, ResultNotEmpty},
		{types.ErrClosed, ResultClosed},
		{types.ErrStorage, ResultStorage},
		{context.Canceled, ResultError},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, resultOf(tt.err))
		})
	}
}
