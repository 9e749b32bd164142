// Package grove opens closure-table trees. It is the public entry point:
// pick a storage backend and a representation in types.Config and receive
// an instrumented types.Tree.
//
// Example:
//
//	tree, err := grove.Open(ctx, types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".grove-db",
//	})
//	if err != nil { ... }
//	defer tree.Close()
package grove

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/mesh-intelligence/grove/internal/adjacency"
	"github.com/mesh-intelligence/grove/internal/badgerstore"
	"github.com/mesh-intelligence/grove/internal/closure"
	"github.com/mesh-intelligence/grove/internal/memstore"
	"github.com/mesh-intelligence/grove/internal/observe"
	"github.com/mesh-intelligence/grove/internal/sqlite"
	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// Version is the grove release.
const Version = "0.3.0"

// BadgerDirName is the subdirectory of DataDir holding badger files.
const BadgerDirName = "badger"

type options struct {
	logger     *slog.Logger
	registerer prometheus.Registerer
	tracer     trace.TracerProvider
	raw        bool
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the logger used for operation logs. Defaults to
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRegisterer registers operation metrics with reg instead of the
// default Prometheus registry. Each registerer can back one open tree.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithTracerProvider sets the provider for operation spans. Defaults to the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithoutInstrumentation returns the bare tree with no logging, metrics or
// spans.
func WithoutInstrumentation() Option {
	return func(o *options) { o.raw = true }
}

// Open validates cfg, opens its backend and returns the selected tree
// representation over it.
func Open(ctx context.Context, cfg types.Config, opts ...Option) (types.Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := openStore(cfg, o.logger)
	if err != nil {
		return nil, err
	}

	var tree types.Tree
	switch cfg.GetRepresentation() {
	case types.RepresentationAdjacency:
		tree = adjacency.New(s)
	default:
		tree = closure.New(s)
	}

	n, err := tree.NodeCount(ctx)
	if err != nil {
		tree.Close()
		return nil, fmt.Errorf("opening %s tree: %w", cfg.Backend, err)
	}
	name := cfg.Backend + "/" + cfg.GetRepresentation()
	o.logger.Debug("tree opened", "tree", name, "data_dir", cfg.DataDir, "nodes", n)

	if o.raw {
		return tree, nil
	}
	wrapOpts := []observe.Option{observe.WithLogger(o.logger)}
	if o.registerer != nil {
		wrapOpts = append(wrapOpts, observe.WithMetrics(observe.NewMetrics(o.registerer)))
	}
	if o.tracer != nil {
		wrapOpts = append(wrapOpts, observe.WithTracerProvider(o.tracer))
	}
	return observe.Wrap(tree, name, wrapOpts...), nil
}

func openStore(cfg types.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case types.BackendMemory:
		return memstore.New(), nil
	case types.BackendBadger:
		dir := ""
		if cfg.DataDir != "" {
			dir = filepath.Join(cfg.DataDir, BadgerDirName)
		}
		return badgerstore.Open(dir, badgerstore.Options{Logger: logger})
	case types.BackendSQLite:
		b := sqlite.NewBackend()
		if err := b.Attach(cfg); err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, types.ErrBackendUnknown
}
