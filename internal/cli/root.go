// Package cli implements the grove command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mesh-intelligence/grove/internal/paths"
	"github.com/mesh-intelligence/grove/pkg/grove"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir      string
	dataDir        string
	backend        string
	representation string
	logLevel       string
	jsonMode       bool
	byTitle        bool
	trace          bool
}

// app is the state of one CLI invocation, shared by all subcommands.
type app struct {
	flags     rootFlags
	configDir string
	config    *viper.Viper
	logger    *slog.Logger
	tracer    *sdktrace.TracerProvider
	tree      types.Tree
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "grove",
		Short: "A closure-table tree store",
		Long: "Grove stores a forest of titled nodes as a closure table and supports\n" +
			"adding, detaching, attaching, moving and deleting whole subtrees.",
		Version:           grove.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $(CWD)/.grove or the user config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.grove-db)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: sqlite, memory or badger")
	pf.StringVar(&a.flags.representation, "representation", "", "tree representation: closure or adjacency")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")
	pf.BoolVar(&a.flags.byTitle, "by-title", false, "resolve node and parent arguments as titles, even when numeric")
	pf.BoolVar(&a.flags.trace, "trace", false, "print OpenTelemetry spans to stderr")

	root.AddCommand(
		newInitCmd(a),
		newVersionCmd(),
		newAddCmd(a),
		newDetachCmd(a),
		newAttachCmd(a),
		newMoveCmd(a),
		newDeleteCmd(a),
		newRootsCmd(a),
		newChildrenCmd(a),
		newPathCmd(a),
		newShowCmd(a),
		newFindCmd(a),
		newCountCmd(a),
		newViewCmd(a),
		newTablesCmd(a),
		newCheckCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newServeCmd(a),
		newBenchCmd(a),
	)
	return root
}

// Execute runs the CLI with the process arguments and returns the exit code.
func Execute() int {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.teardown(context.Background()); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup loads configuration and installs logging and tracing.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemError{fmt.Errorf("resolve config dir: %w", err)}
	}
	a.configDir = dir

	a.config, err = loadConfig(dir)
	if err != nil {
		return err
	}

	level, err := a.logLevel()
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	if a.flags.trace {
		a.tracer, err = newTracerProvider(cmd.ErrOrStderr())
		if err != nil {
			return systemError{fmt.Errorf("init tracing: %w", err)}
		}
	}
	return nil
}

// teardown closes the tree and flushes spans. It runs after every
// invocation, including failed ones.
func (a *app) teardown(ctx context.Context) error {
	var errs []error
	if a.tree != nil {
		errs = append(errs, a.tree.Close())
		a.tree = nil
	}
	if a.tracer != nil {
		errs = append(errs, a.tracer.Shutdown(ctx))
		a.tracer = nil
	}
	return errors.Join(errs...)
}

func (a *app) logLevel() (slog.Level, error) {
	s := a.flags.logLevel
	if s == "" {
		s = a.config.GetString(cfgKeyLogLevel)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// treeConfig merges config.yaml, GROVE_ environment variables and flags.
func (a *app) treeConfig() (types.Config, error) {
	var cfg types.Config
	if err := a.config.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if a.flags.backend != "" {
		cfg.Backend = a.flags.backend
	}
	if a.flags.representation != "" {
		cfg.Representation = a.flags.representation
	}

	if cfg.Backend == types.BackendMemory {
		cfg.DataDir = ""
	} else {
		dir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
		if err != nil {
			return cfg, systemError{fmt.Errorf("resolve data dir: %w", err)}
		}
		cfg.DataDir = dir
	}
	return cfg, cfg.Validate()
}

// open opens the configured tree once per invocation.
func (a *app) open(ctx context.Context) (types.Tree, error) {
	if a.tree != nil {
		return a.tree, nil
	}
	cfg, err := a.treeConfig()
	if err != nil {
		return nil, err
	}
	opts := []grove.Option{grove.WithLogger(a.logger)}
	if a.tracer != nil {
		opts = append(opts, grove.WithTracerProvider(a.tracer))
	}
	tree, err := grove.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s tree: %w", cfg.Backend, err)
	}
	a.tree = tree
	return tree, nil
}

// systemError marks failures outside the user's control (exit code 2).
type systemError struct{ err error }

func (e systemError) Error() string { return e.err.Error() }
func (e systemError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var sys systemError
	if errors.As(err, &sys) || errors.Is(err, types.ErrStorage) {
		return exitSysError
	}
	return exitUserError
}
