package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grove/internal/bench"
	"github.com/mesh-intelligence/grove/pkg/grove"
)

func newBenchCmd(a *app) *cobra.Command {
	opts := bench.DefaultOptions
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Time subtree moves on a random in-memory tree",
		Long: "Generate a random tree on an in-memory instance of the configured backend and\n" +
			"representation, then time moving root children under each other and back.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := a.treeConfig()
			if err != nil {
				return err
			}
			cfg.DataDir = ""

			tree, err := grove.Open(ctx, cfg, grove.WithoutInstrumentation())
			if err != nil {
				return err
			}
			defer tree.Close()

			res, err := bench.Run(ctx, tree, opts)
			if err != nil {
				return err
			}
			return a.emit(cmd, res, func(w io.Writer) error {
				bench.Report(w, res)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.MaxDepth, "depth", opts.MaxDepth, "depth of the generated tree")
	f.IntVar(&opts.MaxBranch, "branch", opts.MaxBranch, "maximum children per generated node")
	f.IntVar(&opts.Moves, "moves", opts.Moves, "number of timed move pairs")
	f.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	return cmd
}
