// Package bench times MoveNode on randomly generated trees.
package bench

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// Options controls tree generation and the number of timed moves.
type Options struct {
	// MaxDepth is the depth of the deepest generated level below the root.
	MaxDepth int
	// MaxBranch caps the children generated per node; each node gets
	// between 2 and MaxBranch.
	MaxBranch int
	// Moves is the number of move/move-back pairs to time.
	Moves int
	// Seed makes generation and node selection reproducible.
	Seed uint64
}

// DefaultOptions matches a tree of a few thousand nodes.
var DefaultOptions = Options{MaxDepth: 5, MaxBranch: 5, Moves: 10, Seed: 1}

// Move is one timed relocation of a root child under a sibling and back.
type Move struct {
	Node    int64
	Parent  int64
	Subtree int
	There   time.Duration
	Back    time.Duration
}

// Result summarizes a run.
type Result struct {
	Nodes    int
	Generate time.Duration
	Moves    []Move
}

// Total returns the summed duration of all timed moves.
func (r Result) Total() time.Duration {
	var d time.Duration
	for _, m := range r.Moves {
		d += m.There + m.Back
	}
	return d
}

// Run generates a random tree under a fresh root in tree and times
// opts.Moves relocations between children of that root.
func Run(ctx context.Context, tree types.Tree, opts Options) (Result, error) {
	if opts.MaxDepth < 1 || opts.MaxBranch < 2 {
		return Result{}, fmt.Errorf("bench needs depth >= 1 and branch >= 2, got %d and %d", opts.MaxDepth, opts.MaxBranch)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	var res Result
	start := time.Now()
	root, err := tree.AddNode(ctx, "root", types.NoParent)
	if err != nil {
		return res, fmt.Errorf("adding bench root: %w", err)
	}
	if err := generate(ctx, tree, rng, root, 0, opts); err != nil {
		return res, err
	}
	res.Generate = time.Since(start)
	if res.Nodes, err = tree.NodeCount(ctx); err != nil {
		return res, fmt.Errorf("counting nodes: %w", err)
	}

	children, err := tree.GetDescendants(ctx, root)
	if err != nil {
		return res, fmt.Errorf("listing root children: %w", err)
	}
	// every move is undone, so a child's subtree size never changes
	sizes := make(map[int64]int, len(children))
	for i := 0; i < opts.Moves; i++ {
		node := children[rng.IntN(len(children))].ID
		parent := node
		for parent == node {
			parent = children[rng.IntN(len(children))].ID
		}
		if _, ok := sizes[node]; !ok {
			if sizes[node], err = subtreeSize(ctx, tree, node); err != nil {
				return res, err
			}
		}
		m, err := timedMove(ctx, tree, root, node, parent, sizes[node])
		if err != nil {
			return res, err
		}
		res.Moves = append(res.Moves, m)
	}
	return res, nil
}

func generate(ctx context.Context, tree types.Tree, rng *rand.Rand, parent int64, depth int, opts Options) error {
	if depth >= opts.MaxDepth {
		return nil
	}
	n := 2 + rng.IntN(opts.MaxBranch-1)
	for i := 0; i < n; i++ {
		id, err := tree.AddNode(ctx, "x", types.ParentID(parent))
		if err != nil {
			return fmt.Errorf("generating tree: %w", err)
		}
		if err := generate(ctx, tree, rng, id, depth+1, opts); err != nil {
			return err
		}
	}
	return nil
}

// subtreeSize counts id and everything below it.
func subtreeSize(ctx context.Context, tree types.Tree, id int64) (int, error) {
	n := 0
	queue := []int64{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		n++
		children, err := tree.GetDescendants(ctx, next)
		if err != nil {
			return 0, fmt.Errorf("sizing subtree of %d: %w", id, err)
		}
		for _, c := range children {
			queue = append(queue, c.ID)
		}
	}
	return n, nil
}

func timedMove(ctx context.Context, tree types.Tree, root, node, parent int64, size int) (Move, error) {
	m := Move{Node: node, Parent: parent, Subtree: size}

	start := time.Now()
	if err := tree.MoveNode(ctx, node, parent); err != nil {
		return m, fmt.Errorf("moving %d under %d: %w", node, parent, err)
	}
	m.There = time.Since(start)

	start = time.Now()
	if err := tree.MoveNode(ctx, node, root); err != nil {
		return m, fmt.Errorf("moving %d back under %d: %w", node, root, err)
	}
	m.Back = time.Since(start)
	return m, nil
}

// Report writes a human-readable summary of res to w.
func Report(w io.Writer, res Result) {
	fmt.Fprintf(w, "Stress test for moving nodes. Tree size: %s nodes (generated in %s)\n",
		humanize.Comma(int64(res.Nodes)), res.Generate.Round(time.Microsecond))
	for _, m := range res.Moves {
		fmt.Fprintf(w, "Moved %d (%s nodes) under %d:\n\t-> %s\n\t<- %s\n",
			m.Node, humanize.Comma(int64(m.Subtree)), m.Parent, m.There, m.Back)
	}
	if n := len(res.Moves); n > 0 {
		avg := res.Total() / time.Duration(2*n)
		fmt.Fprintf(w, "%s moves, %s per move, %s/s\n",
			humanize.Comma(int64(2*n)), avg, humanize.CommafWithDigits(float64(time.Second)/float64(max(avg, 1)), 1))
	}
}
