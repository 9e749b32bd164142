package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// emit writes v as indented JSON in --json mode and calls text otherwise.
func (a *app) emit(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(out)
}

// resolve opens the tree and resolves arg to a node id.
func (a *app) resolve(ctx context.Context, arg string) (types.Tree, int64, error) {
	tree, err := a.open(ctx)
	if err != nil {
		return nil, 0, err
	}
	id, err := a.nodeRef(ctx, tree, arg)
	return tree, id, err
}

// nodeRef resolves a command argument to a node id. Integers are ids and
// anything else is looked up as a title; --by-title looks up every argument,
// which is the only way to name a node whose title is all digits.
func (a *app) nodeRef(ctx context.Context, tree types.Tree, arg string) (int64, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && !a.flags.byTitle {
		if id <= 0 {
			return 0, fmt.Errorf("invalid node id %d", id)
		}
		return id, nil
	}
	id, err := tree.GetFirstID(ctx, arg)
	if err != nil {
		return 0, fmt.Errorf("resolve %q: %w", arg, err)
	}
	return id, nil
}

// parentRef converts the --parent flag value to a ParentRef, following the
// same --by-title rule as nodeRef.
func (a *app) parentRef(arg string) types.ParentRef {
	if arg == "" {
		return types.NoParent
	}
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil && !a.flags.byTitle {
		return types.ParentID(id)
	}
	return types.ParentTitle(arg)
}

func nodeLine(w io.Writer, n types.Node) {
	fmt.Fprintf(w, "%d\t%s\n", n.ID, n.Title)
}
