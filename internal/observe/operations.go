package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mesh-intelligence/grove/pkg/types"
)

func nodeAttr(id int64) attribute.KeyValue   { return attribute.Int64("node_id", id) }
func parentAttr(id int64) attribute.KeyValue { return attribute.Int64("parent_id", id) }
func countAttr(n int) attribute.KeyValue     { return attribute.Int("count", n) }

func (t *Tree) AddNode(ctx context.Context, title string, parent types.ParentRef) (int64, error) {
	ctx, c := t.begin(ctx, "add_node", true, attribute.String("title", title), attribute.String("parent", parent.String()))
	id, err := t.next.AddNode(ctx, title, parent)
	c.end(ctx, err, nodeAttr(id))
	t.afterMutation(ctx, err)
	return id, err
}

func (t *Tree) DetachNode(ctx context.Context, id int64) error {
	ctx, c := t.begin(ctx, "detach_node", true, nodeAttr(id))
	err := t.next.DetachNode(ctx, id)
	c.end(ctx, err)
	return err
}

func (t *Tree) AttachNode(ctx context.Context, id, parent int64) error {
	ctx, c := t.begin(ctx, "attach_node", true, nodeAttr(id), parentAttr(parent))
	err := t.next.AttachNode(ctx, id, parent)
	c.end(ctx, err)
	return err
}

func (t *Tree) MoveNode(ctx context.Context, id, parent int64) error {
	ctx, c := t.begin(ctx, "move_node", true, nodeAttr(id), parentAttr(parent))
	err := t.next.MoveNode(ctx, id, parent)
	c.end(ctx, err)
	return err
}

func (t *Tree) DeleteNode(ctx context.Context, id int64) error {
	ctx, c := t.begin(ctx, "delete_node", true, nodeAttr(id))
	err := t.next.DeleteNode(ctx, id)
	c.end(ctx, err)
	t.afterMutation(ctx, err)
	return err
}

func (t *Tree) IsRoot(ctx context.Context, id int64) (bool, error) {
	ctx, c := t.begin(ctx, "is_root", false, nodeAttr(id))
	ok, err := t.next.IsRoot(ctx, id)
	c.end(ctx, err, attribute.Bool("root", ok))
	return ok, err
}

func (t *Tree) GetRoots(ctx context.Context) ([]types.Node, error) {
	ctx, c := t.begin(ctx, "get_roots", false)
	roots, err := t.next.GetRoots(ctx)
	c.end(ctx, err, countAttr(len(roots)))
	return roots, err
}

func (t *Tree) GetDescendants(ctx context.Context, id int64) ([]types.NodeAtDepth, error) {
	ctx, c := t.begin(ctx, "get_descendants", false, nodeAttr(id))
	children, err := t.next.GetDescendants(ctx, id)
	c.end(ctx, err, countAttr(len(children)))
	return children, err
}

func (t *Tree) GetPath(ctx context.Context, id int64) ([]types.NodeAtDepth, error) {
	ctx, c := t.begin(ctx, "get_path", false, nodeAttr(id))
	path, err := t.next.GetPath(ctx, id)
	c.end(ctx, err, countAttr(len(path)))
	return path, err
}

func (t *Tree) NodeCount(ctx context.Context) (int, error) {
	ctx, c := t.begin(ctx, "node_count", false)
	n, err := t.next.NodeCount(ctx)
	c.end(ctx, err, countAttr(n))
	return n, err
}

func (t *Tree) GetNode(ctx context.Context, id int64) (types.Node, error) {
	ctx, c := t.begin(ctx, "get_node", false, nodeAttr(id))
	n, err := t.next.GetNode(ctx, id)
	c.end(ctx, err)
	return n, err
}

func (t *Tree) NodeExists(ctx context.Context, id int64) (bool, error) {
	ctx, c := t.begin(ctx, "node_exists", false, nodeAttr(id))
	ok, err := t.next.NodeExists(ctx, id)
	c.end(ctx, err, attribute.Bool("exists", ok))
	return ok, err
}

func (t *Tree) GetFirstID(ctx context.Context, title string) (int64, error) {
	ctx, c := t.begin(ctx, "get_first_id", false, attribute.String("title", title))
	id, err := t.next.GetFirstID(ctx, title)
	c.end(ctx, err, nodeAttr(id))
	return id, err
}

func (t *Tree) Snapshot(ctx context.Context) (types.Snapshot, error) {
	ctx, c := t.begin(ctx, "snapshot", false)
	snap, err := t.next.Snapshot(ctx)
	c.end(ctx, err, countAttr(len(snap.Nodes)), attribute.Int("paths", len(snap.Paths)))
	return snap, err
}

func (t *Tree) Restore(ctx context.Context, snap types.Snapshot) error {
	ctx, c := t.begin(ctx, "restore", true, countAttr(len(snap.Nodes)), attribute.Int("paths", len(snap.Paths)))
	err := t.next.Restore(ctx, snap)
	c.end(ctx, err)
	t.afterMutation(ctx, err)
	return err
}

func (t *Tree) Close() error {
	t.logger.Debug("closing tree")
	return t.next.Close()
}
