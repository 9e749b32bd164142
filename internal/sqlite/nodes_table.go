package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

var _ store.NodeStore = (*nodesTable)(nil)

type nodesTable struct {
	t *tx
}

func (n *nodesTable) Create(ctx context.Context, title string) (int64, error) {
	if err := n.t.check(true); err != nil {
		return 0, err
	}
	res, err := n.t.tx.ExecContext(ctx, `INSERT INTO nodes (title) VALUES (?)`, title)
	if err != nil {
		return 0, storageErr("inserting node", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("reading node id", err)
	}
	return id, nil
}

// Insert stores a node with an explicit id. AUTOINCREMENT moves the
// sqlite_sequence high-water mark past it.
func (n *nodesTable) Insert(ctx context.Context, node types.Node) error {
	if err := n.t.check(true); err != nil {
		return err
	}
	if node.ID <= 0 {
		return storageErr("inserting node", errors.New("id must be positive"))
	}
	if _, err := n.t.tx.ExecContext(ctx, `INSERT INTO nodes (id, title) VALUES (?, ?)`, node.ID, node.Title); err != nil {
		return storageErr("inserting node", err)
	}
	return nil
}

func (n *nodesTable) Get(ctx context.Context, id int64) (types.Node, error) {
	if err := n.t.check(false); err != nil {
		return types.Node{}, err
	}
	var title sql.NullString
	err := n.t.tx.QueryRowContext(ctx, `SELECT title FROM nodes WHERE id = ?`, id).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Node{}, types.ErrNodeNotFound
	}
	if err != nil {
		return types.Node{}, storageErr("reading node", err)
	}
	return types.Node{ID: id, Title: title.String}, nil
}

func (n *nodesTable) Exists(ctx context.Context, id int64) (bool, error) {
	if err := n.t.check(false); err != nil {
		return false, err
	}
	var one int
	err := n.t.tx.QueryRowContext(ctx, `SELECT 1 FROM nodes WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("checking node", err)
	}
	return true, nil
}

func (n *nodesTable) FindFirstIDByTitle(ctx context.Context, title string) (int64, error) {
	if err := n.t.check(false); err != nil {
		return 0, err
	}
	var id int64
	err := n.t.tx.QueryRowContext(ctx, `SELECT id FROM nodes WHERE title = ? ORDER BY id LIMIT 1`, title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, types.ErrTitleNotFound
	}
	if err != nil {
		return 0, storageErr("finding node by title", err)
	}
	return id, nil
}

func (n *nodesTable) Count(ctx context.Context) (int, error) {
	if err := n.t.check(false); err != nil {
		return 0, err
	}
	var count int
	if err := n.t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
		return 0, storageErr("counting nodes", err)
	}
	return count, nil
}

func (n *nodesTable) Delete(ctx context.Context, ids ...int64) (int64, error) {
	if err := n.t.check(true); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inList(ids)
	res, err := n.t.tx.ExecContext(ctx, `DELETE FROM nodes WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return 0, storageErr("deleting nodes", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("deleting nodes", err)
	}
	return count, nil
}

func (n *nodesTable) All(ctx context.Context) ([]types.Node, error) {
	if err := n.t.check(false); err != nil {
		return nil, err
	}
	rows, err := n.t.tx.QueryContext(ctx, `SELECT id, title FROM nodes ORDER BY id`)
	if err != nil {
		return nil, storageErr("listing nodes", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func scanNodes(rows *sql.Rows) ([]types.Node, error) {
	var out []types.Node
	for rows.Next() {
		var (
			id    int64
			title sql.NullString
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, storageErr("scanning node", err)
		}
		out = append(out, types.Node{ID: id, Title: title.String})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating nodes", err)
	}
	return out, nil
}

// inList returns "?, ?, ?" placeholders for ids and the matching args.
func inList(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
