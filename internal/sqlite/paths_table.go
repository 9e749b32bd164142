package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

var _ store.ClosureIndex = (*pathsTable)(nil)

type pathsTable struct {
	t *tx
}

func (p *pathsTable) AncestorsOf(ctx context.Context, id int64) ([]types.PathEntry, error) {
	return p.entries(ctx, `SELECT ancestor, descendant, depth FROM paths WHERE descendant = ? ORDER BY ancestor`, id)
}

func (p *pathsTable) DescendantsOf(ctx context.Context, id int64) ([]types.PathEntry, error) {
	return p.entries(ctx, `SELECT ancestor, descendant, depth FROM paths WHERE ancestor = ? ORDER BY descendant`, id)
}

// InsertBatch relies on the schema for the primary-key, CHECK and foreign-key
// constraints; any violation comes back as ErrStorage.
func (p *pathsTable) InsertBatch(ctx context.Context, entries []types.PathEntry) error {
	if err := p.t.check(true); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	stmt, err := p.t.tx.PrepareContext(ctx, `INSERT INTO paths (ancestor, descendant, depth) VALUES (?, ?, ?)`)
	if err != nil {
		return storageErr("preparing path insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.Ancestor, e.Descendant, e.Depth); err != nil {
			return storageErr(fmt.Sprintf("inserting path %d->%d", e.Ancestor, e.Descendant), err)
		}
	}
	return nil
}

// DeleteWhere issues a single DELETE. SQLite evaluates the sub-selects
// before removing rows, so symbolic sets see the pre-delete state.
func (p *pathsTable) DeleteWhere(ctx context.Context, pred store.Predicate) (int64, error) {
	if err := p.t.check(true); err != nil {
		return 0, err
	}
	where, args, err := whereClause(pred)
	if err != nil {
		return 0, err
	}
	res, err := p.t.tx.ExecContext(ctx, `DELETE FROM paths WHERE `+where, args...)
	if err != nil {
		return 0, storageErr("deleting paths", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("deleting paths", err)
	}
	return n, nil
}

func (p *pathsTable) Count(ctx context.Context, pred store.Predicate) (int64, error) {
	if err := p.t.check(false); err != nil {
		return 0, err
	}
	where, args, err := whereClause(pred)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := p.t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM paths WHERE `+where, args...).Scan(&n); err != nil {
		return 0, storageErr("counting paths", err)
	}
	return n, nil
}

func (p *pathsTable) Roots(ctx context.Context) ([]types.Node, error) {
	if err := p.t.check(false); err != nil {
		return nil, err
	}
	rows, err := p.t.tx.QueryContext(ctx, `SELECT id, title FROM nodes
WHERE id NOT IN (SELECT descendant FROM paths WHERE depth > 0)
ORDER BY id`)
	if err != nil {
		return nil, storageErr("listing roots", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (p *pathsTable) Children(ctx context.Context, id int64) ([]types.NodeAtDepth, error) {
	return p.joined(ctx, `SELECT n.id, n.title, p.depth FROM paths p
JOIN nodes n ON n.id = p.descendant
WHERE p.ancestor = ? AND p.depth = ?
ORDER BY n.id`, id, 1)
}

func (p *pathsTable) Path(ctx context.Context, id int64) ([]types.NodeAtDepth, error) {
	return p.joined(ctx, `SELECT n.id, n.title, p.depth FROM paths p
JOIN nodes n ON n.id = p.ancestor
WHERE p.descendant = ?
ORDER BY p.depth DESC`, id)
}

func (p *pathsTable) All(ctx context.Context) ([]types.PathEntry, error) {
	return p.entries(ctx, `SELECT ancestor, descendant, depth FROM paths ORDER BY ancestor, descendant`)
}

func (p *pathsTable) entries(ctx context.Context, query string, args ...any) ([]types.PathEntry, error) {
	if err := p.t.check(false); err != nil {
		return nil, err
	}
	rows, err := p.t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("querying paths", err)
	}
	defer rows.Close()

	var out []types.PathEntry
	for rows.Next() {
		var e types.PathEntry
		if err := rows.Scan(&e.Ancestor, &e.Descendant, &e.Depth); err != nil {
			return nil, storageErr("scanning path", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating paths", err)
	}
	return out, nil
}

func (p *pathsTable) joined(ctx context.Context, query string, args ...any) ([]types.NodeAtDepth, error) {
	if err := p.t.check(false); err != nil {
		return nil, err
	}
	rows, err := p.t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("querying paths", err)
	}
	defer rows.Close()

	var out []types.NodeAtDepth
	for rows.Next() {
		var (
			nd    types.NodeAtDepth
			title sql.NullString
		)
		if err := rows.Scan(&nd.ID, &title, &nd.Depth); err != nil {
			return nil, storageErr("scanning path", err)
		}
		nd.Title = title.String
		out = append(out, nd)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating paths", err)
	}
	return out, nil
}

// whereClause translates a Predicate into a WHERE expression over paths.
func whereClause(pred store.Predicate) (string, []any, error) {
	anc, ancArgs, err := setClause("ancestor", pred.Ancestor)
	if err != nil {
		return "", nil, err
	}
	desc, descArgs, err := setClause("descendant", pred.Descendant)
	if err != nil {
		return "", nil, err
	}
	args := append(ancArgs, descArgs...)
	args = append(args, pred.MinDepth)
	return anc + " AND " + desc + " AND depth >= ?", args, nil
}

func setClause(col string, s store.NodeSet) (string, []any, error) {
	switch s.Kind {
	case store.SetAny:
		return "1", nil, nil
	case store.SetIDs:
		if len(s.IDs) == 0 {
			return "0", nil, nil
		}
		in, args := inList(s.IDs)
		return col + " IN (" + in + ")", args, nil
	case store.SetSubtree:
		return col + " IN (SELECT descendant FROM paths WHERE ancestor = ?)", []any{s.Node}, nil
	case store.SetStrictAncestors:
		return col + " IN (SELECT ancestor FROM paths WHERE descendant = ? AND ancestor != descendant)", []any{s.Node}, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported node set %s", types.ErrStorage, s)
	}
}
