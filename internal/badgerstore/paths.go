package badgerstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

var _ store.ClosureIndex = (*closureIndex)(nil)

type closureIndex tx

func (c *closureIndex) tx() *tx { return (*tx)(c) }

func (c *closureIndex) AncestorsOf(_ context.Context, id int64) ([]types.PathEntry, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	return t.entries(descPrefix(id), true)
}

func (c *closureIndex) DescendantsOf(_ context.Context, id int64) ([]types.PathEntry, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	return t.entries(ancPrefix(id), false)
}

// InsertBatch enforces the constraints the SQL schema declares: both
// endpoints exist, depth is non-negative and the pair is new.
func (c *closureIndex) InsertBatch(_ context.Context, entries []types.PathEntry) error {
	t := c.tx()
	if err := t.check(true); err != nil {
		return err
	}
	for _, e := range entries {
		if e.Depth < 0 {
			return fmt.Errorf("%w: inserting path %d->%d: negative depth %d", types.ErrStorage, e.Ancestor, e.Descendant, e.Depth)
		}
		for _, id := range []int64{e.Ancestor, e.Descendant} {
			ok, err := t.has(nodeKey(id))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: inserting path %d->%d: node %d does not exist", types.ErrStorage, e.Ancestor, e.Descendant, id)
			}
		}
		dup, err := t.has(ancKey(e.Ancestor, e.Descendant))
		if err != nil {
			return err
		}
		if dup {
			return fmt.Errorf("%w: inserting path %d->%d: pair already exists", types.ErrStorage, e.Ancestor, e.Descendant)
		}
		depth := be64(int64(e.Depth))
		if err := t.set(ancKey(e.Ancestor, e.Descendant), depth); err != nil {
			return err
		}
		if err := t.set(descKey(e.Descendant, e.Ancestor), depth); err != nil {
			return err
		}
	}
	return nil
}

// DeleteWhere collects every match before touching a key, so symbolic sets
// are resolved against the pre-delete state.
func (c *closureIndex) DeleteWhere(ctx context.Context, p store.Predicate) (int64, error) {
	t := c.tx()
	if err := t.check(true); err != nil {
		return 0, err
	}
	matched, err := c.match(ctx, p)
	if err != nil {
		return 0, err
	}
	for _, e := range matched {
		if err := t.delete(ancKey(e.Ancestor, e.Descendant)); err != nil {
			return 0, err
		}
		if err := t.delete(descKey(e.Descendant, e.Ancestor)); err != nil {
			return 0, err
		}
	}
	return int64(len(matched)), nil
}

func (c *closureIndex) Count(ctx context.Context, p store.Predicate) (int64, error) {
	if err := c.tx().check(false); err != nil {
		return 0, err
	}
	matched, err := c.match(ctx, p)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// match scans the narrowest index the predicate allows.
func (c *closureIndex) match(ctx context.Context, p store.Predicate) ([]types.PathEntry, error) {
	t := c.tx()
	m, err := p.Compile(ctx, c)
	if err != nil {
		return nil, err
	}

	var candidates []types.PathEntry
	switch {
	case !m.Descendants().All():
		for _, id := range m.Descendants().Members() {
			entries, err := t.entries(descPrefix(id), true)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, entries...)
		}
	case !m.Ancestors().All():
		for _, id := range m.Ancestors().Members() {
			entries, err := t.entries(ancPrefix(id), false)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, entries...)
		}
	default:
		candidates, err = t.entries(prefixAnc, false)
		if err != nil {
			return nil, err
		}
	}

	var out []types.PathEntry
	for _, e := range candidates {
		if m.Match(e.Ancestor, e.Descendant, e.Depth) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *closureIndex) Roots(ctx context.Context) ([]types.Node, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	nonRoots := make(map[int64]bool)
	err := t.scan(prefixDesc, true, func(item *badger.Item) (bool, error) {
		depth, err := itemDepth(item)
		if err != nil {
			return false, err
		}
		if depth > 0 {
			desc, _ := pairFromKey(item.Key())
			nonRoots[desc] = true
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	all, err := (*nodeStore)(t).All(ctx)
	if err != nil {
		return nil, err
	}
	var roots []types.Node
	for _, n := range all {
		if !nonRoots[n.ID] {
			roots = append(roots, n)
		}
	}
	return roots, nil
}

func (c *closureIndex) Children(_ context.Context, id int64) ([]types.NodeAtDepth, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	entries, err := t.entries(ancPrefix(id), false)
	if err != nil {
		return nil, err
	}
	var out []types.NodeAtDepth
	for _, e := range entries {
		if e.Depth != 1 {
			continue
		}
		nd, err := t.atDepth(e.Descendant, e.Depth)
		if err != nil {
			return nil, err
		}
		out = append(out, nd)
	}
	return out, nil
}

func (c *closureIndex) Path(_ context.Context, id int64) ([]types.NodeAtDepth, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	entries, err := t.entries(descPrefix(id), true)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Depth > entries[j].Depth })
	out := make([]types.NodeAtDepth, 0, len(entries))
	for _, e := range entries {
		nd, err := t.atDepth(e.Ancestor, e.Depth)
		if err != nil {
			return nil, err
		}
		out = append(out, nd)
	}
	return out, nil
}

func (c *closureIndex) All(_ context.Context) ([]types.PathEntry, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	return t.entries(prefixAnc, false)
}

// entries reads path rows under prefix. byDesc says the key is a d: key,
// whose id order is (descendant, ancestor).
func (t *tx) entries(prefix []byte, byDesc bool) ([]types.PathEntry, error) {
	var out []types.PathEntry
	err := t.scan(prefix, true, func(item *badger.Item) (bool, error) {
		depth, err := itemDepth(item)
		if err != nil {
			return false, err
		}
		first, second := pairFromKey(item.Key())
		e := types.PathEntry{Ancestor: first, Descendant: second, Depth: depth}
		if byDesc {
			e.Ancestor, e.Descendant = second, first
		}
		out = append(out, e)
		return true, nil
	})
	return out, err
}

func (t *tx) atDepth(id int64, depth int) (types.NodeAtDepth, error) {
	title, err := t.title(id)
	if err != nil {
		return types.NodeAtDepth{}, fmt.Errorf("%w: path row references node %d: %w", types.ErrStorage, id, err)
	}
	return types.NodeAtDepth{Node: types.Node{ID: id, Title: title}, Depth: depth}, nil
}

func itemDepth(item *badger.Item) (int, error) {
	var depth int
	err := item.Value(func(v []byte) error {
		depth = int(readBE64(v))
		return nil
	})
	if err != nil {
		return 0, storageErr("reading depth", err)
	}
	return depth, nil
}
