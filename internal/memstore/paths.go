package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

type closureIndex tx

func (c *closureIndex) tx() *tx { return (*tx)(c) }

func (c *closureIndex) AncestorsOf(_ context.Context, id int64) ([]types.PathEntry, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	row := t.s.byDesc[id]
	out := make([]types.PathEntry, 0, len(row))
	for _, anc := range sortedKeys(row) {
		out = append(out, types.PathEntry{Ancestor: anc, Descendant: id, Depth: row[anc]})
	}
	return out, nil
}

func (c *closureIndex) DescendantsOf(_ context.Context, id int64) ([]types.PathEntry, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	row := t.s.byAnc[id]
	out := make([]types.PathEntry, 0, len(row))
	for _, desc := range sortedKeys(row) {
		out = append(out, types.PathEntry{Ancestor: id, Descendant: desc, Depth: row[desc]})
	}
	return out, nil
}

// InsertBatch enforces the same constraints the SQL schema does: both
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
		if _, ok := t.s.nodes[e.Ancestor]; !ok {
			return fmt.Errorf("%w: inserting path: ancestor %d does not exist", types.ErrStorage, e.Ancestor)
		}
		if _, ok := t.s.nodes[e.Descendant]; !ok {
			return fmt.Errorf("%w: inserting path: descendant %d does not exist", types.ErrStorage, e.Descendant)
		}
		if _, ok := t.s.byAnc[e.Ancestor][e.Descendant]; ok {
			return fmt.Errorf("%w: inserting path %d->%d: pair already exists", types.ErrStorage, e.Ancestor, e.Descendant)
		}
		t.setPath(e.Ancestor, e.Descendant, e.Depth)
		t.undo = append(t.undo, func() { t.removePath(e.Ancestor, e.Descendant) })
	}
	return nil
}

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
		t.removePath(e.Ancestor, e.Descendant)
		t.undo = append(t.undo, func() { t.setPath(e.Ancestor, e.Descendant, e.Depth) })
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

// match walks the smallest index the predicate allows.
func (c *closureIndex) match(ctx context.Context, p store.Predicate) ([]types.PathEntry, error) {
	t := c.tx()
	m, err := p.Compile(ctx, c)
	if err != nil {
		return nil, err
	}
	var out []types.PathEntry
	switch {
	case !m.Descendants().All():
		for _, desc := range m.Descendants().Members() {
			for anc, depth := range t.s.byDesc[desc] {
				if m.Match(anc, desc, depth) {
					out = append(out, types.PathEntry{Ancestor: anc, Descendant: desc, Depth: depth})
				}
			}
		}
	case !m.Ancestors().All():
		for _, anc := range m.Ancestors().Members() {
			for desc, depth := range t.s.byAnc[anc] {
				if m.Match(anc, desc, depth) {
					out = append(out, types.PathEntry{Ancestor: anc, Descendant: desc, Depth: depth})
				}
			}
		}
	default:
		for anc, row := range t.s.byAnc {
			for desc, depth := range row {
				if m.Match(anc, desc, depth) {
					out = append(out, types.PathEntry{Ancestor: anc, Descendant: desc, Depth: depth})
				}
			}
		}
	}
	return out, nil
}

func (c *closureIndex) Roots(_ context.Context) ([]types.Node, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	var out []types.Node
	for id, title := range t.s.nodes {
		if !hasParent(t.s.byDesc[id]) {
			out = append(out, types.Node{ID: id, Title: title})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasParent(row map[int64]int) bool {
	for _, depth := range row {
		if depth > 0 {
			return true
		}
	}
	return false
}

func (c *closureIndex) Children(_ context.Context, id int64) ([]types.NodeAtDepth, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	var out []types.NodeAtDepth
	for _, desc := range sortedKeys(t.s.byAnc[id]) {
		if t.s.byAnc[id][desc] != 1 {
			continue
		}
		title, ok := t.s.nodes[desc]
		if !ok {
			continue
		}
		out = append(out, types.NodeAtDepth{Node: types.Node{ID: desc, Title: title}, Depth: 1})
	}
	return out, nil
}

func (c *closureIndex) Path(_ context.Context, id int64) ([]types.NodeAtDepth, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	var out []types.NodeAtDepth
	for anc, depth := range t.s.byDesc[id] {
		title, ok := t.s.nodes[anc]
		if !ok {
			continue
		}
		out = append(out, types.NodeAtDepth{Node: types.Node{ID: anc, Title: title}, Depth: depth})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Depth > out[j].Depth })
	return out, nil
}

func (c *closureIndex) All(_ context.Context) ([]types.PathEntry, error) {
	t := c.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	var out []types.PathEntry
	for _, anc := range sortedAncestors(t.s.byAnc) {
		row := t.s.byAnc[anc]
		for _, desc := range sortedKeys(row) {
			out = append(out, types.PathEntry{Ancestor: anc, Descendant: desc, Depth: row[desc]})
		}
	}
	return out, nil
}

func sortedAncestors(m map[int64]map[int64]int) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
