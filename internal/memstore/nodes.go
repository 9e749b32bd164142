package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/mesh-intelligence/grove/pkg/types"
)

type nodeStore tx

func (n *nodeStore) tx() *tx { return (*tx)(n) }

func (n *nodeStore) Create(_ context.Context, title string) (int64, error) {
	t := n.tx()
	if err := t.check(true); err != nil {
		return 0, err
	}
	prev := t.s.nextID
	id := prev + 1
	t.s.nextID = id
	t.s.nodes[id] = title
	t.undo = append(t.undo, func() {
		delete(t.s.nodes, id)
		t.s.nextID = prev
	})
	return id, nil
}

func (n *nodeStore) Insert(_ context.Context, node types.Node) error {
	t := n.tx()
	if err := t.check(true); err != nil {
		return err
	}
	if node.ID <= 0 {
		return fmt.Errorf("%w: inserting node: invalid id %d", types.ErrStorage, node.ID)
	}
	if _, ok := t.s.nodes[node.ID]; ok {
		return fmt.Errorf("%w: inserting node: id %d already exists", types.ErrStorage, node.ID)
	}
	prev := t.s.nextID
	t.s.nodes[node.ID] = node.Title
	if node.ID > prev {
		t.s.nextID = node.ID
	}
	t.undo = append(t.undo, func() {
		delete(t.s.nodes, node.ID)
		t.s.nextID = prev
	})
	return nil
}

func (n *nodeStore) Get(_ context.Context, id int64) (types.Node, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return types.Node{}, err
	}
	title, ok := t.s.nodes[id]
	if !ok {
		return types.Node{}, types.ErrNodeNotFound
	}
	return types.Node{ID: id, Title: title}, nil
}

func (n *nodeStore) Exists(_ context.Context, id int64) (bool, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return false, err
	}
	_, ok := t.s.nodes[id]
	return ok, nil
}

// FindFirstIDByTitle picks the lowest matching id.
func (n *nodeStore) FindFirstIDByTitle(_ context.Context, title string) (int64, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return 0, err
	}
	var found int64
	for id, tt := range t.s.nodes {
		if tt == title && (found == 0 || id < found) {
			found = id
		}
	}
	if found == 0 {
		return 0, types.ErrTitleNotFound
	}
	return found, nil
}

func (n *nodeStore) Count(_ context.Context) (int, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return 0, err
	}
	return len(t.s.nodes), nil
}

func (n *nodeStore) Delete(_ context.Context, ids ...int64) (int64, error) {
	t := n.tx()
	if err := t.check(true); err != nil {
		return 0, err
	}
	var removed int64
	for _, id := range ids {
		title, ok := t.s.nodes[id]
		if !ok {
			continue
		}
		delete(t.s.nodes, id)
		removed++
		t.undo = append(t.undo, func() { t.s.nodes[id] = title })
	}
	return removed, nil
}

func (n *nodeStore) All(_ context.Context) ([]types.Node, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	out := make([]types.Node, 0, len(t.s.nodes))
	for id, title := range t.s.nodes {
		out = append(out, types.Node{ID: id, Title: title})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
