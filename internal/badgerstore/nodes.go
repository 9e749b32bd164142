package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/mesh-intelligence/grove/internal/store"
	"github.com/mesh-intelligence/grove/pkg/types"
)

var _ store.NodeStore = (*nodeStore)(nil)

type nodeStore tx

func (n *nodeStore) tx() *tx { return (*tx)(n) }

// Create issues the next id from a counter kept inside the transaction, so
// an aborted create never burns an id and a restore can advance it.
func (n *nodeStore) Create(_ context.Context, title string) (int64, error) {
	t := n.tx()
	if err := t.check(true); err != nil {
		return 0, err
	}
	last, err := t.lastID()
	if err != nil {
		return 0, err
	}
	id := last + 1
	if err := t.putNode(id, title); err != nil {
		return 0, err
	}
	if err := t.set(keyNextID, be64(id)); err != nil {
		return 0, err
	}
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
	exists, err := t.has(nodeKey(node.ID))
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: inserting node: id %d already exists", types.ErrStorage, node.ID)
	}
	if err := t.putNode(node.ID, node.Title); err != nil {
		return err
	}
	last, err := t.lastID()
	if err != nil {
		return err
	}
	if node.ID > last {
		return t.set(keyNextID, be64(node.ID))
	}
	return nil
}

func (n *nodeStore) Get(_ context.Context, id int64) (types.Node, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return types.Node{}, err
	}
	title, err := t.title(id)
	if err != nil {
		return types.Node{}, err
	}
	return types.Node{ID: id, Title: title}, nil
}

func (n *nodeStore) Exists(_ context.Context, id int64) (bool, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return false, err
	}
	return t.has(nodeKey(id))
}

// FindFirstIDByTitle returns the lowest id: index keys end in the
// big-endian id, so the first key under the title prefix wins.
func (n *nodeStore) FindFirstIDByTitle(_ context.Context, title string) (int64, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return 0, err
	}
	prefix := titlePrefix(title)
	var found int64
	err := t.scan(prefix, false, func(item *badger.Item) (bool, error) {
		found = readBE64(item.Key()[len(prefix):])
		return false, nil
	})
	if err != nil {
		return 0, err
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
	var count int
	err := t.scan(prefixNode, false, func(*badger.Item) (bool, error) {
		count++
		return true, nil
	})
	return count, err
}

func (n *nodeStore) Delete(_ context.Context, ids ...int64) (int64, error) {
	t := n.tx()
	if err := t.check(true); err != nil {
		return 0, err
	}
	var removed int64
	for _, id := range ids {
		title, err := t.title(id)
		if errors.Is(err, types.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if err := t.delete(nodeKey(id)); err != nil {
			return removed, err
		}
		if err := t.delete(titleKey(title, id)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (n *nodeStore) All(_ context.Context) ([]types.Node, error) {
	t := n.tx()
	if err := t.check(false); err != nil {
		return nil, err
	}
	var out []types.Node
	err := t.scan(prefixNode, true, func(item *badger.Item) (bool, error) {
		v, err := item.ValueCopy(nil)
		if err != nil {
			return false, storageErr("reading node", err)
		}
		out = append(out, types.Node{ID: readBE64(item.Key()[len(prefixNode):]), Title: string(v)})
		return true, nil
	})
	return out, err
}

func (t *tx) putNode(id int64, title string) error {
	if err := t.set(nodeKey(id), []byte(title)); err != nil {
		return err
	}
	return t.set(titleKey(title, id), nil)
}

func (t *tx) title(id int64) (string, error) {
	item, err := t.txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", types.ErrNodeNotFound
	}
	if err != nil {
		return "", storageErr("reading node", err)
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return "", storageErr("reading node", err)
	}
	return string(v), nil
}

func (t *tx) lastID() (int64, error) {
	item, err := t.txn.Get(keyNextID)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("reading id counter", err)
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return 0, storageErr("reading id counter", err)
	}
	return readBE64(v), nil
}

func (t *tx) has(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageErr("reading key", err)
	}
	return true, nil
}

func (t *tx) set(key, value []byte) error {
	if err := t.txn.Set(key, value); err != nil {
		return storageErr("writing key", err)
	}
	return nil
}

func (t *tx) delete(key []byte) error {
	if err := t.txn.Delete(key); err != nil {
		return storageErr("deleting key", err)
	}
	return nil
}

// scan visits every key under prefix in order until fn returns false. fn
// must not open another iterator; badger allows one per read-write txn.
func (t *tx) scan(prefix []byte, values bool, fn func(item *badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = values
	it := t.txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		more, err := fn(it.Item())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
