package closure

import (
	"fmt"
	"sort"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// CheckInvariants verifies that snap is a valid forest in closure form:
//
//   - node ids are positive and unique
//   - every path row references existing nodes, has depth >= 0 and a unique
//     (ancestor, descendant) pair
//   - every node has its self row at depth 0, and only self rows have depth 0
//   - every node has at most one parent (depth-1 row)
//   - the ancestors of every node are exactly its parent's ancestors one
//     level deeper, plus itself; roots have only the self row
//
// The last rule also rules out cycles. Violations wrap
// types.ErrInvariantViolation.
func CheckInvariants(snap types.Snapshot) error {
	nodes := make(map[int64]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if n.ID <= 0 {
			return violation("node id %d is not positive", n.ID)
		}
		if nodes[n.ID] {
			return violation("node %d appears twice", n.ID)
		}
		nodes[n.ID] = true
	}

	// ancestors[d][a] = depth
	ancestors := make(map[int64]map[int64]int, len(nodes))
	parent := make(map[int64]int64)
	for _, p := range snap.Paths {
		switch {
		case !nodes[p.Ancestor] || !nodes[p.Descendant]:
			return violation("path %d->%d references a missing node", p.Ancestor, p.Descendant)
		case p.Depth < 0:
			return violation("path %d->%d has negative depth %d", p.Ancestor, p.Descendant, p.Depth)
		case (p.Ancestor == p.Descendant) != (p.Depth == 0):
			return violation("path %d->%d has depth %d", p.Ancestor, p.Descendant, p.Depth)
		}
		row := ancestors[p.Descendant]
		if row == nil {
			row = make(map[int64]int)
			ancestors[p.Descendant] = row
		}
		if _, dup := row[p.Ancestor]; dup {
			return violation("path %d->%d appears twice", p.Ancestor, p.Descendant)
		}
		row[p.Ancestor] = p.Depth
		if p.Depth == 1 {
			if prev, ok := parent[p.Descendant]; ok {
				return violation("node %d has two parents, %d and %d", p.Descendant, prev, p.Ancestor)
			}
			parent[p.Descendant] = p.Ancestor
		}
	}

	ids := make([]int64, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		row := ancestors[id]
		if _, ok := row[id]; !ok {
			return violation("node %d has no self row", id)
		}
		p, hasParent := parent[id]
		if !hasParent {
			if len(row) != 1 {
				return violation("root %d has ancestors but no parent", id)
			}
			continue
		}
		want := ancestors[p]
		if len(row) != len(want)+1 {
			return violation("node %d has %d ancestors, its parent %d has %d", id, len(row)-1, p, len(want))
		}
		for a, d := range want {
			if got, ok := row[a]; !ok || got != d+1 {
				return violation("node %d is missing ancestor %d at depth %d", id, a, d+1)
			}
		}
	}
	return nil
}

func violation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrInvariantViolation, fmt.Sprintf(format, args...))
}
