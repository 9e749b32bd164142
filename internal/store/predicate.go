package store

import (
	"context"
	"fmt"
)

// SetKind tells how a NodeSet selects identifiers.
type SetKind int

const (
	// SetAny matches every identifier.
	SetAny SetKind = iota
	// SetIDs matches an explicit list.
	SetIDs
	// SetSubtree matches every descendant of Node, Node included.
	SetSubtree
	// SetStrictAncestors matches every ancestor of Node, Node excluded.
	SetStrictAncestors
)

func (k SetKind) String() string {
	switch k {
	case SetAny:
		return "any"
	case SetIDs:
		return "ids"
	case SetSubtree:
		return "subtree"
	case SetStrictAncestors:
		return "strict-ancestors"
	default:
		return fmt.Sprintf("SetKind(%d)", int(k))
	}
}

// NodeSet selects node identifiers for one side of a Predicate. Subtree and
// StrictAncestors are defined by the closure rows themselves, which lets SQL
// backends turn them into sub-selects.
type NodeSet struct {
	Kind SetKind
	Node int64
	IDs  []int64
}

// Any matches every identifier.
func Any() NodeSet { return NodeSet{Kind: SetAny} }

// IDs matches exactly the given identifiers. An empty list matches nothing.
func IDs(ids ...int64) NodeSet { return NodeSet{Kind: SetIDs, IDs: ids} }

// Subtree matches id and everything reachable from it.
func Subtree(id int64) NodeSet { return NodeSet{Kind: SetSubtree, Node: id} }

// StrictAncestors matches every proper ancestor of id.
func StrictAncestors(id int64) NodeSet { return NodeSet{Kind: SetStrictAncestors, Node: id} }

func (s NodeSet) String() string {
	switch s.Kind {
	case SetIDs:
		return fmt.Sprintf("ids%v", s.IDs)
	case SetSubtree, SetStrictAncestors:
		return fmt.Sprintf("%s(%d)", s.Kind, s.Node)
	default:
		return s.Kind.String()
	}
}

// Predicate selects path entries by both endpoints and a minimum depth.
type Predicate struct {
	Ancestor   NodeSet
	Descendant NodeSet
	MinDepth   int
}

func (p Predicate) String() string {
	return fmt.Sprintf("ancestor in %s, descendant in %s, depth >= %d", p.Ancestor, p.Descendant, p.MinDepth)
}

// Resolved is a NodeSet evaluated to concrete identifiers.
type Resolved struct {
	all bool
	ids map[int64]struct{}
}

// Contains reports whether id belongs to the set.
func (r Resolved) Contains(id int64) bool {
	if r.all {
		return true
	}
	_, ok := r.ids[id]
	return ok
}

// All reports whether the set matches every identifier.
func (r Resolved) All() bool { return r.all }

// Members returns the identifiers of a finite set.
func (r Resolved) Members() []int64 {
	out := make([]int64, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	return out
}

// Resolve evaluates s against idx. Backends without a query planner call it
// before mutating so that symbolic sets see the pre-delete state.
func (s NodeSet) Resolve(ctx context.Context, idx Reachability) (Resolved, error) {
	switch s.Kind {
	case SetAny:
		return Resolved{all: true}, nil
	case SetIDs:
		ids := make(map[int64]struct{}, len(s.IDs))
		for _, id := range s.IDs {
			ids[id] = struct{}{}
		}
		return Resolved{ids: ids}, nil
	case SetSubtree:
		entries, err := idx.DescendantsOf(ctx, s.Node)
		if err != nil {
			return Resolved{}, err
		}
		ids := make(map[int64]struct{}, len(entries))
		for _, e := range entries {
			ids[e.Descendant] = struct{}{}
		}
		return Resolved{ids: ids}, nil
	case SetStrictAncestors:
		entries, err := idx.AncestorsOf(ctx, s.Node)
		if err != nil {
			return Resolved{}, err
		}
		ids := make(map[int64]struct{}, len(entries))
		for _, e := range entries {
			if e.Ancestor != s.Node {
				ids[e.Ancestor] = struct{}{}
			}
		}
		return Resolved{ids: ids}, nil
	default:
		return Resolved{}, fmt.Errorf("resolving node set: unknown kind %s", s.Kind)
	}
}

// Matcher is a compiled Predicate.
type Matcher struct {
	anc      Resolved
	desc     Resolved
	minDepth int
}

// Compile resolves both sides of p against idx.
func (p Predicate) Compile(ctx context.Context, idx Reachability) (Matcher, error) {
	anc, err := p.Ancestor.Resolve(ctx, idx)
	if err != nil {
		return Matcher{}, fmt.Errorf("resolving ancestor set: %w", err)
	}
	desc, err := p.Descendant.Resolve(ctx, idx)
	if err != nil {
		return Matcher{}, fmt.Errorf("resolving descendant set: %w", err)
	}
	return Matcher{anc: anc, desc: desc, minDepth: p.MinDepth}, nil
}

// Match reports whether the entry (ancestor, descendant, depth) is selected.
func (m Matcher) Match(ancestor, descendant int64, depth int) bool {
	return depth >= m.minDepth && m.anc.Contains(ancestor) && m.desc.Contains(descendant)
}

// Descendants returns the resolved descendant side, used by backends that
// index by descendant to avoid full scans.
func (m Matcher) Descendants() Resolved { return m.desc }

// Ancestors returns the resolved ancestor side.
func (m Matcher) Ancestors() Resolved { return m.anc }
