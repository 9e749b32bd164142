package types

// Node is a stored tree node. ID is assigned by the store on creation and
// never reused; Title is a non-unique display label.
type Node struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// PathEntry records that Ancestor reaches Descendant over Depth parent edges.
// The pair (Ancestor, Descendant) is unique.
type PathEntry struct {
	Ancestor   int64 `json:"ancestor"`
	Descendant int64 `json:"descendant"`
	Depth      int   `json:"depth"`
}

// SelfRow returns the depth-0 entry every existing node carries.
func SelfRow(id int64) PathEntry {
	return PathEntry{Ancestor: id, Descendant: id, Depth: 0}
}

// NodeAtDepth is a query result: a node together with its distance from the
// node the query was issued for.
type NodeAtDepth struct {
	Node
	Depth int `json:"depth"`
}

// Snapshot is a point-in-time copy of every node and path entry in a tree,
// nodes ordered by id and paths by (ancestor, descendant).
type Snapshot struct {
	Nodes []Node      `json:"nodes"`
	Paths []PathEntry `json:"paths"`
}
