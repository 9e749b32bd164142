package sqlite

// Schema DDL. nodes owns identity; paths holds one row per reachable
// (ancestor, descendant) pair, the self pair included.
const (
	createNodes = `CREATE TABLE IF NOT EXISTS nodes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT
);`

	createPaths = `CREATE TABLE IF NOT EXISTS paths (
    ancestor INTEGER NOT NULL,
    descendant INTEGER NOT NULL,
    depth INTEGER NOT NULL CHECK (depth >= 0),
    PRIMARY KEY (ancestor, descendant),
    FOREIGN KEY (ancestor) REFERENCES nodes(id),
    FOREIGN KEY (descendant) REFERENCES nodes(id)
);`
)

// Index DDL for the descendant-side scans (ancestor paths, root detection)
// and title lookup.
const (
	idxPathsDescendant = `CREATE INDEX IF NOT EXISTS idx_paths_descendant ON paths(descendant, depth);`
	idxNodesTitle      = `CREATE INDEX IF NOT EXISTS idx_nodes_title ON nodes(title);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createNodes,
	createPaths,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxPathsDescendant,
	idxNodesTitle,
}
