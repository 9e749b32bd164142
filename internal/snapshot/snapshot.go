// Package snapshot exports a tree to JSON Lines files and imports it back.
// A snapshot directory holds nodes.jsonl and paths.jsonl; paths are always
// in closure form, whatever representation produced them.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/grove/pkg/types"
)

// File names inside a snapshot directory.
const (
	NodesFile = "nodes.jsonl"
	PathsFile = "paths.jsonl"
)

// Stats describes one export or import.
type Stats struct {
	Nodes   int `json:"nodes"`
	Paths   int `json:"paths"`
	Skipped int `json:"skipped"`
}

// Export writes a point-in-time copy of tree into dir, creating dir if
// needed. Existing snapshot files are replaced atomically.
func Export(ctx context.Context, tree types.Tree, dir string) (Stats, error) {
	snap, err := tree.Snapshot(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("reading snapshot: %w", err)
	}
	if err := Write(dir, snap); err != nil {
		return Stats{}, err
	}
	return Stats{Nodes: len(snap.Nodes), Paths: len(snap.Paths)}, nil
}

// Write stores snap in dir.
func Write(dir string, snap types.Snapshot) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, NodesFile), snap.Nodes); err != nil {
		return fmt.Errorf("writing %s: %w", NodesFile, err)
	}
	if err := writeJSONL(filepath.Join(dir, PathsFile), snap.Paths); err != nil {
		return fmt.Errorf("writing %s: %w", PathsFile, err)
	}
	return nil
}

// Read loads a snapshot from dir. Malformed lines are skipped; the count is
// returned so callers can refuse a damaged snapshot.
func Read(dir string) (types.Snapshot, int, error) {
	nodes, skippedNodes, err := readJSONL[types.Node](filepath.Join(dir, NodesFile))
	if err != nil {
		return types.Snapshot{}, 0, err
	}
	paths, skippedPaths, err := readJSONL[types.PathEntry](filepath.Join(dir, PathsFile))
	if err != nil {
		return types.Snapshot{}, 0, err
	}
	skipped := skippedNodes + skippedPaths
	if skipped > 0 {
		slog.Warn("skipped malformed snapshot lines", "dir", dir, "nodes", skippedNodes, "paths", skippedPaths)
	}
	return types.Snapshot{Nodes: nodes, Paths: paths}, skipped, nil
}

// Import restores the snapshot in dir into an empty tree. The tree checks
// the closure invariants before writing anything.
func Import(ctx context.Context, tree types.Tree, dir string) (Stats, error) {
	snap, skipped, err := Read(dir)
	if err != nil {
		return Stats{}, err
	}
	if err := tree.Restore(ctx, snap); err != nil {
		return Stats{}, fmt.Errorf("restoring snapshot: %w", err)
	}
	return Stats{Nodes: len(snap.Nodes), Paths: len(snap.Paths), Skipped: skipped}, nil
}
