package grove

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grove/internal/observe"
	"github.com/mesh-intelligence/grove/pkg/types"
)

func TestOpenEveryCombination(t *testing.T) {
	backends := []string{types.BackendMemory, types.BackendSQLite, types.BackendBadger}
	reps := []string{types.RepresentationClosure, types.RepresentationAdjacency}
	for _, backend := range backends {
		for _, rep := range reps {
			t.Run(backend+"/"+rep, func(t *testing.T) {
				ctx := context.Background()
				tree, err := Open(ctx, types.Config{Backend: backend, Representation: rep}, WithoutInstrumentation())
				require.NoError(t, err)
				defer tree.Close()

				a, err := tree.AddNode(ctx, "A", types.NoParent)
				require.NoError(t, err)
				b, err := tree.AddNode(ctx, "B", types.ParentTitle("A"))
				require.NoError(t, err)

				path, err := tree.GetPath(ctx, b)
				require.NoError(t, err)
				require.Len(t, path, 2)
				assert.Equal(t, a, path[0].ID)
				assert.Equal(t, b, path[1].ID)
			})
		}
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, types.Config{})
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
	_, err = Open(ctx, types.Config{Backend: "postgres"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
	_, err = Open(ctx, types.Config{Backend: types.BackendMemory, Representation: "nested-sets"})
	assert.ErrorIs(t, err, types.ErrRepresentationUnknown)
}

func TestOpenPersists(t *testing.T) {
	for _, backend := range []string{types.BackendSQLite, types.BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := types.Config{Backend: backend, DataDir: t.TempDir()}

			tree, err := Open(ctx, cfg, WithoutInstrumentation())
			require.NoError(t, err)
			root, err := tree.AddNode(ctx, "root", types.NoParent)
			require.NoError(t, err)
			_, err = tree.AddNode(ctx, "leaf", types.ParentID(root))
			require.NoError(t, err)
			require.NoError(t, tree.Close())

			tree, err = Open(ctx, cfg, WithoutInstrumentation())
			require.NoError(t, err)
			defer tree.Close()
			n, err := tree.NodeCount(ctx)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestOpenBadgerUsesSubdirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	tree, err := Open(ctx, types.Config{Backend: types.BackendBadger, DataDir: dir}, WithoutInstrumentation())
	require.NoError(t, err)
	defer tree.Close()

	info, err := os.Stat(filepath.Join(dir, BadgerDirName))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenInstruments(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	tree, err := Open(ctx, types.Config{Backend: types.BackendMemory}, WithRegisterer(reg))
	require.NoError(t, err)
	defer tree.Close()

	w, ok := tree.(*observe.Tree)
	require.True(t, ok, fmt.Sprintf("got %T", tree))
	assert.NotNil(t, w.Unwrap())

	_, err = tree.AddNode(ctx, "A", types.NoParent)
	require.NoError(t, err)
	count, err := testutil.GatherAndCount(reg, "grove_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
