package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/grove/internal/bench"
	"github.com/mesh-intelligence/grove/internal/sqlite"
	"github.com/mesh-intelligence/grove/pkg/grove"
	"github.com/mesh-intelligence/grove/pkg/types"
)

// buildScenario adds A with children B, C, F; D and E under B; G under F.
func buildScenario(env *testEnv) {
	env.mustRun("add", "A")
	for _, n := range [][2]string{{"B", "A"}, {"C", "A"}, {"F", "A"}, {"D", "B"}, {"E", "B"}, {"G", "F"}} {
		env.mustRun("add", n[0], "--parent", n[1])
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	res := env.mustRun("version")
	assert.Equal(t, "grove v"+grove.Version+"\nmodule: "+modulePath+"\n", res.Stdout)

	_, err := os.Stat(env.ConfigDir)
	assert.True(t, os.IsNotExist(err), "version must not touch the config dir")
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)

	res := env.mustRun("init")
	assert.Contains(t, res.Stdout, "Wrote ")
	assert.Contains(t, res.Stdout, "Grove initialized (sqlite/closure)")

	data, err := os.ReadFile(filepath.Join(env.ConfigDir, configFileExt))
	require.NoError(t, err)
	assert.Contains(t, string(data), "backend: sqlite")
	assert.Contains(t, string(data), "representation: closure")
	assert.FileExists(t, filepath.Join(env.DataDir, sqlite.DBFileName))

	res = env.mustRun("init")
	assert.NotContains(t, res.Stdout, "Wrote ")
}

func TestScenario(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("init")
	buildScenario(env)

	assert.Equal(t, "A -> F -> G\n", env.mustRun("path", "G").Stdout)

	env.mustRun("move", "B", "C")
	assert.Equal(t, "3\tC\n4\tF\n", env.mustRun("children", "A").Stdout)
	assert.Equal(t, "2\tB\n", env.mustRun("children", "C").Stdout)
	assert.Equal(t, "A -> C -> B -> D\n", env.mustRun("path", "D").Stdout)
	assert.Equal(t, "ok: 7 nodes, 19 paths\n", env.mustRun("check").Stdout)

	view := env.mustRun("view").Stdout
	assert.Contains(t, view, " .       (3, C)\n .       .       (2, B)\n")

	env.mustRun("detach", "B")
	assert.Equal(t, "1\tA\n2\tB\n", env.mustRun("roots").Stdout)
	env.mustRun("attach", "B", "A")
	assert.Equal(t, "1\tA\n", env.mustRun("roots").Stdout)

	env.mustRun("delete", "B")
	assert.Equal(t, "4\n", env.mustRun("count").Stdout)

	show := env.mustRun("show", "7").Stdout
	assert.Contains(t, show, "title:    G\n")
	assert.Contains(t, show, "root:     false\n")
	assert.Contains(t, show, "path:     A -> F -> G\n")
}

func TestJSONOutput(t *testing.T) {
	env := newTestEnv(t)
	buildScenario(env)

	node := parseJSON[types.Node](t, env.mustRun("--json", "find", "F").Stdout)
	assert.Equal(t, types.Node{ID: 4, Title: "F"}, node)

	roots := parseJSON[[]types.Node](t, env.mustRun("--json", "roots").Stdout)
	assert.Equal(t, []types.Node{{ID: 1, Title: "A"}}, roots)

	path := parseJSON[[]types.NodeAtDepth](t, env.mustRun("--json", "path", "G").Stdout)
	require.Len(t, path, 3)
	assert.Equal(t, "A", path[0].Title)
	assert.Equal(t, 2, path[0].Depth)

	detail := parseJSON[nodeDetail](t, env.mustRun("--json", "show", "B").Stdout)
	assert.False(t, detail.Root)
	assert.Len(t, detail.Children, 2)

	leaf := parseJSON[[]types.NodeAtDepth](t, env.mustRun("--json", "children", "G").Stdout)
	assert.Empty(t, leaf)
}

func TestExitCodes(t *testing.T) {
	env := newTestEnv(t)
	buildScenario(env)

	tests := []struct {
		name   string
		args   []string
		code   int
		stderr string
	}{
		{"missing node", []string{"path", "99"}, exitUserError, "not found"},
		{"missing title", []string{"find", "nope"}, exitUserError, "title not found"},
		{"missing parent", []string{"add", "X", "--parent", "99"}, exitUserError, "parent node not found"},
		{"cycle", []string{"move", "A", "D"}, exitUserError, "inside the subtree"},
		{"not detached", []string{"attach", "B", "C"}, exitUserError, "not the root of a detached subtree"},
		{"unknown command", []string{"prune"}, exitUserError, "unknown command"},
		{"unknown backend", []string{"--backend", "postgres", "count"}, exitUserError, "unknown backend"},
		{"bad log level", []string{"--log-level", "loud", "count"}, exitUserError, "invalid log level"},
		{"missing argument", []string{"move", "A"}, exitUserError, "accepts 2 arg(s)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := env.run(tt.args...)
			assert.Equal(t, tt.code, res.ExitCode)
			assert.Contains(t, res.Stderr, tt.stderr)
		})
	}

	// failed commands leave the tree untouched
	assert.Equal(t, "ok: 7 nodes, 16 paths\n", env.mustRun("check").Stdout)
}

func TestExportImport(t *testing.T) {
	src := newTestEnv(t)
	buildScenario(src)
	dir := filepath.Join(t.TempDir(), "snap")

	res := src.mustRun("export", dir)
	assert.Equal(t, "Exported 7 nodes, 16 paths to "+dir+"\n", res.Stdout)

	dst := newTestEnv(t)
	res = dst.mustRun("--representation", "adjacency", "import", dir)
	assert.Contains(t, res.Stdout, "Imported 7 nodes, 16 paths")
	assert.Equal(t, "A -> B -> E\n", dst.mustRun("--representation", "adjacency", "path", "E").Stdout)

	res = dst.run("import", dir)
	assert.Equal(t, exitUserError, res.ExitCode)
	assert.Contains(t, res.Stderr, "not empty")
}

func TestRepresentationFromEnvironment(t *testing.T) {
	t.Setenv("GROVE_REPRESENTATION", types.RepresentationAdjacency)
	env := newTestEnv(t)

	res := env.mustRun("init")
	assert.Contains(t, res.Stdout, "(sqlite/adjacency)")
	buildScenario(env)
	assert.Equal(t, "A -> F -> G\n", env.mustRun("path", "G").Stdout)
}

func TestBadgerBackend(t *testing.T) {
	env := newTestEnv(t)
	buildScenario(env)

	env.mustRun("--backend", "badger", "add", "root")
	env.mustRun("--backend", "badger", "add", "leaf", "--parent", "root")
	assert.Equal(t, "root -> leaf\n", env.mustRun("--backend", "badger", "path", "leaf").Stdout)
	assert.DirExists(t, filepath.Join(env.DataDir, grove.BadgerDirName))
	assert.Equal(t, "7\n", env.mustRun("count").Stdout)
}

func TestBench(t *testing.T) {
	env := newTestEnv(t)
	res := env.mustRun("--json", "bench", "--depth", "2", "--branch", "2", "--moves", "1")
	out := parseJSON[bench.Result](t, res.Stdout)
	assert.Equal(t, 7, out.Nodes)
	assert.Len(t, out.Moves, 1)

	_, err := os.Stat(env.DataDir)
	assert.True(t, os.IsNotExist(err), "bench must not create the data dir")
}

func TestNumericTitlesByTitle(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("add", "root")
	env.mustRun("add", "42", "--parent", "root")
	env.mustRun("add", "7")

	// without --by-title a numeric argument is an id
	assert.Equal(t, exitUserError, env.run("children", "42").ExitCode)

	env.mustRun("--by-title", "move", "7", "42")
	env.mustRun("--by-title", "add", "leaf", "--parent", "7")

	path := parseJSON[[]types.NodeAtDepth](t, env.mustRun("--json", "path", "leaf").Stdout)
	titles := make([]string, len(path))
	for i, n := range path {
		titles[i] = n.Title
	}
	assert.Equal(t, []string{"root", "42", "7", "leaf"}, titles)

	children := parseJSON[[]types.NodeAtDepth](t, env.mustRun("--json", "--by-title", "children", "42").Stdout)
	require.Len(t, children, 1)
	assert.Equal(t, "7", children[0].Title)
}
