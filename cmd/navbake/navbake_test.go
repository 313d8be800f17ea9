package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorustyt/navsystem/navigation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
logger:
  disable_console: true
workers: 2
agent_types:
  - name: human
    voxel_size: [0.25, 0.25, 0.25]
    radius: 1
    height: 4
    climbable_height: 2
`

const testScene = `
ground_height: 0
obstacles:
  - min: [2.8, -1, -1]
    max: [3.2, 3.5, 1]
    entity: 3
areas: [main]
meshes:
  - name: main
    agent_type: human
    origin: [0, 0, -1]
    tile_size: [8, 8, 8]
    tile_count: 64
    boundary:
      height: 2
      vertices: [[-0.1, -0.1, -1], [6.1, -0.1, -1], [6.1, 6.1, -1], [-0.1, 6.1, -1]]
`

func writeFiles(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "navigation.yaml"), []byte(testConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scene.yaml"), []byte(testScene), 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c := rootCmd()
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.Execute()
	return out.String(), err
}

func TestBakeInspectPath(t *testing.T) {
	dir := writeFiles(t)
	cfg := filepath.Join(dir, "navigation.yaml")
	scenePath := filepath.Join(dir, "scene.yaml")
	nav := filepath.Join(dir, "level.nav")

	out, err := run(t, "bake", "--config", cfg, "--scene", scenePath, "-o", nav)
	require.NoError(t, err)
	assert.Contains(t, out, "human\tmain\t")
	assert.FileExists(t, nav)

	out, err = run(t, "inspect", nav)
	require.NoError(t, err)
	assert.Contains(t, out, "file version 7")
	assert.Contains(t, out, "area main")
	assert.Contains(t, out, "agent type human")
	assert.Contains(t, out, "mesh main")

	out, err = run(t, "path", "--config", cfg, "--scene", scenePath, "-i", nav,
		"--from", "0.5,0.5,0", "--to", "5.5,0.5,0")
	require.NoError(t, err)
	assert.Contains(t, out, "success")
}

func TestPathRejectsBadPosition(t *testing.T) {
	dir := writeFiles(t)
	_, err := run(t, "path", "--config", filepath.Join(dir, "navigation.yaml"), "--from", "1,2", "--to", "1,2,3")
	assert.ErrorContains(t, err, "--from")
}

func TestSceneValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("meshes:\n  - agent_type: human\n"), 0o644))
	_, err := loadScene(path)
	assert.ErrorIs(t, err, navigation.ErrInvalidConfig)
}
