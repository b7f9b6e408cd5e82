package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conduit-lang/rtti/internal/snapshot"
	"github.com/conduit-lang/rtti/pkg/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupWorkdir switches to a temporary directory whose rtti.yaml selects a
// sqlite snapshot store
func setupWorkdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "store:\n  backend: sqlite\n  dsn: file:" + filepath.Join(dir, "snapshots.db") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rtti.yaml"), []byte(cfg), 0o644))

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })
	return dir
}

func run(args ...string) (string, error) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "rtti", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"version", "types", "encode", "inspect", "decode", "snapshot"} {
		assert.Contains(t, names, want)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"

	out, err := run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "rtti version: 1.0.0-test")
	assert.Contains(t, out, "abc123")
}

func TestInvalidFormat(t *testing.T) {
	setupWorkdir(t)
	_, err := run("types", "--format", "yaml")
	assert.Error(t, err)
}

func TestTypesCommand(t *testing.T) {
	setupWorkdir(t)

	out, err := run("types")
	require.NoError(t, err)
	for _, name := range []string{"Widget", "Element", "Button", "Label", "LayoutOptions"} {
		assert.Contains(t, out, name)
	}

	out, err = run("types", "--format", "json")
	require.NoError(t, err)
	var infos []typeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.GreaterOrEqual(t, len(infos), 5)

	out, err = run("types", "Button")
	require.NoError(t, err)
	assert.Contains(t, out, "Button@v1")
	assert.Contains(t, out, "caption")
	assert.Contains(t, out, "siblings")
	assert.Contains(t, out, "Element")

	out, err = run("types", "Element", "--format", "json")
	require.NoError(t, err)
	var element typeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &element))
	assert.Equal(t, uint16(2), element.Version)
	assert.Equal(t, []uint16{1}, element.Migrations)

	out, err = run("types", "Buton")
	assert.Error(t, err)
	assert.Contains(t, out, "Did you mean: Button?")
}

func TestEncodeInspectDecode(t *testing.T) {
	dir := setupWorkdir(t)
	file := filepath.Join(dir, "scene.rtg")

	out, err := run("encode", "-o", file)
	require.NoError(t, err)
	assert.Contains(t, out, "4 records")

	out, err = run("inspect", file)
	require.NoError(t, err)
	assert.Contains(t, out, "#0 Widget v1")
	assert.Contains(t, out, "reference (weak)")
	assert.Contains(t, out, "base Element v2 (6 fields)")

	out, err = run("inspect", file, "--format", "json")
	require.NoError(t, err)
	var info serial.StreamInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	require.Len(t, info.Records, 4)
	assert.Equal(t, "Widget", info.Records[0].TypeName)

	out, err = run("decode", file, "--format", "json")
	require.NoError(t, err)
	var summary graphSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "Widget", summary.Root)
	assert.Equal(t, 4, summary.Objects)
	assert.Equal(t, 2, summary.Values)
	assert.Equal(t, map[string]int{"Widget": 1, "Button": 2, "Label": 1, "LayoutOptions": 2}, summary.ByType)

	out, err = run("decode", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Root:")
	assert.Contains(t, out, "Widget")
}

func TestDecodeInvalidStream(t *testing.T) {
	dir := setupWorkdir(t)
	file := filepath.Join(dir, "junk.rtg")
	require.NoError(t, os.WriteFile(file, []byte("not a stream"), 0o644))

	_, err := run("decode", file)
	assert.Error(t, err)

	_, err = run("inspect", filepath.Join(dir, "missing.rtg"))
	assert.Error(t, err)
}

func TestSnapshotCommands(t *testing.T) {
	dir := setupWorkdir(t)
	file := filepath.Join(dir, "scene.rtg")
	_, err := run("encode", "-o", file)
	require.NoError(t, err)

	out, err := run("snapshot", "save", file, "--name", "demo", "--format", "json")
	require.NoError(t, err)
	var saved snapshot.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Equal(t, "demo", saved.Name)
	assert.Equal(t, "Widget", saved.RootType)
	assert.Equal(t, 4, saved.Records)

	out, err = run("snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, saved.ID.String())
	assert.Contains(t, out, "demo")

	restored := filepath.Join(dir, "restored.rtg")
	out, err = run("snapshot", "load", saved.ID.String(), "-o", restored)
	require.NoError(t, err)
	assert.Contains(t, out, "Widget")

	original, err := os.ReadFile(file)
	require.NoError(t, err)
	copied, err := os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	out, err = run("snapshot", "delete", saved.ID.String(), "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 snapshot(s)")

	out, err = run("snapshot", "list", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))

	_, err = run("snapshot", "load", saved.ID.String())
	assert.ErrorIs(t, err, snapshot.ErrNotFound)

	_, err = run("snapshot", "delete", "not-a-uuid", "--yes")
	assert.Error(t, err)
}

func TestDefaultStorePersists(t *testing.T) {
	dir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(oldWd) })

	file := filepath.Join(dir, "scene.rtg")
	_, err = run("encode", "-o", file)
	require.NoError(t, err)

	out, err := run("snapshot", "save", file, "--name", "kept", "--format", "json")
	require.NoError(t, err)
	var saved snapshot.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &saved))

	// a second invocation opens the same sqlite file
	out, err = run("snapshot", "list")
	require.NoError(t, err)
	assert.Contains(t, out, saved.ID.String())
	assert.FileExists(t, filepath.Join(dir, "rtti.db"))
}
