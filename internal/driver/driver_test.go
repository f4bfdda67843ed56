package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildSingleCrateProgram(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `pub main = x -> x;`)

	res, err := Build(Options{Src: entry, Arch: "x86_64"})
	require.NoError(t, err)
	require.Len(t, res.Crates, 1)
	assert.Equal(t, "main", res.Crates[0].Name)
	assert.Contains(t, res.Crates[0].LLIR, "target triple")
	assert.Contains(t, res.MainLLIR, "_L4Imain")
	assert.Empty(t, res.Trace)
}

func TestBuildOrdersDependencyCratesBeforeEntryCrate(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `extern crate other; pub main = other::id;`)
	writeFile(t, filepath.Join(dir, "other.lambda"), `pub id = x -> x;`)

	res, err := Build(Options{Src: entry, SearchPath: []string{dir}, Arch: "x86_64"})
	require.NoError(t, err)
	require.Len(t, res.Crates, 2)
	assert.Equal(t, "other", res.Crates[0].Name)
	assert.Equal(t, "main", res.Crates[1].Name)

	initCall := strings.Index(res.MainLLIR, "_L5Iother")
	mainCall := strings.Index(res.MainLLIR, "_L4Imain")
	require.NotEqual(t, -1, initCall)
	require.NotEqual(t, -1, mainCall)
	assert.Less(t, initCall, mainCall, "dependency crate must be initialized before the entry crate")
}

func TestBuildRejectsUnknownArchitecture(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `pub main = x -> x;`)

	_, err := Build(Options{Src: entry, Arch: "made-up-arch"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported target architecture")
}

func TestBuildVerboseRecordsPerCrateTrace(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `pub main = x -> x;`)

	res, err := Build(Options{Src: entry, Arch: "x86_64", Verbose: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Trace)
	assert.Contains(t, res.Trace[0], "main: resolved")
}
