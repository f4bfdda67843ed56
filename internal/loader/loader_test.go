package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCollectSingleFileCrate(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `pub main = x -> x;`)

	crate, err := Collect(entry, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "main", crate.Name)
	require.Len(t, crate.File.Stmts, 1)
}

func TestCollectResolvesSubmodule(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main", "mod.lambda")
	writeFile(t, entry, `mod sub; pub main = sub::id;`)
	writeFile(t, filepath.Join(dir, "main", "sub.lambda"), `pub id = x -> x;`)

	crate, err := Collect(entry, nil, false)
	require.NoError(t, err)
	require.Contains(t, crate.File.Mods, "sub")
	assert.Equal(t, "sub", crate.File.Mods["sub"].Name)
}

func TestCollectResolvesExternCrate(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `extern crate other; pub main = other::id;`)
	writeFile(t, filepath.Join(dir, "other.lambda"), `pub id = x -> x;`)

	crate, err := Collect(entry, []string{dir}, false)
	require.NoError(t, err)
	require.Contains(t, crate.File.Crates, "other")
}

func TestCollectDetectsCyclicCrateDependency(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "a.lambda")
	writeFile(t, entry, `extern crate b; pub x = b::x;`)
	writeFile(t, filepath.Join(dir, "b.lambda"), `extern crate a; pub x = a::x;`)

	_, err := Collect(entry, []string{dir}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclical")
}

func TestCollectMissingCrateReportsError(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `extern crate missing; pub x = missing::x;`)

	_, err := Collect(entry, []string{dir}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not find crate")
}

func TestCollectLoadsHlisStubWhenAllowed(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `extern crate other; pub main = other::id;`)
	writeFile(t, filepath.Join(dir, "other.hlis"), `pub other::id = ...;`)

	crate, err := Collect(entry, []string{dir}, true)
	require.NoError(t, err)
	require.Contains(t, crate.File.Crates, "other")

	other := crate.File.Crates["other"]
	assert.True(t, other.File.IsStub)
	require.Len(t, other.File.HLIR, 1)
	assert.Equal(t, ast.HStmtAssignment, other.File.HLIR[0].Kind)
	assert.True(t, other.File.HLIR[0].IsPublic)
}

func TestCollectIgnoresStubWhenNotAllowed(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `extern crate other; pub main = other::id;`)
	writeFile(t, filepath.Join(dir, "other.hlis"), `pub other::id = ...;`)

	_, err := Collect(entry, []string{dir}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not find crate")
}
