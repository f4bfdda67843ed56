package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveSimpleAssignment(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `pub id = x -> x;`)

	crate, err := loader.Collect(entry, nil, false)
	require.NoError(t, err)

	prog, err := Resolve(crate)
	require.NoError(t, err)
	require.Len(t, prog, 1)
	assert.Equal(t, ast.HStmtAssignment, prog[0].Kind)
	assert.Equal(t, "main::id", prog[0].Path.String())
}

func TestResolveCrossModuleReference(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main", "mod.lambda")
	writeFile(t, entry, `mod sub; pub main = self::sub::id;`)
	writeFile(t, filepath.Join(dir, "main", "sub.lambda"), `pub id = x -> x;`)

	crate, err := loader.Collect(entry, nil, false)
	require.NoError(t, err)

	prog, err := Resolve(crate)
	require.NoError(t, err)
	require.Len(t, prog, 2)

	var main ast.HStatement
	for _, s := range prog {
		if s.Path.String() == "main::main" {
			main = s
		}
	}
	require.Equal(t, ast.HExprAbsolute, main.Value.Kind)
	assert.Equal(t, "main::sub::id", main.Value.Path.String())
}

func TestResolvePrivateAccessIsRejected(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main", "mod.lambda")
	writeFile(t, entry, `mod sub; pub main = self::sub::id;`)
	writeFile(t, filepath.Join(dir, "main", "sub.lambda"), `id = x -> x;`)

	crate, err := loader.Collect(entry, nil, false)
	require.NoError(t, err)

	_, err = Resolve(crate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private")
}

func TestResolveImpureInPureContextIsRejected(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `extern impure putchar; pub main = putchar;`)

	crate, err := loader.Collect(entry, nil, false)
	require.NoError(t, err)

	_, err = Resolve(crate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pure context")
}

func TestResolveUndefinedNameIsRejected(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `pub main = undefined_name;`)

	crate, err := loader.Collect(entry, nil, false)
	require.NoError(t, err)

	_, err = Resolve(crate)
	require.Error(t, err)
}

func TestResolveConsumesHlisStubPublicSurface(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `extern crate other; pub main = other::id;`)
	writeFile(t, filepath.Join(dir, "other.hlis"), `pub other::id = ...;`)

	crate, err := loader.Collect(entry, []string{dir}, true)
	require.NoError(t, err)

	prog, err := Resolve(crate)
	require.NoError(t, err)

	var main ast.HStatement
	for _, s := range prog {
		if s.Kind == ast.HStmtAssignment && s.Path.String() == "main::main" {
			main = s
		}
	}
	require.Equal(t, ast.HExprAbsolute, main.Value.Kind)
	assert.Equal(t, "other::id", main.Value.Path.String())
}

func TestResolveRejectsPrivateStubMember(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "main.lambda")
	writeFile(t, entry, `extern crate other; pub main = other::hidden;`)
	writeFile(t, filepath.Join(dir, "other.hlis"), `other::hidden = ...;`)

	crate, err := loader.Collect(entry, []string{dir}, true)
	require.NoError(t, err)

	_, err = Resolve(crate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private")
}
