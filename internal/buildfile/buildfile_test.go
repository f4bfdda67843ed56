package buildfile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
)

func TestWriteMakeDepsCoversEveryArtifactStage(t *testing.T) {
	main := &loader.Crate{Name: "main", File: &loader.SourceFile{
		Name: "main", Src: "main.lambda",
	}}

	var b strings.Builder
	require.NoError(t, WriteMakeDeps(&b, main, "out", "all"))
	out := b.String()

	assert.Contains(t, out, "out/main.hlir: main.lambda")
	assert.Contains(t, out, "out/main.hlis: out/main.hlir")
	assert.Contains(t, out, "out/main.mlir: out/main.hlir")
	assert.Contains(t, out, "out/main.opt.mlir: out/main.mlir")
	assert.Contains(t, out, "out/main.ll: out/main.opt.mlir")
	assert.Contains(t, out, "out/main.main.ll: out/main.opt.mlir")
	assert.Contains(t, out, "all: main.lambda")
	assert.Contains(t, out, "main.lambda:")
}

func TestWriteMakeDepsIncludesCrateDependencies(t *testing.T) {
	std := &loader.Crate{Name: "std", File: &loader.SourceFile{Name: "std", Src: "std.lambda"}}
	main := &loader.Crate{Name: "main", File: &loader.SourceFile{
		Name:  "main",
		Src:   "main.lambda",
		Stmts: []ast.Statement{{Kind: ast.StmtExternCrate, Name: "std"}},
	}}
	main.File.Crates = map[string]*loader.Crate{"std": std}

	var b strings.Builder
	require.NoError(t, WriteMakeDeps(&b, main, "out", "all"))
	out := b.String()

	// main's hlir rule depends on std's compiled stub, and std's own
	// pipeline stages get emitted as a crate in their own right.
	assert.Contains(t, out, "out/main.hlir: main.lambda out/std.hlis")
	assert.Contains(t, out, "out/main.opt.mlir: out/main.mlir out/std.opt.mlir")
	assert.Contains(t, out, "out/std.hlir: std.lambda")
	assert.Contains(t, out, "out/main.main.ll: out/main.opt.mlir out/std.opt.mlir")
}
