package mlirio

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

func TestParseRoundTripsDefinitionInstanceImplementation(t *testing.T) {
	src := `extern crate std;
pub main::id = main::id%0;
inst main::id%0 = main::id!0!0[];
impl main::id!0!0 = $0;
`
	stmts, err := Parse(src, "t.mlir")
	require.NoError(t, err)
	require.Len(t, stmts, 4)

	assert.Equal(t, ast.MStmtExternCrate, stmts[0].Kind)
	assert.Equal(t, "std", stmts[0].Name)

	require.Equal(t, ast.MStmtDefinition, stmts[1].Kind)
	assert.True(t, stmts[1].Definition.IsPublic)
	assert.Equal(t, "main::id", stmts[1].Definition.Path.String())
	assert.Equal(t, "main::id%0", stmts[1].Definition.Inst.String())

	require.Equal(t, ast.MStmtInstance, stmts[2].Kind)
	assert.Equal(t, "main::id!0!0", stmts[2].Instance.Impl.String())
	assert.Empty(t, stmts[2].Instance.Captures)

	require.Equal(t, ast.MStmtImplementation, stmts[3].Kind)
	impl := stmts[3].Implementation
	assert.Equal(t, ast.ImplReturn, impl.Kind)
	assert.Equal(t, 0, impl.Captures)
	require.Equal(t, ast.VLitCapture, impl.Value.Kind)
	assert.Equal(t, 0, impl.Value.CaptureID)

	assert.Equal(t, src, Print(stmts))
}

func TestParsePlainExternRoundTrips(t *testing.T) {
	stmts, err := Parse(`extern putchar;`, "t.mlir")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.MStmtExtern, stmts[0].Kind)
	assert.Equal(t, "putchar", stmts[0].Name)

	out := Print(stmts)
	assert.Equal(t, "extern putchar;\n", out)
}

func TestParseTailCallImplementationCountsUpvalues(t *testing.T) {
	src := `impl main::f!0!0 = $1 $0;`
	stmts, err := Parse(src, "t.mlir")
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	impl := stmts[0].Implementation
	assert.Equal(t, ast.ImplTailCall, impl.Kind)
	assert.Equal(t, 1, impl.Captures)
	assert.Equal(t, 1, impl.Fn.CaptureID)
	assert.Equal(t, 0, impl.Arg.CaptureID)
}

func TestParseContinueCallImplementationWithClosureCapture(t *testing.T) {
	src := `impl main::f!0!0 = main::g!1!0[$1 main::h%2] $0 -> main::k%3;`
	stmts, err := Parse(src, "t.mlir")
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	impl := stmts[0].Implementation
	require.Equal(t, ast.ImplContinueCall, impl.Kind)
	// captures referenced: $1 (upvalue) and slot 0 (argument, excluded) -> 1 upvalue
	assert.Equal(t, 1, impl.Captures)

	require.Equal(t, ast.VLitImplementation, impl.Fn.Kind)
	require.Len(t, impl.Fn.Captures, 2)
	assert.True(t, impl.Fn.Captures[0].IsUpvalue)
	assert.Equal(t, 1, impl.Fn.Captures[0].Index)
	assert.False(t, impl.Fn.Captures[1].IsUpvalue)
	assert.Equal(t, "main::h%2", impl.Fn.Captures[1].Inst.String())

	assert.Equal(t, ast.VLitCapture, impl.Arg.Kind)
	assert.Equal(t, "main::k%3", impl.Next.Inst.String())
}

func TestPrintRoundTripsThroughParse(t *testing.T) {
	stmts := []ast.MStatement{
		{Kind: ast.MStmtExternCrate, Name: "std"},
		{Kind: ast.MStmtDefinition, Definition: &ast.Definition{
			Path:      ast.NewPath("main", "id"),
			Inst:      ast.InstancePath{Path: ast.NewPath("main", "id"), ID: 0},
			IsPublic:  true,
			NeedsInit: true,
		}},
		{Kind: ast.MStmtInstance, Instance: &ast.Instance{
			Path: ast.InstancePath{Path: ast.NewPath("main", "id"), ID: 0},
			Impl: ast.ImplementationPath{Path: ast.NewPath("main", "id"), LambdaID: 0, ContinuationID: 0},
		}},
		{Kind: ast.MStmtImplementation, Implementation: &ast.Implementation{
			Kind:  ast.ImplReturn,
			Path:  ast.ImplementationPath{Path: ast.NewPath("main", "id"), LambdaID: 0, ContinuationID: 0},
			Value: ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: 0},
		}},
	}

	text := Print(stmts)
	assert.Contains(t, text, "pub main::id = main::id%0 $$;")

	reparsed, err := Parse(text, "roundtrip.mlir")
	require.NoError(t, err)
	require.Len(t, reparsed, 4)

	if diff := cmp.Diff(stmts, reparsed); diff != "" {
		t.Errorf("program did not round-trip through Print/Parse (-want +got):\n%s", diff)
	}
}

func TestParseRejectsUnexpectedToken(t *testing.T) {
	_, err := Parse(`impl main::f!0!0 = ;`, "t.mlir")
	require.Error(t, err)
}
