package hlirio

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

func TestParseRoundTripsFullForm(t *testing.T) {
	src := `extern crate std;
extern impure panic;
pub impure id = x -> x;
priv_val = (a -> a) std::id;
pub alias_of_id = use id;
`
	stmts, err := Parse(src, "t.hlir")
	require.NoError(t, err)
	require.Len(t, stmts, 5)

	assert.Equal(t, ast.HStmtExternCrate, stmts[0].Kind)
	assert.Equal(t, "std", stmts[0].Name)

	assert.Equal(t, ast.HStmtExtern, stmts[1].Kind)
	assert.Equal(t, "panic", stmts[1].Name)

	assert.Equal(t, ast.HStmtAssignment, stmts[2].Kind)
	assert.True(t, stmts[2].IsPublic)
	assert.True(t, stmts[2].IsImpure)
	assert.Equal(t, ast.HExprLambda, stmts[2].Value.Kind)

	assert.Equal(t, ast.HStmtAssignment, stmts[3].Kind)
	assert.False(t, stmts[3].IsPublic)
	assert.Equal(t, ast.HExprCall, stmts[3].Value.Kind)
	assert.Equal(t, ast.HExprAbsolute, stmts[3].Value.Arg.Kind)
	assert.Equal(t, "std::id", stmts[3].Value.Arg.Path.String())

	assert.Equal(t, ast.HStmtAlias, stmts[4].Kind)
	assert.True(t, stmts[4].IsPublic)
	assert.Equal(t, "id", stmts[4].Target.String())

	assert.Equal(t, src, Print(stmts, false))
}

func TestParseAcceptsEllipsisStubBody(t *testing.T) {
	stmts, err := Parse(`pub id = ...;`, "t.hlis")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.HExprEllipsis, stmts[0].Value.Kind)
}

func TestPrintStubOmitsPrivateItemsAndBodies(t *testing.T) {
	stmts := []ast.HStatement{
		{Kind: ast.HStmtExternCrate, Name: "std"},
		{Kind: ast.HStmtAssignment, Path: ast.NewPath("main", "helper"), IsPublic: false,
			Value: ast.HExpr{Kind: ast.HExprIdent, Name: "x"}},
		{Kind: ast.HStmtAssignment, Path: ast.NewPath("main", "id"), IsPublic: true,
			Value: ast.HExpr{Kind: ast.HExprLambda, Name: "x", Body: &ast.HExpr{Kind: ast.HExprIdent, Name: "x"}}},
	}

	out := Print(stmts, true)
	assert.Contains(t, out, "extern crate std;")
	assert.NotContains(t, out, "main::helper")
	assert.Contains(t, out, "pub main::id = ...;")
}

func TestPrintFullFormRoundTripsThroughParse(t *testing.T) {
	body := ast.HExpr{Kind: ast.HExprLambda, Name: "x", Body: &ast.HExpr{Kind: ast.HExprIdent, Name: "x"}}
	stmts := []ast.HStatement{
		{Kind: ast.HStmtAssignment, Path: ast.NewPath("main", "id"), IsPublic: true, Value: body},
	}

	text := Print(stmts, false)
	reparsed, err := Parse(text, "roundtrip.hlir")
	require.NoError(t, err)
	require.Len(t, reparsed, 1)

	if diff := cmp.Diff(stmts[0], reparsed[0]); diff != "" {
		t.Errorf("statement did not round-trip through Print/Parse (-want +got):\n%s", diff)
	}
}
