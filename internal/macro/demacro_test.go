package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

func ident(e ast.Expr) string { return e.Name }

func TestDemacroSingleDigitNumber(t *testing.T) {
	e := demacroNumber(7)
	require.Equal(t, ast.ExprRelative, e.Kind)
	assert.Equal(t, []string{"std", "7"}, e.Path.Components())
}

func TestDemacroMultiDigitNumber(t *testing.T) {
	e := demacroNumber(42)
	require.Equal(t, ast.ExprParen, e.Kind)

	// std::dec2 std::4 std::2 -> Call(Call(dec2, 4), 2)
	call := e.Inner
	require.Equal(t, ast.ExprCall, call.Kind)
	assert.Equal(t, []string{"std", "2"}, call.Arg.Path.Components())
	require.Equal(t, ast.ExprCall, call.Fn.Kind)
	assert.Equal(t, []string{"std", "4"}, call.Fn.Arg.Path.Components())
	assert.Equal(t, []string{"std", "dec2"}, call.Fn.Fn.Path.Components())
}

func TestDemacroChar(t *testing.T) {
	e := demacroChar('a') // 'a' == 97
	require.Equal(t, ast.ExprParen, e.Kind)
}

func TestDemacroString(t *testing.T) {
	e := demacroString("hi")
	require.Equal(t, ast.ExprParen, e.Kind)
	// std::list_n <len> <h> <i> -> three nested calls
	call := e.Inner
	require.Equal(t, ast.ExprCall, call.Kind)
}

func TestDesugarAssignmentRewritesMacros(t *testing.T) {
	stmts := []ast.Statement{{
		Kind:  ast.StmtAssignment,
		Name:  "x",
		Value: ast.Expr{Kind: ast.ExprMacroNumber, NumberValue: 3},
	}}
	out := Desugar(stmts)
	require.Equal(t, ast.ExprRelative, out[0].Value.Kind)
	assert.Equal(t, []string{"std", "3"}, out[0].Value.Path.Components())
}
