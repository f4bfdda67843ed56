package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

func TestParseIdentityLambda(t *testing.T) {
	stmts, err := Parse(`x = a -> a;`, "test.lambda")
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	s := stmts[0]
	assert.Equal(t, ast.StmtAssignment, s.Kind)
	assert.Equal(t, "x", s.Name)
	assert.False(t, s.IsPublic)
	assert.False(t, s.IsImpure)
	require.Equal(t, ast.ExprLambda, s.Value.Kind)
	assert.Equal(t, "a", s.Value.Name)
	require.Equal(t, ast.ExprIdent, s.Value.Body.Kind)
	assert.Equal(t, "a", s.Value.Body.Name)
}

func TestParsePublicImpureAssignment(t *testing.T) {
	stmts, err := Parse(`pub impure main = f x;`, "test.lambda")
	require.NoError(t, err)
	require.Len(t, stmts, 1)

	s := stmts[0]
	assert.True(t, s.IsPublic)
	assert.True(t, s.IsImpure)
	require.Equal(t, ast.ExprCall, s.Value.Kind)
	assert.Equal(t, "f", s.Value.Fn.Name)
	assert.Equal(t, "x", s.Value.Arg.Name)
}

func TestParseApplicationIsLeftAssociative(t *testing.T) {
	stmts, err := Parse(`x = a b c;`, "test.lambda")
	require.NoError(t, err)

	v := stmts[0].Value
	require.Equal(t, ast.ExprCall, v.Kind)
	assert.Equal(t, "c", v.Arg.Name)
	require.Equal(t, ast.ExprCall, v.Fn.Kind)
	assert.Equal(t, "b", v.Fn.Arg.Name)
	assert.Equal(t, "a", v.Fn.Fn.Name)
}

func TestParseRelativePaths(t *testing.T) {
	stmts, err := Parse(`x = crate::foo::bar;`, "test.lambda")
	require.NoError(t, err)

	v := stmts[0].Value
	require.Equal(t, ast.ExprRelative, v.Kind)
	assert.Equal(t, []string{"crate", "foo", "bar"}, v.Path.Components())
}

func TestParseMacros(t *testing.T) {
	stmts, err := Parse(`x = !"hi"; y = !42;`, "test.lambda")
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, ast.ExprMacroString, stmts[0].Value.Kind)
	assert.Equal(t, "hi", stmts[0].Value.StringValue)

	assert.Equal(t, ast.ExprMacroNumber, stmts[1].Value.Kind)
	assert.Equal(t, 42, stmts[1].Value.NumberValue)
}

func TestParseCharMacro(t *testing.T) {
	stmts, err := Parse(`x = !'a';`, "test.lambda")
	require.NoError(t, err)

	assert.Equal(t, ast.ExprMacroChar, stmts[0].Value.Kind)
	assert.Equal(t, byte('a'), stmts[0].Value.CharValue)
}

func TestParseUseAndMod(t *testing.T) {
	stmts, err := Parse(`use foo::bar; use foo::baz as qux; use foo::*; mod sub;`, "test.lambda")
	require.NoError(t, err)
	require.Len(t, stmts, 4)

	assert.Equal(t, ast.StmtImport, stmts[0].Kind)
	assert.Equal(t, "bar", stmts[0].Name)

	assert.Equal(t, ast.StmtImport, stmts[1].Kind)
	assert.Equal(t, "qux", stmts[1].Name)

	assert.Equal(t, ast.StmtImportAll, stmts[2].Kind)

	assert.Equal(t, ast.StmtMod, stmts[3].Kind)
	assert.Equal(t, "sub", stmts[3].Name)
}

func TestParseExternForms(t *testing.T) {
	stmts, err := Parse(`extern crate std; extern impure putchar;`, "test.lambda")
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, ast.StmtExternCrate, stmts[0].Kind)
	assert.Equal(t, "std", stmts[0].Name)

	assert.Equal(t, ast.StmtExtern, stmts[1].Kind)
	assert.Equal(t, "putchar", stmts[1].Name)
}

func TestTokenizeErrorReportsPosition(t *testing.T) {
	_, err := Parse("x = @;", "test.lambda")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test.lambda")
}

func TestParseErrorOnMissingSemicolon(t *testing.T) {
	_, err := Parse(`x = a`, "test.lambda")
	require.Error(t, err)
}
