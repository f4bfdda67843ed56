package cps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

func ptr(e ast.HExpr) *ast.HExpr { return &e }

func TestCompileIdentityLambda(t *testing.T) {
	// x = a -> a;
	prog := []ast.HStatement{{
		Kind:     ast.HStmtAssignment,
		Path:     ast.NewPath("x"),
		IsPublic: false,
		Value: ast.HExpr{
			Kind: ast.HExprLambda,
			Name: "a",
			Body: ptr(ast.HExpr{Kind: ast.HExprIdent, Name: "a"}),
		},
	}}

	out, err := Compile(prog)
	require.NoError(t, err)

	var impls []*ast.Implementation
	var inst *ast.Instance
	var def *ast.Definition
	for i := range out {
		switch out[i].Kind {
		case ast.MStmtImplementation:
			impls = append(impls, out[i].Implementation)
		case ast.MStmtInstance:
			inst = out[i].Instance
		case ast.MStmtDefinition:
			def = out[i].Definition
		}
	}

	require.Len(t, impls, 2)
	require.NotNil(t, inst)
	require.NotNil(t, def)

	inner := impls[0]
	assert.Equal(t, ast.ImplReturn, inner.Kind)
	assert.Equal(t, 0, inner.Captures)
	assert.Equal(t, ast.VLitCapture, inner.Value.Kind)
	assert.Equal(t, 0, inner.Value.CaptureID)

	outer := impls[1]
	assert.Equal(t, ast.ImplReturn, outer.Kind)
	assert.Equal(t, 0, outer.Captures)
	assert.Equal(t, ast.VLitImplementation, outer.Value.Kind)
	assert.Equal(t, inner.Path, outer.Value.Impl)
	assert.Empty(t, outer.Value.Captures)

	assert.Equal(t, outer.Path, inst.Impl)
	assert.Equal(t, inst.Path, def.Inst)
	assert.Equal(t, "x", def.Path.String())
}

func TestCompileCallChainProducesTailCall(t *testing.T) {
	// f = a -> b -> a b;
	prog := []ast.HStatement{{
		Kind: ast.HStmtAssignment,
		Path: ast.NewPath("f"),
		Value: ast.HExpr{
			Kind: ast.HExprLambda,
			Name: "a",
			Body: ptr(ast.HExpr{
				Kind: ast.HExprLambda,
				Name: "b",
				Body: ptr(ast.HExpr{
					Kind: ast.HExprCall,
					Fn:   ptr(ast.HExpr{Kind: ast.HExprIdent, Name: "a"}),
					Arg:  ptr(ast.HExpr{Kind: ast.HExprIdent, Name: "b"}),
				}),
			}),
		},
	}}

	out, err := Compile(prog)
	require.NoError(t, err)

	var foundTailCall bool
	for _, stmt := range out {
		if stmt.Kind == ast.MStmtImplementation && stmt.Implementation.Kind == ast.ImplTailCall {
			foundTailCall = true
			assert.Equal(t, ast.VLitCapture, stmt.Implementation.Fn.Kind)
			assert.Equal(t, ast.VLitCapture, stmt.Implementation.Arg.Kind)
		}
	}
	assert.True(t, foundTailCall)
}

func TestCompileExternCrateAndExternPassThrough(t *testing.T) {
	prog := []ast.HStatement{
		{Kind: ast.HStmtExternCrate, Name: "std"},
		{Kind: ast.HStmtExtern, Name: "putchar"},
	}
	out, err := Compile(prog)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, ast.MStmtExternCrate, out[0].Kind)
	assert.Equal(t, ast.MStmtExtern, out[1].Kind)
}
