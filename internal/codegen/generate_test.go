package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/cps"
	"github.com/Ferdi265/lambda-compiler/internal/partial"
)

func identityMLIR(t *testing.T, crateName string) []ast.MStatement {
	t.Helper()
	prog := []ast.HStatement{{
		Kind: ast.HStmtAssignment,
		Path: ast.NewPath(crateName),
		Value: ast.HExpr{
			Kind: ast.HExprLambda,
			Name: "a",
			Body: &ast.HExpr{Kind: ast.HExprIdent, Name: "a"},
		},
	}}
	mlir, err := cps.Compile(prog)
	require.NoError(t, err)

	opt, err := partial.OptimizeMLIR(mlir, nil)
	require.NoError(t, err)
	return opt
}

func TestGenerateLLIREmitsRuntimeAndGlobal(t *testing.T) {
	prog := identityMLIR(t, "main")
	out, err := GenerateLLIR(prog, "main", Targets["x86_64"])
	require.NoError(t, err)

	assert.Contains(t, out, "target triple = \"x86_64-pc-linux-gnu\"")
	assert.Contains(t, out, "%lambda = type")
	assert.Contains(t, out, "define external dso_local void @_L4Imain()")
	assert.Contains(t, out, "define external dso_local void @_L4Fmain()")
}

func TestGenerateLLIRDeclaresEveryInstanceOnce(t *testing.T) {
	prog := identityMLIR(t, "main")
	out, err := GenerateLLIR(prog, "main", Targets["x86_64"])
	require.NoError(t, err)

	// A zero-capture identity closure should produce exactly one
	// private global instance definition, never duplicated by the
	// pre-pass declaring it and the main pass emitting it.
	count := strings.Count(out, "= private dso_local unnamed_addr global %lambda_c0")
	assert.Equal(t, 1, count)
}

func TestGenerateMainLLIRCallsEveryCrateInit(t *testing.T) {
	out, err := GenerateMainLLIR([]string{"a", "b"}, Targets["x86_64"])
	require.NoError(t, err)

	assert.Contains(t, out, "call void @_L1Ia()")
	assert.Contains(t, out, "call void @_L1Ib()")
	// Fini runs in reverse order: b's destructor before a's.
	biFini := strings.Index(out, "call void @_L1Fb()")
	aiFini := strings.Index(out, "call void @_L1Fa()")
	require.True(t, biFini >= 0 && aiFini >= 0)
	assert.Less(t, biFini, aiFini)

	assert.Contains(t, out, "@llvm.global_ctors")
	assert.Contains(t, out, "@llvm.global_dtors")
	assert.Contains(t, out, "define dso_local i32 @main()")
}

func TestGenerateMainLLIRRejectsEmptyCrateList(t *testing.T) {
	_, err := GenerateMainLLIR(nil, Targets["x86_64"])
	assert.Error(t, err)
}

func TestCountUsesTracksCaptureAndExternReferences(t *testing.T) {
	implPath := ast.ImplementationPath{Path: ast.NewPath("f"), LambdaID: 0, ContinuationID: 0}
	impl := &ast.Implementation{
		Kind: ast.ImplTailCall,
		Path: implPath,
		Fn:   ast.ValueLiteral{Kind: ast.VLitExtern, Name: "apply"},
		Arg:  ast.ValueLiteral{Kind: ast.VLitCapture, CaptureID: 1},
	}

	uses, err := countUses(impl)
	require.NoError(t, err)

	assert.Contains(t, uses.externs, "apply")
	assert.Equal(t, 1, uses.externCnt["apply"])
	assert.Contains(t, uses.captures, 1)
	assert.Equal(t, 1, uses.captureCnt[1])
}

func TestMangleLitRejectsNonOperandLiteral(t *testing.T) {
	c := newContext(Targets["x86_64"])
	_, err := c.mangleLit(ast.ValueLiteral{Kind: ast.VLitExtern, Name: "x"})
	assert.Error(t, err)
}
