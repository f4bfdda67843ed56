// Package macro desugars the surface AST's macro literals (!"...", !'.',
// !123) into calls against the std crate, before name resolution runs.
// Grounded on passes/lang/demacro.py. The original only ever exercises its
// number-literal expansion; the language's parser never produced Char or
// String macro tokens in practice. Char literals are parsed here (see
// internal/frontend), so demacroChar is a real, reachable path rather than
// the dead code it was in the original.
package macro

import (
	"fmt"
	"strconv"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
)

func relative(components ...string) ast.Expr {
	return ast.Expr{Kind: ast.ExprRelative, Path: ast.NewPath(components...)}
}

func buildCallChain(exprs []ast.Expr) ast.Expr {
	chain := exprs[0]
	for _, e := range exprs[1:] {
		fn, arg := chain, e
		chain = ast.Expr{Kind: ast.ExprCall, Fn: &fn, Arg: &arg}
	}
	return chain
}

func paren(e ast.Expr) ast.Expr {
	return ast.Expr{Kind: ast.ExprParen, Inner: &e}
}

// demacroNumber rewrites a numeric literal into a chain of single-digit
// std:: references combined via std::dec<n>, e.g. 42 becomes
// std::dec2 std::4 std::2.
func demacroNumber(n int) ast.Expr {
	digits := strconv.Itoa(n)
	if len(digits) == 1 {
		return relative("std", digits)
	}

	exprs := make([]ast.Expr, 0, len(digits)+1)
	exprs = append(exprs, relative("std", fmt.Sprintf("dec%d", len(digits))))
	for _, d := range digits {
		exprs = append(exprs, relative("std", string(d)))
	}
	return paren(buildCallChain(exprs))
}

// demacroChar rewrites a char literal into the same expansion as its byte
// value's number literal.
func demacroChar(c byte) ast.Expr {
	return demacroNumber(int(c))
}

// demacroString rewrites a string literal into a call to std::list_n over
// the decimal expansion of each byte, plus the string's length:
// std::list_n <len> <byte0> <byte1> ...
func demacroString(s string) ast.Expr {
	bytes := []byte(s)

	exprs := make([]ast.Expr, 0, len(bytes)+2)
	exprs = append(exprs, relative("std", "list_n"))
	exprs = append(exprs, demacroNumber(len(bytes)))
	for _, b := range bytes {
		exprs = append(exprs, demacroNumber(int(b)))
	}
	return paren(buildCallChain(exprs))
}

// Desugar rewrites every macro literal in the assignments of one
// surface-level statement list; submodule files are reached through
// DesugarCrate, not from here.
func Desugar(stmts []ast.Statement) []ast.Statement {
	out := make([]ast.Statement, len(stmts))
	for i, stmt := range stmts {
		if stmt.Kind == ast.StmtAssignment {
			stmt.Value = desugarExpr(stmt.Value)
		}
		out[i] = stmt
	}
	return out
}

// DesugarCrate rewrites every macro literal reachable from crate: its own
// source file, every submodule, and every extern crate it transitively
// loads. The original compiles each crate to HLIR separately and only ever
// demacros the crate being compiled; since this pipeline loads a whole
// dependency graph of ".lambda" sources in one pass rather than linking
// against already-compiled ".hlir" stubs, every reachable crate needs its
// own macro literals expanded exactly once.
func DesugarCrate(crate *loader.Crate) {
	desugarSourceFile(crate.File, map[string]bool{})
}

func desugarSourceFile(f *loader.SourceFile, done map[string]bool) {
	f.Stmts = Desugar(f.Stmts)
	for _, mod := range f.Mods {
		desugarSourceFile(mod.File, done)
	}
	for name, c := range f.Crates {
		if done[name] {
			continue
		}
		done[name] = true
		desugarSourceFile(c.File, done)
	}
}

func desugarExpr(e ast.Expr) ast.Expr {
	switch e.Kind {
	case ast.ExprParen:
		inner := desugarExpr(*e.Inner)
		return ast.Expr{Kind: ast.ExprParen, Inner: &inner}
	case ast.ExprCall:
		fn := desugarExpr(*e.Fn)
		arg := desugarExpr(*e.Arg)
		return ast.Expr{Kind: ast.ExprCall, Fn: &fn, Arg: &arg}
	case ast.ExprLambda:
		body := desugarExpr(*e.Body)
		return ast.Expr{Kind: ast.ExprLambda, Name: e.Name, Body: &body}
	case ast.ExprMacroString:
		return demacroString(e.StringValue)
	case ast.ExprMacroChar:
		return demacroChar(e.CharValue)
	case ast.ExprMacroNumber:
		return demacroNumber(e.NumberValue)
	default:
		return e
	}
}
