package hlirio

import (
	"strings"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// Print renders stmts in the textual HLIR form. When stub is set
// (producing a ".hlis" interface file, cli/hlir2hlis.py's behaviour),
// private Assignment/Alias statements are omitted and every surviving
// Assignment's body is replaced with the "..." placeholder; callers that
// only need a crate's public surface (the resolver's namespace, or a
// downstream crate's extern-crate reference) don't need the real bodies.
// Extern statements are always written: a crate's own extern declarations
// aren't part of its public interface, but cmd/lambdac hlir2hlis still
// emits them so a ".hlir" round-trips exactly, while a ".hlis" caller
// simply never looks at entries it won't find a public path to.
func Print(stmts []ast.HStatement, stub bool) string {
	var b strings.Builder
	for _, stmt := range stmts {
		switch stmt.Kind {
		case ast.HStmtExternCrate:
			b.WriteString("extern crate ")
			b.WriteString(stmt.Name)
			b.WriteString(";\n")
		case ast.HStmtExtern:
			b.WriteString("extern impure ")
			b.WriteString(stmt.Name)
			b.WriteString(";\n")
		case ast.HStmtAssignment:
			if stub && !stmt.IsPublic {
				continue
			}
			if stmt.IsPublic {
				b.WriteString("pub ")
			}
			if stmt.IsImpure {
				b.WriteString("impure ")
			}
			b.WriteString(stmt.Path.String())
			b.WriteString(" = ")
			if stub {
				b.WriteString("...")
			} else {
				printExpr(&b, stmt.Value)
			}
			b.WriteString(";\n")
		case ast.HStmtAlias:
			if stub && !stmt.IsPublic {
				continue
			}
			if stmt.IsPublic {
				b.WriteString("pub ")
			}
			b.WriteString(stmt.Path.String())
			b.WriteString(" = use ")
			b.WriteString(stmt.Target.String())
			b.WriteString(";\n")
		}
	}
	return b.String()
}

func printExpr(b *strings.Builder, e ast.HExpr) {
	switch e.Kind {
	case ast.HExprEllipsis:
		b.WriteString("...")
	case ast.HExprParen:
		b.WriteByte('(')
		printExpr(b, *e.Inner)
		b.WriteByte(')')
	case ast.HExprCall:
		printExpr(b, *e.Fn)
		b.WriteByte(' ')
		printExpr(b, *e.Arg)
	case ast.HExprLambda:
		b.WriteString(e.Name)
		b.WriteString(" -> ")
		printExpr(b, *e.Body)
	case ast.HExprIdent:
		b.WriteString(e.Name)
	case ast.HExprAbsolute:
		b.WriteString(e.Path.String())
	}
}
