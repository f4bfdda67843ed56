package mlirio

import (
	"strconv"
	"strings"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// Print renders stmts in the textual MLIR form, directly grounded on
// original_source's pretty/mlir.py. Unlike internal/hlirio there is no
// stub mode: every MLIR statement is already flat and first-order, so a
// downstream consumer (mlir2opt, mlir2llir) always needs the full body.
func Print(stmts []ast.MStatement) string {
	var b strings.Builder
	for _, stmt := range stmts {
		switch stmt.Kind {
		case ast.MStmtExternCrate:
			b.WriteString("extern crate ")
			b.WriteString(stmt.Name)
			b.WriteString(";\n")
		case ast.MStmtExtern:
			b.WriteString("extern ")
			b.WriteString(stmt.Name)
			b.WriteString(";\n")
		case ast.MStmtDefinition:
			printDefinition(&b, stmt.Definition)
		case ast.MStmtInstance:
			printInstance(&b, stmt.Instance)
		case ast.MStmtImplementation:
			printImplementation(&b, stmt.Implementation)
		}
	}
	return b.String()
}

func printDefinition(b *strings.Builder, d *ast.Definition) {
	if d.IsPublic {
		b.WriteString("pub ")
	}
	b.WriteString(d.Path.String())
	b.WriteString(" = ")
	b.WriteString(d.Inst.String())
	if d.NeedsInit {
		b.WriteString(" $$")
	}
	b.WriteString(";\n")
}

func printInstance(b *strings.Builder, i *ast.Instance) {
	b.WriteString("inst ")
	b.WriteString(i.Path.String())
	b.WriteString(" = ")
	b.WriteString(i.Impl.String())
	b.WriteByte('[')
	for idx, c := range i.Captures {
		if idx > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.String())
	}
	b.WriteString("];\n")
}

func printImplementation(b *strings.Builder, impl *ast.Implementation) {
	b.WriteString("impl ")
	b.WriteString(impl.Path.String())
	b.WriteString(" = ")
	switch impl.Kind {
	case ast.ImplReturn:
		printValueLiteral(b, impl.Value)
	case ast.ImplTailCall:
		printValueLiteral(b, impl.Fn)
		b.WriteByte(' ')
		printValueLiteral(b, impl.Arg)
	case ast.ImplContinueCall:
		printValueLiteral(b, impl.Fn)
		b.WriteByte(' ')
		printValueLiteral(b, impl.Arg)
		b.WriteString(" -> ")
		printValueLiteral(b, impl.Next)
	}
	b.WriteString(";\n")
}

func printValueLiteral(b *strings.Builder, lit ast.ValueLiteral) {
	switch lit.Kind {
	case ast.VLitCapture:
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(lit.CaptureID))
	case ast.VLitExtern:
		b.WriteString(lit.Name)
	case ast.VLitDefinition:
		b.WriteString(lit.DefPath.String())
	case ast.VLitInstance:
		b.WriteString(lit.Inst.String())
	case ast.VLitImplementation:
		b.WriteString(lit.Impl.String())
		b.WriteByte('[')
		for idx, c := range lit.Captures {
			if idx > 0 {
				b.WriteByte(' ')
			}
			printCaptureRef(b, c)
		}
		b.WriteByte(']')
	}
}

func printCaptureRef(b *strings.Builder, ref ast.CaptureRef) {
	if ref.IsUpvalue {
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(ref.Index))
		return
	}
	b.WriteString(ref.Inst.String())
}
