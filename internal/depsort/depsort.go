// Package depsort orders a crate's dependency tree for build-file
// generation and linking. Grounded on passes/lang/dep_order.py's
// crate_order/mod_order: CrateOrder walks a crate's extern-crate
// references (recursing into submodules to find them), while ModOrder
// walks a crate's own submodule tree. Both return their subject first,
// dependencies after; the same order the original's insert(0, ...)
// produces, since each recursive call finishes (and inserts itself)
// before the caller inserts itself ahead of it. Statements are walked
// in source order (not map order) so the result is deterministic across
// runs, matching the original's iteration over an ordered statement
// list.
package depsort

import (
	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
)

// CrateOrder returns mainCrate followed by every crate it transitively
// depends on (directly, or through a submodule's extern-crate
// statement), each crate appearing exactly once. internal/driver reverses
// this list before handing it to codegen.GenerateMainLLIR, which wants
// dependencies first and the entry crate last.
func CrateOrder(mainCrate *loader.Crate) []*loader.Crate {
	return crateOrder(mainCrate, nil)
}

func crateOrder(mainCrate *loader.Crate, order []*loader.Crate) []*loader.Crate {
	for _, c := range order {
		if c.Name == mainCrate.Name {
			return order
		}
	}

	var visit func(f *loader.SourceFile)
	visit = func(f *loader.SourceFile) {
		for _, stmt := range f.Stmts {
			switch stmt.Kind {
			case ast.StmtExternCrate:
				order = crateOrder(f.Crates[stmt.Name], order)
			case ast.StmtMod:
				visit(f.Mods[stmt.Name].File)
			}
		}
	}
	visit(mainCrate.File)

	return append([]*loader.Crate{mainCrate}, order...)
}

// ModOrder returns mainMod's file followed by every submodule it
// (transitively) owns, each file appearing exactly once: the single-
// crate analogue of CrateOrder, walking Mods instead of Crates.
func ModOrder(mainMod *loader.SourceFile) []*loader.SourceFile {
	return modOrder(mainMod, nil)
}

func modOrder(mainMod *loader.SourceFile, order []*loader.SourceFile) []*loader.SourceFile {
	for _, f := range order {
		if f == mainMod {
			return order
		}
	}

	for _, stmt := range mainMod.Stmts {
		if stmt.Kind == ast.StmtMod {
			order = modOrder(mainMod.Mods[stmt.Name].File, order)
		}
	}

	return append([]*loader.SourceFile{mainMod}, order...)
}
