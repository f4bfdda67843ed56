package depsort

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
)

func crateNames(crates []*loader.Crate) []string {
	names := make([]string, len(crates))
	for i, c := range crates {
		names[i] = c.Name
	}
	return names
}

func TestCrateOrderPutsMainFirstAndDepsAfter(t *testing.T) {
	std := &loader.Crate{Name: "std", File: &loader.SourceFile{Name: "std"}}
	io := &loader.Crate{Name: "io", File: &loader.SourceFile{
		Name:  "io",
		Stmts: []ast.Statement{{Kind: ast.StmtExternCrate, Name: "std"}},
	}}
	io.File.Crates = map[string]*loader.Crate{"std": std}

	main := &loader.Crate{Name: "main", File: &loader.SourceFile{
		Name: "main",
		Stmts: []ast.Statement{
			{Kind: ast.StmtExternCrate, Name: "io"},
		},
	}}
	main.File.Crates = map[string]*loader.Crate{"io": io}

	order := CrateOrder(main)
	assert.Equal(t, []string{"main", "io", "std"}, crateNames(order))
}

func TestCrateOrderDeduplicatesDiamondDependency(t *testing.T) {
	std := &loader.Crate{Name: "std", File: &loader.SourceFile{Name: "std"}}

	a := &loader.Crate{Name: "a", File: &loader.SourceFile{
		Name:  "a",
		Stmts: []ast.Statement{{Kind: ast.StmtExternCrate, Name: "std"}},
	}}
	a.File.Crates = map[string]*loader.Crate{"std": std}

	b := &loader.Crate{Name: "b", File: &loader.SourceFile{
		Name:  "b",
		Stmts: []ast.Statement{{Kind: ast.StmtExternCrate, Name: "std"}},
	}}
	b.File.Crates = map[string]*loader.Crate{"std": std}

	main := &loader.Crate{Name: "main", File: &loader.SourceFile{
		Name: "main",
		Stmts: []ast.Statement{
			{Kind: ast.StmtExternCrate, Name: "a"},
			{Kind: ast.StmtExternCrate, Name: "b"},
		},
	}}
	main.File.Crates = map[string]*loader.Crate{"a": a, "b": b}

	order := CrateOrder(main)
	// "a" is visited first and pulls std in right after it; when "b" is
	// visited next, std is already present so b's own call just prepends
	// "b" ahead of what's already there.
	assert.Equal(t, []string{"main", "b", "a", "std"}, crateNames(order))
}

func TestModOrderWalksSubmodulesInSourceOrder(t *testing.T) {
	leaf := &loader.SourceFile{Name: "leaf"}
	child := &loader.SourceFile{
		Name:  "child",
		Stmts: []ast.Statement{{Kind: ast.StmtMod, Name: "leaf"}},
		Mods:  map[string]*loader.Mod{"leaf": {Name: "leaf", File: leaf}},
	}
	root := &loader.SourceFile{
		Name:  "root",
		Stmts: []ast.Statement{{Kind: ast.StmtMod, Name: "child"}},
		Mods:  map[string]*loader.Mod{"child": {Name: "child", File: child}},
	}

	order := ModOrder(root)
	want := []string{"root", "child", "leaf"}
	names := make([]string, len(order))
	for i, f := range order {
		names[i] = f.Name
	}
	assert.Equal(t, want, names)
}
