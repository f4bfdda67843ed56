package mlirio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ferdi265/lambda-compiler/internal/ast"
)

// LoadCrate finds and parses the MLIR for crate somewhere in searchPath,
// preferring an already-optimized "<crate>.opt.mlir" over a plain
// "<crate>.mlir" in each directory before moving to the next. Grounded on
// passes/mlir/collect_deps.py's load_crate.
func LoadCrate(crate string, searchPath []string) ([]ast.MStatement, error) {
	for _, dir := range searchPath {
		for _, name := range []string{crate + ".opt.mlir", crate + ".mlir"} {
			path := filepath.Join(dir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			return Parse(string(data), path)
		}
	}
	return nil, fmt.Errorf("did not find crate %q in search path", crate)
}

// CollectDeps walks prog's extern-crate references, recursively loading
// each unseen crate's MLIR from searchPath, and returns the flattened
// dependency statements together with the order crates were first visited
// in (crate itself always last). Grounded on
// passes/mlir/collect_deps.py's collect_deps: the original links and
// unlinks this flat list around optimize_mlir, but internal/partial and
// internal/dedup already key everything by path, so the flat form here is
// exactly what OptimizeMLIR wants as its deps argument.
func CollectDeps(crate string, prog []ast.MStatement, searchPath []string) ([]ast.MStatement, []string, error) {
	found := map[string]bool{}
	var order []string
	var collected []ast.MStatement

	var visit func(crate string, prog []ast.MStatement, collect bool) error
	visit = func(crate string, prog []ast.MStatement, collect bool) error {
		for _, other := range referencedCrates(prog) {
			if found[other] {
				continue
			}
			found[other] = true
			dep, err := LoadCrate(other, searchPath)
			if err != nil {
				return err
			}
			if err := visit(other, dep, true); err != nil {
				return err
			}
		}

		order = append(order, crate)
		if collect {
			collected = append(collected, prog...)
		}
		return nil
	}

	if err := visit(crate, prog, false); err != nil {
		return nil, nil, err
	}
	return collected, order, nil
}

// referencedCrates returns the distinct crate names prog's ExternCrate
// statements name, in first-seen order.
func referencedCrates(prog []ast.MStatement) []string {
	seen := map[string]bool{}
	var out []string
	for _, stmt := range prog {
		if stmt.Kind != ast.MStmtExternCrate {
			continue
		}
		if seen[stmt.Name] {
			continue
		}
		seen[stmt.Name] = true
		out = append(out, stmt.Name)
	}
	return out
}
