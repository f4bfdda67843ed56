// Package buildfile emits a Make-compatible dependency file mapping each
// compilation artifact (.lambda/.hlir/.hlis/.mlir/.opt.mlir/.ll) to its
// direct source inputs, per spec.md §6. Grounded on
// pretty/deps.py's pretty_make_deps, walking internal/depsort's crate and
// module order over an internal/loader-resolved crate tree. Text is
// accumulated with strings.Builder and written in one io.WriteString call, the way
// the teacher's util.Writer buffers output before a single flush
// (hhramberg-go-vslc/src/util/io.go), rather than interleaving many
// small Write calls.
package buildfile

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Ferdi265/lambda-compiler/internal/depsort"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
)

func hlirPath(dir, name string) string    { return filepath.Join(dir, name+".hlir") }
func hlisPath(dir, name string) string     { return filepath.Join(dir, name+".hlis") }
func mlirPath(dir, name string) string     { return filepath.Join(dir, name+".mlir") }
func mlirOptPath(dir, name string) string  { return filepath.Join(dir, name+".opt.mlir") }
func llirPath(dir, name string) string     { return filepath.Join(dir, name+".ll") }
func llirMainPath(dir, name string) string { return filepath.Join(dir, name+".main.ll") }

// WriteMakeDeps writes Make rules for building mainCrate and everything it
// transitively depends on, with generated artifacts rooted at outputDir
// and a final phony rule aggregating every source file under outfile.
func WriteMakeDeps(w io.Writer, mainCrate *loader.Crate, outputDir, outfile string) error {
	var b strings.Builder

	var allModDeps []string
	allCrateOrder := depsort.CrateOrder(mainCrate)

	for _, mod := range allCrateOrder {
		modCrateDeps := depsort.CrateOrder(mod)[1:]
		modSubmodDeps := depsort.ModOrder(mod.File)

		lambdaSrc := modSubmodDeps[0].Src
		var lambdaMods []string
		for _, f := range modSubmodDeps[1:] {
			lambdaMods = append(lambdaMods, f.Src)
		}

		hlirSrc := hlirPath(outputDir, mod.Name)
		var hlirCrateDeps []string
		for _, dep := range modCrateDeps {
			hlirCrateDeps = append(hlirCrateDeps, hlisPath(outputDir, dep.Name))
		}
		fmt.Fprintf(&b, "%s: %s %s\n\n", hlirSrc, lambdaSrc, strings.Join(append(hlirCrateDeps, lambdaMods...), " "))

		hlisSrc := hlisPath(outputDir, mod.Name)
		fmt.Fprintf(&b, "%s: %s\n\n", hlisSrc, hlirSrc)

		mlirSrc := mlirPath(outputDir, mod.Name)
		fmt.Fprintf(&b, "%s: %s\n\n", mlirSrc, hlirSrc)

		mlirOptSrc := mlirOptPath(outputDir, mod.Name)
		var mlirOptCrateDeps []string
		for _, dep := range modCrateDeps {
			mlirOptCrateDeps = append(mlirOptCrateDeps, mlirOptPath(outputDir, dep.Name))
		}
		fmt.Fprintf(&b, "%s: %s %s\n\n", mlirOptSrc, mlirSrc, strings.Join(mlirOptCrateDeps, " "))

		llirSrc := llirPath(outputDir, mod.Name)
		fmt.Fprintf(&b, "%s: %s\n\n", llirSrc, mlirOptSrc)

		for _, f := range modSubmodDeps {
			allModDeps = append(allModDeps, f.Src)
		}
	}

	llirMainSrc := llirMainPath(outputDir, mainCrate.Name)
	var llirCrateDeps []string
	for _, crate := range allCrateOrder {
		llirCrateDeps = append(llirCrateDeps, mlirOptPath(outputDir, crate.Name))
	}
	fmt.Fprintf(&b, "%s: %s\n\n", llirMainSrc, strings.Join(llirCrateDeps, " "))

	fmt.Fprintf(&b, "%s: %s\n\n", outfile, strings.Join(allModDeps, " "))

	for _, dep := range allModDeps {
		fmt.Fprintf(&b, "%s:\n\n", dep)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
