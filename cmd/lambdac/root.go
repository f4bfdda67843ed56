// Package main wires internal/loader, internal/macro, internal/resolve,
// internal/cps, internal/partial, internal/codegen, and internal/buildfile
// into a cobra-based command-line tool, one subcommand per stage of the
// original project's cli/*.py script set, plus an all-in-one "build"
// command driving internal/driver directly. Grounded on
// hhramberg-go-vslc/src/main.go's run function for how a single binary
// composes the compiler's stages end to end, and on cli/lang2hlir.py,
// cli/hlir2mlir.py, cli/mlir2opt.py, cli/mlir2llir.py, cli/llir2main.py,
// cli/lang2deps.py, cli/mkmake.py, cli/hlir2hlis.py for the exact
// subcommand/flag surface.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/codegen"
	"github.com/Ferdi265/lambda-compiler/internal/diagnostics"
)

// version is reported by --version, in the spirit of the original's
// lambda_compiler.version.__version__ constant.
const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger := diagnostics.NewLogger()
		logger.Report(diagnostics.Internal(diagnostics.KindCLI, "%s", err))
		fmt.Fprint(os.Stderr, logger.Render())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lambdac",
		Short:         "lambdac compiles the untyped lambda calculus to LLVM IR",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newLang2hlirCmd(),
		newHlir2mlirCmd(),
		newMlir2optCmd(),
		newMlir2llirCmd(),
		newLlir2mainCmd(),
		newLang2depsCmd(),
		newMkmakeCmd(),
		newHlir2hlisCmd(),
		newBuildCmd(),
	)
	return root
}

// defaultCratePath mirrors search_path.py's get_crate_search_path: a set
// of conventional system install directories, searched after any
// explicit -P/--crate-path entries.
func defaultCratePath() []string {
	home, err := os.UserHomeDir()
	paths := []string{"/usr/lib/lambda/crates/", "/usr/local/lib/lambda/crates/"}
	if err == nil {
		paths = append(paths, home+"/.local/lib/lambda/crates/")
	}
	return paths
}

// cratePathFlags adds the -P/--crate-path and --no-default-crate-path
// flags shared by every subcommand that searches for extern crates, and
// resolveCratePath reads them back the way search_path.py's
// get_crate_search_path combines explicit and default entries.
func cratePathFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("crate-path", "P", nil, "add a directory to the crate search path")
	cmd.Flags().Bool("no-default-crate-path", false, "do not use default crate search paths")
}

func resolveCratePath(cmd *cobra.Command) ([]string, error) {
	extra, err := cmd.Flags().GetStringArray("crate-path")
	if err != nil {
		return nil, err
	}
	noDefault, err := cmd.Flags().GetBool("no-default-crate-path")
	if err != nil {
		return nil, err
	}
	if noDefault {
		return extra, nil
	}
	return append(extra, defaultCratePath()...), nil
}

// resolveTarget maps a -t/--target flag to a codegen.Architecture,
// defaulting to the host's runtime.GOARCH the way the original CLI
// scripts default to platform.machine().
func resolveTarget(cmd *cobra.Command) (codegen.Architecture, error) {
	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return codegen.Architecture{}, err
	}
	if target == "" {
		target = hostArch()
	}
	arch, ok := codegen.Targets[target]
	if !ok {
		names := make([]string, 0, len(codegen.Targets))
		for name := range codegen.Targets {
			names = append(names, name)
		}
		return codegen.Architecture{}, fmt.Errorf("unsupported target %q (supported targets: %s)", target, strings.Join(names, ", "))
	}
	if err := codegen.CheckTargetData(arch); err != nil {
		return codegen.Architecture{}, err
	}
	return arch, nil
}

// hostArch maps runtime.GOARCH onto one of codegen.Targets' keys, the Go
// analogue of platform.machine().
func hostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "i686"
	case "arm64":
		return "aarch64"
	case "arm":
		return "armv7"
	default:
		return runtime.GOARCH
	}
}

// openOutput opens path for writing, treating "-" as stdout, matching the original CLI
// scripts' "sys.stdout if outfile == '-' else open(outfile, 'w')" idiom.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// crateFileStem returns the filename component of path with everything
// from its first '.' onward removed, mirroring os.path.basename(infile).split(".", 1)[0].
func crateFileStem(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}
