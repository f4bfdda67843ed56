package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/mlirio"
	"github.com/Ferdi265/lambda-compiler/internal/partial"
)

// newMlir2optCmd ports cli/mlir2opt.py: parse one MLIR file, gather its
// extern-crate dependencies' MLIR from the crate search path, and run the
// partial evaluator/instantiator over it. The original links the
// dependency statements into a pointer-addressed AST before optimizing
// and unlinks the result afterward (passes/mlir/link.py); that step has
// no equivalent here because internal/ast's MLIR statements are already
// path-addressed, and internal/partial/internal/dedup build their own
// path-keyed lookup tables directly over the flat form mlirio.CollectDeps
// returns.
func newMlir2optCmd() *cobra.Command {
	var output string
	var crateName string

	cmd := &cobra.Command{
		Use:   "mlir2opt <input>",
		Short: "optimize lambda MLIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infile := args[0]

			cratePath, err := resolveCratePath(cmd)
			if err != nil {
				return err
			}

			crate := crateName
			if crate == "" {
				crate = crateFileStem(infile)
			}

			outfile := output
			if outfile == "" {
				outfile = filepath.Join(filepath.Dir(infile), crateFileStem(infile)+".mlir")
			}

			code, err := os.ReadFile(infile)
			if err != nil {
				return err
			}

			prog, err := mlirio.Parse(string(code), infile)
			if err != nil {
				return err
			}

			deps, _, err := mlirio.CollectDeps(crate, prog, cratePath)
			if err != nil {
				return err
			}

			opti, err := partial.OptimizeMLIR(prog, deps)
			if err != nil {
				return err
			}

			w, err := openOutput(outfile)
			if err != nil {
				return err
			}
			defer w.Close()
			_, err = w.Write([]byte(mlirio.Print(opti)))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "the output MLIR file")
	cmd.Flags().StringVarP(&crateName, "crate-name", "c", "", "set the name of the compiled crate")
	cratePathFlags(cmd)
	return cmd
}
