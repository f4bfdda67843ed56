package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/codegen"
	"github.com/Ferdi265/lambda-compiler/internal/mlirio"
)

// newMlir2llirCmd ports cli/mlir2llir.py: parse an already-optimized MLIR
// file and emit its LLVM IR text for one target architecture.
func newMlir2llirCmd() *cobra.Command {
	var output string
	var crateName string

	cmd := &cobra.Command{
		Use:   "mlir2llir <input>",
		Short: "compile lambda MLIR to LLVM IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infile := args[0]

			arch, err := resolveTarget(cmd)
			if err != nil {
				return err
			}

			crate := crateName
			if crate == "" {
				crate = crateFileStem(infile)
			}

			outfile := output
			if outfile == "" {
				outfile = filepath.Join(filepath.Dir(infile), crateFileStem(infile)+".ll")
			}

			code, err := os.ReadFile(infile)
			if err != nil {
				return err
			}

			prog, err := mlirio.Parse(string(code), infile)
			if err != nil {
				return err
			}

			llir, err := codegen.GenerateLLIR(prog, crate, arch)
			if err != nil {
				return err
			}

			w, err := openOutput(outfile)
			if err != nil {
				return err
			}
			defer w.Close()
			_, err = w.Write([]byte(llir))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "the output LLIR file")
	cmd.Flags().StringVarP(&crateName, "crate-name", "c", "", "set the name of the compiled crate")
	cmd.Flags().StringP("target", "t", "", "set the architecture to compile for")
	return cmd
}
