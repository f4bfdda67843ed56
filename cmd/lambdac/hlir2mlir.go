package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/cps"
	"github.com/Ferdi265/lambda-compiler/internal/hlirio"
	"github.com/Ferdi265/lambda-compiler/internal/mlirio"
)

// newHlir2mlirCmd ports cli/hlir2mlir.py: parse one HLIR file, run the
// combined CPS/closure-conversion pass, and print the resulting MLIR.
// Single-file, no loader involved: the original doesn't resolve extern
// crates at this stage either.
func newHlir2mlirCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "hlir2mlir <input>",
		Short: "compile lambda HLIR to MLIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infile := args[0]

			outfile := output
			if outfile == "" {
				outfile = filepath.Join(filepath.Dir(infile), crateFileStem(infile)+".mlir")
			}

			code, err := os.ReadFile(infile)
			if err != nil {
				return err
			}

			hstmts, err := hlirio.Parse(string(code), infile)
			if err != nil {
				return err
			}

			mir, err := cps.Compile(hstmts)
			if err != nil {
				return err
			}

			w, err := openOutput(outfile)
			if err != nil {
				return err
			}
			defer w.Close()
			_, err = w.Write([]byte(mlirio.Print(mir)))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "the output MLIR file")
	return cmd
}
