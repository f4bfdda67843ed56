package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/hlirio"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
	"github.com/Ferdi265/lambda-compiler/internal/macro"
	"github.com/Ferdi265/lambda-compiler/internal/resolve"
)

// newLang2hlirCmd ports cli/lang2hlir.py: load the entry crate (allowing
// extern-crate references to resolve to .hlis/.hlir stubs), desugar its
// macros, resolve it to HLIR, and print the result: full HLIR by
// default, or a stub (public signatures only, bodies blanked) with -s.
func newLang2hlirCmd() *cobra.Command {
	var output string
	var stub bool

	cmd := &cobra.Command{
		Use:   "lang2hlir <input>",
		Short: "compile Lambda to HLIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infile := args[0]

			cratePath, err := resolveCratePath(cmd)
			if err != nil {
				return err
			}

			outfile := output
			if outfile == "" {
				ext := ".hlir"
				if stub {
					ext = ".hlis"
				}
				outfile = filepath.Join(filepath.Dir(infile), crateFileStem(infile)+ext)
			}

			crate, err := loader.Collect(infile, cratePath, true)
			if err != nil {
				return err
			}
			macro.DesugarCrate(crate)
			hstmts, err := resolve.Resolve(crate)
			if err != nil {
				return err
			}

			w, err := openOutput(outfile)
			if err != nil {
				return err
			}
			defer w.Close()
			_, err = w.Write([]byte(hlirio.Print(hstmts, stub)))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "the output HLIR file")
	cmd.Flags().BoolVarP(&stub, "stub", "s", false, "generate interface stub instead of full HLIR")
	cratePathFlags(cmd)
	return cmd
}
