package main

import (
	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/codegen"
)

// newLlir2mainCmd ports cli/llir2main.py: generate the @main wrapper and
// global ctor/dtor tables tying every listed crate's init/fini functions
// together, in initialization order with the entry crate last. No MLIR
// parsing happens at this stage at all; the original takes crate names
// directly as positional arguments.
func newLlir2mainCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "llir2main <crates...>",
		Short: "generate main and initializer functions for lambda LLVM IR",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arch, err := resolveTarget(cmd)
			if err != nil {
				return err
			}

			outfile := output
			if outfile == "" {
				outfile = args[len(args)-1] + ".main.ll"
			}

			llir, err := codegen.GenerateMainLLIR(args, arch)
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
	cmd.Flags().StringP("target", "t", "", "set the architecture to compile for")
	return cmd
}
