package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/buildfile"
	"github.com/Ferdi265/lambda-compiler/internal/loader"
)

// newLang2depsCmd ports cli/lang2deps.py: load the entry crate (full
// source only, no .hlis/.hlir stubs; a dependency file has to name every
// real source input) and emit a Make-compatible rule file covering its
// whole crate/module graph.
func newLang2depsCmd() *cobra.Command {
	var output, outputDir string

	cmd := &cobra.Command{
		Use:   "lang2deps <input>",
		Short: "collect dependency information for compiling Lambda programs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infile := args[0]

			cratePath, err := resolveCratePath(cmd)
			if err != nil {
				return err
			}

			outfile := output
			if outfile == "" {
				outfile = filepath.Join(filepath.Dir(infile), crateFileStem(infile)+".d")
			}
			if outputDir == "" {
				outputDir = "."
			}

			crate, err := loader.Collect(infile, cratePath, false)
			if err != nil {
				return err
			}

			w, err := openOutput(outfile)
			if err != nil {
				return err
			}
			defer w.Close()
			return buildfile.WriteMakeDeps(w, crate, outputDir, outfile)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "the output deps file")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "O", "", "the output directory where build artifacts are expected")
	cratePathFlags(cmd)
	return cmd
}
