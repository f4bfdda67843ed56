package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/driver"
)

// newBuildCmd is the all-in-one command with no equivalent in the
// original cli/*.py scripts: it drives internal/driver.Build directly
// over an entry crate and every crate it transitively depends on,
// writing one .ll file per crate plus the linking main.ll, the way a
// single invocation of hhramberg-go-vslc's compiler takes source straight
// through to generated assembler without an explicit intermediate-stage
// CLI in between.
func newBuildCmd() *cobra.Command {
	var outputDir string
	var verbose bool
	var allowStubs bool

	cmd := &cobra.Command{
		Use:   "build <input>",
		Short: "compile a Lambda program straight through to LLVM IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infile := args[0]

			cratePath, err := resolveCratePath(cmd)
			if err != nil {
				return err
			}
			target, err := cmd.Flags().GetString("target")
			if err != nil {
				return err
			}
			if target == "" {
				target = hostArch()
			}
			if outputDir == "" {
				outputDir = "."
			}

			res, err := driver.Build(driver.Options{
				Src:        infile,
				SearchPath: cratePath,
				Arch:       target,
				Verbose:    verbose,
				AllowStubs: allowStubs,
			})
			if err != nil {
				return err
			}

			for _, line := range res.Trace {
				fmt.Fprintln(os.Stderr, line)
			}

			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				return err
			}
			for _, crate := range res.Crates {
				if err := os.WriteFile(outputDir+"/"+crate.Name+".ll", []byte(crate.LLIR), 0o644); err != nil {
					return err
				}
			}
			mainName := res.Crates[len(res.Crates)-1].Name
			return os.WriteFile(outputDir+"/"+mainName+".main.ll", []byte(res.MainLLIR), 0o644)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "O", "", "the directory to write generated .ll files into")
	cmd.Flags().StringP("target", "t", "", "set the architecture to compile for")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print a trace of each pipeline stage per crate")
	cmd.Flags().BoolVar(&allowStubs, "allow-stubs", false, "allow extern-crate lookups to resolve to .hlis/.hlir stubs")
	cratePathFlags(cmd)
	return cmd
}
