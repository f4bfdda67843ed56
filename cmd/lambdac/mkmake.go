package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// newMkmakeCmd ports cli/mkmake.py: scaffold a fresh Lambda project
// (Makefile, a starter crate, and the bundled std/io/runtime support
// files) for the given crate name.
func newMkmakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkmake <name>",
		Short: "create a GNU Make project for compiling Lambda programs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if err := writeScaffoldFile("Makefile", strings.ReplaceAll(makefileTemplate, "{{NAME}}", name)); err != nil {
				return err
			}
			if err := writeScaffoldFile("src/"+name+".lambda", crateLambdaTemplate); err != nil {
				return err
			}
			if err := writeScaffoldFile(stdLambdaFilename, stdLambdaSource); err != nil {
				return err
			}
			if err := writeScaffoldFile(ioLambdaFilename, ioLambdaSource); err != nil {
				return err
			}
			if err := writeScaffoldFile(ioCFilename, ioCSource); err != nil {
				return err
			}
			if err := writeScaffoldFile(runtimeHFilename, runtimeHSource); err != nil {
				return err
			}
			return writeScaffoldFile(runtimeCFilename, runtimeCSource)
		},
	}
	return cmd
}

// writeScaffoldFile mirrors mkmake.py's write_file: create parent
// directories as needed, then write content with a trailing newline.
func writeScaffoldFile(name, content string) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(name, []byte(content), 0o644)
}
