package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Ferdi265/lambda-compiler/internal/hlirio"
)

// newHlir2hlisCmd ports cli/hlir2hlis.py: truncate an HLIR program down
// to its public-surface interface stub. The original's parse_hlir(code,
// stub=True) parses real bodies but discards each one into an Ellipsis
// node during parsing; internal/hlirio.Parse never grew that discarding
// mode, since internal/hlirio.Print(stmts, stub=true) already omits
// private items and blanks every surviving body to "..." regardless of
// what the body actually is: parsing in full and printing with stub=true
// produces the identical final text with no extra code.
func newHlir2hlisCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "hlir2hlis <input>",
		Short: "strip lambda HLIR to HLIS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			infile := args[0]

			outfile := output
			if outfile == "" {
				outfile = filepath.Join(filepath.Dir(infile), crateFileStem(infile)+".hlis")
			}

			code, err := os.ReadFile(infile)
			if err != nil {
				return err
			}

			stmts, err := hlirio.Parse(string(code), infile)
			if err != nil {
				return err
			}

			w, err := openOutput(outfile)
			if err != nil {
				return err
			}
			defer w.Close()
			_, err = w.Write([]byte(hlirio.Print(stmts, true)))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "the output HLIS file")
	return cmd
}
