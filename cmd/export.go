package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tosih/ecu-tuner/pkg/export"
)

var (
	exportDir    string
	exportVerify bool
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export extracted maps to CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runExtract(args[0])
		if err != nil {
			return err
		}
		if !res.Trusted {
			pterm.Warning.Printf("Exporting from an untrusted image: %v\n", res.Integrity)
		}

		written, err := export.ExportMapsToCSV(res.Maps, exportDir, mapFilter)
		if err != nil {
			return err
		}
		if exportVerify {
			return verifyExports(written)
		}
		return nil
	},
}

// verifyExports reads every written file back and checks it parses.
func verifyExports(paths []string) error {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		g, err := export.ReadCSV(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		pterm.Info.Printf("%s: %s %dx%d\n", p, g.Title, len(g.RowAxis), len(g.ColAxis))
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "export", "Output directory")
	exportCmd.Flags().StringVarP(&mapFilter, "map", "m", "all", "Export maps whose name contains this")
	exportCmd.Flags().StringVar(&expectedDigest, "sha256", "", "Expected SHA-256 of the whole image")
	exportCmd.Flags().BoolVar(&exportVerify, "verify", false, "Read each CSV back after writing it")
	rootCmd.AddCommand(exportCmd)
}
