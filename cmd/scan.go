package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tosih/ecu-tuner/pkg/reader"
	"github.com/tosih/ecu-tuner/pkg/scanner"
)

var (
	scanRaw   bool
	scanLimit int
)

var scanCmd = &cobra.Command{
	Use:   "scan <file>",
	Short: "List candidate table locations with their heuristic scores",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spinner, _ := pterm.DefaultSpinner.Start("Scanning file for map locations...")
		img, err := reader.Load(args[0])
		if err != nil {
			spinner.Fail("Error reading file")
			return err
		}

		loc := newLocator()
		var results []scanner.ScanResult
		if scanRaw {
			results = scanner.Scan(img, loc, scanLimit)
		} else {
			results = scanner.Ranked(img, loc)
		}
		spinner.Success(fmt.Sprintf("File scanned: %d bytes (0x%X)", img.Len(), img.Len()))

		pterm.Println()
		scanner.Display(results)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanRaw, "raw", false, "List every window over the threshold before deduplication")
	scanCmd.Flags().IntVar(&scanLimit, "limit", 200, "Maximum raw windows to list")
	rootCmd.AddCommand(scanCmd)
}
