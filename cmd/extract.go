package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tosih/ecu-tuner/pkg/analysis"
	"github.com/tosih/ecu-tuner/pkg/export"
	"github.com/tosih/ecu-tuner/pkg/extract"
	"github.com/tosih/ecu-tuner/pkg/reader"
	"github.com/tosih/ecu-tuner/pkg/renderer"
)

var (
	expectedDigest string
	outputFormat   string
	mapFilter      string
	displayMode    string
)

func runExtract(path string) (*extract.Result, error) {
	img, err := reader.Load(path)
	if err != nil {
		return nil, err
	}
	return newPipeline().ExtractVerified(img.Bytes(), expectedDigest), nil
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Validate an image and list the calibration maps found in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runExtract(args[0])
		if err != nil {
			return err
		}

		switch outputFormat {
		case "json":
			return printJSON(cmd, res.Response())
		case "metadata":
			return printJSON(cmd, analysis.FromResult(res))
		case "":
			renderer.Summary(res)
			return nil
		default:
			return fmt.Errorf("unknown output format %q", outputFormat)
		}
	},
}

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Render extracted maps",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := runExtract(args[0])
		if err != nil {
			return err
		}
		if !res.Trusted {
			renderer.Summary(res)
		}
		for _, m := range export.Select(res.Maps, mapFilter) {
			renderer.RenderMap(m, displayMode)
		}
		return nil
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{extractCmd, showCmd} {
		c.Flags().StringVar(&expectedDigest, "sha256", "", "Expected SHA-256 of the whole image")
	}
	extractCmd.Flags().StringVarP(&outputFormat, "output", "o", "", "Output format (json, metadata)")
	showCmd.Flags().StringVarP(&mapFilter, "map", "m", "all", "Show maps whose name contains this")
	showCmd.Flags().StringVar(&displayMode, "mode", renderer.ModeValues, "Display mode (values, heatmap, symbols)")
	rootCmd.AddCommand(extractCmd, showCmd)
}
