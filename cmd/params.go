package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tosih/ecu-tuner/pkg/definitions"
	"github.com/tosih/ecu-tuner/pkg/models"
	"github.com/tosih/ecu-tuner/pkg/reader"
	"github.com/tosih/ecu-tuner/pkg/renderer"
)

var paramsCmd = &cobra.Command{
	Use:   "params <file>",
	Short: "Read the Motronic M2.1 scalar parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := reader.Load(args[0])
		if err != nil {
			return err
		}

		data := pterm.TableData{{"Parameter", "Offset", "Value", "Raw", "Range", ""}}
		for _, v := range reader.ReadParams(img, models.M21Params) {
			status := pterm.FgGreen.Sprint("ok")
			if !v.Plausible {
				status = pterm.FgYellow.Sprint("out of range")
			}
			data = append(data, []string{
				v.Param.Name,
				fmt.Sprintf("0x%04X", v.Param.Offset),
				fmt.Sprintf("%.2f %s", v.Value, v.Param.Unit),
				fmt.Sprintf("%d", v.Raw),
				fmt.Sprintf("%g-%g", v.Param.MinValue, v.Param.MaxValue),
				status,
			})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	},
}

var definitionsCmd = &cobra.Command{
	Use:   "definitions",
	Short: "List declared maps of the selected or builtin definition sets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if cfg.Definitions != "" {
			renderer.ListDefinitions(cfg.Definitions, declaredSet)
			return
		}
		for _, name := range definitions.BuiltinNames() {
			defs, _ := definitions.Builtin(name)
			renderer.ListDefinitions(name, defs)
		}
	},
}

func init() {
	rootCmd.AddCommand(paramsCmd, definitionsCmd)
}
