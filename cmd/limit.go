package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tosih/ecu-tuner/pkg/renderer"
	"github.com/tosih/ecu-tuner/pkg/safelimit"
	"github.com/tosih/ecu-tuner/pkg/strategy"
)

var (
	strategyName string
	limitJSON    bool
)

var limitCmd = &cobra.Command{
	Use:   "limit <value>",
	Short: "Evaluate a proposed value against a tuning strategy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("value must be a number: %w", err)
		}

		res := safelimit.New(nil, logger).Evaluate(value, strategyName)
		if limitJSON {
			return printJSON(cmd, res)
		}
		renderer.Limit(value, strategyName, res)
		return nil
	},
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List tuning strategies and their hard limits",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		renderer.ListStrategies(strategy.Default())
	},
}

func init() {
	limitCmd.Flags().StringVarP(&strategyName, "strategy", "s", strategy.Diesel, "Strategy name")
	limitCmd.Flags().BoolVar(&limitJSON, "json", false, "Print the result as JSON")
	rootCmd.AddCommand(limitCmd, strategiesCmd)
}
