package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tosih/ecu-tuner/pkg/compare"
	"github.com/tosih/ecu-tuner/pkg/extract"
	"github.com/tosih/ecu-tuner/pkg/reader"
)

var compareCmd = &cobra.Command{
	Use:   "compare <file1> <file2>",
	Short: "Diff the maps of two images",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline()
		results := make([]*extract.Result, len(args))

		var g errgroup.Group
		for i, path := range args {
			g.Go(func() error {
				img, err := reader.Load(path)
				if err != nil {
					return err
				}
				results[i] = p.Extract(img.Bytes())
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		compare.Display(compare.Compare(results[0], results[1]), mapFilter)
		return nil
	},
}

func init() {
	compareCmd.Flags().StringVarP(&mapFilter, "map", "m", "all", "Compare maps whose name contains this")
	rootCmd.AddCommand(compareCmd)
}
