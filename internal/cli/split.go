package cli

import (
	"github.com/spf13/cobra"

	"updown-dataset/internal/app"
)

var (
	splitTrain float64
	splitVal   float64
	splitOut   string
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Partition trading dates chronologically into train/val/test",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SplitOptions{
			TrainRatio: splitTrain,
			ValRatio:   splitVal,
			OutPath:    splitOut,
		}

		return getApp().Split(cmd.Context(), opts)
	},
}

func init() {
	splitCmd.Flags().Float64Var(&splitTrain, "train", 0, "Train ratio (defaults to config)")
	splitCmd.Flags().Float64Var(&splitVal, "val", 0, "Validation ratio (defaults to config)")
	splitCmd.Flags().StringVar(&splitOut, "out", "", "Output JSON path (defaults to config dir)")
}
