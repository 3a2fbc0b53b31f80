package cli

import (
	"github.com/spf13/cobra"

	"updown-dataset/internal/app"
)

var labelsTickers []string

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Derive next-day direction labels from stored closes",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.LabelOptions{
			Tickers: labelsTickers,
		}

		return getApp().Labels(cmd.Context(), opts)
	},
}

func init() {
	labelsCmd.Flags().StringSliceVar(&labelsTickers, "tickers", nil, "Tickers to label (defaults to config)")
}
