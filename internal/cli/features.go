package cli

import (
	"github.com/spf13/cobra"

	"updown-dataset/internal/app"
)

var (
	featuresTickers []string
	featuresSeqLen  int
	featuresOutDir  string
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Build normalized indicator sequences and write training artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.FeatureOptions{
			Tickers:        featuresTickers,
			SequenceLength: featuresSeqLen,
			OutDir:         featuresOutDir,
		}

		return getApp().Features(cmd.Context(), opts)
	},
}

func init() {
	featuresCmd.Flags().StringSliceVar(&featuresTickers, "tickers", nil, "Tickers to process (defaults to config)")
	featuresCmd.Flags().IntVar(&featuresSeqLen, "seq-len", 0, "Window length in trading days (defaults to config)")
	featuresCmd.Flags().StringVar(&featuresOutDir, "out", "", "Output directory (defaults to config)")
}
