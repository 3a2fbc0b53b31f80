package cli

import (
	"github.com/spf13/cobra"

	"updown-dataset/internal/app"
)

var (
	newssetJoin string
	newssetOut  string
)

var newssetCmd = &cobra.Command{
	Use:   "newsset",
	Short: "Build the headline text dataset joined with direction labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.NewsSetOptions{
			Join:    newssetJoin,
			OutPath: newssetOut,
		}

		return getApp().NewsSet(cmd.Context(), opts)
	},
}

func init() {
	newssetCmd.Flags().StringVar(&newssetJoin, "join", "required", "Label join mode: required or optional")
	newssetCmd.Flags().StringVar(&newssetOut, "out", "", "Output CSV path (defaults to config dir)")
}
