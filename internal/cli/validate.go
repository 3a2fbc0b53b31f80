package cli

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run data quality checks against stored prices and news",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Validate(cmd.Context())
	},
}
