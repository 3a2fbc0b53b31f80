package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"updown-dataset/internal/app"
)

var (
	collectTickers    []string
	collectDays       int
	collectFrom       string
	collectTo         string
	collectPricesOnly bool
	collectNewsOnly   bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch price history and company news into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.CollectOptions{
			Tickers:    collectTickers,
			Days:       collectDays,
			PricesOnly: collectPricesOnly,
			NewsOnly:   collectNewsOnly,
		}

		from, err := parseTimeFlag("from", collectFrom)
		if err != nil {
			return err
		}
		opts.From = from

		to, err := parseTimeFlag("to", collectTo)
		if err != nil {
			return err
		}
		opts.To = to

		return getApp().Collect(cmd.Context(), opts)
	},
}

func init() {
	collectCmd.Flags().StringSliceVar(&collectTickers, "tickers", nil, "Tickers to collect (defaults to config)")
	collectCmd.Flags().IntVar(&collectDays, "days", 0, "How many days back to fetch (defaults to config)")
	collectCmd.Flags().StringVar(&collectFrom, "from", "", "Start date (RFC3339 or YYYY-MM-DD, inclusive)")
	collectCmd.Flags().StringVar(&collectTo, "to", "", "End date (RFC3339 or YYYY-MM-DD, exclusive)")
	collectCmd.Flags().BoolVar(&collectPricesOnly, "prices-only", false, "Collect prices and skip news")
	collectCmd.Flags().BoolVar(&collectNewsOnly, "news-only", false, "Collect news and skip prices")
}

// parseTimeFlag accepts RFC3339 timestamps or plain dates.
func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value %q: want RFC3339 or YYYY-MM-DD", name, value)
	}
	return &t, nil
}
