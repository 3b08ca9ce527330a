package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Bidon15/popsigner/gas-estimator/internal/oracle"
	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
)

var pricesCmd = &cobra.Command{
	Use:   "prices [network...]",
	Short: "Show current gas prices",
	Long: `Fetch slow, standard and fast gas prices in Gwei.

Without arguments every configured network is fetched concurrently.

Examples:
  gas-estimator prices
  gas-estimator prices mainnet base --fallback
  gas-estimator prices --continue-on-error --format json`,
	RunE: runPrices,
}

func init() {
	addFallbackFlag(pricesCmd)
	pricesCmd.Flags().Bool("continue-on-error", false, "skip networks whose price cannot be fetched")
	pricesCmd.Flags().String("format", "cli", "output format: cli, ci or json")

	rootCmd.AddCommand(pricesCmd)
}

func runPrices(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	networks := args
	if len(networks) == 0 {
		networks = a.oracle.SupportedNetworks()
	}
	continueOnError, _ := cmd.Flags().GetBool("continue-on-error")

	prices, err := a.oracle.GetGasPrices(cmd.Context(), networks, oracle.AllOptions{
		ContinueOnError: continueOnError,
		UseFallback:     fallbackFlag(cmd),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == report.FormatJSON {
		return printJSON(out, map[string]any{"prices": prices, "count": len(prices)})
	}

	table := newTable(out, "Network", "Slow", "Standard", "Fast", "Source", "Updated")
	for _, p := range prices {
		table.Append([]string{
			p.Network,
			formatFloat(p.Slow),
			formatFloat(p.Standard),
			formatFloat(p.Fast),
			string(p.Source),
			time.UnixMilli(p.TimestampMs).Format(time.TimeOnly),
		})
	}
	table.Render()

	if skipped := len(networks) - len(prices); skipped > 0 {
		printWarning(cmd.ErrOrStderr(), "some networks were skipped; run with --debug for details")
	}
	return nil
}
