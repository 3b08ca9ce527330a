package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bidon15/popsigner/gas-estimator/internal/estimator"
	"github.com/Bidon15/popsigner/gas-estimator/internal/oracle"
	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare deployment cost across networks",
	Long: `Price the same bytecode on several networks and show the cheapest.

Networks default to report.compare_networks, or every configured network.

Examples:
  gas-estimator compare -b 0x6080... --networks mainnet,arbitrum,base --eth-price 3000
  gas-estimator compare -f Token.json --sort network --format json`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	addBytecodeFlags(compareCmd)
	addFallbackFlag(compareCmd)
	compareCmd.Flags().StringSlice("networks", nil, "networks to compare")
	compareCmd.Flags().String("tier", "", "gas price tier: slow, standard or fast (default: report.tier)")
	compareCmd.Flags().String("sort", "cost", "sort by cost, gas or network")
	compareCmd.Flags().Float64("eth-price", 0, "ETH price in USD (default: report.eth_price_usd)")
	compareCmd.Flags().String("format", "cli", "output format: cli, ci or json")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	bytecode, err := readBytecode(cmd, stdinIfPiped())
	if err != nil {
		return err
	}
	if err := estimator.ValidateBytecode(bytecode); err != nil {
		return err
	}
	ctorArgs, err := constructorArgs(cmd)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	networks, _ := cmd.Flags().GetStringSlice("networks")
	if len(networks) == 0 {
		networks = cfg.Report.CompareNetworks
	}
	if len(networks) == 0 {
		networks = a.oracle.SupportedNetworks()
	}

	prices, err := a.oracle.GetGasPrices(cmd.Context(), networks, oracle.AllOptions{
		ContinueOnError: true,
		UseFallback:     fallbackFlag(cmd),
	})
	if err != nil {
		return err
	}
	if len(prices) == 0 {
		return errors.New("no gas prices available for the requested networks")
	}

	sortBy, _ := cmd.Flags().GetString("sort")
	cmp, err := a.estimator.CompareNetworks(bytecode, prices, estimator.CompareOptions{
		Tier:            tierFlag(cmd),
		SortBy:          estimator.SortBy(sortBy),
		EthPriceUSD:     parseEthPrice(cmd, cfg.Report.EthPriceUSD),
		ConstructorArgs: ctorArgs,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == report.FormatJSON {
		return printJSON(out, cmp)
	}

	table := newTable(out, "Network", "Gas Price (Gwei)", "Gas", "Cost (ETH)", "Cost (USD)")
	for _, est := range cmp.Estimates {
		table.Append([]string{
			est.Network,
			formatFloat(est.GasPriceUsed),
			fmt.Sprint(est.DeploymentGas),
			est.CostInEther,
			formatUSD(est.CostInUSD),
		})
	}
	table.Render()

	printField(out, "Cheapest", cmp.Cheapest.Network)
	printField(out, "Most expensive", cmp.MostExpensive.Network)
	savings := cmp.SavingsInWei + " wei"
	if cmp.SavingsInUSD != nil {
		savings = formatUSD(cmp.SavingsInUSD) + " (" + savings + ")"
	}
	printField(out, "Savings", savings)

	if dropped := len(networks) - len(prices); dropped > 0 {
		printWarning(cmd.ErrOrStderr(), fmt.Sprintf("%d network(s) without a gas price were left out", dropped))
	}
	return nil
}
