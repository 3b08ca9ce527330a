package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a gas optimization report",
	Long: `Estimate, price and score a deployment and list optimization recommendations.

--simulate deploys the bytecode on the development node configured under
simulator (Anvil at http://localhost:8545 by default) and compares the
actual gas used with the estimate. Production chains are refused. A failed
simulation is reported as a warning and does not fail the command.

Examples:
  gas-estimator report -f out/Token.sol/Token.json --network mainnet --eth-price 3000
  gas-estimator report -b 0x6080... --compare arbitrum,base,optimism --format ci
  gas-estimator report -b 0x6080... --simulate --args 1000000 --format json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	addBytecodeFlags(reportCmd)
	addFallbackFlag(reportCmd)
	reportCmd.Flags().StringP("network", "n", "", "network to price on (default: estimator.default_network)")
	reportCmd.Flags().Bool("simulate", false, "simulate the deployment on a development node")
	reportCmd.Flags().StringSlice("compare", nil, "additional networks to compare (default: report.compare_networks)")
	reportCmd.Flags().String("value", "", "wei sent with the simulated deployment")
	reportCmd.Flags().String("tier", "", "gas price tier: slow, standard or fast (default: report.tier)")
	reportCmd.Flags().Float64("eth-price", 0, "ETH price in USD (default: report.eth_price_usd)")
	reportCmd.Flags().String("format", "cli", "output format: cli, ci or json")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	bytecode, err := readBytecode(cmd, stdinIfPiped())
	if err != nil {
		return err
	}
	ctorArgs, err := constructorArgs(cmd)
	if err != nil {
		return err
	}

	var value *big.Int
	if raw, _ := cmd.Flags().GetString("value"); raw != "" {
		v, ok := new(big.Int).SetString(raw, 10)
		if !ok || v.Sign() < 0 {
			return fmt.Errorf("invalid --value %q: must be a non-negative integer amount of wei", raw)
		}
		value = v
	}

	simulate, _ := cmd.Flags().GetBool("simulate")
	a, err := newApp(cmd.Context(), cfg, simulate)
	if err != nil {
		return err
	}
	defer a.Close()

	network, _ := cmd.Flags().GetString("network")
	compare, _ := cmd.Flags().GetStringSlice("compare")
	if !cmd.Flags().Changed("compare") {
		compare = cfg.Report.CompareNetworks
	}

	rep, err := a.reporter.GenerateReport(cmd.Context(), bytecode, report.Options{
		Network:           network,
		IncludeSimulation: simulate,
		CompareNetworks:   compare,
		ConstructorArgs:   ctorArgs,
		Value:             value,
		EthPriceUSD:       parseEthPrice(cmd, cfg.Report.EthPriceUSD),
		Tier:              tierFlag(cmd),
		UseFallback:       fallbackFlag(cmd),
	})
	if err != nil {
		return err
	}

	text, err := report.FormatReport(rep, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
