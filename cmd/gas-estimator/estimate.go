package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Bidon15/popsigner/gas-estimator/internal/estimator"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
	"github.com/Bidon15/popsigner/gas-estimator/internal/oracle"
	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate deployment gas for bytecode",
	Long: `Estimate the gas needed to deploy contract bytecode.

Without --price the estimate is static and needs no network access. With
--price the current gas price of --network is fetched and the cost is shown
in wei, ETH and optionally USD.

Examples:
  gas-estimator estimate --bytecode 0x6080...
  gas-estimator estimate -f out/Token.sol/Token.json --price --network base --eth-price 3000
  cat token.hex | gas-estimator estimate --format json`,
	Args: cobra.NoArgs,
	RunE: runEstimate,
}

func init() {
	addBytecodeFlags(estimateCmd)
	estimateCmd.Flags().StringP("network", "n", "", "network to price on (default: estimator.default_network)")
	estimateCmd.Flags().Bool("price", false, "fetch the current gas price and compute the cost")
	estimateCmd.Flags().String("tier", "", "gas price tier: slow, standard or fast (default: report.tier)")
	estimateCmd.Flags().Float64("eth-price", 0, "ETH price in USD (default: report.eth_price_usd)")
	addFallbackFlag(estimateCmd)
	estimateCmd.Flags().String("format", "cli", "output format: cli, ci or json")

	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
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

	a, err := newApp(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	network, _ := cmd.Flags().GetString("network")
	if network == "" {
		network = cfg.Estimator.DefaultNetwork
	}
	out := cmd.OutOrStdout()

	if withPrice, _ := cmd.Flags().GetBool("price"); !withPrice {
		est, err := a.estimator.EstimateDeployment(bytecode, estimator.EstimateOptions{Network: network, ConstructorArgs: ctorArgs})
		if err != nil {
			return err
		}
		if format == report.FormatJSON {
			return printJSON(out, est)
		}
		printEstimate(cmd, est)
		return nil
	}

	if err := estimator.ValidateBytecode(bytecode); err != nil {
		return err
	}
	useFallback := fallbackFlag(cmd)
	price, err := a.oracle.FetchGasPrice(cmd.Context(), network, oracle.FetchOptions{UseFallback: useFallback})
	if err != nil {
		return err
	}
	priced, err := a.estimator.EstimateWithPrice(bytecode, price, estimator.PriceOptions{
		Tier:            tierFlag(cmd),
		EthPriceUSD:     parseEthPrice(cmd, cfg.Report.EthPriceUSD),
		ConstructorArgs: ctorArgs,
	}, network)
	if err != nil {
		return err
	}
	if format == report.FormatJSON {
		return printJSON(out, priced)
	}

	printEstimate(cmd, &priced.GasEstimate)
	printField(out, "Gas price", fmt.Sprintf("%s Gwei (%s, %s)", formatFloat(priced.GasPriceUsed), priced.Tier, price.Source))
	printField(out, "Cost", priced.CostInEther+" ETH")
	printField(out, "Cost (wei)", priced.CostInWei)
	if priced.CostInUSD != nil {
		printField(out, "Cost (USD)", formatUSD(priced.CostInUSD))
	}
	return nil
}

func printEstimate(cmd *cobra.Command, est *models.GasEstimate) {
	out := cmd.OutOrStdout()
	printField(out, "Network", est.Network)
	printField(out, "Bytecode size", fmt.Sprintf("%d bytes", est.BytecodeSize))
	printField(out, "Deployment gas", est.DeploymentGas)
	printField(out, "  base", est.Breakdown.BaseCost)
	printField(out, "  creation", est.Breakdown.CreationCost)
	printField(out, "  code storage", est.Breakdown.CodeStorageCost)
	printField(out, "  constructor data", est.Breakdown.ConstructorDataCost)
	printField(out, "Constructor", yesNo(est.Analysis.HasConstructor))
}

func tierFlag(cmd *cobra.Command) models.PriceTier {
	tier, _ := cmd.Flags().GetString("tier")
	if tier == "" {
		tier = cfg.Report.Tier
	}
	return models.PriceTier(tier)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
