package report

import (
	"fmt"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Thresholds
const (
	// MaxContractSize is the EIP-170 runtime code size limit.
	MaxContractSize = 24576

	largeBytecodeBytes      = 20000
	highCostUSD             = 50.0
	elevatedCostUSD         = 20.0
	networkSavingsUSD       = 5.0
	highGasPriceGwei        = 100.0
	constructorDataGasLimit = 1000
	highDeploymentGas       = 1_000_000
)

// Recommend derives every applicable recommendation from a report.
func Recommend(report *models.OptimizationReport) []models.Recommendation {
	est := report.Estimate
	recs := []models.Recommendation{}

	if est.BytecodeSize > largeBytecodeBytes {
		recs = append(recs, models.Recommendation{
			Type:     models.RecommendationBytecodeSize,
			Severity: models.SeverityHigh,
			Title:    "Bytecode is close to the contract size limit",
			Description: fmt.Sprintf("The contract is %d bytes, %.0f%% of the %d byte limit.",
				est.BytecodeSize, float64(est.BytecodeSize)/MaxContractSize*100, MaxContractSize),
			ActionItems: []string{
				"Move rarely used logic into external libraries",
				"Split the contract behind a proxy",
				"Shorten or replace revert strings with custom errors",
				"Remove unused functions and modifiers",
			},
		})
	}

	if usd := est.CostInUSD; usd != nil {
		switch {
		case *usd > highCostUSD:
			recs = append(recs, models.Recommendation{
				Type:        models.RecommendationHighCost,
				Severity:    models.SeverityHigh,
				Title:       "Deployment cost is high",
				Description: fmt.Sprintf("Deploying on %s costs about $%.2f.", report.Network, *usd),
				ActionItems: []string{
					"Deploy when gas prices are lower",
					"Consider a cheaper network for this contract",
				},
			})
		case *usd > elevatedCostUSD:
			recs = append(recs, models.Recommendation{
				Type:        models.RecommendationHighCost,
				Severity:    models.SeverityMedium,
				Title:       "Deployment cost is elevated",
				Description: fmt.Sprintf("Deploying on %s costs about $%.2f.", report.Network, *usd),
				ActionItems: []string{"Monitor gas prices before deploying"},
			})
		}
	}

	if nc := report.NetworkComparison; nc != nil && nc.Cheapest.Network != report.Network {
		if est.CostInUSD != nil && nc.Cheapest.CostInUSD != nil {
			savings := *est.CostInUSD - *nc.Cheapest.CostInUSD
			if savings > networkSavingsUSD {
				recs = append(recs, models.Recommendation{
					Type:     models.RecommendationCheaperNetwork,
					Severity: models.SeverityMedium,
					Title:    fmt.Sprintf("Deploying on %s is cheaper", nc.Cheapest.Network),
					Description: fmt.Sprintf("%s costs about $%.2f compared to $%.2f on %s.",
						nc.Cheapest.Network, *nc.Cheapest.CostInUSD, *est.CostInUSD, report.Network),
					PotentialSavings: fmt.Sprintf("$%.2f", savings),
					ActionItems:      []string{fmt.Sprintf("Evaluate deploying to %s", nc.Cheapest.Network)},
				})
			}
		}
	}

	if report.GasPrice.Standard > highGasPriceGwei {
		recs = append(recs, models.Recommendation{
			Type:        models.RecommendationTiming,
			Severity:    models.SeverityMedium,
			Title:       "Gas prices are high right now",
			Description: fmt.Sprintf("The standard gas price on %s is %.2f Gwei.", report.Network, report.GasPrice.Standard),
			ActionItems: []string{
				"Schedule the deployment for off-peak hours",
				"Use the slow tier if the deployment is not urgent",
			},
		})
	}

	if est.Breakdown.ConstructorDataCost > constructorDataGasLimit {
		recs = append(recs, models.Recommendation{
			Type:        models.RecommendationConstructorOptimization,
			Severity:    models.SeverityLow,
			Title:       "Constructor arguments are expensive",
			Description: fmt.Sprintf("Constructor calldata adds about %d gas.", est.Breakdown.ConstructorDataCost),
			ActionItems: []string{
				"Pass fewer constructor arguments",
				"Set rarely changed values in an initializer instead",
			},
		})
	}

	if est.DeploymentGas > highDeploymentGas {
		recs = append(recs, models.Recommendation{
			Type:        models.RecommendationGasOptimization,
			Severity:    models.SeverityMedium,
			Title:       "Deployment uses a lot of gas",
			Description: fmt.Sprintf("Deployment needs about %d gas.", est.DeploymentGas),
			ActionItems: []string{
				"Enable the Solidity optimizer",
				"Use immutable and constant variables where possible",
				"Pack storage variables",
			},
		})
	}

	return recs
}
