package estimator

import (
	"log/slog"
	"math/big"
	"sort"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// SortBy selects the ordering of a network comparison.
type SortBy string

const (
	SortNone    SortBy = ""
	SortCost    SortBy = "cost"
	SortGas     SortBy = "gas"
	SortNetwork SortBy = "network"
)

// CompareOptions are the inputs of CompareNetworks.
type CompareOptions struct {
	Tier            models.PriceTier
	SortBy          SortBy
	EthPriceUSD     *float64
	ConstructorArgs []any
}

// CompareNetworks prices the same bytecode with every supplied gas price.
// Cheapest and MostExpensive are chosen by exact wei cost regardless of SortBy.
func (e *Estimator) CompareNetworks(bytecode string, prices []*models.GasPrice, opts CompareOptions) (*models.NetworkComparison, error) {
	start := e.now()

	if len(prices) == 0 {
		return nil, newValidationError("gas_prices", ReasonNoPrices, "at least one gas price is required")
	}
	switch opts.SortBy {
	case SortNone, SortCost, SortGas, SortNetwork:
	default:
		return nil, newValidationError("sort_by", ReasonInvalidSort, "sort must be one of cost, gas, network")
	}

	estimates := make([]models.PricedEstimate, 0, len(prices))
	for _, price := range prices {
		priced, err := e.EstimateWithPrice(bytecode, price, PriceOptions{
			Tier:            opts.Tier,
			EthPriceUSD:     opts.EthPriceUSD,
			ConstructorArgs: opts.ConstructorArgs,
		}, "")
		if err != nil {
			return nil, err
		}
		estimates = append(estimates, *priced)
	}

	cheapest, mostExpensive := 0, 0
	for i := 1; i < len(estimates); i++ {
		cost := costWei(&estimates[i])
		if cost.Cmp(costWei(&estimates[cheapest])) < 0 {
			cheapest = i
		}
		if cost.Cmp(costWei(&estimates[mostExpensive])) > 0 {
			mostExpensive = i
		}
	}

	comparison := &models.NetworkComparison{
		Cheapest:      estimates[cheapest],
		MostExpensive: estimates[mostExpensive],
	}
	savings := new(big.Int).Sub(costWei(&comparison.MostExpensive), costWei(&comparison.Cheapest))
	comparison.SavingsInWei = savings.String()
	if opts.EthPriceUSD != nil {
		usd := USDValue(savings, *opts.EthPriceUSD)
		comparison.SavingsInUSD = &usd
	}

	sortEstimates(estimates, opts.SortBy)
	comparison.Estimates = estimates

	e.observe("compare_networks", e.now().Sub(start), slog.Int("network_count", len(prices)))

	return comparison, nil
}

func sortEstimates(estimates []models.PricedEstimate, by SortBy) {
	switch by {
	case SortCost:
		sort.SliceStable(estimates, func(i, j int) bool {
			return costWei(&estimates[i]).Cmp(costWei(&estimates[j])) < 0
		})
	case SortGas:
		sort.SliceStable(estimates, func(i, j int) bool {
			return estimates[i].DeploymentGas < estimates[j].DeploymentGas
		})
	case SortNetwork:
		sort.SliceStable(estimates, func(i, j int) bool {
			return estimates[i].Network < estimates[j].Network
		})
	}
}
