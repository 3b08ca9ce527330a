package estimator

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// PriceOptions are the pricing inputs of EstimateWithPrice.
type PriceOptions struct {
	Tier            models.PriceTier
	EthPriceUSD     *float64
	ConstructorArgs []any
}

// WeiPerGas converts a Gwei price to an integer number of wei, flooring any
// fraction of a wei.
func WeiPerGas(gwei float64) *big.Int {
	return decimal.NewFromFloat(gwei).Shift(9).Floor().BigInt()
}

// WeiToEther converts wei to an exact ether amount.
func WeiToEther(wei *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(wei, -18)
}

// USDValue prices a wei amount at the given ETH/USD rate.
func USDValue(wei *big.Int, ethPriceUSD float64) float64 {
	return WeiToEther(wei).Mul(decimal.NewFromFloat(ethPriceUSD)).InexactFloat64()
}

// EstimateWithPrice estimates deployment gas and prices it with gasPrice.
// When network is set it must match gasPrice.Network.
func (e *Estimator) EstimateWithPrice(bytecode string, gasPrice *models.GasPrice, opts PriceOptions, network string) (*models.PricedEstimate, error) {
	if gasPrice == nil {
		return nil, newValidationError("gas_price", ReasonInvalidPrice, "gas price is required")
	}
	if network != "" && network != gasPrice.Network {
		return nil, &NetworkMismatchError{Requested: network, PriceNetwork: gasPrice.Network}
	}

	tier := opts.Tier
	if tier == "" {
		tier = models.TierStandard
	}
	gwei, err := gasPrice.Tier(tier)
	if err != nil {
		return nil, newValidationError("tier", ReasonInvalidTier, err.Error())
	}
	if gwei < 0 {
		return nil, newValidationError("gas_price", ReasonInvalidPrice, fmt.Sprintf("%s gas price is negative", tier))
	}

	estimate, err := e.EstimateDeployment(bytecode, EstimateOptions{
		Network:         gasPrice.Network,
		ConstructorArgs: opts.ConstructorArgs,
	})
	if err != nil {
		return nil, err
	}

	costWei := new(big.Int).Mul(new(big.Int).SetUint64(estimate.DeploymentGas), WeiPerGas(gwei))

	priced := &models.PricedEstimate{
		GasEstimate:  *estimate,
		GasPriceUsed: gwei,
		Tier:         tier,
		CostInWei:    costWei.String(),
		CostInEther:  WeiToEther(costWei).String(),
	}
	if opts.EthPriceUSD != nil {
		usd := USDValue(costWei, *opts.EthPriceUSD)
		priced.CostInUSD = &usd
	}

	return priced, nil
}

// costWei parses the CostInWei of a priced estimate.
func costWei(p *models.PricedEstimate) *big.Int {
	v, ok := new(big.Int).SetString(p.CostInWei, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
