package models

import "fmt"

// PriceTier is a gas price aggressiveness level.
type PriceTier string

const (
	TierSlow     PriceTier = "slow"
	TierStandard PriceTier = "standard"
	TierFast     PriceTier = "fast"
)

// Valid reports whether the tier is one of slow, standard or fast.
func (t PriceTier) Valid() bool {
	switch t {
	case TierSlow, TierStandard, TierFast:
		return true
	}
	return false
}

// PriceSource identifies where a GasPrice came from.
type PriceSource string

const (
	SourceOracle PriceSource = "oracle"
	SourceRPC    PriceSource = "rpc"
)

// GasPrice is a gas price snapshot for one network. All prices are in Gwei.
type GasPrice struct {
	Network     string      `json:"network"`
	Slow        float64     `json:"slow"`
	Standard    float64     `json:"standard"`
	Fast        float64     `json:"fast"`
	TimestampMs int64       `json:"timestamp"`
	Source      PriceSource `json:"source,omitempty"`
}

// Tier returns the Gwei price for the given tier.
func (p *GasPrice) Tier(t PriceTier) (float64, error) {
	switch t {
	case TierSlow:
		return p.Slow, nil
	case TierStandard:
		return p.Standard, nil
	case TierFast:
		return p.Fast, nil
	}
	return 0, fmt.Errorf("unknown price tier %q", t)
}
