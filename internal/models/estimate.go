// Package models defines the value types shared by the gas estimation pipeline.
package models

import "github.com/ethereum/go-ethereum/params"

// Fixed deployment cost coefficients used by the estimator.
const (
	BaseTxGas             = params.TxGas         // 21000
	ContractCreationGas   = params.CreateGas     // 32000
	CodeDepositGasPerByte = params.CreateDataGas // 200
)

// BytecodeAnalysis holds properties derived purely from a bytecode string.
type BytecodeAnalysis struct {
	HexLength      int  `json:"hexLength"`
	SizeInBytes    int  `json:"sizeInBytes"`
	HasConstructor bool `json:"hasConstructor"`
	Complexity     int  `json:"complexity"`
}

// GasBreakdown splits a deployment estimate into its fixed-coefficient parts.
type GasBreakdown struct {
	BaseCost            uint64 `json:"baseCost"`
	CreationCost        uint64 `json:"creationCost"`
	CodeStorageCost     uint64 `json:"codeStorageCost"`
	ConstructorDataCost uint64 `json:"constructorDataCost"`
}

// Total returns the sum of every breakdown component.
func (b GasBreakdown) Total() uint64 {
	return b.BaseCost + b.CreationCost + b.CodeStorageCost + b.ConstructorDataCost
}

// GasEstimate is the deterministic deployment cost of a bytecode on one network.
type GasEstimate struct {
	Network       string           `json:"network"`
	BytecodeSize  int              `json:"bytecodeSize"`
	DeploymentGas uint64           `json:"deploymentGas"`
	Breakdown     GasBreakdown     `json:"breakdown"`
	Analysis      BytecodeAnalysis `json:"analysis"`
	DurationMs    int64            `json:"durationMs"`
}

// PricedEstimate is a GasEstimate combined with a gas price.
type PricedEstimate struct {
	GasEstimate

	GasPriceUsed float64   `json:"gasPriceUsed"` // Gwei
	Tier         PriceTier `json:"tier"`
	CostInWei    string    `json:"costInWei"`
	CostInEther  string    `json:"costInEther"`
	CostInUSD    *float64  `json:"costInUSD,omitempty"`
}

// NetworkComparison ranks priced estimates of the same bytecode across networks.
type NetworkComparison struct {
	Estimates     []PricedEstimate `json:"estimates"`
	Cheapest      PricedEstimate   `json:"cheapest"`
	MostExpensive PricedEstimate   `json:"mostExpensive"`
	SavingsInWei  string           `json:"savingsInWei"`
	SavingsInUSD  *float64         `json:"savingsInUSD,omitempty"`
}
