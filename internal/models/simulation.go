package models

// SimulationGasBreakdown splits actual gas used into the fixed transaction
// cost and everything else. DeploymentCost can be negative when a chain
// reports less than the base cost; callers treat that as a data anomaly.
type SimulationGasBreakdown struct {
	BaseCost       int64 `json:"baseCost"`
	DeploymentCost int64 `json:"deploymentCost"`
}

// SimulationResult is the outcome of one deployment attempt.
type SimulationResult struct {
	Network           string                 `json:"network"`
	Success           bool                   `json:"success"`
	ActualGasUsed     uint64                 `json:"actualGasUsed"`
	DeploymentAddress *string                `json:"deploymentAddress,omitempty"`
	TransactionHash   string                 `json:"transactionHash,omitempty"`
	Error             string                 `json:"error,omitempty"`
	GasBreakdown      SimulationGasBreakdown `json:"gasBreakdown"`
	TimestampMs       int64                  `json:"timestamp"`
}

// GasComparison diffs an estimate against actual gas used.
type GasComparison struct {
	EstimatedGas    uint64  `json:"estimatedGas"`
	ActualGas       uint64  `json:"actualGas"`
	Difference      int64   `json:"difference"`
	AccuracyPercent float64 `json:"accuracyPercent"`
	WithinTolerance bool    `json:"withinTolerance"`
}
