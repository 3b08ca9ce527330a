package report

import (
	"math"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Score rates a report from 0 (poor) to 100 (efficient). Penalties grow with
// bytecode size, deployment gas and USD cost; simulation accuracy and small
// contracts earn bonuses.
func Score(report *models.OptimizationReport) int {
	est := report.Estimate
	size := float64(est.BytecodeSize)
	gas := float64(est.DeploymentGas)

	score := 100.0
	score -= math.Min(30, size/MaxContractSize*40)
	score -= math.Min(25, gas/5_000_000*30)
	if est.CostInUSD != nil {
		score -= math.Min(20, *est.CostInUSD/100*20)
	}
	if report.Comparison != nil {
		score += report.Comparison.AccuracyPercent / 100 * 10
	}
	switch {
	case est.BytecodeSize < 5000:
		score += 15
	case est.BytecodeSize < 10000:
		score += 7
	}

	return max(0, min(100, int(math.Round(score))))
}
