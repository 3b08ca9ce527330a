package models

import "time"

// RecommendationType classifies an optimization recommendation.
type RecommendationType string

const (
	RecommendationBytecodeSize            RecommendationType = "bytecode_size"
	RecommendationHighCost                RecommendationType = "high_cost"
	RecommendationCheaperNetwork          RecommendationType = "cheaper_network"
	RecommendationTiming                  RecommendationType = "timing"
	RecommendationGasOptimization         RecommendationType = "gas_optimization"
	RecommendationConstructorOptimization RecommendationType = "constructor_optimization"
)

// Severity grades a recommendation.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Recommendation is a single graded optimization hint.
type Recommendation struct {
	Type             RecommendationType `json:"type"`
	Severity         Severity           `json:"severity"`
	Title            string             `json:"title"`
	Description      string             `json:"description"`
	PotentialSavings string             `json:"potentialSavings,omitempty"`
	ActionItems      []string           `json:"actionItems,omitempty"`
}

// OptimizationReport aggregates every pipeline stage for one bytecode.
// A report is built once and never mutated afterwards.
type OptimizationReport struct {
	ID                string             `json:"id"`
	GeneratedAt       time.Time          `json:"generatedAt"`
	Network           string             `json:"network"`
	Estimate          PricedEstimate     `json:"estimate"`
	GasPrice          GasPrice           `json:"gasPrice"`
	Simulation        *SimulationResult  `json:"simulation,omitempty"`
	Comparison        *GasComparison     `json:"comparison,omitempty"`
	NetworkComparison *NetworkComparison `json:"networkComparison,omitempty"`
	Recommendations   []Recommendation   `json:"recommendations"`
	OptimizationScore int                `json:"optimizationScore"`
	Warnings          []string           `json:"warnings,omitempty"`
}
