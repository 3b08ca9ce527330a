// Package report orchestrates estimation, pricing, simulation and
// cross-network comparison into a scored optimization report.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/Bidon15/popsigner/gas-estimator/internal/estimator"
	"github.com/Bidon15/popsigner/gas-estimator/internal/metrics"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
	"github.com/Bidon15/popsigner/gas-estimator/internal/oracle"
	"github.com/Bidon15/popsigner/gas-estimator/internal/pkg/ulid"
	"github.com/Bidon15/popsigner/gas-estimator/internal/simulator"
)

var (
	// ErrPriceUnavailable wraps every failure to price the primary network.
	ErrPriceUnavailable  = errors.New("report: gas price unavailable")
	ErrMissingDependency = errors.New("report: missing dependency")
)

// PriceFetcher supplies gas prices. Implemented by *oracle.Client.
type PriceFetcher interface {
	FetchGasPrice(ctx context.Context, network string, opts oracle.FetchOptions) (*models.GasPrice, error)
	GetGasPrices(ctx context.Context, networks []string, opts oracle.AllOptions) ([]*models.GasPrice, error)
}

// DeploymentSimulator runs a deployment. Implemented by *simulator.Simulator.
type DeploymentSimulator interface {
	SimulateDeployment(ctx context.Context, bytecode string, opts simulator.Options) *models.SimulationResult
}

// Config contains configuration for the Reporter.
type Config struct {
	Estimator *estimator.Estimator
	Prices    PriceFetcher
	// Simulator is optional; without it simulation requests only add a warning
	Simulator      DeploymentSimulator
	DefaultNetwork string
	Logger         *slog.Logger
}

// Options are the inputs of GenerateReport.
type Options struct {
	Network           string
	IncludeSimulation bool
	// CompareNetworks are priced alongside Network
	CompareNetworks []string
	ConstructorArgs []any
	Value           *big.Int
	EthPriceUSD     *float64
	Tier            models.PriceTier
	UseFallback     bool
}

// Reporter builds optimization reports.
type Reporter struct {
	estimator      *estimator.Estimator
	prices         PriceFetcher
	simulator      DeploymentSimulator
	defaultNetwork string
	logger         *slog.Logger
	now            func() time.Time
}

// New creates a new Reporter. Estimator and Prices are required.
func New(cfg Config) (*Reporter, error) {
	if cfg.Estimator == nil {
		return nil, fmt.Errorf("%w: estimator", ErrMissingDependency)
	}
	if cfg.Prices == nil {
		return nil, fmt.Errorf("%w: price fetcher", ErrMissingDependency)
	}
	if cfg.DefaultNetwork == "" {
		cfg.DefaultNetwork = estimator.DefaultNetwork
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		estimator:      cfg.Estimator,
		prices:         cfg.Prices,
		simulator:      cfg.Simulator,
		defaultNetwork: cfg.DefaultNetwork,
		logger:         logger,
		now:            time.Now,
	}, nil
}

// GenerateReport prices bytecode on opts.Network and optionally simulates it
// and compares networks. Price and estimate failures abort the report.
// Simulation and comparison problems are recorded as warnings instead.
func (r *Reporter) GenerateReport(ctx context.Context, bytecode string, opts Options) (*models.OptimizationReport, error) {
	network := opts.Network
	if network == "" {
		network = r.defaultNetwork
	}
	tier := opts.Tier
	if tier == "" {
		tier = models.TierStandard
	}
	logger := r.logger.With(slog.String("network", network))

	if err := estimator.ValidateBytecode(bytecode); err != nil {
		return nil, err
	}

	price, err := r.prices.FetchGasPrice(ctx, network, oracle.FetchOptions{UseFallback: opts.UseFallback})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}

	priced, err := r.estimator.EstimateWithPrice(bytecode, price, estimator.PriceOptions{
		Tier:            tier,
		EthPriceUSD:     opts.EthPriceUSD,
		ConstructorArgs: opts.ConstructorArgs,
	}, network)
	if err != nil {
		return nil, fmt.Errorf("estimate deployment: %w", err)
	}

	now := r.now()
	report := &models.OptimizationReport{
		ID:          ulid.NewFromTime(now),
		GeneratedAt: now.UTC(),
		Network:     network,
		Estimate:    *priced,
		GasPrice:    *price,
	}

	if opts.IncludeSimulation {
		r.simulate(ctx, report, bytecode, opts)
	}

	if len(opts.CompareNetworks) > 0 {
		if err := r.compare(ctx, report, bytecode, price, tier, opts); err != nil {
			return nil, err
		}
	}

	report.Recommendations = Recommend(report)
	report.OptimizationScore = Score(report)

	metrics.ReportsGenerated.WithLabelValues(network).Inc()
	metrics.OptimizationScore.Observe(float64(report.OptimizationScore))
	logger.Info("optimization report generated",
		slog.String("report_id", report.ID),
		slog.Uint64("deployment_gas", report.Estimate.DeploymentGas),
		slog.Int("score", report.OptimizationScore),
		slog.Int("recommendations", len(report.Recommendations)),
	)

	return report, nil
}

// simulate runs the deployment and folds any failure into the report.
func (r *Reporter) simulate(ctx context.Context, report *models.OptimizationReport, bytecode string, opts Options) {
	if r.simulator == nil {
		report.Warnings = append(report.Warnings, "simulation requested but no simulator is configured")
		return
	}

	result := r.simulator.SimulateDeployment(ctx, bytecode, simulator.Options{
		ConstructorArgs: opts.ConstructorArgs,
		Value:           opts.Value,
	})
	if result == nil {
		report.Warnings = append(report.Warnings, "simulation returned no result")
		return
	}
	report.Simulation = result

	if !result.Success {
		report.Warnings = append(report.Warnings, "deployment simulation failed: "+result.Error)
		return
	}
	cmp := simulator.CompareWithEstimate(result, &report.Estimate.GasEstimate)
	report.Comparison = &cmp
}

// compare prices the bytecode on every requested network. The primary
// network reuses its already fetched price. Networks without a price are
// dropped with a warning, and the comparison is omitted when fewer than two
// networks remain.
func (r *Reporter) compare(ctx context.Context, report *models.OptimizationReport, bytecode string, primary *models.GasPrice, tier models.PriceTier, opts Options) error {
	others := make([]string, 0, len(opts.CompareNetworks))
	seen := map[string]bool{report.Network: true}
	for _, n := range opts.CompareNetworks {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		others = append(others, n)
	}

	prices := []*models.GasPrice{primary}
	if len(others) > 0 {
		fetched, err := r.prices.GetGasPrices(ctx, others, oracle.AllOptions{
			ContinueOnError: true,
			UseFallback:     opts.UseFallback,
		})
		if err != nil {
			report.Warnings = append(report.Warnings, "network comparison unavailable: "+err.Error())
			return nil
		}
		got := make(map[string]bool, len(fetched))
		for _, p := range fetched {
			got[p.Network] = true
		}
		for _, n := range others {
			if !got[n] {
				report.Warnings = append(report.Warnings, fmt.Sprintf("gas price unavailable for %s; excluded from network comparison", n))
				r.logger.Warn("network dropped from comparison", slog.String("network", n))
			}
		}
		prices = append(prices, fetched...)
	}

	if len(prices) < 2 {
		report.Warnings = append(report.Warnings, "network comparison skipped: fewer than two networks have a gas price")
		return nil
	}

	cmp, err := r.estimator.CompareNetworks(bytecode, prices, estimator.CompareOptions{
		Tier:            tier,
		SortBy:          estimator.SortCost,
		EthPriceUSD:     opts.EthPriceUSD,
		ConstructorArgs: opts.ConstructorArgs,
	})
	if err != nil {
		return fmt.Errorf("compare networks: %w", err)
	}
	report.NetworkComparison = cmp
	return nil
}
