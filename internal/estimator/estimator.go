// Package estimator implements the fixed-coefficient deployment gas model.
//
// The model is an approximation: deploymentGas = 21000 + 32000 + 200*size +
// constructor calldata. It is not an EVM trace replay.
package estimator

import (
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/params"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Bidon15/popsigner/gas-estimator/internal/metrics"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Defaults
const (
	DefaultNetwork       = "sepolia"
	DefaultCacheSize     = 100
	DefaultCacheTTL      = 10 * time.Minute
	DefaultSlowThreshold = 2 * time.Second
)

// constructorArgWordSize is the number of calldata bytes assumed per constructor argument.
const constructorArgWordSize = 32

// Config contains configuration for the Estimator.
type Config struct {
	// CacheSize bounds the bytecode analysis cache (default: 100)
	CacheSize int
	// CacheTTL is how long an analysis stays cached after insertion (default: 10m)
	CacheTTL time.Duration
	// SlowThreshold triggers a warning when an operation takes longer (default: 2s)
	SlowThreshold time.Duration
	// DefaultNetwork is used when no network is given (default: sepolia)
	DefaultNetwork string
	Logger         *slog.Logger
}

// Estimator computes deterministic deployment gas estimates.
// Safe for concurrent use.
type Estimator struct {
	cache          *expirable.LRU[uint64, models.BytecodeAnalysis]
	slowThreshold  time.Duration
	defaultNetwork string
	logger         *slog.Logger
	now            func() time.Time
}

// EstimateOptions are the optional inputs of EstimateDeployment.
type EstimateOptions struct {
	Network         string
	ConstructorArgs []any
}

// New creates an Estimator with its own analysis cache.
func New(cfg Config) *Estimator {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultCacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = DefaultSlowThreshold
	}
	if cfg.DefaultNetwork == "" {
		cfg.DefaultNetwork = DefaultNetwork
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Estimator{
		cache:          expirable.NewLRU[uint64, models.BytecodeAnalysis](cfg.CacheSize, nil, cfg.CacheTTL),
		slowThreshold:  cfg.SlowThreshold,
		defaultNetwork: cfg.DefaultNetwork,
		logger:         logger,
		now:            time.Now,
	}
}

// EstimateDeployment estimates the gas needed to deploy bytecode.
func (e *Estimator) EstimateDeployment(bytecode string, opts EstimateOptions) (*models.GasEstimate, error) {
	start := e.now()

	network := opts.Network
	if network == "" {
		network = e.defaultNetwork
	}

	analysis, err := e.AnalyzeBytecode(bytecode)
	if err != nil {
		return nil, err
	}

	breakdown := models.GasBreakdown{
		BaseCost:            models.BaseTxGas,
		CreationCost:        models.ContractCreationGas,
		CodeStorageCost:     uint64(analysis.SizeInBytes) * models.CodeDepositGasPerByte,
		ConstructorDataCost: ConstructorDataCost(len(opts.ConstructorArgs)),
	}

	elapsed := e.now().Sub(start)
	e.observe("estimate_deployment", elapsed, slog.String("network", network), slog.Int("bytecode_size", analysis.SizeInBytes))

	return &models.GasEstimate{
		Network:       network,
		BytecodeSize:  analysis.SizeInBytes,
		DeploymentGas: breakdown.Total(),
		Breakdown:     breakdown,
		Analysis:      *analysis,
		DurationMs:    elapsed.Milliseconds(),
	}, nil
}

// ConstructorDataCost estimates calldata gas for argCount constructor
// arguments. Each argument is assumed to be one 32-byte word of alternating
// zero and non-zero bytes, priced per EIP-2028.
func ConstructorDataCost(argCount int) uint64 {
	if argCount <= 0 {
		return 0
	}
	var perArg uint64
	for i := 0; i < constructorArgWordSize; i++ {
		if i%2 == 0 {
			perArg += params.TxDataZeroGas
		} else {
			perArg += params.TxDataNonZeroGasEIP2028
		}
	}
	return uint64(argCount) * perArg
}

// observe records operation latency and warns when it exceeds the slow threshold.
func (e *Estimator) observe(operation string, elapsed time.Duration, attrs ...any) {
	metrics.EstimationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if elapsed <= e.slowThreshold {
		return
	}
	metrics.SlowOperations.WithLabelValues(operation).Inc()
	args := append([]any{
		slog.String("operation", operation),
		slog.Int64("duration_ms", elapsed.Milliseconds()),
		slog.Int64("threshold_ms", e.slowThreshold.Milliseconds()),
	}, attrs...)
	e.logger.Warn("slow gas estimation", args...)
}
