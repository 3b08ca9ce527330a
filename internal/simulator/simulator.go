// Package simulator runs contract deployments against a development chain
// and compares the gas actually used with the model's estimate.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"

	"github.com/Bidon15/popsigner/gas-estimator/internal/metrics"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Defaults
const (
	DefaultNetwork        = "localhost"
	DefaultReceiptTimeout = 2 * time.Minute

	// tolerancePercent is the accepted estimate error relative to actual gas.
	tolerancePercent = 10
)

// Failure messages
const (
	msgMissingPrefix = "bytecode must start with 0x"
	msgReverted      = "transaction reverted"
	msgNoClient      = "no chain client configured"
)

// Config contains configuration for the Simulator.
type Config struct {
	// Client is the default chain client; Options.Client overrides it per call
	Client ChainClient
	// ReceiptTimeout bounds the wait for a receipt (default: 2m)
	ReceiptTimeout time.Duration
	Logger         *slog.Logger
}

// Options are the inputs of SimulateDeployment.
type Options struct {
	Network         string
	ConstructorArgs []any
	Value           *big.Int
	Client          ChainClient
}

// Simulator executes deployments and reports actual gas usage.
type Simulator struct {
	client         ChainClient
	receiptTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// New creates a new Simulator.
func New(cfg Config) *Simulator {
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = DefaultReceiptTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		client:         cfg.Client,
		receiptTimeout: cfg.ReceiptTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// SimulateDeployment deploys bytecode and reports the gas used. It never
// fails: every problem, including a panic in the chain client, is returned
// as a result with Success=false and Error set.
func (s *Simulator) SimulateDeployment(ctx context.Context, bytecode string, opts Options) (result *models.SimulationResult) {
	network := opts.Network
	if network == "" {
		network = DefaultNetwork
	}
	logger := s.logger.With(slog.String("run_id", uuid.NewString()), slog.String("network", network))

	result = &models.SimulationResult{Network: network}
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("simulation panicked: %v", r)
		}
		result.TimestampMs = s.now().UnixMilli()

		outcome := metrics.OutcomeSuccess
		if !result.Success {
			outcome = metrics.OutcomeFailure
			logger.Warn("deployment simulation failed", slog.String("error", result.Error))
		}
		metrics.Simulations.WithLabelValues(network, outcome).Inc()
	}()

	fail := func(msg string) *models.SimulationResult {
		result.Success = false
		result.Error = msg
		return result
	}

	if !strings.HasPrefix(bytecode, "0x") {
		return fail(msgMissingPrefix)
	}
	code, err := hexutil.Decode(bytecode)
	if err != nil {
		return fail(fmt.Sprintf("invalid bytecode: %v", err))
	}

	args, err := EncodeConstructorArgs(opts.ConstructorArgs)
	if err != nil {
		return fail(err.Error())
	}
	data := append(code, args...)

	client := opts.Client
	if client == nil {
		client = s.client
	}
	if client == nil {
		return fail(msgNoClient)
	}

	logger.Info("simulating deployment", slog.Int("data_size", len(data)))

	hash, err := client.DeployContract(ctx, data, opts.Value)
	if err != nil {
		return fail(fmt.Sprintf("deploy contract: %v", err))
	}
	result.TransactionHash = hash.Hex()

	waitCtx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	defer cancel()

	receipt, err := client.WaitForReceipt(waitCtx, hash)
	if err != nil {
		return fail(fmt.Sprintf("wait for receipt: %v", err))
	}
	if receipt == nil {
		return fail("wait for receipt: empty receipt")
	}

	result.ActualGasUsed = receipt.GasUsed
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fail(msgReverted)
	}

	result.Success = true
	if receipt.ContractAddress != nil {
		addr := receipt.ContractAddress.Hex()
		result.DeploymentAddress = &addr
	}
	// DeploymentCost may be negative on chains that report unusual gas; it is not normalized.
	result.GasBreakdown = models.SimulationGasBreakdown{
		BaseCost:       int64(params.TxGas),
		DeploymentCost: int64(receipt.GasUsed) - int64(params.TxGas),
	}

	logger.Info("deployment simulated",
		slog.String("tx_hash", result.TransactionHash),
		slog.Uint64("gas_used", receipt.GasUsed),
	)
	return result
}

// CompareWithEstimate diffs a simulation against the model estimate.
// A zero actual gas yields zero accuracy and is never within tolerance.
func CompareWithEstimate(result *models.SimulationResult, estimate *models.GasEstimate) models.GasComparison {
	actual := result.ActualGasUsed
	estimated := estimate.DeploymentGas
	diff := int64(actual) - int64(estimated)
	absDiff := math.Abs(float64(diff))

	cmp := models.GasComparison{
		EstimatedGas: estimated,
		ActualGas:    actual,
		Difference:   diff,
	}
	if actual > 0 {
		cmp.AccuracyPercent = 100 - absDiff/float64(actual)*100
		cmp.WithinTolerance = absDiff < float64(actual)*tolerancePercent/100
	}
	return cmp
}
