package simulator

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Deployment gas defaults.
const (
	fallbackGasLimit    = 10_000_000
	gasBufferPercent    = 120
	DefaultPollInterval = time.Second
)

// productionChainIDs are refused because the simulator signs with publicly
// known development keys.
var productionChainIDs = map[int64]string{
	1:     "Ethereum Mainnet",
	10:    "Optimism",
	42161: "Arbitrum One",
	137:   "Polygon",
	8453:  "Base",
}

// ErrProductionChain is returned when a dev-key client is pointed at a production network.
var ErrProductionChain = errors.New("simulator: refusing to deploy to a production chain")

// Receipt is the part of a transaction receipt the simulator needs.
type Receipt struct {
	ContractAddress *common.Address
	GasUsed         uint64
	Status          uint64
}

// ChainClient deploys contracts and waits for their receipts.
type ChainClient interface {
	DeployContract(ctx context.Context, data []byte, value *big.Int) (common.Hash, error)
	WaitForReceipt(ctx context.Context, hash common.Hash) (*Receipt, error)
}

// Backend is the subset of *ethclient.Client used by EthChainClient.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// EthChainConfig contains configuration for EthChainClient.
type EthChainConfig struct {
	// RPCURL of a development node such as Anvil (ignored when Backend is set)
	RPCURL string
	// PrivateKey is the hex-encoded deployer key
	PrivateKey string
	// PollInterval between receipt lookups (default: 1s)
	PollInterval time.Duration
	// Backend overrides the dialed ethclient (for testing)
	Backend Backend
	Logger  *slog.Logger
}

// EthChainClient deploys through a go-ethereum backend using a local key.
// Safe for concurrent use.
type EthChainClient struct {
	backend      Backend
	closer       func()
	key          *ecdsa.PrivateKey
	from         common.Address
	chainID      *big.Int
	pollInterval time.Duration
	logger       *slog.Logger

	mu sync.Mutex // serializes nonce assignment
}

// NewEthChainClient connects to the configured node and loads the deployer key.
// Production chain IDs are rejected.
func NewEthChainClient(ctx context.Context, cfg EthChainConfig) (*EthChainClient, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	backend := cfg.Backend
	closer := func() {}
	if backend == nil {
		client, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", cfg.RPCURL, err)
		}
		backend = client
		closer = client.Close
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		closer()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if name, ok := productionChainIDs[chainID.Int64()]; ok {
		closer()
		return nil, fmt.Errorf("%w: %s (chain_id=%s)", ErrProductionChain, name, chainID)
	}

	return &EthChainClient{
		backend:      backend,
		closer:       closer,
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		chainID:      chainID,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}, nil
}

// Address returns the deployer address.
func (c *EthChainClient) Address() common.Address {
	return c.from
}

// ChainID returns the connected chain ID.
func (c *EthChainClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Close releases the underlying connection.
func (c *EthChainClient) Close() {
	c.closer()
}

// DeployContract signs and sends a contract creation transaction.
func (c *EthChainClient) DeployContract(ctx context.Context, data []byte, value *big.Int) (common.Hash, error) {
	if value == nil {
		value = new(big.Int)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, c.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     c.from,
		To:       nil, // Contract creation
		GasPrice: gasPrice,
		Value:    value,
		Data:     data,
	})
	if err != nil {
		gasLimit = fallbackGasLimit
		c.logger.Warn("gas estimation failed, using default",
			slog.Uint64("gas_limit", gasLimit),
			slog.String("error", err.Error()),
		)
	}
	gasLimit = gasLimit * gasBufferPercent / 100

	tx := types.NewContractCreation(nonce, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	c.logger.Debug("deployment transaction sent",
		slog.String("tx_hash", signedTx.Hash().Hex()),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas_limit", gasLimit),
	)

	return signedTx.Hash(), nil
}

// WaitForReceipt polls until the transaction is mined or ctx is done.
// Lookup errors other than not-found are logged and retried, since geth
// reports pending transactions as "transaction indexing is in progress".
func (c *EthChainClient) WaitForReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			out := &Receipt{GasUsed: receipt.GasUsed, Status: receipt.Status}
			if receipt.ContractAddress != (common.Address{}) {
				addr := receipt.ContractAddress
				out.ContractAddress = &addr
			}
			return out, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			lastErr = err
			c.logger.Debug("receipt lookup failed, retrying",
				slog.String("tx_hash", hash.Hex()),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("wait for receipt %s (last error: %v): %w", hash.Hex(), lastErr, ctx.Err())
			}
			return nil, fmt.Errorf("wait for receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
