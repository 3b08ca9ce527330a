package simulator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Anvil account #0.
const anvilKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// Init code that deploys a 10-byte runtime returning 42.
const answerBytecode = "0x600a600c600039600a6000f3602a60005260206000f3"

// Init code that always reverts.
const revertBytecode = "0x60006000fd"

func newSimulatedChain(t *testing.T) (*simulated.Backend, *EthChainClient) {
	t.Helper()

	key, err := crypto.HexToECDSA(anvilKey)
	require.NoError(t, err)
	deployer := crypto.PubkeyToAddress(key.PublicKey)

	balance := new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))
	backend := simulated.NewBackend(types.GenesisAlloc{deployer: {Balance: balance}})
	t.Cleanup(func() { _ = backend.Close() })

	client, err := NewEthChainClient(context.Background(), EthChainConfig{
		PrivateKey:   "0x" + anvilKey,
		PollInterval: 10 * time.Millisecond,
		Backend:      backend.Client(),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	assert.Equal(t, deployer, client.Address())

	return backend, client
}

// committingClient mines a block after every deployment.
type committingClient struct {
	*EthChainClient
	backend *simulated.Backend
}

func (c committingClient) DeployContract(ctx context.Context, data []byte, value *big.Int) (common.Hash, error) {
	hash, err := c.EthChainClient.DeployContract(ctx, data, value)
	if err == nil {
		c.backend.Commit()
	}
	return hash, err
}

func TestEthChainClient_Deploy(t *testing.T) {
	backend, client := newSimulatedChain(t)
	ctx := context.Background()

	hash, err := client.DeployContract(ctx, common.FromHex(answerBytecode), nil)
	require.NoError(t, err)
	backend.Commit()

	receipt, err := client.WaitForReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.NotNil(t, receipt.ContractAddress)
	assert.Equal(t, crypto.CreateAddress(client.Address(), 0), *receipt.ContractAddress)
	assert.Greater(t, receipt.GasUsed, params.TxGas+params.CreateGas)

	code, err := backend.Client().CodeAt(ctx, *receipt.ContractAddress, nil)
	require.NoError(t, err)
	assert.Equal(t, common.FromHex("0x602a60005260206000f3"), code)
}

func TestEthChainClient_SequentialNonces(t *testing.T) {
	backend, client := newSimulatedChain(t)
	ctx := context.Background()

	first, err := client.DeployContract(ctx, common.FromHex(answerBytecode), nil)
	require.NoError(t, err)
	second, err := client.DeployContract(ctx, common.FromHex(answerBytecode), nil)
	require.NoError(t, err)
	backend.Commit()

	r1, err := client.WaitForReceipt(ctx, first)
	require.NoError(t, err)
	r2, err := client.WaitForReceipt(ctx, second)
	require.NoError(t, err)
	assert.NotEqual(t, *r1.ContractAddress, *r2.ContractAddress)
}

func TestEthChainClient_WaitTimesOut(t *testing.T) {
	_, client := newSimulatedChain(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.WaitForReceipt(ctx, common.HexToHash("0x1234"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSimulateDeployment_SimulatedChain(t *testing.T) {
	backend, client := newSimulatedChain(t)
	s := newTestSimulator(committingClient{EthChainClient: client, backend: backend})

	result := s.SimulateDeployment(context.Background(), answerBytecode, Options{Network: "simulated"})
	require.True(t, result.Success, result.Error)
	require.NotNil(t, result.DeploymentAddress)
	assert.Greater(t, result.ActualGasUsed, uint64(53000))
	assert.Equal(t, int64(result.ActualGasUsed)-21000, result.GasBreakdown.DeploymentCost)

	cmp := CompareWithEstimate(result, &models.GasEstimate{DeploymentGas: 21000 + 32000 + 22*200})
	assert.Equal(t, result.ActualGasUsed, cmp.ActualGas)
	assert.Greater(t, cmp.AccuracyPercent, 0.0)
}

func TestSimulateDeployment_SimulatedRevert(t *testing.T) {
	backend, client := newSimulatedChain(t)
	s := newTestSimulator(committingClient{EthChainClient: client, backend: backend})

	result := s.SimulateDeployment(context.Background(), revertBytecode, Options{})
	assert.False(t, result.Success)
	assert.Equal(t, "transaction reverted", result.Error)
	assert.NotEmpty(t, result.TransactionHash)
}

type fakeBackend struct {
	Backend
	chainID  int64
	receipts atomic.Int32
	// pendingErr is returned while the transaction is not mined (default: ethereum.NotFound)
	pendingErr error
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(f.chainID), nil
}

func (f *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if f.receipts.Add(1) < 3 {
		if f.pendingErr != nil {
			return nil, f.pendingErr
		}
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 70000}, nil
}

func TestNewEthChainClient_RefusesProductionChains(t *testing.T) {
	for _, id := range []int64{1, 10, 137, 8453, 42161} {
		_, err := NewEthChainClient(context.Background(), EthChainConfig{
			PrivateKey: anvilKey,
			Backend:    &fakeBackend{chainID: id},
		})
		assert.ErrorIs(t, err, ErrProductionChain, "chain %d", id)
	}

	_, err := NewEthChainClient(context.Background(), EthChainConfig{
		PrivateKey: anvilKey,
		Backend:    &fakeBackend{chainID: 31337},
	})
	assert.NoError(t, err)
}

func TestNewEthChainClient_BadKey(t *testing.T) {
	_, err := NewEthChainClient(context.Background(), EthChainConfig{
		PrivateKey: "not-a-key",
		Backend:    &fakeBackend{chainID: 31337},
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrProductionChain))
}

func TestEthChainClient_PollsUntilMined(t *testing.T) {
	backend := &fakeBackend{chainID: 31337}
	client, err := NewEthChainClient(context.Background(), EthChainConfig{
		PrivateKey:   anvilKey,
		PollInterval: time.Millisecond,
		Backend:      backend,
	})
	require.NoError(t, err)

	receipt, err := client.WaitForReceipt(context.Background(), common.Hash{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(70000), receipt.GasUsed)
	assert.Nil(t, receipt.ContractAddress)
	assert.Equal(t, int32(3), backend.receipts.Load())
}

func TestEthChainClient_RetriesTransientReceiptErrors(t *testing.T) {
	backend := &fakeBackend{chainID: 31337, pendingErr: errors.New("transaction indexing is in progress")}
	client, err := NewEthChainClient(context.Background(), EthChainConfig{
		PrivateKey:   anvilKey,
		PollInterval: time.Millisecond,
		Backend:      backend,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	receipt, err := client.WaitForReceipt(context.Background(), common.Hash{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(70000), receipt.GasUsed)
	assert.Equal(t, int32(3), backend.receipts.Load())
}

func TestEthChainClient_WaitsForLateBlock(t *testing.T) {
	backend, client := newSimulatedChain(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hash, err := client.DeployContract(ctx, common.FromHex(answerBytecode), nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		backend.Commit()
	}()

	receipt, err := client.WaitForReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.NotNil(t, receipt.ContractAddress)
}
