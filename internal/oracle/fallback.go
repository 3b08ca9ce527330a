package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Spread applied to the single eth_gasPrice point estimate.
var (
	slowFactor = decimal.RequireFromString("0.8")
	fastFactor = decimal.RequireFromString("1.2")
)

// fetchFallback derives a price from the network's eth_gasPrice.
func (c *Client) fetchFallback(ctx context.Context, n Network) (*models.GasPrice, error) {
	if n.RPCURL == "" {
		return nil, fmt.Errorf("%w for %s", ErrNoFallback, n.Name)
	}

	caller, err := c.dial(ctx, n.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	defer caller.Close()

	var wei hexutil.Big
	if err := caller.CallContext(ctx, &wei, "eth_gasPrice"); err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) {
			return nil, &RPCError{Network: n.Name, Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
		}
		return nil, fmt.Errorf("eth_gasPrice: %w", err)
	}

	gwei := decimal.NewFromBigInt(wei.ToInt(), -9)
	return &models.GasPrice{
		Network:     n.Name,
		Slow:        gwei.Mul(slowFactor).InexactFloat64(),
		Standard:    gwei.InexactFloat64(),
		Fast:        gwei.Mul(fastFactor).InexactFloat64(),
		TimestampMs: c.now().UnixMilli(),
		Source:      models.SourceRPC,
	}, nil
}
