package oracle

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// AllOptions control multi-network fetches.
type AllOptions struct {
	// ContinueOnError omits failed networks instead of failing the call
	ContinueOnError bool
	UseFallback     bool
}

// GetAllGasPrices fetches every supported network concurrently.
func (c *Client) GetAllGasPrices(ctx context.Context, opts AllOptions) ([]*models.GasPrice, error) {
	return c.GetGasPrices(ctx, c.order, opts)
}

// GetGasPrices fetches the given networks concurrently and waits for all of
// them. One failure never cancels the other fetches. Results keep the order
// of networks.
func (c *Client) GetGasPrices(ctx context.Context, networks []string, opts AllOptions) ([]*models.GasPrice, error) {
	results := make([]*models.GasPrice, len(networks))
	errs := make([]error, len(networks))

	var g errgroup.Group
	for i, network := range networks {
		g.Go(func() error {
			results[i], errs[i] = c.FetchGasPrice(ctx, network, FetchOptions{UseFallback: opts.UseFallback})
			return nil
		})
	}
	_ = g.Wait()

	prices := make([]*models.GasPrice, 0, len(networks))
	var agg *AggregateError
	for i, network := range networks {
		if errs[i] == nil {
			prices = append(prices, results[i])
			continue
		}
		if opts.ContinueOnError {
			c.logger.Warn("skipping network without gas price",
				slog.String("network", network),
				slog.String("error", errs[i].Error()),
			)
			continue
		}
		if agg == nil {
			agg = newAggregateError()
		}
		agg.add(network, errs[i])
	}

	if agg != nil {
		return nil, agg
	}
	return prices, nil
}
