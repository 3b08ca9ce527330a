// Package oracle fetches per-network gas prices from Etherscan-family gas
// trackers, with rate-limit retries, a JSON-RPC fallback and a short-lived
// cache.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-multierror"

	"github.com/Bidon15/popsigner/gas-estimator/internal/metrics"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Defaults
const (
	DefaultRetryDelay     = time.Second
	DefaultMaxRetries     = 2
	DefaultCacheTTL       = 5 * time.Minute
	DefaultRequestTimeout = 10 * time.Second
)

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RPCCaller is the subset of *rpc.Client used by the fallback path.
type RPCCaller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
	Close()
}

// RPCDialer opens a JSON-RPC connection to url.
type RPCDialer func(ctx context.Context, url string) (RPCCaller, error)

// Network describes where to fetch prices for one network.
type Network struct {
	Name      string
	OracleURL string
	RPCURL    string
}

// Config contains configuration for the Client.
type Config struct {
	// Networks is the ordered set of supported networks
	Networks []Network
	// APIKey is appended to oracle requests as the apikey query parameter when set
	APIKey string
	// HTTPClient is an optional custom HTTP client (for testing)
	HTTPClient HTTPClient
	// Cache stores successful lookups (default: in-memory)
	Cache PriceCache
	// RetryDelay is the linear backoff step for rate-limited requests (default: 1s)
	RetryDelay time.Duration
	// MaxRetries is the number of retries after a rate-limited request (default: 2 when <= 0)
	MaxRetries int
	// CacheTTL is how long a fetched price is reused (default: 5m)
	CacheTTL time.Duration
	// RPCDialer opens fallback RPC connections (default: rpc.DialContext)
	RPCDialer RPCDialer
	Logger    *slog.Logger
}

// FetchOptions control a single price lookup.
type FetchOptions struct {
	UseFallback bool
}

// Client fetches gas prices. Safe for concurrent use.
type Client struct {
	networks   map[string]Network
	order      []string
	apiKey     string
	httpClient HTTPClient
	cache      PriceCache
	retryDelay time.Duration
	maxRetries int
	cacheTTL   time.Duration
	dial       RPCDialer
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a new Client.
func New(cfg Config) *Client {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultRequestTimeout}
	}
	if cfg.RPCDialer == nil {
		cfg.RPCDialer = dialRPC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		networks:   make(map[string]Network, len(cfg.Networks)),
		apiKey:     cfg.APIKey,
		httpClient: cfg.HTTPClient,
		cache:      cfg.Cache,
		retryDelay: cfg.RetryDelay,
		maxRetries: cfg.MaxRetries,
		cacheTTL:   cfg.CacheTTL,
		dial:       cfg.RPCDialer,
		logger:     logger,
		now:        time.Now,
	}
	for _, n := range cfg.Networks {
		if _, dup := c.networks[n.Name]; dup {
			continue
		}
		c.networks[n.Name] = n
		c.order = append(c.order, n.Name)
	}
	return c
}

func dialRPC(ctx context.Context, url string) (RPCCaller, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// SupportedNetworks returns the configured network names in order.
func (c *Client) SupportedNetworks() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// FetchGasPrice returns the current gas price for network. A cached price
// is returned without any network I/O. With UseFallback, a failed oracle
// lookup is retried against the network's JSON-RPC endpoint.
func (c *Client) FetchGasPrice(ctx context.Context, network string, opts FetchOptions) (*models.GasPrice, error) {
	n, ok := c.networks[network]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, network)
	}

	cached, hit, err := c.cache.Get(ctx, network)
	if err != nil {
		c.logger.Warn("gas price cache read failed", slog.String("network", network), slog.String("error", err.Error()))
	}
	if hit {
		metrics.GasPriceCacheLookups.WithLabelValues(network, metrics.ResultHit).Inc()
		c.logger.Debug("gas price cache hit", slog.String("network", network))
		return cached, nil
	}
	metrics.GasPriceCacheLookups.WithLabelValues(network, metrics.ResultMiss).Inc()

	price, primaryErr := c.fetchPrimary(ctx, n)
	if primaryErr == nil {
		c.record(ctx, price)
		return price, nil
	}
	metrics.GasPriceFetches.WithLabelValues(network, string(models.SourceOracle), metrics.OutcomeFailure).Inc()

	if !opts.UseFallback {
		return nil, fmt.Errorf("fetch gas price for %s: %w", network, primaryErr)
	}

	c.logger.Warn("gas oracle failed, using rpc fallback",
		slog.String("network", network),
		slog.String("error", primaryErr.Error()),
	)

	price, fallbackErr := c.fetchFallback(ctx, n)
	if fallbackErr != nil {
		metrics.GasPriceFetches.WithLabelValues(network, string(models.SourceRPC), metrics.OutcomeFailure).Inc()
		var result *multierror.Error
		result = multierror.Append(result,
			fmt.Errorf("oracle: %w", primaryErr),
			fmt.Errorf("rpc fallback: %w", fallbackErr),
		)
		result.ErrorFormat = inlineFormat
		return nil, fmt.Errorf("fetch gas price for %s: %w", network, result)
	}

	c.record(ctx, price)
	return price, nil
}

// record caches a successful lookup.
func (c *Client) record(ctx context.Context, price *models.GasPrice) {
	metrics.GasPriceFetches.WithLabelValues(price.Network, string(price.Source), metrics.OutcomeSuccess).Inc()
	c.logger.Info("fetched gas price",
		slog.String("network", price.Network),
		slog.String("source", string(price.Source)),
		slog.Float64("standard_gwei", price.Standard),
	)
	if err := c.cache.Set(ctx, price, c.cacheTTL); err != nil {
		c.logger.Warn("gas price cache write failed", slog.String("network", price.Network), slog.String("error", err.Error()))
	}
}
