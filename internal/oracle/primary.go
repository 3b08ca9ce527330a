package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Bidon15/popsigner/gas-estimator/internal/metrics"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

const maxBodyBytes = 1 << 20

// linearBackOff waits step, 2*step, 3*step, ... between attempts.
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return b.step * time.Duration(b.attempt)
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// oracleResponse is the Etherscan gastracker body. Prices are Gwei and may be
// encoded as strings or numbers.
type oracleResponse struct {
	Result json.RawMessage `json:"result"`
}

type oracleResult struct {
	SafeGasPrice    *json.Number `json:"SafeGasPrice"`
	ProposeGasPrice *json.Number `json:"ProposeGasPrice"`
	FastGasPrice    *json.Number `json:"FastGasPrice"`
}

// fetchPrimary queries the gas oracle, retrying only rate-limited responses.
func (c *Client) fetchPrimary(ctx context.Context, n Network) (*models.GasPrice, error) {
	attempts := 0
	operation := func() (*models.GasPrice, error) {
		attempts++
		price, err := c.requestOracle(ctx, n)
		if err == nil {
			return price, nil
		}
		if isRateLimited(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		metrics.OracleRetries.WithLabelValues(n.Name).Inc()
		c.logger.Warn("gas oracle rate limited, retrying",
			slog.String("network", n.Name),
			slog.Int("attempt", attempts),
			slog.Duration("wait", wait),
		)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: c.retryDelay}, uint64(c.maxRetries)),
		ctx,
	)

	price, err := backoff.RetryNotifyWithData(operation, policy, notify)
	if err != nil {
		if isRateLimited(err) {
			return nil, &RetriesExhaustedError{Network: n.Name, Attempts: attempts, Err: err}
		}
		return nil, err
	}
	return price, nil
}

func isRateLimited(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests
}

// requestOracle performs one oracle round trip.
func (c *Client) requestOracle(ctx context.Context, n Network) (*models.GasPrice, error) {
	endpoint, err := c.oracleURL(n)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gas oracle request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{Network: n.Name, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	return parseOracleResponse(n.Name, body, c.now())
}

func (c *Client) oracleURL(n Network) (string, error) {
	if c.apiKey == "" {
		return n.OracleURL, nil
	}
	u, err := url.Parse(n.OracleURL)
	if err != nil {
		return "", fmt.Errorf("invalid oracle url for %s: %w", n.Name, err)
	}
	q := u.Query()
	q.Set("apikey", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func parseOracleResponse(network string, body []byte, now time.Time) (*models.GasPrice, error) {
	var resp oracleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ParseError{Network: network, Err: err}
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, &ParseError{Network: network, Field: "result"}
	}

	var result oracleResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		// Etherscan reports rate limiting as a string result with status 200.
		return nil, &ParseError{Network: network, Field: "result", Err: err}
	}

	slow, err := gweiField(network, "SafeGasPrice", result.SafeGasPrice)
	if err != nil {
		return nil, err
	}
	standard, err := gweiField(network, "ProposeGasPrice", result.ProposeGasPrice)
	if err != nil {
		return nil, err
	}
	fast, err := gweiField(network, "FastGasPrice", result.FastGasPrice)
	if err != nil {
		return nil, err
	}

	return &models.GasPrice{
		Network:     network,
		Slow:        slow,
		Standard:    standard,
		Fast:        fast,
		TimestampMs: now.UnixMilli(),
		Source:      models.SourceOracle,
	}, nil
}

func gweiField(network, field string, v *json.Number) (float64, error) {
	if v == nil || *v == "" {
		return 0, &ParseError{Network: network, Field: field}
	}
	gwei, err := strconv.ParseFloat(v.String(), 64)
	if err != nil {
		return 0, &ParseError{Network: network, Field: field, Err: err}
	}
	if gwei < 0 {
		return 0, &ParseError{Network: network, Field: field, Err: errors.New("negative price")}
	}
	return gwei, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
