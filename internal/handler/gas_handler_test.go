package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/popsigner/gas-estimator/internal/estimator"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
	"github.com/Bidon15/popsigner/gas-estimator/internal/oracle"
	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
)

const sampleBytecode = "0x6080604052348015600f57600080fd5b50603f80601d6000396000f3fe6080604052"

// MockPriceService is a mock implementation of PriceService.
type MockPriceService struct {
	mock.Mock
}

func (m *MockPriceService) FetchGasPrice(ctx context.Context, network string, opts oracle.FetchOptions) (*models.GasPrice, error) {
	args := m.Called(ctx, network, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GasPrice), args.Error(1)
}

func (m *MockPriceService) GetGasPrices(ctx context.Context, networks []string, opts oracle.AllOptions) ([]*models.GasPrice, error) {
	args := m.Called(ctx, networks, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GasPrice), args.Error(1)
}

func (m *MockPriceService) SupportedNetworks() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

// mockReportGenerator is a mock implementation of ReportGenerator.
type mockReportGenerator struct {
	generateFunc func(ctx context.Context, bytecode string, opts report.Options) (*models.OptimizationReport, error)
}

func (m *mockReportGenerator) GenerateReport(ctx context.Context, bytecode string, opts report.Options) (*models.OptimizationReport, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, bytecode, opts)
	}
	return nil, nil
}

type envelope[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeEnvelope[T any](t *testing.T, body io.Reader) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	return env
}

func price(network string, standard float64) *models.GasPrice {
	return &models.GasPrice{Network: network, Slow: standard / 2, Standard: standard, Fast: standard * 2, Source: models.SourceOracle}
}

func newTestHandler(prices PriceService, reports ReportGenerator) *GasHandler {
	return newTestHandlerWithConfig(Config{Prices: prices, Reports: reports})
}

func newTestHandlerWithConfig(cfg Config) *GasHandler {
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.Estimator = estimator.New(estimator.Config{Logger: cfg.Logger})
	if cfg.Reports == nil {
		cfg.Reports = &mockReportGenerator{}
	}
	h, err := NewGasHandler(cfg)
	if err != nil {
		panic(err)
	}
	return h
}

func TestNewGasHandler_RequiresDependencies(t *testing.T) {
	est := estimator.New(estimator.Config{})
	prices := new(MockPriceService)
	reports := &mockReportGenerator{}

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no estimator", Config{Prices: prices, Reports: reports}},
		{"no prices", Config{Estimator: est, Reports: reports}},
		{"no reports", Config{Estimator: est, Prices: prices}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGasHandler(tt.cfg)
			assert.ErrorIs(t, err, ErrMissingDependency)
		})
	}

	h, err := NewGasHandler(Config{Estimator: est, Prices: prices, Reports: reports})
	require.NoError(t, err)
	assert.Equal(t, estimator.DefaultNetwork, h.defaultNetwork)
}

func do(h *GasHandler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)
	return rr
}

func TestGasHandler_Estimate(t *testing.T) {
	h := newTestHandler(new(MockPriceService), nil)

	rr := do(h, http.MethodPost, "/estimate", map[string]any{
		"bytecode":        sampleBytecode,
		"network":         "mainnet",
		"constructorArgs": []any{1, "0xabcdef"},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope[models.GasEstimate](t, rr.Body)
	assert.Equal(t, "mainnet", env.Data.Network)
	assert.Equal(t, 34, env.Data.BytecodeSize)
	assert.Equal(t, uint64(59800+2*640), env.Data.DeploymentGas)
}

func TestGasHandler_Estimate_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantCode  string
		wantField string
	}{
		{"malformed json", `{"bytecode":`, "bad_request", ""},
		{"missing bytecode", map[string]any{}, "validation_error", "bytecode"},
		{"missing prefix", map[string]any{"bytecode": "6080"}, "validation_error", "bytecode"},
		{"invalid hex", map[string]any{"bytecode": "0xzz"}, "validation_error", "field"},
		{"network too long", map[string]any{"bytecode": sampleBytecode, "network": strings.Repeat("n", 65)}, "validation_error", "network"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(new(MockPriceService), nil)
			rr := do(h, http.MethodPost, "/estimate", tt.body)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			env := decodeEnvelope[any](t, rr.Body)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			if tt.wantField != "" {
				assert.Contains(t, env.Error.Details, tt.wantField)
			}
		})
	}
}

func TestGasHandler_EstimatePriced(t *testing.T) {
	prices := new(MockPriceService)
	prices.On("FetchGasPrice", mock.Anything, "mainnet", oracle.FetchOptions{UseFallback: true}).
		Return(price("mainnet", 20), nil)
	h := newTestHandler(prices, nil)

	rr := do(h, http.MethodPost, "/estimate/priced", map[string]any{
		"bytecode":    sampleBytecode,
		"network":     "mainnet",
		"ethPriceUSD": 2000,
		"useFallback": true,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope[models.PricedEstimate](t, rr.Body)
	assert.Equal(t, "1196000000000000", env.Data.CostInWei)
	assert.Equal(t, models.TierStandard, env.Data.Tier)
	require.NotNil(t, env.Data.CostInUSD)
	assert.InDelta(t, 2.392, *env.Data.CostInUSD, 1e-9)
	prices.AssertExpectations(t)
}

func TestGasHandler_EstimatePriced_Defaults(t *testing.T) {
	prices := new(MockPriceService)
	prices.On("FetchGasPrice", mock.Anything, "sepolia", oracle.FetchOptions{}).
		Return(price("sepolia", 2), nil)
	h := newTestHandlerWithConfig(Config{Prices: prices, EthPriceUSD: 3000})

	rr := do(h, http.MethodPost, "/estimate/priced", map[string]any{"bytecode": sampleBytecode, "tier": "fast"})

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope[models.PricedEstimate](t, rr.Body)
	assert.Equal(t, "sepolia", env.Data.Network)
	assert.Equal(t, models.TierFast, env.Data.Tier)
	assert.Equal(t, 4.0, env.Data.GasPriceUsed)
	assert.NotNil(t, env.Data.CostInUSD)
}

func TestGasHandler_EstimatePriced_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]any
		fetchErr   error
		wantStatus int
		wantCode   string
	}{
		{"unsupported network", map[string]any{"bytecode": sampleBytecode, "network": "solana"}, fmt.Errorf("%w: solana", oracle.ErrUnsupportedNetwork), http.StatusBadRequest, "validation_error"},
		{"oracle failure", map[string]any{"bytecode": sampleBytecode, "network": "mainnet"}, oracle.ErrRetriesExhausted, http.StatusBadGateway, "upstream_error"},
		{"plain transport failure", map[string]any{"bytecode": sampleBytecode, "network": "mainnet"}, errors.New("connection refused"), http.StatusBadGateway, "upstream_error"},
		{"invalid tier", map[string]any{"bytecode": sampleBytecode, "tier": "turbo"}, nil, http.StatusBadRequest, "validation_error"},
		{"negative eth price", map[string]any{"bytecode": sampleBytecode, "ethPriceUSD": -1}, nil, http.StatusBadRequest, "validation_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := new(MockPriceService)
			if tt.fetchErr != nil {
				prices.On("FetchGasPrice", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.fetchErr)
			}
			h := newTestHandler(prices, nil)

			rr := do(h, http.MethodPost, "/estimate/priced", tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			env := decodeEnvelope[any](t, rr.Body)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			prices.AssertExpectations(t)
		})
	}
}

func TestGasHandler_EstimatePriced_InvalidBytecodeSkipsFetch(t *testing.T) {
	prices := new(MockPriceService)
	h := newTestHandler(prices, nil)

	rr := do(h, http.MethodPost, "/estimate/priced", map[string]any{"bytecode": "0x123"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	prices.AssertNotCalled(t, "FetchGasPrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestGasHandler_Compare(t *testing.T) {
	prices := new(MockPriceService)
	prices.On("GetGasPrices", mock.Anything, []string{"mainnet", "arbitrum"}, oracle.AllOptions{ContinueOnError: true}).
		Return([]*models.GasPrice{price("mainnet", 30), price("arbitrum", 0.1)}, nil)
	h := newTestHandler(prices, nil)

	rr := do(h, http.MethodPost, "/compare", map[string]any{
		"bytecode":        sampleBytecode,
		"networks":        []string{"mainnet", "arbitrum"},
		"sortBy":          "cost",
		"continueOnError": true,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope[models.NetworkComparison](t, rr.Body)
	assert.Equal(t, "arbitrum", env.Data.Cheapest.Network)
	assert.Equal(t, "mainnet", env.Data.MostExpensive.Network)
	require.Len(t, env.Data.Estimates, 2)
	assert.Equal(t, "arbitrum", env.Data.Estimates[0].Network)
	prices.AssertExpectations(t)
}

func TestGasHandler_Compare_Errors(t *testing.T) {
	t.Run("no networks", func(t *testing.T) {
		h := newTestHandler(new(MockPriceService), nil)
		rr := do(h, http.MethodPost, "/compare", map[string]any{"bytecode": sampleBytecode, "networks": []string{}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid sort", func(t *testing.T) {
		h := newTestHandler(new(MockPriceService), nil)
		rr := do(h, http.MethodPost, "/compare", map[string]any{"bytecode": sampleBytecode, "networks": []string{"mainnet"}, "sortBy": "name"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("fan-out failure", func(t *testing.T) {
		prices := new(MockPriceService)
		prices.On("GetGasPrices", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("failed to fetch gas prices for mainnet"))
		h := newTestHandler(prices, nil)

		rr := do(h, http.MethodPost, "/compare", map[string]any{"bytecode": sampleBytecode, "networks": []string{"mainnet"}})
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})

	t.Run("every network dropped", func(t *testing.T) {
		prices := new(MockPriceService)
		prices.On("GetGasPrices", mock.Anything, mock.Anything, mock.Anything).Return([]*models.GasPrice{}, nil)
		h := newTestHandler(prices, nil)

		rr := do(h, http.MethodPost, "/compare", map[string]any{"bytecode": sampleBytecode, "networks": []string{"mainnet"}, "continueOnError": true})
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}

func TestGasHandler_Report(t *testing.T) {
	var got report.Options
	reports := &mockReportGenerator{
		generateFunc: func(_ context.Context, bytecode string, opts report.Options) (*models.OptimizationReport, error) {
			got = opts
			return &models.OptimizationReport{ID: "01HQZX3Y4K5M6N7P8Q9R0S1T2V", Network: opts.Network, OptimizationScore: 90}, nil
		},
	}
	h := newTestHandler(new(MockPriceService), reports)

	rr := do(h, http.MethodPost, "/report", map[string]any{
		"bytecode":          sampleBytecode,
		"network":           "mainnet",
		"includeSimulation": true,
		"compareNetworks":   []string{"arbitrum"},
		"value":             "1000",
		"tier":              "slow",
		"constructorArgs":   []any{uint64(12345678901234567890)},
	})

	require.Equal(t, http.StatusOK, rr.Code)
	env := decodeEnvelope[models.OptimizationReport](t, rr.Body)
	assert.Equal(t, 90, env.Data.OptimizationScore)

	assert.Equal(t, "mainnet", got.Network)
	assert.True(t, got.IncludeSimulation)
	assert.Equal(t, []string{"arbitrum"}, got.CompareNetworks)
	assert.Equal(t, "1000", got.Value.String())
	assert.Equal(t, models.TierSlow, got.Tier)
	require.Len(t, got.ConstructorArgs, 1)
	assert.Equal(t, json.Number("12345678901234567890"), got.ConstructorArgs[0])
}

func TestGasHandler_Report_TextFormats(t *testing.T) {
	reports := &mockReportGenerator{
		generateFunc: func(_ context.Context, _ string, opts report.Options) (*models.OptimizationReport, error) {
			return &models.OptimizationReport{Network: opts.Network}, nil
		},
	}
	h := newTestHandler(new(MockPriceService), reports)

	rr := do(h, http.MethodPost, "/report?format=ci", map[string]any{"bytecode": sampleBytecode})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/plain")
	assert.True(t, strings.HasPrefix(rr.Body.String(), "## Gas Optimization Report"))
	assert.Contains(t, rr.Body.String(), "sepolia")
}

func TestGasHandler_Report_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       map[string]any
		genErr     error
		wantStatus int
	}{
		{"unknown format", "/report?format=xml", map[string]any{"bytecode": sampleBytecode}, nil, http.StatusBadRequest},
		{"negative value", "/report", map[string]any{"bytecode": sampleBytecode, "value": "-1"}, nil, http.StatusBadRequest},
		{"fractional value", "/report", map[string]any{"bytecode": sampleBytecode, "value": "1.5"}, nil, http.StatusBadRequest},
		{"invalid bytecode", "/report", map[string]any{"bytecode": sampleBytecode}, &estimator.ValidationError{Field: "bytecode", Reason: estimator.ReasonInvalidHex, Message: "bad"}, http.StatusBadRequest},
		{"network mismatch", "/report", map[string]any{"bytecode": sampleBytecode}, &estimator.NetworkMismatchError{Requested: "mainnet", PriceNetwork: "base"}, http.StatusBadRequest},
		{"price unavailable", "/report", map[string]any{"bytecode": sampleBytecode}, fmt.Errorf("%w: %w", report.ErrPriceUnavailable, oracle.ErrRetriesExhausted), http.StatusBadGateway},
		{"unsupported network", "/report", map[string]any{"bytecode": sampleBytecode}, fmt.Errorf("%w: %w", report.ErrPriceUnavailable, oracle.ErrUnsupportedNetwork), http.StatusBadRequest},
		{"unexpected failure", "/report", map[string]any{"bytecode": sampleBytecode}, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			reports := &mockReportGenerator{
				generateFunc: func(context.Context, string, report.Options) (*models.OptimizationReport, error) {
					called = true
					return nil, tt.genErr
				},
			}
			h := newTestHandler(new(MockPriceService), reports)

			rr := do(h, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.genErr != nil, called)
		})
	}
}

func TestGasHandler_GasPrices(t *testing.T) {
	prices := new(MockPriceService)
	prices.On("SupportedNetworks").Return([]string{"mainnet", "base"})
	prices.On("GetGasPrices", mock.Anything, []string{"mainnet", "base"}, oracle.AllOptions{ContinueOnError: true, UseFallback: true}).
		Return([]*models.GasPrice{price("mainnet", 20)}, nil)
	prices.On("FetchGasPrice", mock.Anything, "base", oracle.FetchOptions{}).Return(price("base", 0.01), nil)
	h := newTestHandler(prices, nil)

	rr := do(h, http.MethodGet, "/gas-prices?continue_on_error=true&fallback=true", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeEnvelope[struct {
		Prices []models.GasPrice `json:"prices"`
		Count  int               `json:"count"`
	}](t, rr.Body)
	assert.Equal(t, 1, list.Data.Count)

	rr = do(h, http.MethodGet, "/gas-prices/base", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	one := decodeEnvelope[models.GasPrice](t, rr.Body)
	assert.Equal(t, "base", one.Data.Network)

	rr = do(h, http.MethodGet, "/networks", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	networks := decodeEnvelope[map[string][]string](t, rr.Body)
	assert.Equal(t, []string{"mainnet", "base"}, networks.Data["networks"])

	prices.AssertExpectations(t)
}

func TestGasHandler_GetGasPrice_Unsupported(t *testing.T) {
	prices := new(MockPriceService)
	prices.On("FetchGasPrice", mock.Anything, "solana", mock.Anything).
		Return(nil, fmt.Errorf("%w: solana", oracle.ErrUnsupportedNetwork))
	h := newTestHandler(prices, nil)

	rr := do(h, http.MethodGet, "/gas-prices/solana", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
