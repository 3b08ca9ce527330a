// Package handler provides HTTP handlers for the gas estimation API.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Bidon15/popsigner/gas-estimator/internal/estimator"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
	"github.com/Bidon15/popsigner/gas-estimator/internal/oracle"
	apierrors "github.com/Bidon15/popsigner/gas-estimator/internal/pkg/errors"
	"github.com/Bidon15/popsigner/gas-estimator/internal/pkg/response"
	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
)

const maxBodyBytes = 1 << 20

// PriceService supplies gas prices. Implemented by *oracle.Client.
type PriceService interface {
	report.PriceFetcher
	SupportedNetworks() []string
}

// ReportGenerator builds optimization reports. Implemented by *report.Reporter.
type ReportGenerator interface {
	GenerateReport(ctx context.Context, bytecode string, opts report.Options) (*models.OptimizationReport, error)
}

// Config contains the dependencies of GasHandler.
type Config struct {
	Estimator *estimator.Estimator
	Prices    PriceService
	Reports   ReportGenerator
	// DefaultNetwork is priced when a request names no network (default: sepolia)
	DefaultNetwork string
	// EthPriceUSD is used when a request carries no ETH price; zero disables USD costs
	EthPriceUSD float64
	Logger      *slog.Logger
}

// GasHandler handles estimation, pricing and report requests.
type GasHandler struct {
	estimator      *estimator.Estimator
	prices         PriceService
	reports        ReportGenerator
	defaultNetwork string
	ethPriceUSD    float64
	validate       *validator.Validate
	logger         *slog.Logger
}

// NewGasHandler creates a new gas handler. Estimator, Prices and Reports are required.
func NewGasHandler(cfg Config) (*GasHandler, error) {
	switch {
	case cfg.Estimator == nil:
		return nil, fmt.Errorf("%w: estimator", ErrMissingDependency)
	case cfg.Prices == nil:
		return nil, fmt.Errorf("%w: price service", ErrMissingDependency)
	case cfg.Reports == nil:
		return nil, fmt.Errorf("%w: report generator", ErrMissingDependency)
	}
	if cfg.DefaultNetwork == "" {
		cfg.DefaultNetwork = estimator.DefaultNetwork
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &GasHandler{
		estimator:      cfg.Estimator,
		prices:         cfg.Prices,
		reports:        cfg.Reports,
		defaultNetwork: cfg.DefaultNetwork,
		ethPriceUSD:    cfg.EthPriceUSD,
		validate:       validate,
		logger:         logger,
	}, nil
}

// Routes returns a chi router with the gas estimation routes.
func (h *GasHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/estimate", h.Estimate)
	r.Post("/estimate/priced", h.EstimatePriced)
	r.Post("/compare", h.Compare)
	r.Post("/report", h.Report)

	r.Get("/networks", h.ListNetworks)
	r.Get("/gas-prices", h.ListGasPrices)
	r.Get("/gas-prices/{network}", h.GetGasPrice)

	return r
}

// EstimateRequest is the HTTP request body for a static estimate.
type EstimateRequest struct {
	Bytecode        string `json:"bytecode" validate:"required,startswith=0x"`
	Network         string `json:"network" validate:"omitempty,max=64"`
	ConstructorArgs []any  `json:"constructorArgs"`
}

// Estimate handles POST /v1/estimate
func (h *GasHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if err := h.decode(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	est, err := h.estimator.EstimateDeployment(req.Bytecode, estimator.EstimateOptions{
		Network:         req.Network,
		ConstructorArgs: req.ConstructorArgs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, est)
}

// PricedEstimateRequest is the HTTP request body for a priced estimate.
type PricedEstimateRequest struct {
	Bytecode        string   `json:"bytecode" validate:"required,startswith=0x"`
	Network         string   `json:"network" validate:"omitempty,max=64"`
	Tier            string   `json:"tier" validate:"omitempty,oneof=slow standard fast"`
	EthPriceUSD     *float64 `json:"ethPriceUSD" validate:"omitempty,gt=0"`
	ConstructorArgs []any    `json:"constructorArgs"`
	UseFallback     bool     `json:"useFallback"`
}

// EstimatePriced handles POST /v1/estimate/priced
func (h *GasHandler) EstimatePriced(w http.ResponseWriter, r *http.Request) {
	var req PricedEstimateRequest
	if err := h.decode(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := estimator.ValidateBytecode(req.Bytecode); err != nil {
		h.writeError(w, err)
		return
	}

	network := h.network(req.Network)
	price, err := h.prices.FetchGasPrice(r.Context(), network, oracle.FetchOptions{UseFallback: req.UseFallback})
	if err != nil {
		h.writeError(w, priceError(err))
		return
	}

	priced, err := h.estimator.EstimateWithPrice(req.Bytecode, price, estimator.PriceOptions{
		Tier:            models.PriceTier(req.Tier),
		EthPriceUSD:     h.ethPrice(req.EthPriceUSD),
		ConstructorArgs: req.ConstructorArgs,
	}, network)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, priced)
}

// CompareRequest is the HTTP request body for a cross-network comparison.
type CompareRequest struct {
	Bytecode        string   `json:"bytecode" validate:"required,startswith=0x"`
	Networks        []string `json:"networks" validate:"required,min=1,dive,required"`
	Tier            string   `json:"tier" validate:"omitempty,oneof=slow standard fast"`
	SortBy          string   `json:"sortBy" validate:"omitempty,oneof=cost gas network"`
	EthPriceUSD     *float64 `json:"ethPriceUSD" validate:"omitempty,gt=0"`
	ConstructorArgs []any    `json:"constructorArgs"`
	UseFallback     bool     `json:"useFallback"`
	ContinueOnError bool     `json:"continueOnError"`
}

// Compare handles POST /v1/compare
func (h *GasHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := h.decode(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if err := estimator.ValidateBytecode(req.Bytecode); err != nil {
		h.writeError(w, err)
		return
	}

	prices, err := h.prices.GetGasPrices(r.Context(), req.Networks, oracle.AllOptions{
		ContinueOnError: req.ContinueOnError,
		UseFallback:     req.UseFallback,
	})
	if err != nil {
		h.writeError(w, priceError(err))
		return
	}
	if len(prices) == 0 {
		response.Error(w, apierrors.ErrUpstream.WithMessage("No gas prices available for the requested networks"))
		return
	}

	cmp, err := h.estimator.CompareNetworks(req.Bytecode, prices, estimator.CompareOptions{
		Tier:            models.PriceTier(req.Tier),
		SortBy:          estimator.SortBy(req.SortBy),
		EthPriceUSD:     h.ethPrice(req.EthPriceUSD),
		ConstructorArgs: req.ConstructorArgs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, cmp)
}

// ReportRequest is the HTTP request body for an optimization report.
type ReportRequest struct {
	Bytecode          string   `json:"bytecode" validate:"required,startswith=0x"`
	Network           string   `json:"network" validate:"omitempty,max=64"`
	IncludeSimulation bool     `json:"includeSimulation"`
	CompareNetworks   []string `json:"compareNetworks" validate:"omitempty,max=16,dive,required"`
	ConstructorArgs   []any    `json:"constructorArgs"`
	// Value is sent with a simulated deployment, in wei
	Value       string   `json:"value" validate:"omitempty,number"`
	EthPriceUSD *float64 `json:"ethPriceUSD" validate:"omitempty,gt=0"`
	Tier        string   `json:"tier" validate:"omitempty,oneof=slow standard fast"`
	UseFallback bool     `json:"useFallback"`
}

// Report handles POST /v1/report?format=json|cli|ci
func (h *GasHandler) Report(w http.ResponseWriter, r *http.Request) {
	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := report.ParseFormat(f)
		if err != nil {
			response.ValidationError(w, "format", "format must be one of: json cli ci")
			return
		}
		format = parsed
	}

	var req ReportRequest
	if err := h.decode(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	var value *big.Int
	if req.Value != "" {
		v, ok := new(big.Int).SetString(req.Value, 10)
		if !ok || v.Sign() < 0 {
			response.ValidationError(w, "value", "value must be a non-negative integer amount of wei")
			return
		}
		value = v
	}

	rep, err := h.reports.GenerateReport(r.Context(), req.Bytecode, report.Options{
		Network:           h.network(req.Network),
		IncludeSimulation: req.IncludeSimulation,
		CompareNetworks:   req.CompareNetworks,
		ConstructorArgs:   req.ConstructorArgs,
		Value:             value,
		EthPriceUSD:       h.ethPrice(req.EthPriceUSD),
		Tier:              models.PriceTier(req.Tier),
		UseFallback:       req.UseFallback,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	if format == report.FormatJSON {
		response.OK(w, rep)
		return
	}
	text, err := report.FormatReport(rep, format)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Text(w, http.StatusOK, text)
}

// ListNetworks handles GET /v1/networks
func (h *GasHandler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]any{"networks": h.prices.SupportedNetworks()})
}

// ListGasPrices handles GET /v1/gas-prices
func (h *GasHandler) ListGasPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prices, err := h.prices.GetGasPrices(r.Context(), h.prices.SupportedNetworks(), oracle.AllOptions{
		ContinueOnError: q.Get("continue_on_error") == "true",
		UseFallback:     q.Get("fallback") == "true",
	})
	if err != nil {
		h.writeError(w, priceError(err))
		return
	}

	response.OK(w, map[string]any{"prices": prices, "count": len(prices)})
}

// GetGasPrice handles GET /v1/gas-prices/{network}
func (h *GasHandler) GetGasPrice(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	price, err := h.prices.FetchGasPrice(r.Context(), network, oracle.FetchOptions{
		UseFallback: r.URL.Query().Get("fallback") == "true",
	})
	if err != nil {
		h.writeError(w, priceError(err))
		return
	}

	response.OK(w, price)
}

func (h *GasHandler) network(requested string) string {
	if requested == "" {
		return h.defaultNetwork
	}
	return requested
}

func (h *GasHandler) ethPrice(requested *float64) *float64 {
	if requested != nil {
		return requested
	}
	if h.ethPriceUSD > 0 {
		v := h.ethPriceUSD
		return &v
	}
	return nil
}

// decode reads a JSON body into dst and validates its tags. Numbers are kept
// as json.Number so large constructor arguments survive intact.
func (h *GasHandler) decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return apierrors.ErrBadRequest.WithMessage("Invalid request body")
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// writeError writes err as an API error. Unexpected errors are logged.
func (h *GasHandler) writeError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("code", apiErr.Code),
			slog.String("error", err.Error()),
		)
	}
	response.Error(w, apiErr)
}
