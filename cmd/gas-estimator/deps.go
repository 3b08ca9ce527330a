package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Bidon15/popsigner/gas-estimator/internal/config"
	"github.com/Bidon15/popsigner/gas-estimator/internal/database"
	"github.com/Bidon15/popsigner/gas-estimator/internal/estimator"
	"github.com/Bidon15/popsigner/gas-estimator/internal/oracle"
	"github.com/Bidon15/popsigner/gas-estimator/internal/report"
	"github.com/Bidon15/popsigner/gas-estimator/internal/simulator"
)

// app holds the components built from the loaded configuration.
type app struct {
	estimator *estimator.Estimator
	oracle    *oracle.Client
	simulator *simulator.Simulator
	reporter  *report.Reporter
	redis     *database.Redis
	closers   []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp wires the estimator, oracle and reporter. The simulator is only
// connected when withSimulator is set, since it dials a dev node.
func newApp(ctx context.Context, cfg *config.Config, withSimulator bool) (*app, error) {
	a := &app{}

	a.estimator = estimator.New(estimator.Config{
		CacheSize:      cfg.Estimator.CacheSize,
		CacheTTL:       cfg.Estimator.CacheTTL,
		SlowThreshold:  cfg.Estimator.SlowThreshold,
		DefaultNetwork: cfg.Estimator.DefaultNetwork,
		Logger:         logger,
	})

	var cache oracle.PriceCache
	if cfg.Redis.Enabled {
		redis, err := database.NewRedis(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = redis
		a.closers = append(a.closers, func() { _ = redis.Close() })
		cache = oracle.NewRedisCache(redis)
	}

	networks := make([]oracle.Network, len(cfg.Networks))
	for i, n := range cfg.Networks {
		networks[i] = oracle.Network{Name: n.Name, OracleURL: n.OracleURL, RPCURL: n.RPCURL}
	}
	a.oracle = oracle.New(oracle.Config{
		Networks:   networks,
		APIKey:     cfg.Oracle.APIKey,
		HTTPClient: &http.Client{Timeout: cfg.Oracle.RequestTimeout},
		Cache:      cache,
		RetryDelay: cfg.Oracle.RetryDelay,
		MaxRetries: cfg.Oracle.MaxRetries,
		CacheTTL:   cfg.Oracle.CacheTTL,
		Logger:     logger,
	})

	var sim report.DeploymentSimulator
	if withSimulator {
		chain, err := simulator.NewEthChainClient(ctx, simulator.EthChainConfig{
			RPCURL:       cfg.Simulator.RPCURL,
			PrivateKey:   cfg.Simulator.PrivateKey,
			PollInterval: cfg.Simulator.PollInterval,
			Logger:       logger,
		})
		if err != nil {
			// Reports then carry a missing simulator warning.
			logger.Warn("simulation disabled: " + err.Error())
		} else {
			a.closers = append(a.closers, chain.Close)
			a.simulator = simulator.New(simulator.Config{
				Client:         chain,
				ReceiptTimeout: cfg.Simulator.ReceiptTimeout,
				Logger:         logger,
			})
			sim = a.simulator
		}
	}

	reporter, err := report.New(report.Config{
		Estimator:      a.estimator,
		Prices:         a.oracle,
		Simulator:      sim,
		DefaultNetwork: cfg.Estimator.DefaultNetwork,
		Logger:         logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.reporter = reporter

	return a, nil
}
