// Package config provides configuration loading for the gas estimator.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	Networks  []NetworkConfig `mapstructure:"networks"`
	Estimator EstimatorConfig `mapstructure:"estimator"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Report    ReportConfig    `mapstructure:"report"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	Environment     string        `mapstructure:"environment"` // dev, staging, prod
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// OracleConfig holds gas price oracle configuration.
type OracleConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	RetryDelay     time.Duration `mapstructure:"retry_delay"`
	MaxRetries     int           `mapstructure:"max_retries"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UseFallback    bool          `mapstructure:"use_fallback"`
}

// NetworkConfig describes one supported network.
type NetworkConfig struct {
	Name      string `mapstructure:"name"`
	ChainID   int64  `mapstructure:"chain_id"`
	OracleURL string `mapstructure:"oracle_url"`
	RPCURL    string `mapstructure:"rpc_url"`
}

// EstimatorConfig holds bytecode cost model configuration.
type EstimatorConfig struct {
	CacheSize      int           `mapstructure:"cache_size"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	SlowThreshold  time.Duration `mapstructure:"slow_threshold"`
	DefaultNetwork string        `mapstructure:"default_network"`
}

// SimulatorConfig holds deployment simulation configuration.
type SimulatorConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RPCURL         string        `mapstructure:"rpc_url"`
	PrivateKey     string        `mapstructure:"private_key"`
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReportConfig holds report generation defaults.
type ReportConfig struct {
	EthPriceUSD     float64  `mapstructure:"eth_price_usd"`
	CompareNetworks []string `mapstructure:"compare_networks"`
	Tier            string   `mapstructure:"tier"`
}

// NetworkNames returns the configured network names in order.
func (c *Config) NetworkNames() []string {
	names := make([]string, len(c.Networks))
	for i, n := range c.Networks {
		names[i] = n.Name
	}
	return names
}

// Network looks up a network by name.
func (c *Config) Network(name string) (NetworkConfig, bool) {
	for _, n := range c.Networks {
		if n.Name == name {
			return n, true
		}
	}
	return NetworkConfig{}, false
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	var result *multierror.Error
	if len(c.Networks) == 0 {
		result = multierror.Append(result, errors.New("at least one network must be configured"))
	}
	seen := make(map[string]bool, len(c.Networks))
	for i, n := range c.Networks {
		if n.Name == "" {
			result = multierror.Append(result, fmt.Errorf("networks[%d]: name is required", i))
			continue
		}
		if seen[n.Name] {
			result = multierror.Append(result, fmt.Errorf("networks[%d]: duplicate network %q", i, n.Name))
		}
		seen[n.Name] = true
		if n.OracleURL == "" {
			result = multierror.Append(result, fmt.Errorf("network %s: oracle_url is required", n.Name))
		}
	}
	if c.Oracle.RetryDelay <= 0 {
		result = multierror.Append(result, errors.New("oracle.retry_delay must be positive"))
	}
	// The oracle client treats zero as unset, so zero retries cannot be expressed.
	if c.Oracle.MaxRetries < 1 {
		result = multierror.Append(result, errors.New("oracle.max_retries must be at least 1"))
	}
	if c.Oracle.CacheTTL <= 0 {
		result = multierror.Append(result, errors.New("oracle.cache_ttl must be positive"))
	}
	if c.Estimator.CacheSize <= 0 {
		result = multierror.Append(result, errors.New("estimator.cache_size must be positive"))
	}
	if c.Estimator.CacheTTL <= 0 {
		result = multierror.Append(result, errors.New("estimator.cache_ttl must be positive"))
	}
	if c.Simulator.ReceiptTimeout <= 0 || c.Simulator.PollInterval <= 0 {
		result = multierror.Append(result, errors.New("simulator timeouts must be positive"))
	}
	switch c.Report.Tier {
	case "slow", "standard", "fast":
	default:
		result = multierror.Append(result, fmt.Errorf("report.tier %q must be one of slow, standard, fast", c.Report.Tier))
	}
	return result.ErrorOrNil()
}

// Load reads configuration from an optional file and environment variables.
// When path is empty the standard locations are searched.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gas-estimator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/gas-estimator")
	}

	v.SetEnvPrefix("GASEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets are commonly supplied only through the environment.
	_ = v.BindEnv("oracle.api_key", "GASEST_ORACLE_API_KEY")
	_ = v.BindEnv("simulator.private_key", "GASEST_SIMULATOR_PRIVATE_KEY")
	_ = v.BindEnv("redis.password", "GASEST_REDIS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// AnvilDefaultKey is the first deterministic Anvil/Hardhat development account.
const AnvilDefaultKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const gasOracleQuery = "?module=gastracker&action=gasoracle"

// DefaultNetworks returns the built-in network table.
func DefaultNetworks() []NetworkConfig {
	return []NetworkConfig{
		{Name: "mainnet", ChainID: 1, OracleURL: "https://api.etherscan.io/api" + gasOracleQuery, RPCURL: "https://eth.llamarpc.com"},
		{Name: "sepolia", ChainID: 11155111, OracleURL: "https://api-sepolia.etherscan.io/api" + gasOracleQuery, RPCURL: "https://rpc.sepolia.org"},
		{Name: "polygon", ChainID: 137, OracleURL: "https://api.polygonscan.com/api" + gasOracleQuery, RPCURL: "https://polygon-rpc.com"},
		{Name: "arbitrum", ChainID: 42161, OracleURL: "https://api.arbiscan.io/api" + gasOracleQuery, RPCURL: "https://arb1.arbitrum.io/rpc"},
		{Name: "optimism", ChainID: 10, OracleURL: "https://api-optimistic.etherscan.io/api" + gasOracleQuery, RPCURL: "https://mainnet.optimism.io"},
		{Name: "base", ChainID: 8453, OracleURL: "https://api.basescan.org/api" + gasOracleQuery, RPCURL: "https://mainnet.base.org"},
	}
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_min", 60)
	v.SetDefault("server.environment", "dev")

	// Oracle defaults
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.retry_delay", "1s")
	v.SetDefault("oracle.max_retries", 2)
	v.SetDefault("oracle.cache_ttl", "5m")
	v.SetDefault("oracle.request_timeout", "10s")
	v.SetDefault("oracle.use_fallback", true)

	networks := make([]map[string]any, 0, len(DefaultNetworks()))
	for _, n := range DefaultNetworks() {
		networks = append(networks, map[string]any{
			"name":       n.Name,
			"chain_id":   n.ChainID,
			"oracle_url": n.OracleURL,
			"rpc_url":    n.RPCURL,
		})
	}
	v.SetDefault("networks", networks)

	// Estimator defaults
	v.SetDefault("estimator.cache_size", 100)
	v.SetDefault("estimator.cache_ttl", "10m")
	v.SetDefault("estimator.slow_threshold", "2s")
	v.SetDefault("estimator.default_network", "sepolia")

	// Simulator defaults (local Anvil node)
	v.SetDefault("simulator.enabled", false)
	v.SetDefault("simulator.rpc_url", "http://localhost:8545")
	v.SetDefault("simulator.private_key", AnvilDefaultKey)
	v.SetDefault("simulator.receipt_timeout", "2m")
	v.SetDefault("simulator.poll_interval", "1s")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "gasest:")

	// Report defaults
	v.SetDefault("report.eth_price_usd", 0)
	v.SetDefault("report.compare_networks", []string{})
	v.SetDefault("report.tier", "standard")
}
