package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Bidon15/popsigner/gas-estimator/internal/config"
)

var (
	cfgFile string
	debug   bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "gas-estimator",
	Short: "Estimate contract deployment gas and cost",
	Long: `Estimate the gas needed to deploy EVM contract bytecode, price it with
live gas prices and compare networks.

Bytecode is read from --bytecode, --bytecode-file or stdin. Settings come from
gas-estimator.yaml, GASEST_* environment variables and a local .env file.

Examples:
  gas-estimator estimate --bytecode 0x6080...
  gas-estimator prices mainnet base
  gas-estimator compare --bytecode-file out/Token.json --networks mainnet,arbitrum,base
  gas-estimator report --bytecode-file token.hex --compare arbitrum,base --format ci
  gas-estimator serve`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./gas-estimator.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging (also DEBUG=true)")
}

// setup loads .env, configures logging and loads the configuration.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	logger = newLogger(false)
	slog.SetDefault(logger)

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cfg = loaded
	return nil
}

// newLogger returns a text logger on stderr, or a JSON logger for the server.
func newLogger(json bool) *slog.Logger {
	level := slog.LevelWarn
	if debug || os.Getenv("DEBUG") == "true" {
		level = slog.LevelDebug
	} else if json {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
