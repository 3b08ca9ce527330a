package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var errNoBytecode = errors.New("no bytecode given: use --bytecode, --bytecode-file or pipe it on stdin")

// addBytecodeFlags registers the bytecode input flags shared by every command
// that analyzes a contract.
func addBytecodeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("bytecode", "b", "", "contract creation bytecode (0x-prefixed hex)")
	cmd.Flags().StringP("bytecode-file", "f", "", "file with hex bytecode or a solc/foundry/hardhat JSON artifact")
	cmd.Flags().StringSlice("args", nil, "constructor arguments (decimal integers or 0x-prefixed hex)")
}

// readBytecode resolves the bytecode from flags, then stdin.
func readBytecode(cmd *cobra.Command, stdin io.Reader) (string, error) {
	if b, _ := cmd.Flags().GetString("bytecode"); b != "" {
		return strings.TrimSpace(b), nil
	}
	if path, _ := cmd.Flags().GetString("bytecode-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read bytecode file: %w", err)
		}
		return parseBytecode(data)
	}
	if stdin == nil {
		return "", errNoBytecode
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", errNoBytecode
	}
	return parseBytecode(data)
}

// stdinIfPiped returns os.Stdin unless it is a terminal.
func stdinIfPiped() io.Reader {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return nil
	}
	return os.Stdin
}

// artifact covers the bytecode layouts of common compiler outputs:
// hardhat and truffle store a string, foundry an object.
type artifact struct {
	Bytecode json.RawMessage `json:"bytecode"`
}

// parseBytecode accepts raw hex or a JSON artifact.
func parseBytecode(data []byte) (string, error) {
	text := strings.TrimSpace(string(data))
	if !strings.HasPrefix(text, "{") {
		return text, nil
	}

	var a artifact
	if err := json.Unmarshal([]byte(text), &a); err != nil {
		return "", fmt.Errorf("parse artifact: %w", err)
	}
	if len(a.Bytecode) == 0 {
		return "", errors.New("parse artifact: no bytecode field")
	}

	var s string
	if err := json.Unmarshal(a.Bytecode, &s); err == nil {
		return s, nil
	}
	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(a.Bytecode, &obj); err != nil || obj.Object == "" {
		return "", errors.New("parse artifact: bytecode must be a string or an object with an object field")
	}
	if !strings.HasPrefix(obj.Object, "0x") {
		return "0x" + obj.Object, nil
	}
	return obj.Object, nil
}

// constructorArgs parses --args into values the simulator can encode.
func constructorArgs(cmd *cobra.Command) ([]any, error) {
	raw, _ := cmd.Flags().GetStringSlice("args")
	args := make([]any, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if strings.HasPrefix(s, "0x") {
			args = append(args, s)
			continue
		}
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("constructor argument %q is neither an integer nor 0x-prefixed hex", s)
		}
		args = append(args, n)
	}
	return args, nil
}

// parseEthPrice returns nil when no price was given.
func parseEthPrice(cmd *cobra.Command, fallback float64) *float64 {
	v, _ := cmd.Flags().GetFloat64("eth-price")
	if v <= 0 {
		v = fallback
	}
	if v <= 0 {
		return nil
	}
	return &v
}

func addFallbackFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("fallback", false, "fall back to JSON-RPC eth_gasPrice when the oracle fails (default: oracle.use_fallback)")
}

// fallbackFlag returns --fallback when set, else the configured default.
func fallbackFlag(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("fallback") {
		v, _ := cmd.Flags().GetBool("fallback")
		return v
	}
	return cfg.Oracle.UseFallback
}
