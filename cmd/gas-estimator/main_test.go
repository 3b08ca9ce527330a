package main

import (
	"bytes"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

const sampleBytecode = "0x6080604052348015600f57600080fd5b50603f80601d6000396000f3fe6080604052"

func newInputCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addBytecodeFlags(cmd)
	cmd.Flags().Float64("eth-price", 0, "")
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestParseBytecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr string
	}{
		{"raw hex", "  " + sampleBytecode + "\n", sampleBytecode, ""},
		{"hardhat artifact", `{"contractName":"Token","bytecode":"0x6080"}`, "0x6080", ""},
		{"foundry artifact", `{"bytecode":{"object":"0x6080","linkReferences":{}}}`, "0x6080", ""},
		{"foundry without prefix", `{"bytecode":{"object":"6080"}}`, "0x6080", ""},
		{"invalid json", `{"bytecode":`, "", "parse artifact"},
		{"missing bytecode", `{"abi":[]}`, "", "no bytecode field"},
		{"unexpected bytecode type", `{"bytecode":42}`, "", "must be a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBytecode([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadBytecode(t *testing.T) {
	t.Run("flag wins over stdin", func(t *testing.T) {
		cmd := newInputCommand(t, "--bytecode", " 0x6080 ")
		got, err := readBytecode(cmd, strings.NewReader("0xffff"))
		require.NoError(t, err)
		assert.Equal(t, "0x6080", got)
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "Token.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"bytecode":{"object":"0x6080"}}`), 0o600))

		got, err := readBytecode(newInputCommand(t, "--bytecode-file", path), nil)
		require.NoError(t, err)
		assert.Equal(t, "0x6080", got)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readBytecode(newInputCommand(t, "-f", filepath.Join(t.TempDir(), "nope")), nil)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("stdin", func(t *testing.T) {
		got, err := readBytecode(newInputCommand(t), strings.NewReader(sampleBytecode+"\n"))
		require.NoError(t, err)
		assert.Equal(t, sampleBytecode, got)
	})

	t.Run("nothing given", func(t *testing.T) {
		_, err := readBytecode(newInputCommand(t), nil)
		assert.ErrorIs(t, err, errNoBytecode)

		_, err = readBytecode(newInputCommand(t), strings.NewReader("  \n"))
		assert.ErrorIs(t, err, errNoBytecode)
	})
}

func TestConstructorArgs(t *testing.T) {
	args, err := constructorArgs(newInputCommand(t, "--args", "1000000,0xdeadbeef", "--args", "115792089237316195423570985008687907853269984665640564039457584007913129639935"))
	require.NoError(t, err)
	require.Len(t, args, 3)
	assert.Equal(t, big.NewInt(1000000), args[0])
	assert.Equal(t, "0xdeadbeef", args[1])
	assert.Equal(t, 256, args[2].(*big.Int).BitLen())

	_, err = constructorArgs(newInputCommand(t, "--args", "abc"))
	assert.Error(t, err)
}

func TestParseEthPrice(t *testing.T) {
	assert.Nil(t, parseEthPrice(newInputCommand(t), 0))

	got := parseEthPrice(newInputCommand(t), 1800)
	require.NotNil(t, got)
	assert.Equal(t, 1800.0, *got)

	got = parseEthPrice(newInputCommand(t, "--eth-price", "2500"), 1800)
	require.NotNil(t, got)
	assert.Equal(t, 2500.0, *got)
}

func TestEstimateCommand_Static(t *testing.T) {
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"estimate", "--bytecode", sampleBytecode, "--network", "mainnet", "--format", "json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var est models.GasEstimate
	require.NoError(t, json.Unmarshal(out.Bytes(), &est))
	assert.Equal(t, "mainnet", est.Network)
	assert.Equal(t, uint64(59800), est.DeploymentGas)
	assert.True(t, est.Analysis.HasConstructor)
}
