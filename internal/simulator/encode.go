package simulator

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const wordSize = 32

// EncodeConstructorArgs concatenates constructor arguments for a simulated
// deployment. This is not ABI encoding: hex strings and addresses are
// appended verbatim and non-negative integers are left-padded to 32 bytes.
// Dynamic types are unsupported. Never use the output for a real deployment.
func EncodeConstructorArgs(args []any) ([]byte, error) {
	var out []byte
	for i, arg := range args {
		encoded, err := encodeArg(arg)
		if err != nil {
			return nil, fmt.Errorf("constructor argument %d: %w", i, err)
		}
		out = append(out, encoded...)
	}
	return out, nil
}

func encodeArg(arg any) ([]byte, error) {
	switch v := arg.(type) {
	case string:
		s := v
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s = s[2:]
		}
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex string %q", v)
		}
		return b, nil
	case common.Address:
		return v.Bytes(), nil
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return padInteger(v)
	case int:
		return padInteger(big.NewInt(int64(v)))
	case int32:
		return padInteger(big.NewInt(int64(v)))
	case int64:
		return padInteger(big.NewInt(v))
	case uint:
		return padInteger(new(big.Int).SetUint64(uint64(v)))
	case uint32:
		return padInteger(new(big.Int).SetUint64(uint64(v)))
	case uint64:
		return padInteger(new(big.Int).SetUint64(v))
	case float64:
		d := decimal.NewFromFloat(v)
		if !d.IsInteger() {
			return nil, fmt.Errorf("non-integer number %v", v)
		}
		return padInteger(d.BigInt())
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil || !d.IsInteger() {
			return nil, fmt.Errorf("non-integer number %s", v)
		}
		return padInteger(d.BigInt())
	default:
		return nil, fmt.Errorf("unsupported type %T", arg)
	}
}

func padInteger(n *big.Int) ([]byte, error) {
	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative integer %s", n)
	}
	if n.BitLen() > wordSize*8 {
		return nil, fmt.Errorf("integer %s exceeds 256 bits", n)
	}
	return common.LeftPadBytes(n.Bytes(), wordSize), nil
}
