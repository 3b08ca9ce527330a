package estimator

import (
	"errors"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/Bidon15/popsigner/gas-estimator/internal/metrics"
	"github.com/Bidon15/popsigner/gas-estimator/internal/models"
)

// Compiler-emitted prologues that indicate constructor logic. Matching is a
// heuristic; neither pattern is authoritative.
var constructorPrologues = []string{
	"6080604052348015", // solc non-payable constructor callvalue check
	"6080604052604051", // solc constructor reading appended arguments
}

// ValidateBytecode checks that bytecode is a non-empty 0x-prefixed hex string.
func ValidateBytecode(bytecode string) error {
	if bytecode == "" || bytecode == "0x" {
		return newValidationError("bytecode", ReasonEmpty, "bytecode is empty")
	}
	if !strings.HasPrefix(bytecode, "0x") {
		return newValidationError("bytecode", ReasonMissingPrefix, "bytecode must start with 0x")
	}
	_, err := hexutil.Decode(bytecode)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hexutil.ErrMissingPrefix):
		return newValidationError("bytecode", ReasonMissingPrefix, "bytecode must start with 0x")
	case errors.Is(err, hexutil.ErrOddLength):
		return newValidationError("bytecode", ReasonInvalidHex, "bytecode has an odd number of hex digits")
	default:
		return newValidationError("bytecode", ReasonInvalidHex, "bytecode contains non-hex characters")
	}
}

// AnalyzeBytecode derives size, constructor and complexity properties of a
// bytecode. Results are cached by a hash of the full bytecode string.
func (e *Estimator) AnalyzeBytecode(bytecode string) (*models.BytecodeAnalysis, error) {
	if err := ValidateBytecode(bytecode); err != nil {
		return nil, err
	}

	key := cacheKey(bytecode)
	if cached, ok := e.cache.Get(key); ok {
		metrics.BytecodeCacheLookups.WithLabelValues(metrics.ResultHit).Inc()
		analysis := cached
		return &analysis, nil
	}
	metrics.BytecodeCacheLookups.WithLabelValues(metrics.ResultMiss).Inc()

	analysis := analyze(bytecode)
	e.cache.Add(key, analysis)
	return &analysis, nil
}

// CacheLen returns the number of live entries in the analysis cache.
func (e *Estimator) CacheLen() int {
	return e.cache.Len()
}

func cacheKey(bytecode string) uint64 {
	return xxhash.Sum64String(bytecode)
}

func analyze(bytecode string) models.BytecodeAnalysis {
	code := bytecode[2:]
	size := len(code) / 2

	lower := strings.ToLower(code)
	hasConstructor := false
	for _, prologue := range constructorPrologues {
		if strings.Contains(lower, prologue) {
			hasConstructor = true
			break
		}
	}

	complexity := int(math.Floor(float64(size) / 100 * 10))
	if complexity > 100 {
		complexity = 100
	}

	return models.BytecodeAnalysis{
		HexLength:      len(code),
		SizeInBytes:    size,
		HasConstructor: hasConstructor,
		Complexity:     complexity,
	}
}
