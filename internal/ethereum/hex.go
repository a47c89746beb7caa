package ethereum

import (
	"fmt"
	"math/big"
	"strings"
)

// parseQuantity parses a JSON-RPC quantity ("0x"-prefixed hex) into a big.Int.
func parseQuantity(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("empty quantity")
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hex == "" {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	v, ok := new(big.Int).SetString(hex, 16)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}

// parseUint parses a JSON-RPC quantity into a uint64.
func parseUint(s string) (uint64, error) {
	v, err := parseQuantity(s)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("quantity %q overflows uint64", s)
	}
	return v.Uint64(), nil
}

// formatQuantity encodes a big.Int as a "0x"-prefixed hex quantity.
func formatQuantity(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return "0x" + v.Text(16)
}

// formatUint encodes a uint64 as a "0x"-prefixed hex quantity.
func formatUint(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
