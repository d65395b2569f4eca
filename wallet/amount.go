package wallet

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// Decimals is the number of decimal places in one VENOM.
	Decimals = 9
	// Symbol is the unit label shown after balances.
	Symbol = "VENOM"
)

// FormatUnits scales amount down by 10^decimals and renders it with places
// fractional digits, rounding half away from zero.
func FormatUnits(amount *big.Int, decimals, places int) string {
	if amount == nil {
		return ""
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return new(big.Rat).SetFrac(amount, divisor).FloatString(places)
}

// FormatAmount renders a balance the way the wallet panel shows it.
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "Loading..."
	}
	return FormatUnits(amount, Decimals, 4) + " " + Symbol
}

// ParseAmount reads a decimal nano-unit string as returned by the RPC endpoints.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
