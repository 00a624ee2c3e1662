package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/robinvdvleuten/dinero/ast"
	"github.com/shopspring/decimal"
)

// ParseQuantity converts a decimal string as written in a ledger file into an exact rational.
// Thousands separators written as "," or "_" are accepted.
func ParseQuantity(value string) (*big.Rat, error) {
	clean := strings.NewReplacer(",", "", "_", "", " ", "").Replace(strings.TrimSpace(value))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid amount value %q: %w", value, err)
	}
	return d.Rat(), nil
}

// MustParseQuantity is like ParseQuantity but panics on error.
// Use only in tests or when you're certain the value is valid.
func MustParseQuantity(value string) *big.Rat {
	r, err := ParseQuantity(value)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseAmount converts an ast.Amount into Money, resolving its commodity through resolve.
// An amount without commodity yields Money with a nil currency.
func ParseAmount(amount *ast.Amount, resolve func(string) (*Currency, error)) (Money, error) {
	if amount == nil {
		return Zero, fmt.Errorf("amount is nil")
	}
	q, err := ParseQuantity(amount.Value)
	if err != nil {
		return Zero, err
	}
	if amount.Currency == "" {
		return NewMoney(q, nil), nil
	}
	c, err := resolve(amount.Currency)
	if err != nil {
		return Zero, err
	}
	return NewMoney(q, c), nil
}

// roundRat rounds r half away from zero to places decimal digits.
func roundRat(r *big.Rat, places int) decimal.Decimal {
	return decimal.NewFromBigRat(r, int32(places))
}
