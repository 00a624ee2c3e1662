package ledger

import (
	"fmt"
	"math/big"
)

// Money is an exact amount of a single commodity. The zero value is Zero, an amount
// without commodity. Money is immutable: every operation returns a new value and never
// modifies the rational it was built from.
type Money struct {
	amount   *big.Rat
	currency *Currency
}

// Zero is money without amount or commodity.
var Zero = Money{}

// NewMoney creates money holding a copy of amount.
func NewMoney(amount *big.Rat, currency *Currency) Money {
	if amount == nil {
		return Money{currency: currency}
	}
	return Money{amount: new(big.Rat).Set(amount), currency: currency}
}

// MoneyFromString parses value as an exact decimal. It panics on malformed input and is
// meant for tests and literals.
func MoneyFromString(value string, currency *Currency) Money {
	return Money{amount: MustParseQuantity(value), currency: currency}
}

func (m Money) rat() *big.Rat {
	if m.amount == nil {
		return new(big.Rat)
	}
	return m.amount
}

// Amount returns a copy of the rational amount.
func (m Money) Amount() *big.Rat {
	return new(big.Rat).Set(m.rat())
}

// Currency returns the commodity, or nil for Zero and bare numbers.
func (m Money) Currency() *Currency {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount == nil || m.amount.Sign() == 0
}

// Sign returns -1, 0 or +1.
func (m Money) Sign() int {
	return m.rat().Sign()
}

func (m Money) Neg() Money {
	return Money{amount: new(big.Rat).Neg(m.rat()), currency: m.currency}
}

func (m Money) Abs() Money {
	return Money{amount: new(big.Rat).Abs(m.rat()), currency: m.currency}
}

// Mul scales the amount by q.
func (m Money) Mul(q *big.Rat) Money {
	return Money{amount: new(big.Rat).Mul(m.rat(), q), currency: m.currency}
}

// Div divides the amount by q.
func (m Money) Div(q *big.Rat) (Money, error) {
	if q.Sign() == 0 {
		return Zero, ErrDivisionByZero
	}
	return Money{amount: new(big.Rat).Quo(m.rat(), q), currency: m.currency}, nil
}

// Add sums two amounts. The result is a Balance because the commodities may differ.
func (m Money) Add(other Money) Balance {
	return BalanceOf(m).Add(BalanceOf(other))
}

// Sub subtracts other from m.
func (m Money) Sub(other Money) Balance {
	return BalanceOf(m).Sub(BalanceOf(other))
}

// Cmp compares two amounts of the same commodity. Zero compares against anything.
func (m Money) Cmp(other Money) (int, error) {
	if !m.IsZero() && !other.IsZero() && !m.currency.Equal(other.currency) {
		return 0, &ExpressionError{
			Kind:    CurrencyMismatch,
			Message: fmt.Sprintf("cannot compare %s with %s", m.currency, other.currency),
		}
	}
	return m.rat().Cmp(other.rat()), nil
}

// Equal reports whether both amounts and commodities are equal.
func (m Money) Equal(other Money) bool {
	if m.IsZero() && other.IsZero() {
		return true
	}
	return m.currency.Equal(other.currency) && m.rat().Cmp(other.rat()) == 0
}

// String renders the amount with its commodity's display format.
func (m Money) String() string {
	return m.Format()
}
