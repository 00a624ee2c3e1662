package ledger

import (
	"math/big"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Balance is an exact multi-commodity amount. Entries are keyed by commodity name, with
// the empty key holding amounts without commodity. Entries whose amount is zero are pruned
// after every operation, so an empty Balance is zero.
//
// Like Money, a Balance is immutable; operations return new values.
type Balance struct {
	entries map[string]Money
}

// NewBalance returns an empty balance.
func NewBalance() Balance {
	return Balance{}
}

// BalanceOf collects amounts into a balance.
func BalanceOf(amounts ...Money) Balance {
	b := Balance{entries: make(map[string]Money, len(amounts))}
	for _, m := range amounts {
		b.accumulate(m)
	}
	b.prune()
	return b
}

func key(c *Currency) string {
	if c == nil {
		return ""
	}
	return c.Name()
}

func (b *Balance) accumulate(m Money) {
	k := key(m.currency)
	if prev, ok := b.entries[k]; ok {
		b.entries[k] = Money{amount: new(big.Rat).Add(prev.rat(), m.rat()), currency: prev.currency}
		return
	}
	b.entries[k] = NewMoney(m.rat(), m.currency)
}

func (b *Balance) prune() {
	maps.DeleteFunc(b.entries, func(_ string, m Money) bool { return m.IsZero() })
}

func (b Balance) clone() Balance {
	c := Balance{entries: make(map[string]Money, len(b.entries))}
	for k, v := range b.entries {
		c.entries[k] = v
	}
	return c
}

func (b Balance) apply(f func(Money) Money) Balance {
	out := Balance{entries: make(map[string]Money, len(b.entries))}
	for k, v := range b.entries {
		out.entries[k] = f(v)
	}
	out.prune()
	return out
}

// Add merges other into a copy of b.
func (b Balance) Add(other Balance) Balance {
	out := b.clone()
	for _, m := range other.entries {
		out.accumulate(m)
	}
	out.prune()
	return out
}

// AddMoney adds a single amount.
func (b Balance) AddMoney(m Money) Balance {
	return b.Add(BalanceOf(m))
}

// Sub subtracts other from b.
func (b Balance) Sub(other Balance) Balance {
	return b.Add(other.Neg())
}

func (b Balance) Neg() Balance {
	return b.apply(Money.Neg)
}

func (b Balance) Abs() Balance {
	return b.apply(Money.Abs)
}

// Mul scales every entry by q.
func (b Balance) Mul(q *big.Rat) Balance {
	return b.apply(func(m Money) Money { return m.Mul(q) })
}

// Div divides every entry by q.
func (b Balance) Div(q *big.Rat) (Balance, error) {
	if q.Sign() == 0 {
		return Balance{}, ErrDivisionByZero
	}
	inv := new(big.Rat).Inv(q)
	return b.Mul(inv), nil
}

// With returns a copy of b whose entry for m's commodity is replaced by m.
func (b Balance) With(m Money) Balance {
	out := b.clone()
	out.entries[key(m.currency)] = NewMoney(m.rat(), m.currency)
	out.prune()
	return out
}

// Get returns the entry for currency, or zero money in that currency.
func (b Balance) Get(currency *Currency) Money {
	if m, ok := b.entries[key(currency)]; ok {
		return m
	}
	return Money{currency: currency}
}

// IsZero is true when the balance is empty or every entry is zero.
func (b Balance) IsZero() bool {
	for _, m := range b.entries {
		if !m.IsZero() {
			return false
		}
	}
	return true
}

// CanBeZero reports whether the balance could still net to zero: it is empty, or it holds
// at least one strictly positive and one strictly negative entry. This is a necessary
// condition only; the entries are never converted into a common commodity.
func (b Balance) CanBeZero() bool {
	if b.IsZero() {
		return true
	}
	var pos, neg bool
	for _, m := range b.entries {
		switch m.Sign() {
		case 1:
			pos = true
		case -1:
			neg = true
		}
	}
	return pos && neg
}

// ToMoney collapses the balance into a single amount. It fails with ErrTooManyCurrencies
// when more than one commodity has a non-zero amount.
func (b Balance) ToMoney() (Money, error) {
	switch len(b.entries) {
	case 0:
		return Zero, nil
	case 1:
		for _, m := range b.entries {
			return m, nil
		}
	}
	return Zero, ErrTooManyCurrencies
}

// Len returns the number of non-zero entries.
func (b Balance) Len() int {
	return len(b.entries)
}

// Amounts returns the entries ordered by commodity name.
func (b Balance) Amounts() []Money {
	keys := maps.Keys(b.entries)
	slices.Sort(keys)
	out := make([]Money, 0, len(keys))
	for _, k := range keys {
		out = append(out, b.entries[k])
	}
	return out
}

// Currencies returns the commodities of the entries ordered by name.
func (b Balance) Currencies() []*Currency {
	amounts := b.Amounts()
	out := make([]*Currency, 0, len(amounts))
	for _, m := range amounts {
		out = append(out, m.currency)
	}
	return out
}

// Equal reports whether both balances hold the same amounts.
func (b Balance) Equal(other Balance) bool {
	return b.Sub(other).IsZero()
}

func (b Balance) String() string {
	if b.IsZero() {
		return "0"
	}
	parts := make([]string, 0, len(b.entries))
	for _, m := range b.Amounts() {
		parts = append(parts, m.Format())
	}
	return strings.Join(parts, ", ")
}
