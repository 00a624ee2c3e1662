package ledger

import (
	"math/big"
)

// Balance resolves the postings of t against the running account balances and checks that
// the transaction balances. balances is shared by all transactions of a ledger and must be
// fed transactions in date order; it is updated in place.
//
// Postings written with an amount update their account's running balance and are checked
// against their balance assertion. Postings with only an assertion get the difference
// between the assertion and the running balance as amount. At most one posting may be
// empty; it receives whatever is needed to bring the transaction to zero, one posting per
// commodity. When the residual spans exactly two commodities the transaction states an
// exchange rate and a price is derived from it.
//
// Only real postings take part in running balances. Balanced virtual postings are checked
// on their own.
//
// The returned Balance is the residual of the real postings. Balance may be called again
// after postings were added; amounts it inferred on a previous call are recomputed.
func (t *Transaction) Balance(balances map[*Account]Balance, skipBalanceCheck bool) (Balance, error) {
	t.reset()

	if err := t.balanceVirtual(); err != nil {
		return Balance{}, err
	}

	total := NewBalance()
	var assertionOnly, empty []*Posting

	for _, p := range t.Postings {
		switch {
		case p.Amount == nil && p.Balance != nil:
			assertionOnly = append(assertionOnly, p)
			continue
		case p.Amount == nil:
			empty = append(empty, p)
			continue
		}

		amount := *p.Amount
		expected := balances[p.Account].AddMoney(amount)
		if p.Balance != nil && !skipBalanceCheck {
			if err := t.checkAssertion(p, expected); err != nil {
				return Balance{}, err
			}
		}
		balances[p.Account] = expected

		if p.Cost != nil {
			cost := p.Cost.Total(amount)
			total = total.AddMoney(cost)
			if !amount.IsZero() {
				unit, _ := cost.Abs().Div(amount.Abs().rat())
				t.prices = append(t.prices, &Price{Date: t.Date, Commodity: amount.currency, Price: unit})
			}
			continue
		}
		total = total.AddMoney(amount)
	}

	for _, p := range assertionOnly {
		prev := balances[p.Account]
		assertion := *p.Balance

		var inferred Money
		if assertion.currency == nil && assertion.IsZero() {
			m, err := prev.ToMoney()
			if err != nil {
				return Balance{}, NewPostingError(t, p.Pos, p.Account.Name(), err)
			}
			inferred = m.Neg()
			balances[p.Account] = NewBalance()
		} else {
			inferred = NewMoney(new(big.Rat).Sub(assertion.rat(), prev.Get(assertion.currency).rat()), assertion.currency)
			balances[p.Account] = prev.With(assertion)
		}

		p.Amount = &inferred
		p.inferred = true
		total = total.AddMoney(inferred)
	}

	switch len(empty) {
	case 0:
		if !total.CanBeZero() {
			return Balance{}, NewTransactionNotBalancedError(t, "real", total)
		}
	case 1:
		// The filled posting absorbs every commodity, so nothing is left to derive a
		// price from.
		t.fill(empty[0], total.Neg(), balances)
		total = NewBalance()
	default:
		return Balance{}, NewTooManyEmptyPostingsError(t, len(empty))
	}

	if total.Len() == 2 {
		amounts := total.Amounts()
		a, b := amounts[0], amounts[1]
		rate, _ := b.Abs().Div(a.Abs().rat())
		t.prices = append(t.prices, &Price{Date: t.Date, Commodity: a.currency, Price: rate})
	}

	if t.Status == NotChecked {
		t.Status = InternallyBalanced
	} else {
		t.Status = Correct
	}
	return total, nil
}

// balanceVirtual checks the balanced virtual postings, filling a single empty one.
func (t *Transaction) balanceVirtual() error {
	if len(t.BalancedVirtualPostings) == 0 {
		return nil
	}

	total := NewBalance()
	var empty []*Posting
	for _, p := range t.BalancedVirtualPostings {
		if p.Amount == nil {
			empty = append(empty, p)
			continue
		}
		if p.Cost != nil {
			total = total.AddMoney(p.Cost.Total(*p.Amount))
			continue
		}
		total = total.AddMoney(*p.Amount)
	}

	switch len(empty) {
	case 0:
	case 1:
		t.fill(empty[0], total.Neg(), nil)
		return nil
	default:
		return NewTooManyEmptyPostingsError(t, len(empty))
	}

	if !total.CanBeZero() {
		return NewTransactionNotBalancedError(t, "virtual", total)
	}
	return nil
}

// fill assigns residual to the empty posting p. When residual spans several commodities,
// one extra posting per additional commodity is added to p's group. Running balances are
// updated when balances is not nil.
func (t *Transaction) fill(p *Posting, residual Balance, balances map[*Account]Balance) {
	amounts := residual.Amounts()
	if len(amounts) == 0 {
		zero := Zero
		p.Amount = &zero
		p.inferred = true
		return
	}

	for i, m := range amounts {
		target := p
		if i > 0 {
			target = &Posting{
				Pos:       p.Pos,
				Account:   p.Account,
				Kind:      p.Kind,
				Origin:    p.Origin,
				Payee:     p.Payee,
				Date:      p.Date,
				Comments:  p.Comments,
				synthetic: true,
			}
			t.AddPosting(target)
		}
		amount := m
		target.Amount = &amount
		target.inferred = true
		if balances != nil {
			balances[p.Account] = balances[p.Account].AddMoney(m)
		}
	}
}

// checkAssertion compares the asserted amount with the running balance after p. Only the
// asserted commodity is compared; a zero assertion without commodity requires the whole
// balance to be zero.
func (t *Transaction) checkAssertion(p *Posting, running Balance) error {
	assertion := *p.Balance
	if assertion.currency == nil && assertion.IsZero() {
		if !running.IsZero() {
			return NewBalanceAssertionError(t, p, running, NewBalance())
		}
		return nil
	}

	found := running.Get(assertion.currency)
	if found.rat().Cmp(assertion.rat()) != 0 {
		return NewBalanceAssertionError(t, p, BalanceOf(found), BalanceOf(assertion))
	}
	return nil
}

// reset undoes what a previous call to Balance inferred.
func (t *Transaction) reset() {
	t.prices = nil
	t.Postings = dropSynthetic(t.Postings)
	t.BalancedVirtualPostings = dropSynthetic(t.BalancedVirtualPostings)
	for _, p := range t.AllPostings() {
		if p.inferred {
			p.Amount = nil
			p.inferred = false
		}
	}
}

func dropSynthetic(postings []*Posting) []*Posting {
	kept := postings[:0]
	for _, p := range postings {
		if !p.synthetic {
			kept = append(kept, p)
		}
	}
	return kept
}

// IsInferred reports whether the posting amount was computed while balancing.
func (p *Posting) IsInferred() bool {
	return p.inferred
}
