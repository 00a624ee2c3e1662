package ast

import (
	"time"
)

// NewAmount creates a new Amount with the given value and currency.
// The value should be a decimal string (e.g., "100.50", "-42.00").
// No validation is performed on the value or currency.
//
// Example:
//
//	amount := ast.NewAmount("45.60", "EUR")
func NewAmount(value, currency string) *Amount {
	return &Amount{
		Value:    value,
		Currency: currency,
	}
}

// NewDate parses a date string in YYYY-MM-DD format and returns a Date.
// Returns an error if the string cannot be parsed as a valid date.
func NewDate(s string) (*Date, error) {
	d := &Date{}
	if err := d.Capture([]string{s}); err != nil {
		return nil, err
	}
	return d, nil
}

// MustDate is like NewDate but panics on malformed input. Intended for tests and
// literals in code.
func MustDate(s string) *Date {
	d, err := NewDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDateFromTime creates a Date from a time.Time value.
// The time is truncated to just the date portion (year, month, day).
func NewDateFromTime(t time.Time) *Date {
	y, m, d := t.Date()
	return &Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// TransactionOption is a functional option for configuring a Transaction.
type TransactionOption func(*Transaction)

// NewTransaction creates a new Transaction with the given date and description.
// Additional fields can be set using functional options.
//
// Example:
//
//	txn := ast.NewTransaction(date, "Hotel",
//	    ast.WithCleared(),
//	    ast.WithPostings(
//	        ast.NewPosting("Expenses:Travel", ast.WithAmount("200", "EUR")),
//	        ast.NewPosting("Assets:Checking"),
//	    ),
//	)
func NewTransaction(date *Date, description string, opts ...TransactionOption) *Transaction {
	txn := &Transaction{
		Date:        date,
		Description: description,
	}
	for _, opt := range opts {
		opt(txn)
	}
	return txn
}

// NewAutomatedTransaction creates an automated transaction whose template postings are
// added to every posting matching query.
func NewAutomatedTransaction(query string, postings ...*Posting) *Transaction {
	return &Transaction{
		Kind:     TransactionAutomated,
		Query:    query,
		Postings: postings,
	}
}

// WithCleared marks the transaction as cleared (*).
func WithCleared() TransactionOption {
	return func(t *Transaction) {
		t.Cleared = true
	}
}

// WithPayee sets the transaction payee.
func WithPayee(payee string) TransactionOption {
	return func(t *Transaction) {
		t.Payee = payee
	}
}

// WithCode sets the transaction code.
func WithCode(code string) TransactionOption {
	return func(t *Transaction) {
		t.Code = code
	}
}

// WithEffectiveDate sets the auxiliary date of the transaction.
func WithEffectiveDate(date *Date) TransactionOption {
	return func(t *Transaction) {
		t.EffectiveDate = date
	}
}

// WithComments attaches comment lines, which may carry tags.
func WithComments(comments ...string) TransactionOption {
	return func(t *Transaction) {
		t.Comments = append(t.Comments, comments...)
	}
}

// WithPostings appends postings to the transaction.
func WithPostings(postings ...*Posting) TransactionOption {
	return func(t *Transaction) {
		t.Postings = append(t.Postings, postings...)
	}
}

// PostingOption is a functional option for configuring a Posting.
type PostingOption func(*Posting)

// NewPosting creates a real posting for account.
func NewPosting(account string, opts ...PostingOption) *Posting {
	p := &Posting{Account: account}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithAmount sets the posting amount.
func WithAmount(value, currency string) PostingOption {
	return func(p *Posting) {
		p.Amount = NewAmount(value, currency)
	}
}

// WithBalance sets the balance assertion of the posting.
func WithBalance(value, currency string) PostingOption {
	return func(p *Posting) {
		p.Balance = NewAmount(value, currency)
	}
}

// WithUnitCost sets a per-unit cost (@).
func WithUnitCost(value, currency string) PostingOption {
	return func(p *Posting) {
		p.Cost = &Cost{Kind: CostPerUnit, Amount: Amount{Value: value, Currency: currency}}
	}
}

// WithTotalCost sets a total cost (@@).
func WithTotalCost(value, currency string) PostingOption {
	return func(p *Posting) {
		p.Cost = &Cost{Kind: CostTotal, Amount: Amount{Value: value, Currency: currency}}
	}
}

// WithAmountExpr sets an amount expression, evaluated when the posting is resolved.
func WithAmountExpr(expr string) PostingOption {
	return func(p *Posting) {
		p.AmountExpr = expr
	}
}

// WithKind sets the posting kind.
func WithKind(kind PostingKind) PostingOption {
	return func(p *Posting) {
		p.Kind = kind
	}
}

// WithPostingComments attaches comment lines to the posting.
func WithPostingComments(comments ...string) PostingOption {
	return func(p *Posting) {
		p.Comments = append(p.Comments, comments...)
	}
}

// WithPostingPayee overrides the payee for a single posting.
func WithPostingPayee(payee string) PostingOption {
	return func(p *Posting) {
		p.Payee = payee
	}
}

// NewPrice creates a price directive: one unit of commodity is worth value in currency.
func NewPrice(date *Date, commodity, value, currency string) *Price {
	return &Price{
		Date:      date,
		Commodity: commodity,
		Amount:    Amount{Value: value, Currency: currency},
	}
}
