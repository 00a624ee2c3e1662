package ast

// Transaction is a dated group of postings as written in the file. Cleared transactions
// carry a '*' flag, pending ones a '!'.
//
// Example:
//
//	2021-01-15 * (INV-12) Hotel | Two nights in Lisbon
//	    ; :travel:
//	    Expenses:Travel        200 EUR
//	    Assets:Checking
//
// Automated transactions keep their query in Query and use their postings as templates;
// periodic transactions keep their period expression in Period.
type Transaction struct {
	Pos           Position        `yaml:"pos"`
	Kind          TransactionKind `yaml:"kind"`
	Date          *Date           `yaml:"date"`
	EffectiveDate *Date           `yaml:"effective_date"`
	Cleared       bool            `yaml:"cleared"`
	Pending       bool            `yaml:"pending"`
	Code          string          `yaml:"code"`
	Description   string          `yaml:"description"`
	Payee         string          `yaml:"payee"`
	Comments      []string        `yaml:"comments"`
	Query         string          `yaml:"query"`
	Period        string          `yaml:"period"`

	Postings []*Posting `yaml:"postings"`
}

// Posting is a single account line of a transaction. Any of Amount and Balance may be
// missing; a posting with neither is an "empty" posting whose amount is inferred.
//
//	Assets:Checking   -200 EUR = 1300 EUR    ; amount and balance assertion
//	Assets:Savings              = 500 EUR    ; balance assertion only
//	Assets:Broker     10 ACME @ 12 EUR       ; amount with a cost
//	(Budget:Travel)   (amount * 0.1)         ; amount expression
type Posting struct {
	Pos        Position    `yaml:"pos"`
	Kind       PostingKind `yaml:"kind"`
	Account    string      `yaml:"account"`
	Amount     *Amount     `yaml:"amount"`
	Cost       *Cost       `yaml:"cost"`
	Balance    *Amount     `yaml:"balance"`
	AmountExpr string      `yaml:"amount_expr"`
	Payee      string      `yaml:"payee"`
	Date       *Date       `yaml:"date"`
	Comments   []string    `yaml:"comments"`
}

// IsEmpty reports whether the posting has neither an amount, an amount expression nor a
// balance assertion.
func (p *Posting) IsEmpty() bool {
	return p.Amount == nil && p.Balance == nil && p.AmountExpr == ""
}
