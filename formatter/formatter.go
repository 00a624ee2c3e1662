// Package formatter renders resolved transactions and prices back to ledger text, with the
// amounts of every posting right-aligned on a common column.
package formatter

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/robinvdvleuten/dinero/ast"
	"github.com/robinvdvleuten/dinero/ledger"
)

const (
	// DefaultAmountColumn is the column amounts end on when nothing needs more room.
	DefaultAmountColumn = 52

	// DefaultIndentation is the default indentation for postings and comments
	DefaultIndentation = 4

	// MinimumSpacing is the minimum number of spaces between account and amount
	MinimumSpacing = 2
)

// Formatter handles formatting of transactions with proper alignment.
type Formatter struct {
	// AmountColumn is the column the right edge of every amount is aligned to.
	// If 0, it is calculated from the content, and never less than DefaultAmountColumn.
	AmountColumn int

	// Indentation is the number of spaces before postings and comments.
	Indentation int

	// InferredAmounts prints amounts computed while balancing.
	// Default: true
	InferredAmounts bool

	// AutomatedPostings prints postings added by automated transactions.
	// Default: true
	AutomatedPostings bool
}

// Option is a functional option for configuring a Formatter.
type Option func(*Formatter)

// WithAmountColumn sets a specific column for amount alignment.
func WithAmountColumn(col int) Option {
	return func(f *Formatter) {
		f.AmountColumn = col
	}
}

// WithIndentation sets the posting indentation.
func WithIndentation(n int) Option {
	return func(f *Formatter) {
		f.Indentation = n
	}
}

// WithInferredAmounts enables or disables printing of inferred amounts.
func WithInferredAmounts(show bool) Option {
	return func(f *Formatter) {
		f.InferredAmounts = show
	}
}

// WithAutomatedPostings enables or disables printing of automated postings.
func WithAutomatedPostings(show bool) Option {
	return func(f *Formatter) {
		f.AutomatedPostings = show
	}
}

// New creates a new Formatter with the given options.
func New(opts ...Option) *Formatter {
	f := &Formatter{
		Indentation:       DefaultIndentation,
		InferredAmounts:   true,
		AutomatedPostings: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// amountColumn picks the column for txns: the configured one, or the widest posting line.
func (f *Formatter) amountColumn(txns []*ledger.Transaction) int {
	if f.AmountColumn > 0 {
		return f.AmountColumn
	}
	col := DefaultAmountColumn
	for _, t := range txns {
		for _, p := range f.postings(t) {
			amount := f.amountText(p)
			if amount == "" {
				continue
			}
			width := f.Indentation + runewidth.StringWidth(accountText(p)) + MinimumSpacing + runewidth.StringWidth(amount)
			col = max(col, width)
		}
	}
	return col
}

// Format writes txns separated by blank lines.
func (f *Formatter) Format(txns []*ledger.Transaction, w io.Writer) error {
	col := f.amountColumn(txns)

	var buf strings.Builder
	for i, t := range txns {
		if i > 0 {
			buf.WriteByte('\n')
		}
		f.formatTransaction(t, col, &buf)
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// FormatTransaction writes a single transaction.
func (f *Formatter) FormatTransaction(t *ledger.Transaction, w io.Writer) error {
	return f.Format([]*ledger.Transaction{t}, w)
}

// String renders a single transaction. Convenient for error messages.
func (f *Formatter) String(t *ledger.Transaction) string {
	var buf strings.Builder
	f.formatTransaction(t, f.amountColumn([]*ledger.Transaction{t}), &buf)
	return buf.String()
}

// FormatPrices writes one price statement per line.
//
//	P 2020-07-01 EUR 1.50 USD
func (f *Formatter) FormatPrices(prices []*ledger.Price, w io.Writer) error {
	var buf strings.Builder
	for _, p := range prices {
		buf.WriteString("P ")
		buf.WriteString(p.Date.Format(ast.DateLayout))
		buf.WriteByte(' ')
		buf.WriteString(p.Commodity.Name())
		buf.WriteByte(' ')
		buf.WriteString(p.Price.Format())
		buf.WriteByte('\n')
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// formatTransaction formats the header, comments and postings of t.
// Format: date[=effective] [flag] [(code)] [payee |] description
func (f *Formatter) formatTransaction(t *ledger.Transaction, col int, buf *strings.Builder) {
	indent := strings.Repeat(" ", f.Indentation)

	switch t.Kind {
	case ast.TransactionAutomated:
		buf.WriteString("= ")
		buf.WriteString(t.Query)
	case ast.TransactionPeriodic:
		buf.WriteString("~ ")
		buf.WriteString(t.Period)
	default:
		f.formatHeader(t, buf)
	}
	buf.WriteByte('\n')

	for _, c := range t.Comments {
		buf.WriteString(indent)
		buf.WriteString("; ")
		buf.WriteString(c)
		buf.WriteByte('\n')
	}

	for _, p := range f.postings(t) {
		f.formatPosting(p, col, indent, buf)
	}
}

func (f *Formatter) formatHeader(t *ledger.Transaction, buf *strings.Builder) {
	buf.WriteString(t.Date.Format(ast.DateLayout))
	if !t.EffectiveDate.IsZero() {
		buf.WriteByte('=')
		buf.WriteString(t.EffectiveDate.Format(ast.DateLayout))
	}

	switch {
	case t.Cleared:
		buf.WriteString(" *")
	case t.Pending:
		buf.WriteString(" !")
	}

	if t.Code != "" {
		buf.WriteString(" (")
		buf.WriteString(t.Code)
		buf.WriteByte(')')
	}

	if t.Payee != nil && t.Payee.Name() != t.Description {
		buf.WriteByte(' ')
		buf.WriteString(t.Payee.Name())
		if t.Description != "" {
			buf.WriteString(" |")
		}
	}
	if t.Description != "" {
		buf.WriteByte(' ')
		buf.WriteString(t.Description)
	}
}

// postings returns the postings to print, in the order real, virtual, balanced virtual.
func (f *Formatter) postings(t *ledger.Transaction) []*ledger.Posting {
	all := t.AllPostings()
	if f.AutomatedPostings {
		return all
	}
	out := all[:0:0]
	for _, p := range all {
		if p.Origin != ledger.Automated {
			out = append(out, p)
		}
	}
	return out
}

// formatPosting formats a single posting with its amount right-aligned on col.
// Handles postings with explicit amounts, inferred amounts and assertion-only postings.
func (f *Formatter) formatPosting(p *ledger.Posting, col int, indent string, buf *strings.Builder) {
	line := indent + accountText(p)
	buf.WriteString(line)

	if amount := f.amountText(p); amount != "" {
		padding := col - runewidth.StringWidth(line) - runewidth.StringWidth(amount)
		if padding < MinimumSpacing {
			padding = MinimumSpacing
		}
		buf.WriteString(strings.Repeat(" ", padding))
		buf.WriteString(amount)
	}

	if p.Cost != nil && p.Amount != nil {
		if p.Cost.Kind == ast.CostTotal {
			buf.WriteString(" @@ ")
		} else {
			buf.WriteString(" @ ")
		}
		buf.WriteString(p.Cost.Amount.Format())
	}

	if p.Balance != nil {
		buf.WriteString(" = ")
		buf.WriteString(p.Balance.Format())
	}

	comments := p.Comments
	if len(comments) > 0 {
		buf.WriteString("  ; ")
		buf.WriteString(comments[0])
		comments = comments[1:]
	}
	buf.WriteByte('\n')

	for _, c := range comments {
		buf.WriteString(indent)
		buf.WriteString(indent)
		buf.WriteString("; ")
		buf.WriteString(c)
		buf.WriteByte('\n')
	}
}

// amountText returns the displayed amount of p, or "" when nothing is printed.
func (f *Formatter) amountText(p *ledger.Posting) string {
	switch {
	case p.Amount == nil:
		return ""
	case p.IsInferred() && !f.InferredAmounts:
		return ""
	case p.AmountExpr != "" && p.Origin == ledger.FromTransaction:
		return "(" + p.AmountExpr + ")"
	}
	return p.Amount.Format()
}

// accountText decorates the account name by posting kind: (virtual) and [balanced].
func accountText(p *ledger.Posting) string {
	name := p.Account.Name()
	switch p.Kind {
	case ast.PostingVirtual:
		return "(" + name + ")"
	case ast.PostingVirtualMustBalance:
		return "[" + name + "]"
	}
	return name
}
