package ledger

import (
	"regexp"
	"time"

	"github.com/robinvdvleuten/dinero/ast"
)

// TransactionStatus tracks how far balancing got for a transaction.
type TransactionStatus int

const (
	NotChecked TransactionStatus = iota
	// InternallyBalanced transactions passed the first balancing pass.
	InternallyBalanced
	// Correct transactions passed the final pass, after automated postings were injected.
	Correct
)

func (s TransactionStatus) String() string {
	switch s {
	case InternallyBalanced:
		return "internally balanced"
	case Correct:
		return "correct"
	default:
		return "not checked"
	}
}

// PostingOrigin distinguishes postings written in the file from synthesized ones.
type PostingOrigin int

const (
	FromTransaction PostingOrigin = iota
	Automated
)

// CostKind tells whether a cost is per unit or for the whole posting.
type CostKind = ast.CostKind

// Cost is the amount paid for a posting in another commodity.
type Cost struct {
	Kind   CostKind
	Amount Money
}

// Total returns the cost of the whole posting for the given posting amount, with the sign
// of the posting.
func (c *Cost) Total(amount Money) Money {
	total := c.Amount.Abs()
	if c.Kind == ast.CostPerUnit {
		total = total.Mul(amount.Abs().rat())
	}
	if amount.Sign() < 0 {
		return total.Neg()
	}
	return total
}

// Posting is a resolved posting. Account, Payee and commodities point into the ledger's
// directories.
type Posting struct {
	Pos     ast.Position
	Account *Account
	Kind    ast.PostingKind
	Origin  PostingOrigin

	// Amount is nil until the posting is balanced when it was written without one.
	Amount  *Money
	Balance *Money
	Cost    *Cost

	AmountExpr string
	Payee      *Payee
	Date       time.Time
	Comments   []string

	transaction *Transaction
	tags        []Tag
	tagsParsed  bool
	inferred    bool
	synthetic   bool
}

// Transaction returns the transaction the posting belongs to.
func (p *Posting) Transaction() *Transaction {
	return p.transaction
}

// Tags returns the posting's tags together with those of its transaction. The result is
// parsed on first access and cached.
func (p *Posting) Tags() []Tag {
	if !p.tagsParsed {
		p.tags = ParseTags(p.Comments)
		if p.transaction != nil {
			p.tags = append(p.tags, p.transaction.Tags()...)
		}
		p.tagsParsed = true
	}
	return p.tags
}

// HasTag reports whether a tag name matches re.
func (p *Posting) HasTag(re *regexp.Regexp) bool {
	_, ok := findTag(p.Tags(), re)
	return ok
}

// TagValue returns the value of the first tag whose name matches re.
func (p *Posting) TagValue(re *regexp.Regexp) (string, bool) {
	t, ok := findTag(p.Tags(), re)
	return t.Value, ok
}

// EffectivePayee returns the posting payee, falling back to the transaction's.
func (p *Posting) EffectivePayee() *Payee {
	if p.Payee != nil || p.transaction == nil {
		return p.Payee
	}
	return p.transaction.Payee
}

// Transaction is a resolved transaction with its postings sorted into three groups.
type Transaction struct {
	Pos    ast.Position
	Status TransactionStatus
	Kind   ast.TransactionKind

	Date          time.Time
	EffectiveDate time.Time
	Cleared       bool
	Pending       bool
	Code          string
	Description   string
	Payee         *Payee
	Comments      []string

	// Postings are the real postings; they must balance.
	Postings []*Posting
	// VirtualPostings never need to balance.
	VirtualPostings []*Posting
	// BalancedVirtualPostings must balance among themselves.
	BalancedVirtualPostings []*Posting

	// Query and Period are set for automated and periodic transactions.
	Query  string
	Period string

	prices     []*Price
	tags       []Tag
	tagsParsed bool
}

// AddPosting appends p to the group matching its kind.
func (t *Transaction) AddPosting(p *Posting) {
	p.transaction = t
	p.tagsParsed = false
	switch p.Kind {
	case ast.PostingVirtual:
		t.VirtualPostings = append(t.VirtualPostings, p)
	case ast.PostingVirtualMustBalance:
		t.BalancedVirtualPostings = append(t.BalancedVirtualPostings, p)
	default:
		t.Postings = append(t.Postings, p)
	}
}

// AllPostings returns real, virtual and balanced virtual postings, in that order.
func (t *Transaction) AllPostings() []*Posting {
	all := make([]*Posting, 0, len(t.Postings)+len(t.VirtualPostings)+len(t.BalancedVirtualPostings))
	all = append(all, t.Postings...)
	all = append(all, t.VirtualPostings...)
	return append(all, t.BalancedVirtualPostings...)
}

// Tags returns the tags parsed from the transaction comments.
func (t *Transaction) Tags() []Tag {
	if !t.tagsParsed {
		t.tags = ParseTags(t.Comments)
		t.tagsParsed = true
	}
	return t.tags
}

// Prices returns the prices derived while balancing the transaction.
func (t *Transaction) Prices() []*Price {
	return t.prices
}
