package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robinvdvleuten/dinero/ast"
)

// Sentinel errors for conditions that carry no extra context.
var (
	// ErrTooManyCurrencies is returned when a multi-currency Balance is collapsed to Money.
	ErrTooManyCurrencies = errors.New("balance holds more than one currency")

	// ErrEmptyPostingShouldBeLast is returned in pedantic mode when the posting whose amount
	// is inferred is not the last real posting of its transaction.
	ErrEmptyPostingShouldBeLast = errors.New("empty posting should be last")

	// ErrDivisionByZero is returned by Money and Balance division.
	ErrDivisionByZero = errors.New("division by zero")
)

func location(pos ast.Position, date string) string {
	if pos.Filename == "" {
		return date
	}
	return fmt.Sprintf("%s:%d", pos.Filename, pos.Line)
}

// NotFoundError is returned when a directory lookup fails.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %q", e.Kind, e.Key)
}

// AliasConflictError is returned when an alias is already bound to another entity.
type AliasConflictError struct {
	Kind     string
	Alias    string
	Existing string
	Target   string
}

func (e *AliasConflictError) Error() string {
	return fmt.Sprintf("%s alias %q already points to %q, cannot bind it to %q",
		e.Kind, e.Alias, e.Existing, e.Target)
}

// TransactionNotBalancedError is returned when a transaction does not balance or when a
// balance assertion does not hold. For assertion failures Account is set and Found,
// Expected and Difference describe the mismatch; otherwise Residual holds what is left over.
type TransactionNotBalancedError struct {
	Pos         ast.Position
	Transaction *Transaction
	Account     *Account

	Residual   Balance
	Found      Balance
	Expected   Balance
	Difference Balance

	// Group names the posting group that failed: "real" or "virtual".
	Group string
}

func (e *TransactionNotBalancedError) Error() string {
	loc := location(e.Pos, e.Transaction.Date.Format(ast.DateLayout))
	if e.Account != nil {
		return fmt.Sprintf("%s: Balance assertion failed for %s: found %s, expected %s (difference %s)",
			loc, e.Account.Name(), e.Found, e.Expected, e.Difference)
	}
	if e.Group == "virtual" {
		return fmt.Sprintf("%s: Balanced virtual postings do not balance: %s", loc, e.Residual)
	}
	return fmt.Sprintf("%s: Transaction does not balance: %s", loc, e.Residual)
}

func (e *TransactionNotBalancedError) GetPosition() ast.Position {
	return e.Pos
}

func (e *TransactionNotBalancedError) GetTransaction() *Transaction {
	return e.Transaction
}

func (e *TransactionNotBalancedError) GetAccount() *Account {
	return e.Account
}

// TooManyEmptyPostingsError is returned when more than one posting lacks an amount.
type TooManyEmptyPostingsError struct {
	Pos         ast.Position
	Transaction *Transaction
	Count       int
}

func (e *TooManyEmptyPostingsError) Error() string {
	return fmt.Sprintf("%s: Transaction has %d postings without an amount, at most one is allowed",
		location(e.Pos, e.Transaction.Date.Format(ast.DateLayout)), e.Count)
}

func (e *TooManyEmptyPostingsError) GetPosition() ast.Position {
	return e.Pos
}

func (e *TooManyEmptyPostingsError) GetTransaction() *Transaction {
	return e.Transaction
}

// PostingError wraps a failure tied to a single posting, such as an unparsable amount or
// an empty posting in the wrong place.
type PostingError struct {
	Pos         ast.Position
	Transaction *Transaction
	Account     string
	Err         error
}

func (e *PostingError) Error() string {
	date := ""
	if e.Transaction != nil {
		date = e.Transaction.Date.Format(ast.DateLayout)
	}
	return fmt.Sprintf("%s: Invalid posting for %s: %v", location(e.Pos, date), e.Account, e.Err)
}

func (e *PostingError) Unwrap() error {
	return e.Err
}

func (e *PostingError) GetPosition() ast.Position {
	return e.Pos
}

func (e *PostingError) GetTransaction() *Transaction {
	return e.Transaction
}

// ExpressionErrorKind classifies expression failures.
type ExpressionErrorKind int

const (
	TypeMismatch ExpressionErrorKind = iota
	CurrencyMismatch
	UnknownVariable
	Syntax
	DivisionByZero
)

func (k ExpressionErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case CurrencyMismatch:
		return "currency mismatch"
	case UnknownVariable:
		return "unknown variable"
	case DivisionByZero:
		return "division by zero"
	default:
		return "syntax error"
	}
}

// ExpressionError is returned by the expression parser and evaluator. The evaluator never
// panics; every invalid operation surfaces as one of these.
type ExpressionError struct {
	Kind    ExpressionErrorKind
	Expr    string
	Message string
}

func (e *ExpressionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Expr != "" {
		fmt.Fprintf(&b, " in %q", e.Expr)
	}
	return b.String()
}

func newExpressionError(kind ExpressionErrorKind, format string, args ...any) *ExpressionError {
	return &ExpressionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// UndeclaredError is returned in pedantic mode when a transaction or price references an
// account, commodity or payee that no directive declares.
type UndeclaredError struct {
	Pos  ast.Position
	Kind string
	Name string
}

func (e *UndeclaredError) Error() string {
	return fmt.Sprintf("%s: Undeclared %s %q", location(e.Pos, "<unknown>"), e.Kind, e.Name)
}

func (e *UndeclaredError) GetPosition() ast.Position {
	return e.Pos
}

// AccountAssertionError is returned when an account's assert expression evaluates to false
// for one of its postings.
type AccountAssertionError struct {
	Transaction *Transaction
	Posting     *Posting
	Expr        string
}

func (e *AccountAssertionError) Error() string {
	return fmt.Sprintf("%s: Assertion %q failed for %s",
		location(e.Transaction.Pos, e.Transaction.Date.Format(ast.DateLayout)), e.Expr, e.Posting.Account.Name())
}

func (e *AccountAssertionError) GetPosition() ast.Position {
	return e.Transaction.Pos
}

func (e *AccountAssertionError) GetTransaction() *Transaction {
	return e.Transaction
}

func (e *AccountAssertionError) GetAccount() *Account {
	return e.Posting.Account
}

// AutomatedTransactionError is returned when an automated transaction cannot be compiled or
// applied to a matching posting.
type AutomatedTransactionError struct {
	Pos   ast.Position
	Query string
	Err   error
}

func (e *AutomatedTransactionError) Error() string {
	return fmt.Sprintf("%s: Automated transaction %q: %v", location(e.Pos, "<automated>"), e.Query, e.Err)
}

func (e *AutomatedTransactionError) Unwrap() error {
	return e.Err
}

func (e *AutomatedTransactionError) GetPosition() ast.Position {
	return e.Pos
}

// NewBalanceAssertionError creates an error for a balance assertion that does not hold.
func NewBalanceAssertionError(txn *Transaction, p *Posting, found, expected Balance) *TransactionNotBalancedError {
	return &TransactionNotBalancedError{
		Pos:         p.Pos,
		Transaction: txn,
		Account:     p.Account,
		Found:       found,
		Expected:    expected,
		Difference:  expected.Sub(found),
		Group:       "real",
	}
}

// NewTransactionNotBalancedError creates an error for a posting group with a residual that
// cannot reach zero.
func NewTransactionNotBalancedError(txn *Transaction, group string, residual Balance) *TransactionNotBalancedError {
	return &TransactionNotBalancedError{
		Pos:         txn.Pos,
		Transaction: txn,
		Residual:    residual,
		Group:       group,
	}
}

// NewTooManyEmptyPostingsError creates an error for a transaction with n empty postings.
func NewTooManyEmptyPostingsError(txn *Transaction, n int) *TooManyEmptyPostingsError {
	return &TooManyEmptyPostingsError{Pos: txn.Pos, Transaction: txn, Count: n}
}

// NewPostingError wraps err with the context of a posting.
func NewPostingError(txn *Transaction, pos ast.Position, account string, err error) *PostingError {
	return &PostingError{Pos: pos, Transaction: txn, Account: account, Err: err}
}
