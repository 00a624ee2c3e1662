// Package ledger builds a balanced, fully resolved double-entry ledger from a parsed ledger
// file. It resolves account, commodity and payee references through alias-aware
// directories, balances every transaction with exact rational arithmetic, derives prices
// from transactions that exchange one commodity for another, and applies automated
// transactions through a small expression language.
//
// The build validates that:
//   - Real postings of every transaction balance to zero per commodity, after costs
//   - Balanced virtual postings balance among themselves
//   - Balance assertions match the running balance of their account
//   - Account assert expressions hold for every posting of the account
//
// Conversions between commodities are answered on demand by Conversion and PriceGraph,
// which search the declared and derived prices for the most recent path.
//
// Example usage:
//
//	tree, err := loader.New().Load(ctx, "main.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	l, err := ledger.Build(ctx, tree)
//	if err != nil {
//	    // A balancing failure aborts the build
//	    var nb *ledger.TransactionNotBalancedError
//	    if errors.As(err, &nb) {
//	        fmt.Println(nb.Transaction.Description)
//	    }
//	}
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"time"

	"github.com/robinvdvleuten/dinero/ast"
	"github.com/robinvdvleuten/dinero/telemetry"
	"go.uber.org/multierr"
)

// Ledger is the assembled, read-only model of a ledger file.
type Ledger struct {
	Accounts    *Directory[*Account]
	Commodities *Directory[*Currency]
	Payees      *Directory[*Payee]

	// Transactions are sorted by date, with file order kept within a day.
	Transactions []*Transaction
	// Prices holds declared prices followed by prices derived from transactions.
	Prices []*Price
	// Automated holds the automated transactions applied during the build.
	Automated []*AutomatedTransaction
	// Periodic holds periodic transactions. They are budget templates and are not balanced.
	Periodic []*Transaction
	// Warnings collects the problems that did not abort the build.
	Warnings []Diagnostic

	config  *Config
	queries *QueryCache
	regexes *RegexCache
}

// Diagnostic is a warning found while building the ledger.
type Diagnostic struct {
	Pos     ast.Position
	Message string
}

func (d Diagnostic) String() string {
	if d.Pos.IsZero() {
		return d.Message
	}
	return d.Pos.String() + ": " + d.Message
}

// ValidationErrors wraps multiple validation errors
type ValidationErrors struct {
	Errors []error
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d validation errors occurred", len(e.Errors))
}

// Unwrap returns the underlying errors for error unwrapping
func (e *ValidationErrors) Unwrap() []error {
	return e.Errors
}

// New creates an empty ledger with the given configuration.
func New(cfg *Config) *Ledger {
	return &Ledger{
		Accounts:    NewDirectory[*Account]("account"),
		Commodities: NewDirectory[*Currency]("commodity"),
		Payees:      NewDirectory[*Payee]("payee"),
		config:      cfg,
		queries:     NewQueryCache(),
		regexes:     NewRegexCache(),
	}
}

// Build assembles a ledger from a parsed ledger file. The Config in ctx is combined with the
// options of the file.
//
// The build runs in order: declarations are registered and undeclared names are handled
// according to the policy; declared prices are materialized; transactions are resolved,
// with automated and periodic transactions set aside; transactions are sorted by date and
// balanced in that order against one set of running balances. When automated transactions
// exist, their postings are injected and every transaction is balanced exactly once more.
// Finally account assert and check expressions are evaluated.
//
// Any balancing failure aborts the build and no ledger is returned.
func Build(ctx context.Context, tree *ast.Ledger) (*Ledger, error) {
	fileCfg, err := configFromAST(tree)
	if err != nil {
		return nil, err
	}
	cfg := ConfigFromContext(ctx).merge(fileCfg)

	timer := telemetry.StartTimer(ctx, fmt.Sprintf("ledger.build (%d transactions)", len(tree.Transactions)))
	defer timer.End()

	l := New(cfg)

	t := timer.Child("ledger.declarations")
	err = l.declare(tree)
	t.End()
	if err != nil {
		return nil, err
	}

	t = timer.Child("ledger.prices")
	err = l.materializePrices(tree.Prices)
	t.End()
	if err != nil {
		return nil, err
	}

	t = timer.Child("ledger.resolve")
	err = l.resolveAll(tree.Transactions)
	t.End()
	if err != nil {
		return nil, err
	}

	sort.SliceStable(l.Transactions, func(i, j int) bool {
		return l.Transactions[i].Date.Before(l.Transactions[j].Date)
	})
	declared := len(l.Prices)

	t = timer.Child("ledger.balance")
	derived, err := l.balanceAll(ctx)
	t.End()
	if err != nil {
		return nil, err
	}

	if len(l.Automated) > 0 {
		t = timer.Child(fmt.Sprintf("ledger.automated (%d)", len(l.Automated)))
		derived, err = l.automate(ctx)
		t.End()
		if err != nil {
			return nil, err
		}
	}
	for _, txn := range l.Transactions {
		txn.Status = Correct
	}
	l.Prices = append(l.Prices[:declared], derived...)

	t = timer.Child("ledger.accounts")
	err = l.checkAccounts()
	t.End()
	if err != nil {
		return nil, err
	}

	return l, nil
}

// Config returns the configuration the ledger was built with.
func (l *Ledger) Config() *Config {
	return l.config
}

func (l *Ledger) warn(pos ast.Position, format string, args ...any) {
	d := Diagnostic{Pos: pos, Message: fmt.Sprintf(format, args...)}
	l.Warnings = append(l.Warnings, d)
	l.config.Logger.Warn(d.Message, "pos", pos.String())
}

func (l *Ledger) declare(tree *ast.Ledger) error {
	for _, d := range tree.Commodities {
		c := NewCurrency(d.Name, OriginDeclared)
		c.Note, c.Default = d.Note, d.Default
		if d.Format != "" {
			f, err := ParseDisplayFormat(d.Format)
			if err != nil {
				return fmt.Errorf("%s: commodity %s: %w", d.Pos, d.Name, err)
			}
			c.Format = f
		}
		if !l.Commodities.Insert(c) {
			l.warn(d.Pos, "duplicate commodity %s", d.Name)
			continue
		}
		for _, alias := range d.Aliases {
			if err := l.Commodities.AddAlias(alias, d.Name); err != nil {
				return fmt.Errorf("%s: %w", d.Pos, err)
			}
			c.AddAlias(alias)
		}
	}

	for _, d := range tree.Accounts {
		a := NewAccount(d.Name, OriginDeclared)
		a.Note, a.Country, a.IBAN, a.Default = d.Note, d.Country, d.IBAN, d.Default
		a.Check, a.Assert = d.Check, d.Assert
		for _, pattern := range d.Payees {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return fmt.Errorf("%s: account %s: invalid payee pattern %q: %w", d.Pos, d.Name, pattern, err)
			}
			a.Payees = append(a.Payees, re)
		}
		if !l.Accounts.Insert(a) {
			l.warn(d.Pos, "duplicate account %s", d.Name)
			continue
		}
		for _, alias := range d.Aliases {
			if err := l.Accounts.AddAlias(alias, d.Name); err != nil {
				return fmt.Errorf("%s: %w", d.Pos, err)
			}
			a.AddAlias(alias)
		}
	}

	for _, d := range tree.Payees {
		p := NewPayee(d.Name, OriginDeclared)
		p.Note = d.Note
		for _, alias := range d.Aliases {
			if err := p.AddAlias(alias); err != nil {
				return fmt.Errorf("%s: %w", d.Pos, err)
			}
		}
		if !l.Payees.Insert(p) {
			l.warn(d.Pos, "duplicate payee %s", d.Name)
		}
	}

	return l.scanUndeclared(tree)
}

// ensure registers name as an inferred entity when it is not known, applying the policy.
func ensure[T Entity](l *Ledger, dir *Directory[T], name string, pos ast.Position, create func(string, Origin) T) error {
	if name == "" || dir.Has(name) {
		return nil
	}
	switch l.config.Policy {
	case Pedantic:
		return &UndeclaredError{Pos: pos, Kind: dir.Kind(), Name: name}
	case Strict:
		l.warn(pos, "undeclared %s %s", dir.Kind(), name)
	}
	dir.Insert(create(name, OriginInferred))
	return nil
}

func (l *Ledger) ensureCommodities(pos ast.Position, amounts ...*ast.Amount) error {
	for _, a := range amounts {
		if a == nil {
			continue
		}
		if err := ensure(l, l.Commodities, a.Currency, pos, NewCurrency); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) ensurePayee(name string, pos ast.Position) error {
	if name == "" {
		return nil
	}
	if _, ok := l.Payees.Find(func(p *Payee) bool { return p.Matches(name) }); ok {
		return nil
	}
	return ensure(l, l.Payees, name, pos, NewPayee)
}

func (l *Ledger) scanUndeclared(tree *ast.Ledger) error {
	for _, txn := range tree.Transactions {
		if txn.Kind == ast.TransactionReal {
			if err := l.ensurePayee(payeeName(txn), txn.Pos); err != nil {
				return err
			}
		}
		for _, p := range txn.Postings {
			pos := postingPos(txn, p)
			if err := ensure(l, l.Accounts, p.Account, pos, NewAccount); err != nil {
				return err
			}
			var cost *ast.Amount
			if p.Cost != nil {
				cost = &p.Cost.Amount
			}
			if err := l.ensureCommodities(pos, p.Amount, p.Balance, cost); err != nil {
				return err
			}
			if err := l.ensurePayee(p.Payee, pos); err != nil {
				return err
			}
		}
	}

	for _, p := range tree.Prices {
		if err := ensure(l, l.Commodities, p.Commodity, p.Pos, NewCurrency); err != nil {
			return err
		}
		if err := l.ensureCommodities(p.Pos, &p.Amount); err != nil {
			return err
		}
	}
	return nil
}

func payeeName(txn *ast.Transaction) string {
	if txn.Payee != "" {
		return txn.Payee
	}
	return txn.Description
}

func postingPos(txn *ast.Transaction, p *ast.Posting) ast.Position {
	if p.Pos.IsZero() {
		return txn.Pos
	}
	return p.Pos
}

func (l *Ledger) commodity(name string) (*Currency, error) {
	return l.Commodities.Get(name)
}

// resolvePayee finds the payee by name, then by alias pattern.
func (l *Ledger) resolvePayee(name string) *Payee {
	if name == "" {
		return nil
	}
	if p, err := l.Payees.Get(name); err == nil {
		return p
	}
	p, _ := l.Payees.Find(func(p *Payee) bool { return p.Matches(name) })
	return p
}

func (l *Ledger) materializePrices(prices []*ast.Price) error {
	for _, p := range prices {
		commodity, err := l.commodity(p.Commodity)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Pos, err)
		}
		price, err := ParseAmount(&p.Amount, l.commodity)
		if err != nil {
			return fmt.Errorf("%s: %w", p.Pos, err)
		}
		if p.Date.IsZero() {
			return fmt.Errorf("%s: price of %s has no date", p.Pos, p.Commodity)
		}
		l.Prices = append(l.Prices, &Price{Date: p.Date.Time, Commodity: commodity, Price: price})
	}
	return nil
}

func (l *Ledger) resolveAll(txns []*ast.Transaction) error {
	for _, raw := range txns {
		switch raw.Kind {
		case ast.TransactionAutomated:
			a, err := l.resolveAutomated(raw)
			if err != nil {
				return err
			}
			l.Automated = append(l.Automated, a)
		case ast.TransactionPeriodic:
			t, err := l.resolveTransaction(raw)
			if err != nil {
				return err
			}
			l.Periodic = append(l.Periodic, t)
		default:
			t, err := l.resolveTransaction(raw)
			if err != nil {
				return err
			}
			l.Transactions = append(l.Transactions, t)
		}
	}
	return nil
}

func (l *Ledger) resolveTransaction(raw *ast.Transaction) (*Transaction, error) {
	t := &Transaction{
		Pos:         raw.Pos,
		Kind:        raw.Kind,
		Cleared:     raw.Cleared,
		Pending:     raw.Pending,
		Code:        raw.Code,
		Description: raw.Description,
		Comments:    raw.Comments,
		Period:      raw.Period,
	}
	if !raw.Date.IsZero() {
		t.Date = raw.Date.Time
	} else if raw.Kind == ast.TransactionReal {
		return nil, fmt.Errorf("%s: transaction %q has no date", raw.Pos, raw.Description)
	}
	if !raw.EffectiveDate.IsZero() {
		t.EffectiveDate = raw.EffectiveDate.Time
	}
	payee := payeeName(raw)
	t.Payee = l.resolvePayee(payee)

	lastReal := -1
	for i, rp := range raw.Postings {
		if rp.Kind == ast.PostingReal {
			lastReal = i
		}
	}

	for i, rp := range raw.Postings {
		pos := postingPos(raw, rp)
		if l.config.Policy == Pedantic && rp.Kind == ast.PostingReal && rp.IsEmpty() && i != lastReal {
			return nil, NewPostingError(t, pos, rp.Account, ErrEmptyPostingShouldBeLast)
		}

		p, err := l.resolvePosting(t, rp, pos, payee)
		if err != nil {
			return nil, err
		}
		t.AddPosting(p)

		if rp.AmountExpr != "" {
			if err := l.evaluateAmount(t, p); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

func (l *Ledger) resolvePosting(t *Transaction, rp *ast.Posting, pos ast.Position, payee string) (*Posting, error) {
	p := &Posting{
		Pos:        pos,
		Kind:       rp.Kind,
		Origin:     FromTransaction,
		AmountExpr: rp.AmountExpr,
		Payee:      l.resolvePayee(rp.Payee),
		Comments:   rp.Comments,
	}
	if !rp.Date.IsZero() {
		p.Date = rp.Date.Time
	}

	account, err := l.resolveAccount(rp.Account, payee)
	if err != nil {
		return nil, NewPostingError(t, pos, rp.Account, err)
	}
	p.Account = account

	if rp.Amount != nil {
		m, err := ParseAmount(rp.Amount, l.commodity)
		if err != nil {
			return nil, NewPostingError(t, pos, rp.Account, err)
		}
		p.Amount = &m
	}
	if rp.Balance != nil {
		m, err := ParseAmount(rp.Balance, l.commodity)
		if err != nil {
			return nil, NewPostingError(t, pos, rp.Account, err)
		}
		p.Balance = &m
	}
	if rp.Cost != nil {
		m, err := ParseAmount(&rp.Cost.Amount, l.commodity)
		if err != nil {
			return nil, NewPostingError(t, pos, rp.Account, err)
		}
		p.Cost = &Cost{Kind: rp.Cost.Kind, Amount: m}
	}
	return p, nil
}

// resolveAccount looks up an account by name or alias. A posting without account is
// assigned the first account whose payee patterns match the payee.
func (l *Ledger) resolveAccount(name, payee string) (*Account, error) {
	if name != "" {
		return l.Accounts.Get(name)
	}
	if a, ok := l.Accounts.Find(func(a *Account) bool { return a.MatchesPayee(payee) }); ok {
		return a, nil
	}
	return nil, fmt.Errorf("no account matches payee %q", payee)
}

// evaluateAmount computes the amount of a posting written as an expression. The
// expression sees the posting itself, without amount.
func (l *Ledger) evaluateAmount(t *Transaction, p *Posting) error {
	n, err := l.queries.Compile(p.AmountExpr)
	if err != nil {
		return NewPostingError(t, p.Pos, p.Account.Name(), err)
	}
	v, err := Evaluate(n, l.env(t, p))
	if err != nil {
		return NewPostingError(t, p.Pos, p.Account.Name(), err)
	}
	switch v := v.(type) {
	case MoneyValue:
		m := v.Money
		p.Amount = &m
	case NumberValue:
		m := NewMoney(v.Rat, nil)
		p.Amount = &m
	default:
		return NewPostingError(t, p.Pos, p.Account.Name(), mismatch("amount expression yields %s", v.String()))
	}
	return nil
}

func (l *Ledger) resolveAutomated(raw *ast.Transaction) (*AutomatedTransaction, error) {
	a := &AutomatedTransaction{Pos: raw.Pos, Query: raw.Query, Comments: raw.Comments}
	for _, rp := range raw.Postings {
		pos := postingPos(raw, rp)
		account, err := l.Accounts.Get(rp.Account)
		if err != nil {
			return nil, &AutomatedTransactionError{Pos: pos, Query: raw.Query, Err: err}
		}
		tmpl := &AutomatedPosting{Pos: pos, Account: account, Kind: rp.Kind, Comments: rp.Comments}

		switch {
		case rp.AmountExpr != "":
			n, err := l.queries.Compile(rp.AmountExpr)
			if err != nil {
				return nil, &AutomatedTransactionError{Pos: pos, Query: raw.Query, Err: err}
			}
			tmpl.Expr = n
		case rp.Amount != nil && rp.Amount.Currency == "":
			q, err := ParseQuantity(rp.Amount.Value)
			if err != nil {
				return nil, &AutomatedTransactionError{Pos: pos, Query: raw.Query, Err: err}
			}
			tmpl.Factor = q
		case rp.Amount != nil:
			m, err := ParseAmount(rp.Amount, l.commodity)
			if err != nil {
				return nil, &AutomatedTransactionError{Pos: pos, Query: raw.Query, Err: err}
			}
			tmpl.Fixed = &m
		default:
			tmpl.Factor = big.NewRat(1, 1)
		}
		a.Postings = append(a.Postings, tmpl)
	}
	return a, nil
}

// balanceAll runs the balancer over every transaction in date order and returns the prices
// derived on the way.
func (l *Ledger) balanceAll(ctx context.Context) ([]*Price, error) {
	balances := make(map[*Account]Balance)
	var prices []*Price
	for _, t := range l.Transactions {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if _, err := t.Balance(balances, l.config.SkipBalanceCheck); err != nil {
			return nil, err
		}
		prices = append(prices, t.Prices()...)
	}
	return prices, nil
}

// automate injects the postings of automated transactions and balances everything once
// more. Postings added by this second pass do not trigger further automation.
func (l *Ledger) automate(ctx context.Context) ([]*Price, error) {
	for _, a := range l.Automated {
		if err := a.Compile(l.queries); err != nil {
			return nil, err
		}
	}

	n, err := applyAutomated(l.Transactions, l.Automated, Env{Commodities: l.Commodities, Regexes: l.regexes})
	if err != nil {
		return nil, err
	}
	l.config.Logger.Debug("automated postings injected", "count", n)

	return l.balanceAll(ctx)
}

// checkAccounts evaluates account assert and check expressions against every posting.
// Failed asserts are collected and returned together; failed checks become warnings.
func (l *Ledger) checkAccounts() error {
	var errs error
	for _, t := range l.Transactions {
		for _, p := range t.AllPostings() {
			a := p.Account
			if len(a.Assert) == 0 && len(a.Check) == 0 {
				continue
			}
			env := l.env(t, p)

			for _, expr := range a.Assert {
				ok, err := l.holds(expr, env)
				if err != nil {
					errs = multierr.Append(errs, NewPostingError(t, p.Pos, a.Name(), err))
					continue
				}
				if !ok {
					errs = multierr.Append(errs, &AccountAssertionError{Transaction: t, Posting: p, Expr: expr})
				}
			}
			for _, expr := range a.Check {
				ok, err := l.holds(expr, env)
				if err != nil {
					l.warn(p.Pos, "check %q on %s: %v", expr, a.Name(), err)
					continue
				}
				if !ok {
					l.warn(p.Pos, "check %q failed for %s on %s", expr, a.Name(), t.Date.Format(ast.DateLayout))
				}
			}
		}
	}
	if errs != nil {
		return &ValidationErrors{Errors: multierr.Errors(errs)}
	}
	return nil
}

func (l *Ledger) holds(expr string, env *Env) (bool, error) {
	n, err := l.queries.Compile(expr)
	if err != nil {
		return false, err
	}
	return EvaluateBool(n, env)
}

func (l *Ledger) env(t *Transaction, p *Posting) *Env {
	return &Env{Posting: p, Transaction: t, Commodities: l.Commodities, Regexes: l.regexes}
}

// Query compiles command line query tokens. An empty query yields a nil predicate.
func (l *Ledger) Query(tokens []string) (Node, error) {
	return l.queries.CompileQuery(tokens)
}

// Filter is the ledger-bound form of Filter, sharing the ledger's regex cache.
func (l *Ledger) Filter(opts FilterOptions, predicate Node, t *Transaction, p *Posting) (bool, error) {
	if ok, err := Filter(opts, nil, t, p, l.Commodities); !ok || err != nil || predicate == nil {
		return ok, err
	}
	return EvaluateBool(predicate, l.env(t, p))
}

// PriceGraph returns a conversion graph over the ledger's prices.
func (l *Ledger) PriceGraph() *PriceGraph {
	return NewPriceGraph(l.Prices)
}

// Balances returns the balance of every account over the postings accepted by opts and
// predicate.
func (l *Ledger) Balances(opts FilterOptions, predicate Node) (map[*Account]Balance, error) {
	out := make(map[*Account]Balance)
	for _, t := range l.Transactions {
		for _, p := range t.AllPostings() {
			if p.Amount == nil {
				continue
			}
			ok, err := l.Filter(opts, predicate, t, p)
			if err != nil {
				return nil, err
			}
			if ok {
				out[p.Account] = out[p.Account].AddMoney(*p.Amount)
			}
		}
	}
	return out, nil
}

// DefaultCommodity returns the commodity declared as default, if any.
func (l *Ledger) DefaultCommodity() (*Currency, bool) {
	return l.Commodities.Find(func(c *Currency) bool { return c.Default })
}

// LastDate returns the date of the latest transaction, or the zero time.
func (l *Ledger) LastDate() time.Time {
	if len(l.Transactions) == 0 {
		return time.Time{}
	}
	return l.Transactions[len(l.Transactions)-1].Date
}
