package ledger

import (
	"fmt"
	"math/big"

	"github.com/robinvdvleuten/dinero/ast"
)

// AutomatedTransaction adds postings to every posting matching its query.
//
//	= expenses and %deductible
//	    (Tax:Deductible)       0.21          ; scalar multiple of the matched amount
//	    [Budget:Food]          -10 EUR       ; fixed amount
//	    (Savings)              (amount * 2)  ; expression over the matched posting
type AutomatedTransaction struct {
	Pos      ast.Position
	Query    string
	Comments []string
	Postings []*AutomatedPosting

	predicate Node
}

// AutomatedPosting is a template posting of an automated transaction. Exactly one of
// Factor, Fixed and Expr is set.
type AutomatedPosting struct {
	Pos      ast.Position
	Account  *Account
	Kind     ast.PostingKind
	Factor   *big.Rat
	Fixed    *Money
	Expr     Node
	Comments []string
}

// Compile parses the query once. Compiling twice is a no-op.
func (a *AutomatedTransaction) Compile(cache *QueryCache) error {
	if a.predicate != nil {
		return nil
	}
	n, err := cache.Compile(a.Query)
	if err != nil {
		return &AutomatedTransactionError{Pos: a.Pos, Query: a.Query, Err: err}
	}
	a.predicate = n
	return nil
}

// Matches reports whether the posting in env triggers the automated transaction.
func (a *AutomatedTransaction) Matches(env *Env) (bool, error) {
	if a.predicate == nil {
		return false, &AutomatedTransactionError{Pos: a.Pos, Query: a.Query, Err: fmt.Errorf("query not compiled")}
	}
	ok, err := EvaluateBool(a.predicate, env)
	if err != nil {
		return false, &AutomatedTransactionError{Pos: a.Pos, Query: a.Query, Err: err}
	}
	return ok, nil
}

// Generate builds the postings to inject for the triggering posting in env.
func (a *AutomatedTransaction) Generate(env *Env) ([]*Posting, error) {
	trigger := env.Posting
	base := Zero
	if trigger.Amount != nil {
		base = *trigger.Amount
	}

	out := make([]*Posting, 0, len(a.Postings))
	for _, tmpl := range a.Postings {
		var amount Money
		switch {
		case tmpl.Fixed != nil:
			amount = *tmpl.Fixed
		case tmpl.Expr != nil:
			v, err := Evaluate(tmpl.Expr, env)
			if err != nil {
				return nil, &AutomatedTransactionError{Pos: tmpl.Pos, Query: a.Query, Err: err}
			}
			switch v := v.(type) {
			case MoneyValue:
				amount = v.Money
			case NumberValue:
				amount = base.Mul(v.Rat)
			default:
				return nil, &AutomatedTransactionError{
					Pos: tmpl.Pos, Query: a.Query,
					Err: mismatch("amount expression %s yields %s", tmpl.Expr, v.kind()),
				}
			}
		case tmpl.Factor != nil:
			amount = base.Mul(tmpl.Factor)
		default:
			amount = base
		}

		comments := append(append([]string{}, a.Comments...), tmpl.Comments...)
		out = append(out, &Posting{
			Pos:      tmpl.Pos,
			Account:  tmpl.Account,
			Kind:     tmpl.Kind,
			Origin:   Automated,
			Amount:   &amount,
			Payee:    trigger.EffectivePayee(),
			Date:     trigger.Date,
			Comments: comments,
		})
	}
	return out, nil
}

// applyAutomated matches every real posting written in the file against every automated
// transaction and injects the generated postings. Matching finishes before injection so
// generated postings never trigger automated transactions themselves.
func applyAutomated(txns []*Transaction, automated []*AutomatedTransaction, env Env) (int, error) {
	type injection struct {
		txn      *Transaction
		postings []*Posting
	}
	var pending []injection

	for _, t := range txns {
		for _, p := range t.Postings {
			if p.Origin != FromTransaction {
				continue
			}
			e := env
			e.Posting, e.Transaction = p, t
			for _, a := range automated {
				ok, err := a.Matches(&e)
				if err != nil {
					return 0, err
				}
				if !ok {
					continue
				}
				generated, err := a.Generate(&e)
				if err != nil {
					return 0, err
				}
				pending = append(pending, injection{txn: t, postings: generated})
			}
		}
	}

	n := 0
	for _, inj := range pending {
		for _, p := range inj.postings {
			inj.txn.AddPosting(p)
			n++
		}
	}
	return n, nil
}
