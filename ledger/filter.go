package ledger

import (
	"time"

	"github.com/robinvdvleuten/dinero/ast"
)

// FilterOptions are the report options applied before a query predicate.
type FilterOptions struct {
	// Begin is inclusive; the zero time means no lower bound.
	Begin time.Time
	// End is exclusive; the zero time means no upper bound.
	End time.Time
	// Real drops virtual postings.
	Real bool
	// Cleared drops postings of uncleared transactions.
	Cleared bool
}

// Filter decides whether posting p of transaction t belongs in a report. The options are
// checked first, then predicate, which may be nil to accept every posting. Evaluation
// errors are returned rather than treated as a mismatch.
func Filter(opts FilterOptions, predicate Node, t *Transaction, p *Posting, commodities *Directory[*Currency]) (bool, error) {
	date := t.Date
	if !p.Date.IsZero() {
		date = p.Date
	}
	if !opts.Begin.IsZero() && date.Before(opts.Begin) {
		return false, nil
	}
	if !opts.End.IsZero() && !date.Before(opts.End) {
		return false, nil
	}
	if opts.Real && p.Kind != ast.PostingReal {
		return false, nil
	}
	if opts.Cleared && !t.Cleared {
		return false, nil
	}
	if predicate == nil {
		return true, nil
	}
	return EvaluateBool(predicate, &Env{Posting: p, Transaction: t, Commodities: commodities})
}
