package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/dinero/formatter"
	"github.com/robinvdvleuten/dinero/ledger"
)

type PrintCmd struct {
	File  string   `help:"Ledger input filename (use '-' for stdin)." arg:""`
	Query []string `help:"Query terms: account patterns, @payee, %tag, or an expression." arg:"" optional:""`
	ReportFlags

	AmountColumn int  `help:"Column amounts are right-aligned to (auto if 0)." default:"0"`
	NoInferred   bool `help:"Do not print amounts computed while balancing."`
	NoAutomated  bool `help:"Do not print postings added by automated transactions."`

	OutputFile string `help:"Write to this file instead of standard output." short:"o" type:"path"`
}

func (cmd *PrintCmd) Run(ctx *kong.Context, globals *Globals) error {
	s := newSession(ctx, globals, fmt.Sprintf("print %s", filepath.Base(cmd.File)))
	defer s.finish()

	runCtx := s.context(context.Background())
	l, err := s.build(runCtx, cmd.File)
	if err != nil {
		return s.fail(err, "text", summarize(err))
	}
	s.printWarnings(l)

	predicate, err := l.Query(cmd.Query)
	if err != nil {
		return s.fail(err, "text", "invalid query")
	}
	txns, err := matchingTransactions(l, cmd.Options(), predicate)
	if err != nil {
		return s.fail(err, "text", "query failed")
	}

	var opts []formatter.Option
	if cmd.AmountColumn > 0 {
		opts = append(opts, formatter.WithAmountColumn(cmd.AmountColumn))
	}
	opts = append(opts,
		formatter.WithInferredAmounts(!cmd.NoInferred),
		formatter.WithAutomatedPostings(!cmd.NoAutomated),
	)
	f := formatter.New(opts...)
	return writeOutput(s.stdout, cmd.OutputFile, func(w io.Writer) error {
		return f.Format(txns, w)
	})
}

// matchingTransactions returns the transactions with at least one posting accepted by
// opts and predicate. Matching transactions are returned whole.
func matchingTransactions(l *ledger.Ledger, opts ledger.FilterOptions, predicate ledger.Node) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction
	for _, t := range l.Transactions {
		for _, p := range t.AllPostings() {
			ok, err := l.Filter(opts, predicate, t, p)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, t)
				break
			}
		}
	}
	return out, nil
}
