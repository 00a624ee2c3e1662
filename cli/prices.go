package cli

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kong"
	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/dinero/formatter"
	"github.com/robinvdvleuten/dinero/ledger"
)

type PricesCmd struct {
	File      string `help:"Ledger input filename (use '-' for stdin)." arg:""`
	Commodity string `help:"Only print prices of this commodity." arg:"" optional:""`

	OutputFile string `help:"Write to this file instead of standard output." short:"o" type:"path"`
}

func (cmd *PricesCmd) Run(ctx *kong.Context, globals *Globals) error {
	s := newSession(ctx, globals, fmt.Sprintf("prices %s", filepath.Base(cmd.File)))
	defer s.finish()

	runCtx := s.context(context.Background())
	l, err := s.build(runCtx, cmd.File)
	if err != nil {
		return s.fail(err, "text", summarize(err))
	}

	prices := l.Prices
	if cmd.Commodity != "" {
		c, err := findCommodity(l, cmd.Commodity)
		if err != nil {
			return s.fail(err, "text", "unknown commodity")
		}
		prices = nil
		for _, p := range l.Prices {
			if p.Commodity == c {
				prices = append(prices, p)
			}
		}
	}
	prices = sortPrices(prices)
	return writeOutput(s.stdout, cmd.OutputFile, func(w io.Writer) error {
		return formatter.New().FormatPrices(prices, w)
	})
}

// findCommodity resolves name as a commodity name or alias, falling back to the first
// commodity matching it as a case-insensitive regular expression.
func findCommodity(l *ledger.Ledger, name string) (*ledger.Currency, error) {
	c, err := l.Commodities.Get(name)
	if err == nil {
		return c, nil
	}
	var notFound *ledger.NotFoundError
	if !stdErrors.As(err, &notFound) {
		return nil, err
	}
	return l.Commodities.GetByRegex("(?i)" + name)
}

// sortPrices orders prices by date, keeping declared prices before derived ones on the
// same day.
func sortPrices(prices []*ledger.Price) []*ledger.Price {
	out := append([]*ledger.Price(nil), prices...)
	slices.SortStableFunc(out, func(a, b *ledger.Price) int {
		return a.Date.Compare(b.Date)
	})
	return out
}
