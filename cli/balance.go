package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-runewidth"

	"github.com/robinvdvleuten/dinero/ledger"
	"github.com/robinvdvleuten/dinero/output"
)

// minAmountWidth keeps short reports from looking cramped.
const minAmountWidth = 20

type BalanceCmd struct {
	File  string   `help:"Ledger input filename (use '-' for stdin)." arg:""`
	Query []string `help:"Query terms: account patterns, @payee, %tag, or an expression." arg:"" optional:""`
	ReportFlags

	Exchange string `help:"Convert balances into this commodity using the most recent prices." short:"X"`
	Empty    bool   `help:"Show accounts whose balance is zero." short:"E"`
}

type balanceRow struct {
	account string
	balance ledger.Balance
}

func (cmd *BalanceCmd) Run(ctx *kong.Context, globals *Globals) error {
	s := newSession(ctx, globals, fmt.Sprintf("balance %s", filepath.Base(cmd.File)))
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
	balances, err := l.Balances(cmd.Options(), predicate)
	if err != nil {
		return s.fail(err, "text", "query failed")
	}

	if cmd.Exchange != "" {
		balances, err = cmd.exchange(l, balances)
		if err != nil {
			return s.fail(err, "text", "conversion failed")
		}
	}

	rows := make([]balanceRow, 0, len(balances))
	var total ledger.Balance
	for account, b := range balances {
		total = total.Add(b)
		if b.IsZero() && !cmd.Empty {
			continue
		}
		rows = append(rows, balanceRow{account: account.Name(), balance: b})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].account < rows[j].account })

	writeBalances(s.stdout, s.styles(s.stdout), rows, total)
	return nil
}

// exchange converts every balance into the --exchange commodity as of the report end.
func (cmd *BalanceCmd) exchange(l *ledger.Ledger, balances map[*ledger.Account]ledger.Balance) (map[*ledger.Account]ledger.Balance, error) {
	target, err := findCommodity(l, cmd.Exchange)
	if err != nil {
		return nil, err
	}
	date := l.LastDate()
	if !cmd.End.IsZero() {
		date = cmd.End.Add(-24 * time.Hour)
	}

	graph := l.PriceGraph()
	out := make(map[*ledger.Account]ledger.Balance, len(balances))
	for account, b := range balances {
		m, err := graph.BalanceValue(b, target, date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", account.Name(), err)
		}
		out[account] = ledger.BalanceOf(m)
	}
	return out, nil
}

// writeBalances prints one line per commodity with the account name after the last one,
// followed by a rule and the grand total.
//
//	         200.00 EUR  Expenses:Travel
//	--------------------
//	           0
func writeBalances(w io.Writer, styles *output.Styles, rows []balanceRow, total ledger.Balance) {
	width := minAmountWidth
	for _, r := range rows {
		for _, m := range r.balance.Amounts() {
			width = max(width, runewidth.StringWidth(m.Format()))
		}
	}
	for _, m := range total.Amounts() {
		width = max(width, runewidth.StringWidth(m.Format()))
	}

	pad := func(text string) string {
		return strings.Repeat(" ", max(width-runewidth.StringWidth(text), 0))
	}
	writeAmounts := func(b ledger.Balance, suffix string) {
		amounts := b.Amounts()
		if len(amounts) == 0 {
			_, _ = fmt.Fprintf(w, "%s%s%s\n", pad("0"), "0", suffix)
			return
		}
		for i, m := range amounts {
			text := m.Format()
			line := pad(text) + styles.Amount(text)
			if i == len(amounts)-1 {
				line += suffix
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}

	for _, r := range rows {
		writeAmounts(r.balance, "  "+styles.Account(r.account))
	}
	if len(rows) > 1 {
		_, _ = fmt.Fprintln(w, strings.Repeat("-", width))
		writeAmounts(total, "")
	}
}
