package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/dinero/ast"
)

func build(t *testing.T, tree *ast.Ledger, cfg *Config) (*Ledger, error) {
	t.Helper()
	ctx := context.Background()
	if cfg != nil {
		ctx = cfg.WithContext(ctx)
	}
	return Build(ctx, tree)
}

func hotel() *ast.Transaction {
	return ast.NewTransaction(ast.MustDate("2021-01-15"), "Hotel",
		ast.WithPostings(
			ast.NewPosting("Expenses:Travel", ast.WithAmount("200", "EUR")),
			ast.NewPosting("Assets:Checking", ast.WithAmount("-200", "EUR")),
		),
	)
}

func TestBuildSimpleTransaction(t *testing.T) {
	l, err := build(t, &ast.Ledger{Transactions: []*ast.Transaction{hotel()}}, nil)
	assert.NoError(t, err)

	assert.Equal(t, 2, l.Accounts.Len())
	assert.Equal(t, 1, l.Commodities.Len())
	assert.Equal(t, 1, len(l.Transactions))

	tx := l.Transactions[0]
	assert.Equal(t, 2, len(tx.Postings))
	assert.Equal(t, Correct, tx.Status)
	for _, p := range tx.Postings {
		assert.False(t, p.IsInferred())
		assert.Equal(t, OriginInferred, p.Account.Origin())
	}
	assert.Equal(t, 0, len(l.Prices))
	assert.Equal(t, 0, len(l.Warnings))
}

func TestBuildSharesEntities(t *testing.T) {
	tree := &ast.Ledger{
		Accounts: []*ast.AccountDirective{
			{Name: "Assets:Checking", Aliases: []string{"checking"}},
			{Name: "Expenses:Food"},
		},
		Commodities: []*ast.CommodityDirective{
			{Name: "EUR", Aliases: []string{"€"}, Format: "-1.234,00 €"},
		},
		Transactions: []*ast.Transaction{
			ast.NewTransaction(ast.MustDate("2021-01-15"), "Lunch", ast.WithPostings(
				ast.NewPosting("Expenses:Food", ast.WithAmount("12.5", "€")),
				ast.NewPosting("checking"),
			)),
			ast.NewTransaction(ast.MustDate("2021-01-16"), "Dinner", ast.WithPostings(
				ast.NewPosting("expenses:food", ast.WithAmount("20", "EUR")),
				ast.NewPosting("Assets:Checking", ast.WithBalance("-32.50", "EUR")),
			)),
		},
	}

	l, err := build(t, tree, nil)
	assert.NoError(t, err)
	assert.Equal(t, 2, l.Accounts.Len())
	assert.Equal(t, 1, l.Commodities.Len())

	checking := must(l.Accounts.Get("checking"))
	assert.True(t, l.Transactions[0].Postings[1].Account == checking)
	assert.True(t, l.Transactions[1].Postings[1].Account == checking)
	assert.Equal(t, []string{"checking"}, checking.Aliases())
	assert.Equal(t, OriginDeclared, checking.Origin())

	first := l.Transactions[0].Postings[1]
	assert.True(t, first.IsInferred())
	assert.Equal(t, "-12,50 €", first.Amount.String())

	second := l.Transactions[1].Postings[1]
	assert.Equal(t, "-20,00 €", second.Amount.String())
}

func TestBuildPolicies(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		warnings int
		wantErr  bool
	}{
		{name: "silent", policy: Silent},
		{name: "strict", policy: Strict, warnings: 4},
		{name: "pedantic", policy: Pedantic, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Policy = tt.policy

			l, err := build(t, &ast.Ledger{Transactions: []*ast.Transaction{hotel()}}, cfg)
			if tt.wantErr {
				var undeclared *UndeclaredError
				assert.True(t, errors.As(err, &undeclared), "got %v", err)
				assert.Equal(t, "payee", undeclared.Kind)
				assert.Zero(t, l)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.warnings, len(l.Warnings))
			assert.Equal(t, 1, l.Payees.Len())
		})
	}
}

func TestBuildPedanticWithDeclarations(t *testing.T) {
	tree := &ast.Ledger{
		Options:     []*ast.Option{{Name: "pedantic", Value: "true"}},
		Accounts:    []*ast.AccountDirective{{Name: "Expenses:Travel"}, {Name: "Assets:Checking"}},
		Commodities: []*ast.CommodityDirective{{Name: "EUR"}},
		Payees:      []*ast.PayeeDirective{{Name: "Hotel"}},
		Transactions: []*ast.Transaction{
			ast.NewTransaction(ast.MustDate("2021-01-15"), "Hotel", ast.WithPostings(
				ast.NewPosting("Assets:Checking"),
				ast.NewPosting("Expenses:Travel", ast.WithAmount("200", "EUR")),
			)),
		},
	}

	_, err := build(t, tree, nil)
	assert.True(t, errors.Is(err, ErrEmptyPostingShouldBeLast), "got %v", err)
	var pe *PostingError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "Assets:Checking", pe.Account)

	tree.Transactions = []*ast.Transaction{hotel()}
	l, err := build(t, tree, nil)
	assert.NoError(t, err)
	assert.Equal(t, Pedantic, l.Config().Policy)
}

func TestBuildPayeeResolution(t *testing.T) {
	tree := &ast.Ledger{
		Payees: []*ast.PayeeDirective{{Name: "Mercadona", Aliases: []string{"^mercadona"}}},
		Accounts: []*ast.AccountDirective{
			{Name: "Expenses:Food", Payees: []string{"(?i)mercadona"}},
			{Name: "Assets:Checking"},
		},
		Transactions: []*ast.Transaction{
			ast.NewTransaction(ast.MustDate("2021-01-15"), "MERCADONA VALENCIA", ast.WithPostings(
				ast.NewPosting("", ast.WithAmount("30", "EUR")),
				ast.NewPosting("Assets:Checking"),
			)),
		},
	}

	l, err := build(t, tree, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, l.Payees.Len(), "the description resolves to the declared payee")

	tx := l.Transactions[0]
	assert.Equal(t, "Mercadona", tx.Payee.Name())
	assert.Equal(t, "Expenses:Food", tx.Postings[0].Account.Name())
	assert.Equal(t, "Mercadona", tx.Postings[1].EffectivePayee().Name())
}

func TestBuildSortsByDate(t *testing.T) {
	day := func(d, desc string) *ast.Transaction {
		return ast.NewTransaction(ast.MustDate(d), desc, ast.WithPostings(
			ast.NewPosting("Expenses:Food", ast.WithAmount("1", "EUR")),
			ast.NewPosting("Assets:Checking"),
		))
	}
	tree := &ast.Ledger{Transactions: []*ast.Transaction{
		day("2021-03-01", "c"),
		day("2021-01-01", "a"),
		day("2021-03-01", "d"),
		day("2021-02-01", "b"),
	}}

	l, err := build(t, tree, nil)
	assert.NoError(t, err)
	var order string
	for _, tx := range l.Transactions {
		order += tx.Description
	}
	assert.Equal(t, "abcd", order)
	assert.Equal(t, date("2021-03-01"), l.LastDate())
}

func TestBuildAbortsOnUnbalancedTransaction(t *testing.T) {
	tree := &ast.Ledger{Transactions: []*ast.Transaction{
		hotel(),
		ast.NewTransaction(ast.MustDate("2021-01-16"), "Broken", ast.WithPostings(
			ast.NewPosting("Expenses:Travel", ast.WithAmount("10", "EUR")),
			ast.NewPosting("Assets:Checking", ast.WithAmount("-9", "EUR")),
		)),
	}}

	l, err := build(t, tree, nil)
	assert.Zero(t, l)
	var nb *TransactionNotBalancedError
	assert.True(t, errors.As(err, &nb))
	assert.Equal(t, "Broken", nb.Transaction.Description)
}

func TestBuildBalanceAssertions(t *testing.T) {
	tree := &ast.Ledger{Transactions: []*ast.Transaction{
		hotel(),
		ast.NewTransaction(ast.MustDate("2021-01-20"), "Refund", ast.WithPostings(
			ast.NewPosting("Assets:Checking", ast.WithAmount("50", "EUR"), ast.WithBalance("-100", "EUR")),
			ast.NewPosting("Expenses:Travel"),
		)),
	}}

	_, err := build(t, tree, nil)
	var nb *TransactionNotBalancedError
	assert.True(t, errors.As(err, &nb))
	assert.Equal(t, "Assets:Checking", nb.Account.Name())

	tree.Options = []*ast.Option{{Name: "no-balance-check", Value: "true"}}
	_, err = build(t, tree, nil)
	assert.NoError(t, err)
}

func TestBuildDerivesPrices(t *testing.T) {
	tree := &ast.Ledger{
		Prices: []*ast.Price{ast.NewPrice(ast.MustDate("2020-07-01"), "EUR", "1.5", "USD")},
		Transactions: []*ast.Transaction{
			ast.NewTransaction(ast.MustDate("2021-01-01"), "Buy", ast.WithPostings(
				ast.NewPosting("Assets:Broker", ast.WithAmount("1", "ACME")),
				ast.NewPosting("Assets:Checking", ast.WithAmount("-1000", "EUR")),
			)),
			ast.NewTransaction(ast.MustDate("2020-01-01"), "Buy", ast.WithPostings(
				ast.NewPosting("Assets:Broker", ast.WithAmount("1", "ACME"), ast.WithUnitCost("1000", "USD")),
				ast.NewPosting("Assets:Cash"),
			)),
		},
	}

	l, err := build(t, tree, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, len(l.Prices))
	assert.Equal(t, "2020-07-01 EUR 1.50 USD", l.Prices[0].String())
	assert.Equal(t, "2020-01-01 ACME 1,000.00 USD", l.Prices[1].String())
	assert.Equal(t, "2021-01-01 ACME 1,000.00 EUR", l.Prices[2].String())

	acme := must(l.Commodities.Get("ACME"))
	eur := must(l.Commodities.Get("EUR"))
	usd := must(l.Commodities.Get("USD"))
	rates := Conversion(acme, date("2022-01-01"), l.Prices)
	assert.Equal(t, "1/1000", rates[eur].RatString())
	assert.Equal(t, "1/1500", rates[usd].RatString())
	assert.Equal(t, "1/1500", l.PriceGraph().Rates(acme, date("2022-01-01"))["USD"].RatString())
}

func TestBuildAutomatedTransactions(t *testing.T) {
	tree := &ast.Ledger{Transactions: []*ast.Transaction{
		ast.NewAutomatedTransaction("account =~ /^Expenses:Travel/",
			ast.NewPosting("Budget:Travel", ast.WithKind(ast.PostingVirtual), ast.WithAmount("-1", "")),
			ast.NewPosting("Tax:Deductible", ast.WithKind(ast.PostingVirtualMustBalance), ast.WithAmountExpr("amount * 0.21")),
			ast.NewPosting("Tax:Receivable", ast.WithKind(ast.PostingVirtualMustBalance), ast.WithAmountExpr("-amount * 0.21")),
		),
		hotel(),
	}}
	tree.Accounts = []*ast.AccountDirective{
		{Name: "Budget:Travel"}, {Name: "Tax:Deductible"}, {Name: "Tax:Receivable"},
	}

	l, err := build(t, tree, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(l.Automated))
	assert.Equal(t, 1, len(l.Transactions))

	tx := l.Transactions[0]
	assert.Equal(t, Correct, tx.Status)
	assert.Equal(t, 2, len(tx.Postings))
	assert.Equal(t, 1, len(tx.VirtualPostings))
	assert.Equal(t, "-200.00 EUR", tx.VirtualPostings[0].Amount.String())

	assert.Equal(t, 2, len(tx.BalancedVirtualPostings))
	assert.Equal(t, "42.00 EUR", tx.BalancedVirtualPostings[0].Amount.String())
	assert.Equal(t, "-42.00 EUR", tx.BalancedVirtualPostings[1].Amount.String())
	for _, p := range tx.BalancedVirtualPostings {
		assert.Equal(t, Automated, p.Origin)
	}
}

func TestBuildAmountExpressions(t *testing.T) {
	tree := &ast.Ledger{Transactions: []*ast.Transaction{
		ast.NewTransaction(ast.MustDate("2021-01-15"), "Split", ast.WithPostings(
			ast.NewPosting("Expenses:Food", ast.WithAmountExpr("EUR 30 / 4")),
			ast.NewPosting("Assets:Checking"),
		)),
	}}

	l, err := build(t, tree, nil)
	assert.NoError(t, err)
	assert.Equal(t, "7.50 EUR", l.Transactions[0].Postings[0].Amount.String())
	assert.Equal(t, "-7.50 EUR", l.Transactions[0].Postings[1].Amount.String())

	tree.Transactions[0].Postings[0].AmountExpr = "account"
	_, err = build(t, tree, nil)
	var exprErr *ExpressionError
	assert.True(t, errors.As(err, &exprErr))
}

func TestBuildAccountAssertAndCheck(t *testing.T) {
	tree := &ast.Ledger{
		Accounts: []*ast.AccountDirective{
			{Name: "Expenses:Travel", Check: []string{"amount < 100 EUR"}},
			{Name: "Assets:Checking", Assert: []string{"amount < 0"}},
		},
		Transactions: []*ast.Transaction{hotel()},
	}

	l, err := build(t, tree, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(l.Warnings))
	assert.Contains(t, l.Warnings[0].Message, "amount < 100 EUR")

	tree.Accounts[1].Assert = []string{"amount > 0", "commodity == 'USD'"}
	_, err = build(t, tree, nil)
	var verrs *ValidationErrors
	assert.True(t, errors.As(err, &verrs))
	assert.Equal(t, 2, len(verrs.Errors))
	var failed *AccountAssertionError
	assert.True(t, errors.As(verrs.Errors[0], &failed))
	assert.Equal(t, "amount > 0", failed.Expr)
}

func TestBuildPeriodicTransactionsAreKeptAside(t *testing.T) {
	periodic := &ast.Transaction{
		Kind:   ast.TransactionPeriodic,
		Period: "monthly",
		Postings: []*ast.Posting{
			ast.NewPosting("Expenses:Food", ast.WithAmount("400", "EUR")),
			ast.NewPosting("Assets:Checking"),
		},
	}
	l, err := build(t, &ast.Ledger{Transactions: []*ast.Transaction{periodic, hotel()}}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(l.Periodic))
	assert.Equal(t, "monthly", l.Periodic[0].Period)
	assert.Equal(t, 1, len(l.Transactions))
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, &ast.Ledger{Transactions: []*ast.Transaction{hotel()}})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLedgerQueries(t *testing.T) {
	lunch := ast.NewTransaction(ast.MustDate("2021-02-01"), "Lunch",
		ast.WithCleared(),
		ast.WithPostings(
			ast.NewPosting("Expenses:Food", ast.WithAmount("15", "EUR")),
			ast.NewPosting("Assets:Checking"),
		))
	l, err := build(t, &ast.Ledger{Transactions: []*ast.Transaction{hotel(), lunch}}, nil)
	assert.NoError(t, err)

	predicate, err := l.Query([]string{"expenses"})
	assert.NoError(t, err)

	balances, err := l.Balances(FilterOptions{}, predicate)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(balances))
	travel := must(l.Accounts.Get("Expenses:Travel"))
	assert.Equal(t, "200.00 EUR", balances[travel].String())

	cleared, err := l.Balances(FilterOptions{Cleared: true}, nil)
	assert.NoError(t, err)
	checking := must(l.Accounts.Get("Assets:Checking"))
	assert.Equal(t, "-15.00 EUR", cleared[checking].String())

	_, ok := l.DefaultCommodity()
	assert.False(t, ok)
}
