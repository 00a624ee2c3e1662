package ledger

import (
	"errors"
	"math/big"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/dinero/ast"
)

func TestAutomatedTransactionGenerate(t *testing.T) {
	env, f := exprEnv()
	tax := NewAccount("Tax:Deductible", OriginDeclared)
	budget := NewAccount("Budget:Food", OriginDeclared)
	savings := NewAccount("Savings", OriginDeclared)

	a := &AutomatedTransaction{
		Query:    "account =~ /^Expenses/ and %food",
		Comments: []string{":auto:"},
		Postings: []*AutomatedPosting{
			{Account: tax, Kind: ast.PostingVirtual, Factor: big.NewRat(21, 100)},
			{Account: budget, Kind: ast.PostingVirtualMustBalance, Fixed: amt("-10", f.eur)},
			{Account: savings, Kind: ast.PostingVirtual, Expr: MustParseExpression("amount * 2")},
			{Account: savings, Kind: ast.PostingVirtual, Expr: MustParseExpression("0.5")},
			{Account: savings, Kind: ast.PostingVirtual},
		},
	}
	assert.NoError(t, a.Compile(NewQueryCache()))

	ok, err := a.Matches(env)
	assert.NoError(t, err)
	assert.True(t, ok)

	postings, err := a.Generate(env)
	assert.NoError(t, err)
	assert.Equal(t, 5, len(postings))

	want := []string{"8.925", "-10", "85", "21.25", "42.5"}
	for i, p := range postings {
		assert.Equal(t, Automated, p.Origin)
		assert.Equal(t, want[i], roundRat(p.Amount.Amount(), 8).String(), "posting %d", i)
		assert.True(t, p.Amount.Currency().Equal(f.eur))
		assert.Equal(t, []string{":auto:"}, p.Comments)
		assert.NotZero(t, p.Payee, "generated postings carry the payee of the transaction")
		assert.Equal(t, "Mercadona", p.Payee.Name())
	}
}

func TestAutomatedTransactionErrors(t *testing.T) {
	env, _ := exprEnv()

	a := &AutomatedTransaction{Query: "amount >"}
	err := a.Compile(NewQueryCache())
	var autoErr *AutomatedTransactionError
	assert.True(t, errors.As(err, &autoErr))
	assert.Equal(t, "amount >", autoErr.Query)

	uncompiled := &AutomatedTransaction{Query: "real"}
	_, err = uncompiled.Matches(env)
	assert.Error(t, err)

	mismatched := &AutomatedTransaction{Query: "amount > 1 USD"}
	assert.NoError(t, mismatched.Compile(NewQueryCache()))
	_, err = mismatched.Matches(env)
	var exprErr *ExpressionError
	assert.True(t, errors.As(err, &exprErr))
	assert.Equal(t, CurrencyMismatch, exprErr.Kind)

	badTemplate := &AutomatedTransaction{
		Query:    "real",
		Postings: []*AutomatedPosting{{Account: env.Posting.Account, Expr: MustParseExpression("account")}},
	}
	_, err = badTemplate.Generate(env)
	assert.True(t, errors.As(err, &exprErr))
	assert.Equal(t, TypeMismatch, exprErr.Kind)
}

func TestApplyAutomatedSkipsGeneratedPostings(t *testing.T) {
	f := newFixture()
	mirror := NewAccount("Mirror", OriginDeclared)

	tx := txn("2021-01-15",
		post(f.food, amt("10", f.eur)),
		post(f.checking, amt("-10", f.eur)),
	)
	// Matches every posting, including the ones it generates, if it were allowed to.
	a := &AutomatedTransaction{
		Query:    "true",
		Postings: []*AutomatedPosting{{Account: mirror, Kind: ast.PostingVirtual, Factor: big.NewRat(1, 1)}},
	}
	assert.NoError(t, a.Compile(NewQueryCache()))

	n, err := applyAutomated([]*Transaction{tx}, []*AutomatedTransaction{a}, Env{})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, len(tx.VirtualPostings))
	for _, p := range tx.VirtualPostings {
		assert.True(t, p.Transaction() == tx)
	}
}
