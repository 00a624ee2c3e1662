package errors

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/dinero/ast"
	"github.com/robinvdvleuten/dinero/formatter"
	"github.com/robinvdvleuten/dinero/ledger"
)

type positionalError struct {
	pos ast.Position
	msg string
}

func (e positionalError) Error() string             { return e.msg }
func (e positionalError) GetPosition() ast.Position { return e.pos }

func buildErr(t *testing.T, txns ...*ast.Transaction) error {
	t.Helper()
	_, err := ledger.Build(context.Background(), &ast.Ledger{Transactions: txns})
	assert.Error(t, err)
	return err
}

func broken() *ast.Transaction {
	txn := ast.NewTransaction(ast.MustDate("2021-01-16"), "Broken", ast.WithPostings(
		ast.NewPosting("Expenses:Travel", ast.WithAmount("10", "EUR")),
		ast.NewPosting("Assets:Checking", ast.WithAmount("-9", "EUR")),
	))
	txn.Pos = ast.Position{Filename: "main.yaml", Line: 12, Column: 5}
	return txn
}

func TestTextFormatterWithTransaction(t *testing.T) {
	tf := NewTextFormatter(formatter.New(formatter.WithAmountColumn(30)))

	output := tf.Format(buildErr(t, broken()))
	expected := "main.yaml:12: Transaction does not balance: 1.00 EUR\n\n" +
		"   2021-01-16 Broken\n" +
		"     Expenses:Travel    10.00 EUR\n" +
		"     Assets:Checking    -9.00 EUR\n"
	assert.Equal(t, expected, output)
}

func TestTextFormatterWithSource(t *testing.T) {
	source := []byte("a\nb: [\nc\nd\n")
	err := positionalError{pos: ast.Position{Filename: "bad.yaml", Line: 2, Column: 5}, msg: "bad.yaml:2: unexpected end"}

	tf := NewTextFormatter(nil, WithSource(source))
	expected := "bad.yaml:2: unexpected end\n\n" +
		"   a\n" +
		"   b: [\n" +
		"       ^\n" +
		"   c\n"
	assert.Equal(t, expected, tf.Format(err))

	// Without source only the message is printed
	assert.Equal(t, "bad.yaml:2: unexpected end", NewTextFormatter(nil).Format(err))
}

func TestTextFormatterFormatAll(t *testing.T) {
	tf := NewTextFormatter(nil)
	assert.Equal(t, "", tf.FormatAll(nil))

	errs := []error{
		positionalError{msg: "first"},
		positionalError{msg: "second"},
	}
	assert.Equal(t, "first\n\nsecond", tf.FormatAll(errs))
}

func TestFlatten(t *testing.T) {
	assert.Zero(t, Flatten(nil))

	single := positionalError{msg: "one"}
	assert.Equal(t, []error{single}, Flatten(single))

	_, err := ledger.Build(context.Background(), &ast.Ledger{
		Accounts: []*ast.AccountDirective{{Name: "Assets:Checking", Assert: []string{"amount > 0", "depth == 1"}}},
		Transactions: []*ast.Transaction{
			ast.NewTransaction(ast.MustDate("2021-01-15"), "Hotel", ast.WithPostings(
				ast.NewPosting("Expenses:Travel", ast.WithAmount("200", "EUR")),
				ast.NewPosting("Assets:Checking"),
			)),
		},
	})
	flat := Flatten(err)
	assert.Equal(t, 2, len(flat))
	for _, e := range flat {
		_, ok := e.(*ledger.AccountAssertionError)
		assert.True(t, ok, "got %T", e)
	}
}

func TestJSONFormatter(t *testing.T) {
	jf := NewJSONFormatter()

	t.Run("NotBalanced", func(t *testing.T) {
		var got ErrorJSON
		assert.NoError(t, json.Unmarshal([]byte(jf.Format(buildErr(t, broken()))), &got))

		assert.Equal(t, "*ledger.TransactionNotBalancedError", got.Type)
		assert.Equal(t, &PositionJSON{Filename: "main.yaml", Line: 12, Column: 5}, got.Position)
		assert.Equal(t, "2021-01-16", got.Details["date"])
		assert.Equal(t, "Broken", got.Details["description"])
		assert.Equal(t, "1.00 EUR", got.Details["residual"])
	})

	t.Run("BalanceAssertion", func(t *testing.T) {
		err := buildErr(t, ast.NewTransaction(ast.MustDate("2021-01-15"), "Hotel", ast.WithPostings(
			ast.NewPosting("Expenses:Travel", ast.WithAmount("200", "EUR")),
			ast.NewPosting("Assets:Checking", ast.WithAmount("-200", "EUR"), ast.WithBalance("-150", "EUR")),
		)))
		got := jf.FormatAllToSlice([]error{err})[0]
		assert.Equal(t, "Assets:Checking", got.Details["account"])
		assert.Equal(t, "-200.00 EUR", got.Details["found"])
		assert.Equal(t, "-150.00 EUR", got.Details["expected"])
		assert.Equal(t, "50.00 EUR", got.Details["difference"])
	})

	t.Run("Expression", func(t *testing.T) {
		_, err := ledger.ParseExpression("amount >")
		got := jf.FormatAllToSlice([]error{err})[0]
		assert.Equal(t, "syntax error", got.Details["kind"])
		assert.Zero(t, got.Position)
	})

	t.Run("Plain", func(t *testing.T) {
		got := jf.FormatAllToSlice([]error{positionalError{msg: "plain"}})[0]
		assert.Equal(t, "plain", got.Message)
		assert.Zero(t, got.Position)
		assert.Zero(t, got.Details)
	})

	t.Run("FormatAll", func(t *testing.T) {
		var got []ErrorJSON
		out := jf.FormatAll([]error{positionalError{msg: "a"}, positionalError{msg: "b"}})
		assert.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, 2, len(got))
	})
}
