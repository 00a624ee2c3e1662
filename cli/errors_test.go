package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/robinvdvleuten/dinero/ast"
	"github.com/robinvdvleuten/dinero/ledger"
	"github.com/robinvdvleuten/dinero/loader"
)

func TestErrorRendererTransaction(t *testing.T) {
	tree := &ast.Ledger{Transactions: []*ast.Transaction{
		ast.NewTransaction(ast.MustDate("2021-01-15"), "Hotel", ast.WithPostings(
			ast.NewPosting("Expenses:Travel", ast.WithAmount("200", "EUR")),
			ast.NewPosting("Assets:Checking", ast.WithAmount("-150", "EUR")),
		)),
	}}
	_, err := ledger.Build(context.Background(), tree)
	assert.Error(t, err)

	output := NewErrorRenderer(nil).Render(err)
	lines := strings.Split(output, "\n")
	assert.Contains(t, lines[0], "Transaction does not balance: 50.00 EUR")
	assert.Equal(t, "", lines[1])
	assert.Contains(t, output, "   2021-01-15 Hotel")
	assert.Contains(t, output, "Assets:Checking")
}

func TestErrorRendererSourceContext(t *testing.T) {
	source := "transactions:\n  - date: 2021-01-01\n    dat: oops\n"
	path := filepath.Join(t.TempDir(), "main.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(source), 0o644))

	_, err := loader.New().Load(context.Background(), path)
	assert.Error(t, err)

	output := NewErrorRenderer(nil).Render(err)
	assert.Contains(t, output, "field dat not found")
	assert.Contains(t, output, "   transactions:")
	assert.Contains(t, output, "       dat: oops")
}

func TestErrorRendererStdin(t *testing.T) {
	source := "transactions: [\n"
	_, err := loader.New(loader.WithStdin(strings.NewReader(source))).Load(context.Background(), loader.Stdin)
	assert.Error(t, err)

	output := NewErrorRenderer([]byte(source)).Render(err)
	assert.Contains(t, output, "   transactions: [")
}

func TestErrorRendererPlainError(t *testing.T) {
	output := NewErrorRenderer(nil).Render(errors.New("boom"))
	assert.Equal(t, "boom", output)
}

func TestRenderErrors(t *testing.T) {
	tree := &ast.Ledger{
		Accounts: []*ast.AccountDirective{{Name: "Assets:Checking", Assert: []string{"amount > 0"}}},
		Transactions: []*ast.Transaction{
			ast.NewTransaction(ast.MustDate("2021-01-15"), "Hotel", ast.WithPostings(
				ast.NewPosting("Expenses:Travel", ast.WithAmount("200", "EUR")),
				ast.NewPosting("Assets:Checking"),
			)),
			ast.NewTransaction(ast.MustDate("2021-01-16"), "Dinner", ast.WithPostings(
				ast.NewPosting("Expenses:Food", ast.WithAmount("30", "EUR")),
				ast.NewPosting("Assets:Checking"),
			)),
		},
	}
	_, err := ledger.Build(context.Background(), tree)
	assert.Error(t, err)

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		renderErrors(&buf, err, nil, "text")
		assert.Contains(t, buf.String(), "Hotel")
		assert.Contains(t, buf.String(), "Dinner")
		assert.Contains(t, buf.String(), "\n\n")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		renderErrors(&buf, err, nil, "json")
		assert.True(t, strings.HasPrefix(buf.String(), "["))
		assert.Equal(t, 2, strings.Count(buf.String(), `"type": "*ledger.AccountAssertionError"`))
	})

	assert.Equal(t, "2 validation error(s) found", summarize(err))
}
