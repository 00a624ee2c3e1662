package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/dinero/ast"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const hotel = `
accounts:
  - name: Assets:Checking
    aliases: [checking]
transactions:
  - date: 2021-01-15
    description: Hotel
    cleared: true
    postings:
      - account: Expenses:Travel
        amount: 200 EUR
      - account: checking
`

func TestDecode(t *testing.T) {
	tree, err := Decode("main.yaml", []byte(hotel))
	assert.NoError(t, err)

	assert.Equal(t, 1, len(tree.Accounts))
	assert.Equal(t, []string{"checking"}, tree.Accounts[0].Aliases)
	assert.Equal(t, ast.Position{Filename: "main.yaml", Line: 3, Column: 5}, tree.Accounts[0].Pos)

	assert.Equal(t, 1, len(tree.Transactions))
	txn := tree.Transactions[0]
	assert.Equal(t, "2021-01-15", txn.Date.String())
	assert.True(t, txn.Cleared)
	assert.Equal(t, 6, txn.Pos.Line)
	assert.Equal(t, 2, len(txn.Postings))
	assert.Equal(t, &ast.Amount{Value: "200", Currency: "EUR"}, txn.Postings[0].Amount)
	assert.Equal(t, 10, txn.Postings[0].Pos.Line)
	assert.True(t, txn.Postings[1].IsEmpty())
}

func TestDecodeJSON(t *testing.T) {
	doc := `{
  "prices": [{"date": "2020-07-01", "commodity": "EUR", "amount": {"value": "1.5", "currency": "USD"}}],
  "options": [{"name": "strict", "value": "true"}]
}`
	tree, err := Decode("prices.json", []byte(doc))
	assert.NoError(t, err)
	assert.Equal(t, 1, len(tree.Prices))
	assert.Equal(t, ast.Amount{Value: "1.5", Currency: "USD"}, tree.Prices[0].Amount)
	assert.Equal(t, 2, tree.Prices[0].Pos.Line)
	assert.Equal(t, []string{"true"}, tree.OptionValues()["strict"])
}

func TestDecodeKinds(t *testing.T) {
	doc := `
transactions:
  - kind: automated
    query: account =~ /^Expenses/
    postings:
      - account: Budget
        kind: virtual
        amount: "-1"
  - kind: periodic
    period: monthly
    postings:
      - account: Expenses:Food
        amount: 400 EUR
        cost: {kind: total, amount: 440 USD}
`
	tree, err := Decode("auto.yaml", []byte(doc))
	assert.NoError(t, err)
	assert.Equal(t, ast.TransactionAutomated, tree.Transactions[0].Kind)
	assert.Equal(t, ast.PostingVirtual, tree.Transactions[0].Postings[0].Kind)
	assert.Equal(t, &ast.Amount{Value: "-1"}, tree.Transactions[0].Postings[0].Amount)
	assert.Equal(t, ast.TransactionPeriodic, tree.Transactions[1].Kind)
	assert.Equal(t, ast.CostTotal, tree.Transactions[1].Postings[0].Cost.Kind)
}

func TestDecodeEmpty(t *testing.T) {
	tree, err := Decode("empty.yaml", nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(tree.Transactions))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		msg  string
	}{
		{name: "syntax", doc: "transactions:\n  - date: [\n", msg: "yaml:"},
		{name: "unknown field", doc: "transactions:\n  - dat: 2021-01-01\n", msg: "field dat not found"},
		{name: "bad date", doc: "transactions:\n  - date: 15.01.2021\n", msg: "invalid date"},
		{name: "bad amount", doc: "prices:\n  - amount: EUR\n", msg: "invalid amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("bad.yaml", []byte(tt.doc))
			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr), "got %v", err)
			assert.Equal(t, "bad.yaml", decodeErr.GetPosition().Filename)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestDecodeErrorLine(t *testing.T) {
	_, err := Decode("bad.yaml", []byte("transactions:\n  - date: 2021-01-01\n    dat: oops\n"))
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, 3, decodeErr.Pos.Line)
}

func TestLoadSingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	mainFile := writeFile(t, tmpDir, "main.yaml", hotel)

	absMainFile, err := filepath.Abs(mainFile)
	assert.NoError(t, err)

	ldr := New()
	result, err := ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Ledger.Transactions))
	assert.Equal(t, absMainFile, result.Root)
	assert.Equal(t, 0, len(result.Includes))
	assert.Equal(t, []string{absMainFile}, result.Files())

	// Following includes behaves the same for a single file
	ldr = New(WithFollowIncludes())
	result, err = ldr.Load(context.Background(), mainFile)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Ledger.Transactions))
	assert.Equal(t, 0, len(result.Includes))
}

func TestLoadWithIncludeNoFollow(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "prices.yaml", "prices:\n  - {date: 2020-07-01, commodity: EUR, amount: 1.5 USD}\n")
	mainFile := writeFile(t, tmpDir, "main.yaml", "include: [prices.yaml]\n"+hotel)

	result, err := New().Load(context.Background(), mainFile)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Ledger.Prices))
	assert.Equal(t, []string{"prices.yaml"}, result.Ledger.Includes)
}

func TestLoadWithIncludeFollow(t *testing.T) {
	tmpDir := t.TempDir()
	pricesFile := writeFile(t, tmpDir, "prices.yaml", "prices:\n  - {date: 2020-07-01, commodity: EUR, amount: 1.5 USD}\n")
	mainFile := writeFile(t, tmpDir, "main.yaml", "include: [prices.yaml]\n"+hotel)

	result, err := New(WithFollowIncludes()).Load(context.Background(), mainFile)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(result.Ledger.Prices))
	assert.Equal(t, 1, len(result.Ledger.Transactions))
	assert.Zero(t, result.Ledger.Includes)
	assert.Equal(t, []string{pricesFile}, result.Includes)
	assert.Equal(t, pricesFile, result.Ledger.Prices[0].Pos.Filename)
}

func TestLoadNestedAndRelativeIncludes(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "2021/march.yaml", "transactions:\n  - {date: 2021-03-01, description: March}\n")
	writeFile(t, tmpDir, "2021/index.yaml", "include: [march.yaml]\ntransactions:\n  - {date: 2021-02-01, description: February}\n")
	mainFile := writeFile(t, tmpDir, "main.yaml", "include: [2021/index.yaml]\ntransactions:\n  - {date: 2021-01-01, description: January}\n")

	result, err := New(WithFollowIncludes()).Load(context.Background(), mainFile)
	assert.NoError(t, err)

	var got []string
	for _, txn := range result.Ledger.Transactions {
		got = append(got, txn.Description)
	}
	assert.Equal(t, []string{"January", "February", "March"}, got)
	assert.Equal(t, 2, len(result.Includes))
	assert.Equal(t, filepath.Join(tmpDir, "2021", "march.yaml"), result.Includes[1])
}

func TestLoadManyIncludesKeepOrder(t *testing.T) {
	tmpDir := t.TempDir()
	var names, want []string
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("part%02d.yaml", i)
		desc := fmt.Sprintf("Part %d", i)
		writeFile(t, tmpDir, name, "transactions:\n  - {date: 2021-01-01, description: "+desc+"}\n")
		names = append(names, name)
		want = append(want, desc)
	}
	mainFile := writeFile(t, tmpDir, "main.yaml", "include: ["+strings.Join(names, ", ")+"]\n")

	result, err := New(WithFollowIncludes()).Load(context.Background(), mainFile)
	assert.NoError(t, err)

	var got []string
	for _, txn := range result.Ledger.Transactions {
		got = append(got, txn.Description)
	}
	assert.Equal(t, want, got)
	assert.Equal(t, 20, len(result.Includes))
}

func TestLoadCircularAndRepeatedIncludes(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "a.yaml", "include: [b.yaml, shared.yaml]\ntransactions:\n  - {date: 2021-01-01, description: A}\n")
	writeFile(t, tmpDir, "b.yaml", "include: [a.yaml, shared.yaml]\ntransactions:\n  - {date: 2021-01-02, description: B}\n")
	writeFile(t, tmpDir, "shared.yaml", "transactions:\n  - {date: 2021-01-03, description: Shared}\n")

	result, err := New(WithFollowIncludes()).Load(context.Background(), filepath.Join(tmpDir, "a.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, 3, len(result.Ledger.Transactions))
	assert.Equal(t, 2, len(result.Includes))
}

func TestLoadErrors(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := New().Load(context.Background(), filepath.Join(tmpDir, "missing.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	mainFile := writeFile(t, tmpDir, "main.yaml", "include: [broken.yaml]\n")
	writeFile(t, tmpDir, "broken.yaml", "transactions: {\n")
	_, err = New(WithFollowIncludes()).Load(context.Background(), mainFile)
	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, err.Error(), "in file "+mainFile)
	assert.Equal(t, filepath.Join(tmpDir, "broken.yaml"), decodeErr.Pos.Filename)
}

func TestLoadStdin(t *testing.T) {
	ldr := New(WithStdin(strings.NewReader(hotel)))
	result, err := ldr.Load(context.Background(), Stdin)
	assert.NoError(t, err)
	assert.Equal(t, Stdin, result.Root)
	assert.Equal(t, 0, len(result.Files()))
	assert.Equal(t, "-", result.Ledger.Transactions[0].Pos.Filename)
}

func TestLoadCancelled(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "inc.yaml", "")
	mainFile := writeFile(t, tmpDir, "main.yaml", "include: [inc.yaml]\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithFollowIncludes()).Load(ctx, mainFile)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWatchReloadsOnChange(t *testing.T) {
	tmpDir := t.TempDir()
	mainFile := writeFile(t, tmpDir, "main.yaml", hotel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var loads []int
	reloaded := make(chan struct{}, 8)

	done := make(chan error, 1)
	go func() {
		done <- New(WithFollowIncludes()).Watch(ctx, mainFile, func(r *Result, err error) {
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				loads = append(loads, -1)
			} else {
				loads = append(loads, len(r.Ledger.Transactions))
			}
			reloaded <- struct{}{}
		})
	}()

	waitFor := func() {
		t.Helper()
		select {
		case <-reloaded:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for reload")
		}
	}

	waitFor()
	assert.NoError(t, os.WriteFile(mainFile, []byte(hotel+`
  - date: 2021-01-16
    description: Dinner
`), 0o644))
	waitFor()

	cancel()
	assert.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, loads[0])
	assert.Equal(t, 2, loads[len(loads)-1])
}

func TestWatchRejectsStdin(t *testing.T) {
	err := New().Watch(context.Background(), Stdin, func(*Result, error) {})
	assert.Error(t, err)
}
