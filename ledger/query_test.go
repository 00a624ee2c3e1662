package ledger

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/robinvdvleuten/dinero/ast"
)

func TestPreprocessQuery(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   string
	}{
		{
			name:   "mixed terms with and and expr",
			tokens: []string{"@payee", "savings", "and", "checking", "and", "expr", "/aeiou/"},
			want:   "((payee =~ /(?i)payee/) or (account =~ /(?i)savings/) and (account =~ /(?i)checking/) and (/aeiou/))",
		},
		{
			name:   "single account",
			tokens: []string{"food"},
			want:   "((account =~ /(?i)food/))",
		},
		{
			name:   "tag and regex",
			tokens: []string{"%travel", "or", "/^Assets/"},
			want:   "((has_tag(/(?i)travel/)) or (/^Assets/))",
		},
		{
			name:   "expr joins the remaining tokens",
			tokens: []string{"expr", "amount", ">", "10 EUR"},
			want:   "((amount > 10 EUR))",
		},
		{
			name:   "empty",
			tokens: nil,
			want:   "()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PreprocessQuery(tt.tokens))
		})
	}
}

func TestQueryCache(t *testing.T) {
	cache := NewQueryCache()

	a, err := cache.Compile("amount > 10 EUR")
	assert.NoError(t, err)
	b, err := cache.Compile("amount > 10 EUR")
	assert.NoError(t, err)
	assert.True(t, a == b, "same source compiles once")

	n, err := cache.CompileQuery(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = cache.CompileQuery([]string{"@payee", "savings", "and", "checking", "and", "expr", "/aeiou/"})
	assert.NoError(t, err)
	assert.NotZero(t, n)

	_, err = cache.Compile("amount >")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	env, f := exprEnv()
	tx, food := env.Transaction, env.Posting
	budget := &Posting{Account: NewAccount("Budget:Food", OriginDeclared), Kind: ast.PostingVirtual, Amount: amt("-42.50", f.eur)}
	tx.AddPosting(budget)

	tests := []struct {
		name      string
		opts      FilterOptions
		predicate string
		posting   *Posting
		want      bool
	}{
		{name: "no options", posting: food, want: true},
		{name: "begin is inclusive", opts: FilterOptions{Begin: date("2021-01-15")}, posting: food, want: true},
		{name: "after begin", opts: FilterOptions{Begin: date("2021-01-16")}, posting: food, want: false},
		{name: "end is exclusive", opts: FilterOptions{End: date("2021-01-15")}, posting: food, want: false},
		{name: "before end", opts: FilterOptions{End: date("2021-01-16")}, posting: food, want: true},
		{name: "real drops virtual", opts: FilterOptions{Real: true}, posting: budget, want: false},
		{name: "real keeps real", opts: FilterOptions{Real: true}, posting: food, want: true},
		{name: "cleared", opts: FilterOptions{Cleared: true}, posting: food, want: true},
		{name: "predicate match", predicate: "account =~ /Food/", posting: food, want: true},
		{name: "predicate miss", predicate: "account =~ /Checking/", posting: food, want: false},
		{name: "options win over predicate", opts: FilterOptions{Real: true}, predicate: "account =~ /Food/", posting: budget, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var predicate Node
			if tt.predicate != "" {
				predicate = MustParseExpression(tt.predicate)
			}
			got, err := Filter(tt.opts, predicate, tx, tt.posting, env.Commodities)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("posting date overrides transaction date", func(t *testing.T) {
		late := &Posting{Account: f.savings, Amount: amt("1", f.eur), Date: date("2021-02-01")}
		tx.AddPosting(late)
		got, err := Filter(FilterOptions{Begin: date("2021-01-20")}, nil, tx, late, env.Commodities)
		assert.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("uncleared transaction", func(t *testing.T) {
		tx.Cleared = false
		defer func() { tx.Cleared = true }()
		got, err := Filter(FilterOptions{Cleared: true}, nil, tx, food, env.Commodities)
		assert.NoError(t, err)
		assert.False(t, got)
	})

	t.Run("evaluation errors are returned", func(t *testing.T) {
		_, err := Filter(FilterOptions{}, MustParseExpression("amount > 1 USD"), tx, food, env.Commodities)
		assert.Error(t, err)
	})
}
