package ast

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestDateCapture(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "iso", input: "2021-01-15", want: "2021-01-15"},
		{name: "slashes", input: "2021/01/15", want: "2021-01-15"},
		{name: "garbage", input: "15.01.2021", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Date{}
			err := d.Capture([]string{tt.input})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestDateTextRoundTrip(t *testing.T) {
	d := MustDate("2020-07-01")
	text, err := d.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "2020-07-01", string(text))

	var back Date
	assert.NoError(t, back.UnmarshalText(text))
	assert.True(t, back.Equal(d.Time))
}

func TestNilDateIsZero(t *testing.T) {
	var d *Date
	assert.True(t, d.IsZero())
	assert.Equal(t, "", d.String())
}

func TestKindsFromText(t *testing.T) {
	var pk PostingKind
	assert.NoError(t, pk.UnmarshalText([]byte("[]")))
	assert.Equal(t, PostingVirtualMustBalance, pk)
	assert.NoError(t, pk.UnmarshalText([]byte("virtual")))
	assert.Equal(t, PostingVirtual, pk)
	assert.Error(t, pk.UnmarshalText([]byte("imaginary")))

	var tk TransactionKind
	assert.NoError(t, tk.UnmarshalText([]byte("=")))
	assert.Equal(t, TransactionAutomated, tk)

	var ck CostKind
	assert.NoError(t, ck.UnmarshalText([]byte("@@")))
	assert.Equal(t, CostTotal, ck)
}

func TestSortTransactionsIsStable(t *testing.T) {
	l := &Ledger{
		Transactions: []*Transaction{
			NewTransaction(MustDate("2021-02-01"), "c"),
			NewTransaction(MustDate("2021-01-01"), "a"),
			NewTransaction(MustDate("2021-02-01"), "d"),
			NewTransaction(MustDate("2021-01-01"), "b"),
		},
	}
	l.SortTransactions()

	var got []string
	for _, txn := range l.Transactions {
		got = append(got, txn.Description)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestMergeAndOptions(t *testing.T) {
	main := &Ledger{Options: []*Option{{Name: "strict", Value: "true"}}}
	inc := &Ledger{
		Prices:  []*Price{NewPrice(MustDate("2020-01-01"), "EUR", "1.1", "USD")},
		Options: []*Option{{Name: "strict", Value: "false"}},
	}
	main.Merge(inc, nil)

	assert.Equal(t, 1, len(main.Prices))
	assert.Equal(t, []string{"true", "false"}, main.OptionValues()["strict"])
}

func TestPostingIsEmpty(t *testing.T) {
	assert.True(t, NewPosting("Assets:Cash").IsEmpty())
	assert.False(t, NewPosting("Assets:Cash", WithBalance("10", "EUR")).IsEmpty())
	assert.False(t, NewPosting("Assets:Cash", WithAmountExpr("amount * 2")).IsEmpty())
}

func TestAmountFromText(t *testing.T) {
	tests := []struct {
		input    string
		value    string
		currency string
		wantErr  bool
	}{
		{input: "200 EUR", value: "200", currency: "EUR"},
		{input: "EUR -12.50", value: "-12.50", currency: "EUR"},
		{input: "0.21", value: "0.21"},
		{input: "EUR", wantErr: true},
		{input: "1 2 3", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var a Amount
			err := a.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, Amount{Value: tt.value, Currency: tt.currency}, a)
		})
	}
}
