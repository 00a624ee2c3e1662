package ledger

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestDirectoryGet(t *testing.T) {
	d := NewDirectory[*Account]("account")
	checking := NewAccount("Assets:Checking", OriginDeclared)
	assert.True(t, d.Insert(checking))
	assert.NoError(t, d.AddAlias("checking", "Assets:Checking"))

	tests := []struct {
		name string
		key  string
	}{
		{"canonical name", "Assets:Checking"},
		{"case insensitive", "assets:checking"},
		{"alias", "checking"},
		{"alias case insensitive", "CHECKING"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Get(tt.key)
			assert.NoError(t, err)
			assert.True(t, got == checking, "directory should hand out the shared instance")
		})
	}

	_, err := d.Get("Assets:Unknown")
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "account", nf.Kind)
	assert.False(t, d.Has("Assets:Unknown"))
}

func TestDirectoryInsertDuplicate(t *testing.T) {
	d := NewDirectory[*Currency]("commodity")
	first := NewCurrency("EUR", OriginDeclared)
	assert.True(t, d.Insert(first))
	assert.False(t, d.Insert(NewCurrency("eur", OriginInferred)))

	got, err := d.Get("EUR")
	assert.NoError(t, err)
	assert.True(t, got == first)
	assert.Equal(t, 1, d.Len())
}

func TestDirectoryAliasConflict(t *testing.T) {
	d := NewDirectory[*Currency]("commodity")
	d.Insert(NewCurrency("EUR", OriginDeclared))
	d.Insert(NewCurrency("USD", OriginDeclared))

	assert.NoError(t, d.AddAlias("€", "EUR"))
	assert.NoError(t, d.AddAlias("€", "EUR"), "rebinding to the same target is allowed")

	err := d.AddAlias("€", "USD")
	var conflict *AliasConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, "eur", conflict.Existing)
	assert.Equal(t, "usd", conflict.Target)
}

func TestDirectoryGetByRegex(t *testing.T) {
	d := NewDirectory[*Account]("account")
	food := NewAccount("Expenses:Food", OriginDeclared)
	travel := NewAccount("Expenses:Travel", OriginDeclared)
	d.Insert(food)
	d.Insert(travel)
	assert.NoError(t, d.AddAlias("trips", "Expenses:Travel"))
	travel.AddAlias("trips")

	got, err := d.GetByRegex("^Expenses:")
	assert.NoError(t, err)
	assert.True(t, got == food, "first inserted entity wins")

	got, err = d.GetByRegex("trip")
	assert.NoError(t, err)
	assert.True(t, got == travel, "aliases are searched too")

	_, err = d.GetByRegex("^Income")
	assert.Error(t, err)

	// The cached miss is invalidated by an insert.
	salary := NewAccount("Income:Salary", OriginDeclared)
	d.Insert(salary)
	got, err = d.GetByRegex("^Income")
	assert.NoError(t, err)
	assert.True(t, got == salary)

	_, err = d.GetByRegex("(")
	assert.Error(t, err)
}

func TestDirectoryOrder(t *testing.T) {
	d := NewDirectory[*Payee]("payee")
	for _, name := range []string{"Mercadona", "Amazon", "Zara"} {
		d.Insert(NewPayee(name, OriginInferred))
	}
	var names []string
	for _, p := range d.All() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"Mercadona", "Amazon", "Zara"}, names)

	p, ok := d.Find(func(p *Payee) bool { return p.Name() == "Amazon" })
	assert.True(t, ok)
	assert.Equal(t, "Amazon", p.Name())
}

func TestDirectoryUnicodeNormalization(t *testing.T) {
	d := NewDirectory[*Account]("account")
	cafe := NewAccount("Expenses:Caf\u00e9", OriginDeclared)
	assert.True(t, d.Insert(cafe))

	got, err := d.Get("expenses:cafe\u0301")
	assert.NoError(t, err)
	assert.True(t, got == cafe)
	assert.False(t, d.Insert(NewAccount("Expenses:Cafe\u0301", OriginInferred)))
}
