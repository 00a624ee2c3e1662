package ledger

import (
	"time"

	"github.com/robinvdvleuten/dinero/ast"
)

func date(s string) time.Time {
	return ast.MustDate(s).Time
}

func amt(value string, c *Currency) *Money {
	m := MoneyFromString(value, c)
	return &m
}

// txn builds a resolved transaction from postings.
func txn(day string, postings ...*Posting) *Transaction {
	t := &Transaction{Date: date(day), Description: "test"}
	for _, p := range postings {
		t.AddPosting(p)
	}
	return t
}

func post(a *Account, amount *Money) *Posting {
	return &Posting{Account: a, Amount: amount}
}

type fixture struct {
	eur, usd, acme          *Currency
	checking, savings, food *Account
	broker, travel          *Account
}

func newFixture() *fixture {
	return &fixture{
		eur:      NewCurrency("EUR", OriginDeclared),
		usd:      NewCurrency("USD", OriginDeclared),
		acme:     NewCurrency("ACME", OriginDeclared),
		checking: NewAccount("Assets:Checking", OriginDeclared),
		savings:  NewAccount("Assets:Savings", OriginDeclared),
		food:     NewAccount("Expenses:Food", OriginDeclared),
		broker:   NewAccount("Assets:Broker", OriginDeclared),
		travel:   NewAccount("Expenses:Travel", OriginDeclared),
	}
}
