// Package ast declares the intermediate representation of a ledger file as produced by a
// tokenizer: declared accounts, commodities and payees, raw transactions whose postings still
// reference entities by name, and declared price statements.
//
// Nothing in this package is resolved or validated. Names are plain strings, numbers are decimal
// strings exactly as they appeared in the source, and transactions are in file order. The
// ledger package turns a Ledger into a balanced, typed model.
//
// A Ledger can be decoded from YAML or JSON (see the loader package) or built programmatically
// with the constructors in builders.go.
package ast

import (
	"sort"
	"time"
)

// Ledger is a parsed ledger file together with everything it includes.
type Ledger struct {
	Accounts     []*AccountDirective   `yaml:"accounts"`
	Commodities  []*CommodityDirective `yaml:"commodities"`
	Payees       []*PayeeDirective     `yaml:"payees"`
	Transactions []*Transaction        `yaml:"transactions"`
	Prices       []*Price              `yaml:"prices"`
	Options      []*Option             `yaml:"options"`
	Includes     []string              `yaml:"include"`
}

// Option is a key/value setting embedded in a ledger file.
type Option struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Merge appends the contents of other ledgers to l. Options of l take precedence
// because they are consulted first.
func (l *Ledger) Merge(others ...*Ledger) {
	for _, o := range others {
		if o == nil {
			continue
		}
		l.Accounts = append(l.Accounts, o.Accounts...)
		l.Commodities = append(l.Commodities, o.Commodities...)
		l.Payees = append(l.Payees, o.Payees...)
		l.Transactions = append(l.Transactions, o.Transactions...)
		l.Prices = append(l.Prices, o.Prices...)
		l.Options = append(l.Options, o.Options...)
	}
}

// SortTransactions orders transactions by date. The sort is stable so transactions
// on the same day keep their file order. Undated transactions sort first.
func (l *Ledger) SortTransactions() {
	sort.SliceStable(l.Transactions, func(i, j int) bool {
		return dateOf(l.Transactions[i]).Before(dateOf(l.Transactions[j]))
	})
}

func dateOf(t *Transaction) time.Time {
	if t.Date == nil {
		return time.Time{}
	}
	return t.Date.Time
}

// OptionValues groups options by name, preserving the order of repeated options.
func (l *Ledger) OptionValues() map[string][]string {
	options := make(map[string][]string, len(l.Options))
	for _, opt := range l.Options {
		options[opt.Name] = append(options[opt.Name], opt.Value)
	}
	return options
}
