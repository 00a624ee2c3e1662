package ast

// AccountDirective declares an account and its metadata.
//
// Example:
//
//	account Assets:Checking
//	    alias checking
//	    note Main current account
//	    iban ES91 2100 0418 4502 0005 1332
//	    country ES
//	    payee ^Mercadona
//	    assert abs(amount) < 10000 EUR
//	    default
type AccountDirective struct {
	Pos     Position `yaml:"pos"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	Note    string   `yaml:"note"`
	Country string   `yaml:"country"`
	IBAN    string   `yaml:"iban"`
	Check   []string `yaml:"check"`
	Assert  []string `yaml:"assert"`
	Payees  []string `yaml:"payees"`
	Default bool     `yaml:"default"`
}

// CommodityDirective declares a commodity, its aliases and how amounts are displayed.
// Format is a sample amount such as "-1.234,00 €" or "$1,000.00".
//
// Example:
//
//	commodity EUR
//	    alias €
//	    format -1.234,00 €
//	    default
type CommodityDirective struct {
	Pos     Position `yaml:"pos"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	Note    string   `yaml:"note"`
	Format  string   `yaml:"format"`
	Default bool     `yaml:"default"`
}

// PayeeDirective declares a payee. Aliases are regular expressions that map free-form
// transaction descriptions onto the payee.
//
// Example:
//
//	payee Mercadona
//	    alias (?i)mercadona.*
type PayeeDirective struct {
	Pos     Position `yaml:"pos"`
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
	Note    string   `yaml:"note"`
}

// Price states that one unit of Commodity was worth Amount on Date.
//
// Example:
//
//	P 2020-07-01 EUR 1.5 USD
type Price struct {
	Pos       Position `yaml:"pos"`
	Date      *Date    `yaml:"date"`
	Commodity string   `yaml:"commodity"`
	Amount    Amount   `yaml:"amount"`
}
