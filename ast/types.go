package ast

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the layout every date in a ledger document uses.
const DateLayout = "2006-01-02"

// Date represents a calendar date in ISO 8601 format (YYYY-MM-DD). Dates order transactions
// and prices, and they anchor balance assertions and conversions.
type Date struct {
	time.Time
}

func (d *Date) Capture(values []string) error {
	t, err := time.Parse(DateLayout, values[0])
	if err != nil {
		// Ledger files traditionally use slashes.
		t, err = time.Parse("2006/01/02", values[0])
		if err != nil {
			return fmt.Errorf("invalid date: %s", values[0])
		}
	}
	d.Time = t
	return nil
}

// UnmarshalText decodes a date from YAML or JSON documents.
func (d *Date) UnmarshalText(text []byte) error {
	return d.Capture([]string{strings.TrimSpace(string(text))})
}

// MarshalText encodes the date without a time component.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.Format(DateLayout)), nil
}

// IsZero returns true if the Date is nil or represents the zero time.
func (d *Date) IsZero() bool {
	if d == nil {
		return true
	}
	return d.Time.IsZero()
}

// String formats the date as YYYY-MM-DD.
func (d *Date) String() string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

// Amount represents a numerical value with its associated commodity symbol.
// The value is stored as a string to preserve the exact decimal representation from
// the input. An empty Currency means the number is a bare scalar.
type Amount struct {
	Value    string `yaml:"value"`
	Currency string `yaml:"currency"`
}

// UnmarshalText accepts the compact forms "200 EUR", "EUR 200" and "0.21". Documents may
// also spell an amount out as a mapping with value and currency keys.
func (a *Amount) UnmarshalText(text []byte) error {
	fields := strings.Fields(string(text))
	switch len(fields) {
	case 1:
		a.Value, a.Currency = fields[0], ""
	case 2:
		if looksNumeric(fields[0]) {
			a.Value, a.Currency = fields[0], fields[1]
		} else {
			a.Value, a.Currency = fields[1], fields[0]
		}
	default:
		return fmt.Errorf("invalid amount %q", text)
	}
	if !looksNumeric(a.Value) {
		return fmt.Errorf("invalid amount %q", text)
	}
	return nil
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	switch c := s[0]; {
	case c >= '0' && c <= '9', c == '-', c == '+', c == '.':
		return true
	}
	return false
}

// String renders the amount the way it is written in a ledger file.
func (a *Amount) String() string {
	if a == nil {
		return ""
	}
	if a.Currency == "" {
		return a.Value
	}
	return a.Value + " " + a.Currency
}

// CostKind tells whether a cost is stated per unit (@) or for the whole posting (@@).
type CostKind int

const (
	CostPerUnit CostKind = iota
	CostTotal
)

func (k CostKind) String() string {
	if k == CostTotal {
		return "total"
	}
	return "per-unit"
}

func (k *CostKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "per-unit", "perunit", "unit", "@":
		*k = CostPerUnit
	case "total", "@@":
		*k = CostTotal
	default:
		return fmt.Errorf("unknown cost kind %q", text)
	}
	return nil
}

func (k CostKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Cost is the price paid for a posting's commodity in another commodity.
//
//	Assets:Broker   10 ACME @ 12.50 EUR     ; per unit
//	Assets:Broker   10 ACME @@ 125.00 EUR   ; total
type Cost struct {
	Kind   CostKind `yaml:"kind"`
	Amount Amount   `yaml:"amount"`
}

// PostingKind distinguishes real postings from the two flavours of virtual postings.
type PostingKind int

const (
	// PostingReal postings must balance against each other.
	PostingReal PostingKind = iota
	// PostingVirtual postings, written (Account), never need to balance.
	PostingVirtual
	// PostingVirtualMustBalance postings, written [Account], balance among themselves.
	PostingVirtualMustBalance
)

func (k PostingKind) String() string {
	switch k {
	case PostingVirtual:
		return "virtual"
	case PostingVirtualMustBalance:
		return "balanced-virtual"
	default:
		return "real"
	}
}

func (k *PostingKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "real":
		*k = PostingReal
	case "virtual", "()":
		*k = PostingVirtual
	case "balanced-virtual", "virtual-must-balance", "[]":
		*k = PostingVirtualMustBalance
	default:
		return fmt.Errorf("unknown posting kind %q", text)
	}
	return nil
}

func (k PostingKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// TransactionKind separates ordinary transactions from the two directive-like forms.
type TransactionKind int

const (
	TransactionReal TransactionKind = iota
	// TransactionAutomated lines start with "=" followed by a query; their postings are
	// templates added to every matching posting.
	TransactionAutomated
	// TransactionPeriodic lines start with "~" followed by a period; they describe budgets.
	TransactionPeriodic
)

func (k TransactionKind) String() string {
	switch k {
	case TransactionAutomated:
		return "automated"
	case TransactionPeriodic:
		return "periodic"
	default:
		return "real"
	}
}

func (k *TransactionKind) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "real":
		*k = TransactionReal
	case "automated", "=":
		*k = TransactionAutomated
	case "periodic", "~":
		*k = TransactionPeriodic
	default:
		return fmt.Errorf("unknown transaction kind %q", text)
	}
	return nil
}

func (k TransactionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
