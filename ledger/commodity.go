package ledger

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Rhymond/go-money"
)

// SymbolPlacement tells on which side of the number a commodity symbol is written.
type SymbolPlacement int

const (
	SymbolAfter SymbolPlacement = iota
	SymbolBefore
)

// NegativeStyle is the convention used to display negative amounts.
type NegativeStyle int

const (
	NegativeMinus NegativeStyle = iota
	NegativeParentheses
)

// Grouping is the digit grouping style of the integer part.
type Grouping int

const (
	// GroupingStandard groups by thousands: 1,234,567.
	GroupingStandard Grouping = iota
	// GroupingIndian groups the last three digits, then by two: 12,34,567.
	GroupingIndian
	GroupingNone
)

// DisplayFormat describes how amounts of a commodity are rendered.
type DisplayFormat struct {
	Symbol             string
	Placement          SymbolPlacement
	SpaceSeparated     bool
	Negative           NegativeStyle
	DecimalSeparator   string
	ThousandsSeparator string
	Grouping           Grouping
	MinDecimals        int
	MaxDecimals        int
}

// Currency is a commodity: anything that can be counted in a posting. Two currencies are
// equal when their names are.
type Currency struct {
	name    string
	origin  Origin
	aliases []string

	Note    string
	Default bool
	Format  DisplayFormat
}

// NewCurrency creates a commodity with its default display format.
func NewCurrency(name string, origin Origin) *Currency {
	return &Currency{name: name, origin: origin, Format: DefaultDisplayFormat(name)}
}

func (c *Currency) Name() string      { return c.name }
func (c *Currency) Origin() Origin    { return c.origin }
func (c *Currency) Aliases() []string { return c.aliases }

// AddAlias records an alias on the commodity itself.
func (c *Currency) AddAlias(alias string) {
	c.aliases = append(c.aliases, alias)
}

// Equal compares currencies by name. A nil currency only equals nil.
func (c *Currency) Equal(other *Currency) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.name == other.name
}

func (c *Currency) String() string {
	if c == nil {
		return ""
	}
	return c.name
}

// DefaultDisplayFormat returns the format used when no format sample was declared. ISO 4217
// codes take their separators and fraction digits from the go-money currency table.
func DefaultDisplayFormat(name string) DisplayFormat {
	f := DisplayFormat{
		Symbol:             name,
		Placement:          SymbolAfter,
		SpaceSeparated:     true,
		DecimalSeparator:   ".",
		ThousandsSeparator: ",",
		Grouping:           GroupingStandard,
		MinDecimals:        0,
		MaxDecimals:        4,
	}
	if c := money.GetCurrency(strings.ToUpper(name)); c != nil {
		f.DecimalSeparator = c.Decimal
		f.ThousandsSeparator = c.Thousand
		f.MinDecimals = c.Fraction
		f.MaxDecimals = c.Fraction
		if c.Thousand == "" {
			f.Grouping = GroupingNone
		}
	}
	return f
}

// ParseDisplayFormat derives a display format from a sample amount such as "-1.234,00 €",
// "$1,000.00", "(1,000.00) USD" or "1,00,000 INR".
func ParseDisplayFormat(sample string) (DisplayFormat, error) {
	s := strings.TrimSpace(sample)
	f := DisplayFormat{Grouping: GroupingNone, DecimalSeparator: "."}

	if strings.Contains(s, "(") && strings.Contains(s, ")") {
		f.Negative = NegativeParentheses
		s = strings.TrimSpace(strings.NewReplacer("(", "", ")", "").Replace(s))
	}

	first := strings.IndexFunc(s, unicode.IsDigit)
	last := strings.LastIndexFunc(s, unicode.IsDigit)
	if first < 0 {
		return DisplayFormat{}, fmt.Errorf("format %q contains no digits", sample)
	}

	prefix := strings.Replace(s[:first], "-", "", 1)
	suffix := s[last+1:]
	number := s[first : last+1]

	if sym := strings.TrimSpace(prefix); sym != "" {
		f.Symbol = sym
		f.Placement = SymbolBefore
		f.SpaceSeparated = strings.HasSuffix(prefix, " ")
	} else if sym := strings.TrimSpace(suffix); sym != "" {
		f.Symbol = sym
		f.Placement = SymbolAfter
		f.SpaceSeparated = strings.HasPrefix(suffix, " ")
	} else {
		return DisplayFormat{}, fmt.Errorf("format %q contains no commodity", sample)
	}

	var seps []int
	for i, r := range number {
		if !unicode.IsDigit(r) {
			seps = append(seps, i)
		}
	}
	if len(seps) == 0 {
		return f, nil
	}

	lastSep := number[seps[len(seps)-1] : seps[len(seps)-1]+1]
	firstSep := number[seps[0] : seps[0]+1]
	decimals := len(number) - seps[len(seps)-1] - 1

	integer := number
	switch {
	case firstSep != lastSep:
		f.DecimalSeparator = lastSep
		f.ThousandsSeparator = firstSep
		f.MinDecimals, f.MaxDecimals = decimals, decimals
		integer = number[:seps[len(seps)-1]]
	case len(seps) == 1 && (decimals != 3 || lastSep == "."):
		f.DecimalSeparator = lastSep
		f.MinDecimals, f.MaxDecimals = decimals, decimals
		return f, nil
	default:
		f.ThousandsSeparator = firstSep
		if firstSep == "." {
			f.DecimalSeparator = ","
		}
	}

	groups := strings.Split(integer, f.ThousandsSeparator)
	f.Grouping = GroupingStandard
	if len(groups) > 2 && len(groups[1]) == 2 {
		f.Grouping = GroupingIndian
	}
	return f, nil
}
