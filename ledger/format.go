package ledger

import (
	"strings"
)

// Format renders m with the display format of its commodity. Amounts without commodity
// are rendered as plain numbers with up to four decimals.
func (m Money) Format() string {
	f := DisplayFormat{
		DecimalSeparator: ".",
		Grouping:         GroupingNone,
		MaxDecimals:      4,
	}
	if m.currency != nil {
		f = m.currency.Format
		if f.Symbol == "" {
			f.Symbol = m.currency.Name()
		}
	}
	return FormatAmount(m, f)
}

// FormatAmount renders m with f. It depends on nothing but the amount and the format.
func FormatAmount(m Money, f DisplayFormat) string {
	d := roundRat(m.rat(), f.MaxDecimals)
	negative := d.IsNegative()
	digits := d.Abs().StringFixed(int32(f.MaxDecimals))

	integer, fraction, _ := strings.Cut(digits, ".")
	for len(fraction) > f.MinDecimals && strings.HasSuffix(fraction, "0") {
		fraction = fraction[:len(fraction)-1]
	}

	var b strings.Builder
	b.WriteString(group(integer, f))
	if fraction != "" {
		b.WriteString(f.DecimalSeparator)
		b.WriteString(fraction)
	}
	number := b.String()

	if f.Symbol != "" {
		sep := ""
		if f.SpaceSeparated {
			sep = " "
		}
		if f.Placement == SymbolBefore {
			number = f.Symbol + sep + number
		} else {
			number = number + sep + f.Symbol
		}
	}

	if !negative {
		return number
	}
	if f.Negative == NegativeParentheses {
		return "(" + number + ")"
	}
	return "-" + number
}

func group(integer string, f DisplayFormat) string {
	if f.Grouping == GroupingNone || f.ThousandsSeparator == "" || len(integer) <= 3 {
		return integer
	}

	head, tail := integer[:len(integer)-3], integer[len(integer)-3:]
	size := 3
	if f.Grouping == GroupingIndian {
		size = 2
	}

	var groups []string
	for len(head) > size {
		groups = append([]string{head[len(head)-size:]}, groups...)
		head = head[:len(head)-size]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	groups = append(groups, tail)
	return strings.Join(groups, f.ThousandsSeparator)
}
