package ledger

import (
	"regexp"
	"strings"
)

// AccountType represents the type of account
type AccountType int

const (
	AccountTypeUnknown AccountType = iota
	AccountTypeAssets
	AccountTypeLiabilities
	AccountTypeEquity
	AccountTypeIncome
	AccountTypeExpenses
)

// String returns the string representation of the account type
func (t AccountType) String() string {
	switch t {
	case AccountTypeAssets:
		return "Assets"
	case AccountTypeLiabilities:
		return "Liabilities"
	case AccountTypeEquity:
		return "Equity"
	case AccountTypeIncome:
		return "Income"
	case AccountTypeExpenses:
		return "Expenses"
	default:
		return "Unknown"
	}
}

// ParseAccountType derives the account type from the first segment of the name.
// Matching is case-insensitive because ledger files are not consistent about it.
func ParseAccountType(name string) AccountType {
	first, _, _ := strings.Cut(name, ":")
	switch strings.ToLower(first) {
	case "assets", "asset":
		return AccountTypeAssets
	case "liabilities", "liability":
		return AccountTypeLiabilities
	case "equity":
		return AccountTypeEquity
	case "income", "revenue", "revenues":
		return AccountTypeIncome
	case "expenses", "expense":
		return AccountTypeExpenses
	default:
		return AccountTypeUnknown
	}
}

// Account is a canonical account in the ledger. Postings hold pointers to the
// directory's instance, never copies.
type Account struct {
	name    string
	origin  Origin
	aliases []string

	Note    string
	Country string
	IBAN    string
	// Check expressions produce a warning when they evaluate to false for a posting.
	Check []string
	// Assert expressions abort the build when they evaluate to false for a posting.
	Assert []string
	// Payees are patterns selecting this account for postings without an account.
	Payees  []*regexp.Regexp
	Default bool
}

// NewAccount creates an account with the given name and origin.
func NewAccount(name string, origin Origin) *Account {
	return &Account{name: name, origin: origin}
}

func (a *Account) Name() string      { return a.name }
func (a *Account) Origin() Origin    { return a.origin }
func (a *Account) Aliases() []string { return a.aliases }

// AddAlias records an alias on the account itself. Directory.AddAlias makes it resolvable.
func (a *Account) AddAlias(alias string) {
	a.aliases = append(a.aliases, alias)
}

// Depth is the number of colon-separated segments in the name.
func (a *Account) Depth() int {
	return strings.Count(a.name, ":") + 1
}

// Type returns the account type derived from the first segment.
func (a *Account) Type() AccountType {
	return ParseAccountType(a.name)
}

// Parent returns the name of the parent account, or "" for a top-level account.
func (a *Account) Parent() string {
	i := strings.LastIndexByte(a.name, ':')
	if i < 0 {
		return ""
	}
	return a.name[:i]
}

// IsDescendantOf reports whether a equals other or lives below it in the hierarchy.
func (a *Account) IsDescendantOf(other string) bool {
	name, other := strings.ToLower(a.name), strings.ToLower(other)
	return name == other || strings.HasPrefix(name, other+":")
}

// MatchesPayee reports whether one of the account's payee patterns matches payee.
func (a *Account) MatchesPayee(payee string) bool {
	for _, re := range a.Payees {
		if re.MatchString(payee) {
			return true
		}
	}
	return false
}

func (a *Account) String() string {
	if a == nil {
		return ""
	}
	return a.name
}
