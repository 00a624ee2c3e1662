package ledger

import (
	"fmt"
	"regexp"
)

// Payee is a declared or inferred counterparty. Each alias is a case-insensitive pattern
// mapping free-form descriptions onto the payee.
type Payee struct {
	name     string
	origin   Origin
	aliases  []string
	patterns []*regexp.Regexp

	Note string
}

// NewPayee creates a payee with the given name and origin.
func NewPayee(name string, origin Origin) *Payee {
	return &Payee{name: name, origin: origin}
}

func (p *Payee) Name() string      { return p.name }
func (p *Payee) Origin() Origin    { return p.origin }
func (p *Payee) Aliases() []string { return p.aliases }

// AddAlias compiles alias as a case-insensitive pattern and records it.
func (p *Payee) AddAlias(alias string) error {
	re, err := regexp.Compile("(?i)" + alias)
	if err != nil {
		return fmt.Errorf("payee %s: invalid alias %q: %w", p.name, alias, err)
	}
	p.aliases = append(p.aliases, alias)
	p.patterns = append(p.patterns, re)
	return nil
}

// Matches reports whether description matches one of the payee's alias patterns.
func (p *Payee) Matches(description string) bool {
	for _, re := range p.patterns {
		if re.MatchString(description) {
			return true
		}
	}
	return false
}

func (p *Payee) String() string {
	if p == nil {
		return ""
	}
	return p.name
}
