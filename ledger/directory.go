package ledger

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Origin records whether an entity was declared by a directive or inferred from its
// first use in a transaction or price.
type Origin int

const (
	OriginInferred Origin = iota
	OriginDeclared
)

func (o Origin) String() string {
	if o == OriginDeclared {
		return "declared"
	}
	return "inferred"
}

// Entity is anything a Directory can hold: accounts, commodities and payees.
type Entity interface {
	Name() string
	Aliases() []string
	Origin() Origin
}

// Directory is an alias-resolving registry of canonical entities. Keys are compared
// case-insensitively. Entities are stored by pointer so that every posting referring to
// an account, commodity or payee shares the same instance.
//
// Iteration order is insertion order, which also makes GetByRegex deterministic when
// several entities match.
type Directory[T Entity] struct {
	kind    string
	items   map[string]T
	order   []string
	aliases map[string]string

	// regexCache memoizes GetByRegex by pattern text. It is reset whenever the
	// directory changes.
	regexCache map[string]regexMatch[T]
}

type regexMatch[T Entity] struct {
	item  T
	found bool
}

// NewDirectory creates an empty directory. kind names the entity type in errors
// ("account", "commodity", "payee").
func NewDirectory[T Entity](kind string) *Directory[T] {
	return &Directory[T]{
		kind:       kind,
		items:      make(map[string]T),
		aliases:    make(map[string]string),
		regexCache: make(map[string]regexMatch[T]),
	}
}

// canonicalKey folds case after NFC normalization, so that precomposed and combining
// spellings of the same name ("Café" typed either way) resolve to one entity.
func canonicalKey(name string) string {
	return strings.ToLower(norm.NFC.String(name))
}

// Kind returns the entity type name of the directory.
func (d *Directory[T]) Kind() string {
	return d.kind
}

// Insert stores item under its lower-cased name. If the name is already taken the
// directory is left unchanged and Insert returns false.
func (d *Directory[T]) Insert(item T) bool {
	key := canonicalKey(item.Name())
	if _, exists := d.items[key]; exists {
		return false
	}
	d.items[key] = item
	d.order = append(d.order, key)
	clear(d.regexCache)
	return true
}

// AddAlias binds alias to the canonical name of target. Binding the same alias twice
// to the same target is a no-op.
func (d *Directory[T]) AddAlias(alias, target string) error {
	key := canonicalKey(alias)
	canonical := canonicalKey(target)
	if existing, ok := d.aliases[key]; ok && existing != canonical {
		return &AliasConflictError{
			Kind:     d.kind,
			Alias:    alias,
			Existing: existing,
			Target:   canonical,
		}
	}
	d.aliases[key] = canonical
	clear(d.regexCache)
	return nil
}

// Get resolves key by canonical name first, then by alias.
func (d *Directory[T]) Get(key string) (T, error) {
	k := canonicalKey(key)
	if item, ok := d.items[k]; ok {
		return item, nil
	}
	if canonical, ok := d.aliases[k]; ok {
		if item, ok := d.items[canonical]; ok {
			return item, nil
		}
	}
	var zero T
	return zero, &NotFoundError{Kind: d.kind, Key: key}
}

// Has reports whether key resolves to an entity.
func (d *Directory[T]) Has(key string) bool {
	_, err := d.Get(key)
	return err == nil
}

// GetByRegex returns the first entity whose name or one of whose aliases matches
// pattern. Results are memoized per pattern text.
func (d *Directory[T]) GetByRegex(pattern string) (T, error) {
	if m, ok := d.regexCache[pattern]; ok {
		if m.found {
			return m.item, nil
		}
		return m.item, &NotFoundError{Kind: d.kind, Key: pattern}
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("invalid %s pattern %q: %w", d.kind, pattern, err)
	}

	item, found := d.Find(func(item T) bool {
		if re.MatchString(item.Name()) {
			return true
		}
		for _, alias := range item.Aliases() {
			if re.MatchString(alias) {
				return true
			}
		}
		return false
	})
	d.regexCache[pattern] = regexMatch[T]{item: item, found: found}
	if !found {
		return item, &NotFoundError{Kind: d.kind, Key: pattern}
	}
	return item, nil
}

// Find returns the first entity, in insertion order, for which match returns true.
func (d *Directory[T]) Find(match func(T) bool) (T, bool) {
	for _, key := range d.order {
		if item := d.items[key]; match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// All returns the entities in insertion order.
func (d *Directory[T]) All() []T {
	out := make([]T, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.items[key])
	}
	return out
}

// Len returns the number of canonical entities.
func (d *Directory[T]) Len() int {
	return len(d.items)
}
