package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/robinvdvleuten/dinero/ast"
)

// ErrNoConversion is returned when no chain of prices connects two commodities.
var ErrNoConversion = errors.New("no conversion path")

// Price states that one unit of Commodity was worth Price on Date. Prices are declared by
// directives or derived from balanced transactions.
type Price struct {
	Date      time.Time
	Commodity *Currency
	Price     Money
}

func (p *Price) String() string {
	return fmt.Sprintf("%s %s %s", p.Date.Format(ast.DateLayout), p.Commodity, p.Price)
}

type pairKey struct {
	a, b string
}

func unorderedPair(x, y string) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// latestPrices keeps, per unordered pair of commodities, the last observation dated on or
// before asOf. Later entries win ties on the same day. Zero prices and prices between a
// commodity and itself carry no information and are dropped.
func latestPrices(asOf time.Time, prices []*Price) []*Price {
	limit := dayNumber(asOf)
	latest := make(map[pairKey]int)
	var out []*Price
	for _, p := range prices {
		if p.Commodity == nil || p.Price.Currency() == nil || p.Price.IsZero() {
			continue
		}
		if p.Commodity.Equal(p.Price.Currency()) || dayNumber(p.Date) > limit {
			continue
		}
		k := unorderedPair(p.Commodity.Name(), p.Price.Currency().Name())
		if i, ok := latest[k]; ok {
			if dayNumber(p.Date) >= dayNumber(out[i].Date) {
				out[i] = p
			}
			continue
		}
		latest[k] = len(out)
		out = append(out, p)
	}
	return out
}

// Conversion returns, for every commodity reachable from target through prices, the
// multiplier turning one unit of that commodity into target as of asOf. Target itself maps
// to 1 and unreachable commodities are absent.
//
// Every price observation becomes a pair of nodes dated at the observation. Nodes of the
// same commodity are joined by edges weighted by their distance in days, and a search
// starts at target on asOf. For each commodity the node reached with the smallest
// cumulative distance determines the multiplier, so recent prices win over stale ones.
//
// Conversion only reads prices and is safe for concurrent use.
func Conversion(target *Currency, asOf time.Time, prices []*Price) map[*Currency]*big.Rat {
	g := NewGraph()
	source := g.AddNode(target, asOf)
	for _, p := range latestPrices(asOf, prices) {
		g.AddPrice(p)
	}
	g.LinkDates()

	paths := g.ShortestPaths(source)

	type best struct {
		node *PriceNode
		dist int64
	}
	closest := make(map[string]best)
	for _, n := range g.order {
		d, ok := paths.Distance[n]
		if !ok {
			continue
		}
		k := key(n.Currency)
		if b, seen := closest[k]; !seen || d < b.dist {
			closest[k] = best{node: n, dist: d}
		}
	}

	out := make(map[*Currency]*big.Rat, len(closest))
	for _, b := range closest {
		m, _ := paths.Multiplier(b.node)
		c := b.node.Currency
		if c.Equal(target) {
			c = target
		}
		out[c] = m
	}
	return out
}

// PriceGraph answers conversion queries over a fixed list of prices.
type PriceGraph struct {
	prices []*Price
}

// NewPriceGraph creates a price graph over prices. The slice is not copied.
func NewPriceGraph(prices []*Price) *PriceGraph {
	return &PriceGraph{prices: prices}
}

// Prices returns the underlying price list.
func (pg *PriceGraph) Prices() []*Price {
	return pg.prices
}

// Rates returns the conversion multipliers into target, keyed by commodity name.
func (pg *PriceGraph) Rates(target *Currency, date time.Time) map[string]*big.Rat {
	rates := Conversion(target, date, pg.prices)
	byName := make(map[string]*big.Rat, len(rates))
	for c, r := range rates {
		byName[c.Name()] = r
	}
	return byName
}

// Exchange converts m into target using prices on or before date.
func (pg *PriceGraph) Exchange(m Money, target *Currency, date time.Time) (Money, error) {
	if m.currency == nil || m.currency.Equal(target) {
		return NewMoney(m.rat(), target), nil
	}
	rate, ok := pg.Rates(target, date)[m.currency.Name()]
	if !ok {
		return Zero, fmt.Errorf("%w from %s to %s on %s", ErrNoConversion, m.currency, target, date.Format(ast.DateLayout))
	}
	return NewMoney(new(big.Rat).Mul(m.rat(), rate), target), nil
}

// BalanceValue converts every entry of b into target and sums them.
func (pg *PriceGraph) BalanceValue(b Balance, target *Currency, date time.Time) (Money, error) {
	rates := pg.Rates(target, date)
	total := new(big.Rat)
	for _, m := range b.Amounts() {
		if m.currency == nil || m.currency.Equal(target) {
			total.Add(total, m.rat())
			continue
		}
		rate, ok := rates[m.currency.Name()]
		if !ok {
			return Zero, fmt.Errorf("%w from %s to %s on %s", ErrNoConversion, m.currency, target, date.Format(ast.DateLayout))
		}
		total.Add(total, new(big.Rat).Mul(m.rat(), rate))
	}
	return NewMoney(total, target), nil
}
