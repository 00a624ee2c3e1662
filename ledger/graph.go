package ledger

import (
	"container/heap"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/robinvdvleuten/dinero/ast"
)

// Graph is the search space of a currency conversion. Each node is a commodity observed on
// a specific date. Edges come in two kinds:
//   - "same" edges join the nodes of one commodity, weighted by the number of days between
//     them; their ratio is 1.
//   - "price" edges join the two commodities of a price observation, weighted by the day
//     distance of their endpoints; their ratio converts one unit of To into From.
//
// Edges are stored in both directions. Distances measure how stale a conversion path is,
// so the shortest path prefers recent prices.
type Graph struct {
	nodes map[nodeKey]*PriceNode
	order []*PriceNode
	edges map[*PriceNode][]*Edge
}

type nodeKey struct {
	currency string
	day      int64
}

// PriceNode represents a commodity on a date.
type PriceNode struct {
	ID       string
	Currency *Currency
	Date     time.Time
	day      int64
}

// Edge represents a directed step of a conversion path.
type Edge struct {
	From   *PriceNode
	To     *PriceNode
	Kind   string // "same" or "price"
	Weight int64
	// Ratio is the value of one unit of To expressed in From's commodity.
	Ratio *big.Rat
	Price *Price
}

// NewGraph creates a new empty conversion graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[nodeKey]*PriceNode),
		edges: make(map[*PriceNode][]*Edge),
	}
}

// dayNumber counts calendar days since the Unix epoch, ignoring the time of day.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func dayDistance(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

// AddNode adds a node to the graph or returns the existing node for the same commodity
// and day.
func (g *Graph) AddNode(c *Currency, date time.Time) *PriceNode {
	k := nodeKey{currency: key(c), day: dayNumber(date)}
	if n, ok := g.nodes[k]; ok {
		return n
	}
	n := &PriceNode{
		ID:       fmt.Sprintf("%s@%s", key(c), date.Format(ast.DateLayout)),
		Currency: c,
		Date:     date,
		day:      k.day,
	}
	g.nodes[k] = n
	g.order = append(g.order, n)
	return n
}

// GetNode retrieves the node of a commodity on a date, or nil if not found.
func (g *Graph) GetNode(c *Currency, date time.Time) *PriceNode {
	return g.nodes[nodeKey{currency: key(c), day: dayNumber(date)}]
}

// AddPrice adds the two nodes of a price observation and the edges between them.
func (g *Graph) AddPrice(p *Price) {
	from := g.AddNode(p.Commodity, p.Date)
	to := g.AddNode(p.Price.Currency(), p.Date)
	rate := p.Price.rat()
	weight := dayDistance(from.day, to.day)
	// One unit of the price commodity is worth 1/rate units of the priced commodity.
	g.addEdge(&Edge{From: from, To: to, Kind: "price", Weight: weight, Ratio: new(big.Rat).Inv(rate), Price: p})
	g.addEdge(&Edge{From: to, To: from, Kind: "price", Weight: weight, Ratio: new(big.Rat).Set(rate), Price: p})
}

// LinkDates joins every pair of nodes of the same commodity that are adjacent in time.
// Adjacent links are enough because distances along a chain add up to the day distance.
func (g *Graph) LinkDates() {
	byCurrency := make(map[string][]*PriceNode)
	for _, n := range g.order {
		k := key(n.Currency)
		byCurrency[k] = append(byCurrency[k], n)
	}
	for _, nodes := range byCurrency {
		sortNodesByDay(nodes)
		for i := 1; i < len(nodes); i++ {
			a, b := nodes[i-1], nodes[i]
			w := dayDistance(a.day, b.day)
			g.addEdge(&Edge{From: a, To: b, Kind: "same", Weight: w, Ratio: big.NewRat(1, 1)})
			g.addEdge(&Edge{From: b, To: a, Kind: "same", Weight: w, Ratio: big.NewRat(1, 1)})
		}
	}
}

func sortNodesByDay(nodes []*PriceNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].day < nodes[j].day
	})
}

func (g *Graph) addEdge(e *Edge) {
	g.edges[e.From] = append(g.edges[e.From], e)
}

// GetOutgoingEdges returns all edges leaving a node.
func (g *Graph) GetOutgoingEdges(n *PriceNode) []*Edge {
	return g.edges[n]
}

// Path is the result of a single-source shortest path search.
type Path struct {
	Distance    map[*PriceNode]int64
	Predecessor map[*PriceNode]*Edge
}

// ShortestPaths runs Dijkstra's algorithm from source. Ties between equally distant
// nodes are broken by queue order.
func (g *Graph) ShortestPaths(source *PriceNode) *Path {
	p := &Path{
		Distance:    map[*PriceNode]int64{source: 0},
		Predecessor: make(map[*PriceNode]*Edge),
	}
	done := make(map[*PriceNode]bool)

	pq := &nodeQueue{}
	heap.Push(pq, &queueItem{node: source, dist: 0})
	for pq.Len() > 0 {
		item := heap.Pop(pq).(*queueItem)
		if done[item.node] {
			continue
		}
		done[item.node] = true

		for _, e := range g.edges[item.node] {
			if done[e.To] {
				continue
			}
			d := item.dist + e.Weight
			if cur, ok := p.Distance[e.To]; ok && cur <= d {
				continue
			}
			p.Distance[e.To] = d
			p.Predecessor[e.To] = e
			heap.Push(pq, &queueItem{node: e.To, dist: d, seq: pq.seq})
			pq.seq++
		}
	}
	return p
}

// Multiplier folds the edge ratios from the source to n. The result converts one unit of
// n's commodity into the source commodity.
func (p *Path) Multiplier(n *PriceNode) (*big.Rat, bool) {
	if _, ok := p.Distance[n]; !ok {
		return nil, false
	}
	m := big.NewRat(1, 1)
	for e := p.Predecessor[n]; e != nil; e = p.Predecessor[e.From] {
		m.Mul(m, e.Ratio)
	}
	return m, true
}

// Stats returns information about the graph structure.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	PriceCount int
}

// GetStats returns graph statistics.
func (g *Graph) GetStats() Stats {
	var s Stats
	s.NodeCount = len(g.nodes)
	for _, edges := range g.edges {
		for _, e := range edges {
			s.EdgeCount++
			if e.Kind == "price" {
				s.PriceCount++
			}
		}
	}
	// Price edges are stored in both directions.
	s.PriceCount /= 2
	return s
}

type queueItem struct {
	node *PriceNode
	dist int64
	seq  int
}

type nodeQueue struct {
	items []*queueItem
	seq   int
}

func (q *nodeQueue) Len() int { return len(q.items) }

func (q *nodeQueue) Less(i, j int) bool {
	if q.items[i].dist != q.items[j].dist {
		return q.items[i].dist < q.items[j].dist
	}
	return q.items[i].seq < q.items[j].seq
}

func (q *nodeQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *nodeQueue) Push(x any) { q.items = append(q.items, x.(*queueItem)) }

func (q *nodeQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
