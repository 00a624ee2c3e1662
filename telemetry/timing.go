package telemetry

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/robinvdvleuten/dinero/output"
)

// TimingCollector collects timers into a tree. The first timer started becomes the root;
// later calls to Start nest under the last timer that has not ended.
type TimingCollector struct {
	mu      sync.Mutex
	root    *timerNode
	current *timerNode
	now     func() time.Time
}

type timerNode struct {
	name     string
	start    time.Time
	end      time.Time
	children []*timerNode
	parent   *timerNode
}

func (n *timerNode) duration() time.Duration {
	if n.end.IsZero() {
		return 0
	}
	return n.end.Sub(n.start)
}

// NewTimingCollector creates an empty collector.
func NewTimingCollector() *TimingCollector {
	return &TimingCollector{now: time.Now}
}

// Start begins timing an operation.
func (c *TimingCollector) Start(name string) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &timerNode{name: name, start: c.now()}
	if c.root == nil {
		c.root = node
	} else {
		node.parent = c.current
		c.current.children = append(c.current.children, node)
	}
	c.current = node

	return &timingTimer{collector: c, node: node}
}

// Report writes the timing tree.
func (c *TimingCollector) Report(w io.Writer, styles *output.Styles) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.root == nil {
		return
	}
	formatTimingTree(w, c.root, styles)
}

// Phase is one finished timer, identified by the names on its path from the root.
type Phase struct {
	Path     string        `json:"path"`
	Duration time.Duration `json:"duration"`
}

// Phases flattens the tree in depth-first order. Path segments are joined with " > ".
func (c *TimingCollector) Phases() []Phase {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Phase
	var walk func(n *timerNode, path []string)
	walk = func(n *timerNode, path []string) {
		path = append(path, n.name)
		out = append(out, Phase{Path: strings.Join(path, " > "), Duration: n.duration()})
		for _, child := range n.children {
			walk(child, path)
		}
	}
	if c.root != nil {
		walk(c.root, nil)
	}
	return out
}

type timingTimer struct {
	collector *TimingCollector
	node      *timerNode
}

func (t *timingTimer) End() {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	t.node.end = t.collector.now()
	if t.collector.current == t.node && t.node.parent != nil {
		t.collector.current = t.node.parent
	}
}

func (t *timingTimer) Child(name string) Timer {
	t.collector.mu.Lock()
	defer t.collector.mu.Unlock()

	node := &timerNode{name: name, start: t.collector.now(), parent: t.node}
	t.node.children = append(t.node.children, node)

	return &timingTimer{collector: t.collector, node: node}
}
