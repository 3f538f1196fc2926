// Package cfg builds the control-flow graph of a single function body.
//
// Nodes are stored in an arena indexed by their id, which is assigned in
// creation order. There is no synthetic entry or exit node: sources and
// sinks are derived from the edges.
package cfg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sut-sqrlab/more-coverage/internal/syntax"
)

// NodeID identifies a node within its graph.
type NodeID int

// NodeKind tells which construct a node was created for.
type NodeKind int

const (
	KindBlock NodeKind = iota
	KindBranch
	KindLoop
	KindDispatch
	KindCase
	KindMerge
	KindTry
	KindHandler
	KindFinally
	KindReturn
	KindJump
	KindRaise
)

var nodeKindNames = [...]string{
	KindBlock:    "block",
	KindBranch:   "branch",
	KindLoop:     "loop",
	KindDispatch: "dispatch",
	KindCase:     "case",
	KindMerge:    "merge",
	KindTry:      "try",
	KindHandler:  "handler",
	KindFinally:  "finally",
	KindReturn:   "return",
	KindJump:     "jump",
	KindRaise:    "raise",
}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(nodeKindNames) {
		return nodeKindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is a vertex of the flow graph, representing one statement header
// or a run of straight-line statements.
type Node struct {
	ID    NodeID
	Kind  NodeKind
	Label string
	Lines []int // sorted, without duplicates; empty for synthesized nodes

	// Origin is the first statement the node was created from.
	// It is only used for labels and debugging.
	Origin syntax.Stmt
}

func (n *Node) String() string {
	return fmt.Sprintf("%d:%s", n.ID, n.Label)
}

// Edge is a possible one-step transfer of control.
type Edge struct {
	From NodeID
	To   NodeID
}

func (e Edge) String() string {
	return fmt.Sprintf("(%d,%d)", e.From, e.To)
}

// Graph is the control-flow graph of a function.
//
// Only the Builder mutates a graph; once Build returns, the graph is
// read-only and may be shared between readers.
type Graph struct {
	Name string

	nodes []*Node
	edges []Edge
	index map[Edge]int
	back  map[Edge]bool
	succ  map[NodeID][]NodeID
	pred  map[NodeID][]NodeID
	exits map[NodeID]bool

	// Unreachable lists the lines of statements that no flow reaches,
	// such as statements after a return in the same block.
	Unreachable []int
}

// New returns an empty graph.
func New(name string) *Graph {
	return &Graph{
		Name:  name,
		index: map[Edge]int{},
		back:  map[Edge]bool{},
		succ:  map[NodeID][]NodeID{},
		pred:  map[NodeID][]NodeID{},
		exits: map[NodeID]bool{},
	}
}

// NewNode creates a node with the next free id and adds it to the graph.
func (g *Graph) NewNode(kind NodeKind, label string, lines []int, origin syntax.Stmt) *Node {
	n := &Node{
		ID:     NodeID(len(g.nodes)),
		Kind:   kind,
		Label:  label,
		Lines:  normalizeLines(lines),
		Origin: origin,
	}
	g.AddNode(n)
	return n
}

// AddNode appends n. The caller guarantees that its id is unique.
func (g *Graph) AddNode(n *Node) {
	g.nodes = append(g.nodes, n)
}

// AddEdge adds the edge from a to b. Adding an existing edge does nothing.
// It reports whether the edge is new.
func (g *Graph) AddEdge(a, b NodeID) bool {
	e := Edge{a, b}
	if _, ok := g.index[e]; ok {
		return false
	}
	g.index[e] = len(g.edges)
	g.edges = append(g.edges, e)
	g.succ[a] = append(g.succ[a], b)
	g.pred[b] = append(g.pred[b], a)
	return true
}

// AddBackEdge adds the edge from a to b and tags it as closing a loop.
func (g *Graph) AddBackEdge(a, b NodeID) {
	g.AddEdge(a, b)
	g.back[Edge{a, b}] = true
}

// MarkExit records that the function may end after n.
func (g *Graph) MarkExit(n NodeID) {
	g.exits[n] = true
}

// Successors returns the targets of the outgoing edges of n, in edge
// insertion order. For a node that is not in the graph, the result is
// empty. The result must not be modified; appending to it copies.
func (g *Graph) Successors(n NodeID) []NodeID {
	s := g.succ[n]
	return s[:len(s):len(s)]
}

// Predecessors returns the sources of the incoming edges of n, in edge
// insertion order. The result must not be modified; appending to it
// copies.
func (g *Graph) Predecessors(n NodeID) []NodeID {
	p := g.pred[n]
	return p[:len(p):len(p)]
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns the nodes in creation order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge { return g.edges }

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Index returns the position of n in creation order, or -1.
func (g *Graph) Index(n NodeID) int {
	if g.Node(n) == nil {
		return -1
	}
	return int(n)
}

// HasEdge tells whether the edge from a to b exists.
func (g *Graph) HasEdge(a, b NodeID) bool {
	_, ok := g.index[Edge{a, b}]
	return ok
}

// IsBackEdge tells whether the edge from a to b closes a loop.
func (g *Graph) IsBackEdge(a, b NodeID) bool {
	return g.back[Edge{a, b}]
}

// IsPositionalBackEdge tells whether the edge from a to b leads to a node
// that was created no later than a, which approximates a loop-closing
// edge by textual position.
func (g *Graph) IsPositionalBackEdge(a, b NodeID) bool {
	return g.HasEdge(a, b) && g.Index(b) <= g.Index(a)
}

// BackEdges returns the tagged loop-closing edges in insertion order.
func (g *Graph) BackEdges() []Edge {
	var edges []Edge
	for _, e := range g.edges {
		if g.back[e] {
			edges = append(edges, e)
		}
	}
	return edges
}

// Sources returns the nodes in which execution may start: those without
// incoming edges, apart from loop-closing ones.
func (g *Graph) Sources() []NodeID {
	var sources []NodeID
	for _, n := range g.nodes {
		entry := true
		for _, p := range g.pred[n.ID] {
			if !g.back[Edge{p, n.ID}] {
				entry = false
				break
			}
		}
		if entry {
			sources = append(sources, n.ID)
		}
	}
	return sources
}

// Sinks returns the nodes without outgoing edges.
func (g *Graph) Sinks() []NodeID {
	var sinks []NodeID
	for _, n := range g.nodes {
		if len(g.succ[n.ID]) == 0 {
			sinks = append(sinks, n.ID)
		}
	}
	return sinks
}

// IsExit tells whether the function may end after n.
// Every sink is an exit.
func (g *Graph) IsExit(n NodeID) bool {
	return g.exits[n] || (g.Node(n) != nil && len(g.succ[n]) == 0)
}

// Exits returns the exit nodes in creation order.
func (g *Graph) Exits() []NodeID {
	var exits []NodeID
	for _, n := range g.nodes {
		if g.IsExit(n.ID) {
			exits = append(exits, n.ID)
		}
	}
	return exits
}

// Lines returns the sorted union of the lines of the given nodes.
func (g *Graph) Lines(ids []NodeID) []int {
	var lines []int
	for _, id := range ids {
		if n := g.Node(id); n != nil {
			lines = append(lines, n.Lines...)
		}
	}
	return normalizeLines(lines)
}

// Validate checks that all edges connect nodes of the graph, that the
// node ids match the creation order and that no edge occurs twice.
func (g *Graph) Validate() error {
	for i, n := range g.nodes {
		if n.ID != NodeID(i) {
			return fmt.Errorf("node %q at index %d has id %d", n.Label, i, n.ID)
		}
	}
	seen := map[Edge]bool{}
	for _, e := range g.edges {
		if g.Node(e.From) == nil || g.Node(e.To) == nil {
			return fmt.Errorf("edge %s refers to a missing node", e)
		}
		if seen[e] {
			return fmt.Errorf("duplicate edge %s", e)
		}
		seen[e] = true
	}
	return nil
}

// String returns a compact listing of the graph, one node per line.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, n := range g.nodes {
		succ := make([]string, 0, len(g.succ[n.ID]))
		for _, s := range g.succ[n.ID] {
			mark := ""
			if g.back[Edge{n.ID, s}] {
				mark = "^"
			}
			succ = append(succ, fmt.Sprintf("%d%s", s, mark))
		}
		fmt.Fprintf(&sb, "%d %s %q -> [%s]\n",
			n.ID, n.Kind, n.Label, strings.Join(succ, " "))
	}
	return sb.String()
}

func normalizeLines(lines []int) []int {
	if len(lines) == 0 {
		return nil
	}
	sorted := append([]int(nil), lines...)
	sort.Ints(sorted)
	out := sorted[:1]
	for _, line := range sorted[1:] {
		if line != out[len(out)-1] {
			out = append(out, line)
		}
	}
	return out
}
