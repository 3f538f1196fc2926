package cfg

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	_ graph.Directed      = directedAdapter{}
	_ graph.Node          = gonumNode{}
	_ graph.Edge          = gonumEdge{}
	_ encoding.Attributer = gonumNode{}
	_ encoding.Attributer = gonumEdge{}
)

// directedAdapter presents a Graph to the gonum graph algorithms.
type directedAdapter struct {
	g *Graph
}

// Gonum returns a read-only view of g for the gonum graph packages.
func (g *Graph) Gonum() graph.Directed {
	return directedAdapter{g}
}

func (a directedAdapter) Node(id int64) graph.Node {
	n := a.g.Node(NodeID(id))
	if n == nil {
		return nil
	}
	return gonumNode{n}
}

func (a directedAdapter) Nodes() graph.Nodes {
	nodes := make([]graph.Node, 0, a.g.Len())
	for _, n := range a.g.Nodes() {
		nodes = append(nodes, gonumNode{n})
	}
	return iterator.NewOrderedNodes(nodes)
}

func (a directedAdapter) From(id int64) graph.Nodes {
	return a.nodesOf(a.g.Successors(NodeID(id)))
}

func (a directedAdapter) To(id int64) graph.Nodes {
	return a.nodesOf(a.g.Predecessors(NodeID(id)))
}

func (a directedAdapter) HasEdgeBetween(xid, yid int64) bool {
	return a.HasEdgeFromTo(xid, yid) || a.HasEdgeFromTo(yid, xid)
}

func (a directedAdapter) HasEdgeFromTo(uid, vid int64) bool {
	return a.g.HasEdge(NodeID(uid), NodeID(vid))
}

func (a directedAdapter) Edge(uid, vid int64) graph.Edge {
	from, to := NodeID(uid), NodeID(vid)
	if !a.g.HasEdge(from, to) {
		return nil
	}
	return gonumEdge{a.g.Node(from), a.g.Node(to), a.g.IsBackEdge(from, to)}
}

func (a directedAdapter) nodesOf(ids []NodeID) graph.Nodes {
	nodes := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		if n := a.g.Node(id); n != nil {
			nodes = append(nodes, gonumNode{n})
		}
	}
	return iterator.NewOrderedNodes(nodes)
}

type gonumNode struct {
	n *Node
}

func (n gonumNode) ID() int64 { return int64(n.n.ID) }

func (n gonumNode) Attributes() []encoding.Attribute {
	label := fmt.Sprintf("%d: %s", n.n.ID, n.n.Label)
	if len(n.n.Lines) > 0 {
		label += fmt.Sprintf("\nlines %s", joinInts(n.n.Lines, ", "))
	}
	attrs := []encoding.Attribute{{Key: "label", Value: dotQuote(label)}}
	switch n.n.Kind {
	case KindBranch, KindDispatch, KindLoop:
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "diamond"})
	case KindMerge:
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "point"})
	case KindReturn, KindRaise:
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "doublecircle"})
	default:
		attrs = append(attrs, encoding.Attribute{Key: "shape", Value: "box"})
	}
	return attrs
}

type gonumEdge struct {
	from, to *Node
	back     bool
}

func (e gonumEdge) From() graph.Node { return gonumNode{e.from} }
func (e gonumEdge) To() graph.Node   { return gonumNode{e.to} }

func (e gonumEdge) ReversedEdge() graph.Edge {
	return gonumEdge{e.to, e.from, e.back}
}

func (e gonumEdge) Attributes() []encoding.Attribute {
	if e.back {
		return []encoding.Attribute{{Key: "style", Value: "dashed"}}
	}
	return nil
}

// Loops returns the number of strongly connected components that
// contain a cycle.
func (g *Graph) Loops() int {
	loops := 0
	for _, scc := range topo.TarjanSCC(g.Gonum()) {
		if len(scc) > 1 {
			loops++
			continue
		}
		id := NodeID(scc[0].ID())
		if g.HasEdge(id, id) {
			loops++
		}
	}
	return loops
}

// DOT returns the graph in the Graphviz DOT language.
func (g *Graph) DOT() ([]byte, error) {
	return dot.Marshal(g.Gonum(), dotName(g.Name), "", "\t")
}

func dotName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 || (name[0] >= '0' && name[0] <= '9') {
		return "f_" + sb.String()
	}
	return sb.String()
}

func dotQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}

func joinInts(ints []int, sep string) string {
	strs := make([]string, len(ints))
	for i, n := range ints {
		strs[i] = fmt.Sprint(n)
	}
	return strings.Join(strs, sep)
}
