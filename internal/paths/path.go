// Package paths enumerates finite execution paths through a flow graph.
//
// Cycles are bounded by one of several loop policies, and the whole
// enumeration is bounded by a path count and an expansion count.
package paths

import (
	"strconv"
	"strings"

	"github.com/sut-sqrlab/more-coverage/internal/cfg"
)

// Path is a non-empty sequence of nodes in which every consecutive pair
// is an edge of the graph.
type Path []cfg.NodeID

// First returns the first node of p.
func (p Path) First() cfg.NodeID { return p[0] }

// Last returns the last node of p.
func (p Path) Last() cfg.NodeID { return p[len(p)-1] }

// Has tells whether the node occurs anywhere in p.
func (p Path) Has(id cfg.NodeID) bool {
	return p.Count(id) > 0
}

// Count returns how often the node occurs in p.
func (p Path) Count(id cfg.NodeID) int {
	n := 0
	for _, x := range p {
		if x == id {
			n++
		}
	}
	return n
}

// HasEdge tells whether p steps from a to b somewhere.
func (p Path) HasEdge(a, b cfg.NodeID) bool {
	for i := 1; i < len(p); i++ {
		if p[i-1] == a && p[i] == b {
			return true
		}
	}
	return false
}

// Edges returns the consecutive pairs of p.
func (p Path) Edges() []cfg.Edge {
	if len(p) < 2 {
		return nil
	}
	edges := make([]cfg.Edge, 0, len(p)-1)
	for i := 1; i < len(p); i++ {
		edges = append(edges, cfg.Edge{From: p[i-1], To: p[i]})
	}
	return edges
}

// Triples returns the consecutive node triples of p.
func (p Path) Triples() [][3]cfg.NodeID {
	if len(p) < 3 {
		return nil
	}
	triples := make([][3]cfg.NodeID, 0, len(p)-2)
	for i := 2; i < len(p); i++ {
		triples = append(triples, [3]cfg.NodeID{p[i-2], p[i-1], p[i]})
	}
	return triples
}

// Contains tells whether sub occurs in p as a contiguous sub-path.
func (p Path) Contains(sub Path) bool {
	if len(sub) == 0 {
		return true
	}
outer:
	for i := 0; i+len(sub) <= len(p); i++ {
		for j, id := range sub {
			if p[i+j] != id {
				continue outer
			}
		}
		return true
	}
	return false
}

// SubsetOf tells whether every node of p also occurs in other,
// regardless of position.
func (p Path) SubsetOf(other Path) bool {
	for _, id := range p {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Extend returns a new path consisting of p followed by id.
// The result does not share memory with p.
func (p Path) Extend(id cfg.NodeID) Path {
	ext := make(Path, len(p)+1)
	copy(ext, p)
	ext[len(p)] = id
	return ext
}

// Equal tells whether both paths consist of the same nodes.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Ints returns the node ids of p as plain integers.
func (p Path) Ints() []int {
	ints := make([]int, len(p))
	for i, id := range p {
		ints[i] = int(id)
	}
	return ints
}

func (p Path) String() string {
	strs := make([]string, len(p))
	for i, id := range p {
		strs[i] = strconv.Itoa(int(id))
	}
	return "[" + strings.Join(strs, " ") + "]"
}
