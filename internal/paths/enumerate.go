package paths

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sut-sqrlab/more-coverage/internal/cfg"
)

// Policy decides whether a partial path may be extended by a successor.
// Each policy bounds the number of times a path re-enters a cycle.
type Policy int

const (
	// EdgeOnce allows each directed edge at most once per path.
	EdgeOnce Policy = iota

	// NodeOnceOrBackEdge allows each node at most once per path, except
	// when it is reached through a loop-closing edge. Each loop-closing
	// edge may be taken at most once per path.
	NodeOnceOrBackEdge

	// VisitBelowTwo allows each node at most twice per path, which
	// represents exactly one full loop iteration.
	VisitBelowTwo
)

var policyNames = [...]string{
	EdgeOnce:           "edge-once",
	NodeOnceOrBackEdge: "node-once-or-back-edge",
	VisitBelowTwo:      "visit-below-two",
}

func (p Policy) String() string {
	if p >= 0 && int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

const (
	DefaultMaxPaths      = 10000
	DefaultMaxExpansions = 1000000
)

// Options controls a single enumeration.
type Options struct {
	Policy Policy

	// MaxPaths is the number of finished paths after which the
	// enumeration stops. Zero means DefaultMaxPaths, a negative number
	// means no limit.
	MaxPaths int

	// MaxExpansions is the number of single-step path extensions after
	// which the enumeration stops. Zero means DefaultMaxExpansions, a
	// negative number means no limit.
	MaxExpansions int

	// StopAtSelfLoop finishes a path whose last two nodes are the same,
	// in addition to the paths that end in an exit node.
	StopAtSelfLoop bool

	// PositionalBackEdges treats every edge to a node that was created no
	// later than its source as loop-closing, instead of relying on the
	// edges tagged by the builder.
	PositionalBackEdges bool

	Log zerolog.Logger
}

// Result is the outcome of an enumeration.
type Result struct {
	// Paths lists the finished paths in the order of discovery.
	Paths []Path

	// Truncated is set when a ceiling stopped the enumeration before
	// every path was explored.
	Truncated bool

	Expansions int
}

// Enumerate finds the paths of g, breadth-first from every source node.
//
// A path is finished when its last node is an exit of the function.
// A finished path is still extended if the policy allows, since an exit
// node may have successors, such as a loop header at the very end of the
// function.
func Enumerate(g *cfg.Graph, opts Options) Result {
	e := enumerator{g, opts.withDefaults()}
	return e.run()
}

func (o Options) withDefaults() Options {
	if o.MaxPaths == 0 {
		o.MaxPaths = DefaultMaxPaths
	}
	if o.MaxExpansions == 0 {
		o.MaxExpansions = DefaultMaxExpansions
	}
	return o
}

type enumerator struct {
	g    *cfg.Graph
	opts Options
}

func (e *enumerator) run() Result {
	var res Result

	var queue []Path
	for _, src := range e.sources() {
		queue = append(queue, Path{src})
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]

		if e.finished(p) {
			if e.opts.MaxPaths >= 0 && len(res.Paths) >= e.opts.MaxPaths {
				res.Truncated = true
				break
			}
			res.Paths = append(res.Paths, p)
			if e.selfLoop(p) {
				continue
			}
		}

		last := p.Last()
		for _, succ := range e.g.Successors(last) {
			if !e.allowed(p, last, succ) {
				continue
			}
			if e.opts.MaxExpansions >= 0 && res.Expansions >= e.opts.MaxExpansions {
				res.Truncated = true
				queue = nil
				break
			}
			res.Expansions++
			queue = append(queue, p.Extend(succ))
		}
	}

	if res.Truncated {
		e.opts.Log.Warn().
			Str("func", e.g.Name).
			Stringer("policy", e.opts.Policy).
			Int("paths", len(res.Paths)).
			Int("expansions", res.Expansions).
			Msg("path enumeration truncated")
	}
	return res
}

// sources returns the nodes without incoming edges, apart from those
// that isBackEdge considers loop-closing.
func (e *enumerator) sources() []cfg.NodeID {
	var sources []cfg.NodeID
	for _, n := range e.g.Nodes() {
		entry := true
		for _, pred := range e.g.Predecessors(n.ID) {
			if !e.isBackEdge(pred, n.ID) {
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

func (e *enumerator) finished(p Path) bool {
	return e.g.IsExit(p.Last()) || e.selfLoop(p)
}

func (e *enumerator) selfLoop(p Path) bool {
	n := len(p)
	return e.opts.StopAtSelfLoop && n >= 2 && p[n-2] == p[n-1]
}

func (e *enumerator) allowed(p Path, from, to cfg.NodeID) bool {
	switch e.opts.Policy {
	case EdgeOnce:
		return !p.HasEdge(from, to)
	case NodeOnceOrBackEdge:
		if !p.Has(to) {
			return true
		}
		return e.isBackEdge(from, to) && !p.HasEdge(from, to)
	case VisitBelowTwo:
		return p.Count(to) < 2
	}
	return false
}

func (e *enumerator) isBackEdge(from, to cfg.NodeID) bool {
	if e.opts.PositionalBackEdges {
		return e.g.IsPositionalBackEdge(from, to)
	}
	return e.g.IsBackEdge(from, to)
}
