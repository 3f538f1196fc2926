// Package coverage selects sets of paths that satisfy a coverage
// criterion on a flow graph.
package coverage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sut-sqrlab/more-coverage/internal/cfg"
	"github.com/sut-sqrlab/more-coverage/internal/paths"
)

// Criterion is a test adequacy criterion.
type Criterion int

const (
	NodeCoverage Criterion = iota
	EdgeCoverage
	EdgePairCoverage
	PrimePathCoverage
)

// ErrUnknownCriterion is returned by ParseCriterion.
var ErrUnknownCriterion = errors.New("unknown coverage criterion")

var criterionNames = [...]string{
	NodeCoverage:      "node",
	EdgeCoverage:      "edge",
	EdgePairCoverage:  "edge-pair",
	PrimePathCoverage: "prime-path",
}

// Criteria returns all criteria, in increasing strength.
func Criteria() []Criterion {
	return []Criterion{NodeCoverage, EdgeCoverage, EdgePairCoverage, PrimePathCoverage}
}

func (c Criterion) String() string {
	if c >= 0 && int(c) < len(criterionNames) {
		return criterionNames[c]
	}
	return fmt.Sprintf("Criterion(%d)", int(c))
}

// Tag is the form of the criterion name that is usable in identifiers.
func (c Criterion) Tag() string {
	return strings.ReplaceAll(c.String(), "-", "_")
}

// Policy returns the loop policy that the candidate paths for c are
// enumerated with.
func (c Criterion) Policy() paths.Policy {
	switch c {
	case EdgeCoverage:
		return paths.EdgeOnce
	case PrimePathCoverage:
		return paths.VisitBelowTwo
	}
	return paths.NodeOnceOrBackEdge
}

// MarshalText encodes the criterion by its name.
func (c Criterion) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts the same names as ParseCriterion.
func (c *Criterion) UnmarshalText(text []byte) error {
	parsed, err := ParseCriterion(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCriterion accepts the name of a criterion, its tag, or either
// with a "-coverage" suffix, in any letter case.
func ParseCriterion(s string) (Criterion, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.TrimSuffix(name, "-coverage")
	for _, c := range Criteria() {
		if c.String() == name {
			return c, nil
		}
	}
	switch name {
	case "statement", "nodes":
		return NodeCoverage, nil
	case "branch", "edges":
		return EdgeCoverage, nil
	case "prime":
		return PrimePathCoverage, nil
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownCriterion, s)
}

// Requirement is a single element of a coverage universe: a node, an
// edge or a pair of adjacent edges, given as the sequence of its nodes.
type Requirement []cfg.NodeID

func (r Requirement) String() string {
	if len(r) == 1 {
		return fmt.Sprint(int(r[0]))
	}
	strs := make([]string, len(r))
	for i, id := range r {
		strs[i] = fmt.Sprint(int(id))
	}
	return "(" + strings.Join(strs, ",") + ")"
}

// MarshalText encodes the requirement in its string form.
func (r Requirement) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

type key [3]cfg.NodeID

func (r Requirement) key() key {
	k := key{-1, -1, -1}
	copy(k[:], r)
	return k
}

// Universe returns the elements a path set must visit to satisfy c,
// in a deterministic order derived from the node and edge order of g.
func Universe(g *cfg.Graph, c Criterion) []Requirement {
	var u []Requirement
	switch c {
	case EdgeCoverage:
		for _, e := range g.Edges() {
			u = append(u, Requirement{e.From, e.To})
		}
	case EdgePairCoverage:
		for _, e := range g.Edges() {
			for _, next := range g.Successors(e.To) {
				u = append(u, Requirement{e.From, e.To, next})
			}
		}
	default:
		for _, n := range g.Nodes() {
			u = append(u, Requirement{n.ID})
		}
	}
	return u
}

// covered returns the elements of the given criterion that p visits.
func covered(p paths.Path, c Criterion) []Requirement {
	var reqs []Requirement
	switch c {
	case EdgeCoverage:
		for _, e := range p.Edges() {
			reqs = append(reqs, Requirement{e.From, e.To})
		}
	case EdgePairCoverage:
		for _, t := range p.Triples() {
			reqs = append(reqs, Requirement{t[0], t[1], t[2]})
		}
	default:
		for _, id := range p {
			reqs = append(reqs, Requirement{id})
		}
	}
	return reqs
}
