package coverage

import (
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/rs/zerolog"

	"github.com/sut-sqrlab/more-coverage/internal/cfg"
	"github.com/sut-sqrlab/more-coverage/internal/paths"
)

// Options controls the path selection.
type Options struct {
	// Paths bounds the enumeration of candidate paths.
	// Its Policy is overridden by the policy of the criterion.
	Paths paths.Options

	Log zerolog.Logger
}

// Result is the outcome of selecting paths for a criterion.
type Result struct {
	Criterion Criterion

	// Paths are the selected paths, in the order they were chosen.
	Paths []paths.Path

	// Universe lists every element the criterion asks for.
	Universe []Requirement

	// Uncovered lists the elements of the universe that no selected path
	// visits. They are not reachable by any candidate path.
	Uncovered []Requirement

	// Candidates is the number of enumerated candidate paths.
	Candidates int

	// Truncated is set when the candidate enumeration hit a ceiling.
	Truncated bool
}

// Complete tells whether the selected paths cover the whole universe.
func (r *Result) Complete() bool {
	return len(r.Uncovered) == 0
}

// Covered returns the number of covered universe elements.
func (r *Result) Covered() int {
	return len(r.Universe) - len(r.Uncovered)
}

// Select chooses paths through g that together satisfy the criterion.
//
// For node, edge and edge-pair coverage, the paths are chosen greedily,
// each time taking the candidate that covers the most elements not yet
// covered. The result is small but not necessarily minimal. For prime
// path coverage, every maximal path is selected.
func Select(g *cfg.Graph, c Criterion, opts Options) *Result {
	popts := opts.Paths
	popts.Policy = c.Policy()
	popts.StopAtSelfLoop = c == PrimePathCoverage
	popts.Log = opts.Log
	enum := paths.Enumerate(g, popts)

	res := &Result{
		Criterion:  c,
		Universe:   Universe(g, c),
		Candidates: len(enum.Paths),
		Truncated:  enum.Truncated,
	}

	if c == PrimePathCoverage {
		res.Paths = maximalize(enum.Paths)
	} else {
		res.Paths = greedy(res.Universe, enum.Paths, c)
	}
	res.Uncovered = uncovered(res.Universe, res.Paths, c)

	opts.Log.Debug().
		Str("func", g.Name).
		Stringer("criterion", c).
		Int("candidates", res.Candidates).
		Int("selected", len(res.Paths)).
		Int("universe", len(res.Universe)).
		Int("uncovered", len(res.Uncovered)).
		Msg("selected paths")
	return res
}

// greedy repeatedly picks the candidate that covers the most uncovered
// elements, preferring the earlier candidate on ties. It stops when
// everything is covered or no candidate adds anything.
func greedy(universe []Requirement, candidates []paths.Path, c Criterion) []paths.Path {
	if len(universe) == 0 {
		return nil
	}

	index := make(map[key]uint, len(universe))
	for i, r := range universe {
		index[r.key()] = uint(i)
	}

	sets := make([]*bitset.BitSet, len(candidates))
	for i, p := range candidates {
		set := bitset.New(uint(len(universe)))
		for _, r := range covered(p, c) {
			if bit, ok := index[r.key()]; ok {
				set.Set(bit)
			}
		}
		sets[i] = set
	}

	open := bitset.New(uint(len(universe)))
	for i := range universe {
		open.Set(uint(i))
	}

	used := make([]bool, len(candidates))
	var selected []paths.Path
	for open.Any() {
		best, bestScore := -1, uint(0)
		for i, set := range sets {
			if used[i] {
				continue
			}
			if score := set.IntersectionCardinality(open); score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		open.InPlaceDifference(sets[best])
		selected = append(selected, candidates[best])
	}
	return selected
}

// maximalize splices the candidate paths into maximal paths.
//
// Starting from the longest remaining candidate that is not yet part of
// an emitted path, it repeatedly prepends a candidate that ends where the
// current path starts, or appends one that starts where it ends, as long
// as that candidate brings at least one new node. Spliced candidates are
// consumed.
func maximalize(candidates []paths.Path) []paths.Path {
	remaining := append([]paths.Path(nil), candidates...)
	sort.SliceStable(remaining, func(i, j int) bool {
		return len(remaining[i]) > len(remaining[j])
	})

	var out []paths.Path
	for len(remaining) > 0 {
		cur := remaining[0]
		remaining = remaining[1:]
		if subsumed(out, cur) {
			continue
		}

		for {
			i, spliced := splice(cur, remaining)
			if i < 0 {
				break
			}
			cur = spliced
			remaining = append(remaining[:i:i], remaining[i+1:]...)
		}
		out = append(out, cur)
	}
	return out
}

// splice finds the first candidate that extends cur at either end and
// returns its index together with the extended path, or -1.
func splice(cur paths.Path, candidates []paths.Path) (int, paths.Path) {
	for i, cand := range candidates {
		if cand.SubsetOf(cur) {
			continue
		}
		if cand.Last() == cur.First() {
			joined := append(append(paths.Path(nil), cand...), cur[1:]...)
			return i, joined
		}
		if cand.First() == cur.Last() {
			joined := append(append(paths.Path(nil), cur...), cand[1:]...)
			return i, joined
		}
	}
	return -1, nil
}

func subsumed(out []paths.Path, p paths.Path) bool {
	for _, o := range out {
		if o.Contains(p) {
			return true
		}
	}
	return false
}

func uncovered(universe []Requirement, selected []paths.Path, c Criterion) []Requirement {
	seen := map[key]bool{}
	for _, p := range selected {
		for _, r := range covered(p, c) {
			seen[r.key()] = true
		}
	}
	var open []Requirement
	for _, r := range universe {
		if !seen[r.key()] {
			open = append(open, r)
		}
	}
	return open
}
