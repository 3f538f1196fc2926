// Package testgen turns selected paths into named coverage targets that a
// renderer can embed into a test script.
package testgen

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sut-sqrlab/more-coverage/internal/cfg"
	"github.com/sut-sqrlab/more-coverage/internal/coverage"
	"github.com/sut-sqrlab/more-coverage/internal/paths"
)

// Record is a single coverage target, derived from one selected path.
type Record struct {
	Name        string             `json:"name"`
	Criterion   coverage.Criterion `json:"criterion"`
	Description string             `json:"description"`
	Path        []int              `json:"path"`
	Lines       []int              `json:"lines"`
	Stub        string             `json:"stub,omitempty"`
}

// Options controls the generated stubs.
type Options struct {
	Stubs bool

	// CommentPrefix starts each line of a stub that describes a path
	// step, such as "# " or "// ".
	CommentPrefix string

	// Placeholder is the statement that ends each stub.
	Placeholder string
}

// DefaultOptions generates stubs for Python test scripts.
var DefaultOptions = Options{Stubs: true, CommentPrefix: "# ", Placeholder: "pass"}

// Project creates one record per path selected for fn.
func Project(fn string, g *cfg.Graph, res *coverage.Result, opts Options) []Record {
	records := make([]Record, 0, len(res.Paths))
	for i, p := range res.Paths {
		rec := Record{
			Name:        Name(fn, res.Criterion, i+1),
			Criterion:   res.Criterion,
			Description: describe(fn, g, res, i),
			Path:        p.Ints(),
			Lines:       g.Lines(p),
		}
		if opts.Stubs {
			rec.Stub = stub(g, p, opts)
		}
		records = append(records, rec)
	}
	return records
}

// Name returns the name of the n-th record of the criterion for fn.
func Name(fn string, c coverage.Criterion, n int) string {
	return fmt.Sprintf("test_%s_%s_%d", Identifier(fn), c.Tag(), n)
}

// Identifier replaces every character of s that cannot be part of an
// identifier with an underscore.
func Identifier(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	if sb.Len() == 0 {
		return "_"
	}
	return sb.String()
}

func describe(fn string, g *cfg.Graph, res *coverage.Result, i int) string {
	p := res.Paths[i]

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s coverage, path %d of %d through %s: %s\n",
		res.Criterion, i+1, len(res.Paths), fn, arrows(p))
	for _, id := range p {
		n := g.Node(id)
		fmt.Fprintf(&sb, "  %d: %s", id, oneLine(n.Label))
		if len(n.Lines) > 0 {
			fmt.Fprintf(&sb, " (%s)", FormatLines(n.Lines))
		}
		sb.WriteString("\n")
	}
	if edges := p.Edges(); len(edges) > 0 {
		strs := make([]string, len(edges))
		for j, e := range edges {
			strs[j] = e.String()
		}
		fmt.Fprintf(&sb, "edges: %s\n", strings.Join(strs, " "))
	}
	fmt.Fprintf(&sb, "%s", FormatLines(g.Lines(p)))
	return sb.String()
}

func stub(g *cfg.Graph, p paths.Path, opts Options) string {
	var sb strings.Builder
	for _, id := range p {
		fmt.Fprintf(&sb, "%s%d: %s\n", opts.CommentPrefix, id, oneLine(g.Node(id).Label))
	}
	sb.WriteString(opts.Placeholder)
	return sb.String()
}

// FormatLines returns "line 3" or "lines 3, 4, 7".
func FormatLines(lines []int) string {
	if len(lines) == 0 {
		return "no lines"
	}
	strs := make([]string, len(lines))
	for i, line := range lines {
		strs[i] = fmt.Sprint(line)
	}
	if len(lines) == 1 {
		return "line " + strs[0]
	}
	return "lines " + strings.Join(strs, ", ")
}

func arrows(p paths.Path) string {
	strs := make([]string, len(p))
	for i, id := range p {
		strs[i] = fmt.Sprint(int(id))
	}
	return strings.Join(strs, " -> ")
}

// oneLine collapses all whitespace, including newlines, into single spaces.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
