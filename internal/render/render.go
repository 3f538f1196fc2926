// Package render writes analysis reports in the various output formats.
package render

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"github.com/goccy/go-json"

	"github.com/sut-sqrlab/more-coverage/internal/analysis"
	"github.com/sut-sqrlab/more-coverage/internal/coverage"
	"github.com/sut-sqrlab/more-coverage/internal/syntax"
	"github.com/sut-sqrlab/more-coverage/internal/testgen"
)

// ErrUnknownFormat is returned by Write for unsupported output formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Options controls the text output.
type Options struct {
	// ListAll also lists the criteria that are satisfied completely,
	// and every selected path.
	ListAll bool
}

// Write renders the report in the given format, which is one of
// text, json, dot, script or tree.
func Write(w io.Writer, format string, r *analysis.Report, opts Options) error {
	switch format {
	case "text":
		return Text(w, r, opts)
	case "json":
		return JSON(w, r)
	case "dot":
		return DOT(w, r)
	case "script":
		return Script(w, r)
	case "tree":
		return Tree(w, r)
	}
	return fmt.Errorf("%w %q", ErrUnknownFormat, format)
}

// errWriter remembers the first write error, so that the renderers can
// write without checking each call.
type errWriter struct {
	w   io.Writer
	err error
}

func (w *errWriter) printf(format string, args ...interface{}) {
	if w.err == nil {
		_, w.err = fmt.Fprintf(w.w, format+"\n", args...)
	}
}

// Text writes a human-readable summary, in the style of compiler
// diagnostics for the uncovered parts.
func Text(w io.Writer, r *analysis.Report, opts Options) error {
	out := errWriter{w: w}

	for _, warning := range r.Warnings {
		out.printf("%s", warning)
	}

	for _, fn := range r.Funcs {
		out.printf("%s:%s: %s: %d %s, %d %s, %d %s",
			r.File, fn.Lines, fn.Name,
			fn.Nodes, plural(fn.Nodes, "node", "nodes"),
			fn.Edges, plural(fn.Edges, "edge", "edges"),
			fn.Loops, plural(fn.Loops, "loop", "loops"))

		for _, line := range fn.Unreachable {
			out.printf("%s:%d: statement is unreachable", r.File, line)
		}

		for _, crit := range fn.Criteria {
			textCriterion(&out, r, fn, crit, opts)
		}
	}
	return out.err
}

func textCriterion(out *errWriter, r *analysis.Report, fn *analysis.FuncReport, crit *analysis.CriterionReport, opts Options) {
	covered := len(crit.Universe) - len(crit.Uncovered)
	suffix := ""
	if crit.Truncated {
		suffix = " (path enumeration truncated)"
	}
	out.printf("%s: %d/%d with %d %s%s",
		title(crit.Criterion), covered, len(crit.Universe),
		len(crit.Records), plural(len(crit.Records), "path", "paths"), suffix)

	for _, req := range crit.Uncovered {
		line := fn.Lines.Start
		if lines := fn.Graph.Lines(req); len(lines) > 0 {
			line = lines[0]
		}
		out.printf("%s:%d: %s is not covered by any path",
			r.File, line, describeRequirement(fn, req))
	}

	if opts.ListAll {
		for _, rec := range crit.Records {
			out.printf("\t%s: %s, %s", rec.Name, arrows(rec.Path), testgen.FormatLines(rec.Lines))
		}
	}
}

func describeRequirement(fn *analysis.FuncReport, req coverage.Requirement) string {
	switch len(req) {
	case 1:
		return fmt.Sprintf("node %s %q", req, fn.Graph.Node(req[0]).Label)
	case 2:
		return fmt.Sprintf("edge %s", req)
	}
	return fmt.Sprintf("edge pair %s", req)
}

func title(c coverage.Criterion) string {
	name := c.String()
	return strings.ToUpper(name[:1]) + name[1:] + " coverage"
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func arrows(path []int) string {
	strs := make([]string, len(path))
	for i, id := range path {
		strs[i] = strconv.Itoa(id)
	}
	return strings.Join(strs, " -> ")
}

// JSON writes the report as an indented JSON document.
func JSON(w io.Writer, r *analysis.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// DOT writes the flow graph of each function as a Graphviz digraph.
func DOT(w io.Writer, r *analysis.Report) error {
	for _, fn := range r.Funcs {
		data, err := fn.Graph.DOT()
		if err != nil {
			return fmt.Errorf("%s: %w", fn.Name, err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return err
		}
	}
	return nil
}

// Tree writes the statement tree of each function, as read from the
// source file.
func Tree(w io.Writer, r *analysis.Report) error {
	for _, fn := range r.Funcs {
		if err := syntax.Dump(w, fn.Func); err != nil {
			return err
		}
	}
	return nil
}

//go:embed templates/*.tmpl
var templateFS embed.FS

var scripts = template.Must(template.New("").Funcs(template.FuncMap{
	"class":   className,
	"goname":  goName,
	"gopkg":   goPackage,
	"golines": goLines,
	"prefix":  prefixLines,
	"pyset":   pySet,
	"pystr":   strconv.Quote,
	"stub":    stubOr,
}).ParseFS(templateFS, "templates/*.tmpl"))

// Script writes a test script skeleton with one test per selected path,
// in the language of the analyzed file.
func Script(w io.Writer, r *analysis.Report) error {
	var name string
	switch r.Language {
	case "python":
		name = "python_test.tmpl"
	case "go":
		name = "go_test.tmpl"
	default:
		return fmt.Errorf("no test script template for language %q", r.Language)
	}
	return scripts.ExecuteTemplate(w, name, r)
}

// className turns "Store.open" into "StoreOpen".
func className(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range testgen.Identifier(name) {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// goName turns "test_f_node_1" into "Test_f_node_1".
func goName(name string) string {
	return "Test" + strings.TrimPrefix(name, "test")
}

func goPackage(pkg string) string {
	if pkg == "" {
		return "main"
	}
	return pkg
}

func goLines(lines []int) string {
	if len(lines) == 0 {
		return "none"
	}
	strs := make([]string, len(lines))
	for i, line := range lines {
		strs[i] = strconv.Itoa(line)
	}
	return strings.Join(strs, ", ")
}

func pySet(lines []int) string {
	if len(lines) == 0 {
		return "set()"
	}
	return "{" + goLines(lines) + "}"
}

// prefixLines puts prefix in front of each line of text. Trailing
// whitespace is removed from the resulting lines.
func prefixLines(prefix, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(prefix+line, unicode.IsSpace)
	}
	return strings.Join(lines, "\n")
}

func stubOr(stub, placeholder string) string {
	if stub == "" {
		return placeholder
	}
	return stub
}
