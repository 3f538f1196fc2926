package syntax

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a readable outline of fn, one statement per line, with
// nested blocks indented by a tab.
func Dump(w io.Writer, fn *Func) error {
	d := dumper{w: w}
	d.line(0, "func %s %s", fn.Name, fn.Pos)
	d.block(1, fn.Body)
	return d.err
}

type dumper struct {
	w   io.Writer
	err error
}

func (d *dumper) block(depth int, stmts []Stmt) {
	for _, stmt := range stmts {
		d.stmt(depth, stmt)
	}
}

func (d *dumper) stmt(depth int, stmt Stmt) {
	d.line(depth, "%s %s: %s%s", stmt.Kind(), stmt.Span(), oneLine(stmt.Text()), labelOf(stmt))

	switch s := stmt.(type) {
	case *If:
		d.block(depth+1, s.Then)
		if len(s.Else) > 0 {
			d.line(depth, "else")
			d.block(depth+1, s.Else)
		}
	case *While:
		d.block(depth+1, s.Body)
		if s.Post != nil {
			d.line(depth, "post %s: %s", s.Post.Span(), oneLine(s.Post.Text()))
		}
		if len(s.Else) > 0 {
			d.line(depth, "else")
			d.block(depth+1, s.Else)
		}
	case *For:
		d.loopBody(depth, s.Body, s.Else)
	case *Match:
		for _, c := range s.Cases {
			d.line(depth+1, "case %s: %s", c.Pos, oneLine(c.Text()))
			d.block(depth+2, c.Body)
		}
	case *Try:
		d.block(depth+1, s.Body)
		for _, h := range s.Handlers {
			d.line(depth, "handler %s: %s", h.Pos, oneLine(h.Text()))
			d.block(depth+1, h.Body)
		}
		if len(s.Else) > 0 {
			d.line(depth, "else")
			d.block(depth+1, s.Else)
		}
		if len(s.Finally) > 0 {
			d.line(depth, "finally %s", s.FinallyPos)
			d.block(depth+1, s.Finally)
		}
	}
}

func (d *dumper) loopBody(depth int, body, els []Stmt) {
	d.block(depth+1, body)
	if len(els) > 0 {
		d.line(depth, "else")
		d.block(depth+1, els)
	}
}

func (d *dumper) line(depth int, format string, args ...interface{}) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, "%s%s\n", strings.Repeat("\t", depth), fmt.Sprintf(format, args...))
}

func labelOf(stmt Stmt) string {
	var label string
	switch s := stmt.(type) {
	case *While:
		label = s.Label
	case *For:
		label = s.Label
	case *Match:
		label = s.Label
	}
	if label == "" {
		return ""
	}
	return " (label " + label + ")"
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
