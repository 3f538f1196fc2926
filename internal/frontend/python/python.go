// Package python reads the functions of a Python source file into
// statement trees, using the tree-sitter Python grammar.
package python

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/sut-sqrlab/more-coverage/internal/syntax"
)

// Language is the name under which the statement trees are reported.
const Language = "python"

type reader struct {
	src  []byte
	file *syntax.File
}

// Parse reads every function and method from src. Methods are named
// "Class.method", nested classes "Outer.Inner.method".
//
// Syntax errors do not make the parsing fail. They are reported as
// warnings, and the affected statements get placeholder labels.
func Parse(ctx context.Context, filename string, src []byte) (*syntax.File, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	r := reader{src: src, file: &syntax.File{Name: filename, Language: Language}}

	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("tree-sitter returned no syntax tree for %s", filename)
	}
	if root.HasError() {
		r.errors(root)
	}
	r.definitions(root, "")
	return r.file, nil
}

// definitions collects the functions defined directly in node, which is a
// module or the body of a class.
func (r *reader) definitions(node *sitter.Node, prefix string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "decorated_definition" {
			if def := child.ChildByFieldName("definition"); def != nil {
				child = def
			}
		}

		switch child.Type() {
		case "function_definition":
			r.function(child, prefix)
		case "class_definition":
			name := r.text(child.ChildByFieldName("name"))
			if body := child.ChildByFieldName("body"); body != nil && name != "" {
				r.definitions(body, prefix+name+".")
			}
		}
	}
}

func (r *reader) function(node *sitter.Node, prefix string) {
	name := r.text(node.ChildByFieldName("name"))
	if name == "" {
		name = "<anonymous>"
	}
	fn := &syntax.Func{
		Name: prefix + name,
		File: r.file.Name,
		Pos:  span(node),
	}
	if body := node.ChildByFieldName("body"); body != nil {
		fn.Body = r.block(body)
	}
	r.file.Funcs = append(r.file.Funcs, fn)
}

func (r *reader) block(node *sitter.Node) []syntax.Stmt {
	if node == nil {
		return nil
	}
	var stmts []syntax.Stmt
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		stmts = append(stmts, r.stmt(child)...)
	}
	return stmts
}

func (r *reader) stmt(node *sitter.Node) []syntax.Stmt {
	switch node.Type() {

	case "if_statement":
		return []syntax.Stmt{r.ifStmt(node)}

	case "while_statement":
		return []syntax.Stmt{&syntax.While{
			Cond: r.text(node.ChildByFieldName("condition")),
			Pos:  r.headerSpan(node, "condition"),
			Body: r.block(node.ChildByFieldName("body")),
			Else: r.elseBlock(node),
		}}

	case "for_statement":
		return []syntax.Stmt{r.forStmt(node)}

	case "match_statement":
		return []syntax.Stmt{r.matchStmt(node)}

	case "try_statement":
		return []syntax.Stmt{r.tryStmt(node)}

	case "with_statement":
		return r.withStmt(node)

	case "return_statement":
		return []syntax.Stmt{&syntax.Return{Source: r.text(node), Pos: span(node)}}

	case "raise_statement":
		return []syntax.Stmt{&syntax.Raise{Source: r.text(node), Pos: span(node)}}

	case "break_statement":
		return []syntax.Stmt{&syntax.Break{Source: r.text(node), Pos: span(node)}}

	case "continue_statement":
		return []syntax.Stmt{&syntax.Continue{Source: r.text(node), Pos: span(node)}}

	case "function_definition", "class_definition", "decorated_definition":
		// A nested definition only binds a name when it is executed.
		return []syntax.Stmt{&syntax.Simple{Source: r.defHeader(node), Pos: firstLine(node)}}

	case "ERROR":
		return []syntax.Stmt{&syntax.Other{Source: r.text(node), Pos: span(node)}}
	}

	return []syntax.Stmt{&syntax.Simple{Source: r.text(node), Pos: span(node)}}
}

func (r *reader) ifStmt(node *sitter.Node) *syntax.If {
	s := &syntax.If{
		Cond: r.text(node.ChildByFieldName("condition")),
		Pos:  r.headerSpan(node, "condition"),
		Then: r.block(node.ChildByFieldName("consequence")),
	}

	// The elif and else clauses are all children of the if statement.
	// They are chained from the last one backwards.
	var clauses []*sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if t := child.Type(); t == "elif_clause" || t == "else_clause" {
			clauses = append(clauses, child)
		}
	}

	var els []syntax.Stmt
	for i := len(clauses) - 1; i >= 0; i-- {
		clause := clauses[i]
		if clause.Type() == "else_clause" {
			els = r.block(clause.ChildByFieldName("body"))
			continue
		}
		els = []syntax.Stmt{&syntax.If{
			Cond: r.text(clause.ChildByFieldName("condition")),
			Elif: true,
			Pos:  r.headerSpan(clause, "condition"),
			Then: r.block(clause.ChildByFieldName("consequence")),
			Else: els,
		}}
	}
	s.Else = els
	return s
}

func (r *reader) forStmt(node *sitter.Node) *syntax.For {
	s := &syntax.For{
		Target: r.text(node.ChildByFieldName("left")),
		Iter:   r.text(node.ChildByFieldName("right")),
		Pos:    r.headerSpan(node, "right"),
		Body:   r.block(node.ChildByFieldName("body")),
		Else:   r.elseBlock(node),
	}
	if s.Target != "" && s.Iter != "" && isAsync(node) {
		s.Header = "async for " + s.Target + " in " + s.Iter
	}
	return s
}

func (r *reader) elseBlock(node *sitter.Node) []syntax.Stmt {
	alt := node.ChildByFieldName("alternative")
	if alt == nil || alt.Type() != "else_clause" {
		return nil
	}
	return r.block(alt.ChildByFieldName("body"))
}

func (r *reader) matchStmt(node *sitter.Node) *syntax.Match {
	var subjects []string
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) == "subject" {
			subjects = append(subjects, r.text(node.Child(i)))
		}
	}
	s := &syntax.Match{
		Subject: strings.Join(subjects, ", "),
		Pos:     firstLine(node),
	}

	hasWildcard := false
	body := node.ChildByFieldName("body")
	if body == nil {
		body = node
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		clause := body.NamedChild(i)
		if clause.Type() != "case_clause" {
			continue
		}
		c := r.caseClause(clause)
		if c.Guard == "" && isIrrefutable(c.Pattern) {
			hasWildcard = true
		}
		s.Cases = append(s.Cases, c)
	}
	if !hasWildcard {
		s.Cases = append(s.Cases, &syntax.Case{Header: "case _ (implicit)"})
	}
	return s
}

func (r *reader) caseClause(node *sitter.Node) *syntax.Case {
	c := &syntax.Case{Pos: firstLine(node)}
	var patterns []string
	var body *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "case_pattern":
			patterns = append(patterns, r.text(child))
		case "if_clause":
			if child.NamedChildCount() > 0 {
				c.Guard = r.text(child.NamedChild(0))
			}
		case "block":
			body = child
		}
	}
	c.Pattern = strings.Join(patterns, ", ")
	c.Body = r.block(body)
	return c
}

// isIrrefutable tells whether a case pattern matches every subject.
func isIrrefutable(pattern string) bool {
	if pattern == "_" {
		return true
	}
	for _, r := range pattern {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return pattern != "" && !(pattern[0] >= '0' && pattern[0] <= '9') &&
		pattern != "None" && pattern != "True" && pattern != "False"
}

func (r *reader) tryStmt(node *sitter.Node) *syntax.Try {
	s := &syntax.Try{
		Pos:  firstLine(node),
		Body: r.block(node.ChildByFieldName("body")),
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "except_clause", "except_group_clause":
			s.Handlers = append(s.Handlers, r.handler(child))
		case "else_clause":
			s.Else = r.block(child.ChildByFieldName("body"))
		case "finally_clause":
			s.FinallyPos = firstLine(child)
			s.Finally = r.block(lastBlock(child))
		}
	}
	return s
}

// handler converts an except clause. Its expressions are the exception
// type and, after "as", the name it is bound to.
func (r *reader) handler(node *sitter.Node) *syntax.Handler {
	h := &syntax.Handler{Pos: firstLine(node)}
	var exprs []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "block", "comment":
			continue
		case "as_pattern":
			exprs = append(exprs, r.text(child.NamedChild(0)))
			if alias := child.ChildByFieldName("alias"); alias != nil {
				exprs = append(exprs, r.text(alias))
			}
		default:
			exprs = append(exprs, r.text(child))
		}
	}
	if len(exprs) > 0 {
		h.Type = exprs[0]
	}
	if len(exprs) > 1 {
		h.Name = exprs[1]
	}
	if node.Type() == "except_group_clause" && h.Type != "" {
		h.Type = "*" + h.Type
	}
	h.Body = r.block(lastBlock(node))
	return h
}

// withStmt inlines the body of a with statement, preceded by the header
// as a straight-line statement.
func (r *reader) withStmt(node *sitter.Node) []syntax.Stmt {
	header := "with"
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "with_clause" {
			header += " " + r.text(child)
		}
	}
	if isAsync(node) {
		header = "async " + header
	}
	body := node.ChildByFieldName("body")
	enter := &syntax.Simple{Source: header, Pos: syntax.Span{
		Start: int(node.StartPoint().Row) + 1,
		End:   headerEnd(node, body),
	}}
	return append([]syntax.Stmt{enter}, r.block(body)...)
}

func (r *reader) defHeader(node *sitter.Node) string {
	if node.Type() == "decorated_definition" {
		if def := node.ChildByFieldName("definition"); def != nil {
			node = def
		}
	}
	keyword := "def"
	if node.Type() == "class_definition" {
		keyword = "class"
	}
	header := keyword + " " + r.text(node.ChildByFieldName("name"))
	if params := node.ChildByFieldName("parameters"); params != nil {
		header += r.text(params)
	}
	return header
}

// errors reports the syntax errors below node as warnings.
func (r *reader) errors(node *sitter.Node) {
	if node.Type() == "ERROR" || node.IsMissing() {
		what := "syntax error"
		if node.IsMissing() {
			what = fmt.Sprintf("missing %q", node.Type())
		}
		r.file.Warnings = append(r.file.Warnings, fmt.Sprintf("%s:%d:%d: %s",
			r.file.Name, node.StartPoint().Row+1, node.StartPoint().Column+1, what))
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child != nil && child.HasError() {
			r.errors(child)
		}
	}
}

func (r *reader) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(r.src)
}

// headerSpan returns the lines from the start of node up to the end of its
// field, which is the last part of the header.
func (r *reader) headerSpan(node *sitter.Node, field string) syntax.Span {
	start := int(node.StartPoint().Row) + 1
	end := start
	if f := node.ChildByFieldName(field); f != nil {
		end = int(f.EndPoint().Row) + 1
	}
	return syntax.Span{Start: start, End: end}
}

func headerEnd(node, body *sitter.Node) int {
	if body == nil || body.StartPoint().Row == node.StartPoint().Row {
		return int(node.StartPoint().Row) + 1
	}
	return int(body.StartPoint().Row)
}

func span(node *sitter.Node) syntax.Span {
	return syntax.Span{
		Start: int(node.StartPoint().Row) + 1,
		End:   int(node.EndPoint().Row) + 1,
	}
}

func firstLine(node *sitter.Node) syntax.Span {
	line := int(node.StartPoint().Row) + 1
	return syntax.Span{Start: line, End: line}
}

func lastBlock(node *sitter.Node) *sitter.Node {
	for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
		if child := node.NamedChild(i); child.Type() == "block" {
			return child
		}
	}
	return nil
}

func isAsync(node *sitter.Node) bool {
	return node.ChildCount() > 0 && node.Child(0).Type() == "async"
}
