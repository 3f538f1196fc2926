// Package golang reads the functions of a Go source file into statement
// trees.
package golang

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/sut-sqrlab/more-coverage/internal/syntax"
)

// Language is the name under which the statement trees are reported.
const Language = "go"

// reader converts the statements of a single Go file.
type reader struct {
	fset *token.FileSet
	text string // the text of the current file
}

// Parse reads every function and method with a body from src.
// Methods are named "Type.Method".
func Parse(filename string, src []byte) (*syntax.File, error) {
	r := reader{fset: token.NewFileSet(), text: string(src)}

	f, err := parser.ParseFile(r.fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	file := &syntax.File{Name: filename, Language: Language, Package: f.Name.Name}
	for _, decl := range f.Decls {
		decl, ok := decl.(*ast.FuncDecl)
		if !ok || decl.Body == nil {
			continue
		}
		file.Funcs = append(file.Funcs, &syntax.Func{
			Name: funcName(decl),
			File: filename,
			Pos:  r.span(decl.Pos(), decl.End()),
			Body: r.block(decl.Body.List),
		})
	}
	return file, nil
}

func funcName(decl *ast.FuncDecl) string {
	if decl.Recv == nil || len(decl.Recv.List) == 0 {
		return decl.Name.Name
	}
	return recvName(decl.Recv.List[0].Type) + "." + decl.Name.Name
}

func recvName(expr ast.Expr) string {
	switch expr := expr.(type) {
	case *ast.StarExpr:
		return recvName(expr.X)
	case *ast.ParenExpr:
		return recvName(expr.X)
	case *ast.IndexExpr:
		return recvName(expr.X)
	case *ast.IndexListExpr:
		return recvName(expr.X)
	case *ast.Ident:
		return expr.Name
	}
	return "_"
}

func (r *reader) block(stmts []ast.Stmt) []syntax.Stmt {
	var out []syntax.Stmt
	for _, stmt := range stmts {
		out = append(out, r.stmt(stmt, "")...)
	}
	return out
}

// stmt converts a single statement. Some statements expand to several,
// such as a for loop with an init statement.
func (r *reader) stmt(n ast.Stmt, label string) []syntax.Stmt {
	switch n := n.(type) {

	case *ast.LabeledStmt:
		return r.stmt(n.Stmt, n.Label.Name)

	case *ast.BlockStmt:
		return r.block(n.List)

	case *ast.EmptyStmt:
		return nil

	case *ast.IfStmt:
		return []syntax.Stmt{r.ifStmt(n, false)}

	case *ast.ForStmt:
		return r.forStmt(n, label)

	case *ast.RangeStmt:
		return []syntax.Stmt{r.rangeStmt(n, label)}

	case *ast.SwitchStmt:
		return r.withInit(n.Init, r.switchStmt(n, label))

	case *ast.TypeSwitchStmt:
		return r.withInit(n.Init, r.typeSwitchStmt(n, label))

	case *ast.SelectStmt:
		return []syntax.Stmt{r.selectStmt(n, label)}

	case *ast.ReturnStmt:
		return []syntax.Stmt{&syntax.Return{Source: r.str(n), Pos: r.pos(n)}}

	case *ast.BranchStmt:
		return []syntax.Stmt{r.branchStmt(n)}

	case *ast.ExprStmt:
		if isPanic(n.X) {
			return []syntax.Stmt{&syntax.Raise{Source: r.str(n), Pos: r.pos(n)}}
		}
		return []syntax.Stmt{r.simple(n)}

	case *ast.AssignStmt, *ast.DeclStmt, *ast.IncDecStmt, *ast.SendStmt,
		*ast.GoStmt, *ast.DeferStmt:
		return []syntax.Stmt{r.simple(n)}
	}

	return []syntax.Stmt{&syntax.Other{Source: r.str(n), Pos: r.pos(n)}}
}

// ifStmt converts an if statement together with its else-if chain.
// An init statement stays part of the header, since it is evaluated
// together with the condition.
func (r *reader) ifStmt(n *ast.IfStmt, elif bool) *syntax.If {
	header := r.header(n.Pos(), n.Body.Lbrace)
	if elif {
		header = "else " + header
	}
	s := &syntax.If{
		Header: header,
		Cond:   r.str(n.Cond),
		Elif:   elif,
		Pos:    r.span(n.Pos(), n.Body.Lbrace),
		Then:   r.block(n.Body.List),
	}
	switch els := n.Else.(type) {
	case *ast.IfStmt:
		s.Else = []syntax.Stmt{r.ifStmt(els, true)}
	case *ast.BlockStmt:
		s.Else = r.block(els.List)
	}
	return s
}

// forStmt converts a three-clause loop into its init statement, followed
// by a condition-controlled loop that runs the post statement after each
// iteration.
func (r *reader) forStmt(n *ast.ForStmt, label string) []syntax.Stmt {
	header := "for"
	cond := ""
	if n.Cond != nil {
		cond = r.str(n.Cond)
		header += " " + cond
	}

	loop := &syntax.While{
		Header: header,
		Cond:   cond,
		Label:  label,
		Pos:    r.span(n.Pos(), n.Body.Lbrace),
		Body:   r.block(n.Body.List),
	}
	if n.Post != nil {
		loop.Post = r.simple(n.Post)
	}
	return r.withInit(n.Init, loop)
}

func (r *reader) rangeStmt(n *ast.RangeStmt, label string) *syntax.For {
	var target []string
	if n.Key != nil {
		target = append(target, r.str(n.Key))
	}
	if n.Value != nil {
		target = append(target, r.str(n.Value))
	}
	return &syntax.For{
		Header: r.header(n.Pos(), n.Body.Lbrace),
		Target: strings.Join(target, ", "),
		Iter:   r.str(n.X),
		Label:  label,
		Pos:    r.span(n.Pos(), n.Body.Lbrace),
		Body:   r.block(n.Body.List),
	}
}

func (r *reader) switchStmt(n *ast.SwitchStmt, label string) *syntax.Match {
	subject := ""
	if n.Tag != nil {
		subject = r.str(n.Tag)
	}
	header := "switch"
	if subject != "" {
		header += " " + subject
	}
	s := &syntax.Match{
		Header:    header,
		Subject:   subject,
		Breakable: true,
		Label:     label,
		Pos:       r.span(n.Pos(), n.Body.Lbrace),
	}
	r.caseClauses(s, n.Body)
	return s
}

func (r *reader) typeSwitchStmt(n *ast.TypeSwitchStmt, label string) *syntax.Match {
	subject := r.str(n.Assign)
	s := &syntax.Match{
		Header:    "switch " + subject,
		Subject:   subject,
		Breakable: true,
		Label:     label,
		Pos:       r.span(n.Pos(), n.Body.Lbrace),
	}
	r.caseClauses(s, n.Body)
	return s
}

// caseClauses adds the clauses of a switch statement. Without a default
// clause, a switch may execute none of its clauses, which is represented
// by an implicit, empty default clause.
func (r *reader) caseClauses(s *syntax.Match, body *ast.BlockStmt) {
	hasDefault := false
	for _, stmt := range body.List {
		clause := stmt.(*ast.CaseClause)
		if clause.List == nil {
			hasDefault = true
		}
		s.Cases = append(s.Cases, &syntax.Case{
			Header:  r.header(clause.Pos(), clause.Colon),
			Pattern: r.exprs(clause.List),
			Pos:     r.span(clause.Pos(), clause.Colon),
			Body:    r.block(clause.Body),
		})
	}
	if !hasDefault {
		s.Cases = append(s.Cases, &syntax.Case{Header: "default (implicit)"})
	}
}

// selectStmt converts a select statement. It blocks until one of its
// clauses runs, so there is no implicit default clause.
func (r *reader) selectStmt(n *ast.SelectStmt, label string) *syntax.Match {
	s := &syntax.Match{
		Header:    "select",
		Breakable: true,
		Label:     label,
		Pos:       r.span(n.Pos(), n.Body.Lbrace),
	}
	for _, stmt := range n.Body.List {
		clause := stmt.(*ast.CommClause)
		pattern := ""
		if clause.Comm != nil {
			pattern = r.str(clause.Comm)
		}
		s.Cases = append(s.Cases, &syntax.Case{
			Header:  r.header(clause.Pos(), clause.Colon),
			Pattern: pattern,
			Pos:     r.span(clause.Pos(), clause.Colon),
			Body:    r.block(clause.Body),
		})
	}
	return s
}

func (r *reader) branchStmt(n *ast.BranchStmt) syntax.Stmt {
	label := ""
	if n.Label != nil {
		label = n.Label.Name
	}
	switch n.Tok {
	case token.BREAK:
		return &syntax.Break{Source: r.str(n), Label: label, Pos: r.pos(n)}
	case token.CONTINUE:
		return &syntax.Continue{Source: r.str(n), Label: label, Pos: r.pos(n)}
	}
	// goto and fallthrough are not modeled.
	return &syntax.Other{Source: r.str(n), Pos: r.pos(n)}
}

func (r *reader) withInit(init ast.Stmt, stmt syntax.Stmt) []syntax.Stmt {
	if init == nil {
		return []syntax.Stmt{stmt}
	}
	return []syntax.Stmt{r.simple(init), stmt}
}

func (r *reader) simple(n ast.Stmt) syntax.Stmt {
	return &syntax.Simple{Source: r.str(n), Pos: r.pos(n)}
}

func isPanic(expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}
	ident, ok := call.Fun.(*ast.Ident)
	return ok && ident.Name == "panic"
}

func (r *reader) exprs(exprs []ast.Expr) string {
	strs := make([]string, len(exprs))
	for i, expr := range exprs {
		strs[i] = r.str(expr)
	}
	return strings.Join(strs, ", ")
}

// str returns the source code of the node, exactly as written.
func (r *reader) str(n ast.Node) string {
	start := r.fset.Position(n.Pos())
	end := r.fset.Position(n.End())
	return r.text[start.Offset:end.Offset]
}

// header returns the source code from pos up to, but not including, end.
func (r *reader) header(pos, end token.Pos) string {
	start := r.fset.Position(pos)
	stop := r.fset.Position(end)
	return strings.TrimSpace(r.text[start.Offset:stop.Offset])
}

func (r *reader) pos(n ast.Node) syntax.Span {
	return r.span(n.Pos(), n.End())
}

func (r *reader) span(from, to token.Pos) syntax.Span {
	return syntax.Span{
		Start: r.fset.Position(from).Line,
		End:   r.fset.Position(to).Line,
	}
}
