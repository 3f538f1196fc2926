package cfg

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/sut-sqrlab/more-coverage/internal/syntax"
)

// frontier lists the nodes whose outgoing edges are not yet attached.
type frontier []NodeID

// join returns f followed by those nodes of other that are not yet in f.
func (f frontier) join(other frontier) frontier {
	out := append(frontier(nil), f...)
	for _, id := range other {
		if !out.contains(id) {
			out = append(out, id)
		}
	}
	return out
}

func (f frontier) contains(id NodeID) bool {
	for _, x := range f {
		if x == id {
			return true
		}
	}
	return false
}

// jumpScope is a statement that break or continue can refer to.
//
// In a loop with a post statement, continue leads to the post statement,
// so those jumps are collected until it is built.
type jumpScope struct {
	label     string
	header    NodeID
	loop      bool
	post      bool
	breaks    frontier
	continues frontier
}

// tryScope collects the raise statements of a try body.
type tryScope struct {
	raises []NodeID
}

// Builder translates the statement tree of a function into a Graph.
//
// The frontier is passed into and returned from each construction step;
// the graph under construction is the only shared state.
type Builder struct {
	log zerolog.Logger

	g     *Graph
	jumps []*jumpScope
	tries []*tryScope
}

// NewBuilder returns a builder that logs its diagnostics to log.
func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log}
}

// Build returns the flow graph of fn.
func Build(fn *syntax.Func) *Graph {
	return NewBuilder(zerolog.Nop()).Build(fn)
}

// Build returns the flow graph of fn. The builder can be reused.
func (b *Builder) Build(fn *syntax.Func) *Graph {
	b.g = New(fn.Name)
	b.jumps = nil
	b.tries = nil

	for _, id := range b.block(fn.Body, nil) {
		b.g.MarkExit(id)
	}

	g := b.g
	b.g = nil
	b.log.Debug().
		Str("func", fn.Name).
		Int("nodes", g.Len()).
		Int("edges", len(g.Edges())).
		Msg("built flow graph")
	return g
}

func (b *Builder) block(stmts []syntax.Stmt, in frontier) frontier {
	cur := in
	var run []syntax.Stmt

	flush := func() {
		if len(run) > 0 {
			cur = b.straight(run, cur)
			run = nil
		}
	}

	for i, stmt := range stmts {
		if b.isPlain(stmt) {
			run = append(run, stmt)
			continue
		}

		flush()
		cur = b.stmt(stmt, cur)

		if len(cur) == 0 && i+1 < len(stmts) {
			b.unreachable(stmts[i+1:])
			return cur
		}
	}
	flush()
	return cur
}

// isPlain tells whether stmt belongs to a straight-line run.
// A jump without a target degrades to a plain statement.
func (b *Builder) isPlain(stmt syntax.Stmt) bool {
	switch stmt := stmt.(type) {
	case *syntax.Simple, *syntax.Other:
		return true
	case *syntax.Break:
		return b.breakTarget(stmt.Label) == nil
	case *syntax.Continue:
		return b.continueTarget(stmt.Label) == nil
	}
	return false
}

func (b *Builder) stmt(stmt syntax.Stmt, in frontier) frontier {
	switch s := stmt.(type) {
	case *syntax.If:
		return b.ifStmt(s, in)
	case *syntax.While:
		return b.loop(s, s.Label, s.Body, s.Post, s.Else, in)
	case *syntax.For:
		return b.loop(s, s.Label, s.Body, nil, s.Else, in)
	case *syntax.Match:
		return b.match(s, in)
	case *syntax.Try:
		return b.try(s, in)
	case *syntax.Return:
		b.node(KindReturn, s.Text(), s.Pos.Lines(), s, in)
		return nil
	case *syntax.Raise:
		return b.raise(s, in)
	case *syntax.Break:
		return b.breakStmt(s, in)
	case *syntax.Continue:
		return b.continueStmt(s, in)
	}
	return b.straight([]syntax.Stmt{stmt}, in)
}

// straight creates a single node for a run of straight-line statements.
func (b *Builder) straight(run []syntax.Stmt, in frontier) frontier {
	texts := make([]string, len(run))
	var lines []int
	for i, stmt := range run {
		texts[i] = stmt.Text()
		lines = append(lines, stmt.Span().Lines()...)
	}
	n := b.node(KindBlock, strings.Join(texts, " ; "), lines, run[0], in)
	return frontier{n.ID}
}

func (b *Builder) ifStmt(s *syntax.If, in frontier) frontier {
	cond := b.node(KindBranch, s.Text(), s.Pos.Lines(), s, in)
	entry := frontier{cond.ID}

	out := b.block(s.Then, entry)
	if len(s.Else) > 0 {
		return out.join(b.block(s.Else, entry))
	}
	return out.join(entry)
}

func (b *Builder) loop(s syntax.Stmt, label string, body []syntax.Stmt, post syntax.Stmt, els []syntax.Stmt, in frontier) frontier {
	header := b.node(KindLoop, s.Text(), s.Span().Lines(), s, in)

	scope := &jumpScope{label: label, header: header.ID, loop: true, post: post != nil}
	b.jumps = append(b.jumps, scope)
	latch := frontier{header.ID}
	if len(body) > 0 {
		latch = b.block(body, latch)
	}
	b.jumps = b.jumps[:len(b.jumps)-1]

	// A post statement that no iteration reaches is not built. Its lines
	// belong to the loop header, which does run.
	if post != nil {
		latch = latch.join(scope.continues)
		if len(latch) > 0 {
			n := b.node(KindBlock, post.Text(), post.Span().Lines(), post, latch)
			latch = frontier{n.ID}
		}
	}
	for _, id := range latch {
		if id != header.ID {
			b.g.AddBackEdge(id, header.ID)
		}
	}

	out := frontier{header.ID}
	if len(els) > 0 {
		out = b.block(els, out)
	}
	return out.join(scope.breaks)
}

func (b *Builder) match(s *syntax.Match, in frontier) frontier {
	dispatch := b.node(KindDispatch, s.Text(), s.Pos.Lines(), s, in)
	if len(s.Cases) == 0 {
		return frontier{dispatch.ID}
	}

	var scope *jumpScope
	if s.Breakable {
		scope = &jumpScope{label: s.Label, header: dispatch.ID}
		b.jumps = append(b.jumps, scope)
	}

	var exits frontier
	for _, c := range s.Cases {
		entry := b.node(KindCase, c.Text(), c.Pos.Lines(), s, frontier{dispatch.ID})
		exits = exits.join(b.block(c.Body, frontier{entry.ID}))
	}

	if scope != nil {
		b.jumps = b.jumps[:len(b.jumps)-1]
		exits = exits.join(scope.breaks)
	}

	if len(exits) == 0 {
		return nil
	}
	keyword := "match"
	if fields := strings.Fields(dispatch.Label); len(fields) > 0 {
		keyword = fields[0]
	}
	merge := b.node(KindMerge, "end "+keyword, nil, s, exits)
	return frontier{merge.ID}
}

func (b *Builder) try(s *syntax.Try, in frontier) frontier {
	header := b.node(KindTry, s.Text(), s.Pos.Lines(), s, in)

	scope := &tryScope{}
	b.tries = append(b.tries, scope)
	body := b.block(s.Body, frontier{header.ID})
	b.tries = b.tries[:len(b.tries)-1]

	if len(s.Handlers) == 0 && len(b.tries) > 0 {
		outer := b.tries[len(b.tries)-1]
		outer.raises = append(outer.raises, scope.raises...)
	}

	// Any statement of the try body may raise, so every exit of the
	// body can reach every handler.
	raisers := body
	if len(raisers) == 0 {
		raisers = frontier{header.ID}
	}
	var handlerExits frontier
	for _, h := range s.Handlers {
		entry := b.node(KindHandler, h.Text(), h.Pos.Lines(), s, raisers)
		for _, r := range scope.raises {
			b.g.AddEdge(r, entry.ID)
		}
		handlerExits = handlerExits.join(b.block(h.Body, frontier{entry.ID}))
	}

	normal := body
	if len(s.Else) > 0 {
		if len(body) > 0 {
			normal = b.block(s.Else, body)
		} else {
			b.unreachable(s.Else)
		}
	}

	if len(s.Finally) == 0 {
		return normal.join(handlerExits)
	}

	// The finally block runs once after the try path completes or
	// after any handler completes.
	var feed frontier
	if len(normal) > 0 {
		feed = frontier{normal[len(normal)-1]}
	}
	feed = feed.join(handlerExits)
	if len(feed) == 0 {
		b.unreachable(s.Finally)
		b.g.Unreachable = normalizeLines(append(b.g.Unreachable, s.FinallyPos.Lines()...))
		return nil
	}
	fin := b.node(KindFinally, "finally", s.FinallyPos.Lines(), s, feed)
	return b.block(s.Finally, frontier{fin.ID})
}

func (b *Builder) raise(s *syntax.Raise, in frontier) frontier {
	n := b.node(KindRaise, s.Text(), s.Pos.Lines(), s, in)
	if len(b.tries) > 0 {
		scope := b.tries[len(b.tries)-1]
		scope.raises = append(scope.raises, n.ID)
	}
	return nil
}

func (b *Builder) breakStmt(s *syntax.Break, in frontier) frontier {
	scope := b.breakTarget(s.Label)
	n := b.node(KindJump, s.Text(), s.Pos.Lines(), s, in)
	scope.breaks = append(scope.breaks, n.ID)
	return nil
}

func (b *Builder) continueStmt(s *syntax.Continue, in frontier) frontier {
	scope := b.continueTarget(s.Label)
	n := b.node(KindJump, s.Text(), s.Pos.Lines(), s, in)
	if scope.post {
		scope.continues = append(scope.continues, n.ID)
	} else {
		b.g.AddBackEdge(n.ID, scope.header)
	}
	return nil
}

func (b *Builder) breakTarget(label string) *jumpScope {
	for i := len(b.jumps) - 1; i >= 0; i-- {
		scope := b.jumps[i]
		if label == "" || scope.label == label {
			return scope
		}
	}
	return nil
}

func (b *Builder) continueTarget(label string) *jumpScope {
	for i := len(b.jumps) - 1; i >= 0; i-- {
		scope := b.jumps[i]
		if scope.loop && (label == "" || scope.label == label) {
			return scope
		}
	}
	return nil
}

// node creates a node and wires every node of the frontier to it.
func (b *Builder) node(kind NodeKind, label string, lines []int, origin syntax.Stmt, in frontier) *Node {
	n := b.g.NewNode(kind, label, lines, origin)
	for _, id := range in {
		b.g.AddEdge(id, n.ID)
	}
	return n
}

func (b *Builder) unreachable(stmts []syntax.Stmt) {
	lines := syntax.Lines(stmts)
	if len(lines) == 0 {
		return
	}
	b.g.Unreachable = normalizeLines(append(b.g.Unreachable, lines...))
	b.log.Debug().
		Str("func", b.g.Name).
		Ints("lines", lines).
		Msg("unreachable statements")
}
