// Package syntax defines the statement tree of a single function body,
// as handed over by a language frontend.
//
// The tree is a closed set of statement kinds. Every kind carries the
// source text and the line span of its header; compound kinds carry
// their child blocks.
package syntax

import "fmt"

// Kind is the tag of a statement.
type Kind int

const (
	KindSimple Kind = iota
	KindOther
	KindIf
	KindWhile
	KindFor
	KindMatch
	KindTry
	KindReturn
	KindBreak
	KindContinue
	KindRaise
)

var kindNames = [...]string{
	KindSimple:   "simple",
	KindOther:    "other",
	KindIf:       "if",
	KindWhile:    "while",
	KindFor:      "for",
	KindMatch:    "match",
	KindTry:      "try",
	KindReturn:   "return",
	KindBreak:    "break",
	KindContinue: "continue",
	KindRaise:    "raise",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Span is an inclusive range of 1-based source lines.
type Span struct {
	Start int
	End   int
}

// Lines returns every line in the span, or nil for the zero span.
func (s Span) Lines() []int {
	if s.Start <= 0 {
		return nil
	}
	end := s.End
	if end < s.Start {
		end = s.Start
	}
	lines := make([]int, 0, end-s.Start+1)
	for line := s.Start; line <= end; line++ {
		lines = append(lines, line)
	}
	return lines
}

func (s Span) String() string {
	if s.End <= s.Start {
		return fmt.Sprintf("%d", s.Start)
	}
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Stmt is a statement of a function body.
type Stmt interface {
	Kind() Kind
	Text() string
	Span() Span
	stmt()
}

// Func is the body of a single function, together with where it comes from.
type Func struct {
	Name string
	File string
	Pos  Span
	Body []Stmt
}

// Simple is a straight-line statement, such as an assignment or a call.
type Simple struct {
	Source string
	Pos    Span
}

// Other is a statement the frontend does not know more about.
// It is treated like a straight-line statement.
type Other struct {
	Source string
	Pos    Span
}

// If is a conditional, possibly with an else block.
// An elif chain is an If whose Else holds a single If with Elif set.
type If struct {
	Header string
	Cond   string
	Elif   bool
	Pos    Span
	Then   []Stmt
	Else   []Stmt
}

// While is a condition-controlled loop.
//
// Post, if set, runs after each iteration of the body, including those
// ended by continue, and before the condition is evaluated again.
type While struct {
	Header string
	Cond   string
	Label  string
	Pos    Span
	Body   []Stmt
	Post   Stmt
	Else   []Stmt
}

// For is an iteration over the elements of Iter, binding Target.
type For struct {
	Header string
	Target string
	Iter   string
	Label  string
	Pos    Span
	Body   []Stmt
	Else   []Stmt
}

// Match dispatches to one of its cases.
//
// In a Breakable match, an unlabeled break leaves the match instead of
// the enclosing loop, as in the switch statement of Go.
type Match struct {
	Header    string
	Subject   string
	Breakable bool
	Label     string
	Pos       Span
	Cases     []*Case
}

// Case is a single arm of a Match.
type Case struct {
	Header  string
	Pattern string
	Guard   string
	Pos     Span
	Body    []Stmt
}

// Try is an exception handling construct.
type Try struct {
	Header     string
	Pos        Span
	Body       []Stmt
	Handlers   []*Handler
	Else       []Stmt
	Finally    []Stmt
	FinallyPos Span
}

// Handler is one except clause of a Try.
type Handler struct {
	Header string
	Type   string
	Name   string
	Pos    Span
	Body   []Stmt
}

// Return ends the function.
type Return struct {
	Source string
	Pos    Span
}

// Break leaves the innermost loop, or the loop with the given label.
type Break struct {
	Source string
	Label  string
	Pos    Span
}

// Continue starts the next iteration of the innermost or labeled loop.
type Continue struct {
	Source string
	Label  string
	Pos    Span
}

// Raise ends the current flow by raising an exception.
type Raise struct {
	Source string
	Pos    Span
}

func (*Simple) Kind() Kind   { return KindSimple }
func (*Other) Kind() Kind    { return KindOther }
func (*If) Kind() Kind       { return KindIf }
func (*While) Kind() Kind    { return KindWhile }
func (*For) Kind() Kind      { return KindFor }
func (*Match) Kind() Kind    { return KindMatch }
func (*Try) Kind() Kind      { return KindTry }
func (*Return) Kind() Kind   { return KindReturn }
func (*Break) Kind() Kind    { return KindBreak }
func (*Continue) Kind() Kind { return KindContinue }
func (*Raise) Kind() Kind    { return KindRaise }

func (s *Simple) Text() string   { return s.Source }
func (s *Other) Text() string    { return s.Source }
func (s *If) Text() string       { return s.label() }
func (s *While) Text() string    { return s.label() }
func (s *For) Text() string      { return s.label() }
func (s *Match) Text() string    { return s.label() }
func (s *Try) Text() string      { return orDefault(s.Header, "try") }
func (s *Return) Text() string   { return orDefault(s.Source, "return") }
func (s *Break) Text() string    { return orDefault(s.Source, "break") }
func (s *Continue) Text() string { return orDefault(s.Source, "continue") }
func (s *Raise) Text() string    { return orDefault(s.Source, "raise") }

func (s *Simple) Span() Span   { return s.Pos }
func (s *Other) Span() Span    { return s.Pos }
func (s *If) Span() Span       { return s.Pos }
func (s *While) Span() Span    { return s.Pos }
func (s *For) Span() Span      { return s.Pos }
func (s *Match) Span() Span    { return s.Pos }
func (s *Try) Span() Span      { return s.Pos }
func (s *Return) Span() Span   { return s.Pos }
func (s *Break) Span() Span    { return s.Pos }
func (s *Continue) Span() Span { return s.Pos }
func (s *Raise) Span() Span    { return s.Pos }

func (*Simple) stmt()   {}
func (*Other) stmt()    {}
func (*If) stmt()       {}
func (*While) stmt()    {}
func (*For) stmt()      {}
func (*Match) stmt()    {}
func (*Try) stmt()      {}
func (*Return) stmt()   {}
func (*Break) stmt()    {}
func (*Continue) stmt() {}
func (*Raise) stmt()    {}

// The labels below substitute the bare keyword for missing parts,
// so that a malformed statement still yields a usable flow node.

func (s *If) label() string {
	if s.Header != "" {
		return s.Header
	}
	keyword := "if"
	if s.Elif {
		keyword = "elif"
	}
	return joinNonEmpty(keyword, s.Cond)
}

func (s *While) label() string {
	if s.Header != "" {
		return s.Header
	}
	return joinNonEmpty("while", s.Cond)
}

func (s *For) label() string {
	if s.Header != "" {
		return s.Header
	}
	if s.Target == "" || s.Iter == "" {
		return "for"
	}
	return "for " + s.Target + " in " + s.Iter
}

func (s *Match) label() string {
	if s.Header != "" {
		return s.Header
	}
	return joinNonEmpty("match", s.Subject)
}

// Text returns the label of the case entry.
func (c *Case) Text() string {
	if c.Header != "" {
		return c.Header
	}
	text := joinNonEmpty("case", c.Pattern)
	if c.Guard != "" {
		text += " if " + c.Guard
	}
	return text
}

// Text returns the label of the handler entry.
func (h *Handler) Text() string {
	if h.Header != "" {
		return h.Header
	}
	text := joinNonEmpty("except", h.Type)
	if h.Type != "" && h.Name != "" {
		text += " as " + h.Name
	}
	return text
}

func joinNonEmpty(keyword, rest string) string {
	if rest == "" {
		return keyword
	}
	return keyword + " " + rest
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
