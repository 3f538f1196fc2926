package cfg

import (
	"gopkg.in/check.v1"

	"github.com/sut-sqrlab/more-coverage/internal/syntax"
)

// A body without any branching becomes a single node.
func (s *Suite) Test_Build__straight_line(c *check.C) {
	g := Build(fn(
		simple(1, "a = 1"),
		simple(2, "b = 2"),
		simple(3, "c = a + b")))

	c.Check(g.Len(), check.Equals, 1)
	c.Check(g.Node(0).Label, check.Equals, "a = 1 ; b = 2 ; c = a + b")
	c.Check(g.Node(0).Lines, check.DeepEquals, []int{1, 2, 3})
	c.Check(g.Node(0).Kind, check.Equals, KindBlock)
	c.Check(edges(g), check.HasLen, 0)
	c.Check(g.Sources(), check.DeepEquals, ids(0))
	c.Check(g.Exits(), check.DeepEquals, ids(0))
}

func (s *Suite) Test_Build__empty_function(c *check.C) {
	g := Build(fn())

	c.Check(g.Len(), check.Equals, 0)
	c.Check(g.Sources(), check.HasLen, 0)
	c.Check(g.Sinks(), check.HasLen, 0)
	c.Check(g.Validate(), check.IsNil)
}

func (s *Suite) Test_Build__only_return(c *check.C) {
	g := Build(fn(ret(1, "return 0")))

	c.Check(g.Len(), check.Equals, 1)
	c.Check(g.Node(0).Kind, check.Equals, KindReturn)
	c.Check(g.Sources(), check.DeepEquals, ids(0))
	c.Check(g.Sinks(), check.DeepEquals, ids(0))
}

func (s *Suite) Test_Build__if_else(c *check.C) {
	g := Build(fn(
		&syntax.If{
			Cond: "x > 0",
			Pos:  span(1),
			Then: block(simple(2, "y = 1")),
			Else: block(simple(4, "y = 2")),
		}))

	c.Check(g.Len(), check.Equals, 3)
	c.Check(g.Node(0).Label, check.Equals, "if x > 0")
	c.Check(g.Node(1).Label, check.Equals, "y = 1")
	c.Check(g.Node(2).Label, check.Equals, "y = 2")
	c.Check(edges(g), check.DeepEquals, []Edge{{0, 1}, {0, 2}})
	c.Check(g.Predecessors(0), check.HasLen, 0)
	c.Check(g.Exits(), check.DeepEquals, ids(1, 2))
}

// Without an else block, the condition itself falls through to the
// following statement.
func (s *Suite) Test_Build__if_without_else(c *check.C) {
	g := Build(fn(
		simple(1, "y = 0"),
		&syntax.If{
			Cond: "x > 0",
			Pos:  span(2),
			Then: block(simple(3, "y = 1")),
		},
		ret(4, "return y")))

	c.Check(g.String(), check.Equals, ""+
		"0 block \"y = 0\" -> [1]\n"+
		"1 branch \"if x > 0\" -> [2 3]\n"+
		"2 block \"y = 1\" -> [3]\n"+
		"3 return \"return y\" -> []\n")
}

func (s *Suite) Test_Build__elif_chain(c *check.C) {
	g := Build(fn(
		&syntax.If{
			Cond: "x > 0",
			Pos:  span(1),
			Then: block(ret(2, "return 1")),
			Else: block(&syntax.If{
				Cond: "x < 0",
				Elif: true,
				Pos:  span(3),
				Then: block(ret(4, "return -1")),
				Else: block(ret(6, "return 0")),
			}),
		}))

	c.Check(g.String(), check.Equals, ""+
		"0 branch \"if x > 0\" -> [1 2]\n"+
		"1 return \"return 1\" -> []\n"+
		"2 branch \"elif x < 0\" -> [3 4]\n"+
		"3 return \"return -1\" -> []\n"+
		"4 return \"return 0\" -> []\n")
	c.Check(g.Sinks(), check.DeepEquals, ids(1, 3, 4))
}

func (s *Suite) Test_Build__while_loop(c *check.C) {
	g := Build(fn(
		&syntax.While{
			Cond: "i < n",
			Pos:  span(1),
			Body: block(
				simple(2, "total += i"),
				simple(3, "i += 1")),
		},
		ret(4, "return total")))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"while i < n\" -> [1 2]\n"+
		"1 block \"total += i ; i += 1\" -> [0^]\n"+
		"2 return \"return total\" -> []\n")
	c.Check(g.IsBackEdge(1, 0), check.Equals, true)
	c.Check(g.Sources(), check.DeepEquals, ids(0))
}

func (s *Suite) Test_Build__loop_with_empty_body(c *check.C) {
	g := Build(fn(
		&syntax.While{Cond: "poll()", Pos: span(1)},
		simple(2, "done()")))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"while poll()\" -> [1]\n"+
		"1 block \"done()\" -> []\n")
	c.Check(g.BackEdges(), check.HasLen, 0)
}

// A function that ends in a loop has no sink, but the loop header is
// where it may end.
func (s *Suite) Test_Build__trailing_loop(c *check.C) {
	g := Build(fn(
		&syntax.For{
			Target: "item",
			Iter:   "items",
			Pos:    span(1),
			Body:   block(simple(2, "print(item)")),
		}))

	c.Check(g.Node(0).Label, check.Equals, "for item in items")
	c.Check(g.Sinks(), check.HasLen, 0)
	c.Check(g.Exits(), check.DeepEquals, ids(0))
	c.Check(g.Sources(), check.DeepEquals, ids(0))
}

func (s *Suite) Test_Build__break_and_continue(c *check.C) {
	g := Build(fn(
		&syntax.While{
			Cond: "True",
			Pos:  span(1),
			Body: block(
				&syntax.If{
					Cond: "a",
					Pos:  span(2),
					Then: block(&syntax.Break{Source: "break", Pos: span(3)}),
				},
				&syntax.If{
					Cond: "b",
					Pos:  span(4),
					Then: block(&syntax.Continue{Source: "continue", Pos: span(5)}),
				},
				simple(6, "step()")),
		},
		ret(7, "return")))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"while True\" -> [1 6]\n"+
		"1 branch \"if a\" -> [2 3]\n"+
		"2 jump \"break\" -> [6]\n"+
		"3 branch \"if b\" -> [4 5]\n"+
		"4 jump \"continue\" -> [0^]\n"+
		"5 block \"step()\" -> [0^]\n"+
		"6 return \"return\" -> []\n")
}

// A continue in a loop with a post statement still runs the post
// statement, which then closes the loop.
func (s *Suite) Test_Build__loop_post_statement(c *check.C) {
	g := Build(fn(
		&syntax.While{
			Cond: "i < n",
			Pos:  span(1),
			Body: block(
				&syntax.If{
					Cond: "skip(i)",
					Pos:  span(2),
					Then: block(&syntax.Continue{Source: "continue", Pos: span(3)}),
				},
				simple(4, "s += i")),
			Post: simple(1, "i++"),
		},
		ret(6, "return s")))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"while i < n\" -> [1 5]\n"+
		"1 branch \"if skip(i)\" -> [2 3]\n"+
		"2 jump \"continue\" -> [4]\n"+
		"3 block \"s += i\" -> [4]\n"+
		"4 block \"i++\" -> [0^]\n"+
		"5 return \"return s\" -> []\n")
	c.Check(g.BackEdges(), check.DeepEquals, []Edge{{4, 0}})
}

func (s *Suite) Test_Build__loop_post_statement_empty_body(c *check.C) {
	g := Build(fn(
		&syntax.While{Cond: "i < n", Pos: span(1), Post: simple(1, "i++")},
		ret(2, "return i")))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"while i < n\" -> [1 2]\n"+
		"1 block \"i++\" -> [0^]\n"+
		"2 return \"return i\" -> []\n")
}

// If every iteration returns, the post statement never runs. Its line is
// the line of the loop header, which is not unreachable.
func (s *Suite) Test_Build__loop_post_statement_after_return(c *check.C) {
	g := Build(fn(
		&syntax.While{
			Cond: "i < len(xs)",
			Pos:  span(1),
			Body: block(ret(2, "return xs[i]")),
			Post: simple(1, "i++"),
		},
		ret(4, "return -1")))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"while i < len(xs)\" -> [1 2]\n"+
		"1 return \"return xs[i]\" -> []\n"+
		"2 return \"return -1\" -> []\n")
	c.Check(g.BackEdges(), check.HasLen, 0)
	c.Check(g.Unreachable, check.HasLen, 0)
}

// A break leaves the loop without running its else block.
func (s *Suite) Test_Build__loop_else_skipped_by_break(c *check.C) {
	g := Build(fn(
		&syntax.While{
			Cond: "x",
			Pos:  span(1),
			Body: block(
				&syntax.If{
					Cond: "found()",
					Pos:  span(2),
					Then: block(&syntax.Break{Source: "break", Pos: span(3)}),
				},
				simple(4, "x = step()")),
			Else: block(simple(6, "missing()")),
		},
		ret(7, "return")))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"while x\" -> [1 4]\n"+
		"1 branch \"if found()\" -> [2 3]\n"+
		"2 jump \"break\" -> [5]\n"+
		"3 block \"x = step()\" -> [0^]\n"+
		"4 block \"missing()\" -> [5]\n"+
		"5 return \"return\" -> []\n")
	c.Check(g.Predecessors(5), check.DeepEquals, ids(4, 2))
}

func (s *Suite) Test_Build__labeled_jumps(c *check.C) {
	inner := &syntax.For{
		Target: "y",
		Iter:   "ys",
		Pos:    span(2),
		Body: block(
			&syntax.If{
				Cond: "y == x",
				Pos:  span(3),
				Then: block(&syntax.Continue{Source: "continue outer", Label: "outer", Pos: span(4)}),
			},
			&syntax.Break{Source: "break outer", Label: "outer", Pos: span(5)}),
	}
	g := Build(fn(
		&syntax.For{Target: "x", Iter: "xs", Label: "outer", Pos: span(1), Body: block(inner)}))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"for x in xs\" -> [1]\n"+
		"1 loop \"for y in ys\" -> [2 0^]\n"+
		"2 branch \"if y == x\" -> [3 4]\n"+
		"3 jump \"continue outer\" -> [0^]\n"+
		"4 jump \"break outer\" -> []\n")
	c.Check(g.Exits(), check.DeepEquals, ids(0, 4))
}

// A jump outside of any loop cannot leave anything and is treated like
// any other statement.
func (s *Suite) Test_Build__jump_without_target(c *check.C) {
	g := Build(fn(
		simple(1, "x = 1"),
		&syntax.Break{Source: "break", Pos: span(2)},
		simple(3, "y = 2")))

	c.Check(g.Len(), check.Equals, 1)
	c.Check(g.Node(0).Label, check.Equals, "x = 1 ; break ; y = 2")
}

func (s *Suite) Test_Build__return_prunes_rest_of_block(c *check.C) {
	g := Build(fn(
		simple(1, "x = 1"),
		ret(2, "return x"),
		simple(3, "x = 2"),
		&syntax.If{Cond: "x", Pos: span(4), Then: block(simple(5, "y = 1"))}))

	c.Check(g.Len(), check.Equals, 2)
	c.Check(g.Successors(1), check.HasLen, 0)
	c.Check(g.Unreachable, check.DeepEquals, []int{3, 4, 5})
}

func (s *Suite) Test_Build__match(c *check.C) {
	g := Build(fn(
		&syntax.Match{
			Subject: "command",
			Pos:     span(1),
			Cases: []*syntax.Case{
				{Pattern: `"start"`, Pos: span(2), Body: block(simple(3, "start()"))},
				{Pattern: `"stop"`, Pos: span(4), Body: block(ret(5, "return"))},
				{Pattern: "_", Pos: span(6)},
			},
		},
		simple(7, "log()")))

	c.Check(g.String(), check.Equals, ""+
		"0 dispatch \"match command\" -> [1 3 5]\n"+
		"1 case \"case \\\"start\\\"\" -> [2]\n"+
		"2 block \"start()\" -> [6]\n"+
		"3 case \"case \\\"stop\\\"\" -> [4]\n"+
		"4 return \"return\" -> []\n"+
		"5 case \"case _\" -> [6]\n"+
		"6 merge \"end match\" -> [7]\n"+
		"7 block \"log()\" -> []\n")
	c.Check(g.Predecessors(6), check.DeepEquals, ids(2, 5))
	c.Check(g.Node(6).Lines, check.HasLen, 0)
}

// If no case continues, there is nothing to merge.
func (s *Suite) Test_Build__match_all_cases_return(c *check.C) {
	g := Build(fn(
		&syntax.Match{
			Subject: "x",
			Pos:     span(1),
			Cases: []*syntax.Case{
				{Pattern: "1", Pos: span(2), Body: block(ret(3, "return 'one'"))},
				{Pattern: "_", Pos: span(4), Body: block(ret(5, "return 'many'"))},
			},
		},
		simple(6, "unreachable()")))

	c.Check(g.Len(), check.Equals, 5)
	c.Check(g.Unreachable, check.DeepEquals, []int{6})
	for _, n := range g.Nodes() {
		c.Check(n.Kind, check.Not(check.Equals), KindMerge)
	}
}

func (s *Suite) Test_Build__breakable_match(c *check.C) {
	g := Build(fn(
		&syntax.While{
			Header: "for",
			Pos:    span(1),
			Body: block(
				&syntax.Match{
					Header:    "switch x",
					Breakable: true,
					Pos:       span(2),
					Cases: []*syntax.Case{
						{Header: "case 1:", Pos: span(3), Body: block(&syntax.Break{Source: "break", Pos: span(4)})},
					},
				}),
		}))

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"for\" -> [1]\n"+
		"1 dispatch \"switch x\" -> [2]\n"+
		"2 case \"case 1:\" -> [3]\n"+
		"3 jump \"break\" -> [4]\n"+
		"4 merge \"end switch\" -> [0^]\n")
}

func (s *Suite) Test_Build__try_except_finally(c *check.C) {
	g := Build(fn(
		&syntax.Try{
			Pos: span(1),
			Body: block(
				&syntax.If{
					Cond: "a",
					Pos:  span(2),
					Then: block(simple(3, "x = f()")),
					Else: block(simple(5, "x = g()")),
				}),
			Handlers: []*syntax.Handler{
				{Type: "ValueError", Name: "e", Pos: span(6), Body: block(simple(7, "x = None"))},
			},
			Finally:    block(simple(9, "cleanup()")),
			FinallyPos: span(8),
		},
		ret(10, "return x")))

	c.Check(g.String(), check.Equals, ""+
		"0 try \"try\" -> [1]\n"+
		"1 branch \"if a\" -> [2 3]\n"+
		"2 block \"x = f()\" -> [4]\n"+
		"3 block \"x = g()\" -> [4 6]\n"+
		"4 handler \"except ValueError as e\" -> [5]\n"+
		"5 block \"x = None\" -> [6]\n"+
		"6 finally \"finally\" -> [7]\n"+
		"7 block \"cleanup()\" -> [8]\n"+
		"8 return \"return x\" -> []\n")
	c.Check(g.Predecessors(4), check.DeepEquals, ids(2, 3))
	c.Check(g.Predecessors(6), check.DeepEquals, ids(3, 5))
}

func (s *Suite) Test_Build__try_without_finally(c *check.C) {
	g := Build(fn(
		&syntax.Try{
			Pos:  span(1),
			Body: block(simple(2, "x = int(s)")),
			Handlers: []*syntax.Handler{
				{Type: "ValueError", Pos: span(3), Body: block(simple(4, "x = 0"))},
				{Pos: span(5), Body: block(ret(6, "return -1"))},
			},
			Else: block(simple(8, "x += 1")),
		},
		ret(9, "return x")))

	c.Check(g.String(), check.Equals, ""+
		"0 try \"try\" -> [1]\n"+
		"1 block \"x = int(s)\" -> [2 4 6]\n"+
		"2 handler \"except ValueError\" -> [3]\n"+
		"3 block \"x = 0\" -> [7]\n"+
		"4 handler \"except\" -> [5]\n"+
		"5 return \"return -1\" -> []\n"+
		"6 block \"x += 1\" -> [7]\n"+
		"7 return \"return x\" -> []\n")
}

func (s *Suite) Test_Build__raise_in_try(c *check.C) {
	g := Build(fn(
		&syntax.Try{
			Pos: span(1),
			Body: block(
				&syntax.If{
					Cond: "bad",
					Pos:  span(2),
					Then: block(&syntax.Raise{Source: "raise ValueError()", Pos: span(3)}),
				},
				simple(4, "work()")),
			Handlers: []*syntax.Handler{
				{Type: "ValueError", Pos: span(5), Body: block(simple(6, "recover()"))},
			},
		}))

	c.Check(g.Successors(2), check.DeepEquals, ids(4))
	c.Check(g.Node(2).Kind, check.Equals, KindRaise)
	c.Check(g.Predecessors(4), check.DeepEquals, ids(3, 2))
}

// A try without handlers passes its raise statements on to the
// handlers of the enclosing try.
func (s *Suite) Test_Build__raise_in_nested_try_without_handlers(c *check.C) {
	inner := &syntax.Try{
		Pos: span(2),
		Body: block(
			&syntax.If{
				Cond: "bad",
				Pos:  span(3),
				Then: block(&syntax.Raise{Source: "raise E()", Pos: span(4)}),
			},
			simple(5, "work()")),
		Finally:    block(simple(7, "close()")),
		FinallyPos: span(6),
	}
	g := Build(fn(
		&syntax.Try{
			Pos:  span(1),
			Body: block(inner),
			Handlers: []*syntax.Handler{
				{Type: "E", Pos: span(8), Body: block(simple(9, "recover()"))},
			},
		}))

	c.Check(g.String(), check.Equals, ""+
		"0 try \"try\" -> [1]\n"+
		"1 try \"try\" -> [2]\n"+
		"2 branch \"if bad\" -> [3 4]\n"+
		"3 raise \"raise E()\" -> [7]\n"+
		"4 block \"work()\" -> [5]\n"+
		"5 finally \"finally\" -> [6]\n"+
		"6 block \"close()\" -> [7]\n"+
		"7 handler \"except E\" -> [8]\n"+
		"8 block \"recover()\" -> []\n")
	c.Check(g.Predecessors(7), check.DeepEquals, ids(6, 3))
}

// When the try body always returns, the handlers are entered from the
// try header, so that they are not cut off from the function entry.
func (s *Suite) Test_Build__try_body_returns(c *check.C) {
	g := Build(fn(
		&syntax.Try{
			Pos:  span(1),
			Body: block(ret(2, "return load()")),
			Handlers: []*syntax.Handler{
				{Type: "OSError", Pos: span(3), Body: block(ret(4, "return None"))},
			},
		}))

	c.Check(g.String(), check.Equals, ""+
		"0 try \"try\" -> [1 2]\n"+
		"1 return \"return load()\" -> []\n"+
		"2 handler \"except OSError\" -> [3]\n"+
		"3 return \"return None\" -> []\n")
	c.Check(g.Predecessors(2), check.DeepEquals, ids(0))
	c.Check(g.Sources(), check.DeepEquals, ids(0))
}

// A finally block that no path reaches is not built.
func (s *Suite) Test_Build__finally_without_incoming_flow(c *check.C) {
	g := Build(fn(
		&syntax.Try{
			Pos:  span(1),
			Body: block(ret(2, "return 1")),
			Handlers: []*syntax.Handler{
				{Pos: span(3), Body: block(ret(4, "return 2"))},
			},
			Finally:    block(simple(6, "log()")),
			FinallyPos: span(5),
		},
		simple(7, "after()")))

	c.Check(g.String(), check.Equals, ""+
		"0 try \"try\" -> [1 2]\n"+
		"1 return \"return 1\" -> []\n"+
		"2 handler \"except\" -> [3]\n"+
		"3 return \"return 2\" -> []\n")
	c.Check(g.Unreachable, check.DeepEquals, []int{5, 6, 7})
}

func (s *Suite) Test_Build__raise_outside_try(c *check.C) {
	g := Build(fn(
		&syntax.If{
			Cond: "bad",
			Pos:  span(1),
			Then: block(&syntax.Raise{Source: "raise ValueError()", Pos: span(2)}),
		},
		simple(3, "work()")))

	c.Check(g.Sinks(), check.DeepEquals, ids(1, 2))
}

// Malformed statements still produce a node with the bare keyword.
func (s *Suite) Test_Build__placeholder_labels(c *check.C) {
	g := Build(fn(
		&syntax.If{Pos: span(1), Then: block(simple(2, "a()"))},
		&syntax.For{Target: "x", Pos: span(3), Body: block(simple(4, "b()"))},
		&syntax.While{Pos: span(5), Body: block(simple(6, "c()"))},
		&syntax.Match{Pos: span(7), Cases: []*syntax.Case{{Pos: span(8)}}}))

	var labels []string
	for _, n := range g.Nodes() {
		labels = append(labels, n.Label)
	}
	c.Check(labels, check.DeepEquals, []string{
		"if", "a()", "for", "b()", "while", "c()", "match", "case", "end match"})
}

func (s *Suite) Test_Build__deterministic(c *check.C) {
	f := fn(
		simple(1, "n = 0"),
		&syntax.For{
			Target: "x",
			Iter:   "xs",
			Pos:    span(2),
			Body: block(&syntax.If{
				Cond: "x",
				Pos:  span(3),
				Then: block(simple(4, "n += 1")),
			}),
		},
		ret(5, "return n"))

	g1 := Build(f)
	g2 := Build(f)

	c.Check(g1.String(), check.Equals, g2.String())
	c.Check(g1.Edges(), check.DeepEquals, g2.Edges())
	c.Check(g1.Validate(), check.IsNil)
}
