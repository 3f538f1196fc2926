package cfg

import (
	"gopkg.in/check.v1"
)

func (s *Suite) Test_Graph_AddEdge__idempotent(c *check.C) {
	g := New("f")
	a := g.NewNode(KindBlock, "a", []int{1}, nil)
	b := g.NewNode(KindBlock, "b", []int{2}, nil)

	c.Check(g.AddEdge(a.ID, b.ID), check.Equals, true)
	c.Check(g.AddEdge(a.ID, b.ID), check.Equals, false)

	c.Check(g.Edges(), check.DeepEquals, []Edge{{0, 1}})
	c.Check(g.Successors(a.ID), check.DeepEquals, ids(1))
	c.Check(g.Predecessors(b.ID), check.DeepEquals, ids(0))
}

func (s *Suite) Test_Graph_Successors__insertion_order(c *check.C) {
	g := New("f")
	for i := 0; i < 4; i++ {
		g.NewNode(KindBlock, "n", nil, nil)
	}
	g.AddEdge(0, 3)
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(2, 3)

	c.Check(g.Successors(0), check.DeepEquals, ids(3, 1, 2))
	c.Check(g.Predecessors(3), check.DeepEquals, ids(0, 2))
}

// Appending to a neighbor list does not share memory with the graph.
func (s *Suite) Test_Graph_Successors__append_copies(c *check.C) {
	g := New("f")
	for i := 0; i < 5; i++ {
		g.NewNode(KindBlock, "n", nil, nil)
	}
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(0, 3)
	g.AddEdge(1, 4)
	g.AddEdge(2, 4)
	g.AddEdge(3, 4)

	succ := append(g.Successors(0), 0)
	pred := append(g.Predecessors(4), 4)
	g.AddEdge(0, 4)

	c.Check(succ, check.DeepEquals, ids(1, 2, 3, 0))
	c.Check(pred, check.DeepEquals, ids(1, 2, 3, 4))
	c.Check(g.Successors(0), check.DeepEquals, ids(1, 2, 3, 4))
	c.Check(g.Predecessors(4), check.DeepEquals, ids(1, 2, 3, 0))
	c.Check(g.HasEdge(0, 0), check.Equals, false)
}

// Asking for a node that is not part of the graph is not an error.
func (s *Suite) Test_Graph_Successors__missing_node(c *check.C) {
	g := New("f")

	c.Check(g.Successors(17), check.HasLen, 0)
	c.Check(g.Predecessors(-1), check.HasLen, 0)
	c.Check(g.Node(17), check.IsNil)
	c.Check(g.Index(17), check.Equals, -1)
	c.Check(g.IsExit(17), check.Equals, false)
}

func (s *Suite) Test_Graph_NewNode__lines_normalized(c *check.C) {
	g := New("f")
	n := g.NewNode(KindBlock, "a ; b", []int{5, 3, 5, 4}, nil)

	c.Check(n.Lines, check.DeepEquals, []int{3, 4, 5})
	c.Check(n.String(), check.Equals, "0:a ; b")
}

func (s *Suite) Test_Graph_Sources__back_edges_ignored(c *check.C) {
	g := New("f")
	h := g.NewNode(KindLoop, "while x", []int{1}, nil)
	b := g.NewNode(KindBlock, "x -= 1", []int{2}, nil)
	g.AddEdge(h.ID, b.ID)
	g.AddBackEdge(b.ID, h.ID)
	g.MarkExit(h.ID)

	c.Check(g.Sources(), check.DeepEquals, ids(0))
	c.Check(g.Sinks(), check.HasLen, 0)
	c.Check(g.Exits(), check.DeepEquals, ids(0))
	c.Check(g.IsBackEdge(b.ID, h.ID), check.Equals, true)
	c.Check(g.IsBackEdge(h.ID, b.ID), check.Equals, false)
	c.Check(g.IsPositionalBackEdge(b.ID, h.ID), check.Equals, true)
	c.Check(g.BackEdges(), check.DeepEquals, []Edge{{1, 0}})
}

func (s *Suite) Test_Graph_Validate(c *check.C) {
	g := New("f")
	g.NewNode(KindBlock, "a", nil, nil)
	c.Check(g.Validate(), check.IsNil)

	g.AddEdge(0, 5)
	c.Check(g.Validate(), check.ErrorMatches, `edge \(0,5\) refers to a missing node`)

	h := New("h")
	h.AddNode(&Node{ID: 3, Label: "x"})
	c.Check(h.Validate(), check.ErrorMatches, `node "x" at index 0 has id 3`)
}

func (s *Suite) Test_Graph_Lines(c *check.C) {
	g := New("f")
	g.NewNode(KindBlock, "a", []int{4, 5}, nil)
	g.NewNode(KindMerge, "end match", nil, nil)
	g.NewNode(KindBlock, "b", []int{2, 4}, nil)

	c.Check(g.Lines(ids(0, 1, 2, 9)), check.DeepEquals, []int{2, 4, 5})
}

func (s *Suite) Test_Graph_String(c *check.C) {
	g := New("f")
	g.NewNode(KindLoop, "while x", []int{1}, nil)
	g.NewNode(KindBlock, "x -= 1", []int{2}, nil)
	g.AddEdge(0, 1)
	g.AddBackEdge(1, 0)

	c.Check(g.String(), check.Equals, ""+
		"0 loop \"while x\" -> [1]\n"+
		"1 block \"x -= 1\" -> [0^]\n")
}
