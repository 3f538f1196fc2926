package paths

import (
	"gopkg.in/check.v1"

	"github.com/sut-sqrlab/more-coverage/internal/cfg"
)

func (s *Suite) Test_Path_Edges(c *check.C) {
	c.Check(path(0).Edges(), check.HasLen, 0)
	c.Check(path(0, 1, 0, 2).Edges(), check.DeepEquals,
		[]cfg.Edge{{From: 0, To: 1}, {From: 1, To: 0}, {From: 0, To: 2}})
}

func (s *Suite) Test_Path_Triples(c *check.C) {
	c.Check(path(0, 1).Triples(), check.HasLen, 0)
	c.Check(path(0, 1, 0, 2).Triples(), check.DeepEquals,
		[][3]cfg.NodeID{{0, 1, 0}, {1, 0, 2}})
}

func (s *Suite) Test_Path_Contains(c *check.C) {
	p := path(0, 1, 2, 1, 3)

	c.Check(p.Contains(path(1, 2, 1)), check.Equals, true)
	c.Check(p.Contains(path(1, 3)), check.Equals, true)
	c.Check(p.Contains(path(0, 1, 2, 1, 3)), check.Equals, true)
	c.Check(p.Contains(nil), check.Equals, true)

	c.Check(p.Contains(path(0, 2)), check.Equals, false)
	c.Check(p.Contains(path(3, 0)), check.Equals, false)
	c.Check(p.Contains(path(0, 1, 2, 1, 3, 4)), check.Equals, false)
}

func (s *Suite) Test_Path_SubsetOf(c *check.C) {
	c.Check(path(2, 0).SubsetOf(path(0, 1, 2)), check.Equals, true)
	c.Check(path(2, 3).SubsetOf(path(0, 1, 2)), check.Equals, false)
}

func (s *Suite) Test_Path_Extend(c *check.C) {
	p := make(Path, 2, 10)
	p[0], p[1] = 0, 1

	a := p.Extend(2)
	b := p.Extend(3)

	c.Check(a, check.DeepEquals, path(0, 1, 2))
	c.Check(b, check.DeepEquals, path(0, 1, 3))
}

func (s *Suite) Test_Path_Count(c *check.C) {
	p := path(0, 1, 0, 2)

	c.Check(p.Count(0), check.Equals, 2)
	c.Check(p.Count(5), check.Equals, 0)
	c.Check(p.Has(2), check.Equals, true)
	c.Check(p.HasEdge(1, 0), check.Equals, true)
	c.Check(p.HasEdge(0, 0), check.Equals, false)
}

func (s *Suite) Test_Path_String(c *check.C) {
	c.Check(path(0, 1, 0, 2).String(), check.Equals, "[0 1 0 2]")
	c.Check(path(0, 1).Equal(path(0, 1)), check.Equals, true)
	c.Check(path(0, 1).Equal(path(0)), check.Equals, false)
	c.Check(path(3, 4).Ints(), check.DeepEquals, []int{3, 4})
}
