package syntax

import "sort"

// Walk calls visit for each statement in stmts, depth-first and in source
// order. If visit returns false, the children of that statement are skipped.
func Walk(stmts []Stmt, visit func(Stmt) bool) {
	for _, stmt := range stmts {
		if !visit(stmt) {
			continue
		}
		switch stmt := stmt.(type) {
		case *If:
			Walk(stmt.Then, visit)
			Walk(stmt.Else, visit)
		case *While:
			Walk(stmt.Body, visit)
			if stmt.Post != nil {
				Walk([]Stmt{stmt.Post}, visit)
			}
			Walk(stmt.Else, visit)
		case *For:
			Walk(stmt.Body, visit)
			Walk(stmt.Else, visit)
		case *Match:
			for _, c := range stmt.Cases {
				Walk(c.Body, visit)
			}
		case *Try:
			Walk(stmt.Body, visit)
			for _, h := range stmt.Handlers {
				Walk(h.Body, visit)
			}
			Walk(stmt.Else, visit)
			Walk(stmt.Finally, visit)
		}
	}
}

// Lines returns the sorted set of header lines of all statements in
// stmts, including those of nested blocks, cases and handlers.
func Lines(stmts []Stmt) []int {
	seen := map[int]bool{}
	add := func(span Span) {
		for _, line := range span.Lines() {
			seen[line] = true
		}
	}
	Walk(stmts, func(stmt Stmt) bool {
		add(stmt.Span())
		switch stmt := stmt.(type) {
		case *Match:
			for _, c := range stmt.Cases {
				add(c.Pos)
			}
		case *Try:
			for _, h := range stmt.Handlers {
				add(h.Pos)
			}
			add(stmt.FinallyPos)
		}
		return true
	})

	lines := make([]int, 0, len(seen))
	for line := range seen {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}

// Count returns the number of statements in stmts, nested ones included.
func Count(stmts []Stmt) int {
	n := 0
	Walk(stmts, func(Stmt) bool { n++; return true })
	return n
}
