package serial

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"
)

// edge is one reference from record from to record to
type edge struct {
	from, to int
	weak     bool
}

// refGraph holds the strong ordering constraints between records. Edges are
// aggregated per (from, to) pair: a pair joined by any weak reference field
// imposes no ordering, every other pair requires to be populated before from.
// A strong reference from a record to itself is always kept.
type refGraph struct {
	n      int
	strong [][]int
}

func newRefGraph(n int, edges []edge) *refGraph {
	type pair struct{ from, to int }
	weak := make(map[pair]bool)
	strong := make(map[pair]bool)
	var order []pair
	for _, e := range edges {
		p := pair{e.from, e.to}
		if !weak[p] && !strong[p] {
			order = append(order, p)
		}
		if e.weak {
			weak[p] = true
		} else {
			strong[p] = true
		}
	}

	g := &refGraph{n: n, strong: make([][]int, n)}
	for _, p := range order {
		if strong[p] && (!weak[p] || p.from == p.to) {
			g.strong[p.from] = append(g.strong[p.from], p.to)
		}
	}
	for i := range g.strong {
		sort.Ints(g.strong[i])
	}
	return g
}

// detectCycles returns the first strong cycle reachable from each unvisited node
func (g *refGraph) detectCycles() [][]int {
	var cycles [][]int
	visited := make([]bool, g.n)
	onStack := make([]bool, g.n)

	var dfs func(node int, path []int) bool
	dfs = func(node int, path []int) bool {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, next := range g.strong[node] {
			if !visited[next] {
				if dfs(next, path) {
					return true
				}
			} else if onStack[next] {
				// Found cycle
				for i, n := range path {
					if n == next {
						cycle := make([]int, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
				return true
			}
		}

		onStack[node] = false
		return false
	}

	for node := 0; node < g.n; node++ {
		if !visited[node] {
			dfs(node, nil)
		}
	}
	return cycles
}

// topologicalSort returns the population order: every record comes after
// the targets of its strong references. Ties go to the lower index.
func (g *refGraph) topologicalSort() ([]int, error) {
	// Out-degree: records with no strong references are ready first
	outDegree := make([]int, g.n)
	reverse := make([][]int, g.n)
	for from, targets := range g.strong {
		outDegree[from] = len(targets)
		for _, to := range targets {
			reverse[to] = append(reverse[to], from)
		}
	}

	ready := &intHeap{}
	for node := 0; node < g.n; node++ {
		if outDegree[node] == 0 {
			heap.Push(ready, node)
		}
	}

	result := make([]int, 0, g.n)
	for ready.Len() > 0 {
		node := heap.Pop(ready).(int)
		result = append(result, node)

		for _, dependent := range reverse[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				heap.Push(ready, dependent)
			}
		}
	}

	if len(result) != g.n {
		if cycles := g.detectCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("%w:\n%s", ErrCircularStrongReference, formatCycles(cycles, nil))
		}
		return nil, ErrCircularStrongReference
	}
	return result, nil
}

// formatCycles formats cycle information for error messages. name labels a
// record; nil prints bare indexes.
func formatCycles(cycles [][]int, name func(int) string) string {
	if name == nil {
		name = func(i int) string { return fmt.Sprintf("#%d", i) }
	}
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		parts := make([]string, len(cycle))
		for j, n := range cycle {
			parts[j] = name(n)
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s -> %s",
			i+1,
			strings.Join(parts, " -> "),
			parts[0])) // Complete the cycle
	}
	return b.String()
}

// intHeap is a min-heap of record indexes
type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }

func (h *intHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
