package planner

import (
	"container/heap"

	"github.com/satishbabariya/prisma-schemadiff/internal/debug"
)

// phase is the coarse position of a step kind in a plan
type phase int

const (
	phaseDropForeignKeys phase = iota
	phaseDropIndexes
	phaseAlterEnums
	phaseCreateEnums
	phaseDropTables
	phaseCreateTables
	phaseRedefineTables
	phaseColumns
	phaseCreateIndexes
	phaseCreateForeignKeys
	phaseDropEnums
)

// priority orders ready steps: phase first, then declaration order of the
// owning entity, then position within it
type priority struct {
	phase phase
	major int
	minor int
}

func (p priority) less(o priority) bool {
	if p.phase != o.phase {
		return p.phase < o.phase
	}
	if p.major != o.major {
		return p.major < o.major
	}
	return p.minor < o.minor
}

type node struct {
	step Step
	prio priority
	seq  int
}

func (n *node) before(o *node) bool {
	if n.prio != o.prio {
		return n.prio.less(o.prio)
	}
	return n.seq < o.seq
}

// stepGraph is a dependency graph; an edge a -> b means a runs before b
type stepGraph struct {
	nodes []*node
	out   [][]int
	indeg []int
	seen  map[[2]int]bool
}

func newStepGraph() *stepGraph {
	return &stepGraph{seen: map[[2]int]bool{}}
}

func (g *stepGraph) add(step Step, prio priority) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, &node{step: step, prio: prio, seq: id})
	g.out = append(g.out, nil)
	g.indeg = append(g.indeg, 0)
	return id
}

func (g *stepGraph) edge(from, to int) {
	if from == to || g.seen[[2]int{from, to}] {
		return
	}
	g.seen[[2]int{from, to}] = true
	g.out[from] = append(g.out[from], to)
	g.indeg[to]++
}

// readyQueue is a min-heap of node ids
type readyQueue struct {
	ids   []int
	nodes []*node
}

func (q *readyQueue) Len() int           { return len(q.ids) }
func (q *readyQueue) Less(i, j int) bool { return q.nodes[q.ids[i]].before(q.nodes[q.ids[j]]) }
func (q *readyQueue) Swap(i, j int)      { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] }
func (q *readyQueue) Push(x any)         { q.ids = append(q.ids, x.(int)) }
func (q *readyQueue) Pop() any {
	old := q.ids
	n := len(old)
	x := old[n-1]
	q.ids = old[:n-1]
	return x
}

// sort runs Kahn's algorithm, always taking the highest priority ready
// step. If only blocked steps remain, the highest priority one among them
// is released to break the cycle.
func (g *stepGraph) sort() []Step {
	indeg := append([]int(nil), g.indeg...)
	done := make([]bool, len(g.nodes))
	q := &readyQueue{nodes: g.nodes}

	for id, d := range indeg {
		if d == 0 {
			q.ids = append(q.ids, id)
		}
	}
	heap.Init(q)

	out := make([]Step, 0, len(g.nodes))
	for len(out) < len(g.nodes) {
		if q.Len() == 0 {
			blocked := -1
			for id := range g.nodes {
				if !done[id] && (blocked < 0 || g.nodes[id].before(g.nodes[blocked])) {
					blocked = id
				}
			}
			debug.Warn("Breaking dependency cycle", "step", g.nodes[blocked].step.Description())
			indeg[blocked] = 0
			heap.Push(q, blocked)
		}

		id := heap.Pop(q).(int)
		if done[id] {
			continue
		}
		done[id] = true
		out = append(out, g.nodes[id].step)

		for _, next := range g.out[id] {
			indeg[next]--
			if indeg[next] == 0 && !done[next] {
				heap.Push(q, next)
			}
		}
	}
	return out
}
