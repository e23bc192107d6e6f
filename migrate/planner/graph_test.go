package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/satishbabariya/prisma-schemadiff/migrate/introspect"
)

func enumStep(name string) Step {
	return &CreateEnum{Enum: introspect.Enum{Name: name}}
}

func names(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.(*CreateEnum).Enum.Name
	}
	return out
}

func TestStepGraphSort(t *testing.T) {
	tests := []struct {
		name  string
		build func(g *stepGraph)
		want  []string
	}{
		{
			name: "priority order without edges",
			build: func(g *stepGraph) {
				g.add(enumStep("late"), priority{phaseDropEnums, 0, 0})
				g.add(enumStep("second"), priority{phaseCreateTables, 1, 0})
				g.add(enumStep("first"), priority{phaseCreateTables, 0, 0})
			},
			want: []string{"first", "second", "late"},
		},
		{
			name: "insertion order breaks ties",
			build: func(g *stepGraph) {
				g.add(enumStep("a"), priority{})
				g.add(enumStep("b"), priority{})
			},
			want: []string{"a", "b"},
		},
		{
			name: "edges override priority",
			build: func(g *stepGraph) {
				a := g.add(enumStep("a"), priority{phaseDropForeignKeys, 0, 0})
				b := g.add(enumStep("b"), priority{phaseDropEnums, 0, 0})
				g.edge(b, a)
			},
			want: []string{"b", "a"},
		},
		{
			name: "duplicate edges counted once",
			build: func(g *stepGraph) {
				a := g.add(enumStep("a"), priority{phaseColumns, 0, 0})
				b := g.add(enumStep("b"), priority{phaseColumns, 1, 0})
				g.edge(a, b)
				g.edge(a, b)
				g.edge(a, a)
			},
			want: []string{"a", "b"},
		},
		{
			name: "cycle released by priority",
			build: func(g *stepGraph) {
				a := g.add(enumStep("a"), priority{phaseDropTables, 1, 0})
				b := g.add(enumStep("b"), priority{phaseDropTables, 0, 0})
				c := g.add(enumStep("c"), priority{phaseDropEnums, 0, 0})
				g.edge(a, b)
				g.edge(b, a)
				g.edge(a, c)
			},
			want: []string{"b", "a", "c"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newStepGraph()
			tt.build(g)
			assert.Equal(t, tt.want, names(g.sort()))
		})
	}
}
