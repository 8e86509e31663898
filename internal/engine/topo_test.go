package engine

import (
	"errors"
	"testing"
)

type testNode struct {
	id   int64
	deps []int64
}

func (n *testNode) Key() int64            { return n.id }
func (n *testNode) Dependencies() []int64 { return n.deps }

func newNode(id int64, deps ...int64) *testNode {
	return &testNode{id: id, deps: deps}
}

func keys(nodes []*testNode) []int64 {
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}

func TestTopoSort(t *testing.T) {
	tests := []struct {
		name  string
		nodes []*testNode
		want  []int64
	}{
		{"empty", nil, []int64{}},
		{"single", []*testNode{newNode(1)}, []int64{1}},
		{"independent sorted by key", []*testNode{newNode(3), newNode(1), newNode(2)}, []int64{1, 2, 3}},
		{"chain", []*testNode{newNode(1, 2), newNode(2, 3), newNode(3)}, []int64{3, 2, 1}},
		{"external dependency ignored", []*testNode{newNode(1, 99), newNode(2, 1)}, []int64{1, 2}},
		{"self reference ignored", []*testNode{newNode(2, 2, 1), newNode(1, 1)}, []int64{1, 2}},
		{"duplicate dependency", []*testNode{newNode(2, 1, 1), newNode(1)}, []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TopoSort[int64](tt.nodes)
			if err != nil {
				t.Fatalf("TopoSort() error = %v", err)
			}
			ids := keys(got)
			if len(ids) != len(tt.want) {
				t.Fatalf("TopoSort() = %v, want %v", ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Fatalf("TopoSort() = %v, want %v", ids, tt.want)
				}
			}
		})
	}
}

func TestTopoSortCycle(t *testing.T) {
	_, err := TopoSort[int64]([]*testNode{newNode(1, 2), newNode(2, 1), newNode(3)})
	if !errors.Is(err, ErrCircularDependency) {
		t.Errorf("expected ErrCircularDependency, got %v", err)
	}
}
