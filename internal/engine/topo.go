package engine

import (
	"cmp"
	"errors"
	"slices"
)

// ErrCircularDependency is returned when a circular dependency is detected.
var ErrCircularDependency = errors.New("circular dependency detected")

// DependencyNode represents a node with dependencies for topological sorting.
type DependencyNode[K cmp.Ordered] interface {
	Key() K
	Dependencies() []K
}

// TopoSort performs topological sort using Kahn's algorithm.
// Dependencies come before dependents; ties are broken by ascending key.
// Self references and dependencies outside the node set are ignored.
func TopoSort[K cmp.Ordered, T DependencyNode[K]](nodes []T) ([]T, error) {
	if len(nodes) <= 1 {
		return nodes, nil
	}

	byKey := make(map[K]T, len(nodes))
	for _, n := range nodes {
		byKey[n.Key()] = n
	}

	inDegree := make(map[K]int, len(nodes))
	dependents := make(map[K][]K, len(nodes))
	for _, n := range nodes {
		seen := make(map[K]bool)
		for _, dep := range n.Dependencies() {
			if _, ok := byKey[dep]; !ok || seen[dep] || dep == n.Key() {
				continue
			}
			seen[dep] = true
			inDegree[n.Key()]++
			dependents[dep] = append(dependents[dep], n.Key())
		}
	}

	var queue []K
	for k := range byKey {
		if inDegree[k] == 0 {
			queue = append(queue, k)
		}
	}
	slices.Sort(queue)

	result := make([]T, 0, len(nodes))
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		result = append(result, byKey[k])

		for _, d := range dependents[k] {
			inDegree[d]--
			if inDegree[d] == 0 {
				queue = append(queue, d)
				slices.Sort(queue)
			}
		}
	}

	if len(result) != len(nodes) {
		return nil, ErrCircularDependency
	}
	return result, nil
}
