package service

import "fmt"

// Plan returns the object names in an order satisfying every depends_on
// edge: a dependency always precedes its dependents. The order is
// deterministic for a given declaration. A cyclic dependency is an error.
func (s State) Plan() ([]string, error) {
	dependents := make(map[string][]string, len(s.Objects))
	inDegree := make(map[string]int, len(s.Objects))
	for _, obj := range s.Objects {
		if _, ok := inDegree[obj.Name]; ok {
			return nil, fmt.Errorf("duplicate object %q in state", obj.Name)
		}
		inDegree[obj.Name] = 0
	}
	for _, obj := range s.Objects {
		for _, dep := range obj.DependsOn {
			if _, ok := inDegree[dep]; !ok {
				return nil, fmt.Errorf("object %q depends on unknown object %q", obj.Name, dep)
			}
			dependents[dep] = append(dependents[dep], obj.Name)
			inDegree[obj.Name]++
		}
	}

	// Kahn's algorithm, queue seeded in declaration order for determinism.
	var queue []string
	for _, obj := range s.Objects {
		if inDegree[obj.Name] == 0 {
			queue = append(queue, obj.Name)
		}
	}

	plan := make([]string, 0, len(s.Objects))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		plan = append(plan, current)
		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(plan) != len(s.Objects) {
		return nil, fmt.Errorf("cyclic dependency detected in state objects")
	}
	return plan, nil
}
