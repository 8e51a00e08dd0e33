package council

import "fmt"

// topologicalOrder groups roles into levels (maximal antichains) such
// that every role's depends_on names appear in a strictly earlier level,
// using Kahn's algorithm. Levels are themselves ordered so that, when
// flattened, registry insertion order is preserved within a level.
// Returns ErrConfiguration if the dependency graph has a cycle.
func topologicalOrder(roles []Role) ([][]Role, error) {
	byName := make(map[string]Role, len(roles))
	indegree := make(map[string]int, len(roles))
	dependents := make(map[string][]string, len(roles))

	for _, r := range roles {
		byName[r.Name] = r
		if _, ok := indegree[r.Name]; !ok {
			indegree[r.Name] = 0
		}
	}
	for _, r := range roles {
		for _, dep := range r.DependsOn {
			indegree[r.Name]++
			dependents[dep] = append(dependents[dep], r.Name)
		}
	}

	var levels [][]Role
	remaining := len(roles)
	processed := make(map[string]bool, len(roles))

	for remaining > 0 {
		var levelNames []string
		for _, r := range roles {
			if !processed[r.Name] && indegree[r.Name] == 0 {
				levelNames = append(levelNames, r.Name)
			}
		}
		if len(levelNames) == 0 {
			return nil, fmt.Errorf("%w: cyclic depends_on among roles", ErrConfiguration)
		}

		level := make([]Role, 0, len(levelNames))
		for _, name := range levelNames {
			level = append(level, byName[name])
			processed[name] = true
			remaining--
		}
		levels = append(levels, level)

		for _, name := range levelNames {
			for _, dependent := range dependents[name] {
				indegree[dependent]--
			}
		}
	}

	return levels, nil
}
