package lifecycle

import "sort"

// Requirement is the dependency-relevant projection of a Service: enough to
// compute bring-up/tear-down layering without touching the Service's Launch
// behavior.
type Requirement struct {
	ID           string
	Dependencies []string
	Before       []string
	After        []string
}

// effectiveDependencies builds the union dependency map described in
// spec.md: each id's effective prerequisite set is Dependencies ∪ After,
// and every "u before v" edge adds u to v's prerequisite set as well.
func effectiveDependencies(reqs []Requirement) map[string]map[string]struct{} {
	eff := make(map[string]map[string]struct{}, len(reqs))
	hasBefore := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		set := eff[r.ID]
		if set == nil {
			set = map[string]struct{}{}
			eff[r.ID] = set
		}
		for _, d := range r.Dependencies {
			set[d] = struct{}{}
		}
		for _, a := range r.After {
			set[a] = struct{}{}
		}
		if len(r.Before) > 0 {
			hasBefore[r.ID] = true
		}
	}
	for _, r := range reqs {
		for _, b := range r.Before {
			set := eff[b]
			if set == nil {
				set = map[string]struct{}{}
				eff[b] = set
			}
			set[r.ID] = struct{}{}
		}
	}
	return eff
}

// Resolve computes bring-up layers for reqs: each returned slice is a set of
// ids whose entire effective dependency set is already satisfied (either
// excluded, meaning already live, or resolved in a prior layer). Within a
// layer, ids with no Before clause sort first, ties broken lexicographically
// by id, giving deterministic, testable output.
//
// If reverse is true the layer order (not the order within a layer) is
// reversed, for tear-down: the last layer brought up is torn down first.
func Resolve(reqs []Requirement, exclude map[string]struct{}, reverse bool) ([][]string, error) {
	eff := effectiveDependencies(reqs)
	hasBefore := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		if len(r.Before) > 0 {
			hasBefore[r.ID] = true
		}
	}

	resolved := map[string]struct{}{}
	for k := range exclude {
		resolved[k] = struct{}{}
	}
	unresolved := map[string]struct{}{}
	for _, r := range reqs {
		unresolved[r.ID] = struct{}{}
	}

	var layers [][]string
	for len(unresolved) > 0 {
		var layer []string
		for id := range unresolved {
			satisfied := true
			for dep := range eff[id] {
				if _, ok := resolved[dep]; !ok {
					satisfied = false
					break
				}
			}
			if satisfied {
				layer = append(layer, id)
			}
		}
		if len(layer) == 0 {
			remaining := make([]string, 0, len(unresolved))
			for id := range unresolved {
				remaining = append(remaining, id)
			}
			return nil, &RequirementResolveFailedError{Unresolved: remaining}
		}
		sort.Slice(layer, func(i, j int) bool {
			bi, bj := hasBefore[layer[i]], hasBefore[layer[j]]
			if bi != bj {
				return !bi // no-before sorts first
			}
			return layer[i] < layer[j]
		})
		for _, id := range layer {
			delete(unresolved, id)
			resolved[id] = struct{}{}
		}
		layers = append(layers, layer)
	}

	if reverse {
		for i, j := 0, len(layers)-1; i < j; i, j = i+1, j-1 {
			layers[i], layers[j] = layers[j], layers[i]
		}
	}
	return layers, nil
}

// ValidateRemoval checks that removing every id in remove from the live set
// live would not strand a surviving service's dependency: it fails with
// DependencyBrokenError on the first id in remove that a surviving id still
// depends on (via Dependencies, Before, or After).
func ValidateRemoval(live []Requirement, remove map[string]struct{}) error {
	eff := effectiveDependencies(live)
	reverse := map[string]map[string]struct{}{}
	for id, deps := range eff {
		for dep := range deps {
			set := reverse[dep]
			if set == nil {
				set = map[string]struct{}{}
				reverse[dep] = set
			}
			set[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(remove))
	for id := range remove {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, node := range ids {
		dependents := make([]string, 0, len(reverse[node]))
		for dependent := range reverse[node] {
			dependents = append(dependents, dependent)
		}
		sort.Strings(dependents)
		for _, dependent := range dependents {
			if _, removed := remove[dependent]; !removed {
				return &DependencyBrokenError{Node: node, Dependent: dependent}
			}
		}
	}
	return nil
}
