package plugin

import "sort"

// Resolve orders plugins for installation: dependencies are restricted to
// come before their dependents, ties broken by (priority, key) ascending
// (spec.md §3.9: "Plugins are ordered by priority ascending, ties broken by
// key. Dependencies restrict relative ordering; a cycle is a fatal
// configuration error"). The ordering idiom — a completed-set walked in
// dependency order — follows the same dependency-validated iteration
// bartekus-stagecraft's Executor uses over a HostPlan's DependsOn graph,
// generalized here from "already sorted by an external planner" to an
// actual topological sort this package performs itself.
func Resolve(plugins []*Plugin) ([]*Plugin, error) {
	byKey := make(map[Key]*Plugin, len(plugins))
	for _, p := range plugins {
		if _, dup := byKey[p.Key]; dup {
			return nil, ErrDuplicateKey
		}
		byKey[p.Key] = p
	}
	for _, p := range plugins {
		for _, dep := range p.Dependencies {
			if _, ok := byKey[dep]; !ok {
				return nil, ErrUnknownDependency
			}
		}
	}

	resolved := make(map[Key]bool, len(plugins))
	out := make([]*Plugin, 0, len(plugins))
	remaining := append([]*Plugin(nil), plugins...)

	for len(remaining) > 0 {
		ready := make([]*Plugin, 0, len(remaining))
		for _, p := range remaining {
			if allResolved(p.Dependencies, resolved) {
				ready = append(ready, p)
			}
		}
		if len(ready) == 0 {
			return nil, ErrCycle
		}
		sort.Slice(ready, func(i, j int) bool {
			if ready[i].Priority != ready[j].Priority {
				return ready[i].Priority < ready[j].Priority
			}
			return ready[i].Key.String() < ready[j].Key.String()
		})

		next := make([]*Plugin, 0, len(remaining)-len(ready))
		readySet := make(map[Key]bool, len(ready))
		for _, p := range ready {
			readySet[p.Key] = true
			resolved[p.Key] = true
			out = append(out, p)
		}
		for _, p := range remaining {
			if !readySet[p.Key] {
				next = append(next, p)
			}
		}
		remaining = next
	}
	return out, nil
}

func allResolved(deps []Key, resolved map[Key]bool) bool {
	for _, d := range deps {
		if !resolved[d] {
			return false
		}
	}
	return true
}
