package sbpatch

import "sort"

// GroupOps merges operations sharing an anchor index and orders the
// groups for execution: highest index first. Acting top-down keeps
// every not-yet-executed group's anchor valid against the live
// document, because no mutation at a lower index has happened yet.
// That ordering is the load-bearing correctness property of the apply
// phase.
func GroupOps(ops []Op) []OpGroup {
	byIndex := make(map[int]*OpGroup)
	for _, op := range ops {
		g, ok := byIndex[op.Index]
		if !ok {
			g = &OpGroup{Index: op.Index}
			byIndex[op.Index] = g
		}
		switch op.Kind {
		case OpRemove:
			g.Remove += op.Count
		case OpInsert:
			g.Insert = append(g.Insert, op.Lines...)
		}
	}

	groups := make([]OpGroup, 0, len(byIndex))
	for _, g := range byIndex {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Index > groups[j].Index })
	return groups
}
