package proctree

// ExpandDescendants returns root followed by every process reachable from it
// through parent -> child links in parents.
//
// The traversal uses an explicit work list and a visited set, so it finishes in
// time linear in the size of parents and never revisits a pid, even when racing
// or corrupted data makes the map cyclic. Root is always part of the result,
// including when it has already disappeared from the snapshot.
//
// The result is in traversal (pre-)order: every pid appears after the pid
// through which it was discovered.
func ExpandDescendants(root PID, parents ParentMap) []PID {
	children := parents.Children()
	visited := make(map[PID]struct{}, len(parents)+1)
	result := make([]PID, 0, 8)
	work := []PID{root}

	for len(work) > 0 {
		pid := work[len(work)-1]
		work = work[:len(work)-1]

		if _, seen := visited[pid]; seen {
			continue
		}

		visited[pid] = struct{}{}
		result = append(result, pid)

		for _, child := range children[pid] {
			if _, seen := visited[child]; !seen {
				work = append(work, child)
			}
		}
	}

	return result
}

// bottomUp orders the non-root members of an expansion so that each pid comes
// before the pid that discovered it.
func bottomUp(members []PID) []PID {
	if len(members) <= 1 {
		return nil
	}

	order := make([]PID, 0, len(members)-1)
	for i := len(members) - 1; i >= 1; i-- {
		order = append(order, members[i])
	}

	return order
}
