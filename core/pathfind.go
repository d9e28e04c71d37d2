package core

// ShortestPath returns the shortest station sequence from one station to
// another over the adjacency implied by shared lines, including transfer
// stations bridging lines and circular wrap-around. The result includes
// both endpoints; from==to yields a single-element path.
//
// Unreachable, unknown, or empty endpoints yield an empty path, never an
// error: callers treat empty as "no action available".
func ShortestPath(t *Topology, from, to string) []string {
	if t == nil || from == "" || to == "" {
		return nil
	}
	if _, ok := t.Station(from); !ok {
		return nil
	}
	if _, ok := t.Station(to); !ok {
		return nil
	}
	if from == to {
		return []string{from}
	}

	// Plain BFS: every hop between adjacent stations costs one.
	// Neighbours() returns sorted IDs, so tie-breaking is deterministic.
	prev := map[string]string{from: ""}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range t.Neighbours(cur) {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				return rebuildPath(prev, from, to)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func rebuildPath(prev map[string]string, from, to string) []string {
	var rev []string
	for cur := to; cur != ""; cur = prev[cur] {
		rev = append(rev, cur)
		if cur == from {
			break
		}
	}
	out := make([]string, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		out = append(out, rev[i])
	}
	return out
}
