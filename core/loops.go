package core

// maxLoopPeriod bounds the cycle lengths the loop detector looks for.
// Longer repetitions exist in principle but are not worth surfacing.
const maxLoopPeriod = 8

// detectCycle looks for a repeating suffix in a path history: a period p
// such that the last p stations exactly repeat the p stations before them.
// A period of 1 (bouncing in place) is ignored; the shortest period wins.
// Returns the cyclic station sequence and whether one was found.
func detectCycle(history []string) ([]string, bool) {
	n := len(history)
	for p := 2; p <= maxLoopPeriod && 2*p <= n; p++ {
		match := true
		uniform := true
		for i := 0; i < p; i++ {
			if history[n-p+i] != history[n-2*p+i] {
				match = false
				break
			}
			if history[n-p+i] != history[n-p] {
				uniform = false
			}
		}
		// A uniform period is standing still, not looping.
		if match && !uniform {
			return append([]string(nil), history[n-p:]...), true
		}
	}
	return nil, false
}
