package research

// convergenceTracker watches per-context validated-fact yield over a
// sliding window of iterations. A context whose yield over a full window
// drops below the minimum is saturated: further spend buys nothing.
type convergenceTracker struct {
	window   int
	minYield int
	yields   map[string][]int
}

func newConvergenceTracker(window, minYield int) *convergenceTracker {
	if window <= 0 {
		window = 2
	}
	if minYield <= 0 {
		minYield = 1
	}
	return &convergenceTracker{
		window:   window,
		minYield: minYield,
		yields:   make(map[string][]int),
	}
}

// record appends one iteration's validated-fact count for a context
func (c *convergenceTracker) record(contextID string, accepted int) {
	ys := append(c.yields[contextID], accepted)
	if len(ys) > c.window {
		ys = ys[len(ys)-c.window:]
	}
	c.yields[contextID] = ys
}

// saturated reports whether a context has a full window of iterations
// whose combined yield fell below the minimum
func (c *convergenceTracker) saturated(contextID string) bool {
	ys := c.yields[contextID]
	if len(ys) < c.window {
		return false
	}
	total := 0
	for _, y := range ys {
		total += y
	}
	return total < c.minYield
}
