package llm

// Pool holds one primary generator plus zero or more secondaries. The
// primary serves the heavy calls (architecture analysis, execution traces);
// the secondaries absorb the high-volume, low-cost route-relevance calls so
// they never eat into the primary credential's quota. Pool size is 1..N: a
// single-credential deployment simply routes everything to the primary.
type Pool struct {
	primary     Generator
	secondaries []Generator
}

// NewPool builds a pool. primary must be non-nil; secondaries may be empty.
func NewPool(primary Generator, secondaries ...Generator) *Pool {
	return &Pool{primary: primary, secondaries: secondaries}
}

// Primary returns the generator used for architecture and trace calls.
func (p *Pool) Primary() Generator {
	return p.primary
}

// ForRelevance selects the generator for a route-relevance call by the
// route's ordinal position: even ordinals hit the first secondary, odd ones
// the second, generalized round-robin for larger pools. With no secondaries
// configured the primary serves the call.
func (p *Pool) ForRelevance(ordinal int) Generator {
	if len(p.secondaries) == 0 {
		return p.primary
	}
	if ordinal < 0 {
		ordinal = -ordinal
	}
	return p.secondaries[ordinal%len(p.secondaries)]
}
