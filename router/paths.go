package router

// EnumerateRoutes produces the candidate routes between two on-chain token
// references, in fixed priority order: direct, then through each hub alone,
// then through both hubs. Routes that would repeat a hub at an endpoint are
// skipped. Depth is bounded at four; only the two hub assets carry deep
// enough liquidity to be worth routing through.
func EnumerateRoutes(from, to, hubA, hubB string) [][]string {
	if from == to {
		return [][]string{{from}}
	}

	routes := make([][]string, 0, 5)
	routes = append(routes, []string{from, to})

	if from != hubA && to != hubA {
		routes = append(routes, []string{from, hubA, to})
	}
	if from != hubB && to != hubB {
		routes = append(routes, []string{from, hubB, to})
	}
	if from != hubA && from != hubB && to != hubA && to != hubB {
		routes = append(routes, []string{from, hubA, hubB, to})
		routes = append(routes, []string{from, hubB, hubA, to})
	}
	return routes
}
