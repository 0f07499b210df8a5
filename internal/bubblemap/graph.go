package bubblemap

// defaultEdgeWeight is the fallback weight for edges whose traded-value field
// could not be parsed as a number.
const defaultEdgeWeight = 1.0

// Edge is one undirected connection between two trader addresses.
type Edge struct {
	Source string
	Target string
	Weight float64
}

// Graph is an undirected weighted trader graph. Node and edge order follow
// first insertion, so builds from the same row set are deterministic.
type Graph struct {
	nodes     []string
	nodeIndex map[string]int
	edges     []Edge
	edgeIndex map[[2]string]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodeIndex: make(map[string]int),
		edgeIndex: make(map[[2]string]int),
	}
}

// AddNode inserts a node if it is not already present.
func (g *Graph) AddNode(address string) {
	if _, ok := g.nodeIndex[address]; ok {
		return
	}
	g.nodeIndex[address] = len(g.nodes)
	g.nodes = append(g.nodes, address)
}

// AddEdge inserts an undirected edge between two nodes, adding the nodes if
// needed. Repeated edges between the same pair accumulate their weights
// rather than overwriting. Self-loops are allowed.
func (g *Graph) AddEdge(source, target string, weight float64) {
	g.AddNode(source)
	g.AddNode(target)

	key := pairKey(source, target)
	if i, ok := g.edgeIndex[key]; ok {
		g.edges[i].Weight += weight
		return
	}
	g.edgeIndex[key] = len(g.edges)
	g.edges = append(g.edges, Edge{Source: source, Target: target, Weight: weight})
}

// HasNode reports whether the address is a node in the graph.
func (g *Graph) HasNode(address string) bool {
	_, ok := g.nodeIndex[address]
	return ok
}

// Nodes returns the node addresses in insertion order.
func (g *Graph) Nodes() []string {
	return g.nodes
}

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// pairKey normalizes an unordered address pair.
func pairKey(a, b string) [2]string {
	if b < a {
		a, b = b, a
	}
	return [2]string{a, b}
}

// BuildGraph constructs the trader graph from retained rows: one node per
// distinct address across both columns, one weighted edge per edge row. An
// unparseable traded value falls back to defaultEdgeWeight instead of
// failing the build.
func BuildGraph(rows []Row) *Graph {
	g := NewGraph()
	for _, row := range rows {
		g.AddNode(row.Address)
		g.AddNode(row.TargetAddress)
	}
	for _, row := range rows {
		if row.Kind != KindEdge {
			continue
		}
		weight := defaultEdgeWeight
		if row.USDValid {
			weight = row.TotalUSDTraded
		}
		g.AddEdge(row.Address, row.TargetAddress, weight)
	}
	return g
}
