package bubblemap

// BubbleMap is the fully derived, renderable form of one query result: the
// trader graph, the per-address volume aggregation, and the visual encoding.
// All of it is transient state for a single render pass.
type BubbleMap struct {
	Graph   *Graph
	Volumes map[string]float64
	Visuals map[string]NodeVisual
}

// Build runs the whole derivation: discard incomplete rows, aggregate volume
// per address, assemble the weighted graph, and encode visuals. Malformed
// values degrade per row (zero volume, fallback edge weight); Build itself
// does not fail.
func Build(records []map[string]any) *BubbleMap {
	rows := ParseRows(records)
	volumes := VolumeByAddress(rows)
	graph := BuildGraph(rows)
	return &BubbleMap{
		Graph:   graph,
		Volumes: volumes,
		Visuals: EncodeVisuals(graph, volumes),
	}
}
