package bubblemap

import (
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	minNodeSize = 10.0
	maxNodeSize = 50.0

	// Orange for traders at or above the median volume, blue below.
	highVolumeColor = "#FF4500"
	lowVolumeColor  = "#1E90FF"
)

// NodeVisual holds the display attributes for one node.
type NodeVisual struct {
	Size  float64
	Color string
	Label string
	Title string
}

var usdPrinter = message.NewPrinter(language.English)

// EncodeVisuals derives size, color, label, and tooltip for every node in the
// graph from its aggregate volume. Sizes scale linearly from minNodeSize to
// maxNodeSize; the color threshold is the median volume across all nodes,
// with ties at the median colored as high volume. Nodes absent from the
// volume map count as zero volume.
func EncodeVisuals(g *Graph, volumes map[string]float64) map[string]NodeVisual {
	visuals := make(map[string]NodeVisual, g.NodeCount())
	nodes := g.Nodes()

	if len(volumes) == 0 {
		for _, node := range nodes {
			visuals[node] = NodeVisual{
				Size:  minNodeSize,
				Color: lowVolumeColor,
				Label: ShortenAddress(node),
				Title: nodeTitle(node, 0),
			}
		}
		return visuals
	}

	nodeVolumes := make([]float64, len(nodes))
	minVolume, maxVolume := 0.0, 0.0
	for i, node := range nodes {
		v := volumes[node]
		nodeVolumes[i] = v
		if i == 0 {
			minVolume, maxVolume = v, v
			continue
		}
		if v < minVolume {
			minVolume = v
		}
		if v > maxVolume {
			maxVolume = v
		}
	}

	volumeRange := maxVolume - minVolume
	if volumeRange == 0 {
		volumeRange = 1 // collapse the scale to the minimum size
	}

	threshold := median(nodeVolumes)

	for i, node := range nodes {
		v := nodeVolumes[i]
		color := lowVolumeColor
		if v >= threshold {
			color = highVolumeColor
		}
		visuals[node] = NodeVisual{
			Size:  minNodeSize + (maxNodeSize-minNodeSize)*(v-minVolume)/volumeRange,
			Color: color,
			Label: ShortenAddress(node),
			Title: nodeTitle(node, v),
		}
	}
	return visuals
}

// median returns the median of values; for an even count it averages the two
// middle values. Returns 0 for an empty slice.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// ShortenAddress shortens a wallet address to its first 6 and last 4
// characters for display. Short addresses are returned unchanged.
func ShortenAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// FormatUSD formats a dollar amount with thousands separators, e.g. "1,234.50".
func FormatUSD(v float64) string {
	return usdPrinter.Sprintf("%.2f", v)
}

func nodeTitle(address string, volume float64) string {
	return address + "\nVolume: $" + FormatUSD(volume)
}
