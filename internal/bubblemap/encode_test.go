package bubblemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func graphOf(addresses ...string) *Graph {
	g := NewGraph()
	for _, a := range addresses {
		g.AddNode(a)
	}
	return g
}

func TestEncodeVisuals_LinearSizeScale(t *testing.T) {
	g := graphOf("0xA", "0xB", "0xC")
	volumes := map[string]float64{"0xA": 100, "0xB": 400, "0xC": 300}

	visuals := EncodeVisuals(g, volumes)

	// min volume -> size 10, max volume -> size 50, linear in between
	assert.Equal(t, 10.0, visuals["0xA"].Size)
	assert.Equal(t, 50.0, visuals["0xB"].Size)
	assert.InDelta(t, 36.67, visuals["0xC"].Size, 0.01)
}

func TestEncodeVisuals_MedianColorThreshold(t *testing.T) {
	g := graphOf("0xA", "0xB", "0xC")
	volumes := map[string]float64{"0xA": 100, "0xB": 400, "0xC": 300}

	visuals := EncodeVisuals(g, volumes)

	// median is 300; ties at the median are colored high
	assert.Equal(t, lowVolumeColor, visuals["0xA"].Color)
	assert.Equal(t, highVolumeColor, visuals["0xB"].Color)
	assert.Equal(t, "#FF4500", visuals["0xC"].Color)
}

func TestEncodeVisuals_AllEqualVolumesCollapseToMinSize(t *testing.T) {
	g := graphOf("0xA", "0xB")
	volumes := map[string]float64{"0xA": 250, "0xB": 250}

	visuals := EncodeVisuals(g, volumes)

	for _, node := range g.Nodes() {
		assert.Equal(t, 10.0, visuals[node].Size)
		assert.Equal(t, highVolumeColor, visuals[node].Color) // equal to median
	}
}

func TestEncodeVisuals_SizeMonotoneInVolume(t *testing.T) {
	g := graphOf("0x1", "0x2", "0x3", "0x4")
	volumes := map[string]float64{"0x1": 10, "0x2": 20, "0x3": 20, "0x4": 90}

	visuals := EncodeVisuals(g, volumes)

	assert.LessOrEqual(t, visuals["0x1"].Size, visuals["0x2"].Size)
	assert.Equal(t, visuals["0x2"].Size, visuals["0x3"].Size)
	assert.LessOrEqual(t, visuals["0x3"].Size, visuals["0x4"].Size)
}

func TestEncodeVisuals_NoVolumeDataUsesDefaults(t *testing.T) {
	g := graphOf("0xA", "0xB")

	visuals := EncodeVisuals(g, map[string]float64{})

	for _, node := range g.Nodes() {
		assert.Equal(t, 10.0, visuals[node].Size)
		assert.Equal(t, lowVolumeColor, visuals[node].Color)
	}
}

func TestEncodeVisuals_MissingAddressCountsAsZero(t *testing.T) {
	g := graphOf("0xA", "0xB", "0xC")
	// 0xC never appeared in the volume aggregation
	volumes := map[string]float64{"0xA": 100, "0xB": 400}

	visuals := EncodeVisuals(g, volumes)

	assert.Equal(t, 10.0, visuals["0xC"].Size)
	assert.Equal(t, lowVolumeColor, visuals["0xC"].Color)
}

func TestMedian(t *testing.T) {
	testCases := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{name: "Odd count", values: []float64{100, 400, 300}, expected: 300},
		{name: "Even count averages middles", values: []float64{10, 20, 30, 40}, expected: 25},
		{name: "Single value", values: []float64{7}, expected: 7},
		{name: "Empty", values: nil, expected: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, median(tc.values))
		})
	}
}

func TestShortenAddress(t *testing.T) {
	assert.Equal(t, "0x1234...cdef", ShortenAddress("0x123456789abcdefcdef"))
	// short addresses stay whole
	assert.Equal(t, "0xABCD", ShortenAddress("0xABCD"))
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "1,234.50", FormatUSD(1234.5))
	assert.Equal(t, "0.00", FormatUSD(0))
}
