package bubblemap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUSD(t *testing.T) {
	testCases := []struct {
		name        string
		value       any
		expected    float64
		expectError bool
	}{
		{
			name:     "Plain float",
			value:    123.45,
			expected: 123.45,
		},
		{
			name:     "String with thousands separators",
			value:    "1,234.5",
			expected: 1234.5,
		},
		{
			name:     "Plain numeric string",
			value:    "300",
			expected: 300,
		},
		{
			name:        "Non-numeric string",
			value:       "N/A",
			expectError: true,
		},
		{
			name:        "Nil value",
			value:       nil,
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseUSD(tc.value)

			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, got)
			}
		})
	}
}

func TestParseRows_DropsIncompleteRows(t *testing.T) {
	records := []map[string]any{
		// node rows have a NULL target and must be discarded
		{"type": "node", "address": "0xA", "target_address": nil, "total_usd_traded": 500.0},
		{"type": "edge", "address": "0xA", "target_address": "0xB", "total_usd_traded": 100.0},
		{"type": "edge", "address": "", "target_address": "0xC", "total_usd_traded": 100.0},
		{"type": "edge", "address": "0xB", "target_address": "0xC", "total_usd_traded": 300.0},
	}

	rows := ParseRows(records)

	assert.Len(t, rows, 2)
	assert.Equal(t, "0xA", rows[0].Address)
	assert.Equal(t, "0xB", rows[0].TargetAddress)
	assert.Equal(t, KindEdge, rows[0].Kind)
	assert.True(t, rows[0].USDValid)
	assert.Equal(t, 100.0, rows[0].TotalUSDTraded)
}

func TestParseRows_MalformedUSDIsRetained(t *testing.T) {
	records := []map[string]any{
		{"type": "edge", "address": "0xA", "target_address": "0xB", "total_usd_traded": "N/A"},
	}

	rows := ParseRows(records)

	// The row stays in the graph; only its USD value is flagged invalid.
	assert.Len(t, rows, 1)
	assert.False(t, rows[0].USDValid)
}
