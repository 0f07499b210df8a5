// Package bubblemap turns the warehouse's node/edge row set into a weighted
// trader graph with per-node visual attributes for the bubble map.
package bubblemap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind distinguishes trader rows from connection rows in the result set.
type Kind int

const (
	KindNode Kind = iota
	KindEdge
)

// Row is one typed record from the query result. The loose column maps
// returned by the API are converted here, at the ingestion boundary, so the
// rest of the pipeline never does column-name lookups.
type Row struct {
	Kind          Kind
	Address       string
	TargetAddress string
	TradeCount    int64

	TotalTokensTraded float64
	// TotalUSDTraded is only meaningful when USDValid is true. Rows with an
	// unparseable USD value stay in the graph but are excluded from volume sums.
	TotalUSDTraded float64
	USDValid       bool

	ActiveDays     int64
	AvgDailyTrades float64
}

// ParseRows converts raw records into typed rows, discarding any row whose
// address or target_address is missing. In practice that retains only edge
// rows, since node rows carry a NULL target.
func ParseRows(records []map[string]any) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		addr := stringField(rec, "address")
		target := stringField(rec, "target_address")
		if addr == "" || target == "" {
			continue
		}

		row := Row{
			Kind:          KindEdge,
			Address:       addr,
			TargetAddress: target,
		}
		if stringField(rec, "type") == "node" {
			row.Kind = KindNode
		}

		if usd, err := ParseUSD(rec["total_usd_traded"]); err == nil {
			row.TotalUSDTraded = usd
			row.USDValid = true
		}
		if tokens, err := ParseUSD(rec["total_tokens_traded"]); err == nil {
			row.TotalTokensTraded = tokens
		}
		if count, err := ParseUSD(rec["trade_count"]); err == nil {
			row.TradeCount = int64(count)
		}
		if days, err := ParseUSD(rec["active_days"]); err == nil {
			row.ActiveDays = int64(days)
		}
		if avg, err := ParseUSD(rec["avg_daily_trades"]); err == nil {
			row.AvgDailyTrades = avg
		}

		rows = append(rows, row)
	}
	return rows
}

// ParseUSD converts a raw warehouse value to a float64. It accepts native
// numbers as well as formatted strings with thousands separators ("1,234.5").
func ParseUSD(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", ""), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as USD amount: %w", t, err)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported value type %T", v)
	}
}

func stringField(rec map[string]any, key string) string {
	s, _ := rec[key].(string)
	return strings.TrimSpace(s)
}
