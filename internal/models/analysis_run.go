package models

import "gorm.io/gorm"

// Run states for an AnalysisRun.
const (
	RunSucceeded = "SUCCEEDED"
	RunFailed    = "FAILED"
)

// AnalysisRun records one bubble map analysis: the inputs, the outcome, and
// where the rendered artifact was written.
type AnalysisRun struct {
	gorm.Model
	Chain           string  `json:"chain"`
	ContractAddress string  `json:"contract_address"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	MinUSDAmount    float64 `json:"min_usd_amount"`
	MaxUSDAmount    float64 `json:"max_usd_amount"`
	MinActiveDays   int     `json:"min_active_days"`
	TraderLimit     int     `json:"trader_limit"`

	Status       string  `json:"status"` // RunSucceeded or RunFailed
	ErrorMessage string  `json:"error_message,omitempty"`
	NodeCount    int     `json:"node_count"`
	EdgeCount    int     `json:"edge_count"`
	OutputPath   string  `json:"output_path"`
	DurationSecs float64 `json:"duration_secs"`
}
