package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"trader-bubblemap-go/internal/analysis"
	"trader-bubblemap-go/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	db      *gorm.DB
	service *analysis.Service
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB, service *analysis.Service) *APIHandler {
	return &APIHandler{log: log, db: db, service: service}
}

// analyzeRequest is the JSON body for POST /api/analyze. Dates use YYYY-MM-DD.
type analyzeRequest struct {
	Chain           string  `json:"chain"`
	ContractAddress string  `json:"contract_address"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	MinUSDAmount    float64 `json:"min_usd_amount"`
	MaxUSDAmount    float64 `json:"max_usd_amount"`
	MinActiveDays   int     `json:"min_active_days"`
	Limit           int     `json:"limit"`
}

type analyzeResponse struct {
	Run    *models.AnalysisRun `json:"run"`
	MapURL string              `json:"map_url"`
}

func (r *analyzeRequest) toParams() (analysis.Params, error) {
	start, err := time.Parse("2006-01-02", r.StartDate)
	if err != nil {
		return analysis.Params{}, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", r.EndDate)
	if err != nil {
		return analysis.Params{}, fmt.Errorf("invalid end_date: %w", err)
	}

	p := analysis.Params{
		Chain:           r.Chain,
		ContractAddress: r.ContractAddress,
		StartDate:       start,
		EndDate:         end,
		MinUSDAmount:    r.MinUSDAmount,
		MaxUSDAmount:    r.MaxUSDAmount,
		MinActiveDays:   r.MinActiveDays,
		Limit:           r.Limit,
		// Unique per run so history links stay valid.
		OutputFilename: fmt.Sprintf("bubblemap_%d.html", time.Now().UnixNano()),
	}
	return p, nil
}

// AnalyzeHandler runs one analysis from the submitted parameters.
func (h *APIHandler) AnalyzeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	params, err := req.toParams()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Run(r.Context(), params)
	if err != nil {
		h.log.Error("Analysis failed", zap.Error(err))
		http.Error(w, fmt.Sprintf("Error running query or connecting to API: %v", err), http.StatusBadGateway)
		return
	}

	response := analyzeResponse{
		Run:    result.Run,
		MapURL: "/maps/" + filepath.Base(result.OutputPath),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// RunsHandler returns the most recent analysis runs.
func (h *APIHandler) RunsHandler(w http.ResponseWriter, r *http.Request) {
	var runs []models.AnalysisRun
	// Order by most recent first
	if err := h.db.Order("created_at desc").Limit(50).Find(&runs).Error; err != nil {
		h.log.Error("Failed to get analysis runs from database", zap.Error(err))
		http.Error(w, "Failed to get runs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(runs)
}
