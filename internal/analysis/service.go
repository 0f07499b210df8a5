// Package analysis orchestrates one bubble map run: validate the request,
// build and execute the warehouse query, derive the graph, render the
// artifact, and persist a run record.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"trader-bubblemap-go/internal/bubblemap"
	"trader-bubblemap-go/internal/config"
	"trader-bubblemap-go/internal/flipside"
	"trader-bubblemap-go/internal/models"
	"trader-bubblemap-go/internal/query"
	"trader-bubblemap-go/internal/render"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// Params holds the analyst inputs for one run.
type Params struct {
	Chain           string    `json:"chain"`
	ContractAddress string    `json:"contract_address"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`
	MinUSDAmount    float64   `json:"min_usd_amount"`
	MaxUSDAmount    float64   `json:"max_usd_amount"`
	MinActiveDays   int       `json:"min_active_days"`
	Limit           int       `json:"limit"`

	// OutputFilename overrides the configured artifact filename when set.
	OutputFilename string `json:"output_filename,omitempty"`
}

// Validate checks the request the same way the UI does before running.
func (p *Params) Validate() error {
	if strings.TrimSpace(p.ContractAddress) == "" {
		return fmt.Errorf("token contract address is required")
	}
	if !strings.EqualFold(p.Chain, "solana") && !query.IsEVMChain(p.Chain) {
		return fmt.Errorf("unsupported chain %q", p.Chain)
	}
	if !p.StartDate.Before(p.EndDate) {
		return fmt.Errorf("start date must be before end date")
	}
	if p.EndDate.After(time.Now()) {
		return fmt.Errorf("end date cannot be in the future")
	}
	if p.MinUSDAmount > p.MaxUSDAmount {
		return fmt.Errorf("minimum USD volume must not exceed maximum USD volume")
	}
	if p.Limit <= 0 {
		return fmt.Errorf("top trader limit must be positive")
	}
	return nil
}

// Result summarizes a completed run.
type Result struct {
	Run        *models.AnalysisRun
	BubbleMap  *bubblemap.BubbleMap
	OutputPath string
}

// Service runs analyses. It holds no per-run state; every Run call builds
// fresh data structures from its own query result.
type Service struct {
	logger   *zap.Logger
	cfg      *config.Config
	flipside flipside.ClientInterface
	db       *gorm.DB
}

// NewService creates a new analysis service.
func NewService(logger *zap.Logger, cfg *config.Config, client flipside.ClientInterface, db *gorm.DB) *Service {
	return &Service{
		logger:   logger,
		cfg:      cfg,
		flipside: client,
		db:       db,
	}
}

// Run executes one analysis end to end. A query or render failure is
// recorded as a failed run and returned; no partial artifact is produced.
func (s *Service) Run(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	run := &models.AnalysisRun{
		Chain:           strings.ToLower(p.Chain),
		ContractAddress: p.ContractAddress,
		StartDate:       p.StartDate.Format(dateLayout),
		EndDate:         p.EndDate.Format(dateLayout),
		MinUSDAmount:    p.MinUSDAmount,
		MaxUSDAmount:    p.MaxUSDAmount,
		MinActiveDays:   p.MinActiveDays,
		TraderLimit:     p.Limit,
	}

	started := time.Now()
	result, err := s.run(ctx, p, run)
	run.DurationSecs = time.Since(started).Seconds()

	if err != nil {
		run.Status = models.RunFailed
		run.ErrorMessage = err.Error()
	} else {
		run.Status = models.RunSucceeded
	}

	if s.db != nil {
		if dbErr := s.db.Create(run).Error; dbErr != nil {
			s.logger.Error("Failed to persist analysis run", zap.Error(dbErr))
		}
	}

	if err != nil {
		return nil, err
	}
	result.Run = run
	return result, nil
}

func (s *Service) run(ctx context.Context, p Params, run *models.AnalysisRun) (*Result, error) {
	sql, err := query.ForChain(p.Chain, query.Params{
		ContractAddress: p.ContractAddress,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		MinUSDAmount:    p.MinUSDAmount,
		MaxUSDAmount:    p.MaxUSDAmount,
		MinActiveDays:   p.MinActiveDays,
		Limit:           p.Limit,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Running top traders analysis",
		zap.String("chain", run.Chain),
		zap.String("contract_address", p.ContractAddress),
		zap.String("start_date", run.StartDate),
		zap.String("end_date", run.EndDate),
		zap.Int("limit", p.Limit),
	)

	records, err := s.flipside.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no data found for the given inputs")
	}

	bm := bubblemap.Build(records)
	run.NodeCount = bm.Graph.NodeCount()
	run.EdgeCount = bm.Graph.EdgeCount()

	s.logger.Info("Graph built",
		zap.Int("nodes", run.NodeCount),
		zap.Int("edges", run.EdgeCount),
	)

	filename := p.OutputFilename
	if filename == "" {
		filename = s.cfg.Output.Filename
	}
	outputPath, err := render.WriteHTML(bm, filename, s.cfg.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to write bubble map: %w", err)
	}
	run.OutputPath = outputPath

	return &Result{BubbleMap: bm, OutputPath: outputPath}, nil
}
