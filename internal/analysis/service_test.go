package analysis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"trader-bubblemap-go/internal/config"
	"trader-bubblemap-go/internal/flipside"
	"trader-bubblemap-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// MockClient is a mock implementation of the flipside.ClientInterface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateQueryRun(ctx context.Context, sql string) (*flipside.QueryRun, error) {
	args := m.Called(ctx, sql)
	return args.Get(0).(*flipside.QueryRun), args.Error(1)
}

func (m *MockClient) GetQueryRun(ctx context.Context, queryRunID string) (*flipside.QueryRun, error) {
	args := m.Called(ctx, queryRunID)
	return args.Get(0).(*flipside.QueryRun), args.Error(1)
}

func (m *MockClient) GetQueryRunResults(ctx context.Context, queryRunID string, page, pageSize int) (*flipside.ResultPage, error) {
	args := m.Called(ctx, queryRunID, page, pageSize)
	return args.Get(0).(*flipside.ResultPage), args.Error(1)
}

func (m *MockClient) Query(ctx context.Context, sql string) ([]map[string]any, error) {
	args := m.Called(ctx, sql)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]map[string]any), args.Error(1)
}

// setupTest creates a service backed by a mock client and an in-memory DB.
func setupTest(t *testing.T) (*Service, *MockClient, *gorm.DB) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.AnalysisRun{}))

	cfg := &config.Config{
		Output: config.Output{
			Dir:      t.TempDir(),
			Filename: "bubblemap.html",
		},
	}

	mockClient := new(MockClient)
	service := NewService(zap.NewNop(), cfg, mockClient, db)
	return service, mockClient, db
}

func validParams() Params {
	return Params{
		Chain:           "ethereum",
		ContractAddress: "0x6B175474E89094C44Da98b954EedeAC495271d0F",
		StartDate:       time.Now().AddDate(0, 0, -14),
		EndDate:         time.Now().AddDate(0, 0, -1),
		MinUSDAmount:    1,
		MaxUSDAmount:    10_000_000,
		MinActiveDays:   3,
		Limit:           200,
	}
}

func TestService_Run_Success(t *testing.T) {
	// Arrange
	service, mockClient, db := setupTest(t)
	mockClient.On("Query", mock.Anything, mock.Anything).Return([]map[string]any{
		{"type": "node", "address": "0xA", "target_address": nil, "total_usd_traded": 500.0},
		{"type": "edge", "address": "0xA", "target_address": "0xB", "total_usd_traded": 100.0},
		{"type": "edge", "address": "0xB", "target_address": "0xC", "total_usd_traded": 300.0},
	}, nil)

	// Act
	result, err := service.Run(context.Background(), validParams())

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, 3, result.Run.NodeCount)
	assert.Equal(t, 2, result.Run.EdgeCount)
	assert.Equal(t, models.RunSucceeded, result.Run.Status)
	assert.FileExists(t, result.OutputPath)

	var runs []models.AnalysisRun
	assert.NoError(t, db.Find(&runs).Error)
	assert.Len(t, runs, 1)
	assert.Equal(t, models.RunSucceeded, runs[0].Status)
	mockClient.AssertExpectations(t)
}

func TestService_Run_QueryFailureIsRecorded(t *testing.T) {
	// Arrange
	service, mockClient, db := setupTest(t)
	mockClient.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	// Act
	result, err := service.Run(context.Background(), validParams())

	// Assert: error surfaces, failed run is persisted, no artifact exists
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "query failed")

	var runs []models.AnalysisRun
	assert.NoError(t, db.Find(&runs).Error)
	assert.Len(t, runs, 1)
	assert.Equal(t, models.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].ErrorMessage, "connection refused")
	assert.Empty(t, runs[0].OutputPath)
}

func TestService_Run_NoDataFound(t *testing.T) {
	service, mockClient, _ := setupTest(t)
	mockClient.On("Query", mock.Anything, mock.Anything).Return([]map[string]any{}, nil)

	_, err := service.Run(context.Background(), validParams())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no data found")
}

func TestParams_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Params)
		wantErr string
	}{
		{
			name:   "Valid",
			mutate: func(p *Params) {},
		},
		{
			name:    "Missing contract address",
			mutate:  func(p *Params) { p.ContractAddress = " " },
			wantErr: "contract address is required",
		},
		{
			name:    "Unknown chain",
			mutate:  func(p *Params) { p.Chain = "dogechain" },
			wantErr: "unsupported chain",
		},
		{
			name:    "Start not before end",
			mutate:  func(p *Params) { p.EndDate = p.StartDate },
			wantErr: "start date must be before end date",
		},
		{
			name: "End date in the future",
			mutate: func(p *Params) {
				p.EndDate = time.Now().AddDate(0, 0, 7)
			},
			wantErr: "end date cannot be in the future",
		},
		{
			name: "Min above max",
			mutate: func(p *Params) {
				p.MinUSDAmount = 100
				p.MaxUSDAmount = 10
			},
			wantErr: "must not exceed",
		},
		{
			name:    "Non-positive limit",
			mutate:  func(p *Params) { p.Limit = 0 },
			wantErr: "limit must be positive",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := validParams()
			tc.mutate(&p)
			err := p.Validate()

			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestService_Run_InvalidParamsNotPersisted(t *testing.T) {
	service, mockClient, db := setupTest(t)

	p := validParams()
	p.ContractAddress = ""
	_, err := service.Run(context.Background(), p)

	assert.Error(t, err)
	var count int64
	assert.NoError(t, db.Model(&models.AnalysisRun{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	mockClient.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestService_Run_UsesCustomFilename(t *testing.T) {
	service, mockClient, _ := setupTest(t)
	mockClient.On("Query", mock.Anything, mock.Anything).Return([]map[string]any{
		{"type": "edge", "address": "0xA", "target_address": "0xB", "total_usd_traded": 100.0},
	}, nil)

	p := validParams()
	p.OutputFilename = "custom.html"
	result, err := service.Run(context.Background(), p)

	assert.NoError(t, err)
	assert.Contains(t, result.OutputPath, "custom.html")
	if _, statErr := os.Stat(result.OutputPath); statErr != nil {
		t.Fatalf("expected artifact at %s: %v", result.OutputPath, statErr)
	}
}
