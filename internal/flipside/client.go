package flipside

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"trader-bubblemap-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rpcPath = "/json-rpc"

	// Query run states reported by the API.
	StateReady     = "QUERY_STATE_READY"
	StateStreaming = "QUERY_STATE_STREAMING_RESULTS"
	StateRunning   = "QUERY_STATE_RUNNING"
	StateSuccess   = "QUERY_STATE_SUCCESS"
	StateFailed    = "QUERY_STATE_FAILED"
	StateCanceled  = "QUERY_STATE_CANCELED"
)

// ClientInterface defines the interface for the Flipside query API client.
type ClientInterface interface {
	CreateQueryRun(ctx context.Context, sql string) (*QueryRun, error)
	GetQueryRun(ctx context.Context, queryRunID string) (*QueryRun, error)
	GetQueryRunResults(ctx context.Context, queryRunID string, page, pageSize int) (*ResultPage, error)
	Query(ctx context.Context, sql string) ([]map[string]any, error)
}

// Client is a client for the Flipside Crypto JSON-RPC query API.
// It implements the ClientInterface.
type Client struct {
	client          *resty.Client
	apiKey          string
	logger          *zap.Logger
	limiter         *rate.Limiter
	pollInterval    time.Duration
	maxPollAttempts int
	pageSize        int
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Flipside query API client. The API key is explicit
// configuration; there is no process-wide default client.
func NewClient(cfg *config.Flipside, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:          client,
		apiKey:          cfg.ApiKey,
		logger:          logger,
		limiter:         limiter,
		pollInterval:    time.Duration(cfg.PollIntervalSec) * time.Second,
		maxPollAttempts: cfg.MaxPollAttempts,
		pageSize:        cfg.PageSize,
	}
}

// QueryRun describes the server-side state of a submitted query.
type QueryRun struct {
	ID           string `json:"id"`
	State        string `json:"state"`
	ErrorMessage string `json:"errorMessage"`
}

// ResultPage is one page of query results. Rows are positional and must be
// zipped with ColumnNames to recover records.
type ResultPage struct {
	ColumnNames []string `json:"columnNames"`
	Rows        [][]any  `json:"rows"`
	Page        struct {
		CurrentPageNumber int `json:"currentPageNumber"`
		TotalPages        int `json:"totalPages"`
	} `json:"page"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs one JSON-RPC call with rate limiting and retry logic.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  []any{params},
		ID:      1,
	}

	var envelope rpcEnvelope
	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", c.apiKey).
		SetBody(body).
		SetResult(&envelope)

	if err := c.doRequest(ctx, method, req); err != nil {
		return err
	}

	if envelope.Error != nil {
		return fmt.Errorf("rpc %s failed: %s (code %d)", method, envelope.Error.Message, envelope.Error.Code)
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("rpc %s: failed to decode result: %w", method, err)
		}
	}
	return nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method string, req *resty.Request) error {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("rpc_method", method), zap.String("url", c.client.BaseURL+rpcPath))
		resp, err = req.Execute(http.MethodPost, rpcPath)

		if err == nil && !resp.IsError() {
			return nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// CreateQueryRun submits SQL for execution and returns the new query run.
func (c *Client) CreateQueryRun(ctx context.Context, sql string) (*QueryRun, error) {
	params := map[string]any{
		"resultTTLHours": 1,
		"maxAgeMinutes":  0,
		"sql":            sql,
		"tags":           map[string]string{"source": "trader-bubblemap-go"},
		"dataSource":     "snowflake-default",
		"dataProvider":   "flipside",
	}

	var result struct {
		QueryRun QueryRun `json:"queryRun"`
	}
	if err := c.call(ctx, "createQueryRun", params, &result); err != nil {
		c.logger.Error("Failed to create query run", zap.Error(err))
		return nil, fmt.Errorf("failed to create query run: %w", err)
	}

	return &result.QueryRun, nil
}

// GetQueryRun fetches the current state of a query run.
func (c *Client) GetQueryRun(ctx context.Context, queryRunID string) (*QueryRun, error) {
	params := map[string]any{"queryRunId": queryRunID}

	var result struct {
		QueryRun QueryRun `json:"queryRun"`
	}
	if err := c.call(ctx, "getQueryRun", params, &result); err != nil {
		return nil, fmt.Errorf("failed to get query run %s: %w", queryRunID, err)
	}

	return &result.QueryRun, nil
}

// GetQueryRunResults fetches one page of results for a finished query run.
func (c *Client) GetQueryRunResults(ctx context.Context, queryRunID string, page, pageSize int) (*ResultPage, error) {
	params := map[string]any{
		"queryRunId": queryRunID,
		"format":     "json",
		"page": map[string]int{
			"number": page,
			"size":   pageSize,
		},
	}

	var result ResultPage
	if err := c.call(ctx, "getQueryRunResults", params, &result); err != nil {
		return nil, fmt.Errorf("failed to get results for query run %s: %w", queryRunID, err)
	}

	return &result, nil
}

// Query submits SQL, waits for the run to reach a terminal state, and returns
// all result rows as column-name keyed records.
func (c *Client) Query(ctx context.Context, sql string) ([]map[string]any, error) {
	run, err := c.CreateQueryRun(ctx, sql)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Query run created", zap.String("query_run_id", run.ID))

	run, err = c.waitForCompletion(ctx, run)
	if err != nil {
		return nil, err
	}

	var records []map[string]any
	for page := 1; ; page++ {
		results, err := c.GetQueryRunResults(ctx, run.ID, page, c.pageSize)
		if err != nil {
			return nil, err
		}

		for _, row := range results.Rows {
			record := make(map[string]any, len(results.ColumnNames))
			for i, name := range results.ColumnNames {
				if i < len(row) {
					record[name] = row[i]
				}
			}
			records = append(records, record)
		}

		if page >= results.Page.TotalPages {
			break
		}
	}

	c.logger.Info("Query results fetched",
		zap.String("query_run_id", run.ID),
		zap.Int("rows", len(records)),
	)
	return records, nil
}

// waitForCompletion polls the query run until it succeeds, fails, or the
// attempt budget is exhausted.
func (c *Client) waitForCompletion(ctx context.Context, run *QueryRun) (*QueryRun, error) {
	for attempt := 0; attempt < c.maxPollAttempts; attempt++ {
		switch run.State {
		case StateSuccess:
			return run, nil
		case StateFailed, StateCanceled:
			return nil, fmt.Errorf("query run %s ended in state %s: %s", run.ID, run.State, run.ErrorMessage)
		}

		select {
		case <-time.After(c.pollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		var err error
		run, err = c.GetQueryRun(ctx, run.ID)
		if err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("query run %s did not complete after %d polls", run.ID, c.maxPollAttempts)
}
