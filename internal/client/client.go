// Package client is a typed client for the portfolio HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iho/goportfolio/internal/adapter/http/dto"
	"github.com/iho/goportfolio/internal/adapter/http/middleware"
	"github.com/iho/goportfolio/internal/domain"
)

const ledgerPageSize = 500

// APIError is a non-2xx response from the API.
type APIError struct {
	Status   int
	Response dto.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Message != "" {
		return fmt.Sprintf("api returned %d: %s: %s", e.Status, e.Response.Error, e.Response.Message)
	}
	return fmt.Sprintf("api returned %d: %s", e.Status, e.Response.Error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// MaxRetries bounds retries of transport failures and 5xx responses.
	MaxRetries uint64
}

// Client calls the portfolio API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	maxRetries uint64
	newKey     func() string
}

// New creates a new Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		log:        cfg.Logger.With().Str("component", "api_client").Logger(),
		maxRetries: cfg.MaxRetries,
		newKey:     uuid.NewString,
	}
}

// do sends the request and decodes a 2xx body into out. Mutating requests
// carry one idempotency key across all retries.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = raw
	}

	var key string
	if method != http.MethodGet {
		key = c.newKey()
	}

	attempt := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if key != "" {
			req.Header.Set(middleware.IdempotencyKeyHeader, key)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			apiErr := &APIError{Status: resp.StatusCode}
			raw, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(raw, &apiErr.Response) != nil || apiErr.Response.Error == "" {
				apiErr.Response.Error = strings.TrimSpace(string(raw))
			}
			if resp.StatusCode >= http.StatusInternalServerError {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	return backoff.RetryNotify(attempt, policy, func(err error, wait time.Duration) {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Dur("wait", wait).Msg("retrying request")
	})
}

// CreatePortfolio creates a portfolio.
func (c *Client) CreatePortfolio(ctx context.Context, req dto.CreatePortfolioRequest) (*dto.PortfolioResponse, error) {
	var out dto.PortfolioResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/portfolios", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPortfolios lists portfolios.
func (c *Client) ListPortfolios(ctx context.Context, limit, offset int) ([]*dto.PortfolioResponse, error) {
	var out dto.ListPortfoliosResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/portfolios"+pageQuery(limit, offset), nil, &out); err != nil {
		return nil, err
	}
	return out.Portfolios, nil
}

// ListOperations returns one page of a portfolio's operations.
func (c *Client) ListOperations(ctx context.Context, portfolioID string, limit, offset int) ([]*dto.OperationResponse, error) {
	var out dto.ListOperationsResponse
	path := portfolioPath(portfolioID, "/operations") + pageQuery(limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Operations, nil
}

// Ledger fetches every operation of a portfolio as a domain ledger.
func (c *Client) Ledger(ctx context.Context, portfolioID string) (*domain.Ledger, error) {
	var ops []domain.Operation
	for offset := 0; ; offset += ledgerPageSize {
		page, err := c.ListOperations(ctx, portfolioID, ledgerPageSize, offset)
		if err != nil {
			return nil, err
		}
		for _, op := range page {
			ops = append(ops, op.ToDomain())
		}
		if len(page) < ledgerPageSize {
			break
		}
	}
	return domain.NewLedger(ops), nil
}

// CreateOperation records a buy or sell.
func (c *Client) CreateOperation(ctx context.Context, portfolioID string, req dto.CreateOperationRequest) (*dto.OperationResponse, error) {
	var out dto.OperationResponse
	if err := c.do(ctx, http.MethodPost, portfolioPath(portfolioID, "/operations"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditOperation patches an operation.
func (c *Client) EditOperation(ctx context.Context, portfolioID, operationID string, req dto.PatchOperationRequest) (*dto.OperationResponse, error) {
	var out dto.OperationResponse
	path := portfolioPath(portfolioID, "/operations/"+url.PathEscape(operationID))
	if err := c.do(ctx, http.MethodPatch, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteOperation removes an operation.
func (c *Client) DeleteOperation(ctx context.Context, portfolioID, operationID string) error {
	path := portfolioPath(portfolioID, "/operations/"+url.PathEscape(operationID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ValidateMutation asks the server whether a mutation would be accepted.
func (c *Client) ValidateMutation(ctx context.Context, portfolioID string, req dto.ValidateMutationRequest) (*dto.PreviewResponse, error) {
	var out dto.PreviewResponse
	if err := c.do(ctx, http.MethodPost, portfolioPath(portfolioID, "/operations/validate"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Holdings returns the positions of a portfolio, as of at when set.
func (c *Client) Holdings(ctx context.Context, portfolioID string, at *time.Time) (*dto.HoldingsResponse, error) {
	path := portfolioPath(portfolioID, "/holdings")
	if at != nil {
		path += "?at=" + url.QueryEscape(at.UTC().Format(time.RFC3339))
	}

	var out dto.HoldingsResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Valuation values a portfolio at the given prices.
func (c *Client) Valuation(ctx context.Context, portfolioID string, req dto.ValuationRequest) (*dto.ValuationResponse, error) {
	var out dto.ValuationResponse
	if err := c.do(ctx, http.MethodPost, portfolioPath(portfolioID, "/valuation"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rate returns the current exchange rate.
func (c *Client) Rate(ctx context.Context) (*dto.ExchangeRateResponse, error) {
	var out dto.ExchangeRateResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/rates", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LedgerConsistency runs the server-side reconciliation, scoped to one
// portfolio when portfolioID is set.
func (c *Client) LedgerConsistency(ctx context.Context, portfolioID string) (*dto.ConsistencyReportResponse, error) {
	path := "/api/v1/ledger/consistency"
	if portfolioID != "" {
		path += "?portfolio_id=" + url.QueryEscape(portfolioID)
	}

	var out dto.ConsistencyReportResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

func portfolioPath(portfolioID, suffix string) string {
	return "/api/v1/portfolios/" + url.PathEscape(portfolioID) + suffix
}

func pageQuery(limit, offset int) string {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}
