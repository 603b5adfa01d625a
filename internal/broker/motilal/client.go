// Package motilal - реализация broker.Capability поверх Motilal Oswal
// OpenAPI (MOFSL).
package motilal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mt_trader/internal/broker"
	"mt_trader/internal/httpmiddleware"
)

const (
	DefaultBaseURL = "https://openapi.motilaloswal.com"

	// Клиентская идентификация, которую требует MOFSL API
	sourceID       = "Desktop"
	browserName    = "chrome"
	browserVersion = "104"

	loginEndpoint         = "/rest/login/v3/authdirectapi"
	placeOrderEndpoint    = "/rest/trans/v1/placeorder"
	cancelOrderEndpoint   = "/rest/trans/v2/cancelorder"
	orderBookEndpoint     = "/rest/book/v2/getorderbook"
	positionsEndpoint     = "/rest/book/v1/getposition"
	holdingsEndpoint      = "/rest/report/v1/getdpholding"
	ltpEndpoint           = "/rest/report/v1/getltpdata"
	convertEndpoint       = "/rest/trans/v1/positionconversion"
	marginSummaryEndpoint = "/rest/report/v1/getreportmarginsummary"
)

// Client - клиент MOFSL API для одного аккаунта
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.RWMutex
	authToken string
	clientID  string
}

// New создаёт клиент под api ключ аккаунта
func New(apiKey, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: httpmiddleware.Wrap(
			httpmiddleware.BaseTransport(),
			httpmiddleware.ReplayableBody,
			httpmiddleware.Logger(logger, 0),
		),
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NewFactory возвращает фабрику подключений для Session Registry
func NewFactory(baseURL string, logger *slog.Logger) broker.Factory {
	return func(apiKey string) broker.Capability {
		return New(apiKey, baseURL, logger)
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MOFSL/V.1.1.0")
	req.Header.Set("ApiKey", c.apiKey)
	req.Header.Set("SourceId", sourceID)
	req.Header.Set("browsername", browserName)
	req.Header.Set("browserversion", browserVersion)

	c.mu.RLock()
	if c.authToken != "" {
		req.Header.Set("Authorization", c.authToken)
	}
	if c.clientID != "" {
		req.Header.Set("vendorinfo", c.clientID)
	}
	c.mu.RUnlock()
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: status %d: %s", endpoint, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response %s: %w", endpoint, err)
	}

	return nil
}

func (c *Client) Login(ctx context.Context, req broker.LoginRequest) (broker.LoginResponse, error) {
	var resp broker.LoginResponse
	if err := c.post(ctx, loginEndpoint, req, &resp); err != nil {
		return broker.LoginResponse{}, err
	}

	if resp.Status == broker.StatusSuccess {
		c.mu.Lock()
		c.authToken = resp.AuthToken
		c.clientID = req.ClientCode
		c.mu.Unlock()
	}

	return resp, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	var resp broker.OrderResponse
	if err := c.post(ctx, placeOrderEndpoint, req, &resp); err != nil {
		return broker.OrderResponse{}, err
	}

	return resp, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID, accountID string) (broker.CancelResponse, error) {
	payload := map[string]string{
		"uniqueorderid": orderID,
		"clientcode":    accountID,
	}

	var resp broker.CancelResponse
	if err := c.post(ctx, cancelOrderEndpoint, payload, &resp); err != nil {
		return broker.CancelResponse{}, err
	}

	return resp, nil
}

func (c *Client) OrderBook(ctx context.Context, req broker.OrderBookRequest) (broker.OrderBookResponse, error) {
	var resp broker.OrderBookResponse
	if err := c.post(ctx, orderBookEndpoint, req, &resp); err != nil {
		return broker.OrderBookResponse{}, err
	}

	return resp, nil
}

func (c *Client) Positions(ctx context.Context) (broker.PositionsResponse, error) {
	c.mu.RLock()
	clientID := c.clientID
	c.mu.RUnlock()

	payload := map[string]string{"clientcode": clientID}

	var resp broker.PositionsResponse
	if err := c.post(ctx, positionsEndpoint, payload, &resp); err != nil {
		return broker.PositionsResponse{}, err
	}

	return resp, nil
}

func (c *Client) Holdings(ctx context.Context, accountID string) (broker.HoldingsResponse, error) {
	payload := map[string]string{"clientcode": accountID}

	var resp broker.HoldingsResponse
	if err := c.post(ctx, holdingsEndpoint, payload, &resp); err != nil {
		return broker.HoldingsResponse{}, err
	}

	return resp, nil
}

func (c *Client) LTP(ctx context.Context, req broker.LTPRequest) (broker.LTPResponse, error) {
	var resp broker.LTPResponse
	if err := c.post(ctx, ltpEndpoint, req, &resp); err != nil {
		return broker.LTPResponse{}, err
	}

	return resp, nil
}

func (c *Client) ConvertPosition(ctx context.Context, req broker.ConvertRequest) (broker.ConvertResponse, error) {
	var resp broker.ConvertResponse
	if err := c.post(ctx, convertEndpoint, req, &resp); err != nil {
		return broker.ConvertResponse{}, err
	}

	return resp, nil
}

func (c *Client) MarginSummary(ctx context.Context, accountID string) (broker.MarginSummaryResponse, error) {
	payload := map[string]string{"clientcode": accountID}

	var resp broker.MarginSummaryResponse
	if err := c.post(ctx, marginSummaryEndpoint, payload, &resp); err != nil {
		return broker.MarginSummaryResponse{}, err
	}

	return resp, nil
}
