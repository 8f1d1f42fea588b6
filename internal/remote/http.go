package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/cartsync/internal/cart"
)

// IdempotencyHeader carries the request id of every mutating call.
const IdempotencyHeader = "Idempotency-Key"

// DefaultHTTPTimeout is the client-level timeout when none is configured.
const DefaultHTTPTimeout = 10 * time.Second

// HTTPClient talks to the structured cart endpoint:
//
//	POST   {base}/cart/items        {"productId","quantity"}
//	PUT    {base}/cart/items/{id}   {"quantity"}
//	DELETE {base}/cart/items/{id}
//	GET    {base}/cart/summary      -> {"itemCount","subtotal"}
//
// Any non-2xx status or transport error is REQUEST_FAILED.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.client = hc }
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient creates a client for baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) (*HTTPClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("remote: base URL is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("remote: invalid base URL %q: %w", baseURL, err)
	}

	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type addRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// Add implements engine.RemoteCartService.
func (c *HTTPClient) Add(ctx context.Context, id cart.ProductID, quantity int) error {
	body := addRequest{ProductID: string(id), Quantity: quantity}
	return c.mutate(ctx, id, "add", http.MethodPost, "/cart/items", body)
}

// SetQuantity implements engine.RemoteCartService.
func (c *HTTPClient) SetQuantity(ctx context.Context, id cart.ProductID, quantity int) error {
	body := setQuantityRequest{Quantity: quantity}
	return c.mutate(ctx, id, "set_quantity", http.MethodPut, itemPath(id), body)
}

// Remove implements engine.RemoteCartService.
func (c *HTTPClient) Remove(ctx context.Context, id cart.ProductID) error {
	return c.mutate(ctx, id, "remove", http.MethodDelete, itemPath(id), nil)
}

// FetchSummary implements engine.RemoteCartService.
func (c *HTTPClient) FetchSummary(ctx context.Context) (cart.Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cart/summary", nil)
	if err != nil {
		return cart.Summary{}, cart.NewRequestFailed("", "fetch_summary", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return cart.Summary{}, cart.NewRequestFailed("", "fetch_summary", err)
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		return cart.Summary{}, cart.NewRequestFailed("", "fetch_summary", err)
	}

	var summary cart.Summary
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&summary); err != nil {
		return cart.Summary{}, cart.NewRequestFailed("", "fetch_summary", fmt.Errorf("decode summary: %w", err))
	}
	return summary, nil
}

func (c *HTTPClient) mutate(ctx context.Context, id cart.ProductID, op, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return cart.NewRequestFailed(id, op, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return cart.NewRequestFailed(id, op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key, ok := cart.RequestIDFrom(ctx); ok {
		req.Header.Set(IdempotencyHeader, key)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return cart.NewRequestFailed(id, op, err)
	}
	defer res.Body.Close()

	if err := checkStatus(res); err != nil {
		c.logger.Debug("cart request rejected", "product", id, "op", op, "status", res.StatusCode)
		return cart.NewRequestFailed(id, op, err)
	}

	// Body is ignored on success; drain it so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<20))
	return nil
}

func checkStatus(res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	return fmt.Errorf("status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
}

func itemPath(id cart.ProductID) string {
	return "/cart/items/" + url.PathEscape(string(id))
}
