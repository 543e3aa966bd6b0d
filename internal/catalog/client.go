// Package catalog is the HTTP client for the storefront catalog API. The API
// wraps every response in a {success, data, error} envelope; a response with
// success=false is an error to the caller.
package catalog

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

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gowthamvetri/bestea/internal/domain"
)

const maxResponseBytes = 4 << 20 // 4MB

type HTTPClient struct {
	base    string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base: strings.TrimRight(base, "/"),
		httpc: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name: "catalog-api",
			// A caller hanging up is not an upstream failure.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *HTTPClient) ListProducts(ctx context.Context, q domain.ListingQuery) ([]domain.Product, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		query.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Sort != "" {
		query.Set("sort", q.Sort)
	}
	for k, v := range q.Filters {
		query.Set(k, v)
	}

	var products []domain.Product
	if err := c.call(ctx, http.MethodGet, "/products", query, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *HTTPClient) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var product domain.Product
	if err := c.call(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, nil, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (c *HTTPClient) BestSellers(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.call(ctx, http.MethodGet, "/products/best-sellers", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *HTTPClient) Featured(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := c.call(ctx, http.MethodGet, "/products/featured", nil, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *HTTPClient) Categories(ctx context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	if err := c.call(ctx, http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *HTTPClient) UpdateProduct(ctx context.Context, p domain.Product) error {
	return c.call(ctx, http.MethodPut, "/products/"+url.PathEscape(p.ID), nil, p, nil)
}

// call performs one API round-trip through the circuit breaker and decodes
// the envelope into out (when out is non-nil).
func (c *HTTPClient) call(ctx context.Context, method, path string, query url.Values, in, out any) error {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, query, in)
	})
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode catalog response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("catalog api: %s", env.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode catalog payload: %w", err)
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in any) ([]byte, error) {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("catalog api returned %d", resp.StatusCode)
	}
	return body, nil
}
