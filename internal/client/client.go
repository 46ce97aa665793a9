// Package client talks to the remote Catalog Service: product listings,
// product detail, admin orders and login.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/pkg/utils"
)

const userAgent = "storefront/1.0"

// Client is safe for concurrent use. Each call runs on its own clone of the
// base collector, so callbacks never leak between requests.
type Client struct {
	baseURL   *url.URL
	collector *colly.Collector
	logger    *zap.Logger
	metrics   *metrics.Registry
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Client) { c.metrics = reg }
}

// WithTimeout bounds every call. Zero leaves calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.collector.SetRequestTimeout(d)
		}
	}
}

// New creates a client for the Catalog Service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	collector := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 4,
	}); err != nil {
		return nil, fmt.Errorf("collector limit: %w", err)
	}

	c := &Client{
		baseURL:   u,
		collector: collector,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)
	return c, nil
}

// ProductList is one listing response, unwrapped from whatever envelope the
// service used.
type ProductList struct {
	Products    []models.CatalogEntry
	CurrentPage int
	TotalPages  int
	Total       int
}

// LoginResult is the bearer token and account returned by a successful login.
type LoginResult struct {
	Token string
	User  models.User
}

// ListProducts calls GET /api/products. Only non-empty query fields are sent.
func (c *Client) ListProducts(ctx context.Context, q models.ListQuery) (*ProductList, error) {
	params := url.Values{}
	setParam(params, "gender", q.Gender)
	setParam(params, "category", q.Category)
	setParam(params, "keyword", q.Keyword)
	setParam(params, "onSale", q.OnSale)
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}

	body, err := c.do(ctx, "list products", http.MethodGet, "/api/products", params, "", nil)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(body, "products", "total", "totalProducts", "count")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	list := &ProductList{
		Products:    make([]models.CatalogEntry, 0, len(env.records)),
		CurrentPage: env.currentPage,
		TotalPages:  env.totalPages,
		Total:       env.total,
	}
	for _, r := range env.records {
		list.Products = append(list.Products, models.CatalogEntry(r))
	}
	c.logger.Debug("Fetched products",
		zap.String("query", params.Encode()),
		zap.Int("count", len(list.Products)))
	return list, nil
}

// GetProduct calls GET /api/products/{id}.
func (c *Client) GetProduct(ctx context.Context, id string) (models.CatalogEntry, error) {
	body, err := c.do(ctx, "get product", http.MethodGet, "/api/products/"+url.PathEscape(id), nil, "", nil)
	if err != nil {
		return nil, err
	}

	var entry models.CatalogEntry
	if err := json.Unmarshal(body, &entry); err != nil || entry == nil {
		return nil, fmt.Errorf("get product %s: %w", id, ErrMalformedResponse)
	}
	if nested, ok := entry["product"].(map[string]any); ok {
		entry = nested
	}
	return entry, nil
}

// ListOrders calls GET /api/orders with the bearer token.
func (c *Client) ListOrders(ctx context.Context, token string, page, limit int) (*models.OrderPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.do(ctx, "list orders", http.MethodGet, "/api/orders", params, token, nil)
	if err != nil {
		return nil, err
	}

	env, err := decodeEnvelope(body, "orders", "totalOrders", "total", "count")
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	out := &models.OrderPage{
		Orders:      make([]models.Order, 0, len(env.records)),
		CurrentPage: env.currentPage,
		TotalPages:  env.totalPages,
		TotalOrders: env.total,
	}
	for _, r := range env.records {
		out.Orders = append(out.Orders, catalog.NormalizeOrder(r))
	}
	return out, nil
}

// UpdateOrderStatus calls PUT /api/orders/{id}/status.
func (c *Client) UpdateOrderStatus(ctx context.Context, token, id, status string) error {
	path := "/api/orders/" + url.PathEscape(id) + "/status"
	_, err := c.do(ctx, "update order status", http.MethodPut, path, nil, token, map[string]string{"status": status})
	return err
}

// Login calls POST /api/auth/login. The service may return the account
// either flat next to the token or nested under "user".
func (c *Client) Login(ctx context.Context, creds models.Credentials) (*LoginResult, error) {
	body, err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", nil, "", creds)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("login: %w", ErrMalformedResponse)
	}

	res := &LoginResult{Token: utils.String(doc["token"])}
	if res.Token == "" {
		return nil, fmt.Errorf("login: missing token: %w", ErrMalformedResponse)
	}
	if user, ok := doc["user"].(map[string]any); ok {
		res.User = catalog.NormalizeUser(user)
	} else {
		res.User = catalog.NormalizeUser(doc)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, token string, body any) ([]byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	hdr := http.Header{}
	hdr.Set("Accept", "application/json")
	if token != "" {
		hdr.Set("Authorization", "Bearer "+token)
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		payload = bytes.NewReader(data)
		hdr.Set("Content-Type", "application/json")
	}

	collector := c.collector.Clone()
	if ctx != nil {
		collector.Context = ctx
	}

	var resp *colly.Response
	collector.OnResponse(func(r *colly.Response) {
		resp = r
	})

	start := time.Now()
	err := collector.Request(method, u.String(), payload, nil, hdr)

	code := 0
	if resp != nil {
		code = resp.StatusCode
	}
	c.metrics.ObserveUpstream(op, code, time.Since(start))

	if err != nil {
		c.logger.Warn("Catalog Service call failed",
			zap.String("operation", op),
			zap.String("url", u.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%s: no response", op)
	}
	if code < 200 || code > 299 {
		c.logger.Info("Catalog Service returned error status",
			zap.String("operation", op),
			zap.Int("status", code))
		return nil, &StatusError{Operation: op, StatusCode: code, Body: errorMessage(resp.Body)}
	}

	return resp.Body, nil
}

func setParam(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}

// errorMessage extracts a short message from an error response body.
func errorMessage(body []byte) string {
	var doc map[string]any
	if json.Unmarshal(body, &doc) == nil {
		for _, key := range []string{"message", "error"} {
			if msg := utils.String(doc[key]); msg != "" {
				return msg
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
