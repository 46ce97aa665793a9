package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storefront/internal/client"
	"storefront/internal/fakeapi"
	"storefront/internal/metrics"
	"storefront/internal/services"
	"storefront/internal/session"
	"storefront/internal/state"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreAnyFunction("net/http.(*persistConn).writeLoop"),
	)
}

type harness struct {
	handler http.Handler
	api     *fakeapi.Server
}

func newHarness(t *testing.T, rateLimit float64, burst int) *harness {
	t.Helper()
	api := fakeapi.New()
	upstream := httptest.NewServer(api)
	t.Cleanup(upstream.Close)

	reg := metrics.NewRegistry()
	c, err := client.New(upstream.URL, client.WithMetrics(reg), client.WithTimeout(5*time.Second))
	require.NoError(t, err)

	srv := New(Deps{
		Search:    services.NewSearchService(c, nil, reg, nil),
		Orders:    c,
		Sessions:  session.NewManager(state.NewInMemoryStore(), nil),
		Auth:      c,
		Metrics:   reg,
		RateLimit: rateLimit,
		RateBurst: burst,
	})
	return &harness{handler: srv.Handler(), api: api}
}

// do sends an anonymous request.
func (h *harness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return h.send(t, method, path, body, "")
}

func (h *harness) send(t *testing.T, method, path string, body any, sessionID string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

// caller is one client that replays the session id it was last issued.
type caller struct {
	h         *harness
	sessionID string
}

func (h *harness) caller() *caller { return &caller{h: h} }

func (c *caller) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec, out := c.h.send(t, method, path, body, c.sessionID)
	if id := rec.Header().Get(SessionHeader); id != "" {
		c.sessionID = id
	}
	return rec, out
}

func (c *caller) login(t *testing.T, email, password string) {
	t.Helper()
	rec, _ := c.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, c.sessionID)
}

func productNames(t *testing.T, body map[string]any) []string {
	t.Helper()
	raw, ok := body["products"].([]any)
	require.True(t, ok)
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		out = append(out, p.(map[string]any)["name"].(string))
	}
	return out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, 0, 0)

	rec, body := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "redis unavailable", body["cache"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCacheEndpointsWithoutRedis(t *testing.T) {
	h := newHarness(t, 0, 0)

	rec, _ := h.do(t, http.MethodGet, "/cache/stats", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec, _ = h.do(t, http.MethodDelete, "/cache/flush", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	h := newHarness(t, 0, 0)
	h.do(t, http.MethodGet, "/api/products", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_upstream_requests_total")
}

func TestListProducts(t *testing.T) {
	h := newHarness(t, 0, 0)

	rec, body := h.do(t, http.MethodGet, "/api/products?gender=Women&sort=price-low&priceRange=25-50", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Essential Cotton Tee", "Linen Summer Dress"}, productNames(t, body))
	assert.EqualValues(t, 2, body["total"])

	rec, body = h.do(t, http.MethodGet, "/api/products?onSale=true&sort=name", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Comfort Fit Joggers", "Denim Jacket"}, productNames(t, body))

	rec, body = h.do(t, http.MethodGet, "/api/products?size=XL&color=camel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Wool Overcoat"}, productNames(t, body))
}

func TestListProducts_BadParams(t *testing.T) {
	h := newHarness(t, 0, 0)

	rec, body := h.do(t, http.MethodGet, "/api/products?sort=popular", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestListProducts_UpstreamFailure(t *testing.T) {
	h := newHarness(t, 0, 0)
	h.api.FailNext(fakeapi.RouteProducts, http.StatusInternalServerError)

	rec, body := h.do(t, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_error", body["error"])

	rec, _ = h.do(t, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetProduct(t *testing.T) {
	h := newHarness(t, 0, 0)

	rec, body := h.do(t, http.MethodGet, "/api/products/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 49.99, body["displayPrice"])
	assert.Equal(t, 64.99, body["originalPrice"])

	rec, _ = h.do(t, http.MethodGet, "/api/products/404", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartFlow(t *testing.T) {
	h := newHarness(t, 0, 0)
	shopper := h.caller()

	rec, body := shopper.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
	assert.Empty(t, shopper.sessionID)

	rec, body = shopper.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "8", "size": "M", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "158.00", body["total"])
	require.NotEmpty(t, shopper.sessionID)

	rec, body = shopper.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "7"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])
	assert.Equal(t, "176.00", body["total"])

	rec, body = shopper.do(t, http.MethodPut, "/api/cart/items/8", map[string]any{"size": "M", "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "97.00", body["total"])

	rec, _ = shopper.do(t, http.MethodDelete, "/api/cart/items/8", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = shopper.do(t, http.MethodDelete, "/api/cart/items/8?size=M", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	// Another client never sees this cart.
	_, body = h.do(t, http.MethodGet, "/api/cart", nil)
	assert.EqualValues(t, 0, body["count"])

	rec, body = shopper.do(t, http.MethodDelete, "/api/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])

	rec, _ = shopper.do(t, http.MethodPost, "/api/cart/items", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWishlistFlow(t *testing.T) {
	h := newHarness(t, 0, 0)
	shopper := h.caller()

	rec, _ := shopper.do(t, http.MethodPost, "/api/wishlist/items", map[string]any{"productId": "1"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body := shopper.do(t, http.MethodPost, "/api/wishlist/items", map[string]any{"productId": "1"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["items"], 1)

	_, body = h.do(t, http.MethodGet, "/api/wishlist", nil)
	assert.Empty(t, body["items"])

	rec, body = shopper.do(t, http.MethodDelete, "/api/wishlist/items/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["items"])
}

func TestLoginRedirects(t *testing.T) {
	h := newHarness(t, 0, 0)

	rec, body := h.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "jane@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/auth/login", body["details"])
	assert.Empty(t, rec.Header().Get(SessionHeader))

	rec, body = h.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "jane@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", body["redirect"])
	assert.Equal(t, rec.Header().Get(SessionHeader), body["sessionId"])

	rec, body = h.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email": "admin@example.com", "password": "admin123", "redirect": "/checkout",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/checkout", body["redirect"])

	admin := h.caller()
	rec, body = admin.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "admin@example.com", "password": "admin123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/admin", body["redirect"])

	_, body = admin.do(t, http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, true, body["authenticated"])
	_, body = h.do(t, http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, false, body["authenticated"])

	admin.do(t, http.MethodPost, "/api/auth/logout", nil)
	_, body = admin.do(t, http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, false, body["authenticated"])
}

func TestLogin_SessionCookie(t *testing.T) {
	h := newHarness(t, 0, 0)

	rec, _ := h.do(t, http.MethodPost, "/api/auth/login", map[string]any{"email": "jane@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == SessionCookie {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: cookie.Value})
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
}

func TestLogin_KeepsGuestCart(t *testing.T) {
	h := newHarness(t, 0, 0)
	shopper := h.caller()

	rec, _ := shopper.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "7"})
	require.Equal(t, http.StatusOK, rec.Code)
	guestID := shopper.sessionID

	shopper.login(t, "jane@example.com", "secret")
	assert.NotEqual(t, guestID, shopper.sessionID)

	_, body := shopper.do(t, http.MethodGet, "/api/cart", nil)
	assert.EqualValues(t, 1, body["count"])

	// The guest id no longer resolves.
	_, body = h.send(t, http.MethodGet, "/api/cart", nil, guestID)
	assert.EqualValues(t, 0, body["count"])
}

func TestAdminOrders(t *testing.T) {
	h := newHarness(t, 0, 0)

	rec, _ := h.do(t, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := h.caller()
	admin.login(t, "admin@example.com", "admin123")

	rec, body := admin.do(t, http.MethodGet, "/api/admin/orders?keyword=jane&status=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["orders"], 1)
	assert.EqualValues(t, 4, body["totalOrders"])

	rec, body = admin.do(t, http.MethodPut, "/api/admin/orders/ord-1001/status", map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", body["status"])

	rec, _ = admin.do(t, http.MethodPut, "/api/admin/orders/ord-1001/status", map[string]any{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.api.RotateSecret()
	rec, body = admin.do(t, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "session_expired", body["error"])
	assert.Equal(t, "/auth/login", body["details"])

	_, body = admin.do(t, http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, false, body["authenticated"])
}

func TestAdminOrders_OtherCallersGetUnauthorized(t *testing.T) {
	h := newHarness(t, 0, 0)
	admin := h.caller()
	admin.login(t, "admin@example.com", "admin123")
	rec, _ := admin.do(t, http.MethodGet, "/api/admin/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	guest := h.caller()
	rec, _ = guest.do(t, http.MethodPost, "/api/cart/items", map[string]any{"productId": "7"})
	require.Equal(t, http.StatusOK, rec.Code)
	forged := &caller{h: h, sessionID: "9b2f0c1e-4a55-4f43-9a43-3c5d2b1d7e10"}

	for name, do := range map[string]func(*testing.T, string, string, any) (*httptest.ResponseRecorder, map[string]any){
		"anonymous":  h.do,
		"guest":      guest.do,
		"unknown id": forged.do,
	} {
		t.Run(name, func(t *testing.T) {
			rec, body := do(t, http.MethodGet, "/api/admin/orders", nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "unauthorized", body["error"])

			rec, _ = do(t, http.MethodPut, "/api/admin/orders/ord-1001/status", map[string]any{"status": "cancelled"})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	stored, ok := h.api.Order("ord-1001")
	require.True(t, ok)
	assert.Equal(t, "pending", stored["status"])
	assert.Zero(t, h.api.Calls(fakeapi.RouteOrderStatus))

	// Logging out without the admin's id leaves the admin signed in.
	rec, _ = h.do(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = guest.do(t, http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, body := admin.do(t, http.MethodGet, "/api/auth/session", nil)
	assert.Equal(t, true, body["authenticated"])
	_, body = admin.do(t, http.MethodGet, "/api/cart", nil)
	assert.EqualValues(t, 0, body["count"])
	rec, _ = admin.do(t, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminOrders_CustomerForbidden(t *testing.T) {
	h := newHarness(t, 0, 0)
	jane := h.caller()
	jane.login(t, "jane@example.com", "secret")

	rec, _ := jane.do(t, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, 0.001, 2)

	for range 2 {
		rec, _ := h.do(t, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec, body := h.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limit_exceeded", body["error"])
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, 0, 0)

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
