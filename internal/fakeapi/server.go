// Package fakeapi is an in-process Catalog Service. It serves the same
// routes as the real backend from in-memory data and lets callers queue
// failures, which makes it usable both for tests and for local development.
package fakeapi

import (
	"encoding/json"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront/internal/logging"
	"storefront/pkg/utils"
)

// Route names accepted by FailNext and Calls.
const (
	RouteProducts    = "products"
	RouteProduct     = "product"
	RouteLogin       = "login"
	RouteOrders      = "orders"
	RouteOrderStatus = "order-status"
)

type account struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}

type Server struct {
	mu       sync.Mutex
	products []map[string]any
	orders   []map[string]any
	accounts []account
	secret   []byte
	bare     bool
	failures map[string][]int
	calls    map[string]int

	router *mux.Router
	logger *zap.Logger
}

type Option func(*Server)

// WithBareArrays makes product listings return a bare JSON array instead
// of the paginated envelope.
func WithBareArrays() Option {
	return func(s *Server) { s.bare = true }
}

func WithProducts(products []map[string]any) Option {
	return func(s *Server) { s.products = products }
}

func WithOrders(orders []map[string]any) Option {
	return func(s *Server) { s.orders = orders }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New returns a server seeded with sample data and two accounts:
// admin@example.com / admin123 (admin) and jane@example.com / secret (customer).
func New(opts ...Option) *Server {
	s := &Server{
		products: SampleProducts(),
		orders:   SampleOrders(),
		accounts: []account{
			{ID: "u1", Name: "Admin", Email: "admin@example.com", Password: "admin123", Role: "admin"},
			{ID: "u2", Name: "Jane Doe", Email: "jane@example.com", Password: "secret", Role: "customer"},
		},
		secret:   []byte("fakeapi-secret"),
		failures: make(map[string][]int),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)

	r := mux.NewRouter()
	r.HandleFunc("/api/products", s.counted(RouteProducts, s.listProducts)).Methods(http.MethodGet)
	r.HandleFunc("/api/products/{id}", s.counted(RouteProduct, s.getProduct)).Methods(http.MethodGet)
	r.HandleFunc("/api/auth/login", s.counted(RouteLogin, s.login)).Methods(http.MethodPost)
	r.HandleFunc("/api/orders", s.counted(RouteOrders, s.requireAdmin(s.listOrders))).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/{id}/status", s.counted(RouteOrderStatus, s.requireAdmin(s.updateOrderStatus))).Methods(http.MethodPut)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailNext makes the next call to route answer with status instead of being
// served. Calls queue up in order.
func (s *Server) FailNext(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], status)
}

// Calls returns how many requests reached route.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Order returns a copy of the stored order with the given id.
func (s *Server) Order(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if utils.String(o["_id"]) == id {
			return clone(o), true
		}
	}
	return nil, false
}

func (s *Server) counted(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[route]++
		var status int
		if queued := s.failures[route]; len(queued) > 0 {
			status = queued[0]
			s.failures[route] = queued[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			s.logger.Debug("injected failure", zap.String("route", route), zap.Int("status", status))
			writeError(w, status, http.StatusText(status))
			return
		}
		next(w, r)
	}
}

// listProducts handles GET /api/products
func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	s.mu.Lock()
	matched := make([]map[string]any, 0, len(s.products))
	for _, p := range s.products {
		if matchesQuery(p, q) {
			matched = append(matched, clone(p))
		}
	}
	bare := s.bare
	s.mu.Unlock()

	total := len(matched)
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	totalPages := 1
	if limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(limit)))
		start := min((page-1)*limit, total)
		end := min(start+limit, total)
		matched = matched[start:end]
	}

	if bare {
		writeJSON(w, http.StatusOK, matched)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":    matched,
		"currentPage": page,
		"totalPages":  totalPages,
		"total":       total,
	})
}

func matchesQuery(p map[string]any, q map[string][]string) bool {
	get := func(k string) string {
		if v := q[k]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	if g := get("gender"); g != "" && !strings.EqualFold(utils.String(p["gender"]), g) {
		return false
	}
	if c := get("category"); c != "" && !strings.EqualFold(utils.String(p["category"]), c) {
		return false
	}
	if k := get("keyword"); k != "" && !strings.Contains(strings.ToLower(utils.String(p["name"])), strings.ToLower(k)) {
		return false
	}
	if get("onSale") == "true" && !utils.Bool(p["onSale"]) {
		return false
	}
	return true
}

// getProduct handles GET /api/products/{id}
func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if utils.String(p["id"]) == id {
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeError(w, http.StatusNotFound, "product not found")
}

// login handles POST /api/auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	idx := slices.IndexFunc(s.accounts, func(a account) bool {
		return strings.EqualFold(a.Email, req.Email) && a.Password == req.Password
	})
	if idx < 0 {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	acct := s.accounts[idx]

	token, err := s.IssueToken(acct.Email, []string{acct.Role}, time.Hour)
	if err != nil {
		s.logger.Error("sign token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"_id":   acct.ID,
		"name":  acct.Name,
		"email": acct.Email,
		"role":  acct.Role,
		"token": token,
	})
}

// listOrders handles GET /api/orders (admin only)
func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	total := len(s.orders)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	orders := make([]map[string]any, 0, end-start)
	for _, o := range s.orders[start:end] {
		orders = append(orders, clone(o))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"orders":      orders,
		"currentPage": page,
		"totalPages":  int(math.Ceil(float64(total) / float64(limit))),
		"totalOrders": total,
	})
}

// updateOrderStatus handles PUT /api/orders/{id}/status (admin only)
func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if utils.String(o["_id"]) == id {
			o["status"] = req.Status
			writeJSON(w, http.StatusOK, o)
			return
		}
	}
	writeError(w, http.StatusNotFound, "order not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
