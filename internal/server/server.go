// Package server exposes the storefront over HTTP: product listings backed
// by the Catalog Service, the cart and wishlist, login and the admin order
// table.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/client"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/session"
	"storefront/pkg/cache"
)

const serviceName = "storefront"

// Deps are the components the HTTP surface is built from. Cache and Metrics
// may be nil.
type Deps struct {
	Search    *services.SearchService
	Orders    services.OrdersClient
	Sessions  *session.Manager
	Auth      session.Authenticator
	Cache     *cache.RedisCache
	Metrics   *metrics.Registry
	Logger    *zap.Logger
	RateLimit float64
	RateBurst int
}

type Server struct {
	deps    Deps
	logger  *zap.Logger
	limiter *ipLimiter
	engine  *gin.Engine

	viewsMu sync.Mutex
	views   map[string]*services.OrdersView
}

func New(deps Deps) *Server {
	s := &Server{
		deps:   deps,
		logger: logging.OrNop(deps.Logger),
		views:  make(map[string]*services.OrdersView),
	}
	if deps.RateLimit > 0 {
		s.limiter = newIPLimiter(deps.RateLimit, max(deps.RateBurst, 1))
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware(), requestLogger(s.logger), s.resolveSession())
	if s.limiter != nil {
		r.Use(s.limiter.middleware())
	}

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	if s.limiter != nil {
		r.GET("/rate-limit/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.limiter.status(c.ClientIP()))
		})
	}
	r.GET("/cache/stats", s.cacheStats)
	r.GET("/cache/debug", s.cacheDebug)
	r.DELETE("/cache/flush", s.cacheFlush)

	api := r.Group("/api")
	api.GET("/products", s.listProducts)
	api.GET("/products/:id", s.getProduct)

	auth := api.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/logout", s.logout)
	auth.GET("/session", s.currentSession)

	cart := api.Group("/cart")
	cart.GET("", s.getCart)
	cart.POST("/items", s.addCartItem)
	cart.PUT("/items/:id", s.updateCartItem)
	cart.DELETE("/items/:id", s.removeCartItem)
	cart.DELETE("", s.clearCart)

	wishlist := api.Group("/wishlist")
	wishlist.GET("", s.getWishlist)
	wishlist.POST("/items", s.addWishlistItem)
	wishlist.DELETE("/items/:id", s.removeWishlistItem)

	admin := api.Group("/admin")
	admin.GET("/orders", s.listOrders)
	admin.PUT("/orders/:id/status", s.updateOrderStatus)

	return r
}

func (s *Server) health(c *gin.Context) {
	health := gin.H{
		"status":  "healthy",
		"service": serviceName,
	}
	if s.deps.Cache.IsAvailable() {
		health["cache"] = "redis connected"
	} else {
		health["cache"] = "redis unavailable"
	}
	c.JSON(http.StatusOK, health)
}

func (s *Server) cacheStats(c *gin.Context) {
	if !s.deps.Cache.IsAvailable() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache not available"})
		return
	}
	c.JSON(http.StatusOK, s.deps.Cache.GetStats(c.Request.Context()))
}

func (s *Server) cacheDebug(c *gin.Context) {
	if !s.deps.Cache.IsAvailable() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache not available"})
		return
	}

	ctx := c.Request.Context()
	keys := s.deps.Cache.GetAllKeys(ctx)
	details := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		ttl := s.deps.Cache.GetKeyTTL(ctx, key)
		details = append(details, gin.H{
			"key":         key,
			"ttl_seconds": int(ttl.Seconds()),
			"expires_in":  ttl.String(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"total_keys": len(keys),
		"cache_keys": details,
		"timestamp":  time.Now().Format(time.RFC3339),
	})
}

func (s *Server) cacheFlush(c *gin.Context) {
	if !s.deps.Cache.IsAvailable() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cache not available"})
		return
	}

	n, err := s.deps.Cache.FlushCache(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "failed to flush cache",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "cache flushed successfully",
		"deleted":   n,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// respondError maps domain errors onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	resp := models.ErrorResponse{Message: err.Error()}

	var expired *services.ExpiredError
	switch {
	case errors.As(err, &expired):
		status, code = http.StatusUnauthorized, "session_expired"
		resp.Details = expired.Redirect
	case errors.Is(err, services.ErrNoSession), errors.Is(err, client.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "unauthorized"
		resp.Details = session.LoginPath
	case errors.Is(err, services.ErrInvalidParams),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, session.ErrInvalidIntent):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, client.ErrNotFound),
		errors.Is(err, services.ErrUnknownOrder),
		errors.Is(err, session.ErrUnknownItem):
		status, code = http.StatusNotFound, "not_found"
	case client.StatusCode(err) == http.StatusForbidden:
		status, code = http.StatusForbidden, "forbidden"
	case client.StatusCode(err) != 0, errors.Is(err, client.ErrMalformedResponse):
		status, code = http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "upstream_timeout"
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}

	resp.Error = code
	resp.Code = status
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Code:    http.StatusBadRequest,
		Message: message,
	})
}
