package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"storefront/internal/catalog"
	"storefront/internal/client"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/models"
	"storefront/internal/session"
)

const (
	ordersPage  = 1
	ordersLimit = 20
)

var (
	// ErrNoSession is returned when an admin operation runs without a token.
	ErrNoSession = errors.New("not logged in")

	// ErrSessionExpired matches every *ExpiredError.
	ErrSessionExpired = errors.New("session expired")

	ErrUnknownOrder  = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

// ExpiredError reports that the Catalog Service rejected the session token.
// The session has already been torn down; Redirect is where to send the user.
type ExpiredError struct {
	Redirect string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("session expired, log in again at %s", e.Redirect)
}

func (e *ExpiredError) Is(target error) bool { return target == ErrSessionExpired }

// OrdersClient is the order half of the Catalog Service.
type OrdersClient interface {
	ListOrders(ctx context.Context, token string, page, limit int) (*models.OrderPage, error)
	UpdateOrderStatus(ctx context.Context, token, id, status string) error
}

// OrdersView is the admin order table.
type OrdersView struct {
	client   OrdersClient
	sessions *session.Store
	metrics  *metrics.Registry
	logger   *zap.Logger

	mu     sync.RWMutex
	page   models.OrderPage
	err    error
	loaded bool
}

func NewOrdersView(c OrdersClient, sessions *session.Store, reg *metrics.Registry, logger *zap.Logger) *OrdersView {
	return &OrdersView{
		client:   c,
		sessions: sessions,
		metrics:  reg,
		logger:   logging.OrNop(logger),
		page:     models.OrderPage{Orders: []models.Order{}},
	}
}

// Load fetches the first page of orders with the current session token.
func (v *OrdersView) Load(ctx context.Context) error {
	token := v.sessions.Session().Token
	if token == "" {
		return ErrNoSession
	}

	page, err := v.client.ListOrders(ctx, token, ordersPage, ordersLimit)
	if err != nil {
		err = v.handleAuth(err)
		v.mu.Lock()
		v.err = err
		v.mu.Unlock()
		return err
	}

	if page.Orders == nil {
		page.Orders = []models.Order{}
	}

	v.mu.Lock()
	v.page = *page
	v.err = nil
	v.loaded = true
	v.mu.Unlock()

	v.logger.Debug("Orders loaded", zap.Int("count", len(page.Orders)), zap.Int("total", page.TotalOrders))
	return nil
}

// Orders returns every loaded order.
func (v *OrdersView) Orders() []models.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.page.Orders)
}

// Page returns the pagination metadata of the last load.
func (v *OrdersView) Page() models.OrderPage {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p := v.page
	p.Orders = slices.Clone(p.Orders)
	return p
}

// Loaded reports whether a load has succeeded since the last session expiry.
func (v *OrdersView) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

func (v *OrdersView) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.err
}

// Filter returns the loaded orders matching c, in load order.
func (v *OrdersView) Filter(c models.OrderCriteria) []models.Order {
	return FilterOrders(v.Orders(), c)
}

// FilterOrders keeps orders whose id, customer name or customer email
// contains the keyword (case-insensitive) and whose status matches.
func FilterOrders(orders []models.Order, c models.OrderCriteria) []models.Order {
	keyword := strings.ToLower(strings.TrimSpace(c.Keyword))
	status := c.Status

	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if keyword != "" &&
			!strings.Contains(strings.ToLower(o.ID), keyword) &&
			!strings.Contains(strings.ToLower(o.User.Name), keyword) &&
			!strings.Contains(strings.ToLower(o.User.Email), keyword) {
			continue
		}
		if status != "" && status != catalog.AllValues && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	return out
}

// UpdateStatus shows the new status immediately and then asks the Catalog
// Service to persist it. If the call fails the previous status is restored
// and the error returned. The restore is skipped when another update has
// changed the order in the meantime.
func (v *OrdersView) UpdateStatus(ctx context.Context, id, status string) error {
	if !slices.Contains(models.OrderStatuses, status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	token := v.sessions.Session().Token
	if token == "" {
		return ErrNoSession
	}

	previous, err := v.setStatus(id, status)
	if err != nil {
		return err
	}

	if err := v.client.UpdateOrderStatus(ctx, token, id, status); err != nil {
		if v.revertStatus(id, status, previous) {
			v.metrics.Reverted()
			v.logger.Error("Failed to update order status",
				zap.String("id", id),
				zap.String("status", status),
				zap.String("reverted_to", previous),
				zap.Error(err))
		} else {
			v.logger.Error("Failed to update order status, newer status kept",
				zap.String("id", id),
				zap.String("status", status),
				zap.Error(err))
		}
		return v.handleAuth(err)
	}

	v.logger.Info("Order status updated", zap.String("id", id), zap.String("status", status))
	return nil
}

func (v *OrdersView) setStatus(id, status string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	idx := slices.IndexFunc(v.page.Orders, func(o models.Order) bool { return o.ID == id })
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownOrder, id)
	}
	// Copy on write so snapshots handed out earlier stay unchanged.
	orders := slices.Clone(v.page.Orders)
	previous := orders[idx].Status
	orders[idx].Status = status
	v.page.Orders = orders
	return previous, nil
}

// revertStatus puts previous back only while the order still shows status.
func (v *OrdersView) revertStatus(id, status, previous string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	idx := slices.IndexFunc(v.page.Orders, func(o models.Order) bool { return o.ID == id })
	if idx < 0 || v.page.Orders[idx].Status != status {
		return false
	}
	orders := slices.Clone(v.page.Orders)
	orders[idx].Status = previous
	v.page.Orders = orders
	return true
}

// handleAuth tears the session down when err is a 401 and converts it into
// an *ExpiredError. Other errors pass through.
func (v *OrdersView) handleAuth(err error) error {
	if !errors.Is(err, client.ErrUnauthorized) {
		return err
	}

	v.metrics.Expired()
	v.logger.Warn("Session expired, logging out", zap.Error(err))
	if logoutErr := v.sessions.Logout(); logoutErr != nil {
		v.logger.Error("Failed to tear down session", zap.Error(logoutErr))
	}

	v.mu.Lock()
	v.page = models.OrderPage{Orders: []models.Order{}}
	v.loaded = false
	v.mu.Unlock()

	return &ExpiredError{Redirect: session.LoginPath}
}
