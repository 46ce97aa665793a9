package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/session"
)

// listProducts handles GET /api/products
func (s *Server) listProducts(c *gin.Context) {
	params := parseSearchParams(c)

	results, err := s.deps.Search.SearchProducts(c.Request.Context(), params)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// getProduct handles GET /api/products/:id
func (s *Server) getProduct(c *gin.Context) {
	p, err := s.deps.Search.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	body := gin.H{"product": p, "displayPrice": p.DisplayPrice()}
	if original, ok := p.OriginalPrice(); ok {
		body["originalPrice"] = original
	}
	c.JSON(http.StatusOK, body)
}

// parseSearchParams splits the query string into what is sent upstream
// (gender, category, keyword, onSale) and what is applied locally.
func parseSearchParams(c *gin.Context) models.SearchParams {
	query := models.ListQuery{
		Gender:   c.Query("gender"),
		Category: c.Query("category"),
		Keyword:  c.Query("keyword"),
		OnSale:   c.Query("onSale"),
	}

	criteria := query.Criteria()
	criteria.Color = c.Query("color")
	criteria.Size = c.Query("size")
	criteria.PriceRange = c.Query("priceRange")
	criteria.OnSale = query.OnSale == "true"

	return models.SearchParams{
		Query:    query,
		Criteria: criteria,
		Sort:     models.SortKey(c.Query("sort")),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	}
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Redirect string `json:"redirect"`
}

// login handles POST /api/auth/login
func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	previousID, _, _ := callerSession(c)
	id, sess, err := s.deps.Sessions.Login(c.Request.Context(), s.deps.Auth, models.Credentials{
		Email:    req.Email,
		Password: req.Password,
	}, previousID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if previousID != "" {
		s.dropOrdersView(previousID)
	}

	store, _ := s.deps.Sessions.Get(id)
	issueSession(c, id, store)
	c.JSON(http.StatusOK, gin.H{
		"sessionId": id,
		"user":      sess.User,
		"redirect":  session.RedirectAfterLogin(req.Redirect, sess.User),
	})
}

// logout handles POST /api/auth/logout. Only the caller's own session ends.
func (s *Server) logout(c *gin.Context) {
	id, _, ok := callerSession(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
		return
	}

	s.dropOrdersView(id)
	clearSession(c)
	if err := s.deps.Sessions.Remove(id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// currentSession handles GET /api/auth/session
func (s *Server) currentSession(c *gin.Context) {
	var sess session.Session
	if _, store, ok := callerSession(c); ok {
		sess = store.Session()
	}
	body := gin.H{"authenticated": sess.Authenticated()}
	if sess.Authenticated() {
		body["user"] = sess.User
	}
	c.JSON(http.StatusOK, body)
}

func cartBody(cart session.Cart) gin.H {
	return gin.H{
		"items": cart.Items,
		"count": cart.Count(),
		"total": cart.Total().StringFixed(2),
	}
}

type itemRequest struct {
	ProductID string `json:"productId"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

func (s *Server) getCart(c *gin.Context) {
	cart := session.Cart{Items: []session.CartItem{}}
	if _, store, ok := callerSession(c); ok {
		cart = store.Cart()
	}
	c.JSON(http.StatusOK, cartBody(cart))
}

// dispatchCart applies in to the caller's cart, issuing a guest session
// first if needed.
func (s *Server) dispatchCart(c *gin.Context, in session.Intent) {
	store, err := s.ensureSession(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	cart, err := store.DispatchCart(in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cartBody(cart))
}

func (s *Server) dispatchWishlist(c *gin.Context, in session.Intent) {
	store, err := s.ensureSession(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	w, err := store.DispatchWishlist(in)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// addCartItem handles POST /api/cart/items. The product is looked up so the
// line carries the current name, display price and image.
func (s *Server) addCartItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
		badRequest(c, "productId is required")
		return
	}

	p, err := s.deps.Search.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.dispatchCart(c, session.Intent{
		Type:     session.AddItem,
		Product:  &p,
		Size:     req.Size,
		Color:    req.Color,
		Quantity: req.Quantity,
	})
}

// updateCartItem handles PUT /api/cart/items/:id
func (s *Server) updateCartItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	s.dispatchCart(c, session.Intent{
		Type:      session.SetQuantity,
		ProductID: c.Param("id"),
		Size:      req.Size,
		Color:     req.Color,
		Quantity:  req.Quantity,
	})
}

// removeCartItem handles DELETE /api/cart/items/:id?size=&color=
func (s *Server) removeCartItem(c *gin.Context) {
	s.dispatchCart(c, session.Intent{
		Type:      session.RemoveItem,
		ProductID: c.Param("id"),
		Size:      c.Query("size"),
		Color:     c.Query("color"),
	})
}

func (s *Server) clearCart(c *gin.Context) {
	s.dispatchCart(c, session.Intent{Type: session.Clear})
}

func (s *Server) getWishlist(c *gin.Context) {
	w := session.Wishlist{Items: []session.WishlistItem{}}
	if _, store, ok := callerSession(c); ok {
		w = store.Wishlist()
	}
	c.JSON(http.StatusOK, w)
}

// addWishlistItem handles POST /api/wishlist/items
func (s *Server) addWishlistItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ProductID == "" {
		badRequest(c, "productId is required")
		return
	}

	p, err := s.deps.Search.GetProduct(c.Request.Context(), req.ProductID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.dispatchWishlist(c, session.Intent{Type: session.AddItem, Product: &p})
}

// removeWishlistItem handles DELETE /api/wishlist/items/:id
func (s *Server) removeWishlistItem(c *gin.Context) {
	s.dispatchWishlist(c, session.Intent{
		Type:      session.RemoveItem,
		ProductID: c.Param("id"),
	})
}

// listOrders handles GET /api/admin/orders?keyword=&status=
func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.ordersView(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := orders.Load(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}

	page := orders.Page()
	c.JSON(http.StatusOK, gin.H{
		"orders": orders.Filter(models.OrderCriteria{
			Keyword: c.Query("keyword"),
			Status:  c.Query("status"),
		}),
		"currentPage": page.CurrentPage,
		"totalPages":  page.TotalPages,
		"totalOrders": page.TotalOrders,
		"statuses":    models.OrderStatuses,
	})
}

// updateOrderStatus handles PUT /api/admin/orders/:id/status
func (s *Server) updateOrderStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}

	orders, err := s.ordersView(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !orders.Loaded() {
		if err := orders.Load(c.Request.Context()); err != nil {
			s.respondError(c, err)
			return
		}
	}

	id := c.Param("id")
	if err := orders.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		s.respondError(c, err)
		return
	}

	for _, o := range orders.Orders() {
		if o.ID == id {
			c.JSON(http.StatusOK, o)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"_id": id, "status": req.Status})
}
