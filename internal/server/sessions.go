package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/services"
	"storefront/internal/session"
)

const (
	// SessionHeader carries the session id for API clients. Browsers get
	// the same id in SessionCookie.
	SessionHeader = "X-Session-ID"
	SessionCookie = "storefront_session"

	sessionIDKey    = "session_id"
	sessionStoreKey = "session_store"
)

// resolveSession attaches the caller's session, if it presented a known id,
// to the gin context. Unknown ids are ignored.
func (s *Server) resolveSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(SessionHeader)
		if id == "" {
			id, _ = c.Cookie(SessionCookie)
		}
		if id != "" {
			if store, ok := s.deps.Sessions.Get(id); ok {
				c.Set(sessionIDKey, id)
				c.Set(sessionStoreKey, store)
			}
		}
		c.Next()
	}
}

// callerSession returns the session resolved for this request.
func callerSession(c *gin.Context) (string, *session.Store, bool) {
	v, ok := c.Get(sessionStoreKey)
	if !ok {
		return "", nil, false
	}
	return c.GetString(sessionIDKey), v.(*session.Store), true
}

// ensureSession returns the caller's session, issuing a guest session when
// there is none.
func (s *Server) ensureSession(c *gin.Context) (*session.Store, error) {
	if _, store, ok := callerSession(c); ok {
		return store, nil
	}
	id, store, err := s.deps.Sessions.Create()
	if err != nil {
		return nil, err
	}
	issueSession(c, id, store)
	return store, nil
}

func issueSession(c *gin.Context, id string, store *session.Store) {
	c.Set(sessionIDKey, id)
	c.Set(sessionStoreKey, store)
	c.Header(SessionHeader, id)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
}

func clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", false, true)
}

// ordersView returns the admin order table of the caller's session. Callers
// without an authenticated session get services.ErrNoSession.
func (s *Server) ordersView(c *gin.Context) (*services.OrdersView, error) {
	id, store, ok := callerSession(c)
	if !ok || !store.Session().Authenticated() {
		return nil, services.ErrNoSession
	}

	s.viewsMu.Lock()
	defer s.viewsMu.Unlock()
	v, ok := s.views[id]
	if !ok {
		v = services.NewOrdersView(s.deps.Orders, store, s.deps.Metrics, s.logger.Named("orders").With(zap.String("session_id", id)))
		s.views[id] = v
	}
	return v, nil
}

func (s *Server) dropOrdersView(id string) {
	s.viewsMu.Lock()
	delete(s.views, id)
	s.viewsMu.Unlock()
}
