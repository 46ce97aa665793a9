package fakeapi

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Claims represents the JWT claims issued at login.
type Claims struct {
	Roles []string `json:"roles"`
	Email string   `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken signs a token for the given account.
func (s *Server) IssueToken(email string, roles []string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()

	now := time.Now()
	claims := Claims{
		Roles: roles,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// RotateSecret invalidates every token issued so far.
func (s *Server) RotateSecret() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = []byte(fmt.Sprintf("%s-rotated-%d", s.secret, time.Now().UnixNano()))
}

func (s *Server) parseToken(tokenStr string) (*Claims, error) {
	s.mu.Lock()
	secret := s.secret
	s.mu.Unlock()

	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token failed: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// requireAdmin rejects requests without a valid admin token.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearerToken(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := s.parseToken(tokenStr)
		if err != nil {
			s.logger.Debug("rejecting token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if !slices.Contains(claims.Roles, "admin") {
			writeError(w, http.StatusForbidden, "forbidden - admin role required")
			return
		}

		next(w, r)
	}
}
