// Package session holds the auth session, cart and wishlist of one caller.
// A Manager keeps one Store per session id.
//
// Views never touch the state directly: they read snapshots and dispatch
// intents. Every change is persisted through a state.Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"storefront/internal/client"
	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/state"
)

const (
	keySession  = "session"
	keyCart     = "cart"
	keyWishlist = "wishlist"

	// LoginPath is where an expired or missing session sends the user.
	LoginPath = "/auth/login"
)

// Session is the authenticated account and its opaque bearer token.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s Session) Authenticated() bool { return s.Token != "" }

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, creds models.Credentials) (*client.LoginResult, error)
}

type Store struct {
	mu       sync.RWMutex
	backend  state.Store
	prefix   string
	logger   *zap.Logger
	session  Session
	cart     Cart
	wishlist Wishlist
	restored bool
}

// Init creates an unscoped store and restores whatever was persisted in
// backend under the bare keys.
func Init(backend state.Store, logger *zap.Logger) (*Store, error) {
	return open(backend, "", logger)
}

// Open creates the store of session id. Its keys live under "session/<id>/".
func Open(backend state.Store, id string, logger *zap.Logger) (*Store, error) {
	return open(backend, "session/"+id+"/", logging.OrNop(logger).With(zap.String("session_id", id)))
}

func open(backend state.Store, prefix string, logger *zap.Logger) (*Store, error) {
	s := &Store{
		backend:  backend,
		prefix:   prefix,
		logger:   logging.OrNop(logger),
		cart:     Cart{Items: []CartItem{}},
		wishlist: Wishlist{Items: []WishlistItem{}},
	}

	for key, dst := range map[string]any{
		keySession:  &s.session,
		keyCart:     &s.cart,
		keyWishlist: &s.wishlist,
	} {
		err := state.Load(backend, s.key(key), dst)
		switch {
		case err == nil:
			s.restored = true
		case !errors.Is(err, state.ErrNotFound):
			return nil, fmt.Errorf("restore %s: %w", key, err)
		}
	}
	if s.cart.Items == nil {
		s.cart.Items = []CartItem{}
	}
	if s.wishlist.Items == nil {
		s.wishlist.Items = []WishlistItem{}
	}

	if s.restored {
		s.logger.Info("Session state restored",
			zap.Bool("authenticated", s.session.Authenticated()),
			zap.Int("cart_items", len(s.cart.Items)),
			zap.Int("wishlist_items", len(s.wishlist.Items)))
	}
	return s, nil
}

func (s *Store) key(name string) string { return s.prefix + name }

func (s *Store) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *Store) Cart() Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.clone()
}

func (s *Store) Wishlist() Wishlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Wishlist{Items: append([]WishlistItem{}, s.wishlist.Items...)}
}

// DispatchCart applies an intent to the cart and returns the new cart.
func (s *Store) DispatchCart(in Intent) (Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.cart.apply(in)
	if err != nil {
		return s.cart.clone(), err
	}
	s.cart = next
	if err := state.Save(s.backend, s.key(keyCart), s.cart); err != nil {
		s.logger.Error("Failed to persist cart", zap.Error(err))
		return s.cart.clone(), err
	}
	return s.cart.clone(), nil
}

// DispatchWishlist applies an intent to the wishlist and returns the new
// wishlist.
func (s *Store) DispatchWishlist(in Intent) (Wishlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.wishlist.apply(in)
	if err != nil {
		return s.wishlist, err
	}
	s.wishlist = next
	if err := state.Save(s.backend, s.key(keyWishlist), s.wishlist); err != nil {
		s.logger.Error("Failed to persist wishlist", zap.Error(err))
		return s.wishlist, err
	}
	return Wishlist{Items: append([]WishlistItem{}, s.wishlist.Items...)}, nil
}

// Login authenticates and stores the resulting session.
func (s *Store) Login(ctx context.Context, auth Authenticator, creds models.Credentials) (Session, error) {
	res, err := auth.Login(ctx, creds)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{Token: res.Token, User: res.User}
	if err := state.Save(s.backend, s.key(keySession), s.session); err != nil {
		return s.session, err
	}

	s.logger.Info("User logged in", zap.String("email", res.User.Email), zap.String("role", res.User.Role))
	return s.session, nil
}

// Logout tears down the session, cart and wishlist.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = Session{}
	s.cart = Cart{Items: []CartItem{}}
	s.wishlist = Wishlist{Items: []WishlistItem{}}

	var errs []error
	for _, key := range []string{keySession, keyCart, keyWishlist} {
		if err := s.backend.Delete(s.key(key)); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}

	s.logger.Info("Session torn down")
	return errors.Join(errs...)
}

// adopt copies the cart and wishlist of from into s and persists them.
func (s *Store) adopt(from *Store) error {
	cart, wishlist := from.Cart(), from.Wishlist()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = cart
	s.wishlist = wishlist
	return errors.Join(
		state.Save(s.backend, s.key(keyCart), s.cart),
		state.Save(s.backend, s.key(keyWishlist), s.wishlist),
	)
}

// RedirectAfterLogin picks where to send a freshly logged in user: the
// explicit redirect if any, the admin area for admins, else the home page.
func RedirectAfterLogin(redirect string, user models.User) string {
	switch {
	case redirect != "":
		return redirect
	case user.IsAdmin():
		return "/admin"
	default:
		return "/"
	}
}
