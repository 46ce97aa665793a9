package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storefront/internal/logging"
	"storefront/internal/models"
	"storefront/internal/state"
)

// ErrUnknownSession is returned for a session id that was never issued or
// has been removed.
var ErrUnknownSession = errors.New("unknown session")

// Manager issues session ids and keeps one Store per id. Stores persisted by
// an earlier process are restored on first lookup.
type Manager struct {
	backend state.Store
	logger  *zap.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(backend state.Store, logger *zap.Logger) *Manager {
	return &Manager{
		backend: backend,
		logger:  logging.OrNop(logger),
		stores:  make(map[string]*Store),
	}
}

// Create issues a new guest session.
func (m *Manager) Create() (string, *Store, error) {
	id := uuid.NewString()
	store, err := Open(m.backend, id, m.logger)
	if err != nil {
		return "", nil, err
	}

	m.mu.Lock()
	m.stores[id] = store
	m.mu.Unlock()

	m.logger.Debug("Session created", zap.String("session_id", id))
	return id, store, nil
}

// Get returns the store of id. Ids that are malformed, were never issued or
// left nothing persisted report false.
func (m *Manager) Get(id string) (*Store, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if store, ok := m.stores[id]; ok {
		return store, true
	}

	store, err := Open(m.backend, id, m.logger)
	if err != nil {
		m.logger.Warn("Failed to restore session", zap.String("session_id", id), zap.Error(err))
		return nil, false
	}
	if !store.restored {
		return nil, false
	}
	m.stores[id] = store
	return store, true
}

// Login authenticates into a freshly issued session. The cart and wishlist
// of a guest session previousID move over to it and previousID is removed.
// An authenticated previousID is removed without carrying anything over.
func (m *Manager) Login(ctx context.Context, auth Authenticator, creds models.Credentials, previousID string) (string, Session, error) {
	id, store, err := m.Create()
	if err != nil {
		return "", Session{}, err
	}

	sess, err := store.Login(ctx, auth, creds)
	if err != nil {
		m.discard(id)
		return "", Session{}, err
	}

	if previous, ok := m.Get(previousID); ok {
		if !previous.Session().Authenticated() {
			if err := store.adopt(previous); err != nil {
				m.logger.Error("Failed to carry guest state over", zap.Error(err))
			}
		}
		if err := m.Remove(previousID); err != nil {
			m.logger.Error("Failed to remove previous session", zap.String("session_id", previousID), zap.Error(err))
		}
	}
	return id, sess, nil
}

// Remove logs id out and forgets it.
func (m *Manager) Remove(id string) error {
	store, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	m.discard(id)
	return store.Logout()
}

// Len reports how many sessions are held in memory.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

func (m *Manager) discard(id string) {
	m.mu.Lock()
	delete(m.stores, id)
	m.mu.Unlock()
}
