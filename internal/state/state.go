// Package state persists small JSON documents by key: the session, cart and
// wishlist survive a restart the way a browser keeps them in local storage.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Load when the key has never been saved.
var ErrNotFound = errors.New("state: not found")

// Store abstracts the state backend.
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Save encodes v as JSON under key.
func Save(s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Put(key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Load decodes the JSON stored under key into v.
func Load(s Store, key string, v any) error {
	data, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// InMemoryStore is a simple thread-safe map store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string][]byte)}
}

func (s *InMemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *InMemoryStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.data[key] = v
	return nil
}

func (s *InMemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }

// Open returns a Pebble store in dir, or an in-memory store when dir is empty.
func Open(dir string) (Store, error) {
	if dir == "" {
		return NewInMemoryStore(), nil
	}
	return NewPebbleStore(dir)
}
