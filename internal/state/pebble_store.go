package state

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements Store using PebbleDB. Every write is synced.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) Get(key string) ([]byte, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (p *PebbleStore) Put(key string, value []byte) error {
	return p.db.Set([]byte(key), value, pebble.Sync)
}

func (p *PebbleStore) Delete(key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}
