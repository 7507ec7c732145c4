package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/ucc-hostels/hostelfinder/internal/db"
)

// Compile-time check: KV implements db.KVStore.
var _ db.KVStore = (*KV)(nil)

// KV is an in-memory db.KVStore.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKV creates an empty KV.
func NewKV() *KV {
	return &KV{data: map[string][]byte{}}
}

// Get returns a copy of the value stored at key.
func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

// Set stores a copy of value.
func (k *KV) Set(_ context.Context, key string, value []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = slices.Clone(value)
	return nil
}

// Del removes key.
func (k *KV) Del(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.data, key)
	return nil
}
