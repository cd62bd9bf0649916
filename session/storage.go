package session

import (
	"context"
	"errors"
	"sync"
)

// DefaultNamespace is the storage key the SkillUp web client has always used.
const DefaultNamespace = "skillup-auth"

// ErrStorageUnavailable wraps backend failures of a [Storage].
var ErrStorageUnavailable = errors.New("session storage unavailable")

// ErrRecordNotFound is returned by [Storage.Load] when nothing is persisted.
var ErrRecordNotFound = errors.New("session record not found")

// Storage is the durable backend behind a [Store]. Implementations must be safe
// for concurrent use.
type Storage interface {
	Load(ctx context.Context, namespace string) ([]byte, error)
	Save(ctx context.Context, namespace string, data []byte) error
	Delete(ctx context.Context, namespace string) error
}

// MemoryStorage keeps records in process memory. It is the default backend and
// what tests use when persistence itself is not under test.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{records: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, namespace string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[namespace]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryStorage) Save(_ context.Context, namespace string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[namespace] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, namespace)
	return nil
}
