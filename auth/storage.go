package auth

import "sync"

// Storage is the persisted key/value area the session store reads and writes.
// db.Store and CookieStorage implement it.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Registry is Storage that can also rewrite a value atomically. The credentials
// registry is shared by every session, so its read-modify-write must not interleave.
type Registry interface {
	Storage
	// Update calls fn with the current value (found is false when there is none)
	// and stores the result. Nothing is written when fn returns an error.
	Update(key string, fn func(current string, found bool) (string, error)) error
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStorage) Update(key string, fn func(current string, found bool) (string, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, found := m.values[key]
	next, err := fn(current, found)
	if err != nil {
		return err
	}
	m.values[key] = next
	return nil
}
