package repository

import (
	"context"
	"sync"
)

type memoryRecord struct {
	values  map[string]string
	version int64
}

// MemoryKV хранит состояние в памяти процесса. Используется в тестах и
// для локального запуска без базы данных.
type MemoryKV struct {
	mu    sync.RWMutex
	users map[int64]*memoryRecord
}

// NewMemoryKV создаёт пустое хранилище в памяти.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{users: make(map[int64]*memoryRecord)}
}

func (m *MemoryKV) Get(ctx context.Context, userID int64) (map[string]string, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[userID]
	if !ok {
		return map[string]string{}, 0, nil
	}

	values := make(map[string]string, len(rec.values))
	for k, v := range rec.values {
		values[k] = v
	}
	return values, rec.version, nil
}

func (m *MemoryKV) Put(ctx context.Context, userID int64, version int64, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[userID]
	if !ok {
		rec = &memoryRecord{values: make(map[string]string)}
	}
	if rec.version != version {
		return ErrVersionConflict
	}

	for k, v := range values {
		rec.values[k] = v
	}
	rec.version++
	m.users[userID] = rec

	return nil
}

func (m *MemoryKV) Close() error { return nil }
