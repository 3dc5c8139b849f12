package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"whatsapp-ranking/internal/ports"
)

// memoryItem представляет значение в памяти вместе со сроком действия
type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// MemoryStore хранит записи в памяти процесса. Реализует ports.KVStore.
type MemoryStore struct {
	items map[string]*memoryItem
	ttl   time.Duration
	mutex sync.RWMutex
	now   func() time.Time
}

var _ ports.KVStore = (*MemoryStore)(nil)

// NewMemoryStore создает новое хранилище. Записи живут ttl, ttl <= 0 — бессрочно.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get извлекает значение по ключу. Просроченная запись считается отсутствующей.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.items[key]
	if !exists || item.expired(s.now()) {
		return nil, false, nil
	}

	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, true, nil
}

// Set сохраняет значение целиком, заменяя прежнее.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item := &memoryItem{value: make([]byte, len(value))}
	copy(item.value, value)
	if s.ttl > 0 {
		item.expiresAt = s.now().Add(s.ttl)
	}
	s.items[key] = item
	return nil
}

// Delete удаляет запись. Отсутствие ключа ошибкой не считается.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.items, key)
	return nil
}

// Clear удаляет все записи.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.items = make(map[string]*memoryItem)
	return nil
}

// Len возвращает число записей, включая ещё не вычищенные просроченные.
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.items)
}

// CleanupExpired удаляет просроченные элементы из кэша
func (s *MemoryStore) CleanupExpired() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	for key, item := range s.items {
		if item.expired(now) {
			delete(s.items, key)
		}
	}
}

// StartCleanupTicker запускает таймер для периодической очистки просроченных элементов
func (s *MemoryStore) StartCleanupTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.CleanupExpired()
			}
		}
	}()
}

// HashContent вычисляет хеш SHA256 содержимого файла
func HashContent(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
