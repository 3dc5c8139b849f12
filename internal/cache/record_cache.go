package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

// Ключи и параметры записей сессии.
const (
	SingleRecordKey = "whatsapp-ranking-cache"
	MultiRecordKey  = "whatsapp-ranking-multi-cache"
	RecordVersion   = "2.0"

	// RecordExpiry — срок жизни записи, отсчитывается от её timestamp.
	RecordExpiry = 7 * 24 * time.Hour
)

// RecordCache сохраняет последнюю сессию (один файл или пакет) в KVStore.
// Ошибки чтения и повреждённые записи не выходят наружу: запись
// удаляется и считается отсутствующей.
type RecordCache struct {
	store  ports.KVStore
	expiry time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewRecordCache создает новый экземпляр RecordCache.
func NewRecordCache(store ports.KVStore, logger *slog.Logger) *RecordCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordCache{
		store:  store,
		expiry: RecordExpiry,
		logger: logger,
		now:    time.Now,
	}
}

// WithExpiry задаёт срок жизни записей вместо RecordExpiry.
func (c *RecordCache) WithExpiry(d time.Duration) *RecordCache {
	if d > 0 {
		c.expiry = d
	}
	return c
}

// SaveSingle сохраняет запись одиночного режима. Timestamp проставляется здесь.
func (c *RecordCache) SaveSingle(ctx context.Context, rec domain.CachedData) error {
	rec.Timestamp = c.now().UnixMilli()
	return c.save(ctx, SingleRecordKey, rec)
}

// LoadSingle возвращает запись одиночного режима, если она есть и не устарела.
func (c *RecordCache) LoadSingle(ctx context.Context) (domain.CachedData, bool) {
	var rec domain.CachedData
	if !c.load(ctx, SingleRecordKey, &rec) {
		return domain.CachedData{}, false
	}
	if c.isExpired(rec.Timestamp) {
		c.purge(ctx, SingleRecordKey, "expired")
		return domain.CachedData{}, false
	}
	return rec, true
}

// SaveMulti сохраняет запись пакетного режима с текущей версией формата.
func (c *RecordCache) SaveMulti(ctx context.Context, rec domain.MultiFileCachedData) error {
	rec.Timestamp = c.now().UnixMilli()
	rec.Version = RecordVersion
	return c.save(ctx, MultiRecordKey, rec)
}

// LoadMulti возвращает запись пакетного режима. Запись чужой версии
// считается отсутствующей.
func (c *RecordCache) LoadMulti(ctx context.Context) (domain.MultiFileCachedData, bool) {
	var rec domain.MultiFileCachedData
	if !c.load(ctx, MultiRecordKey, &rec) {
		return domain.MultiFileCachedData{}, false
	}
	if rec.Version != RecordVersion {
		c.purge(ctx, MultiRecordKey, "version mismatch")
		return domain.MultiFileCachedData{}, false
	}
	if c.isExpired(rec.Timestamp) {
		c.purge(ctx, MultiRecordKey, "expired")
		return domain.MultiFileCachedData{}, false
	}
	return rec, true
}

// ClearSingle удаляет запись одиночного режима.
func (c *RecordCache) ClearSingle(ctx context.Context) error {
	return c.store.Delete(ctx, SingleRecordKey)
}

// ClearMulti удаляет запись пакетного режима.
func (c *RecordCache) ClearMulti(ctx context.Context) error {
	return c.store.Delete(ctx, MultiRecordKey)
}

// Clear удаляет обе записи.
func (c *RecordCache) Clear(ctx context.Context) error {
	if err := c.ClearSingle(ctx); err != nil {
		return err
	}
	return c.ClearMulti(ctx)
}

// Size возвращает суммарный размер сохранённых записей в байтах.
func (c *RecordCache) Size(ctx context.Context) int {
	total := 0
	for _, key := range []string{SingleRecordKey, MultiRecordKey} {
		data, ok, err := c.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		total += len(data)
	}
	return total
}

func (c *RecordCache) isExpired(timestamp int64) bool {
	age := c.now().UnixMilli() - timestamp
	return age > c.expiry.Milliseconds()
}

func (c *RecordCache) save(ctx context.Context, key string, rec any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, data)
}

func (c *RecordCache) load(ctx context.Context, key string, dst any) bool {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.purge(ctx, key, "malformed record")
		return false
	}
	return true
}

func (c *RecordCache) purge(ctx context.Context, key, reason string) {
	c.logger.Debug("cache record discarded", "key", key, "reason", reason)
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("cache purge failed", "key", key, "error", err)
	}
}
