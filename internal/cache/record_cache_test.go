package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"whatsapp-ranking/internal/domain"
)

type mockKVStore struct {
	mock.Mock
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Bool(1), args.Error(2)
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	return m.Called(ctx, key, value).Error(0)
}

func (m *mockKVStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockKVStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func newTestRecordCache(now *time.Time) (*RecordCache, *MemoryStore) {
	store := NewMemoryStore(0)
	c := NewRecordCache(store, nil)
	c.now = func() time.Time { return *now }
	return c, store
}

func sampleRanking() domain.RankingData {
	return domain.RankingData{
		TotalMessages:    3,
		FilteredMessages: 3,
		Ranking:          []domain.MessageCount{{Name: "Ana", Count: 2}, {Name: "Bia", Count: 1}},
		DateRange:        domain.DateRange{Start: domain.OpenStartLabel, End: domain.OpenEndLabel},
	}
}

func TestRecordCache_Single(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	c, _ := newTestRecordCache(&now)

	rec := domain.CachedData{
		FileName:     "chat.txt",
		FileSize:     42,
		FileContent:  "5/3/2023 14:02 - Ana: oi",
		RankingData:  sampleRanking(),
		VisibleItems: 20,
	}
	require.NoError(t, c.SaveSingle(ctx, rec))

	got, ok := c.LoadSingle(ctx)
	require.True(t, ok)
	rec.Timestamp = now.UnixMilli()
	assert.Equal(t, rec, got)

	now = now.Add(RecordExpiry)
	_, ok = c.LoadSingle(ctx)
	assert.True(t, ok, "exactly seven days old is still valid")

	now = now.Add(time.Millisecond)
	_, ok = c.LoadSingle(ctx)
	assert.False(t, ok)
	assert.Zero(t, c.Size(ctx), "expired record is purged")
}

func TestRecordCache_Multi(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("round trip sets version", func(t *testing.T) {
		c, store := newTestRecordCache(&now)
		merged := sampleRanking()
		rec := domain.MultiFileCachedData{
			Datasets:     []domain.FileDataset{{ID: "1", FileName: "a.txt", RankingData: sampleRanking()}},
			MergedData:   &merged,
			MergeOptions: domain.MergeOptions{IncludeFilePrefix: true},
			DateFilter:   domain.DateFilter{StartDate: "2023-01-01"},
		}
		require.NoError(t, c.SaveMulti(ctx, rec))

		raw, ok, _ := store.Get(ctx, MultiRecordKey)
		require.True(t, ok)
		assert.Contains(t, string(raw), `"version":"2.0"`)

		got, ok := c.LoadMulti(ctx)
		require.True(t, ok)
		assert.Equal(t, RecordVersion, got.Version)
		assert.Equal(t, rec.Datasets, got.Datasets)
		assert.Equal(t, &merged, got.MergedData)
		assert.Positive(t, c.Size(ctx))
	})

	t.Run("foreign version is purged", func(t *testing.T) {
		c, store := newTestRecordCache(&now)
		require.NoError(t, store.Set(ctx, MultiRecordKey, []byte(`{"datasets":[],"timestamp":1,"version":"1.0"}`)))

		_, ok := c.LoadMulti(ctx)
		assert.False(t, ok)
		_, exists, _ := store.Get(ctx, MultiRecordKey)
		assert.False(t, exists)
	})

	t.Run("malformed record is purged", func(t *testing.T) {
		c, store := newTestRecordCache(&now)
		require.NoError(t, store.Set(ctx, MultiRecordKey, []byte(`{not json`)))

		_, ok := c.LoadMulti(ctx)
		assert.False(t, ok)
		assert.Zero(t, store.Len())
	})
}

func TestRecordCache_Clear(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	c, store := newTestRecordCache(&now)

	require.NoError(t, c.SaveSingle(ctx, domain.CachedData{FileName: "a.txt"}))
	require.NoError(t, c.SaveMulti(ctx, domain.MultiFileCachedData{}))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, c.ClearSingle(ctx))
	assert.Equal(t, 1, store.Len())

	require.NoError(t, c.Clear(ctx))
	assert.Zero(t, store.Len())
	assert.Zero(t, c.Size(ctx))
}

func TestRecordCache_StoreErrorsAreNotFatal(t *testing.T) {
	ctx := context.Background()
	store := new(mockKVStore)
	store.On("Get", ctx, SingleRecordKey).Return(nil, false, errors.New("disk I/O error"))
	store.On("Get", ctx, MultiRecordKey).Return([]byte("garbage"), true, nil)
	store.On("Delete", ctx, MultiRecordKey).Return(errors.New("read-only"))

	c := NewRecordCache(store, nil)

	_, ok := c.LoadSingle(ctx)
	assert.False(t, ok)
	_, ok = c.LoadMulti(ctx)
	assert.False(t, ok)

	store.AssertExpectations(t)
}
