package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Запись и чтение", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		require.NoError(t, s.Set(ctx, "k", []byte("v1")))

		v, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("v1"), v)

		require.NoError(t, s.Set(ctx, "k", []byte("v2")))
		v, _, _ = s.Get(ctx, "k")
		assert.Equal(t, []byte("v2"), v)
	})

	t.Run("Чтение несуществующего ключа", func(t *testing.T) {
		_, ok, err := NewMemoryStore(0).Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Изменение возвращённого значения не портит запись", func(t *testing.T) {
		s := NewMemoryStore(0)
		src := []byte("abc")
		require.NoError(t, s.Set(ctx, "k", src))
		src[0] = 'x'

		v, _, _ := s.Get(ctx, "k")
		v[1] = 'y'

		again, _, _ := s.Get(ctx, "k")
		assert.Equal(t, []byte("abc"), again)
	})

	t.Run("Просроченная запись отсутствует", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		s.now = func() time.Time { return now }
		require.NoError(t, s.Set(ctx, "k", []byte("v")))

		now = now.Add(2 * time.Minute)
		_, ok, _ := s.Get(ctx, "k")
		assert.False(t, ok)

		s.CleanupExpired()
		assert.Zero(t, s.Len())
	})

	t.Run("Без TTL запись не истекает", func(t *testing.T) {
		s := NewMemoryStore(0)
		now := time.Now()
		s.now = func() time.Time { return now }
		require.NoError(t, s.Set(ctx, "k", []byte("v")))

		now = now.Add(365 * 24 * time.Hour)
		_, ok, _ := s.Get(ctx, "k")
		assert.True(t, ok)
	})

	t.Run("Удаление и очистка", func(t *testing.T) {
		s := NewMemoryStore(0)
		require.NoError(t, s.Set(ctx, "a", []byte("1")))
		require.NoError(t, s.Set(ctx, "b", []byte("2")))

		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "a"))
		assert.Equal(t, 1, s.Len())

		require.NoError(t, s.Clear(ctx))
		assert.Zero(t, s.Len())
	})
}

func TestStartCleanupTicker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewMemoryStore(50 * time.Millisecond)
	require.NoError(t, s.Set(ctx, "expired", []byte("1")))

	s.StartCleanupTicker(ctx, 100*time.Millisecond)

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 20*time.Millisecond,
		"Просроченный элемент должен быть удален таймером")
}

func TestHashContent(t *testing.T) {
	h := HashContent([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.NotEqual(t, h, HashContent([]byte("abd")))
}
