package archive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-ranking/internal/domain"
)

type zipEntry struct {
	name    string
	content string
}

func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		require.NoError(t, err)
		if e.content != "" {
			_, err = f.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestZipExtractor_Extract(t *testing.T) {
	extractor := NewZipExtractor(0)

	t.Run("single txt entry", func(t *testing.T) {
		data := buildZip(t, zipEntry{"Grupo.txt", "5/3/2023 14:02 - Ana: oi"}, zipEntry{"IMG-001.jpg", "binary"})
		content, err := extractor.Extract(data)
		require.NoError(t, err)
		assert.Equal(t, "5/3/2023 14:02 - Ana: oi", content)
	})

	t.Run("prefers entry with chat hint", func(t *testing.T) {
		data := buildZip(t,
			zipEntry{"notes.txt", "notes"},
			zipEntry{"Conversa do WhatsApp com Família.txt", "chat log"},
		)
		content, err := extractor.Extract(data)
		require.NoError(t, err)
		assert.Equal(t, "chat log", content)
	})

	t.Run("falls back to first candidate", func(t *testing.T) {
		data := buildZip(t, zipEntry{"a.txt", "first"}, zipEntry{"b.txt", "second"})
		content, err := extractor.Extract(data)
		require.NoError(t, err)
		assert.Equal(t, "first", content)
	})

	t.Run("no txt entries", func(t *testing.T) {
		data := buildZip(t, zipEntry{"photo.jpg", "x"}, zipEntry{"media/", ""})
		_, err := extractor.Extract(data)
		assert.True(t, errors.Is(err, domain.ErrNoTextPayload))
	})

	t.Run("blank payload", func(t *testing.T) {
		data := buildZip(t, zipEntry{"chat.txt", "  \n\t "})
		_, err := extractor.Extract(data)
		assert.True(t, errors.Is(err, domain.ErrEmptyPayload))
	})

	t.Run("duplicate names resolve to first entry", func(t *testing.T) {
		data := buildZip(t,
			zipEntry{"chat.txt", " \n"},
			zipEntry{"chat.txt", "5/3/2023 14:02 - Ana: oi"},
		)
		_, err := extractor.Extract(data)
		assert.ErrorIs(t, err, domain.ErrEmptyPayload)
	})

	t.Run("payload over limit", func(t *testing.T) {
		data := buildZip(t, zipEntry{"chat.txt", "0123456789"})
		_, err := NewZipExtractor(5).Extract(data)
		assert.True(t, errors.Is(err, domain.ErrPayloadTooLarge))
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := extractor.Extract([]byte("plain text"))
		assert.Error(t, err)
	})
}

func TestSelectChatEntry(t *testing.T) {
	noDirs := func(int) bool { return false }

	testCases := []struct {
		name    string
		entries []string
		want    int
		wantErr error
	}{
		{"empty archive", nil, -1, domain.ErrNoTextPayload},
		{"directory with txt suffix skipped", []string{"logs.txt/"}, -1, domain.ErrNoTextPayload},
		{"uppercase extension", []string{"CHAT.TXT"}, 0, nil},
		{"hint is case insensitive", []string{"readme.txt", "WhatsApp Chat with Ana.txt"}, 1, nil},
		{"first hinted wins", []string{"x.txt", "chat-1.txt", "chat-2.txt"}, 1, nil},
		{"duplicate names keep enumeration order", []string{"a.txt", "a.txt"}, 0, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectChatEntry(tc.entries, noDirs)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsZip(t *testing.T) {
	assert.True(t, IsZip(buildZip(t, zipEntry{"chat.txt", "x"})))
	assert.False(t, IsZip([]byte("5/3/2023 14:02 - Ana: oi")))
}
