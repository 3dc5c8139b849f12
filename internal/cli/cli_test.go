package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const amigosLog = `15/12/2022 10:00 - Ana: oi pessoal
15/12/2022 10:01 - +55 11 91234-5678: bom dia
20/12/2022 21:00 - Bruno: boa noite
5/1/2023 08:00 - Ana: feliz ano novo
10/1/2023 12:00 - Ana: almoço?
`

const familiaLog = `1/1/2023 09:00 - Ana: bom dia família
2/1/2023 10:00 - Tio Zé: 🎉
2/1/2023 10:05 - Tio Zé: parabéns
`

func writeChat(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRank(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.db")
	chat := writeChat(t, dir, "Conversa do WhatsApp com Amigos.txt", amigosLog)

	t.Run("таблица в stdout", func(t *testing.T) {
		out, _, err := run(t, "--cache", cachePath, "rank", chat)
		require.NoError(t, err)
		assert.Contains(t, out, "Conversa do WhatsApp com Amigos.txt")
		assert.Contains(t, out, "Mensagens: 5 de 5, participantes: 3")
		assert.Contains(t, out, "+*********5678")
		assert.NotContains(t, out, "91234")
	})

	t.Run("json с фильтром", func(t *testing.T) {
		out, _, err := run(t, "--no-cache", "rank", chat, "--start", "2023-01-01", "--format", "json")
		require.NoError(t, err)

		var doc struct {
			Stats struct {
				FilteredMessages int `json:"filteredMessages"`
			} `json:"stats"`
			Ranking []struct {
				Name string `json:"name"`
			} `json:"ranking"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		require.Len(t, doc.Ranking, 1)
		assert.Equal(t, "Ana", doc.Ranking[0].Name)
	})

	t.Run("бинарный формат без --out", func(t *testing.T) {
		_, _, err := run(t, "--no-cache", "rank", chat, "--format", "pdf")
		assert.ErrorContains(t, err, "--out")
	})

	t.Run("xlsx в файл", func(t *testing.T) {
		out := filepath.Join(dir, "ranking.xlsx")
		_, _, err := run(t, "--no-cache", "rank", chat, "--format", "xlsx", "--out", out)
		require.NoError(t, err)
		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "PK", string(data[:2]))
	})

	t.Run("кривая дата", func(t *testing.T) {
		_, _, err := run(t, "--no-cache", "rank", chat, "--end", "31/01/2023")
		assert.Error(t, err)
	})

	t.Run("неподдерживаемый файл", func(t *testing.T) {
		other := writeChat(t, dir, "notes.md", amigosLog)
		_, _, err := run(t, "--no-cache", "rank", other)
		assert.ErrorContains(t, err, "unsupported file type")
	})

	t.Run("кэш хранит последний рейтинг", func(t *testing.T) {
		out, _, err := run(t, "--cache", cachePath, "cache", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "Conversa do WhatsApp com Amigos.txt: 5 из 5 сообщений, участников: 3")

		_, _, err = run(t, "--cache", cachePath, "cache", "clear")
		require.NoError(t, err)

		out, _, err = run(t, "--cache", cachePath, "cache", "show")
		require.NoError(t, err)
		assert.Contains(t, out, "Кэш пуст.")
	})
}

func TestMergeAndCompare(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "cache.db")
	amigos := writeChat(t, dir, "Amigos.txt", amigosLog)
	familia := writeChat(t, dir, "Familia.txt", familiaLog)
	broken := writeChat(t, dir, "broken.txt", "nada aqui\n")

	t.Run("объединение с пропуском битого файла", func(t *testing.T) {
		out, errOut, err := run(t, "--cache", cachePath, "merge", amigos, familia, broken, "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, errOut, "broken.txt")

		var doc struct {
			Ranking []struct {
				Name  string `json:"name"`
				Count int    `json:"messageCount"`
			} `json:"ranking"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		require.NotEmpty(t, doc.Ranking)
		assert.Equal(t, "Ana", doc.Ranking[0].Name)
		assert.Equal(t, 4, doc.Ranking[0].Count)

		show, _, err := run(t, "--cache", cachePath, "cache", "show")
		require.NoError(t, err)
		assert.Contains(t, show, "Amigos.txt: 5 сообщений")
		assert.Contains(t, show, "объединённый рейтинг")
	})

	t.Run("префикс файла", func(t *testing.T) {
		out, _, err := run(t, "--no-cache", "merge", amigos, familia, "--prefix")
		require.NoError(t, err)
		assert.Contains(t, out, "Amigos: Ana")
		assert.Contains(t, out, "Familia: Ana")
	})

	t.Run("все файлы битые", func(t *testing.T) {
		_, _, err := run(t, "--no-cache", "merge", broken)
		assert.Error(t, err)
	})

	t.Run("сравнение", func(t *testing.T) {
		out, _, err := run(t, "--no-cache", "compare", amigos, familia)
		require.NoError(t, err)
		assert.Contains(t, out, "Amigos: 5 mensagens")
		assert.Contains(t, out, "Total: 8 mensagens")
	})

	t.Run("сравнение в неподдерживаемом формате", func(t *testing.T) {
		_, _, err := run(t, "--no-cache", "compare", amigos, "--format", "doc")
		assert.Error(t, err)
	})
}
