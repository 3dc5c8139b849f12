package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-ranking/internal/adapters/archive"
	"whatsapp-ranking/internal/cache"
	"whatsapp-ranking/internal/core/services"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/server/usecase"
)

const amigosExport = `15/12/2022 10:00 - Ana: oi pessoal
15/12/2022 10:01 - +55 11 91234-5678: bom dia
20/12/2022 21:00 - Bruno: boa noite
5/1/2023 08:00 - Ana: feliz ano novo
10/1/2023 12:00 - Ana: almoço?
`

const familiaExport = `1/1/2023 09:00 - Ana: bom dia família
2/1/2023 10:00 - Tio Zé: parabéns
2/1/2023 10:05 - Tio Zé: 🎉
`

func zipExport(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, err := w.Create(name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// Полный цикл: загрузка, опрос, рейтинг, перефильтрация, объединение, экспорт и кэш.
func TestFullApplicationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig()
	records := cache.NewRecordCache(cache.NewMemoryStore(0), nil)
	processing := services.NewProcessingService(
		archive.NewZipExtractor(1<<20),
		services.NewAggregationService(),
		services.WithBatchLimit(cfg.Processing.BatchLimit),
	)
	uc := usecase.NewProcessChatUseCase(processing, services.NewMergeService(), services.NewComparisonService(),
		records, cache.NewMemoryStore(time.Minute), nil)

	srv, err := New(ctx, cfg, uc, NewTaskStore(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.HTTPServer.Handler)
	defer ts.Close()

	getJSON := func(path string, out any) int {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		if out != nil && resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
		}
		return resp.StatusCode
	}
	postJSON := func(path, body string, out any) int {
		resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		if out != nil && resp.StatusCode == http.StatusOK {
			require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
		}
		return resp.StatusCode
	}

	// 1. Загрузка пакета: текстовый экспорт и архив
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("files", "Conversa do WhatsApp com Amigos.txt")
	require.NoError(t, err)
	_, _ = io.WriteString(fw, amigosExport)
	fw, err = mw.CreateFormFile("files", "Familia.zip")
	require.NoError(t, err)
	_, _ = fw.Write(zipExport(t, "Conversa do WhatsApp com Família.txt", familiaExport))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/v1/process", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var started map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	taskID := started["task_id"]

	// 2. Опрос статуса
	var status TaskStatusResponse
	require.Eventually(t, func() bool {
		getJSON("/api/v1/tasks/"+taskID, &status)
		return status.Status == TaskStatusCompleted
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2, status.Datasets)
	assert.Equal(t, domain.StageComplete, status.Progress.Stage)

	// 3. Результат и рейтинг первого набора
	var result TaskResultResponse
	require.Equal(t, http.StatusOK, getJSON("/api/v1/tasks/"+taskID+"/result", &result))
	require.Len(t, result.Datasets, 2)

	var page RankingPageResponse
	require.Equal(t, http.StatusOK, getJSON("/api/v1/tasks/"+taskID+"/ranking?dataset="+result.Datasets[0].ID, &page))
	assert.Equal(t, 5, page.TotalMessages)
	require.Len(t, page.Data, 3)
	assert.Equal(t, "Ana", page.Data[0].Name)
	assert.Equal(t, "+*********5678", page.Data[1].Name)

	// 4. Перефильтрация только по январю 2023
	var refiltered TaskResultResponse
	require.Equal(t, http.StatusOK, postJSON("/api/v1/tasks/"+taskID+"/filter", `{"startDate":"2023-01-01","endDate":"2023-01-31"}`, &refiltered))
	assert.Equal(t, 2, refiltered.Datasets[0].RankingData.FilteredMessages)
	assert.Equal(t, "2023-01-01", refiltered.Datasets[0].RankingData.DateRange.Start)

	// 5. Объединение
	var merged domain.RankingData
	require.Equal(t, http.StatusOK, postJSON("/api/v1/tasks/"+taskID+"/merge", `{"includeFilePrefix":false}`, &merged))
	assert.Equal(t, 5, merged.FilteredMessages)
	require.NotEmpty(t, merged.Ranking)
	assert.Equal(t, domain.MessageCount{Name: "Ana", Count: 3}, merged.Ranking[0])

	// 6. Сравнение
	var cmp domain.Comparison
	require.Equal(t, http.StatusOK, getJSON("/api/v1/tasks/"+taskID+"/comparison", &cmp))
	require.Len(t, cmp.Groups, 2)
	assert.Equal(t, "Conversa do WhatsApp com Amigos", cmp.Groups[0].GroupName)

	// 7. Экспорт объединённого рейтинга
	exp, err := http.Get(ts.URL + "/api/v1/tasks/" + taskID + "/export?format=xlsx&dataset=merged")
	require.NoError(t, err)
	data, err := io.ReadAll(exp.Body)
	exp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, exp.StatusCode)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))

	// 8. Сессия сохранена в кэше
	var cached CacheResponse
	require.Equal(t, http.StatusOK, getJSON("/api/v1/cache", &cached))
	assert.True(t, cached.Present)
	assert.True(t, cached.HasMerged)
	assert.Equal(t, domain.DateFilter{StartDate: "2023-01-01", EndDate: "2023-01-31"}, cached.DateFilter)
}
