package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-ranking/internal/adapters/archive"
	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

const shortLog = "5/3/2023 14:02 - Ana: oi\n5/3/2023 14:03 - Bia: olá\n6/3/2023 09:00 - Ana: bom dia\n"

func zipOf(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func textSource(name, body string) ports.DataSource {
	return &MockDataSource{FileName: name, FetchFunc: func() ([]byte, error) { return []byte(body), nil }}
}

func newTestProcessingService(opts ...Option) *ProcessingService {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	base := []Option{
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("ds-%d", n) }),
	}
	return NewProcessingService(archive.NewZipExtractor(0), NewAggregationService(), append(base, opts...)...)
}

func TestProcessingService_ProcessFile(t *testing.T) {
	ctx := context.Background()

	t.Run("plain text export", func(t *testing.T) {
		svc := newTestProcessingService()
		rec := &progressRecorder{}

		ds, err := svc.ProcessFile(ctx, textSource("Amigos.txt", shortLog), domain.DateFilter{}, rec)
		require.NoError(t, err)

		assert.Equal(t, "ds-1", ds.ID)
		assert.Equal(t, "Amigos.txt", ds.FileName)
		assert.Equal(t, int64(len(shortLog)), ds.FileSize)
		assert.Equal(t, shortLog, ds.FileContent)
		assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), ds.UploadedAt)
		assert.Equal(t, []domain.MessageCount{{Name: "Ana", Count: 2}, {Name: "Bia", Count: 1}}, ds.RankingData.Ranking)
		assert.Equal(t, []domain.Stage{domain.StageReading, domain.StageParsing, domain.StageComplete}, rec.stages())
	})

	t.Run("zip export", func(t *testing.T) {
		svc := newTestProcessingService()
		data := zipOf(t, map[string]string{"Conversa do WhatsApp com Amigos.txt": shortLog})
		rec := &progressRecorder{}

		src := &MockDataSource{FileName: "Amigos.ZIP", FetchFunc: func() ([]byte, error) { return data, nil }}
		ds, err := svc.ProcessFile(ctx, src, domain.DateFilter{}, rec)
		require.NoError(t, err)

		assert.Equal(t, shortLog, ds.FileContent)
		assert.Equal(t, int64(len(data)), ds.FileSize)
		assert.Equal(t, 3, ds.RankingData.TotalMessages)
		assert.Contains(t, rec.stages(), domain.StageExtracting)
	})

	t.Run("zip without text entries", func(t *testing.T) {
		svc := newTestProcessingService()
		data := zipOf(t, map[string]string{"IMG-001.jpg": "binary", "audio.opus": "binary"})
		src := &MockDataSource{FileName: "media.zip", FetchFunc: func() ([]byte, error) { return data, nil }}

		_, err := svc.ProcessFile(ctx, src, domain.DateFilter{}, nil)
		assert.ErrorIs(t, err, domain.ErrNoTextPayload)
	})

	t.Run("zip extension with non zip payload", func(t *testing.T) {
		extractor := &MockArchiveExtractor{}
		svc := NewProcessingService(extractor, NewAggregationService())

		_, err := svc.ProcessFile(ctx, textSource("fake.zip", shortLog), domain.DateFilter{}, nil)
		assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
		assert.Zero(t, extractor.calls)
	})

	testCases := []struct {
		name    string
		src     ports.DataSource
		wantErr error
	}{
		{"unsupported extension", textSource("chat.pdf", shortLog), domain.ErrUnsupportedFileType},
		{"not an export", textSource("notes.txt", "lista de compras\narroz\nfeijão\n"), domain.ErrUnrecognizedFormat},
		{"export without messages", textSource("system.txt", "5/3/2023 14:02 - Ana criou o grupo\n"), domain.ErrNoValidMessages},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestProcessingService().ProcessFile(ctx, tc.src, domain.DateFilter{}, nil)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("fetch error is wrapped", func(t *testing.T) {
		boom := errors.New("disk gone")
		src := &MockDataSource{FileName: "a.txt", FetchFunc: func() ([]byte, error) { return nil, boom }}

		_, err := newTestProcessingService().ProcessFile(ctx, src, domain.DateFilter{}, nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("filter that excludes everything is not an error", func(t *testing.T) {
		ds, err := newTestProcessingService().ProcessFile(ctx, textSource("a.txt", shortLog), domain.DateFilter{StartDate: "2030-01-01"}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, ds.RankingData.TotalMessages)
		assert.Zero(t, ds.RankingData.FilteredMessages)
		assert.Empty(t, ds.RankingData.Ranking)
	})
}

func TestProcessingService_ProcessBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("partial failures keep successful files", func(t *testing.T) {
		svc := newTestProcessingService()
		rec := &progressRecorder{}
		sources := []ports.DataSource{
			textSource("A.txt", shortLog),
			textSource("broken.txt", "nada aqui"),
			textSource("B.txt", "7/3/2023 10:00 - Caio: e aí\n"),
		}

		res, err := svc.ProcessBatch(ctx, sources, domain.DateFilter{}, rec)
		require.NoError(t, err)

		assert.Equal(t, 2, res.Result.TotalFiles)
		require.Len(t, res.Result.Individual, 2)
		assert.Equal(t, "A.txt", res.Result.Individual[0].FileName)
		assert.Equal(t, "B.txt", res.Result.Individual[1].FileName)
		assert.Nil(t, res.Result.Merged)

		require.Len(t, res.Failures, 1)
		assert.Equal(t, "broken.txt", res.Failures[0].FileName)
		assert.ErrorIs(t, res.Failures[0], domain.ErrUnrecognizedFormat)

		last := rec.events[len(rec.events)-1]
		assert.Equal(t, domain.StageComplete, last.Stage)
		assert.Equal(t, 100, last.Percent)
		for i := 1; i < len(rec.events); i++ {
			assert.GreaterOrEqual(t, rec.events[i].Percent, rec.events[i-1].Percent)
		}
	})

	t.Run("batch over limit is rejected before processing", func(t *testing.T) {
		svc := newTestProcessingService(WithBatchLimit(2))
		fetched := 0
		src := &MockDataSource{FileName: "a.txt", FetchFunc: func() ([]byte, error) { fetched++; return []byte(shortLog), nil }}

		_, err := svc.ProcessBatch(ctx, []ports.DataSource{src, src, src}, domain.DateFilter{}, nil)
		assert.ErrorIs(t, err, domain.ErrBatchLimitExceeded)
		assert.Zero(t, fetched)
	})

	t.Run("all files failing", func(t *testing.T) {
		res, err := newTestProcessingService().ProcessBatch(ctx, []ports.DataSource{textSource("x.doc", "")}, domain.DateFilter{}, nil)
		assert.ErrorIs(t, err, domain.ErrNoDatasets)
		assert.Len(t, res.Failures, 1)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := newTestProcessingService().ProcessBatch(cctx, []ports.DataSource{textSource("a.txt", shortLog)}, domain.DateFilter{}, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("default limit", func(t *testing.T) {
		assert.Equal(t, DefaultBatchLimit, newTestProcessingService().BatchLimit())
		assert.Equal(t, 3, newTestProcessingService(WithBatchLimit(3)).BatchLimit())
	})
}

func TestProcessingService_Refilter(t *testing.T) {
	svc := newTestProcessingService()
	ds, err := svc.ProcessFile(context.Background(), textSource("a.txt", shortLog), domain.DateFilter{}, nil)
	require.NoError(t, err)
	original := []domain.FileDataset{ds}

	out := svc.Refilter(original, domain.DateFilter{StartDate: "2023-03-06", EndDate: "2023-03-06"})

	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].RankingData.FilteredMessages)
	assert.Equal(t, 3, out[0].RankingData.TotalMessages)
	assert.Equal(t, ds.ID, out[0].ID)
	assert.Equal(t, 3, original[0].RankingData.FilteredMessages)

	again := svc.Refilter(out, domain.DateFilter{})
	assert.Equal(t, ds.RankingData, again[0].RankingData)
}
