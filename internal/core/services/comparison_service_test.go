package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"whatsapp-ranking/internal/domain"
)

func TestComparisonService_Compare(t *testing.T) {
	cmp := NewComparisonService()

	t.Run("groups and summary", func(t *testing.T) {
		a := dataset("Família.txt", 20,
			domain.MessageCount{Name: "Ana", Count: 6},
			domain.MessageCount{Name: "Bia", Count: 3},
			domain.MessageCount{Name: "Caio", Count: 1},
		)
		b := dataset("Trabalho.zip", 7,
			domain.MessageCount{Name: "Duda", Count: 4},
			domain.MessageCount{Name: "Eva", Count: 3},
		)

		res := cmp.Compare([]domain.FileDataset{a, b})

		assert.Equal(t, []domain.GroupComparison{
			{
				GroupName:          "Família",
				FileName:           "Família.txt",
				TotalMessages:      10,
				TopParticipant:     domain.MessageCount{Name: "Ana", Count: 6},
				AverageMessages:    3,
				UniqueParticipants: 3,
			},
			{
				GroupName:          "Trabalho",
				FileName:           "Trabalho.zip",
				TotalMessages:      7,
				TopParticipant:     domain.MessageCount{Name: "Duda", Count: 4},
				AverageMessages:    4,
				UniqueParticipants: 2,
			},
		}, res.Groups)
		assert.Equal(t, domain.ComparisonSummary{
			TotalMessages:     17,
			TotalParticipants: 5,
			AverageMessages:   4,
			MaxMessages:       10,
		}, res.Summary)
	})

	t.Run("empty ranking uses placeholder", func(t *testing.T) {
		res := cmp.Compare([]domain.FileDataset{dataset("vazio.txt", 4)})

		assert.Equal(t, domain.MessageCount{Name: "N/A", Count: 0}, res.Groups[0].TopParticipant)
		assert.Zero(t, res.Groups[0].AverageMessages)
		assert.Zero(t, res.Summary.MaxMessages)
	})

	t.Run("no datasets", func(t *testing.T) {
		res := cmp.Compare(nil)
		assert.Empty(t, res.Groups)
		assert.Equal(t, domain.ComparisonSummary{}, res.Summary)
	})
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 3, roundHalfUp(2.5))
	assert.Equal(t, 2, roundHalfUp(2.49))
	assert.Equal(t, 0, roundHalfUp(0))
}
