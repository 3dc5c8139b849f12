package services

import (
	"math"

	"whatsapp-ranking/internal/domain"
	"whatsapp-ranking/internal/ports"
)

const noParticipantName = "N/A"

// ComparisonService реализует интерфейс Comparator.
type ComparisonService struct{}

// NewComparisonService создает новый экземпляр ComparisonService.
func NewComparisonService() ports.Comparator {
	return &ComparisonService{}
}

// Compare строит по строке сравнения на каждый набор и итоговую сводку.
func (s *ComparisonService) Compare(datasets []domain.FileDataset) domain.Comparison {
	groups := make([]domain.GroupComparison, 0, len(datasets))
	var summary domain.ComparisonSummary
	averagesSum := 0

	for _, ds := range datasets {
		ranking := ds.RankingData.Ranking
		top := domain.MessageCount{Name: noParticipantName}
		if len(ranking) > 0 {
			top = ranking[0]
		}
		avg := 0
		if len(ranking) > 0 {
			avg = roundHalfUp(float64(ds.RankingData.FilteredMessages) / float64(len(ranking)))
		}

		g := domain.GroupComparison{
			GroupName:          GroupName(ds.FileName),
			FileName:           ds.FileName,
			TotalMessages:      ds.RankingData.FilteredMessages,
			TopParticipant:     top,
			AverageMessages:    avg,
			UniqueParticipants: len(ranking),
		}
		groups = append(groups, g)

		summary.TotalMessages += g.TotalMessages
		summary.TotalParticipants += g.UniqueParticipants
		averagesSum += g.AverageMessages
		if g.TotalMessages > summary.MaxMessages {
			summary.MaxMessages = g.TotalMessages
		}
	}
	if len(groups) > 0 {
		summary.AverageMessages = roundHalfUp(float64(averagesSum) / float64(len(groups)))
	}

	return domain.Comparison{Groups: groups, Summary: summary}
}

// roundHalfUp округляет половины вверх.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
