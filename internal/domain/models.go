package domain

import "time"

// Подписи открытых границ периода в RankingData.DateRange.
const (
	OpenStartLabel = "Início"
	OpenEndLabel   = "Fim"
)

// MessageCount — одна строка рейтинга: отправитель и число его сообщений.
type MessageCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DateRange описывает применённый период в виде подписей, а не дат.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RankingData — результат агрегации одного или нескольких чатов.
//
// FilteredMessages всегда не больше TotalMessages, а сумма Count по Ranking
// равна FilteredMessages.
type RankingData struct {
	TotalMessages    int            `json:"totalMessages"`
	FilteredMessages int            `json:"filteredMessages"`
	Ranking          []MessageCount `json:"ranking"`
	DateRange        DateRange      `json:"dateRange"`
}

// DateFilter задаёт необязательный период в формате ISO (YYYY-MM-DD).
// Пустая строка означает отсутствие границы.
type DateFilter struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// IsEmpty сообщает, что фильтр не ограничивает ни начало, ни конец периода.
func (f DateFilter) IsEmpty() bool {
	return f.StartDate == "" && f.EndDate == ""
}

// FileDataset — один успешно разобранный файл вместе с его рейтингом.
type FileDataset struct {
	ID          string      `json:"id"`
	FileName    string      `json:"fileName"`
	FileSize    int64       `json:"fileSize"`
	FileContent string      `json:"fileContent"`
	RankingData RankingData `json:"rankingData"`
	UploadedAt  int64       `json:"uploadedAt"` // миллисекунды Unix
}

// MultiFileResult объединяет результаты пакетной обработки.
// Merged появляется только после явного запроса на объединение.
type MultiFileResult struct {
	Individual []FileDataset `json:"individual"`
	Merged     *RankingData  `json:"merged,omitempty"`
	TotalFiles int           `json:"totalFiles"`
}

// MergeOptions управляет объединением нескольких рейтингов.
type MergeOptions struct {
	// MergeParticipants зарезервирован под нечёткое объединение имён и пока ни на что не влияет.
	MergeParticipants bool       `json:"mergeParticipants"`
	IncludeFilePrefix bool       `json:"includeFilePrefix"`
	DateRange         DateFilter `json:"dateRange"`
}

// GroupComparison — сводка по одному чату для режима сравнения.
type GroupComparison struct {
	GroupName          string       `json:"groupName"`
	FileName           string       `json:"fileName"`
	TotalMessages      int          `json:"totalMessages"`
	TopParticipant     MessageCount `json:"topParticipant"`
	AverageMessages    int          `json:"averageMessages"`
	UniqueParticipants int          `json:"uniqueParticipants"`
}

// ComparisonSummary — итоговые показатели по всем группам.
type ComparisonSummary struct {
	TotalMessages     int `json:"totalMessages"`
	TotalParticipants int `json:"totalParticipants"`
	AverageMessages   int `json:"averageMessages"`
	MaxMessages       int `json:"maxMessages"`
}

// Comparison — полный ответ движка сравнения.
type Comparison struct {
	Groups  []GroupComparison `json:"groups"`
	Summary ComparisonSummary `json:"summary"`
}

// ParsedMessage — заголовок сообщения, извлечённый из одной строки лога.
// Живёт только в пределах одного прохода разбора.
type ParsedMessage struct {
	Date      time.Time
	DateKnown bool
	SenderRaw string
}

// CachedData — запись кэша для режима одного файла.
type CachedData struct {
	FileName     string      `json:"fileName"`
	FileSize     int64       `json:"fileSize"`
	FileContent  string      `json:"fileContent"`
	RankingData  RankingData `json:"rankingData"`
	DateFilter   DateFilter  `json:"dateFilter"`
	VisibleItems int         `json:"visibleItems"`
	Timestamp    int64       `json:"timestamp"`
}

// MultiFileCachedData — запись кэша для режима нескольких файлов.
type MultiFileCachedData struct {
	Datasets     []FileDataset `json:"datasets"`
	MergedData   *RankingData  `json:"mergedData,omitempty"`
	MergeOptions MergeOptions  `json:"mergeOptions"`
	DateFilter   DateFilter    `json:"dateFilter"`
	Timestamp    int64         `json:"timestamp"`
	Version      string        `json:"version"`
}
