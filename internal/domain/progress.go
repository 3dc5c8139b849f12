package domain

// Stage — этап обработки, о котором сообщается наблюдателю.
type Stage string

const (
	StageReading    Stage = "reading"
	StageExtracting Stage = "extracting"
	StageParsing    Stage = "parsing"
	StageComplete   Stage = "complete"
)

// Progress описывает контрольную точку обработки.
// Значения носят справочный характер и не влияют на результат.
type Progress struct {
	CurrentFile int    `json:"currentFile"`
	TotalFiles  int    `json:"totalFiles"`
	FileName    string `json:"fileName"`
	Stage       Stage  `json:"stage"`
	Percent     int    `json:"progress"`
}
