package models

import "time"

// Hypothesis is a diagnostic goal the subject can choose to validate.
// ThresholdMin/Max are advisory display metadata and never gate classification.
type Hypothesis struct {
	ID           int      `json:"id"`
	Code         string   `json:"code"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ThresholdMin float64  `json:"thresholdMin"`
	ThresholdMax float64  `json:"thresholdMax"`
	Requires     []string `json:"requires,omitempty"`
}

// Symptom is a single question with the expert's prior confidence.
type Symptom struct {
	ID       int     `json:"id"`
	Code     string  `json:"code"`
	Text     string  `json:"text"`
	CFExpert float64 `json:"cfExpert"`
}

// Answer is one self-reported response on the fixed CF scale.
type Answer struct {
	SymptomID int     `json:"symptomId"`
	CFUser    float64 `json:"cfUser"`
}

// CFScaleOption is one point of the user answer scale.
type CFScaleOption struct {
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// CFScale is the ordered answer scale, strongest belief first.
var CFScale = []CFScaleOption{
	{Value: 1.0, Label: "Sangat yakin"},
	{Value: 0.8, Label: "Yakin"},
	{Value: 0.6, Label: "Cukup Yakin"},
	{Value: 0.4, Label: "Hampir yakin"},
	{Value: 0.2, Label: "Kurang yakin"},
	{Value: 0.0, Label: "Tidak yakin"},
}

// IsCFScaleValue reports whether v is exactly one of the scale values.
func IsCFScaleValue(v float64) bool {
	for _, opt := range CFScale {
		if opt.Value == v {
			return true
		}
	}
	return false
}

// AddictionLevel is one of the five fixed severity bands.
type AddictionLevel string

const (
	LevelVeryLow  AddictionLevel = "Sangat Rendah"
	LevelLow      AddictionLevel = "Rendah"
	LevelMedium   AddictionLevel = "Sedang"
	LevelHigh     AddictionLevel = "Tinggi"
	LevelVeryHigh AddictionLevel = "Sangat Tinggi"
)

// AddictionLevels lists the bands from lowest to highest.
var AddictionLevels = []AddictionLevel{LevelVeryLow, LevelLow, LevelMedium, LevelHigh, LevelVeryHigh}

// IsHigh reports whether the level counts as a high addiction case.
func (l AddictionLevel) IsHigh() bool {
	return l == LevelHigh || l == LevelVeryHigh
}

// Valid reports whether l is one of the five bands.
func (l AddictionLevel) Valid() bool {
	for _, lvl := range AddictionLevels {
		if lvl == l {
			return true
		}
	}
	return false
}

// Index returns the band position (0 = lowest) or -1.
func (l AddictionLevel) Index() int {
	for i, lvl := range AddictionLevels {
		if lvl == l {
			return i
		}
	}
	return -1
}

// IdentifiedSymptom is one audit row of a diagnosis.
type IdentifiedSymptom struct {
	SymptomID   int     `json:"symptomId"`
	SymptomCode string  `json:"symptomCode"`
	SymptomText string  `json:"symptomText"`
	CFExpert    float64 `json:"cfExpert"`
	CFUser      float64 `json:"cfUser"`
	CFCombined  float64 `json:"cfCombined"`
}

// Identified reports whether the subject reported any belief in the symptom.
func (s IdentifiedSymptom) Identified() bool {
	return s.CFUser > 0
}

// DiagnosisResult is the immutable output of one inference run.
type DiagnosisResult struct {
	ID                 string              `json:"id"`
	Subject            SubjectIdentity     `json:"userInfo"`
	HypothesisID       int                 `json:"hypothesisId"`
	HypothesisCode     string              `json:"hypothesisCode"`
	HypothesisName     string              `json:"hypothesisName"`
	IdentifiedSymptoms []IdentifiedSymptom `json:"identifiedSymptoms"`
	CFCombinedFinal    float64             `json:"cfCombinedFinal"`
	CFPercentage       float64             `json:"cfPercentage"`
	AddictionLevel     AddictionLevel      `json:"addictionLevel"`
	Diagnosis          string              `json:"diagnosis"`
	Recommendation     string              `json:"recommendation"`
	CreatedAt          time.Time           `json:"createdAt"`
}

// IdentifiedCount returns how many symptoms were answered above zero.
func (r DiagnosisResult) IdentifiedCount() int {
	n := 0
	for _, s := range r.IdentifiedSymptoms {
		if s.Identified() {
			n++
		}
	}
	return n
}

// LevelCounts holds the number of results per band.
type LevelCounts struct {
	VeryLow  int `json:"veryLow"`
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	VeryHigh int `json:"veryHigh"`
}

// Add increments the counter of the given band.
func (c *LevelCounts) Add(level AddictionLevel) {
	switch level {
	case LevelVeryLow:
		c.VeryLow++
	case LevelLow:
		c.Low++
	case LevelMedium:
		c.Medium++
	case LevelHigh:
		c.High++
	case LevelVeryHigh:
		c.VeryHigh++
	}
}

// GenderCounts holds the number of results per gender.
type GenderCounts struct {
	Male   int `json:"male"`
	Female int `json:"female"`
	Other  int `json:"other,omitempty"`
}

// ProgramCount is the number of results for one program of study.
type ProgramCount struct {
	ProgramStudi string `json:"programStudi"`
	Count        int    `json:"count"`
}

// HypothesisCount is the number of results for one chosen hypothesis.
type HypothesisCount struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// RespondentSummary is one row of the dashboard respondent table.
type RespondentSummary struct {
	ResultID       string         `json:"resultId"`
	Name           string         `json:"nama"`
	ProgramStudi   string         `json:"programStudi"`
	Angkatan       string         `json:"angkatan"`
	Gender         string         `json:"jenisKelamin"`
	HypothesisCode string         `json:"hypothesisCode"`
	CFPercentage   float64        `json:"cfPercentage"`
	AddictionLevel AddictionLevel `json:"addictionLevel"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Statistics summarises every stored result. It is always derived, never persisted.
type Statistics struct {
	TotalRespondents      int                 `json:"totalRespondents"`
	AddictionLevels       LevelCounts         `json:"addictionLevels"`
	ByGender              GenderCounts        `json:"byGender"`
	ByProgramStudi        []ProgramCount      `json:"byProgramStudi"`
	ByHypothesis          []HypothesisCount   `json:"byHypothesis"`
	AverageAddictionLevel float64             `json:"averageAddictionLevel"`
	MedianPercentage      float64             `json:"medianPercentage"`
	StdDevPercentage      float64             `json:"stdDevPercentage"`
	HighAddictionCases    int                 `json:"highAddictionCases"`
	Respondents           []RespondentSummary `json:"respondents"`
	GeneratedAt           time.Time           `json:"generatedAt"`
}
