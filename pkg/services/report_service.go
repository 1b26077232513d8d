package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/models"

	"github.com/go-pdf/fpdf"
	"github.com/xuri/excelize/v2"
)

// ReportFormat selects the rendering of a downloadable report.
type ReportFormat string

const (
	FormatExcel ReportFormat = "excel"
	FormatPDF   ReportFormat = "pdf"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypePDF  = "application/pdf"

	resultSheet  = "Hasil"
	summarySheet = "Ringkasan"
	detailSheet  = "Rekap"
)

// ParseReportFormat accepts "excel" (or "xlsx") and "pdf"; empty means excel.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "excel", "xlsx":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", apperrors.InvalidInput(fmt.Sprintf("unsupported report format %q", s)).
			WithDetail("supported", []string{string(FormatExcel), string(FormatPDF)})
	}
}

// Report is a rendered file ready to be downloaded.
type Report struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders stored results as spreadsheets or PDF documents.
type ReportService struct {
	store    ResultStore
	stats    *StatisticsService
	location *time.Location
}

// NewReportService creates a renderer. Timestamps are printed in loc.
func NewReportService(store ResultStore, stats *StatisticsService, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{store: store, stats: stats, location: loc}
}

// ResultReport renders a single stored result.
func (s *ReportService) ResultReport(ctx context.Context, id string, format ReportFormat) (Report, error) {
	result, err := s.store.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return s.RenderResult(result, format)
}

// AllReports renders every stored result with the statistics summary.
func (s *ReportService) AllReports(ctx context.Context, format ReportFormat) (Report, error) {
	results, err := s.store.ListAll(ctx)
	if err != nil {
		return Report{}, err
	}
	summary, err := s.stats.Summarize(results)
	if err != nil {
		return Report{}, err
	}
	return s.RenderAll(results, summary, format)
}

// RenderResult renders one result in the given format.
func (s *ReportService) RenderResult(result models.DiagnosisResult, format ReportFormat) (Report, error) {
	base := "hasil-diagnosa-" + shortID(result.ID)
	switch format {
	case FormatExcel:
		data, err := s.resultWorkbook(result)
		if err != nil {
			return Report{}, apperrors.Wrap(err, "failed to render excel report")
		}
		return Report{Filename: base + ".xlsx", ContentType: contentTypeXLSX, Data: data}, nil
	case FormatPDF:
		data, err := s.resultPDF(result)
		if err != nil {
			return Report{}, apperrors.Wrap(err, "failed to render pdf report")
		}
		return Report{Filename: base + ".pdf", ContentType: contentTypePDF, Data: data}, nil
	default:
		_, err := ParseReportFormat(string(format))
		return Report{}, err
	}
}

// RenderAll renders a bulk report with a summary and one row per result.
func (s *ReportService) RenderAll(results []models.DiagnosisResult, summary models.Statistics, format ReportFormat) (Report, error) {
	base := "rekap-diagnosa-" + summary.GeneratedAt.In(s.location).Format("20060102-150405")
	switch format {
	case FormatExcel:
		data, err := s.summaryWorkbook(results, summary)
		if err != nil {
			return Report{}, apperrors.Wrap(err, "failed to render excel report")
		}
		return Report{Filename: base + ".xlsx", ContentType: contentTypeXLSX, Data: data}, nil
	case FormatPDF:
		data, err := s.summaryPDF(results, summary)
		if err != nil {
			return Report{}, apperrors.Wrap(err, "failed to render pdf report")
		}
		return Report{Filename: base + ".pdf", ContentType: contentTypePDF, Data: data}, nil
	default:
		_, err := ParseReportFormat(string(format))
		return Report{}, err
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "baru"
	}
	return id
}

func (s *ReportService) formatTime(t time.Time) string {
	return t.In(s.location).Format("02-01-2006 15:04")
}

func identityRows(r models.DiagnosisResult) [][2]string {
	return [][2]string{
		{"Nama", r.Subject.Name},
		{"Usia", fmt.Sprintf("%d", r.Subject.Age)},
		{"Jenis Kelamin", r.Subject.Gender},
		{"Program Studi", r.Subject.ProgramStudi},
		{"Angkatan", r.Subject.Angkatan},
		{"Domisili", r.Subject.Domicile},
	}
}

// --- excel ---

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func boldStyle(f *excelize.File) (int, error) {
	return f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
}

func (s *ReportService) writeResultSheet(f *excelize.File, sheet string, r models.DiagnosisResult) error {
	bold, err := boldStyle(f)
	if err != nil {
		return err
	}

	row := 1
	if err := setRow(f, sheet, row, "Hasil Diagnosa Tingkat Kecanduan"); err != nil {
		return err
	}
	row += 2
	for _, kv := range identityRows(r) {
		if err := setRow(f, sheet, row, kv[0], kv[1]); err != nil {
			return err
		}
		row++
	}
	row++
	summary := [][]interface{}{
		{"Hipotesis", fmt.Sprintf("%s - %s", r.HypothesisCode, r.HypothesisName)},
		{"CF Akhir", r.CFCombinedFinal},
		{"Persentase", fmt.Sprintf("%.2f%%", r.CFPercentage)},
		{"Tingkat Kecanduan", string(r.AddictionLevel)},
		{"Diagnosa", r.Diagnosis},
		{"Rekomendasi", r.Recommendation},
		{"Tanggal", s.formatTime(r.CreatedAt)},
	}
	for _, values := range summary {
		if err := setRow(f, sheet, row, values...); err != nil {
			return err
		}
		row++
	}

	row++
	if err := setRow(f, sheet, row, "Kode", "Gejala", "CF Pakar", "CF User", "CF Gabungan"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), bold); err != nil {
		return err
	}
	row++
	for _, sym := range r.IdentifiedSymptoms {
		if err := setRow(f, sheet, row, sym.SymptomCode, sym.SymptomText, sym.CFExpert, sym.CFUser, sym.CFCombined); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(sheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 70)
}

func (s *ReportService) resultWorkbook(r models.DiagnosisResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultSheet); err != nil {
		return nil, err
	}
	if err := s.writeResultSheet(f, resultSheet, r); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ReportService) summaryWorkbook(results []models.DiagnosisResult, st models.Statistics) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	bold, err := boldStyle(f)
	if err != nil {
		return nil, err
	}

	rows := [][]interface{}{
		{"Rekap Diagnosa", s.formatTime(st.GeneratedAt)},
		{},
		{"Total Responden", st.TotalRespondents},
		{"Rata-rata Persentase", st.AverageAddictionLevel},
		{"Median Persentase", st.MedianPercentage},
		{"Kasus Kecanduan Tinggi", st.HighAddictionCases},
		{},
		{"Tingkat", "Jumlah"},
		{string(models.LevelVeryLow), st.AddictionLevels.VeryLow},
		{string(models.LevelLow), st.AddictionLevels.Low},
		{string(models.LevelMedium), st.AddictionLevels.Medium},
		{string(models.LevelHigh), st.AddictionLevels.High},
		{string(models.LevelVeryHigh), st.AddictionLevels.VeryHigh},
		{},
		{"Jenis Kelamin", "Jumlah"},
		{models.GenderMale, st.ByGender.Male},
		{models.GenderFemale, st.ByGender.Female},
	}
	for i, values := range rows {
		if err := setRow(f, summarySheet, i+1, values...); err != nil {
			return nil, err
		}
	}
	for _, header := range []int{8, 15} {
		if err := f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", header), fmt.Sprintf("B%d", header), bold); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 28); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, err
	}
	header := []interface{}{"ID", "Tanggal", "Nama", "Usia", "Jenis Kelamin", "Program Studi", "Angkatan", "Domisili",
		"Hipotesis", "CF Akhir", "Persentase", "Tingkat Kecanduan", "Gejala Teridentifikasi"}
	if err := setRow(f, detailSheet, 1, header...); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(detailSheet, "A1", "M1", bold); err != nil {
		return nil, err
	}
	for i, r := range results {
		values := []interface{}{r.ID, s.formatTime(r.CreatedAt), r.Subject.Name, r.Subject.Age, r.Subject.Gender,
			r.Subject.ProgramStudi, r.Subject.Angkatan, r.Subject.Domicile, r.HypothesisCode,
			r.CFCombinedFinal, r.CFPercentage, string(r.AddictionLevel), r.IdentifiedCount()}
		if err := setRow(f, detailSheet, i+2, values...); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- pdf ---

func newPDF() (*fpdf.Fpdf, func(string) string) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	return pdf, pdf.UnicodeTranslatorFromDescriptor("")
}

func (s *ReportService) writeResultPage(pdf *fpdf.Fpdf, tr func(string) string, r models.DiagnosisResult) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, tr("Hasil Diagnosa Tingkat Kecanduan"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	for _, kv := range identityRows(r) {
		pdf.CellFormat(40, 6, tr(kv[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(": "+kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(40, 6, "Tanggal", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, ": "+s.formatTime(r.CreatedAt), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(221, 235, 247)
	widths := []float64{15, 105, 20, 20, 20}
	for i, h := range []string{"Kode", "Gejala", "CF Pakar", "CF User", "CF Gab."} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, sym := range r.IdentifiedSymptoms {
		text := sym.SymptomText
		if len(text) > 70 {
			text = text[:67] + "..."
		}
		pdf.CellFormat(widths[0], 6, sym.SymptomCode, "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(text), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%.2f", sym.CFExpert), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, fmt.Sprintf("%.2f", sym.CFUser), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, fmt.Sprintf("%.4f", sym.CFCombined), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s - %s: %.2f%% (%s)", r.HypothesisCode, r.HypothesisName, r.CFPercentage, r.AddictionLevel)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Diagnosa", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(r.Diagnosis), "", "L", false)
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Rekomendasi", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(r.Recommendation), "", "L", false)
}

func outputPDF(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *ReportService) resultPDF(r models.DiagnosisResult) ([]byte, error) {
	pdf, tr := newPDF()
	s.writeResultPage(pdf, tr, r)
	return outputPDF(pdf)
}

func (s *ReportService) summaryPDF(results []models.DiagnosisResult, st models.Statistics) ([]byte, error) {
	pdf, tr := newPDF()
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Rekap Diagnosa", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)

	lines := []string{
		fmt.Sprintf("Dibuat: %s", s.formatTime(st.GeneratedAt)),
		fmt.Sprintf("Total responden: %d", st.TotalRespondents),
		fmt.Sprintf("Rata-rata persentase: %.2f%%", st.AverageAddictionLevel),
		fmt.Sprintf("Kasus kecanduan tinggi: %d", st.HighAddictionCases),
		fmt.Sprintf("%s: %d, %s: %d, %s: %d, %s: %d, %s: %d",
			models.LevelVeryLow, st.AddictionLevels.VeryLow,
			models.LevelLow, st.AddictionLevels.Low,
			models.LevelMedium, st.AddictionLevels.Medium,
			models.LevelHigh, st.AddictionLevels.High,
			models.LevelVeryHigh, st.AddictionLevels.VeryHigh),
	}
	for _, l := range lines {
		pdf.CellFormat(0, 6, tr(l), "", 1, "L", false, 0, "")
	}

	for _, r := range results {
		s.writeResultPage(pdf, tr, r)
	}
	return outputPDF(pdf)
}
