package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "Summary"
	scoresSheet  = "Scores"
)

// WriteXLSX saves the table as an Excel workbook with a summary sheet and a
// scores sheet. The .xlsx extension is appended when missing.
func (t *Table) WriteXLSX(outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(scoresSheet); err != nil {
		return fmt.Errorf("create scores sheet: %w", err)
	}

	if err := t.writeSummarySheet(f); err != nil {
		return fmt.Errorf("write summary sheet: %w", err)
	}
	if err := t.writeScoresSheet(f); err != nil {
		return fmt.Errorf("write scores sheet: %w", err)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	return nil
}

func (t *Table) writeSummarySheet(f *excelize.File) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	if err := f.SetColWidth(summarySheet, "A", "A", 25); err != nil {
		return err
	}

	cells := [][2]any{
		{"Resume Scoring Report", ""},
		{"Generated:", time.Now().Format("2006-01-02 15:04:05")},
		{"Candidates scored:", t.Len()},
		{"Criteria columns:", len(t.columns)},
	}

	if t.Len() > 0 {
		var sum float64
		for _, row := range t.rows {
			sum += row.total
		}
		cells = append(cells, [2]any{"Average total score:", sum / float64(t.Len())})
	}

	for i, pair := range cells {
		labelCell := fmt.Sprintf("A%d", i+1)
		if err := f.SetCellValue(summarySheet, labelCell, pair[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(summarySheet, labelCell, labelCell, headerStyle); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), pair[1]); err != nil {
			return err
		}
	}

	return nil
}

func (t *Table) writeScoresSheet(f *excelize.File) error {
	for i, label := range t.Header() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(scoresSheet, cell, label); err != nil {
			return err
		}
	}

	for r, row := range t.rows {
		values := make([]any, 0, len(row.values)+2)
		values = append(values, row.candidate)
		for _, v := range row.values {
			values = append(values, v)
		}
		values = append(values, row.total)

		for c, value := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(scoresSheet, cell, value); err != nil {
				return err
			}
		}
	}

	return nil
}
