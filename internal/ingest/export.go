package ingest

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"langtutor/internal/models"
)

const exportSheet = "Vocabulary"

var exportHeader = []any{
	"Word", "Translation", "Language", "Part of Speech", "Example Sentence",
	"Notes", "Date Added", "Times Reviewed", "Last Reviewed", "Confidence",
}

// WriteXLSX writes words as a single-sheet workbook. The first six columns
// round-trip through LoadXLSX.
func WriteXLSX(w io.Writer, words []models.Vocabulary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, v := range words {
		lastReviewed := ""
		if v.LastReviewed != nil {
			lastReviewed = v.LastReviewed.Format(time.DateTime)
		}
		row := []any{
			v.Word, v.Translation, v.Language, v.PartOfSpeech, deref(v.ExampleSentence),
			deref(v.Notes), v.DateAdded.Format(time.DateTime), v.TimesReviewed, lastReviewed, v.ConfidenceScore,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "F", 20); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
