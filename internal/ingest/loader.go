package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"langtutor/internal/models"
	"langtutor/internal/repo"
)

// ImportResult summarizes one import.
type ImportResult struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Loader imports vocabulary into the repository.
type Loader struct {
	repo repo.VocabularyRepository
}

// NewLoader creates a new Loader instance
func NewLoader(repo repo.VocabularyRepository) *Loader {
	return &Loader{repo: repo}
}

// LoadFromFile imports a .json or .xlsx file.
func (l *Loader) LoadFromFile(ctx context.Context, filePath string) (*ImportResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return l.LoadJSON(ctx, file)
	case ".xlsx":
		return l.LoadXLSX(ctx, file)
	default:
		return nil, fmt.Errorf("unsupported import format %q", filepath.Ext(filePath))
	}
}

// LoadJSON imports a JSON array of entries. Existing (word, language) pairs
// are skipped.
func (l *Loader) LoadJSON(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var entries []models.Vocabulary
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	log.Info().Int("entries", len(entries)).Msg("Importing vocabulary")
	result := &ImportResult{Errors: make([]string, 0)}
	for i, v := range entries {
		l.load(ctx, v, fmt.Sprintf("Entry %d", i+1), result)
	}
	return result, nil
}

// LoadXLSX imports the first sheet of a workbook laid out like the export:
// a header row, then word, translation, language, part of speech, example
// sentence and notes columns.
func (l *Loader) LoadXLSX(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		cell := func(c int) string {
			if c < len(row) {
				return strings.TrimSpace(row[c])
			}
			return ""
		}
		if strings.Join(row, "") == "" {
			continue
		}
		l.load(ctx, models.Vocabulary{
			Word:            cell(0),
			Translation:     cell(1),
			Language:        cell(2),
			PartOfSpeech:    cell(3),
			ExampleSentence: optional(cell(4)),
			Notes:           optional(cell(5)),
		}, fmt.Sprintf("Row %d", i+1), result)
	}
	return result, nil
}

func (l *Loader) load(ctx context.Context, v models.Vocabulary, label string, result *ImportResult) {
	result.Total++
	if err := v.Validate(); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", label, err))
		return
	}

	v.ID = 0
	created, err := l.repo.Add(ctx, &v)
	if err != nil {
		log.Error().Err(err).Str("word", v.Word).Msg("Failed to import vocabulary entry")
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", label, err))
		return
	}
	if !created {
		result.Skipped++
		return
	}
	result.Created++
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
