package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/readdaily/pkg/models"
)

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath       string // Path to the Excel or CSV file
	IDColumn       string // Column with the article id, empty ids are generated
	TitleColumn    string
	SubtitleColumn string
	AuthorColumn   string
	GenreColumn    string
	ContentColumn  string
	SheetName      string // Name of the sheet to import, empty means the first sheet
	StartRow       int    // The row to start importing from (1-based index)
	IDPrefix       string // Prefix for generated ids
	DefaultGenre   string // Genre used when a row has none
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:       "A",
		TitleColumn:    "B",
		SubtitleColumn: "C",
		AuthorColumn:   "D",
		GenreColumn:    "E",
		ContentColumn:  "F",
		StartRow:       2, // By default, start from the second row (skip header)
		IDPrefix:       "imp-",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// ImportArticles reads articles from an Excel or CSV file and merges them
// into existing. Rows with an id already present replace that article in place,
// new ones are appended in file order.
func ImportArticles(config ImportConfig, existing []models.Article) ([]models.Article, *ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, nil, err
	}
	merged, result := mergeRows(rows, config, existing)
	return merged, result, nil
}

// readExcel returns every row of the sheet
func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

// readCSV returns every record of the file
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func mergeRows(rows [][]string, config ImportConfig, existing []models.Article) ([]models.Article, *ImportResult) {
	result := &ImportResult{Errors: make([]string, 0)}

	merged := append([]models.Article(nil), existing...)
	index := make(map[string]int, len(merged))
	for i, a := range merged {
		index[a.ID] = i
	}

	currentGenre := config.DefaultGenre
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow || isBlank(row) {
			continue
		}

		// A row with only a title cell is a genre header for the rows below it
		if header, ok := genreHeader(row, config); ok {
			currentGenre = header
			continue
		}

		result.TotalProcessed++
		article, err := articleFromRow(row, config, currentGenre)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		if article.ID == "" {
			article.ID = fmt.Sprintf("%s%03d", config.IDPrefix, rowNum)
		}

		if pos, ok := index[article.ID]; ok {
			if merged[pos] == article {
				result.Skipped++
				continue
			}
			merged[pos] = article
			result.Updated++
			continue
		}
		index[article.ID] = len(merged)
		merged = append(merged, article)
		result.Created++
	}
	return merged, result
}

func articleFromRow(row []string, config ImportConfig, currentGenre string) (models.Article, error) {
	a := models.Article{
		ID:       cell(row, config.IDColumn),
		Title:    cell(row, config.TitleColumn),
		Subtitle: cell(row, config.SubtitleColumn),
		Author:   cell(row, config.AuthorColumn),
		Genre:    cell(row, config.GenreColumn),
		Content:  cell(row, config.ContentColumn),
	}
	if a.Genre == "" {
		a.Genre = currentGenre
	}
	if a.Title == "" {
		return a, fmt.Errorf("title cannot be empty")
	}
	if a.Content == "" {
		return a, fmt.Errorf("content cannot be empty")
	}
	return a, nil
}

func genreHeader(row []string, config ImportConfig) (string, bool) {
	title := cell(row, config.TitleColumn)
	if title == "" {
		title = cell(row, config.IDColumn)
	}
	if title == "" {
		return "", false
	}
	for _, col := range []string{config.SubtitleColumn, config.AuthorColumn, config.GenreColumn, config.ContentColumn} {
		if cell(row, col) != "" {
			return "", false
		}
	}
	if config.IDColumn != "" && cell(row, config.IDColumn) != "" && cell(row, config.TitleColumn) != "" {
		return "", false
	}
	return strings.Trim(title, "\""), true
}

// cell returns the trimmed value of column in row, or "" when out of range
func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
