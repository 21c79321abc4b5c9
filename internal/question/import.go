package question

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const optionSeparator = "|"

var importColumns = []string{"questiontext", "options", "correctanswer", "subjectname", "explanation"}

// ImportRow is one already-parsed tabular row. Options are pipe-delimited.
type ImportRow struct {
	Row           int    `json:"row"`
	QuestionText  string `json:"questionText"`
	Options       string `json:"options"`
	CorrectAnswer string `json:"correctAnswer"`
	SubjectName   string `json:"subjectName"`
	Explanation   string `json:"explanation"`
}

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportReport struct {
	TotalRows int              `json:"total_rows"`
	Imported  int              `json:"imported"`
	Errors    []ImportRowError `json:"errors"`
}

// ImportRows resolves subject names, validates every row and creates the
// questions as one batch. A single failing row rejects the whole batch; the
// returned error wraps the first row's cause and the report lists them all.
func (s *Service) ImportRows(ctx context.Context, rows []ImportRow) (*ImportReport, error) {
	report := &ImportReport{Errors: make([]ImportRowError, 0)}

	subjects, err := s.store.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	byName := make(map[string]string, len(subjects))
	for _, sub := range subjects {
		byName[strings.ToLower(strings.TrimSpace(sub.Name))] = sub.ID
	}

	var firstErr error
	batch := make([]Question, 0, len(rows))
	for _, row := range rows {
		report.TotalRows++

		q, err := s.questionFromRow(row, byName)
		if err != nil {
			report.Errors = append(report.Errors, ImportRowError{Row: row.Row, Error: err.Error()})
			if firstErr == nil {
				firstErr = fmt.Errorf("row %d: %w", row.Row, err)
			}
			continue
		}
		batch = append(batch, q)
	}

	if firstErr != nil {
		return report, firstErr
	}
	if len(batch) == 0 {
		return report, &ValidationError{Fields: []FieldError{{Field: "file", Message: "no data rows found"}}}
	}

	if err := s.store.PutQuestions(ctx, batch); err != nil {
		return nil, fmt.Errorf("import questions: %w", err)
	}
	report.Imported = len(batch)
	return report, nil
}

func (s *Service) questionFromRow(row ImportRow, subjectsByName map[string]string) (Question, error) {
	subjectID, ok := subjectsByName[strings.ToLower(strings.TrimSpace(row.SubjectName))]
	if !ok {
		return Question{}, fmt.Errorf("%w: %q", ErrUnknownSubject, row.SubjectName)
	}

	var options []string
	if strings.TrimSpace(row.Options) != "" {
		options = strings.Split(row.Options, optionSeparator)
	}

	q := normalize(Question{
		ID:            s.newID(),
		SubjectID:     subjectID,
		QuestionText:  row.QuestionText,
		Options:       options,
		CorrectAnswer: row.CorrectAnswer,
		Explanation:   row.Explanation,
	})
	if err := Validate(q); err != nil {
		return Question{}, err
	}
	return q, nil
}

// ParseCSV reads a header-indexed CSV file into import rows.
func ParseCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsFromTable(records)
}

// ParseXLSX reads the first sheet of an Excel workbook into import rows.
func ParseXLSX(r io.Reader) ([]ImportRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("excel sheet is empty")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rowsFromTable(records)
}

func rowsFromTable(records [][]string) ([]ImportRow, error) {
	if len(records) == 0 {
		return nil, errors.New("missing header row")
	}

	index := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		if n := normalizeHeader(h); n != "" {
			index[n] = i
		}
	}
	for _, col := range importColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	out := make([]ImportRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		if isRowEmpty(rec) {
			continue
		}
		out = append(out, ImportRow{
			Row:           i + 2,
			QuestionText:  cell(rec, index, "questiontext"),
			Options:       cell(rec, index, "options"),
			CorrectAnswer: cell(rec, index, "correctanswer"),
			SubjectName:   cell(rec, index, "subjectname"),
			Explanation:   cell(rec, index, "explanation"),
		})
	}
	return out, nil
}

// ExportXLSX writes the whole bank using the import column layout, so an
// exported file can be imported again.
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	subjects, err := s.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(subjects))
	for _, sub := range subjects {
		names[sub.ID] = sub.Name
	}
	items, err := s.ListQuestions(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	headers := []string{"questionText", "options", "correctAnswer", "subjectName", "explanation"}
	for i, h := range headers {
		c, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, c, h)
	}
	for i, q := range items {
		values := []any{
			q.QuestionText,
			strings.Join(q.Options, optionSeparator),
			q.CorrectAnswer,
			names[q.SubjectID],
			q.Explanation,
		}
		for col, v := range values {
			c, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, c, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "E", 32)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(h)
}

func cell(rec []string, idx map[string]int, key string) string {
	i, ok := idx[key]
	if !ok || i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func isRowEmpty(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
