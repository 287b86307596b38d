// Package importer turns an uploaded spreadsheet plus a field-to-column
// mapping into an ordered sequence of field-mapped rows, and classifies
// those rows as inserts or updates against an existing key set. It is pure
// over (file bytes, mapping): preview and commit run the same extraction.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// KeyField is the canonical field name every import mapping must cover.
const KeyField = "key"

var (
	// ErrInvalidFile indicates the upload could not be parsed as a spreadsheet.
	ErrInvalidFile = errors.New("file cannot be parsed as a spreadsheet")
	// ErrMissingKeyMapping indicates the mapping has no entry for the key field.
	ErrMissingKeyMapping = errors.New("mapping has no entry for the key field")
)

// Row is one extracted data row.
type Row struct {
	// Number is the 1-based spreadsheet row number (header row is 1, first
	// data row is 2). Row-level errors report this position.
	Number int `json:"row"`
	// Fields holds one value per mapped field, keyed by canonical field name.
	// Blank cells are carried as empty strings.
	Fields map[string]string `json:"fields"`
}

// Key returns the row's business key, trimmed.
func (r Row) Key() string {
	return strings.TrimSpace(r.Fields[KeyField])
}

// RowError is a per-row extraction failure that does not abort the import.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ListHeaders reads the first row of the first sheet and returns the ordered
// non-empty header cell values. Callers use this to build a mapping before
// committing to an import.
func ListHeaders(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer f.Close()

	rows, err := firstSheetRows(f)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []string{}, nil
	}

	headers := make([]string, 0, len(rows[0]))
	for _, cell := range rows[0] {
		if strings.TrimSpace(cell) != "" {
			headers = append(headers, cell)
		}
	}
	return headers, nil
}

// ExtractRows reads every data row of the first sheet and, for each mapped
// field, copies the value of the column whose header matches the mapping
// value case-insensitively with surrounding whitespace trimmed. On duplicate
// headers the first match wins. Rows with no populated field are dropped;
// rows missing a key value are reported as RowErrors instead of aborting.
func ExtractRows(r io.Reader, mapping map[string]string) ([]Row, []RowError, error) {
	if strings.TrimSpace(mapping[KeyField]) == "" {
		return nil, nil, ErrMissingKeyMapping
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	defer f.Close()

	sheetRows, err := firstSheetRows(f)
	if err != nil {
		return nil, nil, err
	}
	if len(sheetRows) < 2 {
		return []Row{}, []RowError{}, nil
	}

	columns := resolveColumns(sheetRows[0], mapping)

	var rows []Row
	var rowErrors []RowError

	for i := 1; i < len(sheetRows); i++ {
		cells := sheetRows[i]
		fields := make(map[string]string, len(columns))
		populated := 0

		for field, col := range columns {
			value := ""
			if col < len(cells) {
				value = cells[col]
			}
			fields[field] = value
			if strings.TrimSpace(value) != "" {
				populated++
			}
		}

		if populated == 0 {
			continue
		}

		row := Row{Number: i + 1, Fields: fields}
		if row.Key() == "" {
			rowErrors = append(rowErrors, RowError{
				Row:     row.Number,
				Message: "missing value for key field",
			})
			continue
		}

		rows = append(rows, row)
	}

	return rows, rowErrors, nil
}

// resolveColumns maps each canonical field name to the index of the first
// header matching its mapped column name, comparing case-insensitively with
// whitespace trimmed. Fields whose column is absent are omitted.
func resolveColumns(headers []string, mapping map[string]string) map[string]int {
	columns := make(map[string]int, len(mapping))
	for field, header := range mapping {
		want := strings.ToLower(strings.TrimSpace(header))
		if want == "" {
			continue
		}
		for i, h := range headers {
			if strings.ToLower(strings.TrimSpace(h)) == want {
				columns[field] = i
				break
			}
		}
	}
	return columns
}

func firstSheetRows(f *excelize.File) ([][]string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFile)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}
	return rows, nil
}
