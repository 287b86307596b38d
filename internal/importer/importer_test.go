package importer

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildSheet writes rows into the first sheet of a fresh workbook and
// returns the serialized xlsx bytes.
func buildSheet(t *testing.T, rows [][]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetList()[0]

	for i, row := range rows {
		for j, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

func TestListHeaders(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"Key", "Summary", "", "Priority"},
		{"PROJ-1", "First", "", "High"},
	})

	headers, err := ListHeaders(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ListHeaders() error = %v", err)
	}

	want := []string{"Key", "Summary", "Priority"}
	if !reflect.DeepEqual(headers, want) {
		t.Errorf("headers = %v, expected %v", headers, want)
	}
}

func TestListHeaders_EmptySheet(t *testing.T) {
	data := buildSheet(t, nil)

	headers, err := ListHeaders(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("ListHeaders() error = %v", err)
	}
	if len(headers) != 0 {
		t.Errorf("expected no headers, got %v", headers)
	}
}

func TestListHeaders_InvalidFile(t *testing.T) {
	_, err := ListHeaders(strings.NewReader("this is not a spreadsheet"))
	if !errors.Is(err, ErrInvalidFile) {
		t.Errorf("expected ErrInvalidFile, got %v", err)
	}
}

func TestExtractRows(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"Issue Key", "Summary", "Rank"},
		{"PROJ-1", "Login page", "3"},
		{"PROJ-2", "Search", ""},
	})

	mapping := map[string]string{
		"key":     "Issue Key",
		"summary": "Summary",
		"rank":    "Rank",
	}

	rows, rowErrors, err := ExtractRows(bytes.NewReader(data), mapping)
	if err != nil {
		t.Fatalf("ExtractRows() error = %v", err)
	}
	if len(rowErrors) != 0 {
		t.Fatalf("expected no row errors, got %v", rowErrors)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].Key() != "PROJ-1" {
		t.Errorf("row 1 key = %q, expected PROJ-1", rows[0].Key())
	}
	if rows[0].Number != 2 {
		t.Errorf("row 1 Number = %d, expected 2", rows[0].Number)
	}
	if rows[0].Fields["summary"] != "Login page" {
		t.Errorf("row 1 summary = %q", rows[0].Fields["summary"])
	}

	// Blank cell is carried as an empty string, not dropped from the row.
	if v, ok := rows[1].Fields["rank"]; !ok || v != "" {
		t.Errorf("row 2 rank = %q (present=%v), expected empty string present", v, ok)
	}
}

func TestExtractRows_CaseInsensitiveTrimmedMatch(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"  issue KEY  ", "SUMMARY"},
		{"PROJ-9", "Mixed case headers"},
	})

	mapping := map[string]string{
		"key":     "Issue Key",
		"summary": " summary ",
	}

	rows, _, err := ExtractRows(bytes.NewReader(data), mapping)
	if err != nil {
		t.Fatalf("ExtractRows() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Key() != "PROJ-9" {
		t.Errorf("key = %q, expected PROJ-9", rows[0].Key())
	}
	if rows[0].Fields["summary"] != "Mixed case headers" {
		t.Errorf("summary = %q", rows[0].Fields["summary"])
	}
}

func TestExtractRows_DuplicateHeaderFirstMatchWins(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"Key", "Status", "Status"},
		{"PROJ-1", "first", "second"},
	})

	mapping := map[string]string{
		"key":    "Key",
		"status": "Status",
	}

	rows, _, err := ExtractRows(bytes.NewReader(data), mapping)
	if err != nil {
		t.Fatalf("ExtractRows() error = %v", err)
	}
	if rows[0].Fields["status"] != "first" {
		t.Errorf("status = %q, expected first column to win", rows[0].Fields["status"])
	}
}

func TestExtractRows_MissingKeyReportedPerRow(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"Key", "Summary"},
		{"PROJ-1", "ok"},
		{"", "no key here"},
		{"PROJ-3", "ok too"},
	})

	mapping := map[string]string{"key": "Key", "summary": "Summary"}

	rows, rowErrors, err := ExtractRows(bytes.NewReader(data), mapping)
	if err != nil {
		t.Fatalf("ExtractRows() error = %v", err)
	}

	if len(rows) != 2 {
		t.Errorf("expected 2 valid rows, got %d", len(rows))
	}
	if len(rowErrors) != 1 {
		t.Fatalf("expected 1 row error, got %d", len(rowErrors))
	}
	// Keyless row sits at spreadsheet row 3 (1-based, after the header).
	if rowErrors[0].Row != 3 {
		t.Errorf("error row = %d, expected 3", rowErrors[0].Row)
	}
}

func TestExtractRows_EmptyRowsDropped(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"Key", "Summary"},
		{"PROJ-1", "first"},
		{"", ""},
		{"PROJ-2", "second"},
	})

	mapping := map[string]string{"key": "Key", "summary": "Summary"}

	rows, rowErrors, err := ExtractRows(bytes.NewReader(data), mapping)
	if err != nil {
		t.Fatalf("ExtractRows() error = %v", err)
	}
	if len(rowErrors) != 0 {
		t.Errorf("fully empty row should be dropped, not an error: %v", rowErrors)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Number != 4 {
		t.Errorf("second row Number = %d, expected 4", rows[1].Number)
	}
}

func TestExtractRows_MissingKeyMapping(t *testing.T) {
	data := buildSheet(t, [][]string{{"Key"}, {"PROJ-1"}})

	_, _, err := ExtractRows(bytes.NewReader(data), map[string]string{"summary": "Summary"})
	if !errors.Is(err, ErrMissingKeyMapping) {
		t.Errorf("expected ErrMissingKeyMapping, got %v", err)
	}

	_, _, err = ExtractRows(bytes.NewReader(data), map[string]string{"key": "  "})
	if !errors.Is(err, ErrMissingKeyMapping) {
		t.Errorf("blank key mapping: expected ErrMissingKeyMapping, got %v", err)
	}
}

func TestExtractRows_UnmappedColumnIgnored(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"Key"},
		{"PROJ-1"},
	})

	mapping := map[string]string{"key": "Key", "budget": "Budget"}

	rows, _, err := ExtractRows(bytes.NewReader(data), mapping)
	if err != nil {
		t.Fatalf("ExtractRows() error = %v", err)
	}
	if _, ok := rows[0].Fields["budget"]; ok {
		t.Error("field with no matching header should be absent from the row")
	}
}

func TestExtractRows_Pure(t *testing.T) {
	data := buildSheet(t, [][]string{
		{"Key", "Summary", "Rank"},
		{"PROJ-1", "a", "1"},
		{"", "keyless", "2"},
		{"PROJ-2", "b", ""},
	})

	mapping := map[string]string{"key": "Key", "summary": "Summary", "rank": "Rank"}

	rows1, errs1, err1 := ExtractRows(bytes.NewReader(data), mapping)
	rows2, errs2, err2 := ExtractRows(bytes.NewReader(data), mapping)

	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v / %v", err1, err2)
	}
	if !reflect.DeepEqual(rows1, rows2) {
		t.Error("two extractions over the same input diverged")
	}
	if !reflect.DeepEqual(errs1, errs2) {
		t.Error("row errors diverged between extractions")
	}
}
