package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Common errors for table reading.
var (
	ErrEmptyTable        = errors.New("table has no rows")
	ErrNoSheets          = errors.New("workbook has no sheets")
	ErrUnsupportedFormat = errors.New("unsupported input format")
)

// Table is a tabular source: row 0 holds the headers, the remaining rows hold data.
// File cells are kept as the text that was read, empty cells are nil. Database
// rows may also carry time.Time or numeric values.
type Table [][]any

// Headers returns the header row as strings.
func (t Table) Headers() []string {
	if len(t) == 0 {
		return nil
	}
	headers := make([]string, len(t[0]))
	for i, c := range t[0] {
		if c != nil {
			headers[i] = fmt.Sprint(c)
		}
	}

	return headers
}

// Rows returns the data rows.
func (t Table) Rows() [][]any {
	if len(t) < 2 {
		return nil
	}

	return t[1:]
}

// ReadFile reads a CSV or Excel workbook. For workbooks the named sheet is used,
// or the first sheet when sheet is empty.
func ReadFile(path, sheet string) (Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		return ReadCSV(file)
	case ".xlsx", ".xlsm":
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		return ReadWorkbook(file, sheet)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ReadCSV reads a comma separated table.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyTable
	}
	if len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}

	return fromStrings(records), nil
}

// ReadWorkbook reads one sheet of an Excel workbook using raw cell values,
// so date cells come through as spreadsheet serials.
func ReadWorkbook(r io.Reader, sheet string) (Table, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer book.Close()

	if sheet == "" {
		sheets := book.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoSheets
		}
		sheet = sheets[0]
	}

	rows, err := book.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	return fromStrings(rows), nil
}

func fromStrings(records [][]string) Table {
	table := make(Table, len(records))
	for i, record := range records {
		row := make([]any, len(record))
		for j, value := range record {
			if value != "" {
				row[j] = value
			}
		}
		table[i] = row
	}

	return table
}
