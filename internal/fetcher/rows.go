package fetcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Row is one data row keyed by header text. Missing cells read as "".
type Row map[string]string

// Get returns the trimmed value of column.
func (r Row) Get(column string) string {
	return strings.TrimSpace(r[column])
}

// Blank reports whether every cell is empty or whitespace.
func (r Row) Blank() bool {
	for _, v := range r {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Format is a spreadsheet file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// RowOptions configures ReadRows.
type RowOptions struct {
	// Sheet selects an xlsx sheet by name; empty means the first sheet.
	Sheet string
	// Format overrides detection from the file extension.
	Format Format
	// Delimiter for csv files. Default ','.
	Delimiter rune
}

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	default:
		return "", eris.Errorf("fetcher: unsupported spreadsheet type %q", filepath.Ext(path))
	}
}

// ReadRows reads a spreadsheet whose first row is the header and returns the
// data rows in file order.
func ReadRows(path string, opts RowOptions) ([]Row, error) {
	format := opts.Format
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return nil, err
		}
	}

	var records [][]string
	switch format {
	case FormatXLSX:
		var err error
		records, err = ReadXLSX(path, XLSXOptions{SheetName: opts.Sheet})
		if err != nil {
			return nil, err
		}
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: open csv")
		}
		defer f.Close() //nolint:errcheck
		records, err = ReadCSV(f, CSVOptions{Delimiter: opts.Delimiter})
		if err != nil {
			return nil, err
		}
	default:
		return nil, eris.Errorf("fetcher: unsupported format %q", format)
	}

	return RowsFromRecords(records), nil
}

// RowsFromRecords keys records[1:] by the trimmed header in records[0]. Blank
// header cells are ignored; a repeated header keeps its first column.
func RowsFromRecords(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}

	type column struct {
		name  string
		index int
	}
	var columns []column
	seen := make(map[string]bool)
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		columns = append(columns, column{name: h, index: i})
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(Row, len(columns))
		for _, c := range columns {
			if c.index < len(rec) {
				row[c.name] = rec[c.index]
			} else {
				row[c.name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}
