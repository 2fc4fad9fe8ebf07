// Package loader reads the downtime and metrics source tables.
package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyTable        = errors.New("table has no header row")
)

// Table raw header + string cells read from a source file
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable builds a table; header cells are trimmed
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: make([]string, len(header)), Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		t.Header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	return t
}

// Column index of a header, -1 when absent
func (t *Table) Column(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Cell trimmed value at row/col; missing trailing cells read as ""
func (t *Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// ReadTable reads a .csv or .xlsx file. The first sheet of a workbook is used.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return readCSV(path)
	case ".xlsx", ".xlsm":
		return readXLSX(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func readCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	r := csv.NewReader(br)
	r.Comma = sniffDelimiter(br)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return NewTable(header, rows), nil
}

// sniffDelimiter picks ';' for exports from locales that use the decimal comma
func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	first := string(line)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	if strings.Count(first, ";") > strings.Count(first, ",") {
		return ';'
	}
	return ','
}

func readXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}
	// Raw values keep date cells as serial numbers, parsed by parseTime
	all, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, ErrEmptyTable
	}

	rows := make([][]string, 0, len(all)-1)
	for _, rec := range all[1:] {
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return NewTable(all[0], rows), nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
