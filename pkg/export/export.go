// Package export writes aggregate tables to xlsx workbooks and csv files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"shopfloor/internal/model"
)

// ErrNoSheets is returned when a workbook would have no sheet
var ErrNoSheets = errors.New("no sheets to write")

// maxSheetName excel limit on sheet name length
const maxSheetName = 31

// Sheet one named table of a workbook
type Sheet struct {
	Name  string
	Table model.Tabular
}

var sheetNameReplacer = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_", "[", "_", "]", "_",
)

// SheetName makes name usable as an excel sheet name
func SheetName(name string) string {
	name = sheetNameReplacer.Replace(strings.TrimSpace(name))
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

// WriteXLSX writes every sheet into one workbook at path. Sheet names are
// sanitised and made unique.
func WriteXLSX(path string, sheets []Sheet) error {
	if len(sheets) == 0 {
		return ErrNoSheets
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]int)
	for i, s := range sheets {
		name := uniqueName(SheetName(s.Name), used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
		if err := writeSheet(f, name, s.Table); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func uniqueName(name string, used map[string]int) string {
	key := strings.ToLower(name)
	n := used[key]
	used[key] = n + 1
	if n == 0 {
		return name
	}
	suffix := fmt.Sprintf(" (%d)", n+1)
	r := []rune(name)
	if len(r)+len(suffix) > maxSheetName {
		r = r[:maxSheetName-len(suffix)]
	}
	return string(r) + suffix
}

func writeSheet(f *excelize.File, sheet string, t model.Tabular) error {
	header := t.Header()
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", sheet, err)
	}

	for i, rec := range t.Records() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(rec))
		for j, v := range rec {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+2, sheet, err)
		}
	}
	return nil
}

// cellValue stores numeric strings as numbers
func cellValue(v string) interface{} {
	if n, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
		return n
	}
	return v
}

// WriteCSV writes one table as a comma separated file
func WriteCSV(path string, t model.Tabular) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(t.Header()); err != nil {
		return err
	}
	if err := w.WriteAll(t.Records()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
