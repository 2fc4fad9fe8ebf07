// Package report lays out generated artifacts on disk and catalogues them.
package report

import (
	"path/filepath"
	"strings"
)

// Category top level artifact directory
type Category string

const (
	CategoryGeneral  Category = "General"
	CategorySections Category = "Sections"
	CategoryMachines Category = "Machines"
	CategoryOEE      Category = "OEE"
)

// Categories in scan order
var Categories = []Category{CategoryGeneral, CategorySections, CategoryMachines, CategoryOEE}

// Sub directories below a category
const (
	DirLatestWeek       = "Latest Week"
	DirPerMachineAvg    = "Per Machine Average"
	DirWeekly           = "Weekly"
	DirOEEGeneral       = "General"
	LatestWeekExport    = "Latest Week Events.xlsx"
	SummaryWorkbookName = "Summary.xlsx"
)

var invalidChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename replaces characters that are invalid in file names with '_'
func SanitizeFilename(name string) string {
	return invalidChars.Replace(name)
}

// Layout resolves artifact paths under an output root
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at root
func NewLayout(root string) *Layout {
	return &Layout{root: root}
}

// Root output root directory
func (l *Layout) Root() string {
	return l.root
}

// Dir directory of a category plus optional sub directories
func (l *Layout) Dir(c Category, sub ...string) string {
	return filepath.Join(append([]string{l.root, string(c)}, sub...)...)
}

// ChartPath .png path of a chart title inside a category directory
func (l *Layout) ChartPath(title string, c Category, sub ...string) string {
	return filepath.Join(l.Dir(c, sub...), SanitizeFilename(title)+".png")
}

// TablePath .csv path of a table title inside a category directory
func (l *Layout) TablePath(title string, c Category, sub ...string) string {
	return filepath.Join(l.Dir(c, sub...), SanitizeFilename(title)+".csv")
}

// LatestWeekExportPath path of the latest week event export
func (l *Layout) LatestWeekExportPath() string {
	return filepath.Join(l.root, LatestWeekExport)
}

// SummaryPath path of the aggregate workbook
func (l *Layout) SummaryPath() string {
	return filepath.Join(l.Dir(CategoryGeneral), SummaryWorkbookName)
}
