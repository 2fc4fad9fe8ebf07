package report

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"shopfloor/pkg/logger"
)

// FileType kind of a catalogued artifact
type FileType string

const (
	TypeImage FileType = "image"
	TypeTable FileType = "table"
)

var extensions = map[string]FileType{
	".png":  TypeImage,
	".xlsx": TypeTable,
	".csv":  TypeTable,
}

// Entry one catalogued artifact
type Entry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	RelPath    string    `json:"rel_path"`
	Category   Category  `json:"category"`
	Type       FileType  `json:"type"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	SizeHuman  string    `json:"size_human"`
}

// Catalogue lists generated artifacts below an output root
type Catalogue struct {
	layout *Layout
}

// NewCatalogue creates a catalogue over a layout
func NewCatalogue(layout *Layout) *Catalogue {
	return &Catalogue{layout: layout}
}

// Scan walks every category directory and returns image and table files,
// newest first. Missing directories are skipped.
func (c *Catalogue) Scan(ctx context.Context) ([]Entry, error) {
	root, err := filepath.Abs(c.layout.Root())
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0)
	seen := make(map[string]bool)

	for _, cat := range Categories {
		dir := filepath.Join(root, string(cat))
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.WarnCtx(ctx, "skipping %s: %v", path, err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			typ, ok := extensions[strings.ToLower(filepath.Ext(d.Name()))]
			if !ok || seen[path] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				logger.WarnCtx(ctx, "skipping %s: %v", path, err)
				return nil
			}
			seen[path] = true
			rel, _ := filepath.Rel(root, path)
			entries = append(entries, Entry{
				Name:       d.Name(),
				Path:       path,
				RelPath:    filepath.ToSlash(rel),
				Category:   cat,
				Type:       typ,
				ModifiedAt: info.ModTime(),
				Size:       info.Size(),
				SizeHuman:  humanize.Bytes(uint64(info.Size())),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].ModifiedAt.Equal(entries[j].ModifiedAt) {
			return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
		}
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}
