// Package ingest turns a rate-bid archive into raw worksheet tables. All
// file system access of a tiering run happens here.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rate-tiering/internal/fetcher"
	"github.com/sells-group/rate-tiering/internal/model"
)

// Options configures archive ingestion.
type Options struct {
	// Extension selects workbook files, e.g. ".xlsx".
	Extension string
	// HeaderRow is the 0-based header row of every worksheet.
	HeaderRow int
	// Concurrency bounds parallel workbook parsing; values below 1 mean 1.
	Concurrency int
	// TempDir is where archives are staged; empty uses the OS default.
	TempDir string
	// Sources fetches remote archives; nil allows local paths only.
	Sources fetcher.Sources
}

// DefaultOptions reads .xlsx workbooks whose header is on the second row.
func DefaultOptions() Options {
	return Options{Extension: ".xlsx", HeaderRow: 1, Concurrency: 1}
}

type workbookEntry struct {
	name string
	wb   *fetcher.Workbook
}

// Archive is an extracted archive with every readable workbook opened.
type Archive struct {
	dir       string
	opts      Options
	workbooks []workbookEntry
	warnings  []model.Warning
}

// Open stages the archive, extracts its workbooks and parses each of them.
// An unreadable archive is an error; an unreadable workbook becomes a warning.
func Open(ctx context.Context, source string, opts Options) (*Archive, error) {
	if opts.Extension == "" {
		opts.Extension = ".xlsx"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}

	dir, err := os.MkdirTemp(opts.TempDir, "rate-bids-*")
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create staging dir")
	}
	a := &Archive{dir: dir, opts: opts}

	if err := a.stage(ctx, source); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) stage(ctx context.Context, source string) error {
	zipPath, err := a.opts.Sources.Resolve(ctx, source, a.dir)
	if err != nil {
		return eris.Wrap(err, "ingest: resolve archive")
	}

	root := filepath.Join(a.dir, "bids")
	if err := os.MkdirAll(root, 0o750); err != nil {
		return eris.Wrap(err, "ingest: create extraction dir")
	}
	if _, err := fetcher.ExtractZIPMatching(zipPath, root, a.isWorkbook); err != nil {
		return eris.Wrapf(err, "ingest: extract %s", filepath.Base(zipPath))
	}

	var paths []string
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && a.isWorkbook(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return eris.Wrap(err, "ingest: walk archive")
	}

	a.workbooks, a.warnings = openWorkbooks(ctx, root, paths, a.opts.Concurrency)
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "ingest: cancelled")
	}

	zap.L().Info("ingest: archive staged",
		zap.String("source", source),
		zap.Int("files", len(paths)),
		zap.Int("workbooks", len(a.workbooks)),
		zap.Int("warnings", len(a.warnings)),
	)
	return nil
}

// isWorkbook matches workbook files, skipping macOS resource forks and
// Office lock files.
func (a *Archive) isWorkbook(name string) bool {
	name = filepath.ToSlash(name)
	base := path.Base(name)
	if strings.HasPrefix(name, "__MACOSX/") || strings.Contains(name, "/__MACOSX/") {
		return false
	}
	if strings.HasPrefix(base, "._") || strings.HasPrefix(base, "~$") {
		return false
	}
	return strings.EqualFold(path.Ext(base), a.opts.Extension)
}

func openWorkbooks(ctx context.Context, root string, paths []string, limit int) ([]workbookEntry, []model.Warning) {
	opened := make([]*fetcher.Workbook, len(paths))
	failed := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				failed[i] = gctx.Err()
				return nil
			}
			opened[i], failed[i] = fetcher.OpenWorkbook(p)
			return nil
		})
	}
	_ = g.Wait()

	var (
		entries  []workbookEntry
		warnings []model.Warning
	)
	for i, p := range paths {
		name := relName(root, p)
		if failed[i] != nil {
			zap.L().Warn("ingest: workbook unreadable", zap.String("file", name), zap.Error(failed[i]))
			warnings = append(warnings, model.Warning{Source: name, Message: fmt.Sprintf("unreadable workbook: %v", failed[i])})
			continue
		}
		entries = append(entries, workbookEntry{name: name, wb: opened[i]})
	}
	return entries, warnings
}

func relName(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.Base(p)
	}
	return filepath.ToSlash(rel)
}

// Workbooks lists the opened workbooks by their path inside the archive.
func (a *Archive) Workbooks() []string {
	names := make([]string, len(a.workbooks))
	for i, e := range a.workbooks {
		names[i] = e.name
	}
	return names
}

// Warnings returns the problems met while opening the archive.
func (a *Archive) Warnings() []model.Warning {
	return slices.Clone(a.warnings)
}

// Sheets returns the sorted union of worksheet names across all workbooks.
func (a *Archive) Sheets() []string {
	seen := make(map[string]bool)
	var names []string
	for _, e := range a.workbooks {
		for _, s := range e.wb.SheetNames() {
			if !seen[s] {
				seen[s] = true
				names = append(names, s)
			}
		}
	}
	slices.Sort(names)
	return names
}

// Catalog returns the selectable sheets: the union of sheet names,
// restricted to allow when it is non-empty.
func (a *Archive) Catalog(allow []string) []string {
	sheets := a.Sheets()
	if len(allow) == 0 {
		return sheets
	}
	return slices.DeleteFunc(sheets, func(s string) bool {
		return !slices.Contains(allow, s)
	})
}

// LoadSheet reads the named sheet from every workbook that has it. Workbooks
// without the sheet, or whose sheet cannot be read, are reported as warnings.
func (a *Archive) LoadSheet(ctx context.Context, sheet string) (model.SheetBatch, error) {
	if sheet == "" {
		return model.SheetBatch{}, eris.New("ingest: sheet name is required")
	}

	batch := model.SheetBatch{Sheet: sheet, Warnings: a.Warnings()}
	for _, e := range a.workbooks {
		if err := ctx.Err(); err != nil {
			return model.SheetBatch{}, eris.Wrap(err, "ingest: cancelled")
		}
		if !e.wb.HasSheet(sheet) {
			batch.Warnings = append(batch.Warnings, model.Warning{
				Source:  e.name,
				Message: fmt.Sprintf("sheet %q not found, workbook skipped", sheet),
			})
			continue
		}

		header, rows, err := e.wb.ReadSheet(fetcher.XLSXOptions{SheetName: sheet, HeaderRow: a.opts.HeaderRow})
		if err != nil {
			zap.L().Warn("ingest: sheet unreadable", zap.String("file", e.name), zap.String("sheet", sheet), zap.Error(err))
			batch.Warnings = append(batch.Warnings, model.Warning{Source: e.name, Message: err.Error()})
			continue
		}

		batch.Tables = append(batch.Tables, model.RawTable{
			Source:  e.name,
			Sheet:   sheet,
			Columns: LabelColumns(header, rows),
			Rows:    rows,
		})
	}

	zap.L().Info("ingest: sheet loaded",
		zap.String("sheet", sheet),
		zap.Int("tables", len(batch.Tables)),
		zap.Int("warnings", len(batch.Warnings)),
	)
	return batch, nil
}

// Close removes the staging directory.
func (a *Archive) Close() error {
	if a.dir == "" {
		return nil
	}
	err := os.RemoveAll(a.dir)
	a.dir = ""
	return eris.Wrap(err, "ingest: remove staging dir")
}
