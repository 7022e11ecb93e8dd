// Package session holds the state of one interactive tiering session: the
// loaded archive, its sheet catalog and the last tiering result.
package session

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rate-tiering/internal/ingest"
	"github.com/sells-group/rate-tiering/internal/model"
	"github.com/sells-group/rate-tiering/internal/tiering"
)

// ErrNoArchive is returned when tiering is requested before an archive is loaded.
var ErrNoArchive = eris.New("session: no archive loaded")

// UnknownSheetError reports a sheet that is not in the current catalog.
type UnknownSheetError struct {
	Sheet   string
	Catalog []string
}

func (e *UnknownSheetError) Error() string {
	return fmt.Sprintf("sheet %q is not in the catalog [%s]", e.Sheet, strings.Join(e.Catalog, ", "))
}

// Config fixes how archives are ingested and tiered.
type Config struct {
	Ingest  ingest.Options
	Tiering tiering.Options
	// Sheets restricts the catalog; empty offers every sheet.
	Sheets []string
}

// Catalog describes the loaded archive.
type Catalog struct {
	Source    string          `json:"source"`
	Workbooks []string        `json:"workbooks"`
	Sheets    []string        `json:"sheets"`
	Warnings  []model.Warning `json:"warnings,omitempty"`
}

// Request selects the sheet of a tiering run. Unset policy fields keep the
// session defaults.
type Request struct {
	Sheet               string   `json:"sheet" validate:"required"`
	Incumbents          []string `json:"incumbents,omitempty" validate:"omitempty,dive,required"`
	RankByDistinctPrice *bool    `json:"rank_by_distinct_price,omitempty"`
}

func (r Request) policy(base tiering.Policy) tiering.Policy {
	if r.Incumbents != nil {
		base.Incumbents = r.Incumbents
	}
	if r.RankByDistinctPrice != nil {
		base.RankByDistinctPrice = *r.RankByDistinctPrice
	}
	return base
}

// Session is safe for concurrent use; operations are serialized.
type Session struct {
	cfg Config

	mu      sync.Mutex
	archive *ingest.Archive
	catalog *Catalog
	result  *tiering.Result
}

// New returns an empty session.
func New(cfg Config) *Session {
	return &Session{cfg: cfg}
}

// Load opens the archive and replaces the current one. The previous
// result is discarded. On failure the session is left unchanged.
func (s *Session) Load(ctx context.Context, source string) (Catalog, error) {
	a, err := ingest.Open(ctx, source, s.cfg.Ingest)
	if err != nil {
		return Catalog{}, err
	}

	c := Catalog{
		Source:    source,
		Workbooks: a.Workbooks(),
		Sheets:    a.Catalog(s.cfg.Sheets),
		Warnings:  a.Warnings(),
	}
	if len(c.Sheets) == 0 && len(s.cfg.Sheets) > 0 && len(c.Workbooks) > 0 {
		c.Warnings = append(c.Warnings, model.Warning{
			Message: fmt.Sprintf("none of the allowed sheets [%s] found in files [%s]",
				strings.Join(s.cfg.Sheets, ", "), strings.Join(c.Workbooks, ", ")),
		})
	}

	s.mu.Lock()
	prev := s.archive
	s.archive, s.catalog, s.result = a, &c, nil
	s.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			zap.L().Warn("session: close previous archive", zap.Error(err))
		}
	}

	zap.L().Info("session: archive loaded",
		zap.String("source", source),
		zap.Int("workbooks", len(c.Workbooks)),
		zap.Strings("sheets", c.Sheets),
	)
	return c, nil
}

// Catalog returns the catalog of the loaded archive.
func (s *Session) Catalog() (Catalog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog == nil {
		return Catalog{}, false
	}
	return *s.catalog, true
}

// Generate runs the tiering pipeline over the selected sheet and replaces
// the current result wholesale. A failed run keeps the previous result.
func (s *Session) Generate(ctx context.Context, req Request) (*tiering.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.archive == nil {
		return nil, ErrNoArchive
	}
	if !slices.Contains(s.catalog.Sheets, req.Sheet) {
		return nil, &UnknownSheetError{Sheet: req.Sheet, Catalog: slices.Clone(s.catalog.Sheets)}
	}

	batch, err := s.archive.LoadSheet(ctx, req.Sheet)
	if err != nil {
		return nil, eris.Wrapf(err, "session: load sheet %q", req.Sheet)
	}

	opts := s.cfg.Tiering
	opts.Policy = req.policy(opts.Policy)

	res, err := tiering.Run(ctx, batch, opts)
	if err != nil {
		return nil, err
	}
	s.result = res
	return res, nil
}

// Result returns the last successful tiering result.
func (s *Session) Result() (*tiering.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != nil
}

// Close releases the loaded archive.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.archive == nil {
		return nil
	}
	err := s.archive.Close()
	s.archive, s.catalog, s.result = nil, nil, nil
	return err
}
