package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/rate-tiering/internal/config"
	"github.com/sells-group/rate-tiering/internal/export"
	"github.com/sells-group/rate-tiering/internal/fetcher"
	"github.com/sells-group/rate-tiering/internal/ingest"
	"github.com/sells-group/rate-tiering/internal/session"
	"github.com/sells-group/rate-tiering/internal/tiering"
)

// sessionConfig maps the application config onto the session layers.
func sessionConfig(c *config.Config) session.Config {
	return session.Config{
		Ingest: ingest.Options{
			Extension:   c.Tiering.Extension,
			HeaderRow:   c.Tiering.HeaderRow,
			Concurrency: c.Loader.Concurrency,
			TempDir:     c.Loader.TempDir,
			Sources:     fetchSources(c.Fetch),
		},
		Tiering: tiering.Options{
			Schema: tiering.Schema{
				VendorColumn:      c.Tiering.IDColumns.Vendor,
				OriginColumn:      c.Tiering.IDColumns.Origin,
				DestinationColumn: c.Tiering.IDColumns.Destination,
				TruckTypes:        c.Tiering.TruckTypes,
			},
			Policy: tiering.Policy{
				RankByDistinctPrice: c.Tiering.RankByDistinctPrice,
				Incumbents:          c.Tiering.Incumbents,
			},
		},
		Sheets: c.Tiering.Sheets,
	}
}

func fetchSources(fc config.FetchConfig) fetcher.Sources {
	timeout := time.Duration(fc.TimeoutSecs) * time.Second
	httpOpts := fetcher.HTTPOptions{
		UserAgent:  fc.UserAgent,
		Timeout:    timeout,
		MaxRetries: fc.MaxRetries,
	}
	if fc.RequestsPerSecond > 0 {
		httpOpts.Limiter = rate.NewLimiter(rate.Limit(fc.RequestsPerSecond), max(1, int(fc.RequestsPerSecond)))
	}
	return fetcher.DefaultSources(httpOpts, fetcher.FTPOptions{Timeout: timeout})
}

func exportOptions(c *config.Config) export.Options {
	return export.Options{
		IncludeStatus: c.Export.IncludeStatus,
		IncludeSource: c.Export.IncludeSource,
	}
}

// runTiering loads the archive and tiers one sheet. The session is closed
// before returning; the result stays valid.
func runTiering(ctx context.Context, c *config.Config, archive string, req session.Request) (*tiering.Result, error) {
	if err := c.Validate("tier"); err != nil {
		return nil, err
	}

	sess := session.New(sessionConfig(c))
	defer sess.Close() //nolint:errcheck

	catalog, err := sess.Load(ctx, archive)
	if err != nil {
		return nil, eris.Wrap(err, "load archive")
	}
	for _, w := range catalog.Warnings {
		zap.L().Warn("archive warning", zap.String("source", w.Source), zap.String("message", w.Message))
	}

	return sess.Generate(ctx, req)
}

// writeOutput writes to path, or to stdout when path is empty or "-".
func writeOutput(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create output file")
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "close output file")
	}
	zap.L().Info("output written", zap.String("path", path))
	return nil
}
