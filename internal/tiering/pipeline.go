package tiering

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rate-tiering/internal/model"
)

// Options configures a pipeline run.
type Options struct {
	Schema Schema
	Policy Policy
}

// DefaultOptions returns the default schema and policy.
func DefaultOptions() Options {
	return Options{Schema: DefaultSchema(), Policy: DefaultPolicy()}
}

// Stats summarises one run.
type Stats struct {
	Tables       int `json:"tables"`
	UsableTables int `json:"usable_tables"`
	MeltStats
}

// Result is the immutable outcome of one run.
type Result struct {
	RunID       string                 `json:"run_id"`
	Sheet       string                 `json:"sheet"`
	CreatedAt   time.Time              `json:"created_at"`
	TruckTypes  []string               `json:"truck_types"`
	Assignments []model.TierAssignment `json:"assignments"`
	Warnings    []model.Warning        `json:"warnings,omitempty"`
	Stats       Stats                  `json:"stats"`
}

// Empty reports whether the run produced no quotes at all.
func (r *Result) Empty() bool {
	return len(r.Assignments) == 0
}

// Run normalizes the batch, melts it into price quotes and ranks them.
// A *NoTruckTypeColumnsError or *MissingColumnsError aborts the run; every
// other problem is returned as a warning on the result.
func Run(ctx context.Context, batch model.SheetBatch, opts Options) (*Result, error) {
	if err := opts.Schema.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     uuid.New().String(),
		Sheet:     batch.Sheet,
		CreatedAt: time.Now().UTC(),
		Warnings:  slices.Clone(batch.Warnings),
	}
	res.Stats.Tables = len(batch.Tables)

	log := zap.L().With(zap.String("run_id", res.RunID), zap.String("sheet", batch.Sheet))

	if len(batch.Tables) == 0 {
		res.Warnings = append(res.Warnings, model.Warning{Message: "no workbook contains the selected sheet"})
		log.Warn("tiering: nothing to show, no tables loaded")
		return res, nil
	}

	tables, truckTypes, warnings, err := Normalize(batch.Tables, opts.Schema)
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		log.Error("tiering: normalize failed", zap.Error(err))
		return nil, err
	}
	res.TruckTypes = truckTypes
	res.Stats.UsableTables = len(tables)
	log.Info("tiering: normalized",
		zap.Int("tables", res.Stats.Tables),
		zap.Int("usable_tables", res.Stats.UsableTables),
		zap.Strings("truck_types", truckTypes),
	)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "tiering: run cancelled")
	}

	quotes, meltStats, warnings := Melt(tables)
	res.Warnings = append(res.Warnings, warnings...)
	res.Stats.MeltStats = meltStats
	log.Info("tiering: melted",
		zap.Int("rows", meltStats.Rows),
		zap.Int("quotes", meltStats.Quotes),
		zap.Int("blank_prices", meltStats.BlankPrices),
		zap.Int("unparseable_prices", meltStats.Unparseable),
		zap.Int("duplicates", meltStats.Duplicates),
	)

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "tiering: run cancelled")
	}

	res.Assignments = NewEngine(opts.Policy).Assign(quotes)

	for _, w := range res.Warnings {
		log.Warn("tiering: warning", zap.String("source", w.Source), zap.String("message", w.Message))
	}
	if res.Empty() {
		log.Warn("tiering: nothing to show, no priced quotes")
	} else {
		log.Info("tiering: assigned", zap.Int("assignments", len(res.Assignments)))
	}

	return res, nil
}
