package tiering

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rate-tiering/internal/model"
)

// Default column names of the rate-bid template.
const (
	DefaultVendorColumn      = "VENDOR"
	DefaultOriginColumn      = "Origin City"
	DefaultDestinationColumn = "Destination City"
)

// DefaultTruckTypes is the controlled truck-type vocabulary.
var DefaultTruckTypes = []string{
	"VAN BOX",
	"BLINDVAN",
	"CDE",
	"CDE LONG",
	"CDD",
	"CDD LONG",
	"FUSO",
	"FUSO LONG",
	"TRONTON WINGBOX",
}

// Schema names the identifying columns and the truck-type vocabulary.
type Schema struct {
	VendorColumn      string
	OriginColumn      string
	DestinationColumn string
	TruckTypes        []string
}

// DefaultSchema returns the schema of the standard rate-bid template.
func DefaultSchema() Schema {
	return Schema{
		VendorColumn:      DefaultVendorColumn,
		OriginColumn:      DefaultOriginColumn,
		DestinationColumn: DefaultDestinationColumn,
		TruckTypes:        slices.Clone(DefaultTruckTypes),
	}
}

func (s Schema) idColumns() []string {
	return []string{s.VendorColumn, s.OriginColumn, s.DestinationColumn}
}

// Validate reports an empty identifying column name or vocabulary.
func (s Schema) Validate() error {
	for _, col := range s.idColumns() {
		if NormalizeLabel(col) == "" {
			return eris.New("tiering: schema has an empty identifying column name")
		}
	}
	if len(s.TruckTypes) == 0 {
		return eris.New("tiering: schema has an empty truck type vocabulary")
	}
	return nil
}

func (s Schema) normalized() Schema {
	return Schema{
		VendorColumn:      NormalizeLabel(s.VendorColumn),
		OriginColumn:      NormalizeLabel(s.OriginColumn),
		DestinationColumn: NormalizeLabel(s.DestinationColumn),
		TruckTypes:        NormalizeLabels(s.TruckTypes),
	}
}

var (
	placeholderPattern = regexp.MustCompile(`Unnamed: \d+`)
	trailingDots       = regexp.MustCompile(`\.+$`)
)

const brokenReference = "#REF!"

// NormalizeLabel cleans a raw column header so it can be compared against
// the identifying column names and the truck-type vocabulary. The cleanup
// repeats until the label is stable, so NormalizeLabel is idempotent.
func NormalizeLabel(label string) string {
	for {
		s := cleanLabel(label)
		if s == label {
			return s
		}
		label = s
	}
}

func cleanLabel(label string) string {
	s := strings.TrimSpace(label)
	s = placeholderPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, brokenReference, "")
	s = trailingDots.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// NormalizeLabels applies NormalizeLabel to every label.
func NormalizeLabels(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = NormalizeLabel(l)
	}
	return out
}

type truckColumn struct {
	label string
	index int
}

// NormalizedTable is a raw table whose columns have been resolved against a Schema.
type NormalizedTable struct {
	Source string
	Sheet  string

	vendor      int
	origin      int
	destination int
	trucks      []truckColumn
	rows        [][]string
}

// TruckTypes lists the truck-type columns of the table in column order.
func (t NormalizedTable) TruckTypes() []string {
	out := make([]string, len(t.trucks))
	for i, c := range t.trucks {
		out[i] = c.label
	}
	return out
}

// Len returns the number of data rows.
func (t NormalizedTable) Len() int {
	return len(t.rows)
}

func (t NormalizedTable) cell(i, j int) string {
	row := t.rows[i]
	if j >= len(row) {
		return ""
	}
	return row[j]
}

// Normalize resolves every table against the schema. Tables missing an
// identifying column are dropped with a warning. It fails when no table
// carries every identifying column, or when none of the usable tables has a
// truck-type column. The returned truck types are the first-seen union
// across the usable tables.
func Normalize(tables []model.RawTable, schema Schema) ([]NormalizedTable, []string, []model.Warning, error) {
	schema = schema.normalized()
	vocab := make(map[string]bool, len(schema.TruckTypes))
	for _, tt := range schema.TruckTypes {
		vocab[tt] = true
	}

	var (
		out      []NormalizedTable
		warnings []model.Warning
		missing  []string
	)

	for _, raw := range tables {
		index := make(map[string]int, len(raw.Columns))
		for j, label := range NormalizeLabels(raw.Columns) {
			if label == "" {
				continue
			}
			if first, dup := index[label]; dup {
				warnings = append(warnings, model.Warning{
					Source:  raw.Source,
					Message: fmt.Sprintf("duplicate column %q at position %d ignored, using position %d", label, j, first),
				})
				continue
			}
			index[label] = j
		}

		var absent []string
		for _, col := range schema.idColumns() {
			if _, ok := index[col]; !ok {
				absent = append(absent, col)
			}
		}
		if len(absent) > 0 {
			warnings = append(warnings, model.Warning{
				Source:  raw.Source,
				Message: fmt.Sprintf("missing required columns [%s], table skipped", strings.Join(absent, ", ")),
			})
			for _, col := range absent {
				if !slices.Contains(missing, col) {
					missing = append(missing, col)
				}
			}
			continue
		}

		nt := NormalizedTable{
			Source:      raw.Source,
			Sheet:       raw.Sheet,
			vendor:      index[schema.VendorColumn],
			origin:      index[schema.OriginColumn],
			destination: index[schema.DestinationColumn],
			rows:        raw.Rows,
		}
		for j, label := range NormalizeLabels(raw.Columns) {
			if vocab[label] && index[label] == j {
				nt.trucks = append(nt.trucks, truckColumn{label: label, index: j})
			}
		}
		out = append(out, nt)
	}

	if len(out) == 0 && len(tables) > 0 {
		return nil, nil, warnings, &MissingColumnsError{Missing: missing}
	}

	var truckTypes, found []string
	for _, nt := range out {
		for _, tt := range nt.TruckTypes() {
			if !slices.Contains(truckTypes, tt) {
				truckTypes = append(truckTypes, tt)
			}
		}
	}
	if len(truckTypes) == 0 && len(out) > 0 {
		for _, raw := range tables {
			for _, label := range NormalizeLabels(raw.Columns) {
				if label != "" && !slices.Contains(found, label) {
					found = append(found, label)
				}
			}
		}
		return nil, nil, warnings, &NoTruckTypeColumnsError{Expected: slices.Clone(schema.TruckTypes), Found: found}
	}

	for _, nt := range out {
		if len(nt.trucks) == 0 {
			warnings = append(warnings, model.Warning{
				Source:  nt.Source,
				Message: "no truck type columns, table contributes no quotes",
			})
		}
	}

	zap.L().Debug("tiering: normalized tables",
		zap.Int("tables", len(tables)),
		zap.Int("usable", len(out)),
		zap.Strings("truck_types", truckTypes),
	)

	return out, truckTypes, warnings, nil
}
