package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/rate-tiering/internal/model"
)

// StatusActive is the constant value of the optional Status column.
const StatusActive = "Active"

// Options controls the optional export columns.
type Options struct {
	IncludeStatus bool
	IncludeSource bool
}

// Format is an export encoding.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts csv, json, yaml or yml in any case. Empty means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", eris.Errorf("export: unsupported format %q", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	}
	return "text/csv"
}

// Record is one exported assignment.
type Record struct {
	Shipper     string `json:"shipper" yaml:"shipper"`
	TruckType   string `json:"truck_type" yaml:"truck_type"`
	Origin      string `json:"origin" yaml:"origin"`
	Destination string `json:"destination" yaml:"destination"`
	Vendor      string `json:"vendor" yaml:"vendor"`
	Price       string `json:"price" yaml:"price"`
	Tier        string `json:"tier" yaml:"tier"`
	Rank        int    `json:"rank" yaml:"rank"`
	Incumbent   bool   `json:"incumbent" yaml:"incumbent"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	SourceFile  string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
}

// Records converts assignments into export records, keeping full price
// precision.
func Records(rows []model.TierAssignment, opts Options) []Record {
	out := make([]Record, len(rows))
	for i, a := range rows {
		r := Record{
			Shipper:     a.Shipper,
			TruckType:   a.TruckType,
			Origin:      a.OriginCity,
			Destination: a.DestinationCity,
			Vendor:      a.Vendor,
			Price:       a.Price.String(),
			Tier:        a.Label(),
			Rank:        a.Rank,
			Incumbent:   a.Incumbent,
		}
		if opts.IncludeStatus {
			r.Status = StatusActive
		}
		if opts.IncludeSource {
			r.SourceFile = a.SourceFile
		}
		out[i] = r
	}
	return out
}

// csvColumns are the fixed leading columns of the CSV export.
var csvColumns = []string{
	"Shipper",
	"Type Truck",
	"Origin",
	"Destination",
	"Transporter",
	"Transport Price",
	"Tiering",
}

// CSVHeader returns the CSV header for the options.
func CSVHeader(opts Options) []string {
	header := append([]string(nil), csvColumns...)
	if opts.IncludeStatus {
		header = append(header, "Status")
	}
	if opts.IncludeSource {
		header = append(header, "Source File")
	}
	return header
}

// WriteCSV writes the header and one row per assignment. Prices are
// written as integers with the fractional part truncated.
func WriteCSV(w io.Writer, rows []model.TierAssignment, opts Options) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(CSVHeader(opts)); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, a := range rows {
		if err := cw.Write(csvRow(a, opts)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func csvRow(a model.TierAssignment, opts Options) []string {
	row := []string{
		a.Shipper,                    // Shipper
		a.TruckType,                  // Type Truck
		a.OriginCity,                 // Origin
		a.DestinationCity,            // Destination
		a.Vendor,                     // Transporter
		a.Price.Truncate(0).String(), // Transport Price
		a.Label(),                    // Tiering
	}
	if opts.IncludeStatus {
		row = append(row, StatusActive)
	}
	if opts.IncludeSource {
		row = append(row, a.SourceFile)
	}
	return row
}

// WriteJSON writes the records as an indented JSON array.
func WriteJSON(w io.Writer, rows []model.TierAssignment, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(Records(rows, opts)), "export: encode json")
}

// WriteYAML writes the records as a YAML sequence.
func WriteYAML(w io.Writer, rows []model.TierAssignment, opts Options) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Records(rows, opts)); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return eris.Wrap(enc.Close(), "export: close yaml encoder")
}

// Write encodes rows in the given format.
func Write(w io.Writer, format Format, rows []model.TierAssignment, opts Options) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rows, opts)
	case FormatYAML:
		return WriteYAML(w, rows, opts)
	case FormatCSV, "":
		return WriteCSV(w, rows, opts)
	}
	return eris.Errorf("export: unsupported format %q", format)
}
