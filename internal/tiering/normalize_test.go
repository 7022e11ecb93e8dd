package tiering

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rate-tiering/internal/model"
)

func TestNormalizeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean", in: "VAN BOX", want: "VAN BOX"},
		{name: "surrounding whitespace", in: "  CDD LONG \t", want: "CDD LONG"},
		{name: "placeholder only", in: "Unnamed: 12", want: ""},
		{name: "placeholder prefix", in: "Unnamed: 3CDE", want: "CDE"},
		{name: "broken reference", in: "#REF!", want: ""},
		{name: "broken reference suffix", in: "FUSO#REF!", want: "FUSO"},
		{name: "trailing dots", in: "Origin City...", want: "Origin City"},
		{name: "dedup suffix kept", in: "CDD.1", want: "CDD.1"},
		{name: "inner dots kept", in: "P.T. Maju", want: "P.T. Maju"},
		{name: "combined noise", in: " #REF!TRONTON WINGBOX.. ", want: "TRONTON WINGBOX"},
		{name: "nested marker", in: "#RE#REF!F!", want: ""},
		{name: "dots then space", in: "CDE. .", want: "CDE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeLabel(tt.in))
		})
	}
}

func TestNormalizeLabels_Idempotent(t *testing.T) {
	t.Parallel()

	labels := []string{
		" VENDOR", "Origin City.", "Destination City", "Unnamed: 4", "#REF!",
		"VAN BOX ", "CDE..", "CDD.1", "FUSO LONG#REF!", "Remarks", "#RE#REF!F!VAN BOX", "CDE. .",
	}
	once := NormalizeLabels(labels)
	assert.Equal(t, once, NormalizeLabels(once))
}

func TestNormalize_DetectsTruckTypesInColumnOrder(t *testing.T) {
	t.Parallel()

	tables := []model.RawTable{
		rawTable("a.xlsx",
			[]string{"No", "VENDOR", "Origin City", "Destination City", "CDE ", "Unnamed: 5", "VAN BOX.", "Remarks"},
			[]string{"1", "ABC", "Jakarta", "Surabaya", "100", "", "200", ""},
		),
		rawTable("b.xlsx",
			[]string{"VENDOR", "Origin City", "Destination City", "FUSO", "CDE"},
		),
	}

	got, truckTypes, warnings, err := Normalize(tables, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"CDE", "VAN BOX"}, got[0].TruckTypes())
	assert.Equal(t, []string{"FUSO", "CDE"}, got[1].TruckTypes())
	assert.Equal(t, []string{"CDE", "VAN BOX", "FUSO"}, truckTypes)
	assert.Equal(t, "a.xlsx", got[0].Source)
	assert.Equal(t, 1, got[0].Len())
}

func TestNormalize_DuplicateColumnWarns(t *testing.T) {
	t.Parallel()

	tables := []model.RawTable{
		rawTable("dup.xlsx",
			[]string{"VENDOR", "Origin City", "Destination City", "CDD", "CDD.."},
			[]string{"ABC", "Jakarta", "Bandung", "100", "999"},
		),
	}

	got, truckTypes, warnings, err := Normalize(tables, DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"CDD"}, truckTypes)
	assert.Equal(t, []string{"CDD"}, got[0].TruckTypes())
	require.Len(t, warnings, 1)
	assert.Equal(t, "dup.xlsx", warnings[0].Source)
	assert.Contains(t, warnings[0].Message, `duplicate column "CDD"`)
}

func TestNormalize_TableMissingIDColumnsSkipped(t *testing.T) {
	t.Parallel()

	tables := []model.RawTable{
		rawTable("ok.xlsx", []string{"VENDOR", "Origin City", "Destination City", "CDE"}),
		rawTable("bad.xlsx", []string{"Vendor Name", "Origin City", "CDE"}),
	}

	got, _, warnings, err := Normalize(tables, DefaultSchema())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok.xlsx", got[0].Source)
	require.Len(t, warnings, 1)
	assert.Equal(t, "bad.xlsx", warnings[0].Source)
	assert.Contains(t, warnings[0].Message, "VENDOR, Destination City")
}

func TestNormalize_AllTablesMissingIDColumns(t *testing.T) {
	t.Parallel()

	tables := []model.RawTable{
		rawTable("a.xlsx", []string{"Origin City", "Destination City", "CDE"}),
		rawTable("b.xlsx", []string{"VENDOR", "CDE"}),
	}

	_, _, _, err := Normalize(tables, DefaultSchema())
	require.Error(t, err)

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"VENDOR", "Origin City", "Destination City"}, missing.Missing)
	assert.Contains(t, err.Error(), "VENDOR")
}

func TestNormalize_NoTruckTypeColumns(t *testing.T) {
	t.Parallel()

	tables := []model.RawTable{
		rawTable("ids-only.xlsx",
			[]string{"VENDOR", "Origin City", "Destination City", "Unnamed: 3", "TRAILER"},
			[]string{"ABC", "Jakarta", "Surabaya", "", "100"},
		),
	}

	got, truckTypes, _, err := Normalize(tables, DefaultSchema())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Nil(t, truckTypes)

	var noTrucks *NoTruckTypeColumnsError
	require.True(t, errors.As(err, &noTrucks))
	assert.Equal(t, DefaultTruckTypes, noTrucks.Expected)
	assert.Equal(t, []string{"VENDOR", "Origin City", "Destination City", "TRAILER"}, noTrucks.Found)
	assert.Contains(t, err.Error(), "no truck type columns found")
}

func TestNormalize_CustomSchema(t *testing.T) {
	t.Parallel()

	schema := Schema{
		VendorColumn:      "Transporter ",
		OriginColumn:      "From",
		DestinationColumn: "To",
		TruckTypes:        []string{"REEFER"},
	}
	tables := []model.RawTable{
		rawTable("custom.xlsx", []string{"Transporter", "From", "To", "REEFER", "CDE"}),
	}

	got, truckTypes, _, err := Normalize(tables, schema)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"REEFER"}, truckTypes)
}

func TestSchemaValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultSchema().Validate())

	s := DefaultSchema()
	s.OriginColumn = " "
	assert.Error(t, s.Validate())

	s = DefaultSchema()
	s.TruckTypes = nil
	assert.Error(t, s.Validate())
}
