package main

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/rate-tiering/internal/config"
	"github.com/sells-group/rate-tiering/internal/model"
	"github.com/sells-group/rate-tiering/internal/session"
	"github.com/sells-group/rate-tiering/internal/tiering"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Tiering: config.TieringConfig{
			TruckTypes:          tiering.DefaultTruckTypes,
			IDColumns:           config.IDColumnsConfig{Vendor: "VENDOR", Origin: "Origin City", Destination: "Destination City"},
			Incumbents:          []string{"incumbent"},
			RankByDistinctPrice: true,
			HeaderRow:           1,
			Extension:           ".xlsx",
		},
		Loader: config.LoaderConfig{Concurrency: 2, TempDir: t.TempDir()},
		Fetch:  config.FetchConfig{TimeoutSecs: 5, MaxRetries: 1, RequestsPerSecond: 2},
		Export: config.ExportConfig{IncludeSource: true},
	}
}

func testArchive(t *testing.T) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("SPX FTL")
	require.NoError(t, err)
	for _, rowData := range [][]string{
		{"RATE BID"},
		{"VENDOR", "Origin City", "Destination City", "CDE", "CDD"},
		{"PT ABC", "Jakarta", "Surabaya", "1,500,000", "2000000"},
		{"PT XYZ", "Jakarta", "Surabaya", "1,400,000", "2000000"},
		{"Incumbent Trans", "Jakarta", "Surabaya", "1,300,000", ""},
	} {
		row := sheet.AddRow()
		for _, v := range rowData {
			row.AddCell().SetString(v)
		}
	}
	var wb bytes.Buffer
	require.NoError(t, f.Write(&wb))

	path := filepath.Join(t.TempDir(), "bids.zip")
	out, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(out)
	fw, err := zw.Create("vendors/abc.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(wb.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, out.Close())
	return path
}

func TestSessionConfig(t *testing.T) {
	c := testConfig(t)
	sc := sessionConfig(c)

	assert.Equal(t, ".xlsx", sc.Ingest.Extension)
	assert.Equal(t, 1, sc.Ingest.HeaderRow)
	assert.Equal(t, 2, sc.Ingest.Concurrency)
	assert.Contains(t, sc.Ingest.Sources, "https")
	assert.Contains(t, sc.Ingest.Sources, "ftp")
	assert.Equal(t, "VENDOR", sc.Tiering.Schema.VendorColumn)
	assert.Equal(t, tiering.DefaultTruckTypes, sc.Tiering.Schema.TruckTypes)
	assert.True(t, sc.Tiering.Policy.RankByDistinctPrice)
	assert.Equal(t, []string{"incumbent"}, sc.Tiering.Policy.Incumbents)

	opts := exportOptions(c)
	assert.False(t, opts.IncludeStatus)
	assert.True(t, opts.IncludeSource)
}

func TestRunTiering(t *testing.T) {
	res, err := runTiering(context.Background(), testConfig(t), testArchive(t), session.Request{Sheet: "SPX FTL"})
	require.NoError(t, err)
	require.Len(t, res.Assignments, 5)

	got := make(map[string]model.TierAssignment)
	for _, a := range res.Assignments {
		got[a.TruckType+"/"+a.Vendor] = a
	}
	assert.Equal(t, "Tier 0", got["CDE/Incumbent Trans"].Label())
	assert.Equal(t, "Tier 1", got["CDE/PT XYZ"].Label())
	assert.Equal(t, "Tier 2", got["CDE/PT ABC"].Label())
	assert.Equal(t, "Tier 1", got["CDD/PT ABC"].Label())
	assert.Equal(t, "Tier 1", got["CDD/PT XYZ"].Label())
	assert.True(t, decimal.NewFromInt(1500000).Equal(got["CDE/PT ABC"].Price))
	assert.Equal(t, "vendors/abc.xlsx", got["CDE/PT ABC"].SourceFile)
}

func TestRunTiering_RowPositionOverride(t *testing.T) {
	distinct := false
	res, err := runTiering(context.Background(), testConfig(t), testArchive(t), session.Request{
		Sheet:               "SPX FTL",
		Incumbents:          []string{},
		RankByDistinctPrice: &distinct,
	})
	require.NoError(t, err)

	var cdd []int
	for _, a := range res.Assignments {
		if a.TruckType == "CDD" {
			cdd = append(cdd, a.Rank)
		}
	}
	assert.Equal(t, []int{1, 2}, cdd)
}

func TestRunTiering_Errors(t *testing.T) {
	c := testConfig(t)

	_, err := runTiering(context.Background(), c, filepath.Join(t.TempDir(), "missing.zip"), session.Request{Sheet: "SPX FTL"})
	assert.Error(t, err)

	_, err = runTiering(context.Background(), c, testArchive(t), session.Request{Sheet: "LOTTE"})
	var unknown *session.UnknownSheetError
	assert.True(t, errors.As(err, &unknown))

	c.Tiering.TruckTypes = []string{"TRAILER"}
	_, err = runTiering(context.Background(), c, testArchive(t), session.Request{Sheet: "SPX FTL"})
	var noTrucks *tiering.NoTruckTypeColumnsError
	assert.True(t, errors.As(err, &noTrucks))

	c = testConfig(t)
	c.Loader.Concurrency = 0
	_, err = runTiering(context.Background(), c, testArchive(t), session.Request{Sheet: "SPX FTL"})
	assert.Error(t, err)
}

func TestWriteOutput(t *testing.T) {
	write := func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	}

	var stdout bytes.Buffer
	require.NoError(t, writeOutput("", &stdout, write))
	require.NoError(t, writeOutput("-", &stdout, write))
	assert.Equal(t, "hellohello", stdout.String())

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeOutput(path, &stdout, write))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Error(t, writeOutput(filepath.Join(t.TempDir(), "missing", "out.csv"), &stdout, write))
}

func TestPrintCatalog(t *testing.T) {
	var out, errOut bytes.Buffer
	printCatalog(&out, &errOut, session.Catalog{
		Workbooks: []string{"abc.xlsx"},
		Sheets:    []string{"LOTTE", "SPX FTL"},
		Warnings:  []model.Warning{{Source: "broken.xlsx", Message: "unreadable workbook"}},
	})
	assert.Equal(t, "LOTTE\nSPX FTL\n", out.String())
	assert.Equal(t, "warning: broken.xlsx: unreadable workbook\n", errOut.String())

	out.Reset()
	errOut.Reset()
	printCatalog(&out, &errOut, session.Catalog{Workbooks: []string{"abc.xlsx"}})
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "No selectable sheets in 1 workbook(s).")
}

func TestFormatLanes(t *testing.T) {
	res, err := runTiering(context.Background(), testConfig(t), testArchive(t), session.Request{Sheet: "SPX FTL"})
	require.NoError(t, err)
	lanes, err := tiering.Summarize(res.Assignments)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatLanes(&buf, lanes)
	out := buf.String()
	assert.Contains(t, out, "TRUCK")
	assert.Contains(t, out, "Jakarta")
	assert.Contains(t, out, "PT XYZ")
	assert.Contains(t, out, "PT ABC, PT XYZ")
}
