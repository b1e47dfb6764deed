package format

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"datagen-backend/internal/apperr"
	"datagen-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []*model.Row {
	return []*model.Row{
		model.RowFromPairs("name", `Widget "Pro"`, "price", 9.5, "notes", nil),
		model.RowFromPairs("name", "Gadget, large", "price", 12, "notes", "line1\nline2"),
	}
}

func TestRenderCSVQuotesEveryValue(t *testing.T) {
	f, err := Render(sampleRows(), "csv", "Product catalog")
	require.NoError(t, err)

	assert.Equal(t, ContentTypeCSV, f.ContentType)
	assert.Equal(t, "product-catalog.csv", f.FileName)
	lines := strings.SplitN(string(f.Body), "\n", 2)
	assert.Equal(t, `"name","price","notes"`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"Widget ""Pro""","9.5",""`))
}

func TestRenderCSVRoundTrip(t *testing.T) {
	f, err := Render(sampleRows(), "csv", "x")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(f.Body))).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"name", "price", "notes"},
		{`Widget "Pro"`, "9.5", ""},
		{"Gadget, large", "12", "line1\nline2"},
	}, records)
}

func TestRenderCSVUsesFirstRowHeader(t *testing.T) {
	rows := []*model.Row{
		model.RowFromPairs("a", 1, "b", 2),
		model.RowFromPairs("b", 3, "c", 4),
	}
	f, err := Render(rows, "csv", "")
	require.NoError(t, err)
	assert.Equal(t, "\"a\",\"b\"\n\"1\",\"2\"\n\"\",\"3\"\n", string(f.Body))
	assert.Equal(t, "data.csv", f.FileName)
}

func TestRenderExcelIsCSVWithSpreadsheetType(t *testing.T) {
	csvFile, err := Render(sampleRows(), "csv", "report")
	require.NoError(t, err)
	excelFile, err := Render(sampleRows(), "excel", "report")
	require.NoError(t, err)

	assert.Equal(t, csvFile.Body, excelFile.Body)
	assert.Equal(t, ContentTypeExcel, excelFile.ContentType)
	assert.Equal(t, "report.xlsx", excelFile.FileName)
}

func TestRenderJSONKeepsKeyOrder(t *testing.T) {
	f, err := Render(sampleRows(), "JSON", "report")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, f.ContentType)
	assert.Equal(t, "report.json", f.FileName)
	assert.Contains(t, string(f.Body), "\n  {\n    \"name\"")

	var decoded []*model.Row
	require.NoError(t, json.Unmarshal(f.Body, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, []string{"name", "price", "notes"}, decoded[1].Keys())

	// 再序列化一次结果不变
	again, err := Render(decoded, "json", "report")
	require.NoError(t, err)
	assert.Equal(t, string(f.Body), string(again.Body))
}

func TestRenderRejectsEmptyAndUnknown(t *testing.T) {
	_, err := Render(nil, "csv", "x")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "No data to download", ae.Label)

	_, err = Render([]*model.Row{nil}, "json", "x")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "No data to download", ae.Label)

	_, err = Render(sampleRows(), "parquet", "x")
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 400, ae.Status())
}

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "data"},
		{"   ", "data"},
		{"Sales Q1/2024", "sales-q1-2024"},
		{"A very long prompt that keeps going and going", "a-very-long-prompt-that-keeps-"},
		{"café menu", "caf--menu"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), tc.in)
	}
}
