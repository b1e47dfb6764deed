package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowPreservesKeyOrder(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":1,"alpha":"a","mid":null,"flag":true}`), &row))

	assert.Equal(t, []string{"zeta", "alpha", "mid", "flag"}, row.Keys())

	out, err := json.Marshal(&row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta":1,"alpha":"a","mid":null,"flag":true}`, string(out))
	assert.Equal(t, `{"zeta":1,"alpha":"a","mid":null,"flag":true}`, string(out))
}

func TestRowFlattensNestedValues(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"tags":["a","b"],"meta":{"k":1}}`), &row))

	tags, _ := row.Get("tags")
	meta, _ := row.Get("meta")
	assert.Equal(t, `["a","b"]`, tags)
	assert.Equal(t, `{"k":1}`, meta)
}

func TestRowRejectsNonObject(t *testing.T) {
	var row Row
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &row))
}

func TestConformBackfillsAndDrops(t *testing.T) {
	row := RowFromPairs("email", "a@b.c", "extra", 42, "name", "Ann")
	fields := FieldSet{"name", "email", "age"}

	got := row.Conform(fields)

	assert.Equal(t, []string{"name", "email", "age"}, got.Keys())
	age, ok := got.Get("age")
	assert.True(t, ok)
	assert.Nil(t, age)
	_, ok = got.Get("extra")
	assert.False(t, ok)
	assert.True(t, got.HasFields(fields))
}

func TestParseRow(t *testing.T) {
	row, ok := ParseRow(`{"id": 7, "name": "x"}`)
	assert.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, row.Keys())

	row, ok = ParseRow(`not json at all`)
	assert.False(t, ok)
	v, _ := row.Get("value")
	assert.Equal(t, "not json at all", v)

	row, ok = ParseRow(`{}`)
	assert.False(t, ok)
	assert.Equal(t, []string{"value"}, row.Keys())
}

func TestDownloadRequestDecodesOrderedRows(t *testing.T) {
	var req DownloadRequest
	body := `{"format":"csv","prompt":"p","data":[{"b":1,"a":2},{"b":3,"a":4}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	require.Len(t, req.Data, 2)
	assert.Equal(t, FieldSet{"b", "a"}, FieldsOf(req.Data))
}
