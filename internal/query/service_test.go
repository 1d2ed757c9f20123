package query

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/querydoc"
	"github.com/roach88/datastore/internal/testutil"
	"github.com/roach88/datastore/internal/translate"
)

// createTestService opens a SQLite store with one TEXT table "asdf"
// holding columns a and b.
func createTestService(t *testing.T) (*Service, *datastore.Store) {
	t.Helper()
	ctx := context.Background()

	s, err := datastore.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"), datastore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	table := s.Table("asdf")
	require.NoError(t, table.Create(ctx, datastore.TextSchema([]string{"a", "b"})))
	require.NoError(t, table.Insert(ctx, []string{"a", "b"}, [][]any{
		{"x", "1"},
		{"y", "2"},
		{"x", "3"},
	}))

	return NewService(s, translate.New(translate.Options{})), s
}

// fakeProvider serves fixed tables and counts StorageMap calls.
type fakeProvider struct {
	tables map[string]datastore.Table
	calls  int
}

func (p *fakeProvider) StorageMap(identifiers []string) datastore.StorageMap {
	p.calls++
	m := make(datastore.StorageMap, len(identifiers))
	for _, id := range identifiers {
		if tbl, ok := p.tables[id]; ok {
			m[id] = tbl
		}
	}
	return m
}

func TestRun_NoPropertiesIncludesRowID(t *testing.T) {
	svc, _ := createTestService(t)

	resp, err := svc.Run(context.Background(), []byte(`{"resources":[{"id":"asdf"}]}`))
	require.NoError(t, err)

	require.Contains(t, resp.Schema, "asdf")
	fields := resp.Schema["asdf"].Fields
	assert.Contains(t, fields, "record_number")
	assert.Contains(t, fields, "a")
	assert.Contains(t, fields, "b")

	assert.Equal(t, []string{"record_number", "a", "b"}, resp.Columns)
	require.Len(t, resp.Results, 3)
	id, ok := resp.Results[0].Get("record_number")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(1), id)
}

func TestRun_ExplicitPropertiesExcludeRowID(t *testing.T) {
	svc, _ := createTestService(t)

	resp, err := svc.Run(context.Background(), []byte(`{"resources":[{"id":"asdf"}],"properties":["a","b"],"rowIds":true}`))
	require.NoError(t, err)

	fields := resp.Schema["asdf"].Fields
	assert.NotContains(t, fields, "record_number")
	assert.Equal(t, FieldInfo{Type: "TEXT"}, fields["a"])
	assert.Equal(t, []string{"a", "b"}, resp.Columns)
	for _, row := range resp.Results {
		assert.Equal(t, []string{"a", "b"}, row.Keys)
	}
}

func TestRun_ConditionsSortsAndCount(t *testing.T) {
	svc, _ := createTestService(t)

	resp, err := svc.Run(context.Background(), []byte(`{
		"resources":[{"id":"asdf","alias":"t"}],
		"properties":["a","b"],
		"conditions":[{"property":"a","value":"x","operator":"="}],
		"sorts":[{"property":"b","order":"desc"}],
		"limit":1
	}`))
	require.NoError(t, err)

	require.NotNil(t, resp.Count)
	assert.Equal(t, int64(2), *resp.Count, "count ignores limit")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []ir.IRValue{ir.IRString("x"), ir.IRString("3")}, resp.Results[0].Values)
}

func TestRun_EnvelopeJSON(t *testing.T) {
	svc, _ := createTestService(t)

	resp, err := svc.Run(context.Background(), []byte(`{
		"resources":[{"id":"asdf","alias":"t"}],
		"properties":["a"],
		"conditions":[{"property":"b","value":"2"}],
		"limit":10
	}`))
	require.NoError(t, err)

	out, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"results":[{"a":"y"}],
		"count":1,
		"schema":{"asdf":{"fields":{"a":{"type":"TEXT"}}}},
		"query":{
			"resources":[{"id":"asdf","alias":"t"}],
			"properties":["a"],
			"conditions":[{"property":"b","value":"2","operator":"="}],
			"limit":10,
			"count":true,
			"results":true,
			"schema":true,
			"keys":true,
			"rowIds":false,
			"format":"json"
		}
	}`, string(out))
}

func TestRun_KeysFalseReturnsArrays(t *testing.T) {
	svc, _ := createTestService(t)

	resp, err := svc.Run(context.Background(), []byte(`{"resources":[{"id":"asdf"}],"properties":["a","b"],"keys":false,"limit":1}`))
	require.NoError(t, err)

	out, err := json.Marshal(resp.Results)
	require.NoError(t, err)
	assert.JSONEq(t, `[["x","1"]]`, string(out))
}

func TestRun_OptionalParts(t *testing.T) {
	svc, _ := createTestService(t)

	resp, err := svc.Run(context.Background(), []byte(`{"resources":[{"id":"asdf"}],"count":false,"schema":false,"conditions":[{"property":"a","value":"none"}]}`))
	require.NoError(t, err)

	assert.Nil(t, resp.Count)
	assert.Nil(t, resp.Schema)
	require.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)

	out, err := json.Marshal(resp)
	require.NoError(t, err)

	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &envelope))
	assert.JSONEq(t, `[]`, string(envelope["results"]))
	assert.NotContains(t, envelope, "count")
	assert.NotContains(t, envelope, "schema")
	assert.Contains(t, envelope, "query")
}

func TestRun_QueryID(t *testing.T) {
	svc, _ := createTestService(t)
	ctx := context.Background()

	a, err := svc.Run(ctx, []byte(`{"resources":[{"id":"asdf"}],"properties":["a"],"limit":5}`))
	require.NoError(t, err)
	b, err := svc.Run(ctx, []byte(`{"limit":5,"properties":["a"],"resources":[{"id":"asdf"}]}`))
	require.NoError(t, err)
	c, err := svc.Run(ctx, []byte(`{"resources":[{"id":"asdf"}],"properties":["a"],"limit":6}`))
	require.NoError(t, err)

	assert.Len(t, a.ID, 64)
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.NotContains(t, string(out), a.ID)
}

func TestRunDocument_NoResources(t *testing.T) {
	svc, _ := createTestService(t)

	resp, err := svc.RunDocument(context.Background(), &querydoc.Document{Results: true})
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, translate.CodeUnknownResource, translate.CodeOf(err))
}

func TestRun_EchoCarriesEffectiveLimit(t *testing.T) {
	svc, _ := createTestService(t)

	resp, err := svc.Run(context.Background(), []byte(`{"resources":[{"id":"asdf"}],"limit":100000}`))
	require.NoError(t, err)

	require.NotNil(t, resp.Query.Limit)
	assert.Equal(t, translate.DefaultRowsLimit, *resp.Query.Limit)
}

func TestRun_Join(t *testing.T) {
	svc, s := createTestService(t)
	ctx := context.Background()

	other := s.Table("other")
	require.NoError(t, other.Create(ctx, datastore.TextSchema([]string{"a", "label"})))
	require.NoError(t, other.Insert(ctx, []string{"a", "label"}, [][]any{{"x", "ex"}, {"y", "why"}}))

	resp, err := svc.Run(ctx, []byte(`{
		"resources":[{"id":"asdf","alias":"t"},{"id":"other","alias":"o"}],
		"properties":["b",{"resource":"o","property":"label"}],
		"joins":[{"resource":"o","condition":{"resource":"t","property":"a","value":{"resource":"o","property":"a"}}}],
		"sorts":[{"property":"b"}]
	}`))
	require.NoError(t, err)

	require.Len(t, resp.Results, 3)
	assert.Equal(t, []ir.IRValue{ir.IRString("1"), ir.IRString("ex")}, resp.Results[0].Values)
	assert.Equal(t, []ir.IRValue{ir.IRString("2"), ir.IRString("why")}, resp.Results[1].Values)

	assert.Equal(t, map[string]FieldInfo{"b": {Type: "TEXT"}}, resp.Schema["asdf"].Fields)
	assert.Equal(t, map[string]FieldInfo{"label": {Type: "TEXT"}}, resp.Schema["other"].Fields)
}

func TestRun_SchemaValidationError(t *testing.T) {
	svc, _ := createTestService(t)

	_, err := svc.Run(context.Background(), []byte(`{"resources":[],"bogus":1}`))
	require.Error(t, err)
	assert.Equal(t, translate.CodeSchemaValidation, translate.CodeOf(err))
	assert.Equal(t, "JSON Schema validation failed.", err.Error())
}

func TestRun_InvalidCondition(t *testing.T) {
	svc, _ := createTestService(t)

	_, err := svc.Run(context.Background(), []byte(`{"resources":[{"id":"asdf"}],"conditions":[{"property":"zzz","value":"x"}]}`))
	require.Error(t, err)
	assert.True(t, translate.IsInvalidCondition(err))
	assert.Contains(t, err.Error(), "Invalid condition")
}

func TestRun_TooManyResourcesMakesNoStorageCall(t *testing.T) {
	provider := &fakeProvider{tables: map[string]datastore.Table{}}
	svc := NewService(provider, translate.New(translate.Options{MaxResources: 1}))

	_, err := svc.Run(context.Background(), []byte(`{"resources":[{"id":"a"},{"id":"b"}]}`))
	require.Error(t, err)
	assert.True(t, translate.IsTooManyResources(err))
	assert.Zero(t, provider.calls)
}

func TestRun_StorageFailure(t *testing.T) {
	table := testutil.NewFakeTable("asdf", "a")
	table.QueryErr = assert.AnError
	provider := &fakeProvider{tables: map[string]datastore.Table{"asdf": table}}
	svc := NewService(provider, translate.New(translate.Options{}))

	_, err := svc.Run(context.Background(), []byte(`{"resources":[{"id":"asdf"}]}`))
	require.Error(t, err)
	assert.Equal(t, translate.CodeStorage, translate.CodeOf(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, table.QueryCalls, "storage failures are not retried")
}

func TestWriteCSV(t *testing.T) {
	resp := &Response{
		Columns: []string{"name", "n", "ok", "none"},
		Results: []Row{
			{Values: []ir.IRValue{ir.IRString("a,b"), ir.IRInt(3), ir.IRBool(true), ir.IRNull{}}},
			{Values: []ir.IRValue{ir.IRString("c"), ir.IRFloat(1.5), ir.IRBool(false), ir.IRNull{}}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, resp.WriteCSV(&buf))
	assert.Equal(t, "name,n,ok,none\n\"a,b\",3,true,\nc,1.5,false,\n", buf.String())
}
