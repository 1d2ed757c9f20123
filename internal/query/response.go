package query

import (
	"bytes"
	"encoding/json"

	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/querydoc"
)

// Response is the result envelope of one query.
//
// Results is nil when rows were not requested; Count is nil when the
// count was not requested; Schema is nil when schemas were not requested.
type Response struct {
	Results []Row
	Count   *int64
	Schema  map[string]TableSchema
	Query   *querydoc.Document

	// ID identifies the normalized query. It is not part of the JSON
	// envelope.
	ID string

	// Columns are the output keys in projection order.
	Columns []string
}

// TableSchema is the schema of one resource as reported in a response.
type TableSchema struct {
	Fields map[string]FieldInfo `json:"fields"`
}

// FieldInfo describes one column.
type FieldInfo struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type envelope struct {
	Results *[]Row                 `json:"results,omitempty"`
	Count   *int64                 `json:"count,omitempty"`
	Schema  map[string]TableSchema `json:"schema,omitempty"`
	Query   *querydoc.Document     `json:"query"`
}

// MarshalJSON writes {results, count, schema, query}, omitting the parts
// that were not requested. An empty result set is written as [].
func (r *Response) MarshalJSON() ([]byte, error) {
	env := envelope{Count: r.Count, Schema: r.Schema, Query: r.Query}
	if r.Results != nil {
		env.Results = &r.Results
	}
	return json.Marshal(env)
}

// Row is one result row. With Keys set it encodes as an object whose keys
// keep projection order; without Keys it encodes as a flat array.
type Row struct {
	Keys   []string
	Values []ir.IRValue
}

// Get returns the value for key.
func (r Row) Get(key string) (ir.IRValue, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return nil, false
}

func (r Row) MarshalJSON() ([]byte, error) {
	if r.Keys == nil {
		return ir.IRArray(r.Values).MarshalJSON()
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := ir.MarshalIRValue(r.Values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
