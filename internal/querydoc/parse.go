package querydoc

import (
	_ "embed"
	"encoding/json"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	})
	return schema, schemaErr
}

// SchemaValidationMessage is the message of every SchemaValidationError.
const SchemaValidationMessage = "JSON Schema validation failed."

// SchemaValidationError reports a document that does not conform to the
// query schema. Details carries one line per violation.
type SchemaValidationError struct {
	Details []string
}

func (e *SchemaValidationError) Error() string {
	return SchemaValidationMessage
}

// IsSchemaValidationError reports whether err is, or wraps, a
// SchemaValidationError.
func IsSchemaValidationError(err error) bool {
	var sve *SchemaValidationError
	return errors.As(err, &sve)
}

// Parse validates raw against the query schema, decodes it and applies
// defaults. It has no side effects.
func Parse(raw []byte) (*Document, error) {
	s, err := compiledSchema()
	if err != nil {
		return nil, errors.Wrap(err, "compile query schema")
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// Not JSON at all.
		return nil, &SchemaValidationError{Details: []string{err.Error()}}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, &SchemaValidationError{Details: details}
	}

	doc := &Document{
		Count:   true,
		Results: true,
		Schema:  true,
		Keys:    true,
		Format:  "json",
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, &SchemaValidationError{Details: []string{err.Error()}}
	}
	doc.normalize()
	return doc, nil
}

// normalize fills per-element defaults and canonical operator spellings.
func (d *Document) normalize() {
	for i := range d.Conditions {
		normalizeCondition(&d.Conditions[i])
	}
	for i := range d.Joins {
		if d.Joins[i].Type == "" {
			d.Joins[i].Type = "inner"
		}
		normalizeCondition(&d.Joins[i].Condition)
	}
	for i := range d.Sorts {
		if d.Sorts[i].Order == "" {
			d.Sorts[i].Order = "asc"
		}
	}
}

func normalizeCondition(c *Condition) {
	if c.IsGroup() {
		c.GroupOperator = strings.ToLower(c.GroupOperator)
		for i := range c.Conditions {
			normalizeCondition(&c.Conditions[i])
		}
		return
	}
	c.Operator = NormalizeOperator(c.Operator)
}

// NormalizeOperator maps an authored operator to its canonical form:
// empty means "=", and "<>" is an alias of "!=".
func NormalizeOperator(op string) string {
	op = strings.ToLower(strings.TrimSpace(op))
	switch op {
	case "":
		return "="
	case "<>":
		return "!="
	}
	return op
}

// ResourceNames returns each resource's addressing name in order.
func (d *Document) ResourceNames() []string {
	names := make([]string, len(d.Resources))
	for i, r := range d.Resources {
		names[i] = r.Name()
	}
	return names
}

// ResourceIDs returns the distinct resource identifiers referenced by the
// document, in first-seen order.
func (d *Document) ResourceIDs() []string {
	seen := make(map[string]bool, len(d.Resources))
	ids := make([]string, 0, len(d.Resources))
	for _, r := range d.Resources {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		ids = append(ids, r.ID)
	}
	return ids
}
