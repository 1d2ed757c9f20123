package querydoc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/datastore/internal/ir"
)

// Document is a parsed query request.
type Document struct {
	Resources  []Resource  `json:"resources"`
	Properties []Property  `json:"properties,omitempty"`
	Conditions []Condition `json:"conditions,omitempty"`
	Joins      []Join      `json:"joins,omitempty"`
	Sorts      []Sort      `json:"sorts,omitempty"`
	Limit      *int        `json:"limit,omitempty"` // nil = engine default
	Offset     int         `json:"offset,omitempty"`
	Count      bool        `json:"count"`
	Results    bool        `json:"results"`
	Schema     bool        `json:"schema"`
	Keys       bool        `json:"keys"`
	RowIDs     bool        `json:"rowIds"`
	Format     string      `json:"format"`
}

// Resource references a datastore table by resource identifier.
type Resource struct {
	ID    string `json:"id"`
	Alias string `json:"alias,omitempty"`
}

// Name is the alias the resource is addressed by: Alias, or ID when unset.
func (r Resource) Name() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.ID
}

// Property is one projected column: a plain name, a qualified
// {resource, property, alias} reference, or an aliased expression.
type Property struct {
	Resource   string
	Property   string
	Alias      string
	Expression *Expression
}

// IsExpression reports whether the property is computed.
func (p Property) IsExpression() bool {
	return p.Expression != nil
}

type propertyJSON struct {
	Resource   string      `json:"resource,omitempty"`
	Property   string      `json:"property,omitempty"`
	Alias      string      `json:"alias,omitempty"`
	Expression *Expression `json:"expression,omitempty"`
}

// UnmarshalJSON accepts a bare string or an object.
func (p *Property) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*p = Property{Property: name}
		return nil
	}
	var raw propertyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Property(raw)
	return nil
}

// MarshalJSON writes a bare string when the property is an unqualified,
// unaliased column.
func (p Property) MarshalJSON() ([]byte, error) {
	if p.Resource == "" && p.Alias == "" && p.Expression == nil {
		return json.Marshal(p.Property)
	}
	return json.Marshal(propertyJSON(p))
}

// Expression is an arithmetic expression in a projection.
type Expression struct {
	Operator string    `json:"operator"`
	Operands []Operand `json:"operands"`
}

// Operand is a number, a column (bare name or {resource, property}), or a
// nested expression.
type Operand struct {
	Value      ir.IRValue // numeric literal
	Resource   string
	Property   string
	Expression *Expression
}

type operandJSON struct {
	Resource   string      `json:"resource,omitempty"`
	Property   string      `json:"property,omitempty"`
	Expression *Expression `json:"expression,omitempty"`
}

func (o *Operand) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty operand")
	}
	switch data[0] {
	case '"':
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*o = Operand{Property: name}
	case '{':
		var raw operandJSON
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*o = Operand{Resource: raw.Resource, Property: raw.Property, Expression: raw.Expression}
	default:
		v, err := ir.UnmarshalIRValue(data)
		if err != nil {
			return err
		}
		*o = Operand{Value: v}
	}
	return nil
}

func (o Operand) MarshalJSON() ([]byte, error) {
	switch {
	case o.Expression != nil:
		return json.Marshal(operandJSON{Expression: o.Expression})
	case o.Property != "" && o.Resource == "":
		return json.Marshal(o.Property)
	case o.Property != "":
		return json.Marshal(operandJSON{Resource: o.Resource, Property: o.Property})
	default:
		return ir.MarshalIRValue(o.Value)
	}
}

// Condition is a leaf comparison or, when GroupOperator is set, a group of
// nested conditions.
type Condition struct {
	Resource string
	Property string
	Operator string
	Value    ir.IRValue

	GroupOperator string
	Conditions    []Condition
}

// IsGroup reports whether the condition is an and/or group.
func (c Condition) IsGroup() bool {
	return c.GroupOperator != ""
}

// ColumnValue returns the {resource, property} reference when the value
// names another column.
func (c Condition) ColumnValue() (resource, property string, ok bool) {
	obj, isObj := c.Value.(ir.IRObject)
	if !isObj {
		return "", "", false
	}
	res, okRes := obj["resource"].(ir.IRString)
	prop, okProp := obj["property"].(ir.IRString)
	if !okRes || !okProp {
		return "", "", false
	}
	return string(res), string(prop), true
}

type conditionJSON struct {
	Resource      string          `json:"resource,omitempty"`
	Property      string          `json:"property,omitempty"`
	Value         json.RawMessage `json:"value,omitempty"`
	Operator      string          `json:"operator,omitempty"`
	GroupOperator string          `json:"groupOperator,omitempty"`
	Conditions    []Condition     `json:"conditions,omitempty"`
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw conditionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Condition{
		Resource:      raw.Resource,
		Property:      raw.Property,
		Operator:      raw.Operator,
		GroupOperator: raw.GroupOperator,
		Conditions:    raw.Conditions,
	}
	if len(raw.Value) > 0 {
		v, err := ir.UnmarshalIRValue(raw.Value)
		if err != nil {
			return fmt.Errorf("condition %q value: %w", raw.Property, err)
		}
		c.Value = v
	}
	return nil
}

func (c Condition) MarshalJSON() ([]byte, error) {
	raw := conditionJSON{
		Resource:      c.Resource,
		Property:      c.Property,
		Operator:      c.Operator,
		GroupOperator: c.GroupOperator,
		Conditions:    c.Conditions,
	}
	if c.Value != nil {
		v, err := ir.MarshalIRValue(c.Value)
		if err != nil {
			return nil, fmt.Errorf("condition %q value: %w", c.Property, err)
		}
		raw.Value = v
	}
	return json.Marshal(raw)
}

// Join adds a resource, matched by Condition, whose value is a
// {resource, property} column reference.
type Join struct {
	Resource  string    `json:"resource"`
	Condition Condition `json:"condition"`
	Type      string    `json:"type,omitempty"`
}

// Sort orders results by a property.
type Sort struct {
	Resource string `json:"resource,omitempty"`
	Property string `json:"property"`
	Order    string `json:"order,omitempty"`
}
