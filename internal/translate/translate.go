package translate

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/querydoc"
	"github.com/roach88/datastore/internal/queryir"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultMaxResources = 3
	DefaultRowsLimit    = 500
)

// Options bounds what a document may ask for.
type Options struct {
	MaxResources int // resources per document
	DefaultLimit int // limit when the document has none
	RowsLimit    int // hard cap on limit
}

// Translator binds query documents to storage and produces plans.
// It holds no per-request state and is safe for concurrent use.
type Translator struct {
	opts Options
}

// New creates a Translator, filling zero options with defaults.
func New(opts Options) *Translator {
	if opts.MaxResources <= 0 {
		opts.MaxResources = DefaultMaxResources
	}
	if opts.RowsLimit <= 0 {
		opts.RowsLimit = DefaultRowsLimit
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > opts.RowsLimit {
		opts.DefaultLimit = opts.RowsLimit
	}
	return &Translator{opts: opts}
}

// Options returns the effective options.
func (t *Translator) Options() Options {
	return t.opts
}

// CheckResources fails with a too-many-resources error when the document
// references more distinct resources than allowed. Aliasing one resource
// twice counts once. It makes no storage calls.
func (t *Translator) CheckResources(doc *querydoc.Document) error {
	if n := len(doc.ResourceIDs()); n > t.opts.MaxResources {
		return NewTooManyResourcesError(n, t.opts.MaxResources)
	}
	return nil
}

// boundTable is a plan table with its schema.
type boundTable struct {
	ref    queryir.TableRef
	schema datastore.Schema
}

// binder resolves names against the tables of one request.
type binder struct {
	tables []boundTable
	byName map[string]int
	// visible limits resolution to tables already in scope while joins
	// are being bound; nil means all tables.
	visible map[string]bool
}

// Translate binds doc against storage and returns an executable plan.
//
// Steps, in order: resource count, table lookup, joins, properties,
// conditions, sorts, paging. The first failure aborts translation.
// Schemas are the only thing read from storage.
func (t *Translator) Translate(ctx context.Context, doc *querydoc.Document, storage datastore.StorageMap) (*queryir.Plan, error) {
	if err := t.CheckResources(doc); err != nil {
		return nil, err
	}

	b, err := bindTables(ctx, doc, storage)
	if err != nil {
		return nil, err
	}

	plan := &queryir.Plan{From: b.tables[0].ref}
	plan.RowID = b.tables[0].schema.RowID()

	joins, err := b.bindJoins(doc.Joins)
	if err != nil {
		return nil, err
	}
	plan.Joins = joins

	cols, err := b.bindProperties(doc.Properties)
	if err != nil {
		return nil, err
	}
	plan.Columns = cols

	filter, err := b.bindConditions(doc.Conditions)
	if err != nil {
		return nil, err
	}
	plan.Filter = filter

	sorts, err := b.bindSorts(doc.Sorts)
	if err != nil {
		return nil, err
	}
	plan.Sorts = sorts

	plan.Limit = t.opts.DefaultLimit
	if doc.Limit != nil {
		plan.Limit = min(*doc.Limit, t.opts.RowsLimit)
	}
	plan.Offset = doc.Offset

	if result := queryir.Validate(*plan); !result.Valid {
		return nil, errors.Newf("translated plan is invalid: %s", strings.Join(result.Errors, "; "))
	}
	return plan, nil
}

func bindTables(ctx context.Context, doc *querydoc.Document, storage datastore.StorageMap) (*binder, error) {
	if len(doc.Resources) == 0 {
		return nil, newError(CodeUnknownResource, "", "No resources specified.")
	}
	b := &binder{byName: make(map[string]int, len(doc.Resources))}
	for _, res := range doc.Resources {
		name := res.Name()
		if _, dup := b.byName[name]; dup {
			return nil, newError(CodeInvalidJoin, res.ID, "Resource alias %q is used more than once.", name)
		}

		table, ok := storage[res.ID]
		if !ok || table == nil {
			return nil, newError(CodeUnknownResource, res.ID, "Resource %s is not in the storage map.", res.ID)
		}
		schema, err := table.Schema(ctx)
		if errors.Is(err, datastore.ErrTableNotFound) {
			return nil, newError(CodeUnknownResource, res.ID, "Resource %s has no datastore table.", res.ID)
		}
		if err != nil {
			return nil, NewStorageError(res.ID, err)
		}

		b.byName[name] = len(b.tables)
		b.tables = append(b.tables, boundTable{
			ref:    queryir.TableRef{Alias: name, Name: table.Name(), Resource: res.ID},
			schema: schema,
		})
	}
	return b, nil
}

// resolve binds a property to a column. A qualified name must exist on
// its table; an unqualified name binds to the first visible table that
// has it, in declaration order.
func (b *binder) resolve(resource, property string) (queryir.Column, datastore.Field, bool) {
	if resource != "" {
		i, ok := b.byName[resource]
		if !ok || !b.isVisible(resource) {
			return queryir.Column{}, datastore.Field{}, false
		}
		f, ok := b.tables[i].schema.Field(property)
		if !ok {
			return queryir.Column{}, datastore.Field{}, false
		}
		return queryir.Column{Table: resource, Name: property}, f, true
	}

	for _, bt := range b.tables {
		if !b.isVisible(bt.ref.Alias) {
			continue
		}
		if f, ok := bt.schema.Field(property); ok {
			return queryir.Column{Table: bt.ref.Alias, Name: property}, f, true
		}
	}
	return queryir.Column{}, datastore.Field{}, false
}

func (b *binder) isVisible(alias string) bool {
	return b.visible == nil || b.visible[alias]
}

// resourceFor names the resource a property is reported against.
func (b *binder) resourceFor(resource string) string {
	if resource != "" {
		if i, ok := b.byName[resource]; ok {
			return b.tables[i].ref.Resource
		}
		return resource
	}
	return b.tables[0].ref.Resource
}

// bindJoins binds each join in declaration order. A join's condition may
// reference the joined table and tables already in scope; every resource
// after the first must be joined exactly once.
func (b *binder) bindJoins(joins []querydoc.Join) ([]queryir.Join, error) {
	first := b.tables[0].ref.Alias
	b.visible = map[string]bool{first: true}
	defer func() { b.visible = nil }()

	out := make([]queryir.Join, 0, len(joins))
	for i, j := range joins {
		idx, ok := b.byName[j.Resource]
		if !ok {
			return nil, newError(CodeInvalidJoin, j.Resource, "Join %d references unknown resource %q.", i, j.Resource)
		}
		if b.visible[j.Resource] {
			return nil, newError(CodeInvalidJoin, j.Resource, "Resource %q is already part of the query.", j.Resource)
		}
		b.visible[j.Resource] = true

		on, err := b.bindJoinCondition(j.Condition)
		if err != nil {
			return nil, err
		}

		jt := queryir.InnerJoin
		if j.Type == string(queryir.LeftJoin) {
			jt = queryir.LeftJoin
		}
		out = append(out, queryir.Join{Type: jt, Table: b.tables[idx].ref, On: on})
	}

	for _, bt := range b.tables {
		if !b.visible[bt.ref.Alias] {
			return nil, newError(CodeInvalidJoin, bt.ref.Resource, "Resource %q must be joined to %q.", bt.ref.Alias, first)
		}
	}
	return out, nil
}

func (b *binder) bindJoinCondition(c querydoc.Condition) (queryir.Predicate, error) {
	left, leftField, ok := b.resolve(c.Resource, c.Property)
	if !ok {
		return nil, newError(CodeInvalidJoin, b.resourceFor(c.Resource), "Invalid join condition: property %q does not exist.", c.Property)
	}
	res, prop, ok := c.ColumnValue()
	if !ok {
		return nil, newError(CodeInvalidJoin, b.resourceFor(c.Resource), "Invalid join condition: value must reference a column.")
	}
	right, _, ok := b.resolve(res, prop)
	if !ok {
		return nil, newError(CodeInvalidJoin, b.resourceFor(res), "Invalid join condition: property %q does not exist on %q.", prop, res)
	}

	op := queryir.Op(querydoc.NormalizeOperator(c.Operator))
	switch op {
	case queryir.OpEq, queryir.OpNotEq, queryir.OpLt, queryir.OpLte, queryir.OpGt, queryir.OpGte:
	default:
		return nil, newError(CodeInvalidJoin, b.resourceFor(c.Resource), "Invalid join condition: operator %q cannot compare columns.", op)
	}
	if !FamilyOf(leftField.Type).Supports(op) {
		return nil, newError(CodeInvalidJoin, b.resourceFor(c.Resource), "Invalid join condition: operator %q does not apply to %s.", op, left)
	}
	return queryir.Compare{Column: left, Op: op, Value: queryir.ColumnRef{Column: right}}, nil
}

// bindProperties resolves the projection. With no properties every column
// of the first table is projected, row id included; otherwise exactly the
// listed properties are.
func (b *binder) bindProperties(props []querydoc.Property) ([]queryir.Projection, error) {
	if len(props) == 0 {
		first := b.tables[0]
		cols := make([]queryir.Projection, 0, len(first.schema.Fields))
		for _, f := range first.schema.Fields {
			cols = append(cols, queryir.Projection{
				Value: queryir.ColumnRef{Column: queryir.Column{Table: first.ref.Alias, Name: f.Name}},
			})
		}
		return cols, nil
	}

	cols := make([]queryir.Projection, 0, len(props))
	seen := make(map[string]bool, len(props))
	for _, p := range props {
		var proj queryir.Projection
		if p.IsExpression() {
			if p.Alias == "" {
				return nil, newError(CodeInvalidProperty, b.resourceFor(""), "Expressions require an alias.")
			}
			expr, err := b.bindExpression(*p.Expression)
			if err != nil {
				return nil, err
			}
			proj = queryir.Projection{Value: expr, Alias: p.Alias}
		} else {
			col, _, ok := b.resolve(p.Resource, p.Property)
			if !ok {
				return nil, newError(CodeInvalidProperty, b.resourceFor(p.Resource),
					"Invalid property: %q does not exist on resource %s.", p.Property, b.resourceFor(p.Resource))
			}
			proj = queryir.Projection{Value: queryir.ColumnRef{Column: col}, Alias: p.Alias}
		}

		key := proj.Key()
		if seen[key] {
			return nil, newError(CodeInvalidProperty, b.resourceFor(p.Resource), "Invalid property: %q is selected more than once; use an alias.", key)
		}
		seen[key] = true
		cols = append(cols, proj)
	}
	return cols, nil
}

func (b *binder) bindExpression(e querydoc.Expression) (queryir.Expression, error) {
	op := queryir.ArithOp(e.Operator)
	if !op.Valid() {
		return queryir.Expression{}, newError(CodeInvalidProperty, b.resourceFor(""), "Invalid expression operator %q.", e.Operator)
	}
	if len(e.Operands) < 2 {
		return queryir.Expression{}, newError(CodeInvalidProperty, b.resourceFor(""), "Expression %q needs at least two operands.", e.Operator)
	}
	out := queryir.Expression{Operator: op, Operands: make([]queryir.Operand, 0, len(e.Operands))}
	for _, o := range e.Operands {
		switch {
		case o.Expression != nil:
			nested, err := b.bindExpression(*o.Expression)
			if err != nil {
				return queryir.Expression{}, err
			}
			out.Operands = append(out.Operands, nested)
		case o.Property != "":
			col, f, ok := b.resolve(o.Resource, o.Property)
			if !ok {
				return queryir.Expression{}, newError(CodeInvalidProperty, b.resourceFor(o.Resource),
					"Invalid property: %q does not exist on resource %s.", o.Property, b.resourceFor(o.Resource))
			}
			if fam := FamilyOf(f.Type); fam != FamilyNumeric && fam != FamilyText {
				return queryir.Expression{}, newError(CodeInvalidProperty, b.resourceFor(o.Resource),
					"Invalid expression: %s is a %s column.", col, fam)
			}
			out.Operands = append(out.Operands, queryir.ColumnRef{Column: col})
		default:
			if !ir.IsNumeric(o.Value) {
				return queryir.Expression{}, newError(CodeInvalidProperty, b.resourceFor(""), "Invalid expression operand %v.", o.Value)
			}
			out.Operands = append(out.Operands, queryir.Literal{Value: o.Value})
		}
	}
	return out, nil
}

// bindConditions ANDs top-level conditions. A single condition is not
// wrapped in a group.
func (b *binder) bindConditions(conds []querydoc.Condition) (queryir.Predicate, error) {
	switch len(conds) {
	case 0:
		return nil, nil
	case 1:
		return b.bindCondition(conds[0])
	}
	preds := make([]queryir.Predicate, 0, len(conds))
	for _, c := range conds {
		p, err := b.bindCondition(c)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return queryir.Group{Conjunction: queryir.And, Predicates: preds}, nil
}

func (b *binder) bindCondition(c querydoc.Condition) (queryir.Predicate, error) {
	if c.IsGroup() {
		conj := queryir.And
		switch strings.ToLower(c.GroupOperator) {
		case "and":
		case "or":
			conj = queryir.Or
		default:
			return nil, NewInvalidConditionError(b.resourceFor(""), "unknown group operator %q", c.GroupOperator)
		}
		if len(c.Conditions) == 0 {
			return nil, NewInvalidConditionError(b.resourceFor(""), "empty %s group", c.GroupOperator)
		}
		preds := make([]queryir.Predicate, 0, len(c.Conditions))
		for _, sub := range c.Conditions {
			p, err := b.bindCondition(sub)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		return queryir.Group{Conjunction: conj, Predicates: preds}, nil
	}

	resource := b.resourceFor(c.Resource)
	col, field, ok := b.resolve(c.Resource, c.Property)
	if !ok {
		return nil, NewInvalidConditionError(resource, "property %q does not exist on resource %s", c.Property, resource)
	}

	op := queryir.Op(querydoc.NormalizeOperator(c.Operator))
	if !op.Valid() {
		return nil, NewInvalidConditionError(resource, "unknown operator %q", c.Operator)
	}
	family := FamilyOf(field.Type)
	if !family.Supports(op) {
		return nil, NewInvalidConditionError(resource, "operator %q does not apply to %s column %s", op, family, col)
	}

	value, err := b.bindValue(resource, col, family, op, c)
	if err != nil {
		return nil, err
	}
	return queryir.Compare{Column: col, Op: op, Value: value}, nil
}

func (b *binder) bindValue(resource string, col queryir.Column, family Family, op queryir.Op, c querydoc.Condition) (queryir.Operand, error) {
	switch op {
	case queryir.OpIn, queryir.OpNotIn:
		arr, ok := c.Value.(ir.IRArray)
		if !ok || len(arr) == 0 {
			return nil, NewInvalidConditionError(resource, "operator %q on %s needs a non-empty array", op, col)
		}
		for _, v := range arr {
			if err := checkLiteral(resource, col, family, v); err != nil {
				return nil, err
			}
		}
		return queryir.List{Values: []ir.IRValue(arr)}, nil

	case queryir.OpBetween:
		arr, ok := c.Value.(ir.IRArray)
		if !ok || len(arr) != 2 {
			return nil, NewInvalidConditionError(resource, "operator between on %s needs exactly two values", col)
		}
		for _, v := range arr {
			if err := checkLiteral(resource, col, family, v); err != nil {
				return nil, err
			}
		}
		return queryir.Range{Low: arr[0], High: arr[1]}, nil
	}

	if refRes, refProp, ok := c.ColumnValue(); ok {
		switch op {
		case queryir.OpContains, queryir.OpStartsWith:
			return nil, NewInvalidConditionError(resource, "operator %q on %s needs a literal value", op, col)
		}
		ref, _, ok := b.resolve(refRes, refProp)
		if !ok {
			return nil, NewInvalidConditionError(resource, "property %q does not exist on resource %s", refProp, b.resourceFor(refRes))
		}
		return queryir.ColumnRef{Column: ref}, nil
	}

	if err := checkLiteral(resource, col, family, c.Value); err != nil {
		return nil, err
	}
	return queryir.Literal{Value: c.Value}, nil
}

// checkLiteral enforces that a literal matches the column's type family.
func checkLiteral(resource string, col queryir.Column, family Family, v ir.IRValue) error {
	if !ir.IsScalar(v) {
		return NewInvalidConditionError(resource, "value for %s must be a scalar", col)
	}
	switch family {
	case FamilyNumeric:
		if !ir.IsNumeric(v) {
			return NewInvalidConditionError(resource, "value %v is not numeric for column %s", v, col)
		}
	case FamilyBoolean:
		if !isBooleanLiteral(v) {
			return NewInvalidConditionError(resource, "value %v is not boolean for column %s", v, col)
		}
	case FamilyDate:
		switch v.(type) {
		case ir.IRString, ir.IRInt:
		default:
			return NewInvalidConditionError(resource, "value %v is not a date for column %s", v, col)
		}
	}
	return nil
}

func isBooleanLiteral(v ir.IRValue) bool {
	switch val := v.(type) {
	case ir.IRBool:
		return true
	case ir.IRInt:
		return val == 0 || val == 1
	case ir.IRString:
		switch strings.ToLower(string(val)) {
		case "true", "false", "1", "0":
			return true
		}
	}
	return false
}

// bindSorts resolves each sort property the way conditions do.
func (b *binder) bindSorts(sorts []querydoc.Sort) ([]queryir.Sort, error) {
	out := make([]queryir.Sort, 0, len(sorts))
	for _, s := range sorts {
		col, _, ok := b.resolve(s.Resource, s.Property)
		if !ok {
			resource := b.resourceFor(s.Resource)
			return nil, newError(CodeInvalidSort, resource, "Invalid sort: property %q does not exist on resource %s.", s.Property, resource)
		}
		dir := queryir.Asc
		if strings.EqualFold(s.Order, "desc") {
			dir = queryir.Desc
		}
		out = append(out, queryir.Sort{Column: col, Direction: dir})
	}
	return out, nil
}
