package queryir

import (
	"fmt"

	"github.com/roach88/datastore/internal/ir"
)

// ValidationResult lists the structural problems found in a plan.
type ValidationResult struct {
	// Valid is true when Errors is empty.
	Valid bool

	// Errors lists every problem found, in traversal order.
	Errors []string
}

// Validate checks that a plan is structurally executable:
//  1. Every table has a name and a unique alias
//  2. Every column reference names a table alias in the plan
//  3. Comparison values have the shape their operator needs
//  4. Groups are non-empty and use AND or OR
//  5. Joins carry an ON predicate and a known join type
//
// Validate does not look at schemas; type-family checks happen when the
// plan is built. It is a pure function.
func Validate(plan Plan) ValidationResult {
	v := &validator{
		aliases: make(map[string]bool),
		errors:  []string{},
	}
	v.validatePlan(plan)

	return ValidationResult{
		Valid:  len(v.errors) == 0,
		Errors: v.errors,
	}
}

type validator struct {
	aliases map[string]bool
	errors  []string
}

func (v *validator) addError(format string, args ...any) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

func (v *validator) validatePlan(p Plan) {
	v.validateTable(p.From)
	for i, j := range p.Joins {
		v.validateTable(j.Table)
		switch j.Type {
		case InnerJoin, LeftJoin:
		default:
			v.addError("join[%d]: unknown join type %q", i, j.Type)
		}
		if j.On == nil {
			v.addError("join[%d]: missing ON predicate", i)
			continue
		}
		v.validatePredicate(j.On)
	}

	if len(p.Columns) == 0 {
		v.addError("plan projects no columns")
	}
	keys := make(map[string]bool, len(p.Columns))
	for i, c := range p.Columns {
		switch val := c.Value.(type) {
		case ColumnRef:
			v.validateColumn(val.Column)
		case *ColumnRef:
			v.validateColumn(val.Column)
		case Expression:
			v.validateExpression(val)
			if c.Alias == "" {
				v.addError("column[%d]: expression requires an alias", i)
			}
		case *Expression:
			v.validateExpression(*val)
			if c.Alias == "" {
				v.addError("column[%d]: expression requires an alias", i)
			}
		default:
			v.addError("column[%d]: unsupported projection %T", i, c.Value)
			continue
		}
		key := c.Key()
		if keys[key] {
			v.addError("column[%d]: duplicate output key %q", i, key)
		}
		keys[key] = true
	}

	if p.Filter != nil {
		v.validatePredicate(p.Filter)
	}

	for i, s := range p.Sorts {
		v.validateColumn(s.Column)
		if s.Direction != Asc && s.Direction != Desc {
			v.addError("sort[%d]: unknown direction %q", i, s.Direction)
		}
	}

	if p.Limit < 0 {
		v.addError("negative limit %d", p.Limit)
	}
	if p.Offset < 0 {
		v.addError("negative offset %d", p.Offset)
	}
}

func (v *validator) validateTable(t TableRef) {
	if t.Name == "" {
		v.addError("table %q has no physical name", t.Alias)
	}
	if t.Alias == "" {
		v.addError("table %q has no alias", t.Name)
		return
	}
	if v.aliases[t.Alias] {
		v.addError("duplicate table alias %q", t.Alias)
	}
	v.aliases[t.Alias] = true
}

func (v *validator) validateColumn(c Column) {
	if c.Name == "" {
		v.addError("column reference with empty name")
	}
	if !v.aliases[c.Table] {
		v.addError("column %s references unknown table alias %q", c, c.Table)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Compare:
		v.validateCompare(pred)
	case *Compare:
		v.validateCompare(*pred)
	case Group:
		v.validateGroup(pred)
	case *Group:
		v.validateGroup(*pred)
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateGroup(g Group) {
	if g.Conjunction != And && g.Conjunction != Or {
		v.addError("group has unknown conjunction %q", g.Conjunction)
	}
	if len(g.Predicates) == 0 {
		v.addError("group has no predicates")
	}
	for _, sub := range g.Predicates {
		v.validatePredicate(sub)
	}
}

func (v *validator) validateCompare(c Compare) {
	v.validateColumn(c.Column)
	if !c.Op.Valid() {
		v.addError("column %s: unknown operator %q", c.Column, c.Op)
		return
	}

	switch c.Op {
	case OpIn, OpNotIn:
		list, ok := asList(c.Value)
		if !ok {
			v.addError("column %s: operator %q needs a list, got %T", c.Column, c.Op, c.Value)
			return
		}
		if len(list.Values) == 0 {
			v.addError("column %s: operator %q needs at least one value", c.Column, c.Op)
		}
		for _, val := range list.Values {
			if !ir.IsScalar(val) {
				v.addError("column %s: list value %T is not a scalar", c.Column, val)
			}
		}
	case OpBetween:
		r, ok := asRange(c.Value)
		if !ok {
			v.addError("column %s: operator between needs a range, got %T", c.Column, c.Value)
			return
		}
		if !ir.IsScalar(r.Low) || !ir.IsScalar(r.High) {
			v.addError("column %s: between bounds must be scalars", c.Column)
		}
	default:
		switch val := c.Value.(type) {
		case Literal:
			v.validateLiteral(c, val)
		case *Literal:
			v.validateLiteral(c, *val)
		case ColumnRef:
			v.validateColumn(val.Column)
		case *ColumnRef:
			v.validateColumn(val.Column)
		default:
			v.addError("column %s: operator %q needs a scalar or column, got %T", c.Column, c.Op, c.Value)
		}
	}
}

func (v *validator) validateLiteral(c Compare, lit Literal) {
	if !ir.IsScalar(lit.Value) {
		v.addError("column %s: value %T is not a scalar", c.Column, lit.Value)
	}
}

func (v *validator) validateExpression(e Expression) {
	if !e.Operator.Valid() {
		v.addError("unknown arithmetic operator %q", e.Operator)
	}
	if len(e.Operands) < 2 {
		v.addError("expression %q needs at least two operands", e.Operator)
	}
	for _, op := range e.Operands {
		switch val := op.(type) {
		case Literal:
			if !ir.IsNumeric(val.Value) {
				v.addError("expression operand %v is not numeric", val.Value)
			}
		case *Literal:
			if !ir.IsNumeric(val.Value) {
				v.addError("expression operand %v is not numeric", val.Value)
			}
		case ColumnRef:
			v.validateColumn(val.Column)
		case *ColumnRef:
			v.validateColumn(val.Column)
		case Expression:
			v.validateExpression(val)
		case *Expression:
			v.validateExpression(*val)
		default:
			v.addError("unsupported expression operand %T", op)
		}
	}
}

func asList(o Operand) (List, bool) {
	switch val := o.(type) {
	case List:
		return val, true
	case *List:
		return *val, true
	}
	return List{}, false
}

func asRange(o Operand) (Range, bool) {
	switch val := o.(type) {
	case Range:
		return val, true
	case *Range:
		return *val, true
	}
	return Range{}, false
}
