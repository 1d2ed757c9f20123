package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/queryir"
)

// SQLCompiler compiles a query plan to parameterized SQL for one dialect.
//
// Every literal value is bound as a parameter, never interpolated. Every
// SELECT ends with the plan's row id as an ORDER BY tiebreaker so paging is
// deterministic.
type SQLCompiler struct {
	Dialect Dialect
}

// NewSQLCompiler creates a compiler for d.
func NewSQLCompiler(d Dialect) *SQLCompiler {
	return &SQLCompiler{Dialect: d}
}

// builder accumulates parameters in the order their placeholders appear.
type builder struct {
	d      Dialect
	params []any
}

func (b *builder) bind(v ir.IRValue) (string, error) {
	native, err := ir.ToNative(v)
	if err != nil {
		return "", err
	}
	b.params = append(b.params, native)
	return b.d.Placeholder(len(b.params)), nil
}

func (b *builder) bindNative(v any) string {
	b.params = append(b.params, v)
	return b.d.Placeholder(len(b.params))
}

func (b *builder) column(c queryir.Column) string {
	if c.Table == "" {
		return b.d.QuoteIdent(c.Name)
	}
	return b.d.QuoteIdent(c.Table) + "." + b.d.QuoteIdent(c.Name)
}

// Compile converts a plan to a SELECT statement.
// Returns (sql, params, error).
func (c *SQLCompiler) Compile(plan queryir.Plan) (string, []any, error) {
	if c.Dialect == nil {
		return "", nil, fmt.Errorf("compiler has no dialect")
	}
	if result := queryir.Validate(plan); !result.Valid {
		return "", nil, fmt.Errorf("invalid plan: %s", strings.Join(result.Errors, "; "))
	}

	b := &builder{d: c.Dialect}

	selectClause, err := c.compileColumns(b, plan.Columns)
	if err != nil {
		return "", nil, fmt.Errorf("compile columns: %w", err)
	}

	fromClause, err := c.compileFrom(b, plan)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectClause)
	sb.WriteString(" FROM ")
	sb.WriteString(fromClause)
	sb.WriteString(c.compileOrderBy(b, plan))
	sb.WriteString(" LIMIT ")
	sb.WriteString(strconv.Itoa(plan.Limit))
	if plan.Offset > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(plan.Offset))
	}

	return sb.String(), b.params, nil
}

// CompileCount converts a plan to a COUNT(*) statement over the same
// tables and filter. Columns, sorts and paging are ignored.
func (c *SQLCompiler) CompileCount(plan queryir.Plan) (string, []any, error) {
	if c.Dialect == nil {
		return "", nil, fmt.Errorf("compiler has no dialect")
	}
	if result := queryir.Validate(plan); !result.Valid {
		return "", nil, fmt.Errorf("invalid plan: %s", strings.Join(result.Errors, "; "))
	}

	b := &builder{d: c.Dialect}
	fromClause, err := c.compileFrom(b, plan)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + fromClause, b.params, nil
}

// compileFrom renders FROM, JOIN and WHERE.
func (c *SQLCompiler) compileFrom(b *builder, plan queryir.Plan) (string, error) {
	var sb strings.Builder
	sb.WriteString(c.tableRef(plan.From))

	for i, j := range plan.Joins {
		onSQL, err := c.compilePredicate(b, j.On)
		if err != nil {
			return "", fmt.Errorf("compile join[%d] ON: %w", i, err)
		}
		if j.Type == queryir.LeftJoin {
			sb.WriteString(" LEFT JOIN ")
		} else {
			sb.WriteString(" INNER JOIN ")
		}
		sb.WriteString(c.tableRef(j.Table))
		sb.WriteString(" ON ")
		sb.WriteString(onSQL)
	}

	if plan.Filter != nil {
		whereSQL, err := c.compilePredicate(b, plan.Filter)
		if err != nil {
			return "", fmt.Errorf("compile filter: %w", err)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(whereSQL)
	}
	return sb.String(), nil
}

func (c *SQLCompiler) tableRef(t queryir.TableRef) string {
	return c.Dialect.QuoteIdent(t.Name) + " AS " + c.Dialect.QuoteIdent(t.Alias)
}

// compileColumns renders the SELECT list. A plain column whose output key
// is its own name gets no alias.
func (c *SQLCompiler) compileColumns(b *builder, cols []queryir.Projection) (string, error) {
	parts := make([]string, 0, len(cols))
	for i, p := range cols {
		var expr string
		plain := false
		switch val := p.Value.(type) {
		case queryir.ColumnRef:
			expr = b.column(val.Column)
			plain = p.Key() == val.Column.Name
		case *queryir.ColumnRef:
			expr = b.column(val.Column)
			plain = p.Key() == val.Column.Name
		case queryir.Expression:
			sql, err := c.compileExpression(b, val)
			if err != nil {
				return "", fmt.Errorf("column[%d]: %w", i, err)
			}
			expr = sql
		case *queryir.Expression:
			sql, err := c.compileExpression(b, *val)
			if err != nil {
				return "", fmt.Errorf("column[%d]: %w", i, err)
			}
			expr = sql
		default:
			return "", fmt.Errorf("column[%d]: unsupported projection %T", i, p.Value)
		}

		if plain {
			parts = append(parts, expr)
		} else {
			parts = append(parts, expr+" AS "+c.Dialect.QuoteIdent(p.Key()))
		}
	}
	return strings.Join(parts, ", "), nil
}

// compileExpression folds operands left to right: (a + b + c).
func (c *SQLCompiler) compileExpression(b *builder, e queryir.Expression) (string, error) {
	parts := make([]string, 0, len(e.Operands))
	for _, op := range e.Operands {
		sql, err := c.compileOperand(b, op)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return "(" + strings.Join(parts, " "+string(e.Operator)+" ") + ")", nil
}

func (c *SQLCompiler) compileOperand(b *builder, o queryir.Operand) (string, error) {
	switch val := o.(type) {
	case queryir.Literal:
		return b.bind(val.Value)
	case *queryir.Literal:
		return b.bind(val.Value)
	case queryir.ColumnRef:
		return b.column(val.Column), nil
	case *queryir.ColumnRef:
		return b.column(val.Column), nil
	case queryir.Expression:
		return c.compileExpression(b, val)
	case *queryir.Expression:
		return c.compileExpression(b, *val)
	default:
		return "", fmt.Errorf("unsupported operand type: %T", o)
	}
}

// compilePredicate compiles a predicate to a WHERE/ON fragment.
// Values are never interpolated.
func (c *SQLCompiler) compilePredicate(b *builder, p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Compare:
		return c.compileCompare(b, pred)
	case *queryir.Compare:
		return c.compileCompare(b, *pred)
	case queryir.Group:
		return c.compileGroup(b, pred)
	case *queryir.Group:
		return c.compileGroup(b, *pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileGroup always parenthesizes so authored nesting survives.
func (c *SQLCompiler) compileGroup(b *builder, g queryir.Group) (string, error) {
	parts := make([]string, 0, len(g.Predicates))
	for _, sub := range g.Predicates {
		sql, err := c.compilePredicate(b, sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return "(" + strings.Join(parts, " "+string(g.Conjunction)+" ") + ")", nil
}

func (c *SQLCompiler) compileCompare(b *builder, cmp queryir.Compare) (string, error) {
	column := b.column(cmp.Column)

	switch cmp.Op {
	case queryir.OpIn, queryir.OpNotIn:
		var values []ir.IRValue
		switch list := cmp.Value.(type) {
		case queryir.List:
			values = list.Values
		case *queryir.List:
			values = list.Values
		}
		marks := make([]string, len(values))
		for i, v := range values {
			mark, err := b.bind(v)
			if err != nil {
				return "", fmt.Errorf("column %s: %w", cmp.Column, err)
			}
			marks[i] = mark
		}
		keyword := "IN"
		if cmp.Op == queryir.OpNotIn {
			keyword = "NOT IN"
		}
		return fmt.Sprintf("%s %s (%s)", column, keyword, strings.Join(marks, ", ")), nil

	case queryir.OpBetween:
		var r queryir.Range
		switch val := cmp.Value.(type) {
		case queryir.Range:
			r = val
		case *queryir.Range:
			r = *val
		}
		low, err := b.bind(r.Low)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", cmp.Column, err)
		}
		high, err := b.bind(r.High)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", cmp.Column, err)
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", column, low, high), nil

	case queryir.OpContains, queryir.OpStartsWith:
		lit, ok := literalString(cmp.Value)
		if !ok {
			return "", fmt.Errorf("column %s: operator %q needs a literal", cmp.Column, cmp.Op)
		}
		pattern := EscapeLike(lit) + "%"
		if cmp.Op == queryir.OpContains {
			pattern = "%" + pattern
		}
		mark := b.bindNative(pattern)
		return fmt.Sprintf("%s LIKE %s ESCAPE %s", column, mark, c.Dialect.LikeEscape()), nil

	case queryir.OpLike:
		rhs, err := c.compileOperand(b, cmp.Value)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", cmp.Column, err)
		}
		return fmt.Sprintf("%s LIKE %s", column, rhs), nil

	default:
		rhs, err := c.compileOperand(b, cmp.Value)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", cmp.Column, err)
		}
		op := string(cmp.Op)
		if cmp.Op == queryir.OpNotEq {
			op = "<>"
		}
		return fmt.Sprintf("%s %s %s", column, op, rhs), nil
	}
}

// compileOrderBy renders the caller's sorts followed by the row id
// tiebreaker, unless the caller already sorts on it.
func (c *SQLCompiler) compileOrderBy(b *builder, plan queryir.Plan) string {
	parts := make([]string, 0, len(plan.Sorts)+1)
	rowIDSorted := false
	for _, s := range plan.Sorts {
		dir := "ASC"
		if s.Direction == queryir.Desc {
			dir = "DESC"
		}
		parts = append(parts, b.column(s.Column)+" "+dir)
		if s.Column.Table == plan.From.Alias && s.Column.Name == plan.RowID {
			rowIDSorted = true
		}
	}
	if plan.RowID != "" && !rowIDSorted {
		parts = append(parts, b.column(queryir.Column{Table: plan.From.Alias, Name: plan.RowID})+" ASC")
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func literalString(o queryir.Operand) (string, bool) {
	var v ir.IRValue
	switch val := o.(type) {
	case queryir.Literal:
		v = val.Value
	case *queryir.Literal:
		v = val.Value
	default:
		return "", false
	}
	native, err := ir.ToNative(v)
	if err != nil || native == nil {
		return "", false
	}
	return fmt.Sprint(native), true
}
