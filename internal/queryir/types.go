package queryir

import (
	"github.com/roach88/datastore/internal/ir"
)

// Predicate is a filter condition in a plan.
//
// Sealed: only Compare and Group implement it.
type Predicate interface {
	predicateNode()
}

// Operand is the right-hand side of a comparison, or an element of a
// projected expression.
//
// Sealed: only Literal, List, Range, ColumnRef and Expression implement it.
type Operand interface {
	operandNode()
}

// Op is a comparison operator.
type Op string

const (
	OpEq         Op = "="
	OpNotEq      Op = "!="
	OpLt         Op = "<"
	OpLte        Op = "<="
	OpGt         Op = ">"
	OpGte        Op = ">="
	OpLike       Op = "like"
	OpContains   Op = "contains"
	OpStartsWith Op = "starts with"
	OpIn         Op = "in"
	OpNotIn      Op = "not in"
	OpBetween    Op = "between"
)

// Ops lists every comparison operator in a stable order.
var Ops = []Op{
	OpEq, OpNotEq, OpLt, OpLte, OpGt, OpGte,
	OpLike, OpContains, OpStartsWith,
	OpIn, OpNotIn, OpBetween,
}

// Valid reports whether op is a known comparison operator.
func (op Op) Valid() bool {
	for _, known := range Ops {
		if op == known {
			return true
		}
	}
	return false
}

// Conjunction joins the members of a Group.
type Conjunction string

const (
	And Conjunction = "AND"
	Or  Conjunction = "OR"
)

// ArithOp is an arithmetic operator usable in projected expressions.
type ArithOp string

const (
	Add ArithOp = "+"
	Sub ArithOp = "-"
	Mul ArithOp = "*"
	Div ArithOp = "/"
	Mod ArithOp = "%"
)

// Valid reports whether op is a known arithmetic operator.
func (op ArithOp) Valid() bool {
	switch op {
	case Add, Sub, Mul, Div, Mod:
		return true
	}
	return false
}

// Column is a column bound to a table alias.
type Column struct {
	Table string // Alias of a TableRef in the plan
	Name  string // Physical column name
}

// String renders the column as alias.name for error messages.
func (c Column) String() string {
	if c.Table == "" {
		return c.Name
	}
	return c.Table + "." + c.Name
}

// Compare is a leaf predicate: <column> <op> <value>.
//
// Value shape depends on Op:
//   - OpIn, OpNotIn: List
//   - OpBetween: Range
//   - everything else: Literal or ColumnRef
type Compare struct {
	Column Column
	Op     Op
	Value  Operand
}

func (Compare) predicateNode() {}

// Group is a conjunction or disjunction of predicates, kept as authored.
type Group struct {
	Conjunction Conjunction
	Predicates  []Predicate
}

func (Group) predicateNode() {}

// Literal is a single scalar value.
type Literal struct {
	Value ir.IRValue
}

func (Literal) operandNode() {}

// List is the value set of an in / not in comparison.
type List struct {
	Values []ir.IRValue
}

func (List) operandNode() {}

// Range is the inclusive bounds of a between comparison.
type Range struct {
	Low  ir.IRValue
	High ir.IRValue
}

func (Range) operandNode() {}

// ColumnRef compares against, or computes from, another column.
type ColumnRef struct {
	Column Column
}

func (ColumnRef) operandNode() {}

// Expression is an arithmetic expression over literals, columns and
// nested expressions. Operands are folded left to right.
type Expression struct {
	Operator ArithOp
	Operands []Operand
}

func (Expression) operandNode() {}

// JoinType selects the join semantics.
type JoinType string

const (
	InnerJoin JoinType = "inner"
	LeftJoin  JoinType = "left"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// TableRef is a physical table addressed by an alias inside the plan.
type TableRef struct {
	Alias    string // Name used by column references
	Name     string // Physical table name
	Resource string // Resource identifier the table backs
}

// Projection is one output column.
//
// Value is a ColumnRef or an Expression. Alias is the output key; for a
// plain column it defaults to the column name.
type Projection struct {
	Value Operand
	Alias string
}

// Key returns the output key of the projection.
func (p Projection) Key() string {
	if p.Alias != "" {
		return p.Alias
	}
	switch v := p.Value.(type) {
	case ColumnRef:
		return v.Column.Name
	case *ColumnRef:
		return v.Column.Name
	}
	return ""
}

// Join adds a table to the plan.
type Join struct {
	Type  JoinType
	Table TableRef
	On    Predicate
}

// Sort orders results by one column.
type Sort struct {
	Column    Column
	Direction Direction
}

// Plan is a fully bound, executable query.
//
// Semantics:
//
//	SELECT <Columns> FROM <From> [<Joins>...] WHERE <Filter>
//	ORDER BY <Sorts>, <From>.<RowID> LIMIT <Limit> OFFSET <Offset>
//
// RowID, when set, is appended as a final ORDER BY tiebreaker so paging is
// deterministic.
type Plan struct {
	From    TableRef
	Joins   []Join
	Columns []Projection
	Filter  Predicate // nil = no filter
	Sorts   []Sort
	Limit   int
	Offset  int
	RowID   string
}

// Tables returns the plan's tables in declaration order.
func (p Plan) Tables() []TableRef {
	tables := make([]TableRef, 0, 1+len(p.Joins))
	tables = append(tables, p.From)
	for _, j := range p.Joins {
		tables = append(tables, j.Table)
	}
	return tables
}

// Keys returns the output keys of the projection in order.
func (p Plan) Keys() []string {
	keys := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		keys[i] = c.Key()
	}
	return keys
}
