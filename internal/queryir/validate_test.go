package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datastore/internal/ir"
)

func col(table, name string) Column {
	return Column{Table: table, Name: name}
}

func basePlan() Plan {
	return Plan{
		From: TableRef{Alias: "t", Name: "datastore_abc", Resource: "abc"},
		Columns: []Projection{
			{Value: ColumnRef{Column: col("t", "a")}},
			{Value: ColumnRef{Column: col("t", "b")}},
		},
		Limit: 500,
		RowID: "record_number",
	}
}

func TestValidate_SimplePlan(t *testing.T) {
	plan := basePlan()
	plan.Filter = Compare{Column: col("t", "a"), Op: OpEq, Value: Literal{Value: ir.IRString("x")}}

	result := Validate(plan)

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_PointerForms(t *testing.T) {
	plan := basePlan()
	plan.Filter = &Group{Conjunction: Or, Predicates: []Predicate{
		&Compare{Column: col("t", "a"), Op: OpIn, Value: &List{Values: []ir.IRValue{ir.IRString("x")}}},
		&Compare{Column: col("t", "b"), Op: OpBetween, Value: &Range{Low: ir.IRInt(1), High: ir.IRInt(3)}},
	}}

	result := Validate(plan)

	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidate_UnknownAlias(t *testing.T) {
	plan := basePlan()
	plan.Columns = append(plan.Columns, Projection{Value: ColumnRef{Column: col("x", "c")}})

	result := Validate(plan)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `unknown table alias "x"`)
}

func TestValidate_DuplicateAlias(t *testing.T) {
	plan := basePlan()
	plan.Joins = []Join{{
		Type:  InnerJoin,
		Table: TableRef{Alias: "t", Name: "datastore_def"},
		On:    Compare{Column: col("t", "a"), Op: OpEq, Value: ColumnRef{Column: col("t", "b")}},
	}}

	result := Validate(plan)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, `duplicate table alias "t"`)
}

func TestValidate_JoinWithoutOn(t *testing.T) {
	plan := basePlan()
	plan.Joins = []Join{{Type: LeftJoin, Table: TableRef{Alias: "j", Name: "datastore_def"}}}

	result := Validate(plan)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "join[0]: missing ON predicate")
}

func TestValidate_UnknownJoinType(t *testing.T) {
	plan := basePlan()
	plan.Joins = []Join{{
		Type:  JoinType("full"),
		Table: TableRef{Alias: "j", Name: "datastore_def"},
		On:    Compare{Column: col("t", "a"), Op: OpEq, Value: ColumnRef{Column: col("j", "a")}},
	}}

	result := Validate(plan)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, `join[0]: unknown join type "full"`)
}

func TestValidate_ValueShapes(t *testing.T) {
	tests := []struct {
		name    string
		pred    Predicate
		wantErr string
	}{
		{
			name:    "in without list",
			pred:    Compare{Column: col("t", "a"), Op: OpIn, Value: Literal{Value: ir.IRString("x")}},
			wantErr: "needs a list",
		},
		{
			name:    "empty in list",
			pred:    Compare{Column: col("t", "a"), Op: OpNotIn, Value: List{}},
			wantErr: "at least one value",
		},
		{
			name:    "between without range",
			pred:    Compare{Column: col("t", "a"), Op: OpBetween, Value: Literal{Value: ir.IRInt(1)}},
			wantErr: "needs a range",
		},
		{
			name:    "equals with list",
			pred:    Compare{Column: col("t", "a"), Op: OpEq, Value: List{Values: []ir.IRValue{ir.IRInt(1)}}},
			wantErr: "needs a scalar or column",
		},
		{
			name:    "non-scalar literal",
			pred:    Compare{Column: col("t", "a"), Op: OpLt, Value: Literal{Value: ir.IRArray{}}},
			wantErr: "is not a scalar",
		},
		{
			name:    "unknown operator",
			pred:    Compare{Column: col("t", "a"), Op: Op("~"), Value: Literal{Value: ir.IRInt(1)}},
			wantErr: "unknown operator",
		},
		{
			name:    "empty group",
			pred:    Group{Conjunction: And},
			wantErr: "group has no predicates",
		},
		{
			name: "bad conjunction",
			pred: Group{Conjunction: Conjunction("XOR"), Predicates: []Predicate{
				Compare{Column: col("t", "a"), Op: OpEq, Value: Literal{Value: ir.IRInt(1)}},
			}},
			wantErr: "unknown conjunction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := basePlan()
			plan.Filter = tt.pred

			result := Validate(plan)

			assert.False(t, result.Valid)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}

func TestValidate_ExpressionRequiresAlias(t *testing.T) {
	plan := basePlan()
	plan.Columns = append(plan.Columns, Projection{
		Value: Expression{Operator: Mul, Operands: []Operand{
			ColumnRef{Column: col("t", "a")},
			Literal{Value: ir.IRInt(2)},
		}},
	})

	result := Validate(plan)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, "column[2]: expression requires an alias")
}

func TestValidate_NestedExpression(t *testing.T) {
	plan := basePlan()
	plan.Columns = append(plan.Columns, Projection{
		Alias: "calc",
		Value: Expression{Operator: Add, Operands: []Operand{
			ColumnRef{Column: col("t", "a")},
			Expression{Operator: Div, Operands: []Operand{
				ColumnRef{Column: col("t", "b")},
				Literal{Value: ir.IRString("nope")},
			}},
		}},
	})

	result := Validate(plan)

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "is not numeric")
}

func TestValidate_DuplicateOutputKey(t *testing.T) {
	plan := basePlan()
	plan.Columns = append(plan.Columns, Projection{Value: ColumnRef{Column: col("t", "c")}, Alias: "a"})

	result := Validate(plan)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Errors, `column[2]: duplicate output key "a"`)
}

func TestValidate_SortAndPaging(t *testing.T) {
	plan := basePlan()
	plan.Sorts = []Sort{{Column: col("t", "a"), Direction: Direction("up")}}
	plan.Limit = -1
	plan.Offset = -2

	result := Validate(plan)

	assert.False(t, result.Valid)
	assert.Equal(t, []string{
		`sort[0]: unknown direction "up"`,
		"negative limit -1",
		"negative offset -2",
	}, result.Errors)
}

func TestValidate_NoColumns(t *testing.T) {
	plan := basePlan()
	plan.Columns = nil

	result := Validate(plan)

	assert.False(t, result.Valid)
	assert.Equal(t, []string{"plan projects no columns"}, result.Errors)
}
