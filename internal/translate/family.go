package translate

import (
	"strings"

	"github.com/roach88/datastore/internal/queryir"
)

// Family groups column types by the operators they support.
type Family string

const (
	FamilyText    Family = "text"
	FamilyNumeric Family = "numeric"
	FamilyDate    Family = "date"
	FamilyBoolean Family = "boolean"
)

// FamilyOf classifies an engine column type. Unknown types are text.
func FamilyOf(sqlType string) Family {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	switch {
	case strings.HasPrefix(t, "BOOL"), t == "TINYINT(1)":
		return FamilyBoolean
	case strings.Contains(t, "DATE"), strings.Contains(t, "TIME"), strings.HasPrefix(t, "YEAR"):
		return FamilyDate
	case strings.Contains(t, "INT"), strings.Contains(t, "DEC"), strings.Contains(t, "NUMERIC"),
		strings.Contains(t, "REAL"), strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"),
		strings.Contains(t, "SERIAL"):
		return FamilyNumeric
	default:
		return FamilyText
	}
}

var familyOps = map[Family]map[queryir.Op]bool{
	FamilyText: opSet(queryir.Ops...),
	FamilyNumeric: opSet(
		queryir.OpEq, queryir.OpNotEq, queryir.OpLt, queryir.OpLte, queryir.OpGt, queryir.OpGte,
		queryir.OpIn, queryir.OpNotIn, queryir.OpBetween,
	),
	FamilyDate: opSet(
		queryir.OpEq, queryir.OpNotEq, queryir.OpLt, queryir.OpLte, queryir.OpGt, queryir.OpGte,
		queryir.OpIn, queryir.OpNotIn, queryir.OpBetween,
	),
	FamilyBoolean: opSet(queryir.OpEq, queryir.OpNotEq, queryir.OpIn, queryir.OpNotIn),
}

func opSet(ops ...queryir.Op) map[queryir.Op]bool {
	m := make(map[queryir.Op]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

// Supports reports whether op applies to columns of family f.
func (f Family) Supports(op queryir.Op) bool {
	return familyOps[f][op]
}
