// Package queryir provides the query plan intermediate representation (IR)
// produced by the translator and consumed by SQL backends.
//
// ARCHITECTURE:
//
// The plan sits between the JSON query document and the storage engines:
//
//	[query document] → [translate] → [Plan] → [querysql: sqlite | mysql | postgres]
//
// A Plan is fully bound: every column reference names a table alias that
// appears in the plan, every literal is an ir.IRValue, and every comparison
// operator has already been checked against the column's type family.
// Backends never consult schemas again.
//
// SEALED INTERFACES:
//
// Predicate and Operand are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch p := pred.(type) {
//	case Compare, *Compare:
//	    // column <op> operand
//	case Group, *Group:
//	    // (p1 AND p2) or (p1 OR p2)
//	}
//
// GROUPING:
//
// Groups keep the nesting the caller authored. A Group is never flattened
// into its parent, even when both use the same conjunction, so a backend
// always emits the parentheses the document implied.
//
// LIFECYCLE:
//
// A Plan is created per request and discarded after execution. Nothing in
// this package holds state between requests.
package queryir
