// Package querydoc parses and validates JSON query documents.
//
// A document is checked against an embedded JSON Schema before it is
// decoded, so a structurally invalid request never reaches the translator.
// After decoding, Parse applies defaults and normalizes operator spellings;
// the resulting Document marshals back to the same JSON shape for echoing.
package querydoc
