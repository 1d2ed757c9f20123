// Package query executes query documents against datastore tables.
//
// A request flows through four steps:
//
//	raw JSON → querydoc.Parse → translate.Translate → Table.Query/Count → Response
//
// The storage map is built per request from a TableProvider and discarded
// afterwards. Joins run inside the database engine of the first resource's
// table, so a single Query call returns merged, sorted and paged rows.
//
// Errors returned by Run are *translate.QueryError values: validation codes
// for problems with the document, CodeStorage for engine failures. Nothing
// is retried.
package query
