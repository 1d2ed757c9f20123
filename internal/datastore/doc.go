// Package datastore is the storage layer behind imported resources.
//
// Each resource is imported into its own physical table, named
// "datastore_" + md5(identifier), whose first column is the synthetic row
// id record_number. SQLTable implements the Table capability the query
// and post-import paths depend on; Store owns the database handle and
// persists post-import results.
//
// Three engines are supported through querysql dialects: SQLite (the
// default, via mattn/go-sqlite3), MySQL and PostgreSQL. The SQLite handle
// is limited to one open connection, as SQLite allows a single writer.
package datastore
