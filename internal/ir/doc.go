// Package ir provides the shared value and record types of the datastore.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import ir; ir imports nothing internal, so it stays the
// foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Literal values in query documents are sealed IRValue types
//   - Canonical JSON (RFC 8785 ordering, NFC strings) for every content hash
//   - All JSON tags use snake_case
package ir
