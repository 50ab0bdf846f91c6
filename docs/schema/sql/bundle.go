// Package sqldocs exposes the registry SQL schema bundles from the docs tree.
//
// The relational tables document the registry layout and are created on
// startup, but the stores only read and write the state table, which holds
// one JSON payload per bucket. Their unique and check constraints are not
// exercised by the stores; the rules engine enforces the same constraints
// when a transaction commits.
package sqldocs

import _ "embed"

// SQLite contains the registry SQLite DDL.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the registry Postgres DDL.
//
//go:embed postgres.sql
var Postgres string
