// Package sqlbundle exposes the registry DDL bundles for the SQL backends.
package sqlbundle

import (
	"bufio"
	"regexp"
	"strings"

	sqldocs "idsearch/docs/schema/sql"
)

// SQLite returns the SQLite DDL for the registry schema.
func SQLite() string {
	return sqldocs.SQLite
}

// Postgres returns the Postgres DDL for the registry schema.
func Postgres() string {
	return sqldocs.Postgres
}

var createTable = regexp.MustCompile(`(?i)CREATE TABLE IF NOT EXISTS\s+([a-z_]+)`)

// Tables lists the table names declared by a DDL script in declaration order.
func Tables(ddl string) []string {
	var out []string
	for _, m := range createTable.FindAllStringSubmatch(ddl, -1) {
		out = append(out, strings.ToLower(m[1]))
	}
	return out
}

// SplitStatements splits a semicolon-terminated DDL script into executable statements.
// It drops blank lines and single-line comments that start with "--".
func SplitStatements(ddl string) []string {
	scanner := bufio.NewScanner(strings.NewReader(ddl))
	var stmts []string
	var current strings.Builder

	flush := func() {
		stmt := strings.TrimSpace(current.String())
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
		if strings.HasSuffix(trimmed, ";") {
			flush()
		}
	}

	if tail := strings.TrimSpace(current.String()); tail != "" {
		stmts = append(stmts, tail)
	}

	return stmts
}
