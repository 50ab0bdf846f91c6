package sqlbundle

import (
	"slices"
	"strings"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	stmts := SplitStatements(SQLite())
	if len(stmts) == 0 {
		t.Fatal("expected sqlite DDL to produce statements")
	}
	for _, stmt := range stmts {
		if strings.HasPrefix(strings.TrimSpace(stmt), "--") {
			t.Fatalf("statement unexpectedly starts with comment: %q", stmt)
		}
		if !strings.HasSuffix(strings.TrimSpace(stmt), ";") {
			t.Fatalf("statement missing semicolon terminator: %q", stmt)
		}
	}
}

func TestSplitStatementsKeepsUnterminatedTail(t *testing.T) {
	stmts := SplitStatements("-- header\nCREATE TABLE a (id INT);\n\nSELECT 1")
	if len(stmts) != 2 || stmts[1] != "SELECT 1" {
		t.Fatalf("unexpected statements %q", stmts)
	}
}

func TestBundlesDeclareRegistryTables(t *testing.T) {
	want := []string{"center", "registered_participant", "alias", "rutgers_lcl", "dna_sample", "serum_sample", "local_dna_sample", "state"}
	for name, ddl := range map[string]string{"sqlite": SQLite(), "postgres": Postgres()} {
		got := Tables(ddl)
		if !slices.Equal(got, want) {
			t.Fatalf("%s: unexpected tables %v", name, got)
		}
		if len(SplitStatements(ddl)) != len(want) {
			t.Fatalf("%s: expected one statement per table", name)
		}
	}
}

func TestPostgresBundleCarriesConstraints(t *testing.T) {
	for _, c := range []string{"fam_ind_idx", "pub_id_idx", "local_id_idx", "ped_ind_idx", "affect_diag", "affect_ctrl"} {
		if !strings.Contains(Postgres(), c) {
			t.Fatalf("expected constraint %s", c)
		}
	}
}
