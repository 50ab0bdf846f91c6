package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"idsearch/pkg/domain"
)

func createParticipant(t *testing.T, store *Store) {
	t.Helper()
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		center, err := tx.CreateCenter(domain.Center{Name: "Cedars", Investigator: "Smith"})
		if err != nil {
			return err
		}
		if _, err := tx.CreateParticipant(domain.Participant{ConsortiumID: "A000001-000001", CenterID: center.ID}); err != nil {
			return err
		}
		_, err = tx.CreateAlias(domain.Alias{Alias: "A000001-000002", ConsortiumID: "A000001-000001"})
		return err
	})
	if err != nil {
		t.Fatalf("create participant: %v", err)
	}
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	store, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	createParticipant(t, store)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file missing: %v", err)
	}
	if store.Path() != path {
		t.Fatalf("unexpected path %s", store.Path())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reloaded, err := NewStore(path, domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	t.Cleanup(func() { _ = reloaded.Close() })
	if got := len(reloaded.ListParticipants()); got != 1 {
		t.Fatalf("expected 1 participant, got %d", got)
	}
	_ = reloaded.View(context.Background(), func(view domain.TransactionView) error {
		if _, ok := view.FindAlias("A000001-000002"); !ok {
			t.Fatalf("expected alias after reload")
		}
		return nil
	})
}

func TestSQLiteStoreAppliesSchema(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), nil)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	for _, table := range []string{"center", "registered_participant", "alias", "local_dna_sample", "state"} {
		var name string
		if err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name); err != nil {
			t.Fatalf("lookup %s table: %v", table, err)
		}
	}
}

func TestSQLiteStoreSkipsPersistOnFailure(t *testing.T) {
	store, err := NewStore(":memory:", nil)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	boom := errors.New("boom")
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, _ = tx.CreateCenter(domain.Center{Name: "x", Investigator: "y"})
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	var count int
	if err := store.DB().QueryRow("SELECT COUNT(*) FROM state").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no snapshot rows, got %d", count)
	}
}

func TestSQLiteStorePersistErrorSurfaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	_ = store.DB().Close()
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateCenter(domain.Center{Name: "x", Investigator: "y"})
		return e
	}); err == nil {
		t.Fatalf("expected persist error on closed db")
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		if got := len(view.ListCenters()); got != 0 {
			t.Fatalf("failed persist left %d centers visible", got)
		}
		return nil
	})

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	_ = reopened.View(context.Background(), func(view domain.TransactionView) error {
		if got := len(view.ListCenters()); got != 0 {
			t.Fatalf("failed persist reached disk with %d centers", got)
		}
		return nil
	})
}
