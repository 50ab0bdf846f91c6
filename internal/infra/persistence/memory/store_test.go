package memory

import (
	"context"
	"errors"
	"testing"

	"idsearch/pkg/domain"
)

func seed(t *testing.T, store *Store) domain.Center {
	t.Helper()
	var center domain.Center
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		center, err = tx.CreateCenter(domain.Center{Name: "Cedars", Investigator: "Smith"})
		if err != nil {
			return err
		}
		local := "L-1"
		if _, err := tx.CreateParticipant(domain.Participant{
			ConsortiumID: "A000001-000001",
			CenterID:     center.ID,
			LocalID:      &local,
			PedInd:       &domain.PedigreeIndividual{Pedigree: "7", Individual: 12},
		}); err != nil {
			return err
		}
		if _, err := tx.CreateAlias(domain.Alias{Alias: "A000001-000099", ConsortiumID: "A000001-000001"}); err != nil {
			return err
		}
		if _, err := tx.CreateLCL(domain.RutgersLCL{NIDDKNo: 123456, ConsortiumID: "A000001-000001"}); err != nil {
			return err
		}
		if _, err := tx.CreateDNASample(domain.DNASample{ID: "DNA-1", ConsortiumID: "A000001-000001"}); err != nil {
			return err
		}
		if _, err := tx.CreateLocalDNASample(domain.LocalDNASample{ID: "LD-1", CenterID: center.ID, ConsortiumID: "A000001-000001"}); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return center
}

func TestStoreRunInTransactionAndSnapshots(t *testing.T) {
	store := NewStore(nil)
	center := seed(t, store)
	if center.ID == "" {
		t.Fatalf("expected generated center ID")
	}
	if len(store.ListParticipants()) != 1 {
		t.Fatalf("expected persisted participant")
	}
	snapshot := store.ExportState()
	store.ImportState(Snapshot{})
	if len(store.ListParticipants()) != 0 {
		t.Fatalf("expected cleared state")
	}
	store.ImportState(snapshot)
	p, ok := store.GetParticipant("A000001-000001")
	if !ok || p.CreatedAt.IsZero() {
		t.Fatalf("expected restored participant with timestamps, got %+v", p)
	}
	if store.RulesEngine() == nil || store.NowFunc() == nil {
		t.Fatalf("expected engine and clock")
	}
}

func TestStoreRollsBackOnError(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)
	boom := errors.New("boom")
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.DeleteAlias("A000001-000099"); err != nil {
			return err
		}
		if _, err := tx.CreateParticipant(domain.Participant{ConsortiumID: "A000001-000002"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	err = store.View(context.Background(), func(view domain.TransactionView) error {
		if _, ok := view.FindAlias("A000001-000099"); !ok {
			t.Fatalf("alias delete leaked out of failed transaction")
		}
		if _, ok := view.FindParticipant("A000001-000002"); ok {
			t.Fatalf("participant create leaked out of failed transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}
}

func TestStoreRuleViolation(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	store.RulesEngine().Register(blockingRule{})
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		_, e := tx.CreateCenter(domain.Center{Name: "Fail"})
		return e
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected rule violation error, got %v", err)
	}
	if len(store.ExportState().Centers) != 0 {
		t.Fatalf("blocked transaction must not commit")
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "block" }

func (blockingRule) Evaluate(ctx context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	res.Merge(domain.Result{Violations: []domain.Violation{{Rule: "block", Severity: domain.SeverityBlock}}})
	return res, nil
}

func TestDeleteParticipantRequiresEmptyHoldings(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteParticipant("A000001-000001")
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict while holdings remain, got %v", err)
	}
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		return tx.DeleteParticipant("missing")
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRehomeMovesOwnership(t *testing.T) {
	store := NewStore(nil)
	center := seed(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateParticipant(domain.Participant{ConsortiumID: "A000001-000002", CenterID: center.ID}); err != nil {
			return err
		}
		holdings := tx.Snapshot().Holdings("A000001-000001")
		for _, a := range holdings.Aliases {
			if err := tx.Rehome(domain.EntityAlias, a.Alias, "A000001-000002"); err != nil {
				return err
			}
		}
		for _, l := range holdings.LCLs {
			if err := tx.Rehome(domain.EntityLCL, lclKey(l.NIDDKNo), "A000001-000002"); err != nil {
				return err
			}
		}
		for _, d := range holdings.DNASamples {
			if err := tx.Rehome(domain.EntityDNASample, d.ID, "A000001-000002"); err != nil {
				return err
			}
		}
		for _, d := range holdings.LocalDNASamples {
			if err := tx.Rehome(domain.EntityLocalDNASample, d.Key(), "A000001-000002"); err != nil {
				return err
			}
		}
		return tx.DeleteParticipant("A000001-000001")
	})
	if err != nil {
		t.Fatalf("rehome: %v", err)
	}
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		h := view.Holdings("A000001-000002")
		if len(h.Aliases) != 1 || h.Count() != 3 {
			t.Fatalf("unexpected holdings after rehome: %+v", h)
		}
		return nil
	})
}

func TestRehomeErrors(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if err := tx.Rehome(domain.EntityDNASample, "DNA-1", "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected missing participant, got %v", err)
		}
		if err := tx.Rehome(domain.EntitySerumSample, "nope", "A000001-000001"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected missing sample, got %v", err)
		}
		if err := tx.Rehome(domain.EntityCenter, "x", "A000001-000001"); err == nil {
			t.Fatalf("expected unsupported entity error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestCreateDuplicatesConflict(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateParticipant(domain.Participant{ConsortiumID: "A000001-000001"}); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected participant conflict, got %v", err)
		}
		if _, err := tx.CreateParticipant(domain.Participant{}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected missing ID validation, got %v", err)
		}
		if _, err := tx.CreateAlias(domain.Alias{Alias: "A000001-000099"}); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected alias conflict, got %v", err)
		}
		if _, err := tx.CreateLCL(domain.RutgersLCL{NIDDKNo: 123456}); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected lcl conflict, got %v", err)
		}
		if _, err := tx.CreateDNASample(domain.DNASample{ID: "DNA-1"}); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected dna conflict, got %v", err)
		}
		if _, err := tx.CreateSerumSample(domain.SerumSample{ID: "S-1"}); err != nil {
			t.Fatalf("serum: %v", err)
		}
		if _, err := tx.CreateSerumSample(domain.SerumSample{ID: "S-1"}); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected serum conflict, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestUpdateParticipantKeepsIdentity(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.UpdateParticipant("missing", func(*domain.Participant) error { return nil }); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if _, err := tx.UpdateParticipant("A000001-000001", func(*domain.Participant) error { return errors.New("boom") }); err == nil {
			t.Fatalf("expected mutator error")
		}
		updated, err := tx.UpdateParticipant("A000001-000001", func(p *domain.Participant) error {
			p.ConsortiumID = "Z999999-999999"
			p.Withdrawn = true
			return nil
		})
		if err != nil {
			return err
		}
		if updated.ConsortiumID != "A000001-000001" || !updated.Withdrawn {
			t.Fatalf("unexpected update result %+v", updated)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
}

func TestViewReturnsClones(t *testing.T) {
	store := NewStore(nil)
	seed(t, store)
	_ = store.View(context.Background(), func(view domain.TransactionView) error {
		p, _ := view.FindParticipant("A000001-000001")
		*p.LocalID = "mutated"
		return nil
	})
	p, _ := store.GetParticipant("A000001-000001")
	if *p.LocalID != "L-1" {
		t.Fatalf("view leaked a shared pointer")
	}
}

func TestRunInTransactionWithCommit(t *testing.T) {
	store := NewStore(nil)
	createCenter := func(tx domain.Transaction) error {
		_, err := tx.CreateCenter(domain.Center{Name: "Cedars", Investigator: "Smith"})
		return err
	}
	visible := func() int {
		var n int
		_ = store.View(context.Background(), func(view domain.TransactionView) error {
			n = len(view.ListCenters())
			return nil
		})
		return n
	}

	diskFull := errors.New("disk full")
	var seen Snapshot
	if _, err := store.RunInTransactionWithCommit(context.Background(), createCenter, func(_ context.Context, s Snapshot) error {
		seen = s
		return diskFull
	}); !errors.Is(err, diskFull) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if len(seen.Centers) != 1 {
		t.Fatalf("commit hook should see the pending center, got %+v", seen.Centers)
	}
	if got := visible(); got != 0 {
		t.Fatalf("failed commit left %d centers visible", got)
	}

	calls := 0
	hook := func(context.Context, Snapshot) error { calls++; return nil }
	boom := errors.New("boom")
	if _, err := store.RunInTransactionWithCommit(context.Background(), func(domain.Transaction) error { return boom }, hook); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("hook ran for a failed transaction")
	}
	if _, err := store.RunInTransactionWithCommit(context.Background(), createCenter, hook); err != nil {
		t.Fatalf("RunInTransactionWithCommit: %v", err)
	}
	if calls != 1 || visible() != 1 {
		t.Fatalf("expected one hook call and one center, got %d calls and %d centers", calls, visible())
	}

	blocked := NewStore(domain.NewRulesEngine())
	blocked.RulesEngine().Register(blockingRule{})
	if _, err := blocked.RunInTransactionWithCommit(context.Background(), createCenter, hook); err == nil {
		t.Fatalf("expected rule violation")
	}
	if calls != 1 {
		t.Fatalf("hook ran for a blocked transaction")
	}
}
