package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsearch/internal/infra/persistence/memory"
	"idsearch/pkg/domain"
)

func TestRegisterAlias(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	created, _, err := r.svc.RegisterAlias(ctx, cidBob, "A000001-000200")
	require.NoError(t, err)
	assert.Equal(t, cidBob, created.ConsortiumID)

	got, err := r.svc.Resolve(ctx, "A000001-000200", SchemeCanonical, "")
	require.NoError(t, err)
	assert.Equal(t, []string{cidBob}, consortiumIDs(got))
}

func TestRegisterAliasConflicts(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	for _, value := range []string{cidAlice, cidBob, aliasA1} {
		_, _, err := r.svc.RegisterAlias(ctx, cidBob, value)
		require.ErrorIs(t, err, domain.ErrConflict, value)
		var conflict *domain.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, value, conflict.ID)
	}
	h, err := r.svc.Holdings(ctx, cidBob)
	require.NoError(t, err)
	assert.Empty(t, h.Aliases)
}

func TestRegisterAliasErrors(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	_, _, err := r.svc.RegisterAlias(ctx, "Z999999-999999", "A000001-000300")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// aliases resolve to a participant but are not accepted as the owner reference
	_, _, err = r.svc.RegisterAlias(ctx, aliasA1, "A000001-000300")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = r.svc.RegisterAlias(ctx, cidBob, "not-a-cid")
	require.ErrorIs(t, err, domain.ErrConflict)
	var violation domain.RuleViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, identifierFormatRuleName, violation.Result.Violations[0].Rule)
}

func TestPromoteAliasRoundTrip(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()

	before, err := r.svc.Holdings(ctx, cidAlice)
	require.NoError(t, err)
	original, err := r.svc.Participant(ctx, cidAlice)
	require.NoError(t, err)

	promoted, _, err := r.svc.PromoteAlias(ctx, aliasA1)
	require.NoError(t, err)
	assert.Equal(t, aliasA1, promoted.ConsortiumID)
	assert.Equal(t, r.cedars.ID, promoted.CenterID)

	for _, value := range []string{aliasA1, cidAlice, aliasA2} {
		got, err := r.svc.Resolve(ctx, value, SchemeCanonical, "")
		require.NoError(t, err)
		assert.Equal(t, []string{aliasA1}, consortiumIDs(got), value)
	}

	_, err = r.svc.Participant(ctx, cidAlice)
	require.ErrorIs(t, err, domain.ErrNotFound)

	after, err := r.svc.Holdings(ctx, aliasA1)
	require.NoError(t, err)
	assert.Equal(t, before.Count(), after.Count())
	assert.Len(t, after.Aliases, len(before.Aliases))
	aliases := []string{after.Aliases[0].Alias, after.Aliases[1].Alias}
	assert.ElementsMatch(t, []string{cidAlice, aliasA2}, aliases)

	// attributes survive, and secondary identifiers still find the new record
	assert.Equal(t, original.LocalID, promoted.LocalID)
	assert.Equal(t, original.PedInd, promoted.PedInd)
	assert.Equal(t, original.Diagnosis, promoted.Diagnosis)
	assert.Equal(t, original.PublicID, promoted.PublicID)
	got, err := r.svc.Resolve(ctx, "DNA-1", SchemeDNA, "")
	require.NoError(t, err)
	assert.Equal(t, []string{aliasA1}, consortiumIDs(got))
	got, err = r.svc.Resolve(ctx, "7,12", SchemePedInd, "Cedars")
	require.NoError(t, err)
	assert.Equal(t, []string{aliasA1}, consortiumIDs(got))

	// promoting the demoted ID swaps back
	back, _, err := r.svc.PromoteAlias(ctx, cidAlice)
	require.NoError(t, err)
	assert.Equal(t, cidAlice, back.ConsortiumID)
	final, err := r.svc.Holdings(ctx, cidAlice)
	require.NoError(t, err)
	assert.Equal(t, before.Count(), final.Count())
	assert.Len(t, final.Aliases, len(before.Aliases))
}

func TestPromoteAliasErrors(t *testing.T) {
	r := newRegistry(t)
	_, _, err := r.svc.PromoteAlias(context.Background(), "A000001-009999")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, _, err = r.svc.PromoteAlias(context.Background(), cidAlice)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPromoteAliasSelfGuard(t *testing.T) {
	store := memory.NewStore(nil)
	svc := NewService(store)
	ctx := context.Background()
	_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		c, err := tx.CreateCenter(Center{Name: "Cedars", Investigator: "Smith"})
		if err != nil {
			return err
		}
		if _, err := tx.CreateParticipant(Participant{ConsortiumID: cidAlice, CenterID: c.ID}); err != nil {
			return err
		}
		_, err = tx.CreateAlias(Alias{Alias: cidAlice, ConsortiumID: cidAlice})
		return err
	})
	require.NoError(t, err)

	_, _, err = svc.PromoteAlias(ctx, cidAlice)
	require.ErrorIs(t, err, domain.ErrConflict)
}

// faultyStore injects an error into DeleteParticipant, after the new record
// has been created and owned records re-homed.
type faultyStore struct {
	PersistentStore
	fault error
}

func (s faultyStore) RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error) {
	return s.PersistentStore.RunInTransaction(ctx, func(tx Transaction) error {
		return fn(faultyTx{Transaction: tx, fault: s.fault})
	})
}

type faultyTx struct {
	Transaction
	fault error
}

func (tx faultyTx) DeleteParticipant(string) error { return tx.fault }

func TestPromoteAliasIsAtomic(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	before, err := r.svc.Holdings(ctx, cidAlice)
	require.NoError(t, err)

	fault := errors.New("storage fault")
	faulty := NewService(faultyStore{PersistentStore: r.svc.Store(), fault: fault})
	_, _, err = faulty.PromoteAlias(ctx, aliasA1)
	require.ErrorIs(t, err, fault)

	got, err := r.svc.Resolve(ctx, aliasA1, SchemeCanonical, "")
	require.NoError(t, err)
	assert.Equal(t, []string{cidAlice}, consortiumIDs(got))
	_, err = r.svc.Participant(ctx, aliasA1)
	require.ErrorIs(t, err, domain.ErrNotFound)
	after, err := r.svc.Holdings(ctx, cidAlice)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPromoteAliasBlockedByConstraintsRollsBack(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	engine := NewDefaultRulesEngine()
	engine.Register(blockPromotedRule{})
	store := memory.NewStore(engine)
	store.ImportState(r.svc.Store().(*memory.Store).ExportState())
	svc := NewService(store)

	_, _, err := svc.PromoteAlias(ctx, aliasA1)
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.Participant(ctx, cidAlice)
	require.NoError(t, err)
}

type blockPromotedRule struct{}

func (blockPromotedRule) Name() string { return "block_promoted" }

func (blockPromotedRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	if _, ok := view.FindParticipant(aliasA1); ok {
		return domain.Result{Violations: []domain.Violation{{Rule: "block_promoted", Severity: domain.SeverityBlock}}}, nil
	}
	return domain.Result{}, nil
}
