package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"idsearch/pkg/domain"
)

const (
	cidAlice = "A000001-000001"
	cidBob   = "A000001-000002"
	cidCarol = "B000002-000001"
	aliasA1  = "A000001-000101"
	aliasA2  = "A000001-000102"
)

func ptr[T any](v T) *T { return &v }

type registry struct {
	svc    *Service
	cedars Center
	emory  Center
}

// newRegistry seeds two centers and three participants:
// alice (Cedars) with two aliases and one of every sample kind,
// bob (Cedars) with local id "123456" so it collides with alice's niddk number under "all",
// carol (Emory) sharing alice's local id.
func newRegistry(t *testing.T, opts ...Option) registry {
	t.Helper()
	ctx := context.Background()
	svc := NewInMemoryService(NewDefaultRulesEngine(), opts...)
	cedars, _, err := svc.CreateCenter(ctx, Center{Name: "Cedars", Investigator: "Smith"})
	require.NoError(t, err)
	emory, _, err := svc.CreateCenter(ctx, Center{Name: "Emory", Investigator: "Jones"})
	require.NoError(t, err)

	affected := domain.AffectionAffected
	diag := domain.DiagnosisCD
	male := domain.SexMale
	_, _, err = svc.RegisterParticipant(ctx, Participant{
		ConsortiumID: cidAlice,
		CenterID:     "Cedars",
		LocalID:      ptr("L-100"),
		PedInd:       &PedigreeIndividual{Pedigree: "7", Individual: 12},
		FamInd:       &PedigreeIndividual{Pedigree: "F1", Individual: 1},
		PublicID:     ptr(9001),
		YOB:          ptr(1980),
		Sex:          &male,
		Affection:    &affected,
		Diagnosis:    &diag,
	})
	require.NoError(t, err)
	_, _, err = svc.RegisterParticipant(ctx, Participant{ConsortiumID: cidBob, CenterID: cedars.ID, LocalID: ptr("123456")})
	require.NoError(t, err)
	_, _, err = svc.RegisterParticipant(ctx, Participant{ConsortiumID: cidCarol, CenterID: "Emory", LocalID: ptr("L-100")})
	require.NoError(t, err)

	_, _, err = svc.RegisterAlias(ctx, cidAlice, aliasA1)
	require.NoError(t, err)
	_, _, err = svc.RegisterAlias(ctx, cidAlice, aliasA2)
	require.NoError(t, err)

	for _, sample := range []any{
		RutgersLCL{NIDDKNo: 123456, KNumber: ptr("K12345")},
		DNASample{ID: "DNA-1"},
		SerumSample{ID: "SER-1"},
		LocalDNASample{ID: "LD-1"},
	} {
		_, err = svc.AttachSample(ctx, cidAlice, sample)
		require.NoError(t, err)
	}
	return registry{svc: svc, cedars: cedars, emory: emory}
}

func consortiumIDs(ps []Participant) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.ConsortiumID
	}
	return out
}
