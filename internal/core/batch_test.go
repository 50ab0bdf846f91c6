package core

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsearch/pkg/domain"
)

func collect(t *testing.T, svc *Service, table Table, schemes []string, center string) []Resolution {
	t.Helper()
	seq, err := svc.ResolveBatch(context.Background(), table, schemes, center)
	require.NoError(t, err)
	var out []Resolution
	for res, err := range seq {
		require.NoError(t, err)
		out = append(out, res)
	}
	return out
}

func TestResolveBatchReducesRows(t *testing.T) {
	r := newRegistry(t)
	table := Table{
		Columns: []string{"id"},
		Rows: []Row{
			{"id": cidAlice},
			{"id": "123456"},
			{"id": "nothing"},
			{},
			{"id": aliasA2},
		},
	}

	got := collect(t, r.svc, table, []string{SchemeCanonical}, "")
	require.Len(t, got, 5)
	id, ok := got[0].ConsortiumID()
	require.True(t, ok)
	assert.Equal(t, cidAlice, id)
	assert.True(t, got[1].Unresolved())
	assert.True(t, got[2].Unresolved())
	assert.True(t, got[3].Unresolved())
	assert.Equal(t, []string{cidAlice}, got[4].Candidates)
	for i, res := range got {
		assert.Equal(t, i, res.Row)
	}

	all := collect(t, r.svc, table, nil, "")
	assert.True(t, all[1].Ambiguous())
	assert.Equal(t, []string{cidAlice, cidBob}, all[1].Candidates)
	assert.Equal(t, cidAlice+";"+cidBob, all[1].String())
}

func TestResolveBatchUnionsColumns(t *testing.T) {
	r := newRegistry(t)
	table := Table{
		Columns: []string{"cid", "local"},
		Rows: []Row{
			{"cid": cidAlice, "local": "L-100"},
			{"cid": cidBob, "local": "L-100"},
			{"cid": "", "local": "L-100"},
		},
	}
	got := collect(t, r.svc, table, []string{SchemeCanonical, SchemeLocalID}, "Cedars")
	assert.Equal(t, []string{cidAlice}, got[0].Candidates)
	assert.Equal(t, []string{cidAlice, cidBob}, got[1].Candidates)
	assert.Equal(t, []string{cidAlice}, got[2].Candidates)

	unscoped := collect(t, r.svc, table, []string{SchemeCanonical, SchemeLocalID}, "")
	assert.Equal(t, []string{cidAlice, cidCarol}, unscoped[2].Candidates)
}

func TestResolveBatchValidation(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	table := Table{Columns: []string{"a", "b"}, Rows: []Row{{"a": cidAlice}}}

	_, err := r.svc.ResolveBatch(ctx, table, []string{SchemeCanonical, SchemeLocalID, SchemeDNA}, "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = r.svc.ResolveBatch(ctx, table, []string{"bogus"}, "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = r.svc.ResolveBatch(ctx, table, nil, "Nowhere")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveBatchIsLazyAndRestartable(t *testing.T) {
	r := newRegistry(t)
	ctx := context.Background()
	table := Table{Columns: []string{"id"}, Rows: []Row{{"id": cidAlice}, {"id": cidBob}}}
	seq, err := r.svc.ResolveBatch(ctx, table, []string{SchemeCanonical}, "")
	require.NoError(t, err)

	// a mutation between iterations is visible because rows resolve on demand
	_, _, err = r.svc.PromoteAlias(ctx, aliasA1)
	require.NoError(t, err)

	var first []Resolution
	for res := range seq {
		first = append(first, res)
		break
	}
	require.Len(t, first, 1)
	assert.Equal(t, []string{aliasA1}, first[0].Candidates)

	var second []Resolution
	for res, err := range seq {
		require.NoError(t, err)
		second = append(second, res)
	}
	require.Len(t, second, 2)
	assert.Equal(t, first[0], second[0])
}

func TestResolveBatchStopsOnCancelledContext(t *testing.T) {
	r := newRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	table := Table{Columns: []string{"id"}, Rows: []Row{{"id": cidAlice}, {"id": cidBob}}}
	seq, err := r.svc.ResolveBatch(ctx, table, nil, "")
	require.NoError(t, err)
	cancel()
	var errs int
	for _, err := range seq {
		require.ErrorIs(t, err, context.Canceled)
		errs++
	}
	assert.Equal(t, 1, errs)
}

func TestResolutionJSON(t *testing.T) {
	cases := []struct {
		res  Resolution
		want string
	}{
		{Resolution{}, "null"},
		{Resolution{Candidates: []string{cidAlice}}, `"` + cidAlice + `"`},
		{Resolution{Candidates: []string{cidAlice, cidBob}}, `["` + cidAlice + `","` + cidBob + `"]`},
	}
	for _, tc := range cases {
		data, err := json.Marshal(tc.res)
		require.NoError(t, err)
		assert.JSONEq(t, tc.want, string(data))
	}
}
