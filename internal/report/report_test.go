package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"iter"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idsearch/internal/blob"
	"idsearch/internal/core"
	"idsearch/internal/infra/blob/memory"
)

func newService(t *testing.T) *core.Service {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	local := "L-1"
	_, _, err := svc.Import(ctx, core.Dataset{
		Centers: []core.Center{{Name: "Cedars", Investigator: "Smith"}},
		Participants: []core.ParticipantRecord{
			{Participant: core.Participant{ConsortiumID: "A000001-000001", CenterID: "Cedars", LocalID: &local}, DNASamples: []core.DNASample{{ID: "D-1"}}},
			{Participant: core.Participant{ConsortiumID: "A000001-000002", CenterID: "Cedars"}, DNASamples: []core.DNASample{{ID: "L-1"}}},
		},
	})
	require.NoError(t, err)
	return svc
}

func readCSV(t *testing.T, r io.Reader) [][]string {
	t.Helper()
	records, err := csv.NewReader(r).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteParticipants(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	found, err := svc.Resolve(ctx, "L-1", core.SchemeAll, "")
	require.NoError(t, err)
	centers, err := svc.ListCenters(ctx)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteParticipants(&buf, Projections(found, CenterNames(centers))))
	records := readCSV(t, &buf)
	require.Len(t, records, 3)
	assert.Equal(t, core.ParticipantColumns(), records[0])
	assert.Equal(t, "A000001-000001", records[1][0])
	assert.Equal(t, "Cedars", records[1][1])
	assert.Equal(t, "A000001-000002", records[2][0])
}

func TestReadTable(t *testing.T) {
	table, err := ReadTable(strings.NewReader("\ufeffdna, local\nD-1 , L-1\n,\nX-9\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"dna", "local"}, table.Columns)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, core.Row{"dna": "D-1", "local": "L-1"}, table.Rows[0])
	assert.Equal(t, core.Row{"dna": "X-9"}, table.Rows[2])

	for name, input := range map[string]string{
		"empty":     "",
		"blank":     "a,\n1,2\n",
		"duplicate": "a,a\n",
		"wide":      "a\n1,2\n",
		"quote":     "a\n\"unterminated\n",
	} {
		_, err := ReadTable(strings.NewReader(input))
		assert.Error(t, err, name)
	}
}

func TestWriteBatch(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	table, err := ReadTable(strings.NewReader("id\nD-1\nL-1\nnope\n"))
	require.NoError(t, err)
	seq, err := svc.ResolveBatch(ctx, table, nil, "")
	require.NoError(t, err)

	var buf bytes.Buffer
	stats, err := WriteBatch(&buf, table, seq)
	require.NoError(t, err)
	assert.Equal(t, BatchStats{Rows: 3, Resolved: 1, Ambiguous: 1, Unresolved: 1}, stats)
	assert.Equal(t, [][]string{
		{"id", ResultColumn},
		{"D-1", "A000001-000001"},
		{"L-1", "A000001-000001;A000001-000002"},
		{"nope", ""},
	}, readCSV(t, &buf))
}

func TestCollectAndReplay(t *testing.T) {
	pulls := 0
	seq := iter.Seq2[core.Resolution, error](func(yield func(core.Resolution, error) bool) {
		for i, cands := range [][]string{{"A000001-000001"}, nil, {"A000001-000001", "A000001-000002"}} {
			pulls++
			if !yield(core.Resolution{Row: i, Candidates: cands}, nil) {
				return
			}
		}
	})
	resolutions, stats, err := Collect(seq)
	require.NoError(t, err)
	require.Len(t, resolutions, 3)
	assert.Equal(t, BatchStats{Rows: 3, Resolved: 1, Ambiguous: 1, Unresolved: 1}, stats)

	table := core.Table{Columns: []string{"id"}, Rows: []core.Row{{"id": "a"}, {"id": "b"}, {"id": "c"}}}
	var buf bytes.Buffer
	replayed, err := WriteBatch(&buf, table, Replay(resolutions))
	require.NoError(t, err)
	assert.Equal(t, stats, replayed)
	assert.Equal(t, 3, pulls, "replay must not pull from the source sequence")

	boom := errors.New("boom")
	_, _, err = Collect(func(yield func(core.Resolution, error) bool) { yield(core.Resolution{}, boom) })
	require.ErrorIs(t, err, boom)
}

func TestWriteBatchStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	seq := iter.Seq2[core.Resolution, error](func(yield func(core.Resolution, error) bool) {
		if !yield(core.Resolution{Row: 0, Candidates: []string{"A000001-000001"}}, nil) {
			return
		}
		yield(core.Resolution{}, boom)
	})
	table := core.Table{Columns: []string{"id"}, Rows: []core.Row{{"id": "x"}, {"id": "y"}}}
	stats, err := WriteBatch(io.Discard, table, seq)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, stats.Rows)

	bad := iter.Seq2[core.Resolution, error](func(yield func(core.Resolution, error) bool) {
		yield(core.Resolution{Row: 5}, nil)
	})
	_, err = WriteBatch(io.Discard, table, bad)
	require.Error(t, err)
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	store := memory.New()
	clock := func() time.Time { return time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC) }
	pub := NewPublisher(store, WithClock(clock))
	assert.Equal(t, "batch/20261017T093000.000Z.csv", pub.BatchKey())
	assert.Equal(t, blob.Store(store), pub.Store())

	found, err := svc.Resolve(ctx, "A000001-000001", core.SchemeCanonical, "")
	require.NoError(t, err)
	info, err := pub.PublishParticipants(ctx, LookupKey, Projections(found, nil))
	require.NoError(t, err)
	assert.Equal(t, "1", info.Metadata["rows"])
	_, err = pub.PublishParticipants(ctx, LookupKey, nil)
	require.NoError(t, err, "lookup exports overwrite")

	table := core.Table{Columns: []string{"id"}, Rows: []core.Row{{"id": "D-1"}}}
	seq, err := svc.ResolveBatch(ctx, table, []string{core.SchemeDNA}, "Cedars")
	require.NoError(t, err)
	info, stats, err := pub.PublishBatch(ctx, pub.BatchKey(), table, seq)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, "text/csv", info.ContentType)

	_, _, err = pub.PublishBatch(ctx, pub.BatchKey(), table, seq)
	require.ErrorIs(t, err, blob.ErrExists)

	list, err := store.List(ctx, "batch/")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	rows := []core.Projection{core.ProjectParticipant(core.Participant{ConsortiumID: "A000001-000001"}, "Cedars")}
	require.NoError(t, RenderParticipants(&buf, rows))
	assert.Contains(t, buf.String(), "A000001-000001")
	assert.Contains(t, buf.String(), "Cedars")

	buf.Reset()
	require.NoError(t, RenderResolutions(&buf, []core.Resolution{{Row: 0}, {Row: 1, Candidates: []string{"A", "B"}}}))
	assert.Contains(t, buf.String(), "unresolved")
	assert.Contains(t, buf.String(), "A;B")
}
