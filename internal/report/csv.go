// Package report renders lookup and batch results and publishes them to the
// artifact store.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"idsearch/internal/core"
)

// ResultColumn is appended to batch input columns to hold the resolution.
const ResultColumn = "consortium_id"

// CenterNames maps center IDs to display names.
func CenterNames(centers []core.Center) map[string]string {
	out := make(map[string]string, len(centers))
	for _, c := range centers {
		out[c.ID] = c.Name
	}
	return out
}

// Projections flattens participants for display, naming each center.
func Projections(participants []core.Participant, centers map[string]string) []core.Projection {
	out := make([]core.Projection, len(participants))
	for i, p := range participants {
		out[i] = core.ProjectParticipant(p, centers[p.CenterID])
	}
	return out
}

// WriteParticipants writes a header of core.ParticipantColumns and one record
// per projection.
func WriteParticipants(w io.Writer, rows []core.Projection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(core.ParticipantColumns()); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write(row.Values()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BatchStats summarises a written batch.
type BatchStats struct {
	Rows       int `json:"rows"`
	Resolved   int `json:"resolved"`
	Ambiguous  int `json:"ambiguous"`
	Unresolved int `json:"unresolved"`
}

// Add counts one resolution.
func (s *BatchStats) Add(res core.Resolution) {
	s.Rows++
	switch {
	case res.Unresolved():
		s.Unresolved++
	case res.Ambiguous():
		s.Ambiguous++
	default:
		s.Resolved++
	}
}

// Collect drains seq once, returning the resolutions in row order.
func Collect(seq iter.Seq2[core.Resolution, error]) ([]core.Resolution, BatchStats, error) {
	var (
		out   []core.Resolution
		stats BatchStats
	)
	for res, err := range seq {
		if err != nil {
			return out, stats, err
		}
		out = append(out, res)
		stats.Add(res)
	}
	return out, stats, nil
}

// Replay yields already collected resolutions without resolving them again.
func Replay(resolutions []core.Resolution) iter.Seq2[core.Resolution, error] {
	return func(yield func(core.Resolution, error) bool) {
		for _, res := range resolutions {
			if !yield(res, nil) {
				return
			}
		}
	}
}

// WriteBatch copies the input table and appends ResultColumn holding the
// resolved ID or the ";" separated candidates. It stops at the first error
// from seq.
func WriteBatch(w io.Writer, table core.Table, seq iter.Seq2[core.Resolution, error]) (BatchStats, error) {
	var stats BatchStats
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string{}, table.Columns...), ResultColumn)); err != nil {
		return stats, err
	}
	for res, err := range seq {
		if err != nil {
			return stats, err
		}
		if res.Row < 0 || res.Row >= len(table.Rows) {
			return stats, fmt.Errorf("resolution for unknown row %d", res.Row)
		}
		row := table.Rows[res.Row]
		record := make([]string, 0, len(table.Columns)+1)
		for _, col := range table.Columns {
			record = append(record, row[col])
		}
		if err := cw.Write(append(record, res.String())); err != nil {
			return stats, err
		}
		stats.Add(res)
	}
	cw.Flush()
	return stats, cw.Error()
}

// ReadTable parses CSV with a header row into a core.Table. Cells are
// trimmed; short records leave the trailing columns empty.
func ReadTable(r io.Reader) (core.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return core.Table{}, errors.New("batch input is empty")
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("read header: %w", err)
	}
	seen := make(map[string]struct{}, len(header))
	table := core.Table{Columns: make([]string, len(header))}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			return core.Table{}, fmt.Errorf("column %d has no name", i+1)
		}
		if _, dup := seen[name]; dup {
			return core.Table{}, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		table.Columns[i] = name
	}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Table{}, err
		}
		if len(record) > len(table.Columns) {
			line, _ := cr.FieldPos(0)
			return core.Table{}, fmt.Errorf("line %d has %d fields, header has %d", line, len(record), len(table.Columns))
		}
		row := make(core.Row, len(table.Columns))
		for i, v := range record {
			row[table.Columns[i]] = strings.TrimSpace(v)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}
