package core

import (
	"context"
	"encoding/json"
	"iter"
	"sort"
	"strings"
	"time"

	"idsearch/pkg/domain"
)

// Row maps a column name to a raw identifier. Missing columns are treated as empty.
type Row map[string]string

// Table is an ordered set of columns and the rows to resolve.
type Table struct {
	Columns []string
	Rows    []Row
}

// Resolution is the outcome for one batch row.
type Resolution struct {
	Row        int
	Candidates []string
}

// Unresolved reports whether no participant matched.
func (r Resolution) Unresolved() bool { return len(r.Candidates) == 0 }

// Ambiguous reports whether more than one participant matched.
func (r Resolution) Ambiguous() bool { return len(r.Candidates) > 1 }

// ConsortiumID returns the single matched ID when the row resolved unambiguously.
func (r Resolution) ConsortiumID() (string, bool) {
	if len(r.Candidates) != 1 {
		return "", false
	}
	return r.Candidates[0], true
}

// String renders the resolution as an empty string, the single ID, or a
// semicolon-separated candidate list.
func (r Resolution) String() string {
	return strings.Join(r.Candidates, ";")
}

// MarshalJSON encodes an unresolved row as null, a resolved row as the ID and
// an ambiguous row as the sorted candidate list.
func (r Resolution) MarshalJSON() ([]byte, error) {
	switch len(r.Candidates) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(r.Candidates[0])
	default:
		return json.Marshal(r.Candidates)
	}
}

// ResolveBatch resolves every row of table to a Resolution. With no schemes
// every column is searched under "all"; a single scheme applies to every
// column; otherwise one scheme per column is required. The sequence is lazy,
// yields rows in input order and may be iterated again.
func (s *Service) ResolveBatch(ctx context.Context, table Table, schemes []string, center string) (seq iter.Seq2[Resolution, error], err error) {
	defer func(start time.Time) { s.observe(ctx, "resolve_batch", start, err) }(time.Now())
	names := schemes
	switch {
	case len(names) == 0:
		names = []string{SchemeAll}
		fallthrough
	case len(names) == 1:
		names = replicate(names[0], len(table.Columns))
	case len(names) != len(table.Columns):
		return nil, domain.NewValidationError("schemes", len(names), "number of schemes does not match number of columns")
	}
	resolved := make([]Scheme, len(names))
	for i, name := range names {
		if resolved[i], err = s.schemes.Lookup(name); err != nil {
			return nil, err
		}
	}
	var centerID string
	err = s.store.View(ctx, func(view TransactionView) error {
		c, err := resolveCenter(view, center)
		centerID = c.ID
		return err
	})
	if err != nil {
		return nil, err
	}

	columns := append([]string(nil), table.Columns...)
	return func(yield func(Resolution, error) bool) {
		for idx, row := range table.Rows {
			res := Resolution{Row: idx}
			err := s.store.View(ctx, func(view TransactionView) error {
				res.Candidates = resolveRow(view, columns, resolved, row, centerID)
				return nil
			})
			if err == nil {
				err = ctx.Err()
			}
			if !yield(res, err) || err != nil {
				return
			}
		}
	}, nil
}

func resolveRow(view TransactionView, columns []string, schemes []Scheme, row Row, centerID string) []string {
	seen := map[string]struct{}{}
	for i, col := range columns {
		value := row[col]
		if strings.TrimSpace(value) == "" {
			continue
		}
		for _, cid := range schemes[i].match(view, value, centerID) {
			seen[cid] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for cid := range seen {
		out = append(out, cid)
	}
	sort.Strings(out)
	return out
}

func replicate(name string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = name
	}
	return out
}
