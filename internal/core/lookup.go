package core

import (
	"context"
	"time"
)

// Resolve returns every participant that value identifies under scheme,
// optionally restricted to one center (by name or ID). Results are ordered by
// consortium ID. More than one result means the identifier is ambiguous.
func (s *Service) Resolve(ctx context.Context, value, scheme, center string) (out []Participant, err error) {
	defer func(start time.Time) { s.observe(ctx, "resolve", start, err) }(time.Now())
	sc, err := s.schemes.Lookup(scheme)
	if err != nil {
		return nil, err
	}
	err = s.store.View(ctx, func(view TransactionView) error {
		c, err := resolveCenter(view, center)
		if err != nil {
			return err
		}
		for _, cid := range sc.match(view, value, c.ID) {
			if p, ok := view.FindParticipant(cid); ok {
				out = append(out, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
