package core

import (
	"context"
	"strconv"
	"time"

	"idsearch/pkg/domain"
)

// RegisterAlias adds alias as a secondary identifier of the participant whose
// canonical ID is consortiumID. The alias must not resolve to any participant
// under the canonical scheme, which includes existing aliases.
func (s *Service) RegisterAlias(ctx context.Context, consortiumID, alias string) (created Alias, res Result, err error) {
	defer func(start time.Time) { s.observe(ctx, "register_alias", start, err) }(time.Now())
	canonical, err := s.schemes.Lookup(SchemeCanonical)
	if err != nil {
		return Alias{}, Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		owner, ok := tx.FindParticipant(consortiumID)
		if !ok {
			return domain.NewNotFoundError(EntityParticipant, consortiumID)
		}
		var err error
		created, err = addAlias(tx, canonical, owner, alias)
		return err
	})
	if err == nil {
		s.logger.Info().Str("consortium_id", consortiumID).Str("alias", alias).Msg("alias registered")
	}
	return created, res, err
}

func addAlias(tx Transaction, canonical Scheme, owner Participant, alias string) (Alias, error) {
	if matches := canonical.match(tx.Snapshot(), alias, ""); len(matches) > 0 {
		return Alias{}, domain.NewConflictError(EntityAlias, alias, "identifier already in use")
	}
	return tx.CreateAlias(Alias{Alias: alias, ConsortiumID: owner.ConsortiumID})
}

// PromoteAlias makes alias the canonical ID of its participant. The former
// canonical ID becomes an alias and every owned record moves to the new
// participant record inside one transaction. Constraints are checked against
// the final state when the transaction commits.
func (s *Service) PromoteAlias(ctx context.Context, alias string) (promoted Participant, res Result, err error) {
	defer func(start time.Time) { s.observe(ctx, "promote_alias", start, err) }(time.Now())
	var former string
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		a, ok := tx.FindAlias(alias)
		if !ok {
			return domain.NewNotFoundError(EntityAlias, alias)
		}
		old, ok := tx.FindParticipant(a.ConsortiumID)
		if !ok {
			return domain.NewNotFoundError(EntityParticipant, a.ConsortiumID)
		}
		if old.ConsortiumID == alias {
			return domain.NewConflictError(EntityAlias, alias, "alias is already the canonical identifier")
		}
		former = old.ConsortiumID
		holdings := tx.Snapshot().Holdings(old.ConsortiumID)

		if _, err := tx.CreateParticipant(Participant{ConsortiumID: alias, CenterID: old.CenterID}); err != nil {
			return err
		}
		if err := rehomeHoldings(tx, holdings, alias); err != nil {
			return err
		}
		if err := tx.DeleteAlias(alias); err != nil {
			return err
		}
		if _, err := tx.CreateAlias(Alias{Alias: old.ConsortiumID, ConsortiumID: alias}); err != nil {
			return err
		}
		if err := tx.DeleteParticipant(old.ConsortiumID); err != nil {
			return err
		}
		var err error
		promoted, err = tx.UpdateParticipant(alias, func(p *Participant) error {
			p.CopyAttributes(old)
			return nil
		})
		return err
	})
	if err == nil {
		s.logger.Info().Str("consortium_id", alias).Str("former_consortium_id", former).Msg("alias promoted")
	}
	return promoted, res, err
}

// rehomeHoldings moves every owned record except the promoted alias onto the
// participant identified by target.
func rehomeHoldings(tx Transaction, h domain.Holdings, target string) error {
	for _, a := range h.Aliases {
		if a.Alias == target {
			continue
		}
		if err := tx.Rehome(EntityAlias, a.Alias, target); err != nil {
			return err
		}
	}
	for _, l := range h.LCLs {
		if err := tx.Rehome(EntityLCL, strconv.Itoa(l.NIDDKNo), target); err != nil {
			return err
		}
	}
	for _, d := range h.DNASamples {
		if err := tx.Rehome(EntityDNASample, d.ID, target); err != nil {
			return err
		}
	}
	for _, d := range h.SerumSamples {
		if err := tx.Rehome(EntitySerumSample, d.ID, target); err != nil {
			return err
		}
	}
	for _, d := range h.LocalDNASamples {
		if err := tx.Rehome(EntityLocalDNASample, d.Key(), target); err != nil {
			return err
		}
	}
	return nil
}
