package core

import (
	"context"
	"fmt"

	"idsearch/pkg/domain"
)

const identifierUniquenessRuleName = "identifier_uniqueness"

// NewIdentifierUniquenessRule enforces the cross-record uniqueness
// constraints of the registry against the committed transaction state.
func NewIdentifierUniquenessRule() domain.Rule {
	return identifierUniquenessRule{}
}

type identifierUniquenessRule struct{}

func (identifierUniquenessRule) Name() string { return identifierUniquenessRuleName }

func (identifierUniquenessRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(entity domain.EntityType, id, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     identifierUniquenessRuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Entity:   entity,
			EntityID: id,
		})
	}

	for _, alias := range view.ListAliases() {
		if _, ok := view.FindParticipant(alias.Alias); ok {
			block(domain.EntityAlias, alias.Alias, "alias %q is also a live consortium id", alias.Alias)
		}
	}

	famInd := map[domain.PedigreeIndividual]string{}
	publicIDs := map[int]string{}
	type centerKey struct{ center, value string }
	localIDs := map[centerKey]string{}
	pedInds := map[centerKey]string{}
	for _, p := range view.ListParticipants() {
		if p.FamInd != nil {
			if other, dup := famInd[*p.FamInd]; dup {
				block(domain.EntityParticipant, p.ConsortiumID, "family/individual %s already assigned to %s", p.FamInd, other)
			} else {
				famInd[*p.FamInd] = p.ConsortiumID
			}
		}
		if p.PublicID != nil {
			if other, dup := publicIDs[*p.PublicID]; dup {
				block(domain.EntityParticipant, p.ConsortiumID, "public id %d already assigned to %s", *p.PublicID, other)
			} else {
				publicIDs[*p.PublicID] = p.ConsortiumID
			}
		}
		if p.LocalID != nil {
			key := centerKey{p.CenterID, *p.LocalID}
			if other, dup := localIDs[key]; dup {
				block(domain.EntityParticipant, p.ConsortiumID, "local id %q already assigned to %s in this center", *p.LocalID, other)
			} else {
				localIDs[key] = p.ConsortiumID
			}
		}
		if p.PedInd != nil {
			key := centerKey{p.CenterID, p.PedInd.String()}
			if other, dup := pedInds[key]; dup {
				block(domain.EntityParticipant, p.ConsortiumID, "local pedigree %s already assigned to %s in this center", p.PedInd, other)
			} else {
				pedInds[key] = p.ConsortiumID
			}
		}
	}
	return res, nil
}
