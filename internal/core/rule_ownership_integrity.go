package core

import (
	"context"
	"fmt"
	"strconv"

	"idsearch/pkg/domain"
)

const ownershipIntegrityRuleName = "ownership_integrity"

// NewOwnershipIntegrityRule verifies that every participant references an
// existing center and every owned record references an existing participant.
func NewOwnershipIntegrityRule() domain.Rule {
	return ownershipIntegrityRule{}
}

type ownershipIntegrityRule struct{}

func (ownershipIntegrityRule) Name() string { return ownershipIntegrityRuleName }

func (ownershipIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(entity domain.EntityType, id, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     ownershipIntegrityRuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Entity:   entity,
			EntityID: id,
		})
	}
	owner := func(entity domain.EntityType, id, consortiumID string) {
		if _, ok := view.FindParticipant(consortiumID); !ok {
			block(entity, id, "owner %q does not exist", consortiumID)
		}
	}

	for _, p := range view.ListParticipants() {
		if _, ok := view.FindCenter(p.CenterID); !ok {
			block(domain.EntityParticipant, p.ConsortiumID, "center %q does not exist", p.CenterID)
		}
	}
	for _, a := range view.ListAliases() {
		owner(domain.EntityAlias, a.Alias, a.ConsortiumID)
	}
	for _, l := range view.ListLCLs() {
		owner(domain.EntityLCL, strconv.Itoa(l.NIDDKNo), l.ConsortiumID)
	}
	for _, d := range view.ListDNASamples() {
		owner(domain.EntityDNASample, d.ID, d.ConsortiumID)
	}
	for _, d := range view.ListSerumSamples() {
		owner(domain.EntitySerumSample, d.ID, d.ConsortiumID)
	}
	for _, d := range view.ListLocalDNASamples() {
		owner(domain.EntityLocalDNASample, d.Key(), d.ConsortiumID)
		if _, ok := view.FindCenter(d.CenterID); !ok {
			block(domain.EntityLocalDNASample, d.Key(), "center %q does not exist", d.CenterID)
		}
	}
	return res, nil
}
