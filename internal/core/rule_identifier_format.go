package core

import (
	"context"
	"fmt"
	"regexp"

	"idsearch/pkg/domain"
)

const identifierFormatRuleName = "identifier_format"

var knumberPattern = regexp.MustCompile(`^K[0-9]{5}`)

// NewIdentifierFormatRule validates the structural pattern of identifiers
// written by the transaction.
func NewIdentifierFormatRule() domain.Rule {
	return identifierFormatRule{}
}

type identifierFormatRule struct{}

func (identifierFormatRule) Name() string { return identifierFormatRuleName }

func (identifierFormatRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	block := func(entity domain.EntityType, id, format string, args ...any) {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     identifierFormatRuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf(format, args...),
			Entity:   entity,
			EntityID: id,
		})
	}
	for _, change := range changes {
		switch after := change.After.(type) {
		case domain.Participant:
			if !domain.ValidConsortiumID(after.ConsortiumID) {
				block(domain.EntityParticipant, after.ConsortiumID, "consortium id %q does not match the required pattern", after.ConsortiumID)
			}
			if after.Spouse != nil && !domain.ValidConsortiumID(*after.Spouse) {
				block(domain.EntityParticipant, after.ConsortiumID, "spouse %q does not match the required pattern", *after.Spouse)
			}
		case domain.Alias:
			if !domain.ValidConsortiumID(after.Alias) {
				block(domain.EntityAlias, after.Alias, "alias %q does not match the required pattern", after.Alias)
			}
		case domain.RutgersLCL:
			if after.NIDDKNo < 100000 || after.NIDDKNo > 999999 {
				block(domain.EntityLCL, fmt.Sprint(after.NIDDKNo), "niddk number %d must have six digits", after.NIDDKNo)
			}
			if after.KNumber != nil && !knumberPattern.MatchString(*after.KNumber) {
				block(domain.EntityLCL, fmt.Sprint(after.NIDDKNo), "knumber %q does not match K followed by five digits", *after.KNumber)
			}
		}
	}
	return res, nil
}
