package core

import (
	"context"
	"fmt"

	"idsearch/pkg/domain"
)

const clinicalStateRuleName = "clinical_state"

// NewClinicalStateRule checks demographic ranges and the mutually exclusive
// affection, diagnosis and control fields of participants written by the
// transaction.
func NewClinicalStateRule() domain.Rule {
	return clinicalStateRule{}
}

type clinicalStateRule struct{}

func (clinicalStateRule) Name() string { return clinicalStateRuleName }

func (clinicalStateRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		p, ok := change.After.(domain.Participant)
		if !ok {
			continue
		}
		for _, msg := range clinicalProblems(p) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     clinicalStateRuleName,
				Severity: domain.SeverityBlock,
				Message:  msg,
				Entity:   domain.EntityParticipant,
				EntityID: p.ConsortiumID,
			})
		}
	}
	return res, nil
}

func clinicalProblems(p domain.Participant) []string {
	var out []string
	if p.YOB != nil && (*p.YOB <= 1900 || *p.YOB >= 2050) {
		out = append(out, fmt.Sprintf("year of birth %d outside (1900, 2050)", *p.YOB))
	}
	if p.Sex != nil {
		switch *p.Sex {
		case domain.SexMale, domain.SexFemale, domain.SexUnknown:
		default:
			out = append(out, fmt.Sprintf("sex %q is not recognised", *p.Sex))
		}
	}
	if p.Affection != nil {
		switch *p.Affection {
		case domain.AffectionAffected, domain.AffectionUnaffected, domain.AffectionUnknown:
		default:
			out = append(out, fmt.Sprintf("affection %q is not recognised", *p.Affection))
		}
	}
	if p.Diagnosis != nil {
		switch *p.Diagnosis {
		case domain.DiagnosisCD, domain.DiagnosisUC, domain.DiagnosisIndeterminate, domain.DiagnosisUnknown:
		default:
			out = append(out, fmt.Sprintf("diagnosis %q is not recognised", *p.Diagnosis))
		}
	}

	// a diagnosis requires an affected participant; a control flag requires an unaffected one
	affected := p.Affection != nil && *p.Affection == domain.AffectionAffected
	unaffected := p.Affection != nil && *p.Affection == domain.AffectionUnaffected
	if p.Diagnosis != nil && !affected {
		out = append(out, "diagnosis recorded for a participant not marked affected")
	}
	if p.Control != nil && !unaffected {
		out = append(out, "control flag recorded for a participant not marked unaffected")
	}
	return out
}
