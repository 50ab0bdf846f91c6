package core

import (
	"strconv"
	"time"
)

// ProjectionV1 names the first participant projection. New fields are added
// under a new version so exported reports keep a stable column set.
const ProjectionV1 = "v1"

var participantColumnsV1 = []string{
	"consortium_id",
	"center",
	"family_id",
	"individual_id",
	"father",
	"mother",
	"spouse",
	"public_id",
	"public_family_id",
	"local_id",
	"local_pedigree",
	"local_individual",
	"registration_date",
	"yob",
	"sex",
	"affection",
	"diag",
	"control",
	"withdrawn",
}

// ParticipantColumns lists the projected column names in display order.
func ParticipantColumns() []string {
	return append([]string(nil), participantColumnsV1...)
}

// Projection is one participant flattened to display strings keyed by column.
type Projection map[string]string

// Values returns the projection in ParticipantColumns order.
func (p Projection) Values() []string {
	out := make([]string, len(participantColumnsV1))
	for i, col := range participantColumnsV1 {
		out[i] = p[col]
	}
	return out
}

// ProjectParticipant flattens p for display. Unset fields project to "".
func ProjectParticipant(p Participant, centerName string) Projection {
	out := Projection{
		"consortium_id":    p.ConsortiumID,
		"center":           centerName,
		"spouse":           deref(p.Spouse),
		"local_id":         deref(p.LocalID),
		"father":           intString(p.Father),
		"mother":           intString(p.Mother),
		"public_id":        intString(p.PublicID),
		"public_family_id": intString(p.PublicFamilyID),
		"yob":              intString(p.YOB),
		"withdrawn":        strconv.FormatBool(p.Withdrawn),
	}
	if p.FamInd != nil {
		out["family_id"] = p.FamInd.Pedigree
		out["individual_id"] = strconv.Itoa(p.FamInd.Individual)
	}
	if p.PedInd != nil {
		out["local_pedigree"] = p.PedInd.Pedigree
		out["local_individual"] = strconv.Itoa(p.PedInd.Individual)
	}
	if p.RegistrationDate != nil {
		out["registration_date"] = p.RegistrationDate.Format(time.DateOnly)
	}
	if p.Sex != nil {
		out["sex"] = string(*p.Sex)
	}
	if p.Affection != nil {
		out["affection"] = string(*p.Affection)
	}
	if p.Diagnosis != nil {
		out["diag"] = string(*p.Diagnosis)
	}
	if p.Control != nil {
		out["control"] = strconv.FormatBool(*p.Control)
	}
	for _, col := range participantColumnsV1 {
		if _, ok := out[col]; !ok {
			out[col] = ""
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intString(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
