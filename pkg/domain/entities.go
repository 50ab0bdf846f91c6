// Package domain defines the persistent registry entities, value types, and
// rule evaluation primitives used by idsearch.
package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EntityType identifies the type of record stored in the registry.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityCenter identifies an issuing center (organization) record.
	EntityCenter EntityType = "center"
	// EntityParticipant identifies a registered participant record.
	EntityParticipant EntityType = "registered_participant"
	// EntityAlias identifies a secondary consortium identifier.
	EntityAlias EntityType = "alias"
	// EntityLCL identifies a lymphoblastoid cell line record.
	EntityLCL EntityType = "rutgers_lcl"
	// EntityDNASample identifies a repository DNA sample.
	EntityDNASample EntityType = "dna_sample"
	// EntitySerumSample identifies a repository serum sample.
	EntitySerumSample EntityType = "serum_sample"
	// EntityLocalDNASample identifies a DNA sample held at a center.
	EntityLocalDNASample EntityType = "local_dna_sample"
)

// OwnedEntities lists the record kinds whose lifetime is bound to a participant.
var OwnedEntities = []EntityType{
	EntityAlias,
	EntityLCL,
	EntityDNASample,
	EntitySerumSample,
	EntityLocalDNASample,
}

// Sex enumerates the recorded participant sex values.
type Sex string

// Accepted sex values.
const (
	SexMale    Sex = "Male"
	SexFemale  Sex = "Female"
	SexUnknown Sex = "Unknown"
)

// Affection records whether a participant is affected by disease.
type Affection string

// Accepted affection values.
const (
	AffectionAffected   Affection = "Affected"
	AffectionUnaffected Affection = "Unaffected"
	AffectionUnknown    Affection = "Unknown"
)

// Diagnosis records the clinical diagnosis of an affected participant.
type Diagnosis string

// Accepted diagnosis values.
const (
	DiagnosisCD            Diagnosis = "CD"
	DiagnosisUC            Diagnosis = "UC"
	DiagnosisIndeterminate Diagnosis = "Indeterminate"
	DiagnosisUnknown       Diagnosis = "Unknown"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// ConsortiumIDPattern is the structural pattern shared by consortium IDs and aliases:
// a letter followed by two hyphen-joined groups of six digits.
var ConsortiumIDPattern = regexp.MustCompile(`^[A-Z][0-9]{6}-[0-9]{6}$`)

// ValidConsortiumID reports whether id matches ConsortiumIDPattern.
func ValidConsortiumID(id string) bool {
	return ConsortiumIDPattern.MatchString(id)
}

// PedigreeIndividual is the composite (pedigree, individual) pair used for family
// and locally assigned pedigree references.
type PedigreeIndividual struct {
	Pedigree   string `json:"pedigree" yaml:"pedigree"`
	Individual int    `json:"individual" yaml:"individual"`
}

func (p PedigreeIndividual) String() string {
	return fmt.Sprintf("%s-%d", p.Pedigree, p.Individual)
}

var pedigreeSeparator = regexp.MustCompile(`\s*,\s*|\s*-\s*|\s*\.\s*|\s+`)

// ParsePedigreeIndividual splits raw on the first comma, hyphen, period or whitespace
// run. It reports false when raw does not yield two tokens or the individual
// token is not an integer.
func ParsePedigreeIndividual(raw string) (PedigreeIndividual, bool) {
	loc := pedigreeSeparator.FindStringIndex(raw)
	if loc == nil {
		return PedigreeIndividual{}, false
	}
	pedigree, individual := raw[:loc[0]], raw[loc[1]:]
	n, err := strconv.Atoi(strings.TrimSpace(individual))
	if err != nil {
		return PedigreeIndividual{}, false
	}
	return PedigreeIndividual{Pedigree: pedigree, Individual: n}, true
}

// Center represents an issuing site that registers participants.
type Center struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Investigator string `json:"investigator"`
}

// Participant is the canonical registry record keyed by its consortium ID.
type Participant struct {
	ConsortiumID string              `json:"consortium_id"`
	CenterID     string              `json:"center_id"`
	FamInd       *PedigreeIndividual `json:"fam_ind_id,omitempty"`
	Father       *int                `json:"father,omitempty"`
	Mother       *int                `json:"mother,omitempty"`
	Spouse       *string             `json:"spouse,omitempty"`
	// PublicID and PublicFamilyID are used for public releases.
	PublicID       *int    `json:"public_id,omitempty"`
	PublicFamilyID *int    `json:"public_family_id,omitempty"`
	LocalID        *string `json:"local_id,omitempty"`
	// PedInd is the locally assigned pedigree and individual.
	PedInd           *PedigreeIndividual `json:"ped_ind_id,omitempty"`
	RegistrationDate *time.Time          `json:"registration_date,omitempty"`
	YOB              *int                `json:"yob,omitempty"`
	Sex              *Sex                `json:"sex,omitempty"`
	Affection        *Affection          `json:"affection,omitempty"`
	Diagnosis        *Diagnosis          `json:"diag,omitempty"`
	Control          *bool               `json:"control,omitempty"`
	Withdrawn        bool                `json:"withdrawn"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// CopyAttributes copies every field not tied to identity or ownership from src.
func (p *Participant) CopyAttributes(src Participant) {
	p.FamInd = src.FamInd
	p.Father = src.Father
	p.Mother = src.Mother
	p.Spouse = src.Spouse
	p.PublicID = src.PublicID
	p.PublicFamilyID = src.PublicFamilyID
	p.LocalID = src.LocalID
	p.PedInd = src.PedInd
	p.RegistrationDate = src.RegistrationDate
	p.YOB = src.YOB
	p.Sex = src.Sex
	p.Affection = src.Affection
	p.Diagnosis = src.Diagnosis
	p.Control = src.Control
	p.Withdrawn = src.Withdrawn
}

// Alias is a secondary consortium ID resolving to exactly one participant.
type Alias struct {
	Alias        string `json:"alias"`
	ConsortiumID string `json:"consortium_id"`
}

// RutgersLCL is a cell line record held by the repository.
type RutgersLCL struct {
	NIDDKNo       int        `json:"niddk_no"`
	KNumber       *string    `json:"knumber,omitempty"`
	ConsortiumID  string     `json:"consortium_id"`
	DateCollected *time.Time `json:"date_collected,omitempty"`
}

// DNASample is a repository DNA sample.
type DNASample struct {
	ID            string     `json:"id"`
	ConsortiumID  string     `json:"consortium_id"`
	DateCollected *time.Time `json:"date_collected,omitempty"`
}

// SerumSample is a repository serum sample.
type SerumSample struct {
	ID            string     `json:"id"`
	ConsortiumID  string     `json:"consortium_id"`
	DateCollected *time.Time `json:"date_collected,omitempty"`
}

// LocalDNASample is a DNA sample identified by a center-local ID.
type LocalDNASample struct {
	ID            string     `json:"id"`
	CenterID      string     `json:"center_id"`
	ConsortiumID  string     `json:"consortium_id"`
	DateCollected *time.Time `json:"date_collected,omitempty"`
}

// Key returns the composite (center, id) key of the sample.
func (s LocalDNASample) Key() string {
	return LocalDNASampleKey(s.CenterID, s.ID)
}

// LocalDNASampleKey builds the composite storage key for a local DNA sample.
func LocalDNASampleKey(centerID, id string) string {
	return centerID + "/" + id
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rules: %s: %s", v.Rule, v.Message)
		}
	}
	return "transaction blocked by rules"
}

// Is reports constraint violations as conflicts.
func (e RuleViolationError) Is(target error) bool {
	return target == ErrConflict
}
