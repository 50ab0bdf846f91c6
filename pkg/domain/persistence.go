package domain

import "context"

// Field names addressable by equality queries.
const (
	FieldConsortiumID = "consortium_id"
	FieldAlias        = "alias"
	FieldLocalID      = "local_id"
	FieldPedInd       = "ped_ind_id"
	FieldFamInd       = "fam_ind_id"
	FieldNIDDKNo      = "niddk_no"
	FieldKNumber      = "knumber"
	FieldID           = "id"
)

// Query is an equality predicate over one field of one entity, optionally
// scoped to the records of a single center. Records without their own center
// column are scoped through their owning participant.
type Query struct {
	Entity   EntityType
	Field    string
	Value    any
	CenterID string
}

// Record identifies a row matched by a Query together with its owning participant.
type Record struct {
	Entity       EntityType
	Key          string
	ConsortiumID string
}

// Holdings groups every record owned by a single participant.
type Holdings struct {
	Aliases         []Alias
	LCLs            []RutgersLCL
	DNASamples      []DNASample
	SerumSamples    []SerumSample
	LocalDNASamples []LocalDNASample
}

// Count returns the number of non-alias sample and link records.
func (h Holdings) Count() int {
	return len(h.LCLs) + len(h.DNASamples) + len(h.SerumSamples) + len(h.LocalDNASamples)
}

// Empty reports whether the participant owns no records at all.
func (h Holdings) Empty() bool {
	return len(h.Aliases) == 0 && h.Count() == 0
}

// Transaction exposes the registry operations that a persistence implementation
// must support within an atomic scope. Same-table key collisions fail
// immediately; cross-record constraints are checked by rules at commit.
type Transaction interface {
	Snapshot() TransactionView
	CreateCenter(Center) (Center, error)
	CreateParticipant(Participant) (Participant, error)
	UpdateParticipant(consortiumID string, mutator func(*Participant) error) (Participant, error)
	// DeleteParticipant refuses while the participant still owns records.
	DeleteParticipant(consortiumID string) error
	CreateAlias(Alias) (Alias, error)
	DeleteAlias(alias string) error
	CreateLCL(RutgersLCL) (RutgersLCL, error)
	CreateDNASample(DNASample) (DNASample, error)
	CreateSerumSample(SerumSample) (SerumSample, error)
	CreateLocalDNASample(LocalDNASample) (LocalDNASample, error)
	// Rehome moves an owned record, identified by entity and storage key, to another participant.
	Rehome(entity EntityType, key, consortiumID string) error
	FindCenter(id string) (Center, bool)
	FindParticipant(consortiumID string) (Participant, bool)
	FindAlias(alias string) (Alias, bool)
}

// TransactionView provides read-only access to snapshot data for lookups and rules.
type TransactionView interface {
	ListCenters() []Center
	FindCenter(id string) (Center, bool)
	FindCenterByName(name string) (Center, bool)
	ListParticipants() []Participant
	FindParticipant(consortiumID string) (Participant, bool)
	ListAliases() []Alias
	FindAlias(alias string) (Alias, bool)
	ListLCLs() []RutgersLCL
	ListDNASamples() []DNASample
	ListSerumSamples() []SerumSample
	ListLocalDNASamples() []LocalDNASample
	Holdings(consortiumID string) Holdings
	Match(q Query) []Record
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
