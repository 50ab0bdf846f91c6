package core

import (
	"sort"
	"strconv"
	"strings"

	"idsearch/pkg/domain"
)

// Scheme names. Declared schemes are named after the table and column they
// resolve against.
const (
	SchemeCanonical = "registered_participant.consortium_id"
	SchemeLocalID   = "registered_participant.local_id"
	SchemePedInd    = "registered_participant.ped_ind_id"
	SchemeNIDDKNo   = "rutgers_lcl.niddk_no"
	SchemeKNumber   = "rutgers_lcl.knumber"
	SchemeDNA       = "dna_sample.id"
	SchemeSerum     = "serum_sample.id"
	SchemeLocalDNA  = "local_dna_sample.id"
	SchemeAll       = "all"
)

// Decoder converts a raw identifier into the typed value stored in a field.
// A false result excludes the target from the lookup.
type Decoder func(raw string) (any, bool)

// DecodeString passes the raw value through unchanged.
func DecodeString(raw string) (any, bool) { return raw, true }

// DecodeInt coerces the raw value to an integer.
func DecodeInt(raw string) (any, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}
	return n, true
}

// DecodePedigree splits a composite pedigree/individual reference.
func DecodePedigree(raw string) (any, bool) {
	v, ok := domain.ParsePedigreeIndividual(raw)
	if !ok {
		return nil, false
	}
	return v, true
}

// Target is one (entity, field) pair searched by a scheme.
type Target struct {
	Entity domain.EntityType
	Field  string
	Decode Decoder
}

// Scheme is a named identifier type.
type Scheme struct {
	Name    string
	Targets []Target
}

// SchemeRegistry is the declarative table of lookup schemes. It is built once
// and is safe for concurrent reads.
type SchemeRegistry struct {
	schemes map[string]Scheme
	order   []string
}

// NewSchemeRegistry declares the registry's lookup schemes. The canonical
// scheme also searches aliases, and "all" is the union of every other scheme.
func NewSchemeRegistry() *SchemeRegistry {
	declared := []Scheme{
		{Name: SchemeCanonical, Targets: []Target{
			{Entity: domain.EntityParticipant, Field: domain.FieldConsortiumID, Decode: DecodeString},
			{Entity: domain.EntityAlias, Field: domain.FieldAlias, Decode: DecodeString},
		}},
		{Name: SchemeLocalID, Targets: []Target{{Entity: domain.EntityParticipant, Field: domain.FieldLocalID, Decode: DecodeString}}},
		{Name: SchemePedInd, Targets: []Target{{Entity: domain.EntityParticipant, Field: domain.FieldPedInd, Decode: DecodePedigree}}},
		{Name: SchemeNIDDKNo, Targets: []Target{{Entity: domain.EntityLCL, Field: domain.FieldNIDDKNo, Decode: DecodeInt}}},
		{Name: SchemeKNumber, Targets: []Target{{Entity: domain.EntityLCL, Field: domain.FieldKNumber, Decode: DecodeString}}},
		{Name: SchemeDNA, Targets: []Target{{Entity: domain.EntityDNASample, Field: domain.FieldID, Decode: DecodeString}}},
		{Name: SchemeSerum, Targets: []Target{{Entity: domain.EntitySerumSample, Field: domain.FieldID, Decode: DecodeString}}},
		{Name: SchemeLocalDNA, Targets: []Target{{Entity: domain.EntityLocalDNASample, Field: domain.FieldID, Decode: DecodeString}}},
	}
	r := &SchemeRegistry{schemes: make(map[string]Scheme, len(declared)+1)}
	all := Scheme{Name: SchemeAll}
	for _, s := range declared {
		r.schemes[s.Name] = s
		r.order = append(r.order, s.Name)
		all.Targets = append(all.Targets, s.Targets...)
	}
	r.schemes[SchemeAll] = all
	r.order = append(r.order, SchemeAll)
	return r
}

// Lookup returns the named scheme or a ValidationError for unknown names.
func (r *SchemeRegistry) Lookup(name string) (Scheme, error) {
	s, ok := r.schemes[name]
	if !ok {
		return Scheme{}, domain.NewValidationError("scheme", name, "unknown identifier scheme "+strconv.Quote(name))
	}
	return s, nil
}

// Names lists scheme names in declaration order with "all" last.
func (r *SchemeRegistry) Names() []string {
	return append([]string(nil), r.order...)
}

// match evaluates one scheme against a view and returns the sorted, distinct
// consortium IDs of the owning participants.
func (s Scheme) match(view domain.TransactionView, raw, centerID string) []string {
	seen := map[string]struct{}{}
	for _, t := range s.Targets {
		value, ok := t.Decode(raw)
		if !ok {
			continue
		}
		for _, rec := range view.Match(domain.Query{Entity: t.Entity, Field: t.Field, Value: value, CenterID: centerID}) {
			seen[rec.ConsortiumID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for cid := range seen {
		out = append(out, cid)
	}
	sort.Strings(out)
	return out
}
