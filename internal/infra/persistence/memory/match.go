package memory

import (
	"sort"

	"idsearch/pkg/domain"
)

// matchState evaluates an equality query. Values whose dynamic type does not
// fit the field never match.
func matchState(state *memoryState, q domain.Query) []domain.Record {
	var out []domain.Record
	add := func(key, consortiumID, ownCenter string) {
		if !inScope(state, q.CenterID, consortiumID, ownCenter) {
			return
		}
		out = append(out, domain.Record{Entity: q.Entity, Key: key, ConsortiumID: consortiumID})
	}

	switch q.Entity {
	case domain.EntityParticipant:
		switch q.Field {
		case domain.FieldConsortiumID:
			if v, ok := q.Value.(string); ok {
				if p, found := state.participants[v]; found {
					add(p.ConsortiumID, p.ConsortiumID, p.CenterID)
				}
			}
		case domain.FieldLocalID:
			if v, ok := q.Value.(string); ok {
				for _, p := range state.participants {
					if p.LocalID != nil && *p.LocalID == v {
						add(p.ConsortiumID, p.ConsortiumID, p.CenterID)
					}
				}
			}
		case domain.FieldPedInd, domain.FieldFamInd:
			if v, ok := q.Value.(domain.PedigreeIndividual); ok {
				for _, p := range state.participants {
					pair := p.PedInd
					if q.Field == domain.FieldFamInd {
						pair = p.FamInd
					}
					if pair != nil && *pair == v {
						add(p.ConsortiumID, p.ConsortiumID, p.CenterID)
					}
				}
			}
		}
	case domain.EntityAlias:
		if v, ok := q.Value.(string); ok && q.Field == domain.FieldAlias {
			if a, found := state.aliases[v]; found {
				add(a.Alias, a.ConsortiumID, "")
			}
		}
	case domain.EntityLCL:
		switch q.Field {
		case domain.FieldNIDDKNo:
			if v, ok := q.Value.(int); ok {
				if l, found := state.lcls[lclKey(v)]; found {
					add(lclKey(l.NIDDKNo), l.ConsortiumID, "")
				}
			}
		case domain.FieldKNumber:
			if v, ok := q.Value.(string); ok {
				for _, l := range state.lcls {
					if l.KNumber != nil && *l.KNumber == v {
						add(lclKey(l.NIDDKNo), l.ConsortiumID, "")
					}
				}
			}
		}
	case domain.EntityDNASample:
		if v, ok := q.Value.(string); ok && q.Field == domain.FieldID {
			if d, found := state.dnaSamples[v]; found {
				add(d.ID, d.ConsortiumID, "")
			}
		}
	case domain.EntitySerumSample:
		if v, ok := q.Value.(string); ok && q.Field == domain.FieldID {
			if d, found := state.serumSamples[v]; found {
				add(d.ID, d.ConsortiumID, "")
			}
		}
	case domain.EntityLocalDNASample:
		if v, ok := q.Value.(string); ok && q.Field == domain.FieldID {
			for _, d := range state.localSamples {
				if d.ID == v {
					add(d.Key(), d.ConsortiumID, d.CenterID)
				}
			}
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// inScope applies the optional center restriction. Records without a center
// column of their own are scoped through their owning participant.
func inScope(state *memoryState, centerID, consortiumID, ownCenter string) bool {
	if centerID == "" {
		return true
	}
	if ownCenter != "" {
		return ownCenter == centerID
	}
	p, ok := state.participants[consortiumID]
	return ok && p.CenterID == centerID
}
