package core

import (
	"context"
	"time"

	"idsearch/pkg/domain"
)

// ParticipantRecord is a participant together with the identifiers and
// samples registered for it. Participant.CenterID and the LocalDNASamples
// center may hold a center name or ID.
type ParticipantRecord struct {
	Participant     Participant
	Aliases         []string
	LCLs            []RutgersLCL
	DNASamples      []DNASample
	SerumSamples    []SerumSample
	LocalDNASamples []LocalDNASample
}

// Dataset is a batch of registry content applied by Import.
type Dataset struct {
	Centers      []Center
	Participants []ParticipantRecord
}

// ImportSummary counts the records created by Import.
type ImportSummary struct {
	Centers      int `json:"centers"`
	Participants int `json:"participants"`
	Aliases      int `json:"aliases"`
	Samples      int `json:"samples"`
}

// Import applies ds in a single transaction. Centers that already exist with
// the same name and investigator are reused; every other record must be new.
func (s *Service) Import(ctx context.Context, ds Dataset) (summary ImportSummary, res Result, err error) {
	defer func(start time.Time) { s.observe(ctx, "import", start, err) }(time.Now())
	canonical, err := s.schemes.Lookup(SchemeCanonical)
	if err != nil {
		return ImportSummary{}, Result{}, err
	}
	res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
		summary = ImportSummary{}
		for _, c := range ds.Centers {
			if c.Name == "" || c.Investigator == "" {
				return domain.NewValidationError("center", c.Name, "name and investigator are required")
			}
			if centerExists(tx.Snapshot(), c) {
				continue
			}
			if _, err := tx.CreateCenter(c); err != nil {
				return err
			}
			summary.Centers++
		}
		for _, rec := range ds.Participants {
			p, err := registerParticipant(tx, canonical, rec.Participant)
			if err != nil {
				return err
			}
			summary.Participants++
			for _, alias := range rec.Aliases {
				if _, err := addAlias(tx, canonical, p, alias); err != nil {
					return err
				}
				summary.Aliases++
			}
			for _, sample := range rec.samples() {
				if err := attachSample(tx, p, sample); err != nil {
					return err
				}
				summary.Samples++
			}
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, res, err
	}
	s.logger.Info().
		Int("centers", summary.Centers).
		Int("participants", summary.Participants).
		Int("aliases", summary.Aliases).
		Int("samples", summary.Samples).
		Msg("dataset imported")
	return summary, res, nil
}

func (r ParticipantRecord) samples() []any {
	out := make([]any, 0, len(r.LCLs)+len(r.DNASamples)+len(r.SerumSamples)+len(r.LocalDNASamples))
	for _, v := range r.LCLs {
		out = append(out, v)
	}
	for _, v := range r.DNASamples {
		out = append(out, v)
	}
	for _, v := range r.SerumSamples {
		out = append(out, v)
	}
	for _, v := range r.LocalDNASamples {
		out = append(out, v)
	}
	return out
}

func centerExists(view TransactionView, c Center) bool {
	for _, existing := range view.ListCenters() {
		if existing.Name == c.Name && existing.Investigator == c.Investigator {
			return true
		}
	}
	return false
}
