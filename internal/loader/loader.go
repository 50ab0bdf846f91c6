// Package loader reads registry fixtures from YAML documents.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-yaml"

	"idsearch/internal/core"
	"idsearch/pkg/domain"
)

// Document is the on-disk fixture layout.
type Document struct {
	Centers      []CenterDoc      `yaml:"centers"`
	Participants []ParticipantDoc `yaml:"participants"`
}

// CenterDoc declares a registering center.
type CenterDoc struct {
	Name         string `yaml:"name"`
	Investigator string `yaml:"investigator"`
}

// ParticipantDoc declares a participant with its aliases and samples. Center
// names a center from this or an earlier document.
type ParticipantDoc struct {
	ConsortiumID     string           `yaml:"consortium_id"`
	Center           string           `yaml:"center"`
	FamInd           string           `yaml:"fam_ind_id"`
	Father           *int             `yaml:"father"`
	Mother           *int             `yaml:"mother"`
	Spouse           *string          `yaml:"spouse"`
	PublicID         *int             `yaml:"public_id"`
	PublicFamilyID   *int             `yaml:"public_family_id"`
	LocalID          *string          `yaml:"local_id"`
	PedInd           string           `yaml:"ped_ind_id"`
	RegistrationDate string           `yaml:"registration_date"`
	YOB              *int             `yaml:"yob"`
	Sex              string           `yaml:"sex"`
	Affection        string           `yaml:"affection"`
	Diagnosis        string           `yaml:"diag"`
	Control          *bool            `yaml:"control"`
	Withdrawn        bool             `yaml:"withdrawn"`
	Aliases          []string         `yaml:"aliases"`
	LCLs             []LCLDoc         `yaml:"lcls"`
	DNASamples       []SampleDoc      `yaml:"dna_samples"`
	SerumSamples     []SampleDoc      `yaml:"serum_samples"`
	LocalDNASamples  []LocalSampleDoc `yaml:"local_dna_samples"`
}

// LCLDoc declares a Rutgers cell line.
type LCLDoc struct {
	NIDDKNo       int     `yaml:"niddk_no"`
	KNumber       *string `yaml:"knumber"`
	DateCollected string  `yaml:"date_collected"`
}

// SampleDoc declares a repository DNA or serum sample.
type SampleDoc struct {
	ID            string `yaml:"id"`
	DateCollected string `yaml:"date_collected"`
}

// LocalSampleDoc declares a center-held DNA sample. An empty Center means the
// participant's center.
type LocalSampleDoc struct {
	ID            string `yaml:"id"`
	Center        string `yaml:"center"`
	DateCollected string `yaml:"date_collected"`
}

// Decode parses one YAML document. Unknown keys are rejected.
func Decode(r io.Reader) (Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r, yaml.DisallowUnknownField()).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, nil
		}
		return Document{}, err
	}
	return doc, nil
}

// Files returns the .yaml and .yml files in dir in name order.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadFiles decodes every path into one dataset. A directory expands to the
// fixture files it contains.
func LoadFiles(paths ...string) (core.Dataset, error) {
	var ds core.Dataset
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return core.Dataset{}, err
		}
		files := []string{path}
		if info.IsDir() {
			if files, err = Files(path); err != nil {
				return core.Dataset{}, err
			}
		}
		for _, file := range files {
			data, err := os.ReadFile(file)
			if err != nil {
				return core.Dataset{}, err
			}
			doc, err := Decode(bytes.NewReader(data))
			if err != nil {
				return core.Dataset{}, fmt.Errorf("%s: %w", file, err)
			}
			part, err := doc.Dataset()
			if err != nil {
				return core.Dataset{}, fmt.Errorf("%s: %w", file, err)
			}
			ds.Centers = append(ds.Centers, part.Centers...)
			ds.Participants = append(ds.Participants, part.Participants...)
		}
	}
	return ds, nil
}

// Dataset converts the document into registry records.
func (d Document) Dataset() (core.Dataset, error) {
	ds := core.Dataset{Centers: make([]core.Center, 0, len(d.Centers))}
	for _, c := range d.Centers {
		ds.Centers = append(ds.Centers, core.Center{Name: c.Name, Investigator: c.Investigator})
	}
	for i, p := range d.Participants {
		rec, err := p.record()
		if err != nil {
			return core.Dataset{}, fmt.Errorf("participants[%d] %s: %w", i, p.ConsortiumID, err)
		}
		ds.Participants = append(ds.Participants, rec)
	}
	return ds, nil
}

func (p ParticipantDoc) record() (core.ParticipantRecord, error) {
	part := core.Participant{
		ConsortiumID:   p.ConsortiumID,
		CenterID:       p.Center,
		Father:         p.Father,
		Mother:         p.Mother,
		Spouse:         p.Spouse,
		PublicID:       p.PublicID,
		PublicFamilyID: p.PublicFamilyID,
		LocalID:        p.LocalID,
		YOB:            p.YOB,
		Control:        p.Control,
		Withdrawn:      p.Withdrawn,
	}
	var err error
	if part.FamInd, err = pedigree("fam_ind_id", p.FamInd); err != nil {
		return core.ParticipantRecord{}, err
	}
	if part.PedInd, err = pedigree("ped_ind_id", p.PedInd); err != nil {
		return core.ParticipantRecord{}, err
	}
	if part.RegistrationDate, err = date("registration_date", p.RegistrationDate); err != nil {
		return core.ParticipantRecord{}, err
	}
	if p.Sex != "" {
		sex := domain.Sex(p.Sex)
		part.Sex = &sex
	}
	if p.Affection != "" {
		affection := domain.Affection(p.Affection)
		part.Affection = &affection
	}
	if p.Diagnosis != "" {
		diag := domain.Diagnosis(p.Diagnosis)
		part.Diagnosis = &diag
	}

	rec := core.ParticipantRecord{Participant: part, Aliases: p.Aliases}
	for _, l := range p.LCLs {
		collected, err := date("lcls.date_collected", l.DateCollected)
		if err != nil {
			return core.ParticipantRecord{}, err
		}
		rec.LCLs = append(rec.LCLs, core.RutgersLCL{NIDDKNo: l.NIDDKNo, KNumber: l.KNumber, DateCollected: collected})
	}
	for _, s := range p.DNASamples {
		collected, err := date("dna_samples.date_collected", s.DateCollected)
		if err != nil {
			return core.ParticipantRecord{}, err
		}
		rec.DNASamples = append(rec.DNASamples, core.DNASample{ID: s.ID, DateCollected: collected})
	}
	for _, s := range p.SerumSamples {
		collected, err := date("serum_samples.date_collected", s.DateCollected)
		if err != nil {
			return core.ParticipantRecord{}, err
		}
		rec.SerumSamples = append(rec.SerumSamples, core.SerumSample{ID: s.ID, DateCollected: collected})
	}
	for _, s := range p.LocalDNASamples {
		collected, err := date("local_dna_samples.date_collected", s.DateCollected)
		if err != nil {
			return core.ParticipantRecord{}, err
		}
		rec.LocalDNASamples = append(rec.LocalDNASamples, core.LocalDNASample{ID: s.ID, CenterID: s.Center, DateCollected: collected})
	}
	return rec, nil
}

func pedigree(field, raw string) (*core.PedigreeIndividual, error) {
	if raw == "" {
		return nil, nil
	}
	pi, ok := domain.ParsePedigreeIndividual(raw)
	if !ok {
		return nil, domain.NewValidationError(field, raw, "expected pedigree and individual number")
	}
	return &pi, nil
}

func date(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, domain.NewValidationError(field, raw, "expected YYYY-MM-DD")
	}
	return &t, nil
}
