package memory

import (
	"encoding/json"
	"fmt"
)

// Buckets lists the snapshot sections persisted by the durable backends, one
// row per bucket.
var Buckets = []string{
	"centers",
	"participants",
	"aliases",
	"lcls",
	"dna_samples",
	"serum_samples",
	"local_dna_samples",
}

func (s *Snapshot) bucket(name string) (any, bool) {
	switch name {
	case "centers":
		return &s.Centers, true
	case "participants":
		return &s.Participants, true
	case "aliases":
		return &s.Aliases, true
	case "lcls":
		return &s.LCLs, true
	case "dna_samples":
		return &s.DNASamples, true
	case "serum_samples":
		return &s.SerumSamples, true
	case "local_dna_samples":
		return &s.LocalDNASamples, true
	}
	return nil, false
}

// EncodeBucket marshals one bucket of the snapshot.
func (s Snapshot) EncodeBucket(name string) ([]byte, error) {
	target, ok := s.bucket(name)
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", name)
	}
	return json.Marshal(target)
}

// DecodeBucket unmarshals a persisted payload into the named bucket. Unknown
// buckets are ignored so older databases keep loading.
func (s *Snapshot) DecodeBucket(name string, payload []byte) error {
	target, ok := s.bucket(name)
	if !ok || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
