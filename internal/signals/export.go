package signals

import "github.com/porras/fake-sonic-pi/internal/ir"

// Record is the serializable form of a Signal, used for digests, golden
// snapshots and the SQLite export.
type Record struct {
	Beat      ir.Beat  `json:"beat"`
	Name      string   `json:"name"`
	Value     any      `json:"value"`
	Consumers []string `json:"consumers,omitempty"`
}

// Records converts the store contents to their serializable form.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.signals))
	for i, sig := range s.signals {
		out[i] = Record{
			Beat:      sig.Beat,
			Name:      sig.Name,
			Value:     sig.Value,
			Consumers: sig.Consumers(),
		}
	}
	return out
}

// Digest returns a content digest over beat, name and value of every signal.
// Consumers are excluded, matching Equal.
func (s *Store) Digest() (string, error) {
	return DigestRecords(s.Records())
}

// DigestRecords is Digest over exported records.
func DigestRecords(records []Record) (string, error) {
	rows := make([]any, len(records))
	for i, rec := range records {
		rows[i] = map[string]any{
			"beat":  rec.Beat,
			"name":  rec.Name,
			"value": rec.Value,
		}
	}
	return ir.Digest(ir.DomainSignals, rows)
}
