package signals

import (
	"fmt"
	"slices"

	"github.com/porras/fake-sonic-pi/internal/ir"
)

// Signal is one named, timestamped value.
//
// Beat, Name and Value never change after creation. The consumer set records
// which tasks observed the signal through sync; it is bookkeeping only and
// does not stop other tasks from observing the same signal.
type Signal struct {
	Beat  ir.Beat
	Name  string
	Value any

	consumers []string
}

// AddConsumer records that the task identified by ref observed the signal.
// Adding the same ref twice is a no-op.
func (s *Signal) AddConsumer(ref string) {
	if slices.Contains(s.consumers, ref) {
		return
	}
	s.consumers = append(s.consumers, ref)
}

// Consumers returns the tasks that observed the signal, in observation order.
func (s *Signal) Consumers() []string {
	return slices.Clone(s.consumers)
}

// Seed is a signal supplied before a run starts.
type Seed struct {
	Beat  ir.Beat `yaml:"beat" json:"beat"`
	Name  string  `yaml:"name" json:"name"`
	Value any     `yaml:"value" json:"value"`
}

// Store is an insertion-ordered collection of signals.
//
// INVARIANTS:
//   - signals are never reordered or removed
//   - every lookup is a pure function of the current contents
type Store struct {
	signals []*Signal
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Emit appends a signal. It always succeeds.
func (s *Store) Emit(beat ir.Beat, name string, value any) {
	s.signals = append(s.signals, &Signal{Beat: beat, Name: name, Value: value})
}

// Seed appends seeds in order. Seeds with an invalid or infinite beat are
// rejected before anything is appended.
func (s *Store) Seed(seeds []Seed) error {
	for i, seed := range seeds {
		if !seed.Beat.Finite() {
			return fmt.Errorf("seed[%d] %q: invalid beat %v", i, seed.Name, float64(seed.Beat))
		}
		if seed.Name == "" {
			return fmt.Errorf("seed[%d]: name is required", i)
		}
	}
	for _, seed := range seeds {
		s.Emit(seed.Beat, seed.Name, seed.Value)
	}
	return nil
}

// FindExact returns the most recently inserted signal named name whose beat
// equals beat exactly.
func (s *Store) FindExact(beat ir.Beat, name string) (*Signal, bool) {
	for i := len(s.signals) - 1; i >= 0; i-- {
		sig := s.signals[i]
		if sig.Beat == beat && sig.Name == name {
			return sig, true
		}
	}
	return nil, false
}

// MostRecentAtOrBefore returns the signal named name with the largest beat
// not after beat. Among signals sharing that beat the latest insertion wins.
func (s *Store) MostRecentAtOrBefore(beat ir.Beat, name string) (*Signal, bool) {
	var best *Signal
	for _, sig := range s.signals {
		if sig.Name != name || sig.Beat > beat {
			continue
		}
		if best == nil || sig.Beat >= best.Beat {
			best = sig
		}
	}
	return best, best != nil
}

// NextBeatAfter returns the smallest signal beat strictly greater than beat,
// across all names.
func (s *Store) NextBeatAfter(beat ir.Beat) (ir.Beat, bool) {
	var (
		next  ir.Beat
		found bool
	)
	for _, sig := range s.signals {
		if sig.Beat > beat && (!found || sig.Beat < next) {
			next = sig.Beat
			found = true
		}
	}
	return next, found
}

// Len returns the number of stored signals.
func (s *Store) Len() int {
	return len(s.signals)
}

// All returns copies of the stored signals in insertion order.
func (s *Store) All() []Signal {
	out := make([]Signal, len(s.signals))
	for i, sig := range s.signals {
		out[i] = *sig
		out[i].consumers = slices.Clone(sig.consumers)
	}
	return out
}

// Snapshot returns an independent copy of the store.
func (s *Store) Snapshot() *Store {
	cp := &Store{signals: make([]*Signal, len(s.signals))}
	for i, sig := range s.signals {
		dup := *sig
		dup.consumers = slices.Clone(sig.consumers)
		cp.signals[i] = &dup
	}
	return cp
}

// Equal reports whether both stores hold the same signals in the same order.
// Consumer sets are ignored. Values compare with ir.ValuesEqual, so a store
// always equals its own snapshot, even when it holds NaN or a function.
func (s *Store) Equal(other *Store) bool {
	if other == nil {
		return false
	}
	if len(s.signals) != len(other.signals) {
		return false
	}
	for i, a := range s.signals {
		b := other.signals[i]
		if a == b {
			continue
		}
		if a.Beat != b.Beat || a.Name != b.Name || !ir.ValuesEqual(a.Value, b.Value) {
			return false
		}
	}
	return true
}
