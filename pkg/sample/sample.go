// Package sample defines the metric model emitted by awslimits.
package sample

import (
	"time"

	"github.com/google/btree"
)

// Sample is one collected fact about an account.
// Value holds counts, capacity units or storage sizes. Text is only set for
// string-valued facts such as the supported EC2 platform.
type Sample struct {
	Name  string `json:"name"`  // Dotted name (e.g., "rds.total_storage")
	Value int64  `json:"value"` // Non-negative integer value
	Text  string `json:"text,omitempty"`
}

// IsText reports whether the sample carries a string value.
func (s Sample) IsText() bool {
	return s.Text != ""
}

// Kind separates usage facts from account limits.
type Kind string

const (
	// KindUsage marks current resource consumption.
	KindUsage Kind = "usage"
	// KindLimit marks an account-level quota.
	KindLimit Kind = "limit"
)

// Prefix returns the queue key prefix for the kind.
func (k Kind) Prefix() string {
	if k == KindLimit {
		return "aws_service.limit."
	}
	return "aws_service.using_resource."
}

// Item is a sample addressed to a host, ready to be queued.
type Item struct {
	Key   string    `json:"key"`
	Kind  Kind      `json:"kind"`
	Value int64     `json:"value"`
	Text  string    `json:"text,omitempty"`
	Host  string    `json:"host"`
	Clock time.Time `json:"clock"`
}

// NewItem builds the queued form of s.
func NewItem(kind Kind, s Sample, host string, clock time.Time) Item {
	return Item{
		Key:   kind.Prefix() + s.Name,
		Kind:  kind,
		Value: s.Value,
		Text:  s.Text,
		Host:  host,
		Clock: clock,
	}
}

const setDegree = 8

func lessByName(a, b Sample) bool {
	return a.Name < b.Name
}

// Set is a collection of samples keyed by name and iterated in name order.
// Adding a sample whose name already exists replaces the previous one.
type Set struct {
	tree *btree.BTreeG[Sample]
}

// NewSet returns a set holding the given samples.
func NewSet(samples ...Sample) *Set {
	s := &Set{tree: btree.NewG(setDegree, lessByName)}
	for _, smp := range samples {
		s.Put(smp)
	}
	return s
}

// Put adds or replaces a sample.
func (s *Set) Put(smp Sample) {
	s.tree.ReplaceOrInsert(smp)
}

// Add is shorthand for Put with a numeric value.
func (s *Set) Add(name string, value int64) {
	s.Put(Sample{Name: name, Value: value})
}

// AddText is shorthand for Put with a string value.
func (s *Set) AddText(name, text string) {
	s.Put(Sample{Name: name, Text: text})
}

// Get returns the sample with the given name.
func (s *Set) Get(name string) (Sample, bool) {
	return s.tree.Get(Sample{Name: name})
}

// Value returns the numeric value for name, or false if absent.
func (s *Set) Value(name string) (int64, bool) {
	smp, ok := s.Get(name)
	if !ok {
		return 0, false
	}
	return smp.Value, true
}

// Has reports whether name is present.
func (s *Set) Has(name string) bool {
	return s.tree.Has(Sample{Name: name})
}

// Len returns the number of samples.
func (s *Set) Len() int {
	if s == nil || s.tree == nil {
		return 0
	}
	return s.tree.Len()
}

// Merge copies every sample of other into s; other wins on name clashes.
func (s *Set) Merge(other *Set) {
	if other.Len() == 0 {
		return
	}
	other.tree.Ascend(func(smp Sample) bool {
		s.Put(smp)
		return true
	})
}

// Samples returns all samples ordered by name.
func (s *Set) Samples() []Sample {
	if s.Len() == 0 {
		return nil
	}
	out := make([]Sample, 0, s.tree.Len())
	s.tree.Ascend(func(smp Sample) bool {
		out = append(out, smp)
		return true
	})
	return out
}

// Map returns the numeric values keyed by name. Text samples are skipped.
func (s *Set) Map() map[string]int64 {
	out := make(map[string]int64, s.Len())
	for _, smp := range s.Samples() {
		if smp.IsText() {
			continue
		}
		out[smp.Name] = smp.Value
	}
	return out
}
