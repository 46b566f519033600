// Package causes models root causes: leaf-level failures attributed to the
// computation that originated them. Causes propagate upward through the
// dependency graph unmodified, accumulating into deduplicated sets.
package causes

import (
	"fmt"
	"sort"

	"github.com/vk/buildgraphgo/internal/label"
)

// Cause identifies one leaf failure: the key of the originating computation,
// the label it belongs to, and a human-readable message.
type Cause struct {
	// Key is the string form of the originating node key.
	Key string `json:"key"`
	// Label is the owning target, when one is attributable.
	Label label.Label `json:"label"`
	// Message is the underlying failure message.
	Message string `json:"message"`
}

// String renders the cause as "label: message".
func (c Cause) String() string {
	return fmt.Sprintf("%s: %s", c.Label, c.Message)
}

// Set is an insertion-ordered set of causes, deduplicated by identity.
type Set struct {
	order []Cause
	seen  map[Cause]struct{}
}

// NewSet creates a set seeded with the given causes.
func NewSet(initial ...Cause) *Set {
	s := &Set{seen: make(map[Cause]struct{})}
	s.Add(initial...)
	return s
}

// Add inserts causes, ignoring duplicates.
func (s *Set) Add(causes ...Cause) {
	for _, c := range causes {
		if _, dup := s.seen[c]; dup {
			continue
		}
		s.seen[c] = struct{}{}
		s.order = append(s.order, c)
	}
}

// AddAll merges another set into this one.
func (s *Set) AddAll(other *Set) {
	if other == nil {
		return
	}
	s.Add(other.order...)
}

// Len returns the number of distinct causes.
func (s *Set) Len() int {
	return len(s.order)
}

// Causes returns the distinct causes in insertion order.
func (s *Set) Causes() []Cause {
	return append([]Cause(nil), s.order...)
}

// Sorted returns the distinct causes ordered by key, for stable reporting.
func (s *Set) Sorted() []Cause {
	out := s.Causes()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
