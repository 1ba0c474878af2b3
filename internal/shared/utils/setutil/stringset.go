// Package setutil provides generic set utilities for common ID collection patterns.
package setutil

import "sort"

// StringSet is a set of string values.
// It uses map[string]struct{} internally for memory efficiency.
type StringSet struct {
	items map[string]struct{}
}

// NewStringSet creates a new empty StringSet.
func NewStringSet() *StringSet {
	return &StringSet{
		items: make(map[string]struct{}),
	}
}

// NewStringSetWithCap creates a new StringSet with initial capacity.
func NewStringSetWithCap(cap int) *StringSet {
	return &StringSet{
		items: make(map[string]struct{}, cap),
	}
}

// NewStringSetFrom creates a StringSet containing the given values.
func NewStringSetFrom(values []string) *StringSet {
	s := NewStringSetWithCap(len(values))
	s.AddAll(values)
	return s
}

// Add adds a value to the set.
func (s *StringSet) Add(value string) {
	s.items[value] = struct{}{}
}

// AddAll adds all values to the set.
func (s *StringSet) AddAll(values []string) {
	for _, v := range values {
		s.items[v] = struct{}{}
	}
}

// Remove removes a value from the set. Removing an absent value is a no-op.
func (s *StringSet) Remove(value string) {
	delete(s.items, value)
}

// Has returns true if the value exists in the set.
func (s *StringSet) Has(value string) bool {
	_, ok := s.items[value]
	return ok
}

// Union adds every element of other into s and returns s.
func (s *StringSet) Union(other *StringSet) *StringSet {
	for v := range other.items {
		s.items[v] = struct{}{}
	}
	return s
}

// ToSlice returns all values as a slice.
// The order is not guaranteed.
func (s *StringSet) ToSlice() []string {
	result := make([]string, 0, len(s.items))
	for v := range s.items {
		result = append(result, v)
	}
	return result
}

// ToSortedSlice returns all values sorted ascending.
func (s *StringSet) ToSortedSlice() []string {
	result := s.ToSlice()
	sort.Strings(result)
	return result
}

// Len returns the number of elements in the set.
func (s *StringSet) Len() int {
	return len(s.items)
}
