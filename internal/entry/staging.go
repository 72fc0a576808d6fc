package entry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"effortline/internal/domain"
)

var (
	// ErrEmptyBatch is returned when committing an empty staging collection.
	ErrEmptyBatch = errors.New("no entries to submit")
	// ErrUnknownField is returned when an update names a field that does not exist.
	ErrUnknownField = errors.New("unknown entry field")
)

// RejectionError carries the per-index errors of a batch that failed validation.
type RejectionError struct {
	Errors map[int]ErrorMap
}

func (e *RejectionError) Error() string {
	idx := e.Indices()
	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, fmt.Sprintf("%d", i))
	}
	return fmt.Sprintf("validation failed for entries at positions %s", strings.Join(parts, ","))
}

// Indices returns the failing positions in ascending order.
func (e *RejectionError) Indices() []int {
	idx := make([]int, 0, len(e.Errors))
	for i := range e.Errors {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// ValidateBatch validates every entry and returns a RejectionError when any fails.
func ValidateBatch(val *Validator, entries []domain.DraftEntry) error {
	failed := map[int]ErrorMap{}
	for i, e := range entries {
		if errs := val.Validate(e); !errs.Valid() {
			failed[i] = errs
		}
	}
	if len(failed) > 0 {
		return &RejectionError{Errors: failed}
	}
	return nil
}

// Staging is the ordered collection of draft entries of one session. Errors
// are keyed by position so they follow the entries the way they are shown.
type Staging struct {
	mu        sync.Mutex
	validator *Validator
	entries   []domain.DraftEntry
	errors    map[int]ErrorMap
	newID     func() string
}

// NewStaging returns an empty staging collection.
func NewStaging(val *Validator) *Staging {
	return &Staging{
		validator: val,
		errors:    map[int]ErrorMap{},
		newID:     func() string { return uuid.NewString() },
	}
}

// Add appends a blank entry and returns its local id.
func (s *Staging) Add() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.newID()
	s.entries = append(s.entries, domain.DraftEntry{LocalID: id})
	return id
}

// Update replaces one field of an entry and clears that field's error. An
// unknown local id is a no-op reported as false.
func (s *Staging) Update(localID string, field Field, value string) (bool, error) {
	if _, ok := ParseField(string(field)); !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(localID)
	if i < 0 {
		return false, nil
	}
	setField(&s.entries[i], field, value)
	if errs, ok := s.errors[i]; ok {
		delete(errs, string(field))
		if len(errs) == 0 {
			delete(s.errors, i)
		}
	}
	return true, nil
}

// Remove deletes an entry. Errors of entries before it keep their position,
// errors of entries after it shift down by one, the removed entry's are dropped.
func (s *Staging) Remove(localID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(localID)
	if i < 0 {
		return false
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	reindexed := make(map[int]ErrorMap, len(s.errors))
	for k, errs := range s.errors {
		switch {
		case k < i:
			reindexed[k] = errs
		case k > i:
			reindexed[k-1] = errs
		}
	}
	s.errors = reindexed
	return true
}

// Check validates one entry, stores its errors and returns them.
func (s *Staging) Check(localID string) (ErrorMap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(localID)
	if i < 0 {
		return nil, false
	}
	errs := s.validator.Validate(s.entries[i])
	if errs.Valid() {
		delete(s.errors, i)
	} else {
		s.errors[i] = errs
	}
	return errs.clone(), true
}

// CommitAll returns a copy of every entry when all of them are valid.
// Otherwise it returns a *RejectionError, records the errors and removes nothing.
func (s *Staging) CommitAll() ([]domain.DraftEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		return nil, ErrEmptyBatch
	}
	err := ValidateBatch(s.validator, s.entries)
	var rej *RejectionError
	if errors.As(err, &rej) {
		s.errors = make(map[int]ErrorMap, len(rej.Errors))
		for i, errs := range rej.Errors {
			s.errors[i] = errs.clone()
		}
		return nil, err
	}
	s.errors = map[int]ErrorMap{}
	return s.snapshot(), nil
}

// Discard removes the committed entries that are still unchanged and returns
// how many it removed. Entries added or edited after the batch was taken stay
// staged, and stored errors follow their entries to the new positions.
func (s *Staging) Discard(committed []domain.DraftEntry) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	done := make(map[string]domain.DraftEntry, len(committed))
	for _, e := range committed {
		done[e.LocalID] = e
	}
	kept := make([]domain.DraftEntry, 0, len(s.entries))
	reindexed := map[int]ErrorMap{}
	for i, e := range s.entries {
		if c, ok := done[e.LocalID]; ok && c == e {
			continue
		}
		if errs, ok := s.errors[i]; ok {
			reindexed[len(kept)] = errs
		}
		kept = append(kept, e)
	}
	removed := len(s.entries) - len(kept)
	s.entries = kept
	s.errors = reindexed
	return removed
}

// Clear empties the collection. Used when a session ends.
func (s *Staging) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.errors = map[int]ErrorMap{}
}

// Count returns the number of staged entries.
func (s *Staging) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// TotalHours sums hours across staged entries. Unparseable hours count as 0.
func (s *Staging) TotalHours() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, e := range s.entries {
		if h, ok := ParseHours(e.HoursWorked); ok {
			total += h
		}
	}
	return total
}

// HoursByDepartment sums parseable hours per non-empty department.
func (s *Staging) HoursByDepartment() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]float64{}
	for _, e := range s.entries {
		if e.Department == "" {
			continue
		}
		if h, ok := ParseHours(e.HoursWorked); ok {
			out[e.Department] += h
		}
	}
	return out
}

// Entries returns a copy of the staged entries in order.
func (s *Staging) Entries() []domain.DraftEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Get returns a copy of one entry.
func (s *Staging) Get(localID string) (domain.DraftEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(localID)
	if i < 0 {
		return domain.DraftEntry{}, false
	}
	return s.entries[i], true
}

// Errors returns a copy of the stored position-keyed errors.
func (s *Staging) Errors() map[int]ErrorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]ErrorMap, len(s.errors))
	for i, errs := range s.errors {
		out[i] = errs.clone()
	}
	return out
}

func (s *Staging) snapshot() []domain.DraftEntry {
	out := make([]domain.DraftEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Staging) indexOf(localID string) int {
	for i, e := range s.entries {
		if e.LocalID == localID {
			return i
		}
	}
	return -1
}
