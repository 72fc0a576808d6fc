package entry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, s *Staging, id, deal, hours string) {
	t.Helper()
	for f, v := range map[Field]string{
		FieldDealName:    deal,
		FieldDepartment:  "Technology",
		FieldType:        "Core",
		FieldHoursWorked: hours,
		FieldTaskDate:    "2024-05-01",
	} {
		ok, err := s.Update(id, f, v)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestStagingAddUpdateTotals(t *testing.T) {
	s := NewStaging(newTestValidator())
	assert.Equal(t, 0, s.Count())

	a := s.Add()
	fill(t, s, a, "Acme", "3.5")
	b := s.Add()
	fill(t, s, b, "Globex", "4.0")

	assert.Equal(t, 2, s.Count())
	assert.Equal(t, 7.5, s.TotalHours())
	assert.Equal(t, map[string]float64{"Technology": 7.5}, s.HoursByDepartment())

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, a, entries[0].LocalID)
	assert.Equal(t, "Globex", entries[1].DealName)
}

func TestStagingUpdateUnknownIDIsNoop(t *testing.T) {
	s := NewStaging(newTestValidator())
	s.Add()
	ok, err := s.Update("missing", FieldDealName, "x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", s.Entries()[0].DealName)
}

func TestStagingUpdateUnknownField(t *testing.T) {
	s := NewStaging(newTestValidator())
	id := s.Add()
	_, err := s.Update(id, Field("rating"), "x")
	assert.True(t, errors.Is(err, ErrUnknownField))
}

func TestStagingUpdateClearsFieldError(t *testing.T) {
	s := NewStaging(newTestValidator())
	id := s.Add()
	errs, ok := s.Check(id)
	require.True(t, ok)
	require.Contains(t, errs, "deal_name")

	_, err := s.Update(id, FieldDealName, "Acme")
	require.NoError(t, err)
	stored := s.Errors()[0]
	assert.NotContains(t, stored, "deal_name")
	assert.Contains(t, stored, "department")
}

func TestStagingCommitAllRejectsAndIsIdempotent(t *testing.T) {
	s := NewStaging(newTestValidator())
	a := s.Add()
	fill(t, s, a, "Acme", "8")
	s.Add()

	_, err1 := s.CommitAll()
	_, err2 := s.CommitAll()
	var rej1, rej2 *RejectionError
	require.True(t, errors.As(err1, &rej1))
	require.True(t, errors.As(err2, &rej2))
	assert.Equal(t, rej1.Errors, rej2.Errors)
	assert.Equal(t, []int{1}, rej1.Indices())
	assert.Equal(t, 2, s.Count(), "rejection must not remove entries")
	assert.Equal(t, rej1.Errors, s.Errors())
}

func TestStagingCommitAllEmpty(t *testing.T) {
	s := NewStaging(newTestValidator())
	_, err := s.CommitAll()
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestStagingCommitAllReturnsOrderedCopy(t *testing.T) {
	s := NewStaging(newTestValidator())
	a := s.Add()
	fill(t, s, a, "Acme", "1")
	b := s.Add()
	fill(t, s, b, "Globex", "2")

	entries, err := s.CommitAll()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Acme", entries[0].DealName)
	entries[0].DealName = "mutated"
	assert.Equal(t, "Acme", s.Entries()[0].DealName)
}

func TestStagingRemoveReindexesErrors(t *testing.T) {
	s := NewStaging(newTestValidator())
	ids := []string{s.Add(), s.Add(), s.Add(), s.Add()}
	fill(t, s, ids[2], "Valid", "1")
	// entries 0, 1 and 3 are invalid
	_, err := s.CommitAll()
	require.Error(t, err)
	before := s.Errors()
	require.Len(t, before, 3)

	require.True(t, s.Remove(ids[1]))
	after := s.Errors()
	assert.Len(t, after, 2)
	assert.Equal(t, before[0], after[0], "entry before the removed one keeps its errors")
	assert.NotContains(t, after, 1, "valid entry moved into position 1 has no errors")
	assert.Equal(t, before[3], after[2], "entry after the removed one shifts down")
}

func TestStagingRemoveToEmpty(t *testing.T) {
	s := NewStaging(newTestValidator())
	id := s.Add()
	assert.True(t, s.Remove(id))
	assert.False(t, s.Remove(id))
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.Entries())
}

func TestStagingClear(t *testing.T) {
	s := NewStaging(newTestValidator())
	s.Add()
	s.Add()
	_, _ = s.CommitAll()
	s.Clear()
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.Errors())
	assert.Equal(t, 0.0, s.TotalHours())
}

func TestStagingDiscardKeepsChangedAndNewEntries(t *testing.T) {
	s := NewStaging(newTestValidator())
	a := s.Add()
	fill(t, s, a, "Acme", "3")
	b := s.Add()
	fill(t, s, b, "Globex", "4")
	committed, err := s.CommitAll()
	require.NoError(t, err)

	// edits and additions that land after the batch was taken
	ok, err := s.Update(b, FieldHoursWorked, "5")
	require.NoError(t, err)
	require.True(t, ok)
	c := s.Add()
	_, found := s.Check(c)
	require.True(t, found)

	assert.Equal(t, 1, s.Discard(committed))
	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, b, entries[0].LocalID)
	assert.Equal(t, "5", entries[0].HoursWorked)
	assert.Equal(t, c, entries[1].LocalID)

	errs := s.Errors()
	assert.NotContains(t, errs, 0)
	assert.Contains(t, errs[1], string(FieldDealName))

	assert.Equal(t, 0, s.Discard(committed))
	assert.Equal(t, 2, s.Count())
}
