package entry

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"effortline/internal/config"
	"effortline/internal/domain"
)

var fixedNow = time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

func newTestValidator() *Validator {
	v := NewValidator(config.Default().Entry)
	v.Now = func() time.Time { return fixedNow }
	return v
}

func validEntry() domain.DraftEntry {
	return domain.DraftEntry{
		LocalID:     "l1",
		DealName:    "Acme",
		Department:  "Technology",
		Type:        "Core",
		HoursWorked: "8",
		TaskDate:    "2024-05-01",
	}
}

func TestValidateValidEntry(t *testing.T) {
	assert.Empty(t, newTestValidator().Validate(validEntry()))
}

func TestValidateBlankEntryReportsEveryRequiredField(t *testing.T) {
	errs := newTestValidator().Validate(domain.DraftEntry{})
	assert.Equal(t, ErrorMap{
		"deal_name":    "Deal name is required",
		"department":   "Department is required",
		"type":         "Type is required",
		"hours_worked": "Hours worked is required",
		"task_date":    "Task date is required",
	}, errs)
}

func TestValidateDealName(t *testing.T) {
	v := newTestValidator()
	e := validEntry()
	e.DealName = "   "
	assert.Equal(t, "Deal name is required", v.Validate(e)["deal_name"])
	e.DealName = strings.Repeat("x", 50)
	assert.NotContains(t, v.Validate(e), "deal_name")
	e.DealName = strings.Repeat("x", 51)
	assert.Equal(t, "Deal name must be 50 characters or less", v.Validate(e)["deal_name"])
}

func TestValidateEnums(t *testing.T) {
	v := newTestValidator()
	e := validEntry()
	e.Department = "Marketing"
	e.Type = "Side"
	errs := v.Validate(e)
	assert.Equal(t, "Department is not recognized", errs["department"])
	assert.Equal(t, "Type is not recognized", errs["type"])

	e.Department = "Asset Monitoring"
	e.Type = "Project"
	assert.Empty(t, v.Validate(e))
}

func TestValidateHours(t *testing.T) {
	v := newTestValidator()
	for _, bad := range []string{"0", "-1", "-0.5", "abc", "NaN", "Inf"} {
		e := validEntry()
		e.HoursWorked = bad
		assert.Equal(t, "Hours must be greater than 0", v.Validate(e)["hours_worked"], bad)
	}
	for _, good := range []string{"0.25", "1", "7.5", "199.99", "200"} {
		e := validEntry()
		e.HoursWorked = good
		assert.NotContains(t, v.Validate(e), "hours_worked", good)
	}
	e := validEntry()
	e.HoursWorked = "200.01"
	assert.Equal(t, "Hours cannot exceed 200", v.Validate(e)["hours_worked"])
}

func TestValidateHoursCustomCeiling(t *testing.T) {
	policy := config.Default().Entry
	policy.MaxHours = 24
	v := NewValidator(policy)
	v.Now = func() time.Time { return fixedNow }
	e := validEntry()
	e.HoursWorked = "24.5"
	assert.Equal(t, "Hours cannot exceed 24", v.Validate(e)["hours_worked"])
}

func TestValidateDescription(t *testing.T) {
	v := newTestValidator()
	e := validEntry()
	e.Description = strings.Repeat("d", 1000)
	assert.Empty(t, v.Validate(e))
	e.Description = strings.Repeat("d", 1001)
	assert.Equal(t, "Description must be 1000 characters or less", v.Validate(e)["description"])
}

func TestValidateTaskDate(t *testing.T) {
	v := newTestValidator()
	cases := map[string]string{
		"2024-06-16": "Task date cannot be in the future",
		"2030-01-01": "Task date cannot be in the future",
		"2019-12-31": "Task date cannot be before 2020",
		"15/06/2024": "Task date is invalid",
		"2024-02-30": "Task date is invalid",
	}
	for date, want := range cases {
		e := validEntry()
		e.TaskDate = date
		assert.Equal(t, want, v.Validate(e)["task_date"], date)
	}
	for _, date := range []string{"2020-01-01", "2024-06-15", "2022-07-04"} {
		e := validEntry()
		e.TaskDate = date
		assert.NotContains(t, v.Validate(e), "task_date", date)
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	v := newTestValidator()
	e := domain.DraftEntry{DealName: " ", HoursWorked: "x", TaskDate: "2099-01-01"}
	assert.Equal(t, v.Validate(e), v.Validate(e))
}

func TestValidateField(t *testing.T) {
	v := newTestValidator()
	e := validEntry()
	e.HoursWorked = ""
	assert.Equal(t, "Hours worked is required", v.ValidateField(e, FieldHoursWorked))
	assert.Equal(t, "", v.ValidateField(e, FieldDealName))
}
