// Package entry holds the analyst-side draft lifecycle: validating a single
// draft entry and staging a batch of drafts until it is committed.
package entry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"effortline/internal/config"
	"effortline/internal/domain"
)

// Field names a DraftEntry field as it appears on the wire.
type Field string

const (
	FieldDealName    Field = "deal_name"
	FieldDepartment  Field = "department"
	FieldType        Field = "type"
	FieldHoursWorked Field = "hours_worked"
	FieldDescription Field = "description"
	FieldTaskDate    Field = "task_date"
)

// Fields lists every draft field in display order.
var Fields = []Field{FieldDealName, FieldDepartment, FieldType, FieldHoursWorked, FieldDescription, FieldTaskDate}

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// ErrorMap maps field name to a human-readable message. Empty means valid.
type ErrorMap map[string]string

func (m ErrorMap) Valid() bool { return len(m) == 0 }

func (m ErrorMap) clone() ErrorMap {
	if m == nil {
		return nil
	}
	out := make(ErrorMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type rule struct {
	tag  string
	key  string
	args []string
}

// Validator checks draft entries against an entry policy. It is safe for
// concurrent use.
type Validator struct {
	Now func() time.Time

	policy config.EntryPolicy
	v      *validator.Validate
	trans  ut.Translator
	rules  map[Field][]rule
}

// NewValidator builds a Validator for the given policy.
func NewValidator(policy config.EntryPolicy) *Validator {
	enLoc := en.New()
	trans, _ := ut.New(enLoc, enLoc).GetTranslator("en")
	val := &Validator{
		Now:    time.Now,
		policy: policy,
		v:      validator.New(),
		trans:  trans,
	}
	val.registerTags()
	val.registerMessages()
	val.rules = val.buildRules()
	return val
}

// Policy returns the entry policy the validator enforces.
func (val *Validator) Policy() config.EntryPolicy { return val.policy }

func (val *Validator) registerTags() {
	departments := toSet(val.policy.Departments)
	types := toSet(val.policy.Types)
	_ = val.v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = val.v.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		_, ok := departments[fl.Field().String()]
		return ok
	})
	_ = val.v.RegisterValidation("entry_type", func(fl validator.FieldLevel) bool {
		_, ok := types[fl.Field().String()]
		return ok
	})
	_ = val.v.RegisterValidation("hours_positive", func(fl validator.FieldLevel) bool {
		h, ok := ParseHours(fl.Field().String())
		return ok && h > 0
	})
	_ = val.v.RegisterValidation("hours_ceiling", func(fl validator.FieldLevel) bool {
		h, ok := ParseHours(fl.Field().String())
		return !ok || h <= val.policy.MaxHours
	})
	_ = val.v.RegisterValidation("not_future", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(config.DateLayout, fl.Field().String())
		return err != nil || !d.After(val.today())
	})
	_ = val.v.RegisterValidation("not_before_min", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(config.DateLayout, fl.Field().String())
		return err != nil || !d.Before(val.policy.MinTaskDate())
	})
}

func (val *Validator) registerMessages() {
	for key, text := range map[string]string{
		"required":       "{0} is required",
		"max_chars":      "{0} must be {1} characters or less",
		"unrecognized":   "{0} is not recognized",
		"hours_positive": "{0} must be greater than 0",
		"hours_ceiling":  "{0} cannot exceed {1}",
		"invalid":        "{0} is invalid",
		"future":         "{0} cannot be in the future",
		"before_min":     "{0} cannot be before {1}",
	} {
		_ = val.trans.Add(key, text, true)
	}
}

func (val *Validator) buildRules() map[Field][]rule {
	p := val.policy
	maxHours := strconv.FormatFloat(p.MaxHours, 'f', -1, 64)
	minYear := strconv.Itoa(p.MinTaskDate().Year())
	return map[Field][]rule{
		FieldDealName: {
			{tag: "notblank", key: "required", args: []string{"Deal name"}},
			{tag: fmt.Sprintf("max=%d", p.MaxDealName), key: "max_chars", args: []string{"Deal name", strconv.Itoa(p.MaxDealName)}},
		},
		FieldDepartment: {
			{tag: "required", key: "required", args: []string{"Department"}},
			{tag: "department", key: "unrecognized", args: []string{"Department"}},
		},
		FieldType: {
			{tag: "required", key: "required", args: []string{"Type"}},
			{tag: "entry_type", key: "unrecognized", args: []string{"Type"}},
		},
		FieldHoursWorked: {
			{tag: "notblank", key: "required", args: []string{"Hours worked"}},
			{tag: "hours_positive", key: "hours_positive", args: []string{"Hours"}},
			{tag: "hours_ceiling", key: "hours_ceiling", args: []string{"Hours", maxHours}},
		},
		FieldDescription: {
			{tag: fmt.Sprintf("max=%d", p.MaxDescription), key: "max_chars", args: []string{"Description", strconv.Itoa(p.MaxDescription)}},
		},
		FieldTaskDate: {
			{tag: "notblank", key: "required", args: []string{"Task date"}},
			{tag: "datetime=" + config.DateLayout, key: "invalid", args: []string{"Task date"}},
			{tag: "not_future", key: "future", args: []string{"Task date"}},
			{tag: "not_before_min", key: "before_min", args: []string{"Task date", minYear}},
		},
	}
}

// Validate checks every field of e and reports all failures together.
func (val *Validator) Validate(e domain.DraftEntry) ErrorMap {
	errs := ErrorMap{}
	for _, f := range Fields {
		if msg := val.ValidateField(e, f); msg != "" {
			errs[string(f)] = msg
		}
	}
	return errs
}

// ValidateField returns the message for the first rule f violates, or "".
func (val *Validator) ValidateField(e domain.DraftEntry, f Field) string {
	value := fieldValue(e, f)
	for _, r := range val.rules[f] {
		if err := val.v.Var(value, r.tag); err != nil {
			msg, terr := val.trans.T(r.key, r.args...)
			if terr != nil {
				return err.Error()
			}
			return msg
		}
	}
	return ""
}

// today is the evaluation date at midnight UTC.
func (val *Validator) today() time.Time {
	now := time.Now
	if val.Now != nil {
		now = val.Now
	}
	y, m, d := now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseHours parses a finite hour count.
func ParseHours(s string) (float64, bool) {
	h, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, false
	}
	return h, true
}

func fieldValue(e domain.DraftEntry, f Field) string {
	switch f {
	case FieldDealName:
		return e.DealName
	case FieldDepartment:
		return e.Department
	case FieldType:
		return e.Type
	case FieldHoursWorked:
		return e.HoursWorked
	case FieldDescription:
		return e.Description
	case FieldTaskDate:
		return e.TaskDate
	}
	return ""
}

func setField(e *domain.DraftEntry, f Field, value string) {
	switch f {
	case FieldDealName:
		e.DealName = value
	case FieldDepartment:
		e.Department = value
	case FieldType:
		e.Type = value
	case FieldHoursWorked:
		e.HoursWorked = value
	case FieldDescription:
		e.Description = value
	case FieldTaskDate:
		e.TaskDate = value
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, s := range items {
		set[s] = struct{}{}
	}
	return set
}
