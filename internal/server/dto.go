package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"effortline/internal/domain"
	"effortline/internal/entry"
)

// Request payloads

type LoginRequest struct {
	Identity string `json:"identity" validate:"required,max=254" example:"jane.doe@example.com"`
	Secret   string `json:"secret" validate:"required"`
}

type UpdateDraftRequest struct {
	Field string `json:"field" validate:"required" enum:"deal_name,department,type,hours_worked,description,task_date"`
	Value string `json:"value"`
}

type RateRequest struct {
	SubmissionID string `json:"submission_id" validate:"required"`
	Value        int    `json:"value"`
}

type UpdateRatingRequest struct {
	Value int `json:"value"`
}

// Response payloads

type LoginResponse struct {
	Token       string `json:"token"`
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Admin       bool   `json:"admin"`
	ExpiresAt   string `json:"expires_at" format:"date-time"`
}

type MeResponse struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Admin       bool   `json:"admin"`
	Source      string `json:"source" enum:"jwt,api_key"`
	DraftCount  int    `json:"draft_count"`
}

type DraftsResponse struct {
	Entries           []domain.DraftEntry       `json:"entries"`
	Errors            map[string]entry.ErrorMap `json:"errors"`
	Count             int                       `json:"count"`
	TotalHours        float64                   `json:"total_hours"`
	HoursByDepartment map[string]float64        `json:"hours_by_department"`
}

type DraftResponse struct {
	Entry domain.DraftEntry `json:"entry"`
	// FieldError is the live validation message of the field just edited.
	FieldError string         `json:"field_error,omitempty"`
	Errors     entry.ErrorMap `json:"errors,omitempty"`
}

type ValidateResponse struct {
	Valid      bool    `json:"valid"`
	Count      int     `json:"count"`
	TotalHours float64 `json:"total_hours"`
}

type SubmissionsResponse struct {
	Items []domain.Submission `json:"items"`
}

type ReconcileResponse struct {
	Unrated      []domain.Submission      `json:"unrated"`
	Rated        []domain.RatedSubmission `json:"rated"`
	UnratedCount int                      `json:"unrated_count"`
	RatedCount   int                      `json:"rated_count"`
}

type RatingsResponse struct {
	Items []domain.Rating `json:"items"`
}

type RateResponse struct {
	Rating     domain.Rating `json:"rating"`
	Transition string        `json:"transition" enum:"insert,update"`
}

var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// checkRequest runs the validate tags of a request body.
func checkRequest(body any) error {
	err := requestValidator.Struct(body)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := map[string]string{}
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return newAPIError(http.StatusBadRequest, "bad_request", "invalid request body", map[string]any{"fields": fields})
}

func indexKeyed(in map[int]entry.ErrorMap) map[string]entry.ErrorMap {
	out := make(map[string]entry.ErrorMap, len(in))
	for i, m := range in {
		out[strconv.Itoa(i)] = m
	}
	return out
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
