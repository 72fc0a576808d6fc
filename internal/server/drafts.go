package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"effortline/internal/app"
	"effortline/internal/engine"
	"effortline/internal/entry"
	"effortline/internal/repo"
)

type draftPath struct {
	LocalID string `path:"local_id"`
}

func draftsSnapshot(s *app.Session) DraftsResponse {
	st := s.Staging
	return DraftsResponse{
		Entries:           nonNilSlice(st.Entries()),
		Errors:            indexKeyed(st.Errors()),
		Count:             st.Count(),
		TotalHours:        st.TotalHours(),
		HoursByDepartment: st.HoursByDepartment(),
	}
}

func registerDrafts(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-drafts",
		Method:      http.MethodGet,
		Path:        "/drafts",
		Summary:     "Review staged entries",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body DraftsResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body DraftsResponse `json:"body"`
		}{Body: draftsSnapshot(p.Session)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-draft",
		Method:        http.MethodPost,
		Path:          "/drafts",
		Summary:       "Append a blank entry",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body DraftResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id := p.Session.Staging.Add()
		d, _ := p.Session.Staging.Get(id)
		return &struct {
			Body DraftResponse `json:"body"`
		}{Body: DraftResponse{Entry: d}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-draft",
		Method:      http.MethodPatch,
		Path:        "/drafts/{local_id}",
		Summary:     "Edit one field of a staged entry",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		draftPath
		Body UpdateDraftRequest `json:"body"`
	}) (*struct {
		Body DraftResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := checkRequest(input.Body); err != nil {
			return nil, handleError(err)
		}
		field, ok := entry.ParseField(input.Body.Field)
		if !ok {
			return nil, handleError(entry.ErrUnknownField)
		}
		found, err := p.Session.Staging.Update(input.LocalID, field, input.Body.Value)
		if err != nil {
			return nil, handleError(err)
		}
		if !found {
			return nil, handleError(repo.ErrNotFound)
		}
		d, _ := p.Session.Staging.Get(input.LocalID)
		return &struct {
			Body DraftResponse `json:"body"`
		}{Body: DraftResponse{Entry: d, FieldError: e.Validator.ValidateField(d, field)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-draft",
		Method:        http.MethodDelete,
		Path:          "/drafts/{local_id}",
		Summary:       "Remove a staged entry",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *draftPath) (*struct{}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if !p.Session.Staging.Remove(input.LocalID) {
			return nil, handleError(repo.ErrNotFound)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-draft",
		Method:      http.MethodPost,
		Path:        "/drafts/{local_id}/check",
		Summary:     "Validate one staged entry",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *draftPath) (*struct {
		Body DraftResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		errs, ok := p.Session.Staging.Check(input.LocalID)
		if !ok {
			return nil, handleError(repo.ErrNotFound)
		}
		d, _ := p.Session.Staging.Get(input.LocalID)
		return &struct {
			Body DraftResponse `json:"body"`
		}{Body: DraftResponse{Entry: d, Errors: errs}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "validate-drafts",
		Method:      http.MethodPost,
		Path:        "/drafts/validate",
		Summary:     "Validate every staged entry without submitting",
		Errors:      []int{http.StatusUnauthorized, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ValidateResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		entries, err := p.Session.Staging.CommitAll()
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ValidateResponse `json:"body"`
		}{Body: ValidateResponse{Valid: true, Count: len(entries), TotalHours: p.Session.Staging.TotalHours()}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "commit-drafts",
		Method:      http.MethodPost,
		Path:        "/drafts/commit",
		Summary:     "Submit every staged entry as one batch",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body engine.CommitResult `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		res, err := e.CommitStaged(ctx, p.Session)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.CommitResult `json:"body"`
		}{Body: res}, nil
	})
}
