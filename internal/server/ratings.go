package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"effortline/internal/app"
	"effortline/internal/engine"
)

func registerSubmissions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "my-submissions",
		Method:      http.MethodGet,
		Path:        "/submissions/mine",
		Summary:     "Entries the caller has submitted",
		Errors:      []int{http.StatusUnauthorized, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body SubmissionsResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		subs, err := e.MySubmissions(ctx, p.Identity)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body SubmissionsResponse `json:"body"`
		}{Body: SubmissionsResponse{Items: nonNilSlice(subs)}}, nil
	})
}

func registerRatings(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "reconcile",
		Method:      http.MethodGet,
		Path:        "/ratings/reconcile",
		Summary:     "Submissions split into unrated and rated",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body ReconcileResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		part, err := e.Reconcile(ctx, p.Identity)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ReconcileResponse `json:"body"`
		}{Body: ReconcileResponse{
			Unrated:      part.Unrated,
			Rated:        part.Rated,
			UnratedCount: len(part.Unrated),
			RatedCount:   len(part.Rated),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-ratings",
		Method:      http.MethodGet,
		Path:        "/ratings",
		Summary:     "Every rating, most recent first",
		Errors:      []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body RatingsResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.ListRatings(ctx, p.Identity)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RatingsResponse `json:"body"`
		}{Body: RatingsResponse{Items: nonNilSlice(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "rate-submission",
		Method:      http.MethodPost,
		Path:        "/ratings",
		Summary:     "Rate a submission",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		Body RateRequest `json:"body"`
	}) (*struct {
		Body RateResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := checkRequest(input.Body); err != nil {
			return nil, handleError(err)
		}
		release, err := p.Session.TryAcquire(app.RatingKey(input.Body.SubmissionID))
		if err != nil {
			return nil, handleError(err)
		}
		defer release()
		res, err := e.Rate(ctx, p.Identity, input.Body.SubmissionID, input.Body.Value)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RateResponse `json:"body"`
		}{Body: RateResponse{Rating: res.Rating, Transition: string(res.Transition)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-rating",
		Method:      http.MethodPatch,
		Path:        "/ratings/{rating_id}",
		Summary:     "Change the value of a rating",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnprocessableEntity,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		RatingID string              `path:"rating_id"`
		Body     UpdateRatingRequest `json:"body"`
	}) (*struct {
		Body RateResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Authorize(ctx, p.Identity); err != nil {
			return nil, handleError(err)
		}
		if err := e.CheckRange(input.Body.Value); err != nil {
			return nil, handleError(err)
		}
		current, err := e.GetRating(ctx, p.Identity, input.RatingID)
		if err != nil {
			return nil, handleError(err)
		}
		release, err := p.Session.TryAcquire(app.RatingKey(current.SubmissionID))
		if err != nil {
			return nil, handleError(err)
		}
		defer release()
		rt, err := e.UpdateRating(ctx, p.Identity, input.RatingID, input.Body.Value)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RateResponse `json:"body"`
		}{Body: RateResponse{Rating: rt, Transition: string(engine.TransitionUpdate)}}, nil
	})
}
