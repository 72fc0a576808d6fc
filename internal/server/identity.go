package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"effortline/internal/engine"
	"effortline/internal/engine/auth"
	"effortline/internal/logger"
)

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerIdentity(api huma.API, cfg Config) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Sign in and start a session",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusServiceUnavailable},
	}, func(ctx context.Context, input *struct {
		Body LoginRequest `json:"body"`
	}) (*struct {
		Body LoginResponse `json:"body"`
	}, error) {
		if err := checkRequest(input.Body); err != nil {
			return nil, handleError(err)
		}
		identity, err := cfg.Authenticator.SignIn(ctx, input.Body.Identity, input.Body.Secret)
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.C(ctx).Info().Str("identity", strings.TrimSpace(input.Body.Identity)).Msg("sign in refused")
			return nil, handleError(err)
		}
		if err != nil {
			logger.C(ctx).Error().Err(err).Msg("sign in failed")
			return nil, handleError(&engine.StoreError{Op: "sign in", Err: err})
		}
		sess := cfg.Sessions.Create(identity)
		now := time.Now().UTC()
		token, err := signSessionToken(cfg.Auth, identity, sess.ID, now)
		if err != nil {
			cfg.Sessions.Delete(sess.ID)
			logger.C(ctx).Error().Err(err).Msg("sign session token")
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
		}
		logger.C(ctx).Info().Str("identity", identity).Bool("admin", sess.Admin).Msg("signed in")
		return &struct {
			Body LoginResponse `json:"body"`
		}{Body: LoginResponse{
			Token:       token,
			Identity:    identity,
			DisplayName: engine.DisplayName(identity),
			Admin:       sess.Admin,
			ExpiresAt:   now.Add(cfg.Auth.ttl()).Format(time.RFC3339),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "End the session and discard its drafts",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct{}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if p.Source == "jwt" {
			cfg.Sessions.Delete(p.Session.ID)
		} else {
			p.Session.Staging.Clear()
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body MeResponse `json:"body"`
	}, error) {
		p, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		return &struct {
			Body MeResponse `json:"body"`
		}{Body: MeResponse{
			Identity:    p.Identity,
			DisplayName: engine.DisplayName(p.Identity),
			Admin:       p.Session.Admin,
			Source:      p.Source,
			DraftCount:  p.Session.Staging.Count(),
		}}, nil
	})
}
