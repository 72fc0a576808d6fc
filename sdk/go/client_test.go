package effortlinesdk_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"effortline/internal/config"
	"effortline/internal/engine"
	"effortline/internal/engine/auth"
	"effortline/internal/logger"
	"effortline/internal/server"
	"effortline/internal/testutil"
	effortlinesdk "effortline/sdk/go"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger.Discard()
	cfg := config.Default()
	cfg.Admins = []string{"rater@example.com"}
	e := engine.New(testutil.OpenMigrated(t), cfg)
	e.Validator.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	dir := auth.Directory{Repo: e.Repo}
	for _, id := range []string{"jane.doe@example.com", "rater@example.com"} {
		_, err := dir.Register(context.Background(), id, "correct-horse")
		require.NoError(t, err)
	}
	h, err := server.New(server.Config{Engine: e, Authenticator: dir, Auth: server.AuthConfig{JWTSecret: "sdk-secret"}})
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	analyst := effortlinesdk.New(srv.URL)
	sess, err := analyst.Login(ctx, "jane.doe@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", sess.DisplayName)

	d, err := analyst.AddDraft(ctx)
	require.NoError(t, err)
	for f, v := range map[string]string{
		"deal_name":    "Acme",
		"department":   "Technology",
		"type":         "Core",
		"hours_worked": "8",
		"task_date":    "2024-05-01",
	} {
		res, err := analyst.UpdateDraft(ctx, d.LocalID, f, v)
		require.NoError(t, err)
		assert.Empty(t, res.FieldError, f)
	}
	committed, err := analyst.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, committed.Count)

	mine, err := analyst.MySubmissions(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = analyst.Reconcile(ctx)
	var apiErr *effortlinesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "access_denied", apiErr.Code)

	rater := effortlinesdk.New(srv.URL)
	_, err = rater.Login(ctx, "rater@example.com", "correct-horse")
	require.NoError(t, err)
	rec, err := rater.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rec.UnratedCount)

	rated, err := rater.Rate(ctx, rec.Unrated[0].ID, 6)
	require.NoError(t, err)
	assert.Equal(t, "insert", rated.Transition)
	updated, err := rater.UpdateRating(ctx, rated.Rating.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, updated.Rating.Value)

	rec, err = rater.Reconcile(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, rec.RatedCount)
	assert.Equal(t, "Acme", rec.Rated[0].Submission.DealName)
	require.NotNil(t, rec.Rated[0].Mine)
	assert.Equal(t, 8, rec.Rated[0].Mine.Value)

	require.NoError(t, analyst.Logout(ctx))
	assert.Empty(t, analyst.BearerToken)
}

func TestClientValidationError(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c := effortlinesdk.New(srv.URL)
	_, err := c.Login(ctx, "jane.doe@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = c.AddDraft(ctx)
	require.NoError(t, err)
	_, err = c.Commit(ctx)
	var apiErr *effortlinesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 422, apiErr.StatusCode)
	assert.Equal(t, "validation_failed", apiErr.Code)
	assert.Contains(t, apiErr.Details, "errors")

	drafts, err := c.Drafts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, drafts.Count)
	assert.Equal(t, "Deal name is required", drafts.Errors["0"]["deal_name"])
}
