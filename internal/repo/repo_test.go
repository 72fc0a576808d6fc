package repo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"effortline/internal/domain"
	"effortline/internal/repo"
	"effortline/internal/testutil"
)

func sub(id, analyst, at string) domain.Submission {
	return domain.Submission{
		ID: id, Analyst: analyst, DealName: "Deal " + id, Department: "CRE", Type: "Core",
		HoursWorked: 1.5, TaskDate: "2024-05-01", SubmittedAt: at,
	}
}

func TestSubmissionsOrdering(t *testing.T) {
	ctx := context.Background()
	r := repo.Repo{DB: testutil.OpenMigrated(t)}

	require.NoError(t, r.InsertSubmissions(ctx, []domain.Submission{
		sub("a", "x@example.com", "2024-06-01T10:00:00.000000Z"),
		sub("b", "x@example.com", "2024-06-01T10:00:00.000000Z"),
	}))
	require.NoError(t, r.InsertSubmissions(ctx, []domain.Submission{
		sub("c", "y@example.com", "2024-06-02T08:00:00.000000Z"),
	}))

	all, err := r.ListSubmissions(ctx)
	require.NoError(t, err)
	var ids []string
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	mine, err := r.ListSubmissionsByAnalyst(ctx, "y@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 1.5, mine[0].HoursWorked)

	_, err = r.GetSubmission(ctx, "zzz")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	err = r.InsertSubmissions(ctx, []domain.Submission{sub("a", "x@example.com", "2024-06-03T00:00:00.000000Z")})
	assert.ErrorIs(t, err, repo.ErrDuplicate)
	assert.Error(t, r.InsertSubmissions(ctx, nil))
}

func TestInsertSubmissionsIsAtomic(t *testing.T) {
	ctx := context.Background()
	r := repo.Repo{DB: testutil.OpenMigrated(t)}

	bad := sub("bad", "x@example.com", "2024-06-01T10:00:00.000000Z")
	bad.HoursWorked = 0
	err := r.InsertSubmissions(ctx, []domain.Submission{sub("ok", "x@example.com", "2024-06-01T10:00:00.000000Z"), bad})
	require.Error(t, err)

	all, err := r.ListSubmissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRatingsUniquePerRater(t *testing.T) {
	ctx := context.Background()
	r := repo.Repo{DB: testutil.OpenMigrated(t)}
	require.NoError(t, r.InsertSubmissions(ctx, []domain.Submission{sub("s1", "x@example.com", "2024-06-01T10:00:00.000000Z")}))

	rt := domain.Rating{ID: "r1", SubmissionID: "s1", Value: 5, RatedBy: "admin@example.com", RatedAt: "2024-06-02T10:00:00.000000Z",
		Analyst: "x@example.com", DealName: "Deal s1", Department: "CRE", Type: "Core", TaskDate: "2024-05-01"}
	require.NoError(t, r.InsertRating(ctx, rt))

	dup := rt
	dup.ID = "r2"
	assert.True(t, errors.Is(r.InsertRating(ctx, dup), repo.ErrDuplicate))

	other := rt
	other.ID = "r3"
	other.RatedBy = "second@example.com"
	require.NoError(t, r.InsertRating(ctx, other))

	found, err := r.FindRatingBySubmissionAndRater(ctx, "s1", "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "r1", found.ID)
	_, err = r.FindRatingBySubmissionAndRater(ctx, "s1", "nobody@example.com")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, r.UpdateRatingValue(ctx, "r1", 9, "2024-06-03T10:00:00.000000Z"))
	got, err := r.GetRating(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 9, got.Value)
	assert.Equal(t, "s1", got.SubmissionID)
	assert.ErrorIs(t, r.UpdateRatingValue(ctx, "nope", 1, "2024-06-03T10:00:00.000000Z"), repo.ErrNotFound)

	list, err := r.ListRatings(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r1", list[0].ID)

	n, err := r.CountRatings(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRatingRequiresSubmission(t *testing.T) {
	ctx := context.Background()
	r := repo.Repo{DB: testutil.OpenMigrated(t)}
	err := r.InsertRating(ctx, domain.Rating{ID: "r1", SubmissionID: "missing", Value: 5, RatedBy: "a", RatedAt: "t"})
	assert.Error(t, err)
}

func TestUsersAndAPIKeys(t *testing.T) {
	ctx := context.Background()
	r := repo.Repo{DB: testutil.OpenMigrated(t)}

	require.NoError(t, r.UpsertUser(ctx, domain.User{ID: "a@example.com", SecretHash: "h1"}))
	require.NoError(t, r.UpsertUser(ctx, domain.User{ID: "a@example.com", SecretHash: "h2"}))
	u, err := r.GetUser(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, "h2", u.SecretHash)
	users, err := r.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
	_, err = r.GetUser(ctx, "b@example.com")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	key := domain.APIKey{ID: "k1", ActorID: "rater@example.com", Name: "ci", KeyHash: repo.HashAPIKey("secret-key")}
	require.NoError(t, r.InsertAPIKey(ctx, key))
	got, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey(" secret-key "))
	require.NoError(t, err)
	assert.Equal(t, "rater@example.com", got.ActorID)
	assert.Equal(t, "ci", got.Name)

	keys, err := r.ListAPIKeys(ctx, "rater@example.com")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, r.DeleteAPIKey(ctx, "k1"))
	assert.ErrorIs(t, r.DeleteAPIKey(ctx, "k1"), repo.ErrNotFound)
	_, err = r.GetAPIKeyByHash(ctx, key.KeyHash)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}
