package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"effortline/internal/config"
	"effortline/internal/entry"
)

func newRegistry() *Sessions {
	val := entry.NewValidator(config.Default().Entry)
	return NewSessions(val, func(id string) bool { return id == "admin@example.com" })
}

func TestSessionLifecycle(t *testing.T) {
	reg := newRegistry()
	s := reg.Create("analyst@example.com")
	assert.False(t, s.Admin)
	assert.NotEmpty(t, s.ID)

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	s.Staging.Add()
	assert.Equal(t, 1, s.Staging.Count())

	assert.True(t, reg.Delete(s.ID))
	assert.Equal(t, 0, s.Staging.Count())
	_, err = reg.Get(s.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, reg.Delete(s.ID))

	admin := reg.Create("admin@example.com")
	assert.True(t, admin.Admin)
	assert.Equal(t, 1, reg.Len())
}

func TestTryAcquire(t *testing.T) {
	s := newRegistry().Create("analyst@example.com")

	release, err := s.TryAcquire(KeyCommit)
	require.NoError(t, err)

	_, err = s.TryAcquire(KeyCommit)
	assert.ErrorIs(t, err, ErrInFlight)

	// different keys do not block each other
	r1, err := s.TryAcquire(RatingKey("a"))
	require.NoError(t, err)
	r2, err := s.TryAcquire(RatingKey("b"))
	require.NoError(t, err)
	_, err = s.TryAcquire(RatingKey("a"))
	assert.ErrorIs(t, err, ErrInFlight)

	release()
	release()
	r1()
	r2()

	again, err := s.TryAcquire(KeyCommit)
	require.NoError(t, err)
	again()
}

func TestServiceSessionIsStable(t *testing.T) {
	reg := newRegistry()
	a := reg.Service("admin@example.com")
	b := reg.Service("admin@example.com")
	assert.Same(t, a, b)
	assert.True(t, a.Admin)
	assert.Equal(t, "key:admin@example.com", a.ID)
}

func TestSweepDropsExpiredSignInSessions(t *testing.T) {
	reg := newRegistry()
	assert.Equal(t, 0, reg.Sweep(time.Now().Add(48*time.Hour)), "no ttl, nothing swept")

	reg.SetTTL(time.Hour)
	old := reg.Create("analyst@example.com")
	old.Staging.Add()
	svc := reg.Service("admin@example.com")
	fresh := reg.Create("other@example.com")
	fresh.CreatedAt = old.CreatedAt.Add(30 * time.Minute)

	assert.Equal(t, 0, reg.Sweep(old.CreatedAt.Add(59*time.Minute)))
	assert.Equal(t, 1, reg.Sweep(old.CreatedAt.Add(time.Hour)))
	_, err := reg.Get(old.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 0, old.Staging.Count())

	_, err = reg.Get(fresh.ID)
	require.NoError(t, err)
	got, err := reg.Get(svc.ID)
	require.NoError(t, err)
	assert.Same(t, svc, got)

	// creating a session sweeps on the way in
	fresh.CreatedAt = time.Now().Add(-2 * time.Hour)
	reg.Create("late@example.com")
	_, err = reg.Get(fresh.ID)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 2, reg.Len())
}
